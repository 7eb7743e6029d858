package logfields

import (
	"log/slog"
	"time"
)

// Canonical log field name constants to avoid drift across packages.
const (
	KeyTimeOfDay  = "time_of_day"
	KeyAsset      = "asset_id"
	KeyTimerKind  = "timer_kind"
	KeyTimerID    = "timer_id"
	KeyFireAt     = "fire_at"
	KeyDate       = "date"
	KeyLatitude   = "latitude"
	KeyLongitude  = "longitude"
	KeyDistanceM  = "distance_m"
	KeySource     = "source"
	KeyReason     = "reason"
	KeyPhase      = "phase"
	KeyPath       = "path"
	KeyDurationMS = "duration_ms"
	KeyError      = "error"
)

// Simple helpers returning slog.Attr. Keeping each granular means callers can compose.
func TimeOfDay(t string) slog.Attr     { return slog.String(KeyTimeOfDay, t) }
func Asset(id string) slog.Attr        { return slog.String(KeyAsset, id) }
func TimerKind(k string) slog.Attr     { return slog.String(KeyTimerKind, k) }
func TimerID(id string) slog.Attr      { return slog.String(KeyTimerID, id) }
func FireAt(t time.Time) slog.Attr     { return slog.String(KeyFireAt, t.Format(time.RFC3339)) }
func Date(t time.Time) slog.Attr       { return slog.String(KeyDate, t.Format(time.DateOnly)) }
func Latitude(v float64) slog.Attr     { return slog.Float64(KeyLatitude, v) }
func Longitude(v float64) slog.Attr    { return slog.Float64(KeyLongitude, v) }
func DistanceM(m float64) slog.Attr    { return slog.Float64(KeyDistanceM, m) }
func Source(s string) slog.Attr        { return slog.String(KeySource, s) }
func Reason(r string) slog.Attr        { return slog.String(KeyReason, r) }
func Phase(p string) slog.Attr         { return slog.String(KeyPhase, p) }
func Path(p string) slog.Attr          { return slog.String(KeyPath, p) }
func DurationMS(ms float64) slog.Attr  { return slog.Float64(KeyDurationMS, ms) }
func Duration(d time.Duration) slog.Attr {
	return DurationMS(float64(d.Microseconds()) / 1000)
}
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
