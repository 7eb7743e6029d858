package config

import (
	"log/slog"

	"git.home.luguber.info/inful/goldenhour/internal/foundation/normalization"
)

// LogLevel enumerates supported logging levels.
type LogLevel string

const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

var logLevelNormalizer = normalization.NewNormalizer("log level", map[string]LogLevel{
	"debug":   LogLevelDebug,
	"info":    LogLevelInfo,
	"warn":    LogLevelWarn,
	"warning": LogLevelWarn,
	"error":   LogLevelError,
}, LogLevelInfo)

func NormalizeLogLevel(raw string) LogLevel {
	return logLevelNormalizer.Normalize(raw)
}

// Slog maps the level onto slog.
func (l LogLevel) Slog() slog.Level {
	switch l {
	case LogLevelDebug:
		return slog.LevelDebug
	case LogLevelWarn:
		return slog.LevelWarn
	case LogLevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// LogFormat enumerates supported log output formats.
type LogFormat string

const (
	LogFormatJSON LogFormat = "json"
	LogFormatText LogFormat = "text"
)

var logFormatNormalizer = normalization.NewNormalizer("log format", map[string]LogFormat{
	"json": LogFormatJSON,
	"text": LogFormatText,
}, LogFormatText)

func NormalizeLogFormat(raw string) LogFormat {
	return logFormatNormalizer.Normalize(raw)
}

// LocationSource names a location.Source implementation.
type LocationSource string

const (
	LocationStatic LocationSource = "static"
	LocationMQTT   LocationSource = "mqtt"
)

var locationSourceNormalizer = normalization.NewNormalizer("location source", map[string]LocationSource{
	"static": LocationStatic,
	"mqtt":   LocationMQTT,
}, LocationStatic)

// ObservedState selects the input to reconciliation.
type ObservedState string

const (
	// ObservedApplied uses the last TimeOfDay this process applied.
	ObservedApplied ObservedState = "applied"
	// ObservedTheme uses the desktop appearance reported by the theme observer.
	ObservedTheme ObservedState = "theme"
)

var observedStateNormalizer = normalization.NewNormalizer("observed state", map[string]ObservedState{
	"applied": ObservedApplied,
	"theme":   ObservedTheme,
}, ObservedApplied)
