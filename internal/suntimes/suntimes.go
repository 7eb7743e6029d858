// Package suntimes computes the daily golden-hour instants for a coordinate.
package suntimes

import (
	"errors"
	"time"

	ferrors "git.home.luguber.info/inful/goldenhour/internal/foundation/errors"
	"git.home.luguber.info/inful/goldenhour/internal/geo"
)

// ErrUnavailable is the cause of the astronomy-category error returned when
// the sun model cannot produce both golden-hour instants for a date and
// place, e.g. during polar day or night. Callers skip scheduling for that day.
var ErrUnavailable = errors.New("golden hours unavailable")

// DailyGoldenHours is the derived schedule for one calendar day at one place.
type DailyGoldenHours struct {
	Date         time.Time
	Coordinate   geo.Coordinate
	MorningStart time.Time
	EveningStart time.Time
}

// Provider computes golden hours. Implementations must be pure functions of
// their inputs.
type Provider interface {
	Compute(date time.Time, c geo.Coordinate) (DailyGoldenHours, error)
}

// ProviderFunc adapts a function to Provider.
type ProviderFunc func(date time.Time, c geo.Coordinate) (DailyGoldenHours, error)

// Compute implements Provider.
func (f ProviderFunc) Compute(date time.Time, c geo.Coordinate) (DailyGoldenHours, error) {
	return f(date, c)
}

// Validate checks that the morning instant precedes the evening one.
func (d DailyGoldenHours) Validate() error {
	switch {
	case d.MorningStart.IsZero() || d.EveningStart.IsZero():
		return d.unavailable("sun does not cross both elevations")
	case !d.MorningStart.Before(d.EveningStart):
		return d.unavailable("morning start is not before evening start")
	}
	return nil
}

func (d DailyGoldenHours) unavailable(reason string) error {
	return ferrors.AstronomyError(reason).
		WithCause(ErrUnavailable).
		WithContext("date", d.Date.Format(time.DateOnly)).
		WithContext("coordinate", d.Coordinate.String()).
		Build()
}

// Contains reports whether t falls in the daylight window [MorningStart, EveningStart).
func (d DailyGoldenHours) Contains(t time.Time) bool {
	return !t.Before(d.MorningStart) && t.Before(d.EveningStart)
}

// DateOf truncates t to its calendar date in t's location.
func DateOf(t time.Time) time.Time {
	y, m, day := t.Date()
	return time.Date(y, m, day, 0, 0, 0, 0, t.Location())
}

// NextMidnight returns the start of the calendar day after t, in t's location.
func NextMidnight(t time.Time) time.Time {
	y, m, day := t.Date()
	return time.Date(y, m, day+1, 0, 0, 0, 0, t.Location())
}
