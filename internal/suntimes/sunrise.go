package suntimes

import (
	"time"

	"github.com/nathan-osman/go-sunrise"

	ferrors "git.home.luguber.info/inful/goldenhour/internal/foundation/errors"
	"git.home.luguber.info/inful/goldenhour/internal/geo"
)

const (
	// DefaultMorningElevation is the solar elevation (degrees) at which the
	// morning golden hour begins, with the sun still below the horizon.
	DefaultMorningElevation = -4.0
	// DefaultEveningElevation is the solar elevation (degrees) at which the
	// evening golden hour begins.
	DefaultEveningElevation = 6.0
)

// SunriseProvider computes golden hours with the go-sunrise solar model.
type SunriseProvider struct {
	morningElevation float64
	eveningElevation float64
	location         *time.Location
}

// NewSunriseProvider returns a provider reporting instants in loc. A nil loc
// uses time.Local.
func NewSunriseProvider(morningElevation, eveningElevation float64, loc *time.Location) (*SunriseProvider, error) {
	if morningElevation >= eveningElevation {
		return nil, ferrors.ConfigError("morning elevation must be below evening elevation").
			WithContext("morning_elevation", morningElevation).
			WithContext("evening_elevation", eveningElevation).
			Build()
	}
	if loc == nil {
		loc = time.Local
	}
	return &SunriseProvider{
		morningElevation: morningElevation,
		eveningElevation: eveningElevation,
		location:         loc,
	}, nil
}

// Location returns the zone computed instants are expressed in.
func (p *SunriseProvider) Location() *time.Location {
	return p.location
}

// Compute implements Provider. The calendar date of date in the provider's
// zone selects the day.
func (p *SunriseProvider) Compute(date time.Time, c geo.Coordinate) (DailyGoldenHours, error) {
	if !c.Valid() {
		return DailyGoldenHours{}, ferrors.ValidationError("invalid coordinate").
			WithContext("coordinate", c.String()).
			Build()
	}
	day := DateOf(date.In(p.location))
	y, m, d := day.Date()

	// The rising crossing of the lower elevation and the setting crossing of
	// the upper one. go-sunrise returns zero times when the sun never crosses.
	morning, _ := sunrise.TimeOfElevation(c.Latitude, c.Longitude, p.morningElevation, y, m, d)
	_, evening := sunrise.TimeOfElevation(c.Latitude, c.Longitude, p.eveningElevation, y, m, d)

	gh := DailyGoldenHours{
		Date:       day,
		Coordinate: c,
	}
	if !morning.IsZero() {
		gh.MorningStart = morning.In(p.location)
	}
	if !evening.IsZero() {
		gh.EveningStart = evening.In(p.location)
	}
	if err := gh.Validate(); err != nil {
		return gh, err
	}
	return gh, nil
}
