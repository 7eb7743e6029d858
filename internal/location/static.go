package location

import (
	"context"

	"github.com/jonboulle/clockwork"

	"git.home.luguber.info/inful/goldenhour/internal/events"
	ferrors "git.home.luguber.info/inful/goldenhour/internal/foundation/errors"
	"git.home.luguber.info/inful/goldenhour/internal/geo"
)

// StaticName is the source name of StaticSource.
const StaticName = "static"

// StaticSource answers every request with a fixed coordinate.
type StaticSource struct {
	coord geo.Coordinate
	bus   Publisher
	clock clockwork.Clock
}

// NewStaticSource returns a source for coord.
func NewStaticSource(coord geo.Coordinate, bus Publisher, clock clockwork.Clock) *StaticSource {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &StaticSource{coord: coord, bus: bus, clock: clock}
}

func (s *StaticSource) Name() string { return StaticName }

// Authorized is false for an out-of-range coordinate.
func (s *StaticSource) Authorized() bool { return s.coord.Valid() }

func (s *StaticSource) Start(context.Context) error { return nil }

func (s *StaticSource) Request(ctx context.Context) error {
	if !s.coord.Valid() {
		return ferrors.LocationError("static coordinate out of range").
			WithContext("coordinate", s.coord.String()).
			UserAction().
			Build()
	}
	return s.bus.Publish(ctx, events.LocationUpdated{
		Coordinate: s.coord,
		Source:     StaticName,
		ReceivedAt: s.clock.Now(),
	})
}

func (s *StaticSource) Close() error { return nil }
