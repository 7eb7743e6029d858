// Package location provides the coordinate sources feeding the controller.
package location

import (
	"context"

	"git.home.luguber.info/inful/goldenhour/internal/events"
)

// Publisher is the part of the event bus a source needs.
type Publisher interface {
	Publish(ctx context.Context, evt any) error
}

var _ Publisher = (*events.Bus)(nil)

// Source delivers events.LocationUpdated and events.LocationFailed.
type Source interface {
	Name() string
	// Authorized reports whether the source may currently be asked for a
	// location.
	Authorized() bool
	// Start begins delivering unsolicited updates until ctx is done.
	Start(ctx context.Context) error
	// Request asks for a single fresh coordinate. The answer arrives as an
	// event; Request only reports whether the ask could be made.
	Request(ctx context.Context) error
	Close() error
}
