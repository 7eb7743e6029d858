// Package notify announces applied transitions to other processes.
package notify

import (
	"context"
	"time"

	"git.home.luguber.info/inful/goldenhour/internal/daytime"
)

// Transition describes one successful apply.
type Transition struct {
	TimeOfDay daytime.TimeOfDay `json:"time_of_day"`
	Dark      bool              `json:"dark"`
	At        time.Time         `json:"at"`
	Host      string            `json:"host,omitempty"`
}

// Notifier publishes transitions.
type Notifier interface {
	Notify(ctx context.Context, t Transition) error
	Close() error
}

// Noop discards every transition.
type Noop struct{}

func (Noop) Notify(context.Context, Transition) error { return nil }
func (Noop) Close() error                             { return nil }
