// Package wake detects that the host resumed from sleep and publishes
// events.Woke so the controller can reconcile missed transitions.
package wake

import "context"

// Publisher is the part of the event bus a notifier needs.
type Publisher interface {
	Publish(ctx context.Context, evt any) error
}

// Notifier runs until ctx is done.
type Notifier interface {
	Name() string
	Run(ctx context.Context) error
}
