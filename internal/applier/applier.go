// Package applier executes the side effect of a time-of-day transition.
package applier

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"

	"git.home.luguber.info/inful/goldenhour/internal/daytime"
)

// StateApplier applies a TimeOfDay to the outside world. Failures are
// reported, never retried by the caller.
type StateApplier interface {
	Apply(ctx context.Context, tod daytime.TimeOfDay) error
}

// Func adapts a plain function to StateApplier.
type Func func(ctx context.Context, tod daytime.TimeOfDay) error

// Apply calls f.
func (f Func) Apply(ctx context.Context, tod daytime.TimeOfDay) error { return f(ctx, tod) }

// Hook observes the result of every apply.
type Hook func(ctx context.Context, tod daytime.TimeOfDay, elapsed time.Duration, err error)

type hooked struct {
	next  StateApplier
	clock clockwork.Clock
	hooks []Hook
}

// WithHooks wraps next so that every hook runs after each apply, in order.
func WithHooks(next StateApplier, clock clockwork.Clock, hooks ...Hook) StateApplier {
	if len(hooks) == 0 {
		return next
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &hooked{next: next, clock: clock, hooks: hooks}
}

func (h *hooked) Apply(ctx context.Context, tod daytime.TimeOfDay) error {
	start := h.clock.Now()
	err := h.next.Apply(ctx, tod)
	elapsed := h.clock.Since(start)
	for _, hook := range h.hooks {
		hook(ctx, tod, elapsed, err)
	}
	return err
}
