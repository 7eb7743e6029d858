package wake

import (
	"context"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"

	"git.home.luguber.info/inful/goldenhour/internal/events"
	"git.home.luguber.info/inful/goldenhour/internal/logfields"
)

const (
	ClockJumpName = "clock"

	DefaultClockJumpInterval = time.Minute
)

// ClockJumpDetector compares wall-clock progress against a ticker. A gap of
// more than twice the interval (or a backwards step) means the host slept or
// the clock was set, and is reported as a wake.
type ClockJumpDetector struct {
	bus      Publisher
	clock    clockwork.Clock
	interval time.Duration
}

// NewClockJumpDetector returns a detector ticking every interval.
func NewClockJumpDetector(bus Publisher, clock clockwork.Clock, interval time.Duration) *ClockJumpDetector {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if interval <= 0 {
		interval = DefaultClockJumpInterval
	}
	return &ClockJumpDetector{bus: bus, clock: clock, interval: interval}
}

func (d *ClockJumpDetector) Name() string { return ClockJumpName }

func (d *ClockJumpDetector) Run(ctx context.Context) error {
	// Round(0) strips the monotonic reading, which does not advance in suspend.
	last := d.clock.Now().Round(0)
	ticker := d.clock.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.Chan():
			now := d.clock.Now().Round(0)
			gap := now.Sub(last)
			last = now
			if gap >= 0 && gap <= 2*d.interval {
				continue
			}
			slog.Info("Wall clock jumped", logfields.Source(ClockJumpName), logfields.Duration(gap))
			if err := d.bus.Publish(ctx, events.Woke{Source: ClockJumpName, At: now}); err != nil {
				slog.Warn("Dropping wake event", logfields.Source(ClockJumpName), logfields.Error(err))
			}
		}
	}
}
