package controller

import (
	"errors"
	"log/slog"
	"time"

	"git.home.luguber.info/inful/goldenhour/internal/daytime"
	"git.home.luguber.info/inful/goldenhour/internal/events"
	"git.home.luguber.info/inful/goldenhour/internal/geo"
	"git.home.luguber.info/inful/goldenhour/internal/logfields"
	"git.home.luguber.info/inful/goldenhour/internal/reconcile"
	"git.home.luguber.info/inful/goldenhour/internal/suntimes"
	"git.home.luguber.info/inful/goldenhour/internal/transition"
)

// launch restores persisted state and asks for a location. A restored
// location is treated like a wake so missed transitions are corrected.
func (c *Controller) launch() {
	c.setPhase(AwaitingLocation)

	if c.store != nil {
		snap := c.store.Snapshot()
		if snap.LastApplied != nil {
			tod := *snap.LastApplied
			c.lastApplied = &tod
		}
		if snap.LastLocation != nil {
			loc := *snap.LastLocation
			c.location = &loc
			c.locationFrom = snap.LocationSource
			slog.Info("Restored last location",
				logfields.Latitude(loc.Latitude),
				logfields.Longitude(loc.Longitude))
			c.recompute(c.now(), true)
		}
	}
	c.requestLocation("launch")
}

// OnLocation debounces an incoming coordinate and reschedules if accepted.
func (c *Controller) OnLocation(evt events.LocationUpdated) {
	candidate := evt.Coordinate
	if !candidate.Valid() {
		slog.Warn("Ignoring out-of-range location", logfields.Source(evt.Source))
		return
	}

	accepted := c.debouncer.Accept(candidate, c.location)
	c.recorder.IncLocation(evt.Source, accepted)
	if !accepted {
		slog.Debug("Location change below threshold",
			logfields.Source(evt.Source),
			logfields.DistanceM(geo.Distance(candidate, *c.location)))
		return
	}

	first := c.Phase() != Scheduled
	c.location = &candidate
	c.locationFrom = evt.Source
	slog.Info("Location accepted",
		logfields.Source(evt.Source),
		logfields.Latitude(candidate.Latitude),
		logfields.Longitude(candidate.Longitude))
	if c.store != nil {
		if err := c.store.SaveLocation(candidate, evt.Source); err != nil {
			slog.Warn("Failed to persist location", logfields.Error(err))
		}
	}

	// The first fix of a run has nothing applied against it yet.
	c.recompute(c.now(), first)
}

// OnLocationError logs a failed location request. Scheduling continues with
// the last known coordinate.
func (c *Controller) OnLocationError(evt events.LocationFailed) {
	slog.Warn("Location unavailable",
		logfields.Source(evt.Source),
		logfields.Phase(c.Phase().String()),
		logfields.Error(evt.Err))
}

// OnWake recomputes, reconciles and re-arms, or asks for a location when
// none is known yet.
func (c *Controller) OnWake(evt events.Woke) {
	slog.Info("Wake detected", logfields.Source(evt.Source))
	if c.location == nil {
		c.requestLocation("wake")
		return
	}
	c.recompute(c.now(), true)
}

// OnTimerFired applies the transition for kind or rolls over at midnight.
func (c *Controller) OnTimerFired(kind transition.Kind) {
	c.recorder.IncTimerFired(kind.String())
	switch kind {
	case transition.MorningTransition:
		c.requestApply(daytime.Morning, "timer")
	case transition.EveningTransition:
		c.requestApply(daytime.Evening, "timer")
	case transition.MidnightRollover:
		c.rollover()
	}
}

// OnThemeChanged records the external appearance and, when switching is
// enabled, applies a flip directly. The observer's initial reading is only
// recorded so it cannot override the launch reconcile.
func (c *Controller) OnThemeChanged(evt events.ThemeChanged) {
	dark := evt.Dark
	c.themeDark = &dark
	if !c.switching || evt.Initial {
		return
	}
	tod := daytime.Day
	if dark {
		tod = daytime.Night
	}
	c.requestApply(tod, "theme")
}

// OnAuthorizationChanged requests a location as soon as a source becomes
// usable.
func (c *Controller) OnAuthorizationChanged(evt events.AuthorizationChanged) {
	slog.Info("Location authorization changed",
		logfields.Source(evt.Source),
		slog.Bool("authorized", evt.Authorized))
	if evt.Authorized {
		c.requestLocation("authorized")
	}
}

// rollover handles MidnightRollover: the next midnight is armed before
// anything else so a failure below cannot stop the daily cycle.
func (c *Controller) rollover() {
	now := c.now()
	c.armMidnight(now)
	c.requestLocation("midnight")
	c.recompute(now, false)
}

// recompute computes today's golden hours for the current location,
// optionally reconciles, and re-arms every timer.
func (c *Controller) recompute(now time.Time, reconcileNow bool) {
	if c.location == nil {
		return
	}
	c.setPhase(Scheduled)
	c.armMidnight(now)

	gh, err := c.provider.Compute(now, *c.location)
	if err != nil {
		c.today = nil
		c.scheduler.Cancel(transition.MorningTransition)
		c.scheduler.Cancel(transition.EveningTransition)
		if errors.Is(err, suntimes.ErrUnavailable) {
			c.recorder.IncUnavailable()
			slog.Info("No golden hours today, skipping", logfields.Date(now), logfields.Error(err))
			return
		}
		slog.Warn("Golden hour computation failed", logfields.Date(now), logfields.Error(err))
		return
	}
	c.today = &gh
	slog.Info("Golden hours computed",
		logfields.Date(gh.Date),
		slog.Time("morning_start", gh.MorningStart),
		slog.Time("evening_start", gh.EveningStart))

	if reconcileNow {
		tod, corrected := reconcile.Reconcile(now, gh, c.observedIsNight(now, gh))
		outcome := reconcile.Outcome(tod, corrected)
		c.recorder.IncReconcile(outcome)
		slog.Info("Reconciled", logfields.Reason(outcome))
		if corrected {
			c.requestApply(tod, "reconcile")
		}
	}

	c.arm(transition.MorningTransition, gh.MorningStart)
	c.arm(transition.EveningTransition, gh.EveningStart)
}

// observedIsNight reports the observed state. Without any observation it
// returns whatever makes reconciliation apply the expected state.
func (c *Controller) observedIsNight(now time.Time, gh suntimes.DailyGoldenHours) bool {
	switch c.observed {
	case ObserveTheme:
		if c.themeDark != nil {
			return *c.themeDark
		}
	default:
		if n := len(c.queued); n > 0 {
			return c.queued[n-1].Dark()
		}
		if c.lastApplied != nil {
			return c.lastApplied.Dark()
		}
	}
	return gh.Contains(now)
}

func (c *Controller) arm(kind transition.Kind, at time.Time) {
	if !c.scheduler.Arm(kind, at, func() { c.OnTimerFired(kind) }) {
		return
	}
	c.recorder.IncTimerArmed(kind.String())
	c.recorder.SetNextTransition(kind.String(), at)
}

// armMidnight arms the rollover for the midnight after now unless it is
// already armed for that instant.
func (c *Controller) armMidnight(now time.Time) {
	next := suntimes.NextMidnight(now)
	if at, ok := c.scheduler.Pending(transition.MidnightRollover); ok && at.Equal(next) {
		return
	}
	c.arm(transition.MidnightRollover, next)
}
