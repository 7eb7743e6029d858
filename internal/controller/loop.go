package controller

import (
	"context"
	"log/slog"

	"git.home.luguber.info/inful/goldenhour/internal/daytime"
	"git.home.luguber.info/inful/goldenhour/internal/events"
	ferrors "git.home.luguber.info/inful/goldenhour/internal/foundation/errors"
	"git.home.luguber.info/inful/goldenhour/internal/logfields"
)

// Run launches the controller and processes events until ctx is done or the
// bus is closed. On return every timer is cancelled and no timer action runs
// afterwards.
func (c *Controller) Run(ctx context.Context) error {
	if !c.running.CompareAndSwap(false, true) {
		return ferrors.DaemonError("controller already running").Build()
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	c.ctx = ctx

	locations, unsubLocations := events.Subscribe[events.LocationUpdated](c.bus, eventBuffer)
	defer unsubLocations()
	failures, unsubFailures := events.Subscribe[events.LocationFailed](c.bus, eventBuffer)
	defer unsubFailures()
	wakes, unsubWakes := events.Subscribe[events.Woke](c.bus, eventBuffer)
	defer unsubWakes()
	themes, unsubThemes := events.Subscribe[events.ThemeChanged](c.bus, eventBuffer)
	defer unsubThemes()
	switches, unsubSwitches := events.Subscribe[events.SwitchRequested](c.bus, eventBuffer)
	defer unsubSwitches()
	auths, unsubAuths := events.Subscribe[events.AuthorizationChanged](c.bus, eventBuffer)
	defer unsubAuths()

	c.workers.Add(1)
	go c.applyWorker(ctx)
	defer c.teardown(cancel)

	c.launch()
	close(c.ready)

	for {
		select {
		case <-ctx.Done():
			return nil
		case fn := <-c.mailbox:
			fn()
		case evt, ok := <-locations:
			if !ok {
				return nil
			}
			c.OnLocation(evt)
		case evt, ok := <-failures:
			if !ok {
				return nil
			}
			c.OnLocationError(evt)
		case evt, ok := <-wakes:
			if !ok {
				return nil
			}
			c.OnWake(evt)
		case evt, ok := <-themes:
			if !ok {
				return nil
			}
			c.OnThemeChanged(evt)
		case evt, ok := <-auths:
			if !ok {
				return nil
			}
			c.OnAuthorizationChanged(evt)
		case evt, ok := <-switches:
			if !ok {
				return nil
			}
			if evt.TimeOfDay.Valid() {
				c.requestApply(evt.TimeOfDay, evt.Reason)
			}
		}
	}
}

func (c *Controller) teardown(cancel context.CancelFunc) {
	c.scheduler.CancelAll()
	close(c.done)
	cancel()
	c.workers.Wait()
	c.setPhase(Uninitialized)
	slog.Info("Scheduler controller stopped")
}

// applyWorker runs applies one at a time off the loop and posts each result
// back into the mailbox.
func (c *Controller) applyWorker(ctx context.Context) {
	defer c.workers.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case req := <-c.applyCh:
			err := c.applier.Apply(ctx, req.tod)
			c.post(func() { c.onApplied(req, err) })
		}
	}
}

// requestApply queues an apply. A queued apply counts as applied when the
// observed state is computed.
func (c *Controller) requestApply(tod daytime.TimeOfDay, reason string) {
	select {
	case c.applyCh <- applyRequest{tod: tod, reason: reason}:
		c.queued = append(c.queued, tod)
		slog.Debug("Apply queued", logfields.TimeOfDay(tod.String()), logfields.Reason(reason))
	default:
		slog.Warn("Apply queue full, dropping", logfields.TimeOfDay(tod.String()), logfields.Reason(reason))
	}
}

func (c *Controller) onApplied(req applyRequest, err error) {
	if len(c.queued) > 0 {
		c.queued = c.queued[1:]
	}
	if err != nil {
		slog.Error("Apply failed",
			logfields.TimeOfDay(req.tod.String()),
			logfields.Reason(req.reason),
			slog.String("category", string(ferrors.GetCategory(err))),
			logfields.Error(err))
		return
	}

	tod := req.tod
	c.lastApplied = &tod
	slog.Info("Applied time of day", logfields.TimeOfDay(tod.String()), logfields.Reason(req.reason))
	if c.store != nil {
		if err := c.store.SaveApplied(tod); err != nil {
			slog.Warn("Failed to persist applied state", logfields.Error(err))
		}
	}
}

// requestLocation asks the locator for a fix without blocking the loop.
func (c *Controller) requestLocation(reason string) {
	if c.locator == nil {
		return
	}
	if !c.locator.Authorized() {
		slog.Info("Location source not authorized, awaiting authorization",
			logfields.Source(c.locator.Name()),
			logfields.Reason(reason))
		return
	}
	ctx := c.ctx
	locator := c.locator
	go func() {
		if err := locator.Request(ctx); err != nil {
			c.post(func() {
				c.OnLocationError(events.LocationFailed{Source: locator.Name(), Err: err})
			})
		}
	}()
}
