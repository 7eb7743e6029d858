// Package controller owns the golden-hour schedule. All state lives on one
// event-loop goroutine (Run); external stimuli arrive as bus events and timer
// callbacks are posted into the loop's mailbox.
package controller

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"

	"git.home.luguber.info/inful/goldenhour/internal/applier"
	"git.home.luguber.info/inful/goldenhour/internal/daytime"
	"git.home.luguber.info/inful/goldenhour/internal/events"
	ferrors "git.home.luguber.info/inful/goldenhour/internal/foundation/errors"
	"git.home.luguber.info/inful/goldenhour/internal/geo"
	"git.home.luguber.info/inful/goldenhour/internal/metrics"
	"git.home.luguber.info/inful/goldenhour/internal/state"
	"git.home.luguber.info/inful/goldenhour/internal/suntimes"
	"git.home.luguber.info/inful/goldenhour/internal/transition"
)

// Phase is the controller's coarse lifecycle state.
type Phase int32

const (
	Uninitialized Phase = iota
	AwaitingLocation
	Scheduled
)

func (p Phase) String() string {
	switch p {
	case Uninitialized:
		return "uninitialized"
	case AwaitingLocation:
		return "awaiting_location"
	case Scheduled:
		return "scheduled"
	default:
		return "unknown"
	}
}

// ObservedState selects what reconciliation compares against.
type ObservedState int

const (
	// ObserveApplied uses the last TimeOfDay this controller applied.
	ObserveApplied ObservedState = iota
	// ObserveTheme uses the last appearance reported by the theme observer.
	ObserveTheme
)

// Locator is the part of a location source the controller drives.
type Locator interface {
	Name() string
	Authorized() bool
	Request(ctx context.Context) error
}

// StateStore persists what must survive a restart.
type StateStore interface {
	Snapshot() state.Snapshot
	SaveLocation(c geo.Coordinate, source string) error
	SaveApplied(tod daytime.TimeOfDay) error
}

// Handler receives the controller's inputs. Methods run on the loop
// goroutine; other goroutines reach them through the bus or Post.
type Handler interface {
	OnLocation(evt events.LocationUpdated)
	OnLocationError(evt events.LocationFailed)
	OnWake(evt events.Woke)
	OnTimerFired(kind transition.Kind)
	OnThemeChanged(evt events.ThemeChanged)
	OnAuthorizationChanged(evt events.AuthorizationChanged)
}

var _ Handler = (*Controller)(nil)

// Deps are the controller's collaborators. Bus, Provider and Applier are
// required.
type Deps struct {
	Clock     clockwork.Clock
	Zone      *time.Location
	Bus       *events.Bus
	Provider  suntimes.Provider
	Applier   applier.StateApplier
	Locator   Locator
	Debouncer geo.Debouncer
	Store     StateStore
	Recorder  metrics.Recorder

	Observed ObservedState
	// ThemeSwitch applies Night or Day whenever the appearance flips.
	ThemeSwitch bool
}

const (
	mailboxSize    = 64
	applyQueueSize = 8
	eventBuffer    = 16
)

type applyRequest struct {
	tod    daytime.TimeOfDay
	reason string
}

// Controller is the scheduler state machine.
type Controller struct {
	clock     clockwork.Clock
	zone      *time.Location
	bus       *events.Bus
	provider  suntimes.Provider
	applier   applier.StateApplier
	locator   Locator
	debouncer geo.Debouncer
	store     StateStore
	recorder  metrics.Recorder
	observed  ObservedState
	switching bool

	scheduler *transition.Scheduler
	mailbox   chan func()
	applyCh   chan applyRequest
	done      chan struct{}
	ready     chan struct{}
	running   atomic.Bool
	phase     atomic.Int32
	workers   sync.WaitGroup
	ctx       context.Context

	// Loop-owned.
	location     *geo.Coordinate
	today        *suntimes.DailyGoldenHours
	lastApplied  *daytime.TimeOfDay
	queued       []daytime.TimeOfDay
	themeDark    *bool
	locationFrom string
}

// New validates deps and returns a controller in phase Uninitialized.
func New(deps Deps) (*Controller, error) {
	if deps.Bus == nil || deps.Provider == nil || deps.Applier == nil {
		return nil, ferrors.InternalError("controller needs a bus, a provider and an applier").Build()
	}
	if deps.Clock == nil {
		deps.Clock = clockwork.NewRealClock()
	}
	if deps.Zone == nil {
		deps.Zone = time.Local
	}
	if deps.Debouncer == (geo.Debouncer{}) {
		deps.Debouncer = geo.NewDebouncer(geo.DefaultThresholdMeters)
	}
	if deps.Recorder == nil {
		deps.Recorder = metrics.NoopRecorder{}
	}

	c := &Controller{
		clock:     deps.Clock,
		zone:      deps.Zone,
		bus:       deps.Bus,
		provider:  deps.Provider,
		applier:   deps.Applier,
		locator:   deps.Locator,
		debouncer: deps.Debouncer,
		store:     deps.Store,
		recorder:  deps.Recorder,
		observed:  deps.Observed,
		switching: deps.ThemeSwitch,
		mailbox:   make(chan func(), mailboxSize),
		applyCh:   make(chan applyRequest, applyQueueSize),
		done:      make(chan struct{}),
		ready:     make(chan struct{}),
		ctx:       context.Background(),
	}
	c.scheduler = transition.NewScheduler(c.clock, c.post)
	return c, nil
}

// Phase returns the current phase. Safe from any goroutine.
func (c *Controller) Phase() Phase {
	return Phase(c.phase.Load())
}

// Pending returns the fire time of the armed timer of kind.
func (c *Controller) Pending(kind transition.Kind) (time.Time, bool) {
	return c.scheduler.Pending(kind)
}

// Ready is closed once Run subscribed to the bus and finished launching.
func (c *Controller) Ready() <-chan struct{} {
	return c.ready
}

// RequestLocation asks the locator for a fresh fix from the loop.
func (c *Controller) RequestLocation(reason string) bool {
	return c.Post(func() { c.requestLocation(reason) })
}

// Post runs fn on the loop. It reports false once the controller stopped.
func (c *Controller) Post(fn func()) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.mailbox <- fn:
		return true
	case <-c.done:
		return false
	}
}

func (c *Controller) post(fn func()) { c.Post(fn) }

// SwitchTo applies tod directly, bypassing the golden-hour schedule. Armed
// timers are left untouched.
func (c *Controller) SwitchTo(tod daytime.TimeOfDay) error {
	if !tod.Valid() {
		return ferrors.ValidationError("invalid time of day").WithContext("time_of_day", int(tod)).Build()
	}
	if !c.Post(func() { c.requestApply(tod, "switch") }) {
		return ferrors.DaemonError("controller stopped").Build()
	}
	return nil
}

func (c *Controller) setPhase(p Phase) {
	c.phase.Store(int32(p))
}

func (c *Controller) now() time.Time {
	return c.clock.Now().In(c.zone)
}
