// Package transition owns the pending golden-hour timers: at most one per kind,
// each a cancellable one-shot bound to an absolute instant.
package transition

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"git.home.luguber.info/inful/goldenhour/internal/logfields"
)

// Kind identifies one of the daily timers.
type Kind int

const (
	MorningTransition Kind = iota
	EveningTransition
	MidnightRollover
)

// Kinds lists every timer kind.
func Kinds() []Kind {
	return []Kind{MorningTransition, EveningTransition, MidnightRollover}
}

func (k Kind) String() string {
	switch k {
	case MorningTransition:
		return "morning"
	case EveningTransition:
		return "evening"
	case MidnightRollover:
		return "midnight"
	default:
		return "unknown"
	}
}

// Dispatcher runs a fired timer's work on the owner's execution context.
type Dispatcher func(func())

// Handle describes one armed timer.
type Handle struct {
	ID     string
	Kind   Kind
	FireAt time.Time

	timer clockwork.Timer
}

// Scheduler arms and cancels timers keyed by Kind.
//
// Timers are driven by the clock's monotonic reading, which on most hosts
// stops while the machine sleeps; owners are expected to re-arm on wake.
type Scheduler struct {
	clock    clockwork.Clock
	dispatch Dispatcher

	mu      sync.Mutex
	pending map[Kind]*Handle
	closed  bool
}

// NewScheduler returns a Scheduler on clock. A nil dispatch runs fired actions
// directly on the clock's timer goroutine.
func NewScheduler(clock clockwork.Clock, dispatch Dispatcher) *Scheduler {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if dispatch == nil {
		dispatch = func(fn func()) { fn() }
	}
	return &Scheduler{
		clock:    clock,
		dispatch: dispatch,
		pending:  make(map[Kind]*Handle),
	}
}

// Arm replaces the timer of kind with one that runs action once at fireAt.
// A fireAt that is not strictly in the future is a no-op and leaves any
// pending timer of kind in place. It reports whether a timer was armed.
func (s *Scheduler) Arm(kind Kind, fireAt time.Time, action func()) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		slog.Debug("Scheduler closed, ignoring arm", logfields.TimerKind(kind.String()))
		return false
	}

	delay := fireAt.Sub(s.clock.Now())
	if delay <= 0 {
		slog.Info("Transition already passed, not arming",
			logfields.TimerKind(kind.String()),
			logfields.FireAt(fireAt))
		return false
	}
	s.cancelLocked(kind)

	h := &Handle{ID: uuid.NewString(), Kind: kind, FireAt: fireAt}
	h.timer = s.clock.AfterFunc(delay, func() {
		s.dispatch(func() { s.fire(h, action) })
	})
	s.pending[kind] = h

	slog.Debug("Timer armed",
		logfields.TimerKind(kind.String()),
		logfields.TimerID(h.ID),
		logfields.FireAt(fireAt))
	return true
}

// fire runs action if h is still the current timer for its kind. A handle
// that was superseded or cancelled after its clock timer expired is dropped.
func (s *Scheduler) fire(h *Handle, action func()) {
	s.mu.Lock()
	current, ok := s.pending[h.Kind]
	if s.closed || !ok || current != h {
		s.mu.Unlock()
		slog.Debug("Dropping superseded timer", logfields.TimerKind(h.Kind.String()), logfields.TimerID(h.ID))
		return
	}
	delete(s.pending, h.Kind)
	s.mu.Unlock()

	slog.Debug("Timer fired", logfields.TimerKind(h.Kind.String()), logfields.TimerID(h.ID))
	action()
}

// Cancel stops the timer of kind, if any.
func (s *Scheduler) Cancel(kind Kind) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancelLocked(kind)
}

func (s *Scheduler) cancelLocked(kind Kind) {
	if h, ok := s.pending[kind]; ok {
		h.timer.Stop()
		delete(s.pending, kind)
	}
}

// CancelAll stops every timer and rejects further arms. Actions of timers
// that already expired but were not yet dispatched never run.
func (s *Scheduler) CancelAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for kind := range s.pending {
		s.cancelLocked(kind)
	}
	s.closed = true
}

// Pending returns the fire time of the armed timer of kind.
func (s *Scheduler) Pending(kind Kind) (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if h, ok := s.pending[kind]; ok {
		return h.FireAt, true
	}
	return time.Time{}, false
}

// Len returns the number of armed timers.
func (s *Scheduler) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}
