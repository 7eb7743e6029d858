package controller

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"git.home.luguber.info/inful/goldenhour/internal/daytime"
	"git.home.luguber.info/inful/goldenhour/internal/events"
	"git.home.luguber.info/inful/goldenhour/internal/geo"
	"git.home.luguber.info/inful/goldenhour/internal/metrics"
	"git.home.luguber.info/inful/goldenhour/internal/state"
	"git.home.luguber.info/inful/goldenhour/internal/suntimes"
)

var london = geo.Coordinate{Latitude: 51.5, Longitude: -0.12}

// fixedProvider returns 05:12 and 20:47 on the requested date.
type fixedProvider struct {
	calls atomic.Int32
	polar bool
}

func (p *fixedProvider) Compute(date time.Time, c geo.Coordinate) (suntimes.DailyGoldenHours, error) {
	p.calls.Add(1)
	if p.polar {
		return suntimes.DailyGoldenHours{}, suntimes.ErrUnavailable
	}
	day := suntimes.DateOf(date)
	return suntimes.DailyGoldenHours{
		Date:         day,
		Coordinate:   c,
		MorningStart: day.Add(5*time.Hour + 12*time.Minute),
		EveningStart: day.Add(20*time.Hour + 47*time.Minute),
	}, nil
}

// shiftProvider moves the morning start to 05:05 east of longitude 1.
type shiftProvider struct {
	fixedProvider
}

func (p *shiftProvider) Compute(date time.Time, c geo.Coordinate) (suntimes.DailyGoldenHours, error) {
	gh, err := p.fixedProvider.Compute(date, c)
	if err == nil && c.Longitude > 1 {
		gh.MorningStart = gh.Date.Add(5*time.Hour + 5*time.Minute)
	}
	return gh, err
}

// recordingApplier records every attempt, including the ones it fails.
type recordingApplier struct {
	mu      sync.Mutex
	applied []daytime.TimeOfDay
	fail    atomic.Bool
}

func (a *recordingApplier) Apply(_ context.Context, tod daytime.TimeOfDay) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.applied = append(a.applied, tod)
	if a.fail.Load() {
		return errors.New("refresh command failed")
	}
	return nil
}

func (a *recordingApplier) snapshot() []daytime.TimeOfDay {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]daytime.TimeOfDay(nil), a.applied...)
}

func (a *recordingApplier) count() int { return len(a.snapshot()) }

// fakeLocator publishes coord on every request unless fail says otherwise.
type fakeLocator struct {
	bus        *events.Bus
	coord      geo.Coordinate
	authorized atomic.Bool
	fail       func(n int32) bool
	requests   atomic.Int32
}

func (l *fakeLocator) Name() string     { return "fake" }
func (l *fakeLocator) Authorized() bool { return l.authorized.Load() }

func (l *fakeLocator) Request(ctx context.Context) error {
	n := l.requests.Add(1)
	if l.fail != nil && l.fail(n) {
		return errors.New("no fix")
	}
	return l.bus.Publish(ctx, events.LocationUpdated{Coordinate: l.coord, Source: "fake"})
}

type countingRecorder struct {
	metrics.NoopRecorder

	mu          sync.Mutex
	armed       map[string]int
	reconciles  map[string]int
	unavailable int
}

func newCountingRecorder() *countingRecorder {
	return &countingRecorder{armed: map[string]int{}, reconciles: map[string]int{}}
}

func (r *countingRecorder) IncTimerArmed(kind string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.armed[kind]++
}

func (r *countingRecorder) IncReconcile(outcome string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reconciles[outcome]++
}

func (r *countingRecorder) IncUnavailable() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.unavailable++
}

func (r *countingRecorder) armedCount(kind string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.armed[kind]
}

func (r *countingRecorder) unavailableCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.unavailable
}

type memStore struct {
	mu   sync.Mutex
	snap state.Snapshot
}

func (s *memStore) Snapshot() state.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snap
}

func (s *memStore) SaveLocation(c geo.Coordinate, source string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap.LastLocation = &c
	s.snap.LocationSource = source
	return nil
}

func (s *memStore) SaveApplied(tod daytime.TimeOfDay) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap.LastApplied = &tod
	return nil
}

func (s *memStore) applied() (daytime.TimeOfDay, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.snap.LastApplied == nil {
		return 0, false
	}
	return *s.snap.LastApplied, true
}
