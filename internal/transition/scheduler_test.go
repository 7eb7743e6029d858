package transition

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	waitFor = time.Second
	tick    = 5 * time.Millisecond
	quiet   = 100 * time.Millisecond
)

var start = time.Date(2024, 6, 21, 4, 0, 0, 0, time.UTC)

func TestScheduler_ArmFiresOnce(t *testing.T) {
	clock := clockwork.NewFakeClockAt(start)
	s := NewScheduler(clock, nil)

	var fired atomic.Int32
	require.True(t, s.Arm(MorningTransition, start.Add(72*time.Minute), func() { fired.Add(1) }))
	require.Equal(t, 1, s.Len())

	clock.Advance(72 * time.Minute)
	require.Eventually(t, func() bool { return fired.Load() == 1 }, waitFor, tick)

	clock.Advance(time.Minute)
	assert.Never(t, func() bool { return fired.Load() > 1 }, quiet, tick)
	assert.Equal(t, 0, s.Len())
}

func TestScheduler_RearmKeepsOneTimerPerKind(t *testing.T) {
	clock := clockwork.NewFakeClockAt(start)
	s := NewScheduler(clock, nil)

	var first, second atomic.Int32
	require.True(t, s.Arm(EveningTransition, start.Add(time.Hour), func() { first.Add(1) }))
	require.True(t, s.Arm(EveningTransition, start.Add(2*time.Hour), func() { second.Add(1) }))

	require.Equal(t, 1, s.Len())
	at, ok := s.Pending(EveningTransition)
	require.True(t, ok)
	assert.Equal(t, start.Add(2*time.Hour), at)

	clock.Advance(time.Hour)
	assert.Never(t, func() bool { return first.Load() > 0 || second.Load() > 0 }, quiet, tick)

	clock.Advance(time.Hour)
	require.Eventually(t, func() bool { return second.Load() == 1 }, waitFor, tick)
	assert.Equal(t, int32(0), first.Load())
}

func TestScheduler_PastInstantIsNoOp(t *testing.T) {
	clock := clockwork.NewFakeClockAt(start)
	s := NewScheduler(clock, nil)

	var fired atomic.Int32
	assert.False(t, s.Arm(MorningTransition, start, func() { fired.Add(1) }))
	assert.False(t, s.Arm(MorningTransition, start.Add(-time.Minute), func() { fired.Add(1) }))
	assert.Equal(t, 0, s.Len())

	clock.Advance(time.Hour)
	assert.Never(t, func() bool { return fired.Load() > 0 }, quiet, tick)
}

func TestScheduler_PastInstantKeepsPreviousTimer(t *testing.T) {
	clock := clockwork.NewFakeClockAt(start)
	s := NewScheduler(clock, nil)

	var fired atomic.Int32
	require.True(t, s.Arm(MorningTransition, start.Add(time.Hour), func() { fired.Add(1) }))
	assert.False(t, s.Arm(MorningTransition, start.Add(-time.Hour), func() { fired.Add(100) }))

	at, ok := s.Pending(MorningTransition)
	require.True(t, ok)
	assert.Equal(t, start.Add(time.Hour), at)

	clock.Advance(2 * time.Hour)
	require.Eventually(t, func() bool { return fired.Load() == 1 }, quiet, tick)
}

func TestScheduler_CancelAll(t *testing.T) {
	clock := clockwork.NewFakeClockAt(start)
	s := NewScheduler(clock, nil)

	var fired atomic.Int32
	for _, k := range Kinds() {
		require.True(t, s.Arm(k, start.Add(time.Hour), func() { fired.Add(1) }))
	}
	require.Equal(t, 3, s.Len())

	s.CancelAll()
	assert.Equal(t, 0, s.Len())
	assert.False(t, s.Arm(MorningTransition, start.Add(2*time.Hour), func() { fired.Add(1) }))

	clock.Advance(3 * time.Hour)
	assert.Never(t, func() bool { return fired.Load() > 0 }, quiet, tick)
}

func TestScheduler_DispatcherDropsSupersededTimer(t *testing.T) {
	clock := clockwork.NewFakeClockAt(start)

	// Queue fired work instead of running it, to re-arm between expiry and dispatch.
	queued := make(chan func(), 4)
	s := NewScheduler(clock, func(fn func()) { queued <- fn })

	var stale, fresh atomic.Int32
	require.True(t, s.Arm(MorningTransition, start.Add(time.Minute), func() { stale.Add(1) }))
	clock.Advance(time.Minute)

	var fn func()
	select {
	case fn = <-queued:
	case <-time.After(waitFor):
		t.Fatal("timed out waiting for dispatch")
	}

	require.True(t, s.Arm(MorningTransition, start.Add(time.Hour), func() { fresh.Add(1) }))
	fn()
	assert.Equal(t, int32(0), stale.Load())

	_, ok := s.Pending(MorningTransition)
	assert.True(t, ok)
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "morning", MorningTransition.String())
	assert.Equal(t, "evening", EveningTransition.String())
	assert.Equal(t, "midnight", MidnightRollover.String())
	assert.Equal(t, "unknown", Kind(9).String())
}
