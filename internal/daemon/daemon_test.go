package daemon

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/goldenhour/internal/config"
	"git.home.luguber.info/inful/goldenhour/internal/controller"
	"git.home.luguber.info/inful/goldenhour/internal/daytime"
	"git.home.luguber.info/inful/goldenhour/internal/location"
	"git.home.luguber.info/inful/goldenhour/internal/notify"
	"git.home.luguber.info/inful/goldenhour/internal/transition"
)

const (
	waitFor = 2 * time.Second
	tick    = 5 * time.Millisecond
)

var noon = time.Date(2024, 6, 21, 12, 0, 0, 0, time.UTC)

const baseConfig = `
location:
  latitude: 51.5
  longitude: -0.12
astronomy:
  timezone: UTC
applier:
  index_path: /data/index.json
state:
  dir: /state
wake:
  logind: false
metrics:
  listen: 127.0.0.1:0
`

type recordingNotifier struct {
	mu   sync.Mutex
	sent []notify.Transition
}

func (n *recordingNotifier) Notify(_ context.Context, t notify.Transition) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, t)
	return nil
}

func (n *recordingNotifier) Close() error { return nil }

func (n *recordingNotifier) kinds() []daytime.TimeOfDay {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]daytime.TimeOfDay, 0, len(n.sent))
	for _, t := range n.sent {
		out = append(out, t.TimeOfDay)
	}
	return out
}

// countingSource delegates to a static source bound after the daemon built
// its bus.
type countingSource struct {
	inner    *location.StaticSource
	requests atomic.Int32
}

func (s *countingSource) Name() string                    { return s.inner.Name() }
func (s *countingSource) Authorized() bool                { return s.inner.Authorized() }
func (s *countingSource) Start(ctx context.Context) error { return s.inner.Start(ctx) }
func (s *countingSource) Close() error                    { return s.inner.Close() }

func (s *countingSource) Request(ctx context.Context) error {
	s.requests.Add(1)
	return s.inner.Request(ctx)
}

type fixture struct {
	d        *Daemon
	fs       afero.Fs
	clock    *clockwork.FakeClock
	notifier *recordingNotifier
}

func newFixture(t *testing.T, doc string, opts ...Option) *fixture {
	t.Helper()
	cfg, err := config.Parse([]byte(doc))
	require.NoError(t, err)

	f := &fixture{
		fs:       afero.NewMemMapFs(),
		clock:    clockwork.NewFakeClockAt(noon),
		notifier: &recordingNotifier{},
	}
	opts = append([]Option{WithClock(f.clock), WithFs(f.fs), WithNotifier(f.notifier)}, opts...)
	f.d, err = New(cfg, opts...)
	require.NoError(t, err)
	return f
}

func (f *fixture) start(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- f.d.Start(ctx) }()

	t.Cleanup(func() {
		stopCtx, stopCancel := context.WithTimeout(context.Background(), waitFor)
		defer stopCancel()
		assert.NoError(t, f.d.Stop(stopCtx))
		cancel()
		select {
		case err := <-errCh:
			assert.NoError(t, err)
		case <-time.After(waitFor):
			t.Error("Start did not return")
		}
	})

	require.Eventually(t, func() bool { return f.d.GetStatus() == StatusRunning }, waitFor, tick)
}

func (f *fixture) asset() string {
	data, err := afero.ReadFile(f.fs, "/data/index.json")
	if err != nil {
		return ""
	}
	var index map[string]string
	if err := json.Unmarshal(data, &index); err != nil {
		return ""
	}
	return index["asset"]
}

func TestDaemon_LaunchAppliesMissedMorning(t *testing.T) {
	f := newFixture(t, baseConfig)
	f.start(t)

	require.Eventually(t, func() bool { return f.asset() == "goldenhour.morning" }, waitFor, tick)
	require.Eventually(t, func() bool { return f.d.Controller().Phase() == controller.Scheduled }, waitFor, tick)
	require.Eventually(t, func() bool {
		return assert.ObjectsAreEqual([]daytime.TimeOfDay{daytime.Morning}, f.notifier.kinds())
	}, waitFor, tick)

	snap := f.d.store.Snapshot()
	require.NotNil(t, snap.LastLocation)
	assert.InDelta(t, 51.5, snap.LastLocation.Latitude, 1e-9)
	require.Eventually(t, func() bool {
		s := f.d.store.Snapshot()
		return s.LastApplied != nil && *s.LastApplied == daytime.Morning
	}, waitFor, tick)
}

func TestDaemon_EveningTimerApplies(t *testing.T) {
	f := newFixture(t, baseConfig)
	f.start(t)

	var evening time.Time
	require.Eventually(t, func() bool {
		at, ok := f.d.Controller().Pending(transition.EveningTransition)
		evening = at
		return ok
	}, waitFor, tick)
	require.Eventually(t, func() bool { return f.asset() == "goldenhour.morning" }, waitFor, tick)

	f.clock.Advance(evening.Sub(f.clock.Now()))
	require.Eventually(t, func() bool { return f.asset() == "goldenhour.evening" }, waitFor, tick)
	assert.Contains(t, f.notifier.kinds(), daytime.Evening)
}

func TestDaemon_RefreshJobRequestsLocation(t *testing.T) {
	doc := strings.Replace(baseConfig, "location:\n", "location:\n  refresh_interval: 1m\n", 1)
	src := &countingSource{}
	f := newFixture(t, doc, WithSource(src))
	src.inner = location.NewStaticSource(f.d.cfg.Location.Coordinate(), f.d.bus, f.clock)
	f.start(t)

	require.Eventually(t, func() bool { return src.requests.Load() >= 1 }, waitFor, tick)
	require.Eventually(t, func() bool {
		f.clock.Advance(time.Minute)
		return src.requests.Load() >= 2
	}, waitFor, tick)
}

func TestDaemon_HTTPEndpoints(t *testing.T) {
	f := newFixture(t, baseConfig)
	f.start(t)
	require.Eventually(t, func() bool { return f.asset() == "goldenhour.morning" }, waitFor, tick)
	assert.NotEmpty(t, f.d.Addr())

	mux := f.d.routes()
	serve := func(method, path string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(method, path, nil))
		return rec
	}

	t.Run("healthz", func(t *testing.T) {
		rec := serve(http.MethodGet, "/healthz")
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"healthy"`)
	})

	t.Run("status", func(t *testing.T) {
		rec := serve(http.MethodGet, "/status")
		require.Equal(t, http.StatusOK, rec.Code)

		var report StatusReport
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
		assert.Equal(t, StatusRunning, report.Status)
		assert.Equal(t, "scheduled", report.Phase)
		assert.Equal(t, location.StaticName, report.LocationSource)
		assert.True(t, report.LocationAuthorized)
		assert.Contains(t, report.Next, "evening")
		assert.Contains(t, report.Next, "midnight")
		require.NotNil(t, report.Location)
	})

	t.Run("metrics", func(t *testing.T) {
		rec := serve(http.MethodGet, "/metrics")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.True(t, strings.Contains(rec.Body.String(), "goldenhour_applies_total"))
	})

	t.Run("switch", func(t *testing.T) {
		rec := serve(http.MethodPost, "/switch/night")
		assert.Equal(t, http.StatusAccepted, rec.Code)
		require.Eventually(t, func() bool { return f.asset() == "goldenhour.night" }, waitFor, tick)

		rec = serve(http.MethodPost, "/switch/teatime")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestDaemon_Lifecycle(t *testing.T) {
	f := newFixture(t, baseConfig)
	assert.Equal(t, StatusStopped, f.d.GetStatus())
	assert.Equal(t, HealthStatusUnhealthy, f.d.Health())
	require.NoError(t, f.d.Stop(context.Background()))

	f.start(t)
	require.Error(t, f.d.Start(context.Background()))
}

func TestNew_RequiresConfig(t *testing.T) {
	_, err := New(nil)
	require.Error(t, err)
}
