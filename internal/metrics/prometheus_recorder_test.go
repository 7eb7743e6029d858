package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrometheusRecorder(t *testing.T) {
	reg := prom.NewRegistry()
	pr := NewPrometheusRecorder(reg)

	pr.IncTimerArmed("morning")
	pr.IncTimerArmed("morning")
	pr.IncTimerFired("morning")
	pr.SetNextTransition("evening", time.Unix(1718999220, 0))
	pr.IncApply("morning", ResultSuccess)
	pr.IncApply("evening", Result(false))
	pr.ObserveApplyDuration("morning", 150*time.Millisecond)
	pr.IncReconcile("none")
	pr.IncLocation("mqtt", true)
	pr.IncLocation("mqtt", false)
	pr.IncUnavailable()

	assert.InDelta(t, 2, testutil.ToFloat64(pr.timersArmed.WithLabelValues("morning")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(pr.timersFired.WithLabelValues("morning")), 0)
	assert.InDelta(t, 1718999220, testutil.ToFloat64(pr.nextTransition.WithLabelValues("evening")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(pr.applies.WithLabelValues("evening", "failed")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(pr.locations.WithLabelValues("mqtt", "rejected")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(pr.unavailable), 0)

	mfs, err := reg.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, mfs)
}

func TestNilPrometheusRecorderIsSafe(t *testing.T) {
	var pr *PrometheusRecorder
	assert.NotPanics(t, func() {
		pr.IncTimerArmed("midnight")
		pr.IncApply("day", ResultSuccess)
		pr.IncUnavailable()
	})
}

func TestNoopRecorderSatisfiesRecorder(t *testing.T) {
	var r Recorder = NoopRecorder{}
	r.IncReconcile("morning")
	var _ Recorder = (*PrometheusRecorder)(nil)
}

func TestHTTPHandler(t *testing.T) {
	reg := NewRegistry()
	NewPrometheusRecorder(reg).IncReconcile("evening")

	srv := httptest.NewServer(HTTPHandler(reg))
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, strings.Contains(string(body), `goldenhour_reconciles_total{outcome="evening"} 1`))
}
