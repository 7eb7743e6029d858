package metrics

import (
	"sync"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

// Namespace prefixes every metric name.
const Namespace = "goldenhour"

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	once           sync.Once
	timersArmed    *prom.CounterVec
	timersFired    *prom.CounterVec
	nextTransition *prom.GaugeVec
	applies        *prom.CounterVec
	applyDuration  *prom.HistogramVec
	reconciles     *prom.CounterVec
	locations      *prom.CounterVec
	unavailable    prom.Counter
}

// NewPrometheusRecorder constructs and registers the metrics on reg.
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{}
	pr.once.Do(func() {
		pr.timersArmed = prom.NewCounterVec(prom.CounterOpts{
			Namespace: Namespace,
			Name:      "timers_armed_total",
			Help:      "Timers armed by kind",
		}, []string{"kind"})
		pr.timersFired = prom.NewCounterVec(prom.CounterOpts{
			Namespace: Namespace,
			Name:      "timers_fired_total",
			Help:      "Timers fired by kind",
		}, []string{"kind"})
		pr.nextTransition = prom.NewGaugeVec(prom.GaugeOpts{
			Namespace: Namespace,
			Name:      "next_transition_timestamp_seconds",
			Help:      "Unix time of the armed timer by kind",
		}, []string{"kind"})
		pr.applies = prom.NewCounterVec(prom.CounterOpts{
			Namespace: Namespace,
			Name:      "applies_total",
			Help:      "State applies by time of day and result",
		}, []string{"time_of_day", "result"})
		pr.applyDuration = prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: Namespace,
			Name:      "apply_duration_seconds",
			Help:      "Duration of state applies",
			Buckets:   prom.DefBuckets,
		}, []string{"time_of_day"})
		pr.reconciles = prom.NewCounterVec(prom.CounterOpts{
			Namespace: Namespace,
			Name:      "reconciles_total",
			Help:      "Reconciliations by outcome",
		}, []string{"outcome"})
		pr.locations = prom.NewCounterVec(prom.CounterOpts{
			Namespace: Namespace,
			Name:      "location_updates_total",
			Help:      "Location updates by source and debounce result",
		}, []string{"source", "result"})
		pr.unavailable = prom.NewCounter(prom.CounterOpts{
			Namespace: Namespace,
			Name:      "golden_hours_unavailable_total",
			Help:      "Days skipped because golden hours could not be computed",
		})
		reg.MustRegister(pr.timersArmed, pr.timersFired, pr.nextTransition, pr.applies,
			pr.applyDuration, pr.reconciles, pr.locations, pr.unavailable)
	})
	return pr
}

func (p *PrometheusRecorder) IncTimerArmed(kind string) {
	if p == nil || p.timersArmed == nil {
		return
	}
	p.timersArmed.WithLabelValues(kind).Inc()
}

func (p *PrometheusRecorder) IncTimerFired(kind string) {
	if p == nil || p.timersFired == nil {
		return
	}
	p.timersFired.WithLabelValues(kind).Inc()
}

func (p *PrometheusRecorder) SetNextTransition(kind string, at time.Time) {
	if p == nil || p.nextTransition == nil {
		return
	}
	p.nextTransition.WithLabelValues(kind).Set(float64(at.Unix()))
}

func (p *PrometheusRecorder) IncApply(timeOfDay string, result ResultLabel) {
	if p == nil || p.applies == nil {
		return
	}
	p.applies.WithLabelValues(timeOfDay, string(result)).Inc()
}

func (p *PrometheusRecorder) ObserveApplyDuration(timeOfDay string, d time.Duration) {
	if p == nil || p.applyDuration == nil {
		return
	}
	p.applyDuration.WithLabelValues(timeOfDay).Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncReconcile(outcome string) {
	if p == nil || p.reconciles == nil {
		return
	}
	p.reconciles.WithLabelValues(outcome).Inc()
}

func (p *PrometheusRecorder) IncLocation(source string, accepted bool) {
	if p == nil || p.locations == nil {
		return
	}
	res := "rejected"
	if accepted {
		res = "accepted"
	}
	p.locations.WithLabelValues(source, res).Inc()
}

func (p *PrometheusRecorder) IncUnavailable() {
	if p == nil || p.unavailable == nil {
		return
	}
	p.unavailable.Inc()
}
