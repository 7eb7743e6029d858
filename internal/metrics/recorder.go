package metrics

import "time"

// ResultLabel is the result label value for counters.
type ResultLabel string

const (
	ResultSuccess ResultLabel = "success"
	ResultFailed  ResultLabel = "failed"
)

// Result maps a boolean outcome to a label.
func Result(success bool) ResultLabel {
	if success {
		return ResultSuccess
	}
	return ResultFailed
}

// Recorder defines the scheduler's observability hooks. NoopRecorder is the
// default; PrometheusRecorder is used when a metrics listener is configured.
type Recorder interface {
	IncTimerArmed(kind string)
	IncTimerFired(kind string)
	SetNextTransition(kind string, at time.Time)
	IncApply(timeOfDay string, result ResultLabel)
	ObserveApplyDuration(timeOfDay string, d time.Duration)
	IncReconcile(outcome string)
	IncLocation(source string, accepted bool)
	IncUnavailable()
}

// NoopRecorder is a Recorder that does nothing.
type NoopRecorder struct{}

func (NoopRecorder) IncTimerArmed(string)                       {}
func (NoopRecorder) IncTimerFired(string)                       {}
func (NoopRecorder) SetNextTransition(string, time.Time)        {}
func (NoopRecorder) IncApply(string, ResultLabel)               {}
func (NoopRecorder) ObserveApplyDuration(string, time.Duration) {}
func (NoopRecorder) IncReconcile(string)                        {}
func (NoopRecorder) IncLocation(string, bool)                   {}
func (NoopRecorder) IncUnavailable()                            {}
