// Package metrics provides the scheduler's observability hooks.
//
// Components receive a Recorder through dependency injection and default to
// NoopRecorder, so no call site needs a nil check:
//
//	ctrl, err := controller.New(deps) // Recorder defaults to metrics.NoopRecorder{}
//
// When a metrics listener is configured the daemon swaps in a
// PrometheusRecorder registered on its own registry and serves it with
// HTTPHandler.
package metrics
