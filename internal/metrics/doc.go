// Package metrics defines the Recorder used by the documentation builder and
// the queue worker, with a no-op default and a Prometheus implementation.
//
// Components receive a Recorder through their constructor options and fall
// back to NoopRecorder, so call sites never check for nil:
//
//	w := queuebuilder.NewWorker(q, b, queuebuilder.Options{}) // uses metrics.NoopRecorder{}
//	w := queuebuilder.NewWorker(q, b, queuebuilder.Options{Recorder: metrics.NewPrometheusRecorder(reg)})
//
// The daemon serves the registry through HTTPHandler.
package metrics
