// Package metrics defines the sinks that observe scenario runs. Every sink
// records solved windows; sinks may also implement RequirementRecorder,
// RunRecorder or Flusher. NewMetricsSink returns a MultiSink automatically
// when multiple sinks are configured, and StartEventCollector in infra/metrics
// feeds sinks from the event bus.
package metrics
