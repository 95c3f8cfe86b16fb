package metrics

import (
	"time"

	"github.com/kilianp07/derval/core/model"
)

// WindowMetric describes one optimization sub-window.
type WindowMetric struct {
	RunID     string
	Window    string
	Start     time.Time
	End       time.Time
	Size      int
	Objective float64
	Terms     map[string]float64
	Duration  time.Duration
	Error     string
}

// Failed reports whether the window could not be solved.
func (m WindowMetric) Failed() bool { return m.Error != "" }

// MetricsSink records solved windows for observability purposes.
type MetricsSink interface {
	RecordWindow(m WindowMetric) error
}

// RequirementMetric carries one emitted requirement.
type RequirementMetric struct {
	RunID       string
	Requirement model.Requirement
	Time        time.Time
}

// RequirementRecorder records emitted requirements.
type RequirementRecorder interface {
	RecordRequirement(m RequirementMetric) error
}

// RunMetric is a lifecycle step of a scenario run.
type RunMetric struct {
	RunID        string
	Phase        string
	Windows      int
	Requirements int
	Duration     time.Duration
	Error        string
	Time         time.Time
}

// RunRecorder records run lifecycle steps.
type RunRecorder interface {
	RecordRun(m RunMetric) error
}

// Flusher is implemented by sinks that buffer output until the run ends.
type Flusher interface {
	Flush() error
}

// NopSink implements every recorder with no-op methods.
type NopSink struct{}

func (NopSink) RecordWindow(WindowMetric) error           { return nil }
func (NopSink) RecordRequirement(RequirementMetric) error { return nil }
func (NopSink) RecordRun(RunMetric) error                 { return nil }
func (NopSink) Flush() error                              { return nil }
