package metrics

import "errors"

// MultiSink fans records out to multiple sinks.
type MultiSink struct {
	Sinks []MetricsSink
}

// NewMultiSink creates a MultiSink with the provided sinks.
func NewMultiSink(sinks ...MetricsSink) *MultiSink {
	return &MultiSink{Sinks: sinks}
}

// RecordWindow forwards the record to all sinks, returning the first error encountered.
func (m *MultiSink) RecordWindow(w WindowMetric) error {
	for _, s := range m.Sinks {
		if err := s.RecordWindow(w); err != nil {
			return err
		}
	}
	return nil
}

// RecordRequirement forwards requirements to sinks that record them.
func (m *MultiSink) RecordRequirement(r RequirementMetric) error {
	for _, s := range m.Sinks {
		if rec, ok := s.(RequirementRecorder); ok {
			if err := rec.RecordRequirement(r); err != nil {
				return err
			}
		}
	}
	return nil
}

// RecordRun forwards run steps to sinks that record them.
func (m *MultiSink) RecordRun(r RunMetric) error {
	for _, s := range m.Sinks {
		if rec, ok := s.(RunRecorder); ok {
			if err := rec.RecordRun(r); err != nil {
				return err
			}
		}
	}
	return nil
}

// Flush flushes every sink and joins their errors.
func (m *MultiSink) Flush() error {
	var errs []error
	for _, s := range m.Sinks {
		if f, ok := s.(Flusher); ok {
			errs = append(errs, f.Flush())
		}
	}
	return errors.Join(errs...)
}
