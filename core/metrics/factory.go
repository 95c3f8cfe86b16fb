package metrics

import (
	"errors"
	"fmt"

	"github.com/kilianp07/derval/core/factory"
)

var sinkRegistry = factory.NewRegistry[MetricsSink]()

// RegisterMetricsSink adds a metrics sink factory identified by name.
func RegisterMetricsSink(name string, f factory.Factory[MetricsSink]) error {
	return sinkRegistry.Register(name, f)
}

// SinkTypes lists the registered sink types.
func SinkTypes() []string { return sinkRegistry.Types() }

// NewMetricsSink builds the configured sinks. No configuration yields a
// NopSink and several yield a MultiSink. When one sink fails to build, the
// sinks already opened are flushed so their files and connections are
// released.
func NewMetricsSink(cfgs []factory.ModuleConfig) (MetricsSink, error) {
	switch len(cfgs) {
	case 0:
		return NopSink{}, nil
	case 1:
		s, err := sinkRegistry.Create(cfgs[0])
		if err != nil {
			return nil, fmt.Errorf("metrics sink %q: %w", cfgs[0].Type, err)
		}
		return s, nil
	}
	sinks := make([]MetricsSink, 0, len(cfgs))
	for i, c := range cfgs {
		s, err := sinkRegistry.Create(c)
		if err != nil {
			return nil, errors.Join(
				fmt.Errorf("metrics sink %d (%q): %w", i, c.Type, err),
				NewMultiSink(sinks...).Flush(),
			)
		}
		sinks = append(sinks, s)
	}
	return NewMultiSink(sinks...), nil
}
