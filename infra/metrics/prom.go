package metrics

import (
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/kilianp07/derval/core/events"
	coremetrics "github.com/kilianp07/derval/core/metrics"
)

// PromConfig configures a PromSink.
type PromConfig struct {
	Namespace string `json:"namespace"`
	// Textfile, when set, receives the metrics in text exposition format on
	// Flush, for the node exporter textfile collector.
	Textfile string `json:"textfile"`
	// Listen, when set, is the address the application serves /metrics on
	// while it runs.
	Listen string `json:"listen"`
}

// PromSink records scenario runs in Prometheus metrics.
type PromSink struct {
	cfg      PromConfig
	gatherer prometheus.Gatherer

	windows      *prometheus.CounterVec
	solveSeconds prometheus.Histogram
	objective    *prometheus.GaugeVec
	requirements *prometheus.GaugeVec
	runs         *prometheus.CounterVec
	runSeconds   prometheus.Gauge
}

// NewPromSink registers the metrics on a dedicated registry.
func NewPromSink(cfg PromConfig) (*PromSink, error) {
	reg := prometheus.NewRegistry()
	return NewPromSinkWithRegistry(cfg, reg, reg)
}

// NewPromSinkWithRegistry registers metrics on reg. gatherer is used by Flush
// and by the metrics server; nil defaults to the global Prometheus gatherer.
func NewPromSinkWithRegistry(cfg PromConfig, reg prometheus.Registerer, gatherer prometheus.Gatherer) (*PromSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	ns := cfg.Namespace
	if ns == "" {
		ns = "derval"
	}
	s := &PromSink{
		cfg:      cfg,
		gatherer: gatherer,
		windows: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "windows_total",
			Help:      "Optimization windows processed",
		}, []string{"status"}),
		solveSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: ns,
			Name:      "window_solve_seconds",
			Help:      "Time spent building and solving one window",
			Buckets:   prometheus.DefBuckets,
		}),
		objective: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: ns,
			Name:      "objective_total",
			Help:      "Objective value accumulated per term over the last run",
		}, []string{"term"}),
		requirements: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: ns,
			Name:      "requirement_points",
			Help:      "Timestamps bounded by each emitted requirement",
		}, []string{"source", "kind", "direction"}),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "runs_total",
			Help:      "Scenario run lifecycle steps",
		}, []string{"phase"}),
		runSeconds: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: ns,
			Name:      "run_duration_seconds",
			Help:      "Duration of the last finished or failed run",
		}),
	}
	if err := register(reg, &s.windows); err != nil {
		return nil, err
	}
	if err := register(reg, &s.solveSeconds); err != nil {
		return nil, err
	}
	if err := register(reg, &s.objective); err != nil {
		return nil, err
	}
	if err := register(reg, &s.requirements); err != nil {
		return nil, err
	}
	if err := register(reg, &s.runs); err != nil {
		return nil, err
	}
	if err := register(reg, &s.runSeconds); err != nil {
		return nil, err
	}
	return s, nil
}

// register adds *c to reg, reusing the collector already registered under the
// same descriptor.
func register[C prometheus.Collector](reg prometheus.Registerer, c *C) error {
	err := reg.Register(*c)
	if err == nil {
		return nil
	}
	var are prometheus.AlreadyRegisteredError
	if !errors.As(err, &are) {
		return err
	}
	existing, ok := are.ExistingCollector.(C)
	if !ok {
		return fmt.Errorf("collector registered with another type: %T", are.ExistingCollector)
	}
	*c = existing
	return nil
}

// Gatherer returns the gatherer the sink exposes.
func (s *PromSink) Gatherer() prometheus.Gatherer { return s.gatherer }

// Listen returns the configured listen address.
func (s *PromSink) Listen() string { return s.cfg.Listen }

// RecordWindow counts the window and accumulates its objective terms.
func (s *PromSink) RecordWindow(m coremetrics.WindowMetric) error {
	status := "solved"
	if m.Failed() {
		status = "failed"
	}
	s.windows.WithLabelValues(status).Inc()
	s.solveSeconds.Observe(m.Duration.Seconds())
	for term, v := range m.Terms {
		s.objective.WithLabelValues(term).Add(v)
	}
	return nil
}

// RecordRequirement sets the point count of the requirement.
func (s *PromSink) RecordRequirement(m coremetrics.RequirementMetric) error {
	r := m.Requirement
	s.requirements.WithLabelValues(r.Source(), string(r.Kind()), string(r.Direction())).Set(float64(r.Len()))
	return nil
}

// RecordRun counts lifecycle steps. A new run resets the objective gauges.
func (s *PromSink) RecordRun(m coremetrics.RunMetric) error {
	s.runs.WithLabelValues(m.Phase).Inc()
	switch m.Phase {
	case events.PhaseStarted:
		s.objective.Reset()
		s.requirements.Reset()
	case events.PhaseFinished, events.PhaseFailed:
		s.runSeconds.Set(m.Duration.Seconds())
	}
	return nil
}

// Flush writes the textfile when one is configured.
func (s *PromSink) Flush() error {
	if s.cfg.Textfile == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(s.cfg.Textfile, s.gatherer); err != nil {
		return fmt.Errorf("prometheus textfile: %w", err)
	}
	return nil
}
