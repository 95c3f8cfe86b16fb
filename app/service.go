package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/kilianp07/derval/app/plugins"
	"github.com/kilianp07/derval/config"
	coremetrics "github.com/kilianp07/derval/core/metrics"
	coremon "github.com/kilianp07/derval/core/monitoring"
	"github.com/kilianp07/derval/core/model"
	"github.com/kilianp07/derval/core/scenario"
	"github.com/kilianp07/derval/core/timeseries"
	"github.com/kilianp07/derval/core/valuestream"
	"github.com/kilianp07/derval/infra/dataset"
	"github.com/kilianp07/derval/infra/logger"
	"github.com/kilianp07/derval/infra/metrics"
	"github.com/kilianp07/derval/infra/monitoring"
	"github.com/kilianp07/derval/infra/mqtt"
	"github.com/kilianp07/derval/internal/eventbus"
	"github.com/kilianp07/derval/pkg/export"
)

// EventBuffer is the number of events the metrics collector can lag behind
// the scenario before events are dropped.
const EventBuffer = 4096

// Service wires the configured value streams, resources and sinks around one
// scenario.
type Service struct {
	cfg       *config.Config
	scenario  *scenario.Scenario
	streams   []valuestream.ValueStream
	bus       *eventbus.Bus
	sink      coremetrics.MetricsSink
	publisher *mqtt.RequirementPublisher
	log       logger.Logger

	closeOnce sync.Once
	flushOnce sync.Once
	flushErr  error
}

// Inputs loads the time-series and monthly tables named by the config.
func Inputs(cfg *config.Config) (valuestream.Inputs, error) {
	ts, err := dataset.LoadTimeSeries(cfg.Data.TimeSeries)
	if err != nil {
		return valuestream.Inputs{}, fmt.Errorf("time series: %w", err)
	}
	in := valuestream.Inputs{TimeSeries: ts, Log: logger.New("valuestream")}
	if cfg.Data.Monthly != "" {
		if in.Monthly, err = dataset.LoadMonthly(cfg.Data.Monthly); err != nil {
			return valuestream.Inputs{}, fmt.Errorf("monthly data: %w", err)
		}
	}
	return in, nil
}

// Resources builds the fleet from the inline resources and the optional fleet
// file, in that order.
func Resources(cfg *config.Config) ([]model.DER, error) {
	mods := append([]config.PluginConfig(nil), cfg.Fleet...)
	if cfg.Data.Fleet != "" {
		extra, err := dataset.LoadFleet(cfg.Data.Fleet)
		if err != nil {
			return nil, fmt.Errorf("fleet: %w", err)
		}
		mods = append(mods, extra...)
	}
	ders := make([]model.DER, 0, len(mods))
	for i, m := range mods {
		d, err := plugins.NewResource(m)
		if err != nil {
			return nil, fmt.Errorf("resource %d (%s): %w", i, m.Type, err)
		}
		ders = append(ders, d)
	}
	return ders, nil
}

// Streams builds the configured value streams. The scenario time step is
// passed to streams whose config has no dt.
func Streams(cfg *config.Config, in valuestream.Inputs) ([]valuestream.ValueStream, error) {
	out := make([]valuestream.ValueStream, 0, len(cfg.Services))
	for _, s := range cfg.Services {
		conf := make(map[string]any, len(s.Conf)+1)
		for k, v := range s.Conf {
			conf[k] = v
		}
		if _, ok := conf["dt"]; !ok {
			conf["dt"] = cfg.Scenario.DT
		}
		vs, err := plugins.NewStream(config.PluginConfig{Type: s.Type, Conf: conf}, in)
		if err != nil {
			return nil, fmt.Errorf("service %s: %w", s.Type, err)
		}
		out = append(out, vs)
	}
	return out, nil
}

// New creates a Service from the configuration.
func New(cfg *config.Config) (*Service, error) {
	_ = logger.SetLevel(cfg.Logging.Level)
	logg := logger.New("service")
	if cfg.Sentry.Enabled() {
		mon, err := monitoring.NewSentryMonitor(cfg.Sentry)
		if err != nil {
			return nil, fmt.Errorf("sentry: %w", err)
		}
		coremon.Init(mon)
	}

	in, err := Inputs(cfg)
	if err != nil {
		return nil, err
	}
	ders, err := Resources(cfg)
	if err != nil {
		return nil, err
	}
	streams, err := Streams(cfg, in)
	if err != nil {
		return nil, err
	}

	sink, err := coremetrics.NewMetricsSink(cfg.Metrics.Sinks)
	if err != nil {
		return nil, fmt.Errorf("metrics sink: %w", err)
	}
	bus := eventbus.NewBuffered(EventBuffer)
	opts := []scenario.Option{scenario.WithBus(bus), scenario.WithLogger(logger.New("scenario"))}
	if load, ok := in.TimeSeries.Series(scenario.SiteLoadColumn); ok {
		opts = append(opts, scenario.WithLoad(load))
	}
	sc, err := scenario.New(cfg.Scenario, streams, ders, opts...)
	if err != nil {
		return nil, errors.Join(fmt.Errorf("scenario: %w", err), closeSink(sink))
	}

	svc := &Service{cfg: cfg, scenario: sc, streams: streams, bus: bus, sink: sink, log: logg}
	if cfg.MQTT.Enabled() {
		if svc.publisher, err = mqtt.NewRequirementPublisher(cfg.MQTT); err != nil {
			return nil, errors.Join(fmt.Errorf("mqtt client: %w", err), closeSink(sink))
		}
	}
	logg.Infof("%d value streams, %d resources, %d years", len(streams), len(ders), len(cfg.Scenario.Years))
	return svc, nil
}

// closeSink releases a sink that never reached a Service.
func closeSink(sink coremetrics.MetricsSink) error {
	if f, ok := sink.(coremetrics.Flusher); ok {
		return f.Flush()
	}
	return nil
}

// Run executes the scenario, publishes its requirements and writes every
// report. It can be called once.
func (s *Service) Run(ctx context.Context) (*scenario.Result, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	if err := UpdatePrices(ctx, s.cfg.Prices, s.cfg.Scenario, s.streams); err != nil {
		coremon.CaptureException(err, map[string]string{"module": "prices"})
		return nil, err
	}
	done := metrics.StartEventCollector(ctx, s.bus, s.sink)
	s.startPromServers(ctx)

	res, runErr := s.scenario.Run(ctx)
	s.bus.Close()
	<-done
	flushErr := s.flush()
	if runErr != nil {
		coremon.CaptureException(runErr, coremon.Tags(runErr, ""))
		return nil, runErr
	}

	if err := s.publish(ctx, res.RunID, res.Requirements); err != nil {
		return res, err
	}
	if err := s.writeRun(res); err != nil {
		return res, err
	}
	s.log.Infof("run %s finished: %d windows, objective %v", res.RunID, res.Windows, res.Objective)
	return res, flushErr
}

// Requirements collects the requirements without optimizing, writes them and
// publishes them when a broker is configured.
func (s *Service) Requirements(ctx context.Context) ([]model.Requirement, error) {
	reqs, err := s.scenario.Requirements(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.publish(ctx, "", reqs); err != nil {
		return reqs, err
	}
	if err := s.writeFile("requirements", func(f *os.File) error {
		return export.WriteRequirements(f, s.cfg.Output.Format, reqs)
	}); err != nil {
		return reqs, err
	}
	return reqs, nil
}

// EventSummary describes the events scheduled by one resource adequacy stream.
type EventSummary struct {
	Stream             string      `json:"stream"`
	QualifyingCapacity float64     `json:"qualifying_capacity_kw"`
	Peaks              []time.Time `json:"peaks"`
	Starts             []time.Time `json:"starts"`
	Intervals          int         `json:"intervals"`
}

// Plan is the outcome of the requirement phase: what the streams ask of the
// fleet and when the resource adequacy events fall.
type Plan struct {
	Requirements []model.Requirement
	Events       []EventSummary
}

// Events computes the requirements and returns the event schedule of every
// resource adequacy stream.
func (s *Service) Events(ctx context.Context) ([]EventSummary, error) {
	p, err := s.Plan(ctx)
	if err != nil {
		return nil, err
	}
	return p.Events, nil
}

// Plan computes the requirements without optimizing or writing anything.
func (s *Service) Plan(ctx context.Context) (Plan, error) {
	reqs, err := s.scenario.Requirements(ctx)
	if err != nil {
		return Plan{}, err
	}
	p := Plan{Requirements: reqs}
	for _, vs := range s.streams {
		ra, ok := vs.(*valuestream.ResourceAdequacy)
		if !ok {
			continue
		}
		p.Events = append(p.Events, EventSummary{
			Stream:             ra.Name(),
			QualifyingCapacity: ra.QualifyingCapacity(),
			Peaks:              ra.PeakIntervals(),
			Starts:             ra.EventStartTimes(),
			Intervals:          len(ra.EventIntervals()),
		})
	}
	return p, nil
}

func (s *Service) startPromServers(ctx context.Context) {
	for _, sink := range sinks(s.sink) {
		ps, ok := sink.(*metrics.PromSink)
		if !ok || ps.Listen() == "" {
			continue
		}
		go func(addr string, ps *metrics.PromSink) {
			if err := metrics.StartPromServer(ctx, addr, ps.Gatherer()); err != nil {
				s.log.Errorf("prom server: %v", err)
			}
		}(ps.Listen(), ps)
	}
}

func sinks(s coremetrics.MetricsSink) []coremetrics.MetricsSink {
	if m, ok := s.(*coremetrics.MultiSink); ok {
		return m.Sinks
	}
	return []coremetrics.MetricsSink{s}
}

// flush flushes the metrics sinks once; sinks that buffer or hold a
// connection release it here.
func (s *Service) flush() error {
	s.flushOnce.Do(func() {
		f, ok := s.sink.(coremetrics.Flusher)
		if !ok {
			return
		}
		if err := f.Flush(); err != nil {
			s.log.Errorf("metrics flush: %v", err)
			s.flushErr = fmt.Errorf("metrics flush: %w", err)
		}
	})
	return s.flushErr
}

func (s *Service) publish(ctx context.Context, runID string, reqs []model.Requirement) error {
	if s.publisher == nil {
		return nil
	}
	if err := s.publisher.PublishAll(ctx, runID, reqs); err != nil {
		return fmt.Errorf("publish requirements: %w", err)
	}
	return nil
}

func (s *Service) writeRun(res *scenario.Result) error {
	reports := s.scenario.Reports(res)
	format := s.cfg.Output.Format
	if err := s.writeFile("requirements", func(f *os.File) error {
		return export.WriteRequirements(f, format, res.Requirements)
	}); err != nil {
		return err
	}
	frames := map[string]*timeseries.Frame{
		"timeseries_results": reports.Timeseries,
		"monthly_data":       reports.Monthly,
		"pro_forma":          reports.Proforma,
	}
	for name, f := range reports.DrillDown {
		frames[slug(name)] = f
	}
	for name, frame := range frames {
		if err := s.writeFile(name, func(f *os.File) error {
			return export.WriteFrame(f, format, frame)
		}); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) writeFile(name string, write func(*os.File) error) (err error) {
	dir := s.cfg.Output.Dir
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	path := filepath.Join(dir, name+"."+s.cfg.Output.Format)
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	if err := write(f); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	s.log.Debugf("wrote %s", path)
	return nil
}

func slug(name string) string {
	return strings.ToLower(strings.Join(strings.Fields(name), "_"))
}

// Close releases resources held by the service.
func (s *Service) Close() error {
	var err error
	s.closeOnce.Do(func() {
		s.bus.Close()
		err = s.flush()
		if s.publisher != nil {
			s.publisher.Disconnect()
		}
		coremon.Flush(2 * time.Second)
	})
	return err
}
