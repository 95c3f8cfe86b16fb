// Package scenario drives value streams through their lifecycle over a
// multi-year horizon: data growth, requirement collection, then one linear
// optimization per sub-window.
package scenario

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/kilianp07/derval/core/events"
	"github.com/kilianp07/derval/core/logger"
	"github.com/kilianp07/derval/core/model"
	"github.com/kilianp07/derval/core/opt"
	"github.com/kilianp07/derval/core/timeseries"
	"github.com/kilianp07/derval/core/valuestream"
	"github.com/kilianp07/derval/internal/eventbus"
)

// Result holds everything a run produced.
type Result struct {
	RunID        string
	Years        []int
	Index        []time.Time
	Requirements []model.Requirement
	// Streams maps each stream name to its solved variables.
	Streams map[string]*valuestream.Results
	// Fleet holds the aggregate charge and discharge power.
	Fleet *valuestream.Results
	// Objective sums each objective term over all windows.
	Objective map[string]float64
	Windows   int
}

// Scenario runs a set of value streams against a fleet of resources.
type Scenario struct {
	cfg     Config
	streams []valuestream.ValueStream
	ders    []model.DER
	load    timeseries.Series

	solver opt.Solver
	bus    eventbus.EventBus
	log    logger.Logger
}

// Option customises a Scenario.
type Option func(*Scenario)

// WithSolver replaces the default simplex solver.
func WithSolver(s opt.Solver) Option { return func(sc *Scenario) { sc.solver = s } }

// WithBus publishes run, requirement and window events on bus.
func WithBus(bus eventbus.EventBus) Option { return func(sc *Scenario) { sc.bus = bus } }

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option { return func(sc *Scenario) { sc.log = l } }

// SiteLoadColumn is the on-site load behind the point of interconnection.
// It differs from the system load used to find capacity events.
const SiteLoadColumn = "Site Load (kW)"

// WithLoad sets the site load in kW. It is grown with Config.LoadGrowth and
// enters POI requirements.
func WithLoad(load timeseries.Series) Option { return func(sc *Scenario) { sc.load = load } }

// New validates cfg and returns a Scenario. Stream names must be unique.
func New(cfg Config, streams []valuestream.ValueStream, ders []model.DER, opts ...Option) (*Scenario, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	names := make(map[string]struct{}, len(streams))
	for _, s := range streams {
		if _, ok := names[s.Name()]; ok {
			return nil, fmt.Errorf("value stream %s configured twice", s.Name())
		}
		names[s.Name()] = struct{}{}
	}
	sc := &Scenario{cfg: cfg, streams: streams, ders: ders, solver: opt.SimplexSolver{}}
	for _, o := range opts {
		o(sc)
	}
	sc.log = logger.OrNop(sc.log)
	return sc, nil
}

// Config returns the effective configuration.
func (s *Scenario) Config() Config { return s.cfg }

// Streams returns the configured value streams.
func (s *Scenario) Streams() []valuestream.ValueStream { return s.streams }

func (s *Scenario) streamNames() []string {
	out := make([]string, len(s.streams))
	for i, vs := range s.streams {
		out[i] = vs.Name()
	}
	return out
}

func (s *Scenario) publish(ev eventbus.Event) {
	if s.bus != nil {
		s.bus.Publish(ev)
	}
}

// Requirements grows every stream's data to the horizon and collects the
// requirements they emit, in stream order.
func (s *Scenario) Requirements(ctx context.Context) ([]model.Requirement, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	step := timeseries.Duration(s.cfg.DT)
	for _, vs := range s.streams {
		if err := vs.GrowDropData(s.cfg.Years, step, s.cfg.LoadGrowth); err != nil {
			return nil, &StreamError{Stream: vs.Name(), Step: "grow data", Err: err}
		}
	}
	set := valuestream.NewRequirementSet()
	for _, vs := range s.streams {
		if err := vs.CalculateSystemRequirements(s.ders, set); err != nil {
			return nil, &StreamError{Stream: vs.Name(), Step: "system requirements", Err: err}
		}
		s.log.Debugf("%s: %d requirements collected so far", vs.Name(), set.Len())
	}
	return set.Finish(), nil
}

// Run executes the full lifecycle and returns the solved results. A failed
// window aborts the run with a *WindowError.
func (s *Scenario) Run(ctx context.Context) (*Result, error) {
	began := time.Now()
	res := &Result{
		RunID:     uuid.NewString(),
		Years:     append([]int(nil), s.cfg.Years...),
		Streams:   make(map[string]*valuestream.Results, len(s.streams)),
		Fleet:     valuestream.NewResults(),
		Objective: make(map[string]float64),
	}
	names := s.streamNames()
	s.publish(events.RunEvent{RunID: res.RunID, Phase: events.PhaseStarted, Streams: names, Time: began})

	fail := func(err error) (*Result, error) {
		s.publish(events.RunEvent{RunID: res.RunID, Phase: events.PhaseFailed, Streams: names,
			Windows: res.Windows, Requirements: len(res.Requirements), Err: err,
			Duration: time.Since(began), Time: time.Now()})
		return nil, err
	}

	step := timeseries.Duration(s.cfg.DT)
	res.Index = timeseries.HorizonIndex(s.cfg.Years, step)
	load := make([]float64, len(res.Index))
	if !s.load.Empty() {
		grown, err := timeseries.GrowDrop(s.load, s.cfg.Years, step, s.cfg.LoadGrowth)
		if err != nil {
			return fail(fmt.Errorf("site load: %w", err))
		}
		copy(load, grown.Values)
	}

	reqs, err := s.Requirements(ctx)
	if err != nil {
		return fail(err)
	}
	res.Requirements = reqs
	now := time.Now()
	for _, r := range reqs {
		s.publish(events.RequirementEvent{RunID: res.RunID, Requirement: r, Time: now})
	}
	s.publish(events.RunEvent{RunID: res.RunID, Phase: events.PhaseRequirements, Streams: names,
		Requirements: len(reqs), Time: now})

	windows, err := Windows(res.Index, s.cfg.Window)
	if err != nil {
		return fail(err)
	}
	for _, vs := range s.streams {
		res.Streams[vs.Name()] = valuestream.NewResults()
	}
	fl := newFleet(s.ders)
	s.log.Infof("run %s: %d streams, %d requirements, %d windows", res.RunID, len(s.streams), len(reqs), len(windows))

	for i, w := range windows {
		if err := ctx.Err(); err != nil {
			return fail(err)
		}
		if err := s.solveWindow(ctx, res, i, w, load, fl); err != nil {
			return fail(err)
		}
		res.Windows++
	}

	s.publish(events.RunEvent{RunID: res.RunID, Phase: events.PhaseFinished, Streams: names,
		Windows: res.Windows, Requirements: len(reqs), Duration: time.Since(began), Time: time.Now()})
	return res, nil
}

func (s *Scenario) solveWindow(ctx context.Context, res *Result, i int, w Window, load []float64, fl *fleet) error {
	began := time.Now()
	n := len(w.Index)
	windowLoad := timeseries.Series{Index: res.Index, Values: load}.Select(w.Mask).Values

	fl.declare(n)
	in := valuestream.WindowInputs{
		LoadSum:         windowLoad,
		VariableGen:     opt.Zeros(n),
		GeneratorOut:    opt.Zeros(n),
		NetStoragePower: fl.netPower(),
	}

	for _, vs := range s.streams {
		vs.InitializeVariables(n)
	}
	terms := make(map[string]opt.Linear)
	var cons []opt.Constraint
	for _, vs := range s.streams {
		for name, l := range vs.ObjectiveFunction(w.Mask, in, s.cfg.Annuity) {
			if prev, ok := terms[name]; ok {
				l = prev.Add(l)
			}
			terms[name] = l
		}
		cons = append(cons, vs.Constraints(w.Mask, in, fl.dischargeMax)...)
	}
	cons = append(cons, fl.constraints(n, w.Mask, s.streams)...)
	cons = append(cons, requirementConstraints(res.Requirements, w.Index, windowLoad, fl)...)

	termNames := make([]string, 0, len(terms))
	for name := range terms {
		termNames = append(termNames, name)
	}
	sort.Strings(termNames)
	var objective opt.Linear
	for _, name := range termNames {
		objective = objective.Add(terms[name])
	}

	ev := events.WindowEvent{RunID: res.RunID, Window: i, Label: w.Label, Start: w.Start(), End: w.End(), Size: n}
	sol, err := s.solver.Solve(ctx, opt.Problem{Objective: objective, Constraints: cons})
	ev.Duration = time.Since(began)
	if err != nil {
		werr := &WindowError{Window: w.Label, Start: w.Start(), End: w.End(), Streams: s.streamNames(), Err: err}
		ev.Err = werr
		s.publish(ev)
		if errors.Is(err, opt.ErrInfeasible) {
			s.log.Errorf("window %s infeasible: %v", w.Label, err)
		}
		return werr
	}

	ev.Objective = sol.Objective
	ev.Terms = make(map[string]float64, len(terms))
	for name, l := range terms {
		v := l.Value()
		ev.Terms[name] = v
		res.Objective[name] += v
	}
	for _, vs := range s.streams {
		if err := vs.SaveVariableResults(w.Index, res.Streams[vs.Name()]); err != nil {
			return &StreamError{Stream: vs.Name(), Step: "save results", Err: err}
		}
	}
	if err := res.Fleet.Append(w.Index, fl.values()); err != nil {
		return fmt.Errorf("fleet results: %w", err)
	}
	s.publish(ev)
	s.log.Debugw("window solved", map[string]any{"window": w.Label, "objective": sol.Objective, "size": n})
	return nil
}
