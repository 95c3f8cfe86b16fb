package valuestream

import (
	"time"

	"github.com/kilianp07/derval/core/logger"
	"github.com/kilianp07/derval/core/model"
	"github.com/kilianp07/derval/core/opt"
	"github.com/kilianp07/derval/core/timeseries"
)

// WindowInputs carries the shared optimizer expressions of one sub-window.
type WindowInputs struct {
	LoadSum         []float64
	VariableGen     opt.Expr
	GeneratorOut    opt.Expr
	NetStoragePower opt.Expr // charge minus discharge of all storage
}

// ValueStream is the contract every grid service implements. The scenario
// driver calls GrowDropData, then CalculateSystemRequirements, then for each
// sub-window InitializeVariables, ObjectiveFunction, Constraints and, once the
// window is solved, SaveVariableResults.
type ValueStream interface {
	Name() string
	GrowDropData(years []int, step time.Duration, loadGrowth float64) error
	CalculateSystemRequirements(ders []model.DER, reqs *RequirementSet) error
	InitializeVariables(size int)
	ObjectiveFunction(mask timeseries.Mask, in WindowInputs, annuity float64) map[string]opt.Linear
	Constraints(mask timeseries.Mask, in WindowInputs, combinedRating float64) []opt.Constraint
	SaveVariableResults(index []time.Time, res *Results) error

	TimeseriesReport(res *Results) *timeseries.Frame
	MonthlyReport() *timeseries.Frame
	ProformaReport(years []int, res *Results) *timeseries.Frame
	DrillDownReports(res *Results) map[string]*timeseries.Frame
	UpdatePriceSignals(monthly, ts *timeseries.Frame)
}

// Reserver is implemented by streams that hold back storage power or energy
// for the service they provide. All expressions have mask.Count() elements.
type Reserver interface {
	PReservationChargeUp(mask timeseries.Mask) opt.Expr
	PReservationChargeDown(mask timeseries.Mask) opt.Expr
	PReservationDischargeUp(mask timeseries.Mask) opt.Expr
	PReservationDischargeDown(mask timeseries.Mask) opt.Expr
	UEnergyOptionStored(mask timeseries.Mask) opt.Expr
	UEnergyOptionProvided(mask timeseries.Mask) opt.Expr
	WorstCaseUEnergyStored(mask timeseries.Mask) opt.Expr
	WorstCaseUEnergyProvided(mask timeseries.Mask) opt.Expr
}

// ParticipationLimiter exposes the regulation floors and whether a maximum
// participation band is configured.
type ParticipationLimiter interface {
	MinRegulationUp(mask timeseries.Mask) []float64
	MinRegulationDown(mask timeseries.Mask) []float64
	MaxParticipationIsDefined() bool
}

// Base provides the default behaviour of every contract method: no data, no
// variables, no objective terms, no constraints and empty reports. Concrete
// streams embed it and override what they need.
type Base struct {
	name string
	dt   float64
	log  logger.Logger

	variables     map[string]*opt.Variable
	variableNames []string
}

// NewBase returns a Base for a stream with the given name and time step in
// hours.
func NewBase(name string, dt float64, log logger.Logger) Base {
	return Base{name: name, dt: dt, log: logger.OrNop(log), variables: map[string]*opt.Variable{}}
}

// Name returns the stream name used in requirements and report columns.
func (b *Base) Name() string { return b.name }

// DT returns the time step in hours.
func (b *Base) DT() float64 { return b.dt }

// Log returns the stream logger.
func (b *Base) Log() logger.Logger { return b.log }

// GrowDropData has no data to grow by default.
func (b *Base) GrowDropData([]int, time.Duration, float64) error { return nil }

// CalculateSystemRequirements adds no requirement by default.
func (b *Base) CalculateSystemRequirements([]model.DER, *RequirementSet) error { return nil }

// InitializeVariables declares nothing by default.
func (b *Base) InitializeVariables(int) {}

// DeclareVariables replaces the current window variables with fresh ones of
// the given size. Names are prefixed with the stream name for solver output.
func (b *Base) DeclareVariables(size int, names ...string) {
	b.variables = make(map[string]*opt.Variable, len(names))
	b.variableNames = append(b.variableNames[:0], names...)
	for _, n := range names {
		b.variables[n] = opt.NewVariable(b.name+" "+n, size)
	}
}

// Variable returns the current window variable called name.
func (b *Base) Variable(name string) *opt.Variable { return b.variables[name] }

// Var returns the current window variable as an expression, or zeros of the
// given size when it was not declared.
func (b *Base) Var(name string, size int) opt.Expr {
	if v, ok := b.variables[name]; ok {
		return v.Expr()
	}
	return opt.Zeros(size)
}

// ObjectiveFunction returns no cost term by default.
func (b *Base) ObjectiveFunction(timeseries.Mask, WindowInputs, float64) map[string]opt.Linear {
	return map[string]opt.Linear{}
}

// Constraints returns no constraint by default.
func (b *Base) Constraints(timeseries.Mask, WindowInputs, float64) []opt.Constraint {
	return []opt.Constraint{}
}

// SaveVariableResults appends the solved values of the declared variables to
// res under index.
func (b *Base) SaveVariableResults(index []time.Time, res *Results) error {
	cols := make(map[string][]float64, len(b.variableNames))
	for _, n := range b.variableNames {
		cols[n] = b.variables[n].Value()
	}
	return res.Append(index, cols)
}

// TimeseriesReport returns an empty frame.
func (b *Base) TimeseriesReport(*Results) *timeseries.Frame { return timeseries.NewFrame(nil) }

// MonthlyReport returns an empty monthly frame.
func (b *Base) MonthlyReport() *timeseries.Frame { return timeseries.NewMonthlyFrame(nil) }

// ProformaReport returns an empty frame with one row per year.
func (b *Base) ProformaReport(years []int, _ *Results) *timeseries.Frame {
	return timeseries.NewYearlyFrame(years)
}

// DrillDownReports returns no extra report.
func (b *Base) DrillDownReports(*Results) map[string]*timeseries.Frame {
	return map[string]*timeseries.Frame{}
}

// UpdatePriceSignals ignores new prices.
func (b *Base) UpdatePriceSignals(_, _ *timeseries.Frame) {}

// The Reserver defaults reserve no power and no energy.

// PReservationChargeUp returns zeros.
func (b *Base) PReservationChargeUp(m timeseries.Mask) opt.Expr { return opt.Zeros(m.Count()) }

// PReservationChargeDown returns zeros.
func (b *Base) PReservationChargeDown(m timeseries.Mask) opt.Expr { return opt.Zeros(m.Count()) }

// PReservationDischargeUp returns zeros.
func (b *Base) PReservationDischargeUp(m timeseries.Mask) opt.Expr { return opt.Zeros(m.Count()) }

// PReservationDischargeDown returns zeros.
func (b *Base) PReservationDischargeDown(m timeseries.Mask) opt.Expr { return opt.Zeros(m.Count()) }

// UEnergyOptionStored returns zeros.
func (b *Base) UEnergyOptionStored(m timeseries.Mask) opt.Expr { return opt.Zeros(m.Count()) }

// UEnergyOptionProvided returns zeros.
func (b *Base) UEnergyOptionProvided(m timeseries.Mask) opt.Expr { return opt.Zeros(m.Count()) }

// WorstCaseUEnergyStored returns zeros.
func (b *Base) WorstCaseUEnergyStored(m timeseries.Mask) opt.Expr { return opt.Zeros(m.Count()) }

// WorstCaseUEnergyProvided returns zeros.
func (b *Base) WorstCaseUEnergyProvided(m timeseries.Mask) opt.Expr { return opt.Zeros(m.Count()) }

// MinRegulationUp returns zeros.
func (b *Base) MinRegulationUp(m timeseries.Mask) []float64 { return make([]float64, m.Count()) }

// MinRegulationDown returns zeros.
func (b *Base) MinRegulationDown(m timeseries.Mask) []float64 { return make([]float64, m.Count()) }

// MaxParticipationIsDefined reports false: no participation band.
func (b *Base) MaxParticipationIsDefined() bool { return false }

// RTEList returns the round-trip efficiency of every storage resource, or [1]
// when there is none.
func RTEList(ders []model.DER) []float64 {
	var out []float64
	for _, d := range ders {
		if s, ok := d.(model.Storage); ok {
			out = append(out, s.RoundTripEfficiency())
		}
	}
	if len(out) == 0 {
		out = []float64{1}
	}
	return out
}
