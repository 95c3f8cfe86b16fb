package valuestream

import (
	"fmt"
	"time"

	"github.com/kilianp07/derval/core/model"
	"github.com/kilianp07/derval/core/timeseries"
)

// Column names read and written by ResourceAdequacy.
const (
	SystemLoadColumn   = "System Load (kW)"
	RAActiveColumn     = "RA Active (y/n)"
	RAEventColumn      = "RA Event (y/n)"
	RADischargeColumn  = "RA Discharge Min (kW)"
	RAEnergyColumn     = "RA Energy Min (kWh)"
	RACapacityPriceCol = "RA Capacity Price ($/kW)"
)

// RAConfig holds the resource adequacy settings.
type RAConfig struct {
	Days     int       `json:"days"`
	Length   float64   `json:"length"`
	IDMode   string    `json:"idmode"`
	DispMode bool      `json:"dispmode"`
	Growth   float64   `json:"growth"` // price growth in %/yr
	Value    []float64 `json:"value"`  // monthly capacity price, 12 entries
	DT       float64   `json:"dt"`
}

// ResourceAdequacy is a capacity program that requires a guaranteed fleet
// contribution during the peak load events of each period.
type ResourceAdequacy struct {
	Base
	cfg  RAConfig
	mode IDMode

	systemLoad   timeseries.Series
	active       []bool
	capacityRate timeseries.Series

	peaks    []time.Time
	schedule Schedule
	qc       float64
	minReq   timeseries.Series
}

// NewResourceAdequacy builds the stream from its configuration map and the
// scenario data.
func NewResourceAdequacy(conf map[string]any, in Inputs) (*ResourceAdequacy, error) {
	const name = "Resource Adequacy"
	if err := requireKeys(name, conf, "days", "length", "idmode", "dispmode", "growth", "dt"); err != nil {
		return nil, err
	}
	var cfg RAConfig
	if err := decode(name, conf, &cfg); err != nil {
		return nil, err
	}
	if cfg.DT <= 0 || cfg.Length <= 0 {
		return nil, fmt.Errorf("%w: %s needs positive dt and length", ErrModelParameter, name)
	}
	mode, err := ParseIDMode(cfg.IDMode)
	if err != nil {
		return nil, err
	}
	ra := &ResourceAdequacy{Base: NewBase(name, cfg.DT, in.Log), cfg: cfg, mode: mode}

	if ra.systemLoad, err = in.series(name, SystemLoadColumn); err != nil {
		return nil, err
	}
	if mode.ActiveHours() {
		act, err := in.series(name, RAActiveColumn)
		if err != nil {
			return nil, err
		}
		ra.active = act.Bools()
	}

	if rate, ok := in.monthly(RACapacityPriceCol); ok {
		ra.capacityRate = rate
	} else {
		if len(cfg.Value) != 12 {
			return nil, fmt.Errorf("%w: %s needs 12 monthly values or a %q column, got %d values",
				ErrMonthlyData, name, RACapacityPriceCol, len(cfg.Value))
		}
		ra.capacityRate = monthlyTemplate(RACapacityPriceCol, cfg.Value, ra.systemLoad.Years())
	}
	return ra, nil
}

func monthlyTemplate(name string, values []float64, years []int) timeseries.Series {
	idx := timeseries.MonthIndex(years)
	vals := make([]float64, len(idx))
	for i := range idx {
		vals[i] = values[i%12]
	}
	return timeseries.Series{Name: name, Index: idx, Values: vals}
}

// GrowDropData grows the system load with loadGrowth and copies the active
// mask and capacity price into the requested years.
func (ra *ResourceAdequacy) GrowDropData(years []int, step time.Duration, loadGrowth float64) error {
	load, err := timeseries.GrowDrop(ra.systemLoad, years, step, loadGrowth)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrTimeseriesData, err)
	}
	if ra.mode.ActiveHours() {
		flags := make([]float64, len(ra.active))
		for i, b := range ra.active {
			if b {
				flags[i] = 1
			}
		}
		act, err := timeseries.GrowDrop(timeseries.Series{Name: RAActiveColumn, Index: ra.systemLoad.Index, Values: flags}, years, step, 0)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrTimeseriesData, err)
		}
		ra.active = act.Bools()
	}
	rate, err := timeseries.GrowDropMonthly(ra.capacityRate, years, 0)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrMonthlyData, err)
	}
	ra.systemLoad, ra.capacityRate = load, rate
	return nil
}

// CalculateSystemRequirements identifies the peaks, schedules the events and
// adds the discharge or energy minimum the fleet must guarantee.
func (ra *ResourceAdequacy) CalculateSystemRequirements(ders []model.DER, reqs *RequirementSet) error {
	ra.peaks = FindPeaks(ra.systemLoad, ra.active, ra.mode, ra.cfg.Days)
	ra.schedule = ScheduleEvents(ra.systemLoad.Index, ra.peaks, ra.cfg.Length, ra.DT())
	ra.qc = QualifyingCommitment(ders, ra.cfg.Length)
	ra.Log().Infof("%s: %d peaks, %d event intervals, qualifying commitment %.3f kW",
		ra.Name(), len(ra.peaks), len(ra.schedule.Intervals), ra.qc)

	var req model.Requirement
	if ra.cfg.DispMode {
		ra.minReq = timeseries.Constant(RADischargeColumn, ra.schedule.Intervals, ra.qc)
		req = model.NewRequirement(model.DischargeDispatch, model.Min, ra.Name(), ra.minReq)
	} else {
		ra.minReq = timeseries.Constant(RAEnergyColumn, ra.schedule.Starts, ra.qc*ra.cfg.Length)
		req = model.NewRequirement(model.Energy, model.Min, ra.Name(), ra.minReq)
	}
	return reqs.Add(req)
}

// QualifyingCommitment sums the qualifying capacity of every resource for an
// event of the given length.
func QualifyingCommitment(ders []model.DER, length float64) float64 {
	var qc float64
	for _, d := range ders {
		qc += d.QualifyingCapacity(length)
	}
	return qc
}

// PeakIntervals returns the identified peak timestamps.
func (ra *ResourceAdequacy) PeakIntervals() []time.Time { return append([]time.Time(nil), ra.peaks...) }

// EventIntervals returns every timestamp inside an event window.
func (ra *ResourceAdequacy) EventIntervals() []time.Time {
	return append([]time.Time(nil), ra.schedule.Intervals...)
}

// EventStartTimes returns the first timestamp of every event window.
func (ra *ResourceAdequacy) EventStartTimes() []time.Time {
	return append([]time.Time(nil), ra.schedule.Starts...)
}

// QualifyingCapacity returns the commitment computed by the last
// CalculateSystemRequirements call.
func (ra *ResourceAdequacy) QualifyingCapacity() float64 { return ra.qc }

// TimeseriesReport lists the system load, the event flag and the emitted
// minimum.
func (ra *ResourceAdequacy) TimeseriesReport(*Results) *timeseries.Frame {
	f := timeseries.NewFrame(ra.systemLoad.Index)
	_ = f.Set(SystemLoadColumn, ra.systemLoad.Values)
	flags := make([]bool, len(ra.systemLoad.Index))
	copy(flags, ra.schedule.InEvent)
	_ = f.SetFlags(RAEventColumn, flags)
	if ra.minReq.Name != "" {
		f.Join(ra.minReq)
	}
	return f
}

// MonthlyReport lists the capacity price per month.
func (ra *ResourceAdequacy) MonthlyReport() *timeseries.Frame {
	f := timeseries.NewMonthlyFrame(ra.capacityRate.Index)
	_ = f.Set(RACapacityPriceCol, ra.capacityRate.Values)
	return f
}

// ProformaReport values the commitment at the capacity price of each year.
func (ra *ResourceAdequacy) ProformaReport(years []int, _ *Results) *timeseries.Frame {
	f := timeseries.NewYearlyFrame(years)
	vals := make([]float64, len(years))
	for i, y := range years {
		vals[i] = ra.qc * ra.capacityRate.Year(y).Sum()
	}
	_ = f.Set(ra.Name()+" Capacity Payment", vals)
	return f
}

// UpdatePriceSignals replaces the capacity price when the monthly data has a
// capacity price column.
func (ra *ResourceAdequacy) UpdatePriceSignals(monthly, _ *timeseries.Frame) {
	if monthly == nil {
		return
	}
	if s, ok := monthly.Series(RACapacityPriceCol); ok {
		ra.capacityRate = s
	}
}
