package valuestream

import (
	"fmt"
	"time"

	"github.com/kilianp07/derval/core/model"
	"github.com/kilianp07/derval/core/timeseries"
)

// VeryLargeNegative replaces a zero minimum POI bound so that "no minimum"
// never forces dispatch towards zero. It applies to minimum export and
// minimum import bounds only.
const VeryLargeNegative = -(1<<32 - 1)

// User constraint input columns.
const (
	POIMaxExportColumn = "POI: Max Export (kW)"
	POIMinExportColumn = "POI: Min Export (kW)"
	POIMaxImportColumn = "POI: Max Import (kW)"
	POIMinImportColumn = "POI: Min Import (kW)"
	EnergyMaxColumn    = "Aggregate Energy Max (kWh)"
	EnergyMinColumn    = "Aggregate Energy Min (kWh)"
)

type userBound struct {
	column    string
	kind      model.Kind
	direction model.Direction
	power     bool
}

var userBounds = []userBound{
	{POIMaxExportColumn, model.POIExport, model.Max, true},
	{POIMinExportColumn, model.POIExport, model.Min, true},
	{POIMaxImportColumn, model.POIImport, model.Max, true},
	{POIMinImportColumn, model.POIImport, model.Min, true},
	{EnergyMaxColumn, model.Energy, model.Max, false},
	{EnergyMinColumn, model.Energy, model.Min, false},
}

// UserConstraints turns user supplied POI power and aggregate energy limits
// into requirements.
type UserConstraints struct {
	Base
	price  float64 // $/yr
	inputs map[string]timeseries.Series
	bounds map[string]timeseries.Series
}

// NewUserConstraints builds the stream from the user constraint columns present
// in the time series. At least one must exist.
func NewUserConstraints(conf map[string]any, in Inputs) (*UserConstraints, error) {
	const name = "User Constraints"
	if err := requireKeys(name, conf, "price", "dt"); err != nil {
		return nil, err
	}
	var c struct {
		Price float64 `json:"price"`
		DT    float64 `json:"dt"`
	}
	if err := decode(name, conf, &c); err != nil {
		return nil, err
	}
	uc := &UserConstraints{
		Base:   NewBase(name, c.DT, in.Log),
		price:  c.Price,
		inputs: make(map[string]timeseries.Series),
		bounds: make(map[string]timeseries.Series),
	}
	for _, b := range userBounds {
		if s, ok := in.optionalSeries(b.column); ok {
			uc.inputs[b.column] = s
		}
	}
	if len(uc.inputs) == 0 {
		return nil, fmt.Errorf("%w: %s needs at least one POI or aggregate energy column", ErrTimeseriesMissing, name)
	}
	return uc, nil
}

// ReturnPositiveValues returns a copy of values unchanged when any value is
// positive and negated otherwise.
func ReturnPositiveValues(values []float64) []float64 {
	out := make([]float64, len(values))
	positive := false
	for _, v := range values {
		if v > 0 {
			positive = true
			break
		}
	}
	for i, v := range values {
		switch {
		case positive:
			out[i] = v
		case v == 0:
			out[i] = 0
		default:
			out[i] = -v
		}
	}
	return out
}

// GrowDropData copies the user limits into the requested years without growth.
func (uc *UserConstraints) GrowDropData(years []int, step time.Duration, _ float64) error {
	for col, s := range uc.inputs {
		g, err := timeseries.GrowDrop(s, years, step, 0)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrTimeseriesData, err)
		}
		uc.inputs[col] = g
	}
	return nil
}

// CalculateSystemRequirements emits one requirement per provided column. Power
// bounds are made positive; zero minimum power bounds become VeryLargeNegative.
func (uc *UserConstraints) CalculateSystemRequirements(_ []model.DER, reqs *RequirementSet) error {
	uc.bounds = make(map[string]timeseries.Series)
	for _, b := range userBounds {
		s, ok := uc.inputs[b.column]
		if !ok {
			continue
		}
		bound := s.Clone()
		if b.power {
			bound.Values = ReturnPositiveValues(bound.Values)
			if b.direction == model.Min {
				for i, v := range bound.Values {
					if v == 0 {
						bound.Values[i] = VeryLargeNegative
					}
				}
				uc.Log().Infof("%s: zero values of %q are replaced by %d so the bound can be disabled",
					uc.Name(), b.column, VeryLargeNegative)
			}
		}
		uc.bounds[b.column] = bound
		if err := reqs.Add(model.NewRequirement(b.kind, b.direction, uc.Name(), bound)); err != nil {
			return err
		}
	}
	return nil
}

// TimeseriesReport lists the applied bounds prefixed with the stream name.
// Export bounds are negated to line up with net power, where export is
// negative.
func (uc *UserConstraints) TimeseriesReport(*Results) *timeseries.Frame {
	var f *timeseries.Frame
	for _, b := range userBounds {
		s, ok := uc.bounds[b.column]
		if !ok {
			s, ok = uc.inputs[b.column]
		}
		if !ok {
			continue
		}
		if f == nil {
			f = timeseries.NewFrame(s.Index)
		}
		if b.kind == model.POIExport {
			s = s.Scale(-1)
		}
		f.Join(s.Rename(uc.Name() + " " + b.column))
	}
	if f == nil {
		return timeseries.NewFrame(nil)
	}
	return f
}

// ProformaReport credits the yearly value for every year.
func (uc *UserConstraints) ProformaReport(years []int, _ *Results) *timeseries.Frame {
	f := timeseries.NewYearlyFrame(years)
	vals := make([]float64, len(years))
	for i := range vals {
		vals[i] = uc.price
	}
	_ = f.Set(uc.Name()+" Value", vals)
	return f
}

// UpdateYearlyValue sets the yearly value of the service.
func (uc *UserConstraints) UpdateYearlyValue(v float64) { uc.price = v }

// Price returns the yearly value.
func (uc *UserConstraints) Price() float64 { return uc.price }
