package valuestream

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/derval/core/model"
	"github.com/kilianp07/derval/core/timeseries"
)

func raConf() map[string]any {
	return map[string]any{
		"days":     1,
		"length":   4.0,
		"idmode":   "peak by year",
		"dispmode": false,
		"growth":   0,
		"value":    constant(12, 2),
		"dt":       1.0,
	}
}

func twoDayInputs() (Inputs, []time.Time) {
	idx := hourly(jan(1, 0), 48)
	load := constant(48, 1)
	load[36] = 50 // Jan 2 12:00
	return Inputs{TimeSeries: tsFrame(idx, map[string][]float64{SystemLoadColumn: load})}, idx
}

func testBattery() model.Battery {
	return model.Battery{Name: "ess", DischargeKW: 10, ChargeKW: 10, EnergyKWh: 100}
}

func TestResourceAdequacy_EnergyRequirement(t *testing.T) {
	in, _ := twoDayInputs()
	ra, err := NewResourceAdequacy(raConf(), in)
	require.NoError(t, err)

	reqs := NewRequirementSet()
	require.NoError(t, ra.CalculateSystemRequirements([]model.DER{testBattery()}, reqs))
	got := reqs.Finish()
	require.Len(t, got, 1)

	r := got[0]
	assert.Equal(t, model.Energy, r.Kind())
	assert.Equal(t, model.Min, r.Direction())
	assert.Equal(t, "Resource Adequacy", r.Source())
	s := r.Series()
	assert.Equal(t, []time.Time{jan(2, 11)}, s.Index)
	assert.Equal(t, []float64{40}, s.Values)

	assert.Equal(t, []time.Time{jan(2, 12)}, ra.PeakIntervals())
	assert.Equal(t, hourly(jan(2, 11), 4), ra.EventIntervals())
	assert.Equal(t, []time.Time{jan(2, 11)}, ra.EventStartTimes())
	assert.Equal(t, 10.0, ra.QualifyingCapacity())
}

func TestResourceAdequacy_DischargeRequirement(t *testing.T) {
	in, _ := twoDayInputs()
	conf := raConf()
	conf["dispmode"] = true
	ra, err := NewResourceAdequacy(conf, in)
	require.NoError(t, err)

	reqs := NewRequirementSet()
	gen := model.Generator{Name: "gen", RatingKW: 5, Units: 2}
	require.NoError(t, ra.CalculateSystemRequirements([]model.DER{testBattery(), gen}, reqs))
	got := reqs.Finish()
	require.Len(t, got, 1)

	r := got[0]
	assert.Equal(t, model.DischargeDispatch, r.Kind())
	assert.Equal(t, model.Min, r.Direction())
	assert.Equal(t, hourly(jan(2, 11), 4), r.Series().Index)
	assert.Equal(t, constant(4, 20), r.Series().Values)
}

func TestResourceAdequacy_RequirementIsACopy(t *testing.T) {
	in, _ := twoDayInputs()
	ra, err := NewResourceAdequacy(raConf(), in)
	require.NoError(t, err)
	reqs := NewRequirementSet()
	require.NoError(t, ra.CalculateSystemRequirements([]model.DER{testBattery()}, reqs))

	r := reqs.Finish()[0]
	s := r.Series()
	s.Values[0] = -1
	assert.Equal(t, []float64{40}, r.Series().Values)
}

func TestResourceAdequacy_Reports(t *testing.T) {
	in, _ := twoDayInputs()
	ra, err := NewResourceAdequacy(raConf(), in)
	require.NoError(t, err)
	require.NoError(t, ra.CalculateSystemRequirements([]model.DER{testBattery()}, NewRequirementSet()))

	ts := ra.TimeseriesReport(nil)
	assert.Equal(t, []string{SystemLoadColumn, RAEventColumn, RAEnergyColumn}, ts.Columns())
	events, _ := ts.Column(RAEventColumn)
	assert.Equal(t, 4.0, sum(events))
	energy, _ := ts.Column(RAEnergyColumn)
	assert.Equal(t, 40.0, energy[35])
	assert.True(t, math.IsNaN(energy[36]))

	monthly := ra.MonthlyReport()
	assert.Equal(t, 12, monthly.Len())

	pf := ra.ProformaReport([]int{2021}, nil)
	pay, ok := pf.Column("Resource Adequacy Capacity Payment")
	require.True(t, ok)
	assert.Equal(t, []float64{240}, pay)
}

func TestResourceAdequacy_GrowDropData(t *testing.T) {
	idx := timeseries.YearIndex(2021, time.Hour)
	load := constant(len(idx), 1)
	load[36] = 50
	in := Inputs{TimeSeries: tsFrame(idx, map[string][]float64{SystemLoadColumn: load})}
	ra, err := NewResourceAdequacy(raConf(), in)
	require.NoError(t, err)

	require.NoError(t, ra.GrowDropData([]int{2021, 2022}, time.Hour, 10))
	require.NoError(t, ra.CalculateSystemRequirements([]model.DER{testBattery()}, NewRequirementSet()))

	peak2022 := time.Date(2022, time.January, 2, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, []time.Time{jan(2, 12), peak2022}, ra.PeakIntervals())

	grown, ok := ra.TimeseriesReport(nil).Series(SystemLoadColumn)
	require.True(t, ok)
	v, ok := grown.Lookup(peak2022)
	require.True(t, ok)
	assert.InDelta(t, 55, v, 1e-9)

	pay, _ := ra.ProformaReport([]int{2021, 2022}, nil).Column("Resource Adequacy Capacity Payment")
	assert.Equal(t, []float64{240, 240}, pay)
}

func TestResourceAdequacy_GrowDropDataPartialYear(t *testing.T) {
	in, _ := twoDayInputs()
	ra, err := NewResourceAdequacy(raConf(), in)
	require.NoError(t, err)
	err = ra.GrowDropData([]int{2021}, time.Hour, 0)
	assert.True(t, errors.Is(err, ErrTimeseriesData))
}

func TestResourceAdequacy_MonthlyPriceColumn(t *testing.T) {
	in, _ := twoDayInputs()
	monthly := timeseries.NewMonthlyFrame(timeseries.MonthIndex([]int{2021}))
	require.NoError(t, monthly.Set(RACapacityPriceCol, constant(12, 3)))
	in.Monthly = monthly
	conf := raConf()
	delete(conf, "value")

	ra, err := NewResourceAdequacy(conf, in)
	require.NoError(t, err)
	require.NoError(t, ra.CalculateSystemRequirements([]model.DER{testBattery()}, NewRequirementSet()))
	pay, _ := ra.ProformaReport([]int{2021}, nil).Column("Resource Adequacy Capacity Payment")
	assert.Equal(t, []float64{360}, pay)
}

func TestResourceAdequacy_UpdatePriceSignals(t *testing.T) {
	in, _ := twoDayInputs()
	ra, err := NewResourceAdequacy(raConf(), in)
	require.NoError(t, err)
	require.NoError(t, ra.CalculateSystemRequirements([]model.DER{testBattery()}, NewRequirementSet()))

	ra.UpdatePriceSignals(nil, nil)
	other := timeseries.NewMonthlyFrame(timeseries.MonthIndex([]int{2021}))
	require.NoError(t, other.Set("DA Price ($/kWh)", constant(12, 9)))
	ra.UpdatePriceSignals(other, nil)
	pay, _ := ra.ProformaReport([]int{2021}, nil).Column("Resource Adequacy Capacity Payment")
	assert.Equal(t, []float64{240}, pay)

	require.NoError(t, other.Set(RACapacityPriceCol, constant(12, 1)))
	ra.UpdatePriceSignals(other, nil)
	pay, _ = ra.ProformaReport([]int{2021}, nil).Column("Resource Adequacy Capacity Payment")
	assert.Equal(t, []float64{120}, pay)
}

func TestNewResourceAdequacy_Errors(t *testing.T) {
	in, _ := twoDayInputs()

	conf := raConf()
	delete(conf, "days")
	delete(conf, "idmode")
	_, err := NewResourceAdequacy(conf, in)
	require.True(t, errors.Is(err, ErrModelParameter))
	assert.Contains(t, err.Error(), "days, idmode")

	conf = raConf()
	conf["idmode"] = "peak by month with active hours"
	_, err = NewResourceAdequacy(conf, in)
	assert.True(t, errors.Is(err, ErrTimeseriesMissing))

	_, err = NewResourceAdequacy(raConf(), Inputs{})
	assert.True(t, errors.Is(err, ErrTimeseriesMissing))

	conf = raConf()
	delete(conf, "value")
	_, err = NewResourceAdequacy(conf, in)
	assert.True(t, errors.Is(err, ErrMonthlyData))

	conf = raConf()
	conf["length"] = 0
	_, err = NewResourceAdequacy(conf, in)
	assert.True(t, errors.Is(err, ErrModelParameter))
}

func TestQualifyingCommitment(t *testing.T) {
	ders := []model.DER{
		testBattery(),
		model.PV{Name: "pv", RatingKW: 100, CapacityCredit: 0.25},
		model.Vehicle{Name: "ev", IsV2G: false, MaxPower: 7, BatteryKWh: 50, SoC: 1},
	}
	assert.Equal(t, 35.0, QualifyingCommitment(ders, 4))
	assert.Zero(t, QualifyingCommitment(nil, 4))
}

func sum(v []float64) float64 {
	var s float64
	for _, x := range v {
		s += x
	}
	return s
}
