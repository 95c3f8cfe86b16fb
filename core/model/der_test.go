package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/derval/core/timeseries"
)

func TestBatteryQualifyingCapacity(t *testing.T) {
	b := Battery{Name: "ess", DischargeKW: 100, EnergyKWh: 200, MinSoE: 0.1, MaxSoE: 0.9}
	require.NoError(t, b.Validate())
	// usable 160 kWh over 4h = 40 kW
	assert.InDelta(t, 40, b.QualifyingCapacity(4), 1e-9)
	assert.InDelta(t, 100, b.QualifyingCapacity(1), 1e-9)
	assert.Equal(t, 1.0, b.RoundTripEfficiency())
}

func TestGeneratorAndPV(t *testing.T) {
	g := Generator{Name: "gen", RatingKW: 50, Units: 2}
	assert.Equal(t, 100.0, g.QualifyingCapacity(4))
	p := PV{Name: "pv", RatingKW: 80, CapacityCredit: 0.25}
	assert.Equal(t, 20.0, p.QualifyingCapacity(4))
}

func TestRequirementIsImmutable(t *testing.T) {
	idx := timeseries.YearIndex(2021, time.Hour)[:2]
	s, _ := timeseries.New("RA Discharge Min (kW)", idx, []float64{5, 5})
	r := NewRequirement(DischargeDispatch, Min, "Resource Adequacy", s)
	s.Values[0] = 99
	got := r.Series()
	got.Values[1] = 42
	assert.Equal(t, []float64{5, 5}, r.Series().Values)
	assert.Equal(t, "der dispatch discharge", string(r.Kind()))

	k, err := ParseKind("POI Export")
	require.NoError(t, err)
	assert.Equal(t, POIExport, k)
	_, err = ParseKind("reactive")
	assert.Error(t, err)
}
