package timeseries

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestYearIndex(t *testing.T) {
	assert.Len(t, YearIndex(2021, time.Hour), 8760)
	assert.Len(t, YearIndex(2020, time.Hour), 8784)
	assert.Len(t, YearIndex(2021, 15*time.Minute), 4*8760)
	assert.Len(t, MonthIndex([]int{2021, 2022}), 24)
}

func TestSeriesSelect(t *testing.T) {
	idx := YearIndex(2021, time.Hour)[:4]
	s, err := New("load", idx, []float64{1, 2, 3, 4})
	require.NoError(t, err)
	sub := s.Select(Mask{false, true, true, false})
	assert.Equal(t, []float64{2, 3}, sub.Values)
	assert.Equal(t, idx[1:3], sub.Index)

	_, err = New("bad", idx, []float64{1})
	assert.Error(t, err)
}

func TestSeriesLookup(t *testing.T) {
	idx := YearIndex(2021, time.Hour)[:3]
	s, _ := New("x", idx, []float64{5, 6, 7})
	v, ok := s.Lookup(idx[2])
	assert.True(t, ok)
	assert.Equal(t, 7.0, v)
	_, ok = s.Lookup(idx[2].Add(time.Minute))
	assert.False(t, ok)
}

func TestGrowDrop_FillsAndGrows(t *testing.T) {
	idx := YearIndex(2021, time.Hour)
	s := Constant("load", idx, 100)

	out, err := GrowDrop(s, []int{2021, 2023}, time.Hour, 10)
	require.NoError(t, err)
	assert.Equal(t, []int{2021, 2023}, out.Years())
	assert.Len(t, out.Values, 2*8760)
	assert.InDelta(t, 100, out.Year(2021).Values[0], 1e-9)
	assert.InDelta(t, 121, out.Year(2023).Values[100], 1e-9)
}

func TestGrowDrop_Idempotent(t *testing.T) {
	s := Constant("load", YearIndex(2021, time.Hour), 50)
	first, err := GrowDrop(s, []int{2022}, time.Hour, 3)
	require.NoError(t, err)
	second, err := GrowDrop(first, []int{2022}, time.Hour, 3)
	require.NoError(t, err)
	assert.Equal(t, first.Values, second.Values)
	assert.Equal(t, first.Index, second.Index)
}

func TestGrowDrop_LeapYearPadding(t *testing.T) {
	s := Constant("load", YearIndex(2021, time.Hour), 1)
	out, err := GrowDrop(s, []int{2024}, time.Hour, 0)
	require.NoError(t, err)
	assert.Len(t, out.Values, 8784)
	assert.Equal(t, 1.0, out.Values[8783])
}

func TestGrowDrop_IntoLeapYearKeepsCalendar(t *testing.T) {
	idx := YearIndex(2021, time.Hour)
	vals := make([]float64, len(idx))
	for i, ts := range idx {
		vals[i] = float64(ts.YearDay()*100 + ts.Hour())
	}
	s, err := New("load", idx, vals)
	require.NoError(t, err)

	out, err := GrowDrop(s, []int{2024}, time.Hour, 0)
	require.NoError(t, err)
	value := func(ts time.Time) float64 {
		v, ok := out.Lookup(ts)
		require.True(t, ok, ts)
		return v
	}
	// Feb 28 2021 is yearday 59, Mar 1 2021 yearday 60, Dec 31 2021 yearday 365.
	assert.Equal(t, 5905.0, value(time.Date(2024, time.February, 28, 5, 0, 0, 0, time.UTC)))
	assert.Equal(t, 5905.0, value(time.Date(2024, time.February, 29, 5, 0, 0, 0, time.UTC)))
	assert.Equal(t, 6005.0, value(time.Date(2024, time.March, 1, 5, 0, 0, 0, time.UTC)))
	assert.Equal(t, 36500.0, value(time.Date(2024, time.December, 31, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, 36523.0, value(time.Date(2024, time.December, 31, 23, 0, 0, 0, time.UTC)))
}

func TestGrowDrop_FromLeapYearSkipsFeb29(t *testing.T) {
	idx := YearIndex(2024, time.Hour)
	vals := make([]float64, len(idx))
	for i, ts := range idx {
		vals[i] = float64(ts.YearDay())
	}
	s, err := New("load", idx, vals)
	require.NoError(t, err)

	out, err := GrowDrop(s, []int{2025}, time.Hour, 0)
	require.NoError(t, err)
	assert.Len(t, out.Values, 8760)
	v, _ := out.Lookup(time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC))
	assert.Equal(t, 61.0, v)
	v, _ = out.Lookup(time.Date(2025, time.December, 31, 12, 0, 0, 0, time.UTC))
	assert.Equal(t, 366.0, v)
}

func TestGrowDrop_PartialYearIsCoverageError(t *testing.T) {
	idx := YearIndex(2021, time.Hour)[:100]
	s := Constant("load", idx, 1)
	_, err := GrowDrop(s, []int{2021}, time.Hour, 0)
	assert.ErrorIs(t, err, ErrCoverage)

	_, err = GrowDrop(Series{Name: "empty"}, []int{2021}, time.Hour, 0)
	assert.ErrorIs(t, err, ErrCoverage)
}

func TestGrowDropMonthly(t *testing.T) {
	vals := make([]float64, 12)
	for i := range vals {
		vals[i] = float64(i + 1)
	}
	s, _ := New("price", MonthIndex([]int{2021}), vals)
	out, err := GrowDropMonthly(s, []int{2021, 2022}, 0)
	require.NoError(t, err)
	assert.Len(t, out.Values, 24)
	assert.Equal(t, 12.0, out.Values[23])
}

func TestFrameJoinFillsNaN(t *testing.T) {
	idx := YearIndex(2021, time.Hour)[:3]
	f := NewFrame(idx)
	s, _ := New("partial", idx[1:2], []float64{9})
	f.Join(s)
	col, ok := f.Column("partial")
	require.True(t, ok)
	assert.True(t, math.IsNaN(col[0]))
	assert.Equal(t, 9.0, col[1])
	assert.True(t, math.IsNaN(col[2]))

	p := f.Prefix("User Constraints")
	assert.Equal(t, []string{"User Constraints partial"}, p.Columns())
	assert.Error(t, f.Set("short", []float64{1}))
}
