package timeseries

import (
	"fmt"
	"math"
	"sort"
	"time"

	"gonum.org/v1/gonum/floats"
)

// Mask selects the timestamps of a horizon that belong to a sub-window. It is
// always aligned with the horizon index it was built from.
type Mask []bool

// Count returns the number of selected timestamps.
func (m Mask) Count() int {
	n := 0
	for _, ok := range m {
		if ok {
			n++
		}
	}
	return n
}

// Index returns the selected timestamps of index.
func (m Mask) Index(index []time.Time) []time.Time {
	out := make([]time.Time, 0, m.Count())
	for i, ok := range m {
		if ok && i < len(index) {
			out = append(out, index[i])
		}
	}
	return out
}

// MaskWhere builds a Mask over index using pred.
func MaskWhere(index []time.Time, pred func(time.Time) bool) Mask {
	m := make(Mask, len(index))
	for i, t := range index {
		m[i] = pred(t)
	}
	return m
}

// Series is a named sequence of values indexed by ascending timestamps.
type Series struct {
	Name   string
	Index  []time.Time
	Values []float64
}

// New returns a Series after checking the index and values have equal length.
func New(name string, index []time.Time, values []float64) (Series, error) {
	if len(index) != len(values) {
		return Series{}, fmt.Errorf("series %s: %d timestamps for %d values", name, len(index), len(values))
	}
	return Series{Name: name, Index: index, Values: values}, nil
}

// Constant returns a Series repeating v at every timestamp of index.
func Constant(name string, index []time.Time, v float64) Series {
	vals := make([]float64, len(index))
	for i := range vals {
		vals[i] = v
	}
	return Series{Name: name, Index: cloneTimes(index), Values: vals}
}

// Len returns the number of points.
func (s Series) Len() int { return len(s.Values) }

// Empty reports whether the series has no points.
func (s Series) Empty() bool { return len(s.Values) == 0 }

// Clone returns a deep copy.
func (s Series) Clone() Series {
	return Series{Name: s.Name, Index: cloneTimes(s.Index), Values: append([]float64(nil), s.Values...)}
}

// Rename returns a copy of s with a new name.
func (s Series) Rename(name string) Series {
	c := s.Clone()
	c.Name = name
	return c
}

// Select returns the points selected by m. The mask must be aligned with the
// series index.
func (s Series) Select(m Mask) Series {
	n := m.Count()
	out := Series{Name: s.Name, Index: make([]time.Time, 0, n), Values: make([]float64, 0, n)}
	for i, ok := range m {
		if ok && i < len(s.Values) {
			out.Index = append(out.Index, s.Index[i])
			out.Values = append(out.Values, s.Values[i])
		}
	}
	return out
}

// Scale returns s multiplied by f.
func (s Series) Scale(f float64) Series {
	c := s.Clone()
	floats.Scale(f, c.Values)
	return c
}

// Sum returns the sum of the values, skipping NaN.
func (s Series) Sum() float64 {
	var total float64
	for _, v := range s.Values {
		if !math.IsNaN(v) {
			total += v
		}
	}
	return total
}

// Bools interprets the values as flags: a value of exactly 1 is true.
func (s Series) Bools() []bool {
	out := make([]bool, len(s.Values))
	for i, v := range s.Values {
		out[i] = v == 1
	}
	return out
}

// Lookup returns the value stored at t.
func (s Series) Lookup(t time.Time) (float64, bool) {
	i := sort.Search(len(s.Index), func(i int) bool { return !s.Index[i].Before(t) })
	if i < len(s.Index) && s.Index[i].Equal(t) {
		return s.Values[i], true
	}
	return 0, false
}

// Years returns the distinct calendar years of the index in ascending order.
func (s Series) Years() []int {
	return yearsOf(s.Index)
}

// Year returns the points falling in the given calendar year.
func (s Series) Year(year int) Series {
	return s.Select(MaskWhere(s.Index, func(t time.Time) bool { return t.Year() == year }))
}

func yearsOf(index []time.Time) []int {
	seen := make(map[int]struct{})
	var years []int
	for _, t := range index {
		y := t.Year()
		if _, ok := seen[y]; !ok {
			seen[y] = struct{}{}
			years = append(years, y)
		}
	}
	sort.Ints(years)
	return years
}

func cloneTimes(ts []time.Time) []time.Time {
	return append([]time.Time(nil), ts...)
}

// YearIndex returns every timestamp of the calendar year at the given step,
// starting at January 1st 00:00 UTC.
func YearIndex(year int, step time.Duration) []time.Time {
	start := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(1, 0, 0)
	var out []time.Time
	for t := start; t.Before(end); t = t.Add(step) {
		out = append(out, t)
	}
	return out
}

// HorizonIndex concatenates YearIndex for each year in ascending order.
func HorizonIndex(years []int, step time.Duration) []time.Time {
	ys := append([]int(nil), years...)
	sort.Ints(ys)
	var out []time.Time
	for _, y := range ys {
		out = append(out, YearIndex(y, step)...)
	}
	return out
}

// MonthIndex returns the first instant of each month of the given years.
func MonthIndex(years []int) []time.Time {
	ys := append([]int(nil), years...)
	sort.Ints(ys)
	out := make([]time.Time, 0, 12*len(ys))
	for _, y := range ys {
		for m := time.January; m <= time.December; m++ {
			out = append(out, time.Date(y, m, 1, 0, 0, 0, 0, time.UTC))
		}
	}
	return out
}

// Duration converts a step expressed in hours to a time.Duration.
func Duration(hours float64) time.Duration {
	return time.Duration(math.Round(hours * float64(time.Hour)))
}
