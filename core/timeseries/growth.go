package timeseries

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"time"
)

// ErrCoverage indicates a series does not span the requested years.
var ErrCoverage = errors.New("series does not cover requested years")

// FillExtra returns s extended with every year in years that has no data.
// Missing years take the value of the same month, day and time of day in the
// closest earlier data year (or the first data year when none is earlier);
// Feb 29 reuses Feb 28. Values are scaled by
// (1+rate/100)^(year-source). rate is a percentage per year. Existing years are
// kept untouched.
func FillExtra(s Series, years []int, step time.Duration, rate float64) (Series, error) {
	return fill(s, years, rate, func(y int) []time.Time { return YearIndex(y, step) })
}

// FillExtraMonthly is FillExtra for series indexed by the first instant of each
// month.
func FillExtraMonthly(s Series, years []int, rate float64) (Series, error) {
	return fill(s, years, rate, func(y int) []time.Time { return MonthIndex([]int{y}) })
}

func fill(s Series, years []int, rate float64, yearIndex func(int) []time.Time) (Series, error) {
	have := s.Years()
	if len(have) == 0 {
		return Series{}, fmt.Errorf("%w: %s has no data", ErrCoverage, s.Name)
	}
	byYear := make(map[int]Series, len(have))
	for _, y := range have {
		byYear[y] = s.Year(y)
	}
	all := append([]int(nil), have...)
	for _, y := range years {
		if _, ok := byYear[y]; ok {
			continue
		}
		src := sourceYear(have, y)
		factor := math.Pow(1+rate/100, float64(y-src))
		idx := yearIndex(y)
		from := byYear[src]
		vals := make([]float64, len(idx))
		for i, t := range idx {
			vals[i] = from.at(sameInstant(t, src)) * factor
		}
		byYear[y] = Series{Name: s.Name, Index: idx, Values: vals}
		all = append(all, y)
	}
	sort.Ints(all)
	out := Series{Name: s.Name}
	for _, y := range all {
		ys := byYear[y]
		out.Index = append(out.Index, ys.Index...)
		out.Values = append(out.Values, ys.Values...)
	}
	return out, nil
}

// sameInstant moves t to year, keeping month, day and time of day. Feb 29
// maps to Feb 28 when year is not a leap year.
func sameInstant(t time.Time, year int) time.Time {
	day := t.Day()
	if t.Month() == time.February && day == 29 && !isLeap(year) {
		day = 28
	}
	h, m, sec := t.Clock()
	return time.Date(year, t.Month(), day, h, m, sec, t.Nanosecond(), t.Location())
}

func isLeap(year int) bool {
	return year%4 == 0 && (year%100 != 0 || year%400 == 0)
}

// at returns the value at t, or the last value before t when t is not in the
// index. Instants before the first point take the first value.
func (s Series) at(t time.Time) float64 {
	i := sort.Search(len(s.Index), func(i int) bool { return s.Index[i].After(t) })
	if i == 0 {
		return s.Values[0]
	}
	return s.Values[i-1]
}

func sourceYear(have []int, y int) int {
	src := have[0]
	for _, h := range have {
		if h <= y {
			src = h
		}
	}
	return src
}

// DropExtra returns the points of s whose year is listed in years.
func DropExtra(s Series, years []int) Series {
	keep := make(map[int]struct{}, len(years))
	for _, y := range years {
		keep[y] = struct{}{}
	}
	return s.Select(MaskWhere(s.Index, func(t time.Time) bool {
		_, ok := keep[t.Year()]
		return ok
	}))
}

// GrowDrop fills missing years and drops extra ones, then checks the result
// matches the horizon of years at step exactly. Calling it twice with the same
// arguments returns the same series.
func GrowDrop(s Series, years []int, step time.Duration, rate float64) (Series, error) {
	filled, err := FillExtra(s, years, step, rate)
	if err != nil {
		return Series{}, err
	}
	out := DropExtra(filled, years)
	if err := checkCoverage(out, HorizonIndex(years, step)); err != nil {
		return Series{}, err
	}
	return out, nil
}

// GrowDropMonthly is GrowDrop for monthly series.
func GrowDropMonthly(s Series, years []int, rate float64) (Series, error) {
	filled, err := FillExtraMonthly(s, years, rate)
	if err != nil {
		return Series{}, err
	}
	out := DropExtra(filled, years)
	if err := checkCoverage(out, MonthIndex(years)); err != nil {
		return Series{}, err
	}
	return out, nil
}

func checkCoverage(s Series, want []time.Time) error {
	if len(s.Index) != len(want) {
		return fmt.Errorf("%w: %s has %d points, want %d", ErrCoverage, s.Name, len(s.Index), len(want))
	}
	for i, t := range want {
		if !s.Index[i].Equal(t) {
			return fmt.Errorf("%w: %s has %s where %s was expected", ErrCoverage, s.Name,
				s.Index[i].Format(time.RFC3339), t.Format(time.RFC3339))
		}
	}
	return nil
}
