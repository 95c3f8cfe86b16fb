package valuestream

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/kilianp07/derval/core/timeseries"
)

// IDMode selects how resource adequacy peaks are identified.
type IDMode string

const (
	PeakByYear             IDMode = "peak by year"
	PeakByMonth            IDMode = "peak by month"
	PeakByMonthActiveHours IDMode = "peak by month with active hours"
)

// ParseIDMode returns the mode matching s, ignoring case.
func ParseIDMode(s string) (IDMode, error) {
	switch m := IDMode(strings.ToLower(strings.TrimSpace(s))); m {
	case PeakByYear, PeakByMonth, PeakByMonthActiveHours:
		return m, nil
	}
	return "", fmt.Errorf("%w: unknown idmode %q", ErrModelParameter, s)
}

// ActiveHours reports whether the mode restricts peaks to active timestamps.
func (m IDMode) ActiveHours() bool { return m == PeakByMonthActiveHours }

// FindPeaks returns the peak timestamps of load for every calendar year.
// Within a year the load is sorted descending (ties keep series order), only
// the largest timestamp of each calendar day is kept, and then the first days
// candidates of the year (PeakByYear) or of each month are taken. active is
// only consulted in active-hours mode and must be aligned with load.
func FindPeaks(load timeseries.Series, active []bool, mode IDMode, days int) []time.Time {
	if days <= 0 {
		return nil
	}
	var peaks []time.Time
	for _, year := range load.Years() {
		var cand []int
		for i, t := range load.Index {
			if t.Year() != year {
				continue
			}
			if mode.ActiveHours() && (i >= len(active) || !active[i]) {
				continue
			}
			cand = append(cand, i)
		}
		sort.SliceStable(cand, func(a, b int) bool {
			va, vb := load.Values[cand[a]], load.Values[cand[b]]
			if math.IsNaN(va) {
				return false
			}
			return math.IsNaN(vb) || va > vb
		})

		seenDay := make(map[string]struct{})
		perMonth := make(map[time.Month]int)
		taken := 0
		for _, i := range cand {
			t := load.Index[i]
			day := t.Format("2006-01-02")
			if _, ok := seenDay[day]; ok {
				continue
			}
			seenDay[day] = struct{}{}
			if mode == PeakByYear {
				if taken >= days {
					break
				}
				taken++
				peaks = append(peaks, t)
				continue
			}
			if perMonth[t.Month()] < days {
				perMonth[t.Month()]++
				peaks = append(peaks, t)
			}
		}
	}
	return peaks
}

// EventSteps splits an event of steps intervals around its peak. The count is
// rounded up to n = ceil(steps). An odd n gives floor(n/2) intervals before the
// peak; an even n gives n/2-1. The remaining intervals, peak included, follow.
func EventSteps(steps float64) (pre, post int) {
	n := int(math.Ceil(steps - 1e-9))
	if n < 1 {
		n = 1
	}
	if n%2 == 1 {
		pre = n / 2
	} else {
		pre = n/2 - 1
	}
	return pre, n - pre
}

// Schedule is the result of placing event windows on a horizon.
type Schedule struct {
	Index     []time.Time
	Intervals []time.Time
	Starts    []time.Time
	InEvent   []bool
	IsStart   []bool
}

// ScheduleEvents places one window of length hours around every peak on the
// horizon index with step dt hours. Windows are clamped to the horizon, so
// edge events are shortened and a peak outside the horizon collapses to the
// nearest boundary timestamp. Overlapping windows are merged.
func ScheduleEvents(index []time.Time, peaks []time.Time, length, dt float64) Schedule {
	sch := Schedule{Index: index, InEvent: make([]bool, len(index)), IsStart: make([]bool, len(index))}
	if len(index) == 0 || dt <= 0 {
		return sch
	}
	pre, post := EventSteps(length / dt)
	step := timeseries.Duration(dt)
	first, last := index[0], index[len(index)-1]

	for _, peak := range peaks {
		start := clampTime(peak.Add(-time.Duration(pre)*step), first, last)
		end := clampTime(peak.Add(time.Duration(post-1)*step), first, last)
		lo := sort.Search(len(index), func(i int) bool { return !index[i].Before(start) })
		if lo >= len(index) || index[lo].After(end) {
			continue
		}
		sch.IsStart[lo] = true
		for i := lo; i < len(index) && !index[i].After(end); i++ {
			sch.InEvent[i] = true
		}
	}
	for i, t := range index {
		if sch.InEvent[i] {
			sch.Intervals = append(sch.Intervals, t)
		}
		if sch.IsStart[i] {
			sch.Starts = append(sch.Starts, t)
		}
	}
	return sch
}

func clampTime(t, lo, hi time.Time) time.Time {
	if t.Before(lo) {
		return lo
	}
	if t.After(hi) {
		return hi
	}
	return t
}
