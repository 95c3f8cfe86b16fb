package valuestream

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/kilianp07/derval/core/model"
	"github.com/kilianp07/derval/core/timeseries"
)

var (
	// ErrDuplicateIndex is returned when solved values are appended for a
	// timestamp that already has a row.
	ErrDuplicateIndex = errors.New("timestamp already saved")
	// ErrRequirementsFinished is returned by RequirementSet.Add after Finish.
	ErrRequirementsFinished = errors.New("requirement set already finished")
)

// Results accumulates the solved variable values of one stream across
// sub-windows. Rows are only ever appended.
type Results struct {
	index []time.Time
	seen  map[int64]struct{}
	names []string
	cols  map[string][]float64
}

// NewResults returns an empty accumulator.
func NewResults() *Results {
	return &Results{seen: make(map[int64]struct{}), cols: make(map[string][]float64)}
}

// Append adds one row per timestamp of index. Columns missing from cols, nil
// columns and columns first seen now are NaN filled for the rows that lack
// them.
func (r *Results) Append(index []time.Time, cols map[string][]float64) error {
	batch := make(map[int64]struct{}, len(index))
	for _, t := range index {
		k := t.UnixNano()
		if _, ok := r.seen[k]; ok {
			return fmt.Errorf("%w: %s", ErrDuplicateIndex, t.Format(time.RFC3339))
		}
		if _, ok := batch[k]; ok {
			return fmt.Errorf("%w: %s repeated in window", ErrDuplicateIndex, t.Format(time.RFC3339))
		}
		batch[k] = struct{}{}
	}
	for name, vals := range cols {
		if vals != nil && len(vals) != len(index) {
			return fmt.Errorf("column %s: %d values for %d timestamps", name, len(vals), len(index))
		}
	}

	prev := len(r.index)
	var added []string
	for name := range cols {
		if _, ok := r.cols[name]; !ok {
			added = append(added, name)
		}
	}
	sort.Strings(added)
	for _, name := range added {
		r.names = append(r.names, name)
		r.cols[name] = nans(prev)
	}
	for _, name := range r.names {
		vals := cols[name]
		if vals == nil {
			vals = nans(len(index))
		}
		r.cols[name] = append(r.cols[name], vals...)
	}
	for k := range batch {
		r.seen[k] = struct{}{}
	}
	r.index = append(r.index, index...)
	return nil
}

// Len returns the number of saved rows.
func (r *Results) Len() int { return len(r.index) }

// Index returns a copy of the saved timestamps in append order.
func (r *Results) Index() []time.Time { return append([]time.Time(nil), r.index...) }

// Columns returns the column names.
func (r *Results) Columns() []string { return append([]string(nil), r.names...) }

// Column returns the named column as a Series.
func (r *Results) Column(name string) (timeseries.Series, bool) {
	c, ok := r.cols[name]
	if !ok {
		return timeseries.Series{}, false
	}
	return timeseries.Series{Name: name, Index: r.Index(), Values: append([]float64(nil), c...)}, true
}

// Frame returns all columns as a frame.
func (r *Results) Frame() *timeseries.Frame {
	f := timeseries.NewFrame(r.index)
	for _, n := range r.names {
		_ = f.Set(n, r.cols[n])
	}
	return f
}

func nans(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}

// RequirementSet collects the requirements of one scenario run. It is owned by
// the caller and handed to every stream in turn.
type RequirementSet struct {
	reqs     []model.Requirement
	finished bool
}

// NewRequirementSet returns an empty set.
func NewRequirementSet() *RequirementSet { return &RequirementSet{} }

// Add appends r to the set.
func (s *RequirementSet) Add(r model.Requirement) error {
	if s.finished {
		return ErrRequirementsFinished
	}
	s.reqs = append(s.reqs, r)
	return nil
}

// Len returns the number of collected requirements.
func (s *RequirementSet) Len() int { return len(s.reqs) }

// Finish closes the set and returns its requirements in insertion order.
func (s *RequirementSet) Finish() []model.Requirement {
	s.finished = true
	return append([]model.Requirement(nil), s.reqs...)
}
