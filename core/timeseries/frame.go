package timeseries

import (
	"fmt"
	"math"
	"time"
)

// Index labels and layouts used when a frame is exported.
const (
	HourBeginning = "Start Datetime (hb)"
	YearMonth     = "Year-Month"
	Year          = "Year"

	DateTimeLayout  = "2006-01-02 15:04:05"
	YearMonthLayout = "2006-01"
	YearLayout      = "2006"
)

// Frame is a set of named float columns sharing one timestamp index. Column
// order is the order in which columns were first set.
type Frame struct {
	Index       []time.Time
	IndexLabel  string
	IndexLayout string

	names []string
	cols  map[string][]float64
}

// NewFrame returns an empty hour-beginning frame over index.
func NewFrame(index []time.Time) *Frame {
	return &Frame{
		Index:       cloneTimes(index),
		IndexLabel:  HourBeginning,
		IndexLayout: DateTimeLayout,
		cols:        make(map[string][]float64),
	}
}

// NewMonthlyFrame returns an empty frame indexed by month.
func NewMonthlyFrame(index []time.Time) *Frame {
	f := NewFrame(index)
	f.IndexLabel = YearMonth
	f.IndexLayout = YearMonthLayout
	return f
}

// NewYearlyFrame returns an empty frame with one row per year.
func NewYearlyFrame(years []int) *Frame {
	idx := make([]time.Time, len(years))
	for i, y := range years {
		idx[i] = time.Date(y, time.January, 1, 0, 0, 0, 0, time.UTC)
	}
	f := NewFrame(idx)
	f.IndexLabel = Year
	f.IndexLayout = YearLayout
	return f
}

// Len returns the number of rows.
func (f *Frame) Len() int { return len(f.Index) }

// Columns returns the column names in insertion order.
func (f *Frame) Columns() []string { return append([]string(nil), f.names...) }

// Has reports whether the column exists.
func (f *Frame) Has(name string) bool {
	_, ok := f.cols[name]
	return ok
}

// Column returns a copy of the named column.
func (f *Frame) Column(name string) ([]float64, bool) {
	c, ok := f.cols[name]
	if !ok {
		return nil, false
	}
	return append([]float64(nil), c...), true
}

// Series returns the named column as a Series.
func (f *Frame) Series(name string) (Series, bool) {
	c, ok := f.cols[name]
	if !ok {
		return Series{}, false
	}
	return Series{Name: name, Index: cloneTimes(f.Index), Values: append([]float64(nil), c...)}, true
}

// Set stores values under name. The length must match the index.
func (f *Frame) Set(name string, values []float64) error {
	if len(values) != len(f.Index) {
		return fmt.Errorf("column %s: %d values for %d rows", name, len(values), len(f.Index))
	}
	if f.cols == nil {
		f.cols = make(map[string][]float64)
	}
	if _, ok := f.cols[name]; !ok {
		f.names = append(f.names, name)
	}
	f.cols[name] = append([]float64(nil), values...)
	return nil
}

// SetFlags stores a boolean column as 0/1 values.
func (f *Frame) SetFlags(name string, flags []bool) error {
	vals := make([]float64, len(flags))
	for i, b := range flags {
		if b {
			vals[i] = 1
		}
	}
	return f.Set(name, vals)
}

// Join left-joins s onto the frame index under s.Name. Rows missing from s are
// NaN.
func (f *Frame) Join(s Series) {
	vals := make([]float64, len(f.Index))
	for i, t := range f.Index {
		if v, ok := s.Lookup(t); ok {
			vals[i] = v
		} else {
			vals[i] = math.NaN()
		}
	}
	_ = f.Set(s.Name, vals)
}

// Merge joins every column of o onto f.
func (f *Frame) Merge(o *Frame) {
	if o == nil {
		return
	}
	for _, name := range o.names {
		s, _ := o.Series(name)
		f.Join(s)
	}
}

// Prefix returns a copy of the frame with every column renamed to
// prefix+" "+name.
func (f *Frame) Prefix(prefix string) *Frame {
	out := &Frame{Index: cloneTimes(f.Index), IndexLabel: f.IndexLabel, IndexLayout: f.IndexLayout, cols: make(map[string][]float64)}
	for _, name := range f.names {
		_ = out.Set(prefix+" "+name, f.cols[name])
	}
	return out
}
