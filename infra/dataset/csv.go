// Package dataset loads the scenario input tables.
//
// The time-series table has a timestamp in its first column (hour beginning)
// followed by named numeric columns. The monthly table starts with "Year" and
// "Month" columns. Empty cells are read as NaN.
package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/kilianp07/derval/core/timeseries"
)

// ErrFormat reports a malformed input table.
var ErrFormat = errors.New("dataset format error")

var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02T15:04:05",
	"1/2/2006 15:04",
	"1/2/2006 15:04:05",
	"01/02/2006 15:04",
}

// ParseTime parses a timestamp in one of the accepted layouts as UTC.
func ParseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timeLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: unrecognized timestamp %q", ErrFormat, s)
}

// LoadTimeSeries reads the time-series table at path.
func LoadTimeSeries(path string) (*timeseries.Frame, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	frame, err := ReadTimeSeries(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return frame, nil
}

// ReadTimeSeries parses a time-series table. Rows are sorted by timestamp and
// duplicated timestamps are rejected.
func ReadTimeSeries(r io.Reader) (*timeseries.Frame, error) {
	header, rows, err := readAll(r, 2)
	if err != nil {
		return nil, err
	}
	type row struct {
		t    time.Time
		vals []float64
	}
	parsed := make([]row, len(rows))
	for i, rec := range rows {
		t, err := ParseTime(rec[0])
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", i+2, err)
		}
		vals, err := parseFloats(rec[1:])
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", i+2, err)
		}
		parsed[i] = row{t: t, vals: vals}
	}
	sort.SliceStable(parsed, func(i, j int) bool { return parsed[i].t.Before(parsed[j].t) })
	index := make([]time.Time, len(parsed))
	for i, p := range parsed {
		if i > 0 && p.t.Equal(index[i-1]) {
			return nil, fmt.Errorf("%w: duplicate timestamp %s", ErrFormat, p.t.Format(timeseries.DateTimeLayout))
		}
		index[i] = p.t
	}
	frame := timeseries.NewFrame(index)
	for c, name := range header[1:] {
		col := make([]float64, len(parsed))
		for i, p := range parsed {
			col[i] = p.vals[c]
		}
		if err := frame.Set(name, col); err != nil {
			return nil, err
		}
	}
	return frame, nil
}

// LoadMonthly reads the monthly table at path.
func LoadMonthly(path string) (*timeseries.Frame, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	frame, err := ReadMonthly(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return frame, nil
}

// ReadMonthly parses a monthly table keyed by its "Year" and "Month" columns.
func ReadMonthly(r io.Reader) (*timeseries.Frame, error) {
	header, rows, err := readAll(r, 3)
	if err != nil {
		return nil, err
	}
	if !strings.EqualFold(header[0], "Year") || !strings.EqualFold(header[1], "Month") {
		return nil, fmt.Errorf("%w: monthly table must start with Year and Month columns", ErrFormat)
	}
	type row struct {
		t    time.Time
		vals []float64
	}
	parsed := make([]row, len(rows))
	for i, rec := range rows {
		year, err := strconv.Atoi(strings.TrimSpace(rec[0]))
		if err != nil {
			return nil, fmt.Errorf("line %d: %w: year %q", i+2, ErrFormat, rec[0])
		}
		month, err := strconv.Atoi(strings.TrimSpace(rec[1]))
		if err != nil || month < 1 || month > 12 {
			return nil, fmt.Errorf("line %d: %w: month %q", i+2, ErrFormat, rec[1])
		}
		vals, err := parseFloats(rec[2:])
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", i+2, err)
		}
		parsed[i] = row{t: time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC), vals: vals}
	}
	sort.SliceStable(parsed, func(i, j int) bool { return parsed[i].t.Before(parsed[j].t) })
	index := make([]time.Time, len(parsed))
	for i, p := range parsed {
		if i > 0 && p.t.Equal(index[i-1]) {
			return nil, fmt.Errorf("%w: duplicate month %s", ErrFormat, p.t.Format(timeseries.YearMonthLayout))
		}
		index[i] = p.t
	}
	frame := timeseries.NewMonthlyFrame(index)
	for c, name := range header[2:] {
		col := make([]float64, len(parsed))
		for i, p := range parsed {
			col[i] = p.vals[c]
		}
		if err := frame.Set(name, col); err != nil {
			return nil, err
		}
	}
	return frame, nil
}

func readAll(r io.Reader, minCols int) ([]string, [][]string, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	records, err := cr.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrFormat, err)
	}
	if len(records) == 0 {
		return nil, nil, fmt.Errorf("%w: empty table", ErrFormat)
	}
	header := records[0]
	if len(header) < minCols {
		return nil, nil, fmt.Errorf("%w: expected at least %d columns, got %d", ErrFormat, minCols, len(header))
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}
	header[0] = strings.TrimPrefix(header[0], "\ufeff")
	return header, records[1:], nil
}

func parseFloats(cells []string) ([]float64, error) {
	out := make([]float64, len(cells))
	for i, c := range cells {
		c = strings.TrimSpace(c)
		if c == "" {
			out[i] = math.NaN()
			continue
		}
		v, err := strconv.ParseFloat(c, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: value %q", ErrFormat, c)
		}
		out[i] = v
	}
	return out, nil
}
