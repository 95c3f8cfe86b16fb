package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strconv"
	"time"

	"github.com/kilianp07/derval/core/model"
	"github.com/kilianp07/derval/core/timeseries"
)

// Supported output formats.
const (
	FormatCSV  = "csv"
	FormatJSON = "json"
)

// ValidFormat reports whether f is a supported output format.
func ValidFormat(f string) bool { return f == FormatCSV || f == FormatJSON }

// WriteFrame writes f to w in the given format.
func WriteFrame(w io.Writer, format string, f *timeseries.Frame) error {
	switch format {
	case FormatCSV:
		return WriteFrameCSV(w, f)
	case FormatJSON:
		return WriteFrameJSON(w, f)
	}
	return fmt.Errorf("unsupported export format %q", format)
}

// WriteRequirements writes reqs to w in the given format.
func WriteRequirements(w io.Writer, format string, reqs []model.Requirement) error {
	switch format {
	case FormatCSV:
		return WriteRequirementsCSV(w, reqs)
	case FormatJSON:
		return WriteRequirementsJSON(w, reqs)
	}
	return fmt.Errorf("unsupported export format %q", format)
}

// WriteFrameCSV writes the frame with its index label as first header. NaN
// cells are left empty.
func WriteFrameCSV(w io.Writer, f *timeseries.Frame) error {
	cw := csv.NewWriter(w)
	cols := f.Columns()
	if err := cw.Write(append([]string{f.IndexLabel}, cols...)); err != nil {
		return err
	}
	data := columns(f, cols)
	for i, t := range f.Index {
		rec := make([]string, 0, len(cols)+1)
		rec = append(rec, t.Format(f.IndexLayout))
		for _, c := range data {
			rec = append(rec, formatFloat(c[i]))
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

type frameJSON struct {
	IndexLabel string                `json:"index_label"`
	Index      []string              `json:"index"`
	Columns    []string              `json:"columns"`
	Data       map[string][]*float64 `json:"data"`
}

// WriteFrameJSON writes the frame column-wise. NaN cells become null.
func WriteFrameJSON(w io.Writer, f *timeseries.Frame) error {
	cols := f.Columns()
	out := frameJSON{
		IndexLabel: f.IndexLabel,
		Index:      make([]string, len(f.Index)),
		Columns:    cols,
		Data:       make(map[string][]*float64, len(cols)),
	}
	for i, t := range f.Index {
		out.Index[i] = t.Format(f.IndexLayout)
	}
	for k, c := range columns(f, cols) {
		vals := make([]*float64, len(c))
		for i := range c {
			if !math.IsNaN(c[i]) {
				v := c[i]
				vals[i] = &v
			}
		}
		out.Data[cols[k]] = vals
	}
	enc := json.NewEncoder(w)
	return enc.Encode(out)
}

// WriteRequirementsCSV writes one row per bounded timestamp.
func WriteRequirementsCSV(w io.Writer, reqs []model.Requirement) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"source", "kind", "direction", "timestamp", "value"}); err != nil {
		return err
	}
	for _, r := range reqs {
		s := r.Series()
		for i, t := range s.Index {
			rec := []string{
				r.Source(),
				string(r.Kind()),
				string(r.Direction()),
				t.Format(time.RFC3339),
				formatFloat(s.Values[i]),
			}
			if err := cw.Write(rec); err != nil {
				return err
			}
		}
	}
	cw.Flush()
	return cw.Error()
}

// RequirementRecord is the JSON form of a requirement.
type RequirementRecord struct {
	Source    string      `json:"source"`
	Kind      string      `json:"kind"`
	Direction string      `json:"direction"`
	Index     []time.Time `json:"index"`
	Values    []float64   `json:"values"`
}

// RequirementRecords converts requirements to their JSON form. Empty
// requirements get empty, non-nil slices.
func RequirementRecords(reqs []model.Requirement) []RequirementRecord {
	out := make([]RequirementRecord, len(reqs))
	for i, r := range reqs {
		s := r.Series()
		out[i] = RequirementRecord{
			Source:    r.Source(),
			Kind:      string(r.Kind()),
			Direction: string(r.Direction()),
			Index:     s.Index,
			Values:    s.Values,
		}
		if out[i].Index == nil {
			out[i].Index = []time.Time{}
			out[i].Values = []float64{}
		}
	}
	return out
}

// WriteRequirementsJSON writes the requirements as a JSON array.
func WriteRequirementsJSON(w io.Writer, reqs []model.Requirement) error {
	return json.NewEncoder(w).Encode(RequirementRecords(reqs))
}

func columns(f *timeseries.Frame, cols []string) [][]float64 {
	data := make([][]float64, len(cols))
	for i, c := range cols {
		data[i], _ = f.Column(c)
	}
	return data
}

func formatFloat(v float64) string {
	if math.IsNaN(v) {
		return ""
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}
