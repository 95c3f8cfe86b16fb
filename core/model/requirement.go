package model

import (
	"fmt"
	"strings"

	"github.com/kilianp07/derval/core/timeseries"
)

// Kind is the quantity a requirement bounds.
type Kind string

const (
	POIImport         Kind = "poi import"
	POIExport         Kind = "poi export"
	DischargeDispatch Kind = "der dispatch discharge"
	ChargeDispatch    Kind = "der dispatch charge"
	Energy            Kind = "energy"
)

// Direction tells whether the series is a lower or an upper bound.
type Direction string

const (
	Min Direction = "min"
	Max Direction = "max"
)

// ParseKind returns the Kind matching s, ignoring case.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(strings.ToLower(strings.TrimSpace(s))); k {
	case POIImport, POIExport, DischargeDispatch, ChargeDispatch, Energy:
		return k, nil
	}
	return "", fmt.Errorf("unknown requirement kind %q", s)
}

// Requirement is a directional, time-indexed bound emitted by a value stream.
// It is never mutated after construction.
type Requirement struct {
	kind      Kind
	direction Direction
	source    string
	series    timeseries.Series
}

// NewRequirement copies series into a new Requirement.
func NewRequirement(kind Kind, dir Direction, source string, series timeseries.Series) Requirement {
	return Requirement{kind: kind, direction: dir, source: source, series: series.Clone()}
}

func (r Requirement) Kind() Kind           { return r.kind }
func (r Requirement) Direction() Direction { return r.direction }
func (r Requirement) Source() string       { return r.source }

// Series returns a copy of the bound values.
func (r Requirement) Series() timeseries.Series { return r.series.Clone() }

// Len returns the number of bounded timestamps.
func (r Requirement) Len() int { return r.series.Len() }

func (r Requirement) String() string {
	return fmt.Sprintf("%s %s %s (%d points)", r.source, r.kind, r.direction, r.series.Len())
}
