package model

import (
	"fmt"
	"math"
)

// DER is a distributed energy resource taking part in a scenario. The
// qualifying capacity is the power in kW it can guarantee over an event of the
// given length in hours.
type DER interface {
	ID() string
	QualifyingCapacity(lengthHours float64) float64
}

// Rated is implemented by resources the dispatch can charge or discharge.
type Rated interface {
	DischargeRating() float64
	ChargeRating() float64
}

// Storage is implemented by resources with a round-trip efficiency.
type Storage interface {
	RoundTripEfficiency() float64
}

// Battery is a stationary energy storage system.
type Battery struct {
	Name        string  `json:"name"`
	DischargeKW float64 `json:"discharge_kw"`
	ChargeKW    float64 `json:"charge_kw"`
	EnergyKWh   float64 `json:"energy_kwh"`
	// MinSoE and MaxSoE bound the usable energy as a fraction of EnergyKWh.
	MinSoE float64 `json:"min_soe"`
	MaxSoE float64 `json:"max_soe"`
	RTE    float64 `json:"rte"`
}

// Validate checks the ratings are coherent.
func (b Battery) Validate() error {
	if b.EnergyKWh <= 0 {
		return fmt.Errorf("battery %s: energy capacity must be positive", b.Name)
	}
	if b.DischargeKW < 0 || b.ChargeKW < 0 {
		return fmt.Errorf("battery %s: ratings must not be negative", b.Name)
	}
	if b.MaxSoE != 0 && b.MaxSoE < b.MinSoE {
		return fmt.Errorf("battery %s: max_soe below min_soe", b.Name)
	}
	return nil
}

func (b Battery) ID() string { return b.Name }

func (b Battery) usableEnergy() float64 {
	hi := b.MaxSoE
	if hi == 0 {
		hi = 1
	}
	return b.EnergyKWh * math.Max(0, hi-b.MinSoE)
}

// QualifyingCapacity is the discharge rating limited by the power the usable
// energy can sustain for the event.
func (b Battery) QualifyingCapacity(length float64) float64 {
	if length <= 0 {
		return b.DischargeKW
	}
	return math.Min(b.DischargeKW, b.usableEnergy()/length)
}

func (b Battery) DischargeRating() float64 { return b.DischargeKW }
func (b Battery) ChargeRating() float64    { return b.ChargeKW }

// RoundTripEfficiency defaults to 1 when unset.
func (b Battery) RoundTripEfficiency() float64 {
	if b.RTE == 0 {
		return 1
	}
	return b.RTE
}

// Generator is a dispatchable conventional generator.
type Generator struct {
	Name     string  `json:"name"`
	RatingKW float64 `json:"rating_kw"`
	Units    int     `json:"units"`
}

func (g Generator) ID() string { return g.Name }

func (g Generator) units() float64 {
	if g.Units <= 0 {
		return 1
	}
	return float64(g.Units)
}

// QualifyingCapacity is the rating of all units.
func (g Generator) QualifyingCapacity(float64) float64 { return g.RatingKW * g.units() }

func (g Generator) DischargeRating() float64 { return g.RatingKW * g.units() }
func (g Generator) ChargeRating() float64    { return 0 }

// PV is an intermittent photovoltaic system.
type PV struct {
	Name     string  `json:"name"`
	RatingKW float64 `json:"rating_kw"`
	// CapacityCredit is the fraction of the rating credited during events.
	CapacityCredit float64 `json:"capacity_credit"`
}

func (p PV) ID() string { return p.Name }

// QualifyingCapacity is the credited share of the rating.
func (p PV) QualifyingCapacity(float64) float64 { return p.RatingKW * p.CapacityCredit }
