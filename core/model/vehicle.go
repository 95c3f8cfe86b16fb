package model

import (
	"fmt"
	"math"
)

// Vehicle is a plugged-in electric vehicle that can discharge to the grid.
type Vehicle struct {
	Name       string  `json:"name"`
	SoC        float64 `json:"soc"`         // State of charge between 0 and 1
	MinSoC     float64 `json:"min_soc"`     // SoC the driver must keep
	IsV2G      bool    `json:"v2g"`         // true if vehicle supports V2G
	MaxPower   float64 `json:"max_power"`   // max power in kW the vehicle can provide or consume
	BatteryKWh float64 `json:"battery_kwh"` // total battery capacity in kWh

	// AvailabilityProb represents the probability the vehicle stays connected
	// through an event. Zero is treated as 1.
	AvailabilityProb float64 `json:"availability_prob"`

	// DegradationFactor estimates the fraction of power capability lost to
	// battery ageing or temperature. 0 means no degradation.
	DegradationFactor float64 `json:"degradation_factor"`
}

// Validate checks that the vehicle configuration is sound.
func (v Vehicle) Validate() error {
	if v.BatteryKWh <= 0 {
		return fmt.Errorf("vehicle %s: battery capacity must be positive", v.Name)
	}
	if v.SoC < 0 || v.SoC > 1 || v.MinSoC < 0 || v.MinSoC > 1 {
		return fmt.Errorf("vehicle %s: soc values must be within [0,1]", v.Name)
	}
	return nil
}

func (v Vehicle) ID() string { return v.Name }

// EffectiveCapacity returns the power the vehicle can deliver after
// degradation and availability are applied.
func (v Vehicle) EffectiveCapacity() float64 {
	avail := v.AvailabilityProb
	if avail == 0 {
		avail = 1
	}
	degr := math.Min(math.Max(v.DegradationFactor, 0), 1)
	return v.MaxPower * (1 - degr) * avail
}

// QualifyingCapacity is zero for vehicles without V2G; otherwise the
// effective power limited by the energy above MinSoC spread over the event.
func (v Vehicle) QualifyingCapacity(length float64) float64 {
	if !v.IsV2G {
		return 0
	}
	power := v.EffectiveCapacity()
	if length <= 0 {
		return power
	}
	energy := math.Max(0, v.SoC-v.MinSoC) * v.BatteryKWh
	return math.Min(power, energy/length)
}

func (v Vehicle) DischargeRating() float64 {
	if !v.IsV2G {
		return 0
	}
	return v.EffectiveCapacity()
}

func (v Vehicle) ChargeRating() float64 { return v.MaxPower }
