package model

import "testing"

func TestVehicleEffectiveCapacity(t *testing.T) {
	v := Vehicle{MaxPower: 50, AvailabilityProb: 0.5, DegradationFactor: 0.2}
	// 50*(1-0.2)*0.5 = 20
	if got := v.EffectiveCapacity(); got != 20 {
		t.Fatalf("expected 20 got %v", got)
	}
}

func TestVehicleQualifyingCapacity(t *testing.T) {
	v := Vehicle{Name: "ev1", IsV2G: true, MaxPower: 10, SoC: 0.75, MinSoC: 0.25, BatteryKWh: 60}
	// energy above min: 30 kWh over 4h = 7.5 kW < 10 kW
	if got := v.QualifyingCapacity(4); got != 7.5 {
		t.Fatalf("expected 7.5 got %v", got)
	}
	if got := v.QualifyingCapacity(1); got != 10 {
		t.Fatalf("expected power limit 10 got %v", got)
	}
	v.IsV2G = false
	if got := v.QualifyingCapacity(4); got != 0 {
		t.Fatalf("expected 0 for non V2G got %v", got)
	}
}

func TestVehicleValidate(t *testing.T) {
	if err := (Vehicle{BatteryKWh: 0}).Validate(); err == nil {
		t.Fatal("expected error for empty battery")
	}
	if err := (Vehicle{BatteryKWh: 40, SoC: 1.2}).Validate(); err == nil {
		t.Fatal("expected error for soc above 1")
	}
}
