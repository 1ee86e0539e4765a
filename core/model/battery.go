package model

// Battery is one storage unit. StoredKWh always stays in [0, CapacityKWh].
type Battery struct {
	ID             string  `json:"id"`
	CapacityKWh    float64 `json:"capacity_kwh"`
	StoredKWh      float64 `json:"stored_kwh"`
	MaxChargeKW    float64 `json:"max_charge_kw"`
	MaxDischargeKW float64 `json:"max_discharge_kw"`
}

// Room returns the energy the battery can still absorb.
func (b Battery) Room() float64 {
	r := b.CapacityKWh - b.StoredKWh
	if r < 0 {
		return 0
	}
	return r
}

// SoC returns the state of charge in [0,1].
func (b Battery) SoC() float64 {
	if b.CapacityKWh <= 0 {
		return 0
	}
	return Clamp(b.StoredKWh/b.CapacityKWh, 0, 1)
}

// BatterySpec holds the parameters used to create a battery.
type BatterySpec struct {
	CapacityKWh    float64 `json:"capacity_kwh" yaml:"capacity_kwh"`
	MaxChargeKW    float64 `json:"max_charge_kw" yaml:"max_charge_kw"`
	MaxDischargeKW float64 `json:"max_discharge_kw" yaml:"max_discharge_kw"`
	InitialKWh     float64 `json:"initial_kwh" yaml:"initial_kwh"`
}
