package model

import "fmt"

// EVState describes the optional electric vehicle capability. When Enabled is
// false the remaining fields are meaningless and must not be consulted;
// planner code receives EV data as a nil-able capability instead of checking
// individual fields.
type EVState struct {
	Enabled          bool       `json:"enabled"`
	Connected        bool       `json:"connected"`
	SoC              float64    `json:"soc"` // percent, 0-100
	CapacityKWh      float64    `json:"capacity_kwh"`
	MaxChargePowerKW float64    `json:"max_charge_power_kw"`
	TargetSoC        float64    `json:"target_soc"` // percent
	ReadyBy          *TimeOfDay `json:"ready_by,omitempty"`
}

// Validate checks the EV configuration. Disabled EVs are always valid.
func (e EVState) Validate() error {
	if !e.Enabled {
		return nil
	}
	if e.CapacityKWh <= 0 {
		return fmt.Errorf("ev capacity must be positive")
	}
	if e.TargetSoC <= 0 || e.TargetSoC > 100 {
		return fmt.Errorf("ev target_soc must be within 0-100")
	}
	return nil
}

// NeedKWh returns the energy required to reach the target SoC, never negative.
func (e EVState) NeedKWh() float64 {
	n := e.CapacityKWh * (e.TargetSoC - e.SoC) / 100
	if n < 0 {
		return 0
	}
	return n
}

// ChargeMode is the concrete inverter behaviour a stored Charge action
// resolves to at execution time.
type ChargeMode string

const (
	ModeBatteryOnly  ChargeMode = "battery_only"
	ModeEVAndBattery ChargeMode = "ev_and_battery"
	ModeEVOnly       ChargeMode = "ev_only"
)
