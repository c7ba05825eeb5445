package model

import "fmt"

// BatteryState describes the stationary battery at an evaluation instant.
type BatteryState struct {
	SoC                 float64 `json:"soc"`          // percent, 0-100
	CapacityKWh         float64 `json:"capacity_kwh"` // total capacity
	MinSoC              float64 `json:"min_soc"`      // reserved floor, percent
	MaxChargePowerKW    float64 `json:"max_charge_power_kw"`
	MaxDischargePowerKW float64 `json:"max_discharge_power_kw"` // falls back to charge power when zero
	Cost                float64 `json:"cost"`                   // purchase price, used for wear amortization
	RatedCycles         int     `json:"rated_cycles"`
}

// Validate checks that the battery configuration is sound.
func (b BatteryState) Validate() error {
	if b.CapacityKWh <= 0 {
		return fmt.Errorf("battery capacity must be positive")
	}
	if b.MinSoC < 0 || b.MinSoC > 100 {
		return fmt.Errorf("battery min_soc must be within 0-100")
	}
	if b.SoC < 0 || b.SoC > 100 {
		return fmt.Errorf("battery soc must be within 0-100")
	}
	return nil
}

// UsableKWh returns the energy stored above the reserved floor, never negative.
func (b BatteryState) UsableKWh() float64 {
	u := b.CapacityKWh * (b.SoC - b.MinSoC) / 100
	if u < 0 {
		return 0
	}
	return u
}

// UsableCapacityKWh returns the maximum energy the battery can hold above the
// reserved floor.
func (b BatteryState) UsableCapacityKWh() float64 {
	return b.CapacityKWh * (100 - b.MinSoC) / 100
}

// DischargePowerKW returns the discharge power limit, defaulting to the charge
// limit when not configured.
func (b BatteryState) DischargePowerKW() float64 {
	if b.MaxDischargePowerKW > 0 {
		return b.MaxDischargePowerKW
	}
	return b.MaxChargePowerKW
}
