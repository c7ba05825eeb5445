package executor

import (
	"github.com/kilianp07/hems/core/model"
	"github.com/kilianp07/hems/core/optimizer"
)

// ModeMap binds abstract schedule actions to the inverter's mode names.
type ModeMap struct {
	ChargeBattery      string `json:"charge_battery"`
	ChargeEV           string `json:"charge_ev"`
	ChargeEVAndBattery string `json:"charge_ev_and_battery"`
	Sell               string `json:"sell"`
	SellSolarOnly      string `json:"sell_solar_only"`
	GridOnly           string `json:"grid_only"`
	Default            string `json:"default"`
}

// LiveState is the sensor snapshot used to resolve a stored action at
// execution time.
type LiveState struct {
	EVEnabled   bool
	EVConnected bool
	BatterySoC  float64
}

// ResolveAction maps a stored abstract action to a concrete inverter mode.
// Charge intent resolves through the live decision table; unknown actions are
// treated as explicit inverter modes and returned verbatim.
func ResolveAction(action model.Action, live LiveState, modes ModeMap) string {
	switch action {
	case model.ActionCharge:
		switch optimizer.ResolveChargeMode(live.EVEnabled, live.EVConnected, live.BatterySoC >= 100) {
		case model.ModeEVOnly:
			return modes.ChargeEV
		case model.ModeEVAndBattery:
			return modes.ChargeEVAndBattery
		default:
			return modes.ChargeBattery
		}
	case model.ActionDischarge:
		return modes.Sell
	case model.ActionSolarOnly:
		return modes.SellSolarOnly
	case model.ActionGridOnly:
		return modes.GridOnly
	case model.ActionDefault:
		return modes.Default
	default:
		return string(action)
	}
}
