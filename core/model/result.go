package model

// PlannedHour is one hour selected by the optimizer, with the price data that
// justified the selection.
type PlannedHour struct {
	Slot
	Price          float64 `json:"price"`                     // raw market price
	EffectivePrice float64 `json:"effective_price,omitempty"` // price + cycle cost (charge hours)
	Profit         float64 `json:"profit,omitempty"`          // expected margin (discharge hours)
	PVKWh          float64 `json:"pv_kwh,omitempty"`          // forecast production (solar hours)
	EVCharging     bool    `json:"ev_charging,omitempty"`
	Emergency      bool    `json:"emergency,omitempty"`
}

// OptimizationResult is the outcome of one full planning pass.
type OptimizationResult struct {
	ChargeHours    []PlannedHour `json:"charge_hours"`
	DischargeHours []PlannedHour `json:"discharge_hours"`
	SolarHours     []PlannedHour `json:"solar_hours"`

	Emergency       bool   `json:"emergency"`
	EmergencyReason string `json:"emergency_reason,omitempty"`
	EVUrgent        bool   `json:"ev_urgent"`
	EVUrgentReason  string `json:"ev_urgent_reason,omitempty"`
	SkipNightCharge bool   `json:"skip_night_charge"`

	TotalDeficitKWh float64  `json:"total_deficit_kwh"`
	CycleCost       float64  `json:"cycle_cost"`
	Warnings        []string `json:"warnings,omitempty"`
}
