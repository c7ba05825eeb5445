package optimizer

import "fmt"

// Config defines planning parameters loaded from configuration.
type Config struct {
	// AvgConsumptionKW is the assumed household baseline load.
	AvgConsumptionKW float64 `json:"avg_consumption_kw"`
	// MaxGridPowerKW caps the combined charge power drawn from the grid.
	MaxGridPowerKW float64 `json:"max_grid_power_kw"`
	// HoursAhead is the default planning horizon.
	HoursAhead int `json:"hours_ahead"`
	// SolarThresholdKWh is the minimum hourly forecast for an hour to count
	// as a solar-only hour.
	SolarThresholdKWh float64 `json:"solar_threshold_kwh"`
	// NightStartHour/NightEndHour bound the window excluded from charging
	// when tomorrow's PV forecast makes night charging unnecessary.
	NightStartHour int `json:"night_start_hour"`
	NightEndHour   int `json:"night_end_hour"`
	// SkipNightMargin is the PV surplus factor required to skip night charging.
	SkipNightMargin float64 `json:"skip_night_margin"`
}

// MinHorizon and MaxHorizon bound the accepted planning horizon.
const (
	MinHorizon = 12
	MaxHorizon = 48
)

// SetDefaults applies sane defaults.
func (c *Config) SetDefaults() {
	if c.AvgConsumptionKW == 0 {
		c.AvgConsumptionKW = 0.6
	}
	if c.MaxGridPowerKW == 0 {
		c.MaxGridPowerKW = 15
	}
	if c.HoursAhead == 0 {
		c.HoursAhead = 24
	}
	if c.SolarThresholdKWh == 0 {
		c.SolarThresholdKWh = 0.1
	}
	if c.NightStartHour == 0 {
		c.NightStartHour = 22
	}
	if c.NightEndHour == 0 {
		c.NightEndHour = 6
	}
	if c.SkipNightMargin == 0 {
		c.SkipNightMargin = 1.2
	}
}

// Validate checks mandatory fields.
func (c Config) Validate() error {
	if c.AvgConsumptionKW < 0 {
		return fmt.Errorf("avg_consumption_kw must not be negative")
	}
	if c.MaxGridPowerKW <= 0 {
		return fmt.Errorf("max_grid_power_kw must be positive")
	}
	if c.HoursAhead < MinHorizon || c.HoursAhead > MaxHorizon {
		return fmt.Errorf("hours_ahead must be within %d-%d", MinHorizon, MaxHorizon)
	}
	return nil
}

// ClampHorizon constrains a requested horizon to the supported range.
func ClampHorizon(hours int) int {
	if hours < MinHorizon {
		return MinHorizon
	}
	if hours > MaxHorizon {
		return MaxHorizon
	}
	return hours
}
