package model

// Action is the abstract intent stored in a schedule entry. The built-in
// actions are resolved to an inverter mode at execution time; any other value
// is treated as an explicit inverter mode and applied verbatim.
type Action string

const (
	ActionCharge    Action = "charge"
	ActionDischarge Action = "discharge"
	ActionSolarOnly Action = "solar_only"
	ActionGridOnly  Action = "grid_only"
	ActionDefault   Action = "default"
)

// SoCLimitType selects the direction in which a SoC limit terminates an entry.
type SoCLimitType string

const (
	// SoCLimitMax stops a charging entry once SoC >= limit.
	SoCLimitMax SoCLimitType = "max"
	// SoCLimitMin stops a discharging entry once SoC <= limit.
	SoCLimitMin SoCLimitType = "min"
	// SoCLimitAuto lets the executor detect the direction from live SoC.
	SoCLimitAuto SoCLimitType = ""
)

// ScheduleEntry is one persisted hour of the plan. Key = (date, hour), unique.
// Entries with Manual set are owned by the user and survive recomputes.
type ScheduleEntry struct {
	Slot
	Action       Action       `json:"action"`
	SoCLimit     *int         `json:"soc_limit,omitempty"`
	SoCLimitType SoCLimitType `json:"soc_limit_type,omitempty"`
	FullHour     bool         `json:"full_hour,omitempty"`
	Minutes      int          `json:"minutes,omitempty"` // 0 means no minute cap
	EVCharging   bool         `json:"ev_charging,omitempty"`
	Manual       bool         `json:"manual,omitempty"`
}
