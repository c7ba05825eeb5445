package eventbus

import "time"

// Event is a telemetry change that may invalidate the current plan.
type Event struct {
	Kind EventKind
	Time time.Time
	// Detail carries kind-specific context for logging.
	Detail string
}

// EventKind names the telemetry changes the coordinator reacts to.
type EventKind string

const (
	// EVPlugChanged fires when the vehicle connects or disconnects.
	EVPlugChanged EventKind = "ev_plug_changed"
	// PricesUpdated fires when a new day-ahead price curve arrives.
	PricesUpdated EventKind = "prices_updated"
	// ForecastUpdated fires when the solar forecast is refreshed.
	ForecastUpdated EventKind = "forecast_updated"
	// RecomputeRequested fires on an explicit user or API request.
	RecomputeRequested EventKind = "recompute_requested"
)
