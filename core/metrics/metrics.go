package metrics

import (
	"time"

	"github.com/kilianp07/hems/core/model"
)

// PassEvent describes one completed (or aborted) optimization pass.
type PassEvent struct {
	PassID   string
	Time     time.Time
	Duration time.Duration
	Trigger  string
	Horizon  int
	Result   model.OptimizationResult
	Aborted  bool
	Err      string
}

// ModeChange records a concrete inverter mode application.
type ModeChange struct {
	Time time.Time
	Mode string
}

// PlanSink records optimization passes for observability purposes.
type PlanSink interface {
	RecordPass(ev PassEvent) error
}

// ModeRecorder records inverter mode changes. Sinks may implement it in
// addition to PlanSink.
type ModeRecorder interface {
	RecordModeChange(ev ModeChange) error
}

// Config enables the available sinks.
type Config struct {
	PrometheusEnabled bool   `json:"prometheus_enabled"`
	PrometheusPort    string `json:"prometheus_port"`
	InfluxEnabled     bool   `json:"influx_enabled"`
	InfluxURL         string `json:"influx_url"`
	InfluxToken       string `json:"influx_token"`
	InfluxOrg         string `json:"influx_org"`
	InfluxBucket      string `json:"influx_bucket"`
}
