package metrics

import (
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	coremetrics "github.com/kilianp07/hems/core/metrics"
	"github.com/kilianp07/hems/core/model"
)

func TestPromSinkRecordPass(t *testing.T) {
	reg := prometheus.NewRegistry()
	sink, err := NewPromSinkWithRegistry(reg)
	if err != nil {
		t.Fatalf("create sink: %v", err)
	}

	ev := coremetrics.PassEvent{
		PassID:   "p1",
		Time:     time.Now(),
		Duration: 25 * time.Millisecond,
		Trigger:  "cadence",
		Horizon:  24,
		Result: model.OptimizationResult{
			TotalDeficitKWh: 10.9,
			CycleCost:       0.025,
			ChargeHours: []model.PlannedHour{
				{Slot: model.Slot{Date: "2026-09-01", Hour: 3}},
				{Slot: model.Slot{Date: "2026-09-01", Hour: 4}},
			},
			Emergency: true,
		},
	}
	if err := sink.RecordPass(ev); err != nil {
		t.Fatalf("record error: %v", err)
	}

	expected := `
# HELP hems_optimization_passes_total Optimization passes by trigger and outcome
# TYPE hems_optimization_passes_total counter
hems_optimization_passes_total{aborted="false",trigger="cadence"} 1
`
	if err := testutil.CollectAndCompare(sink.passes, strings.NewReader(expected)); err != nil {
		t.Errorf("unexpected metrics: %v", err)
	}
	if got := testutil.ToFloat64(sink.deficit); got != 10.9 {
		t.Errorf("deficit gauge = %v, want 10.9", got)
	}
	if got := testutil.ToFloat64(sink.planned.WithLabelValues("charge")); got != 2 {
		t.Errorf("planned charge gauge = %v, want 2", got)
	}
	if got := testutil.ToFloat64(sink.emergency); got != 1 {
		t.Errorf("emergency counter = %v, want 1", got)
	}
}

func TestPromSinkAbortedPassSkipsPlanGauges(t *testing.T) {
	reg := prometheus.NewRegistry()
	sink, err := NewPromSinkWithRegistry(reg)
	if err != nil {
		t.Fatalf("create sink: %v", err)
	}
	ev := coremetrics.PassEvent{Trigger: "mqtt", Aborted: true, Err: "no prices"}
	if err := sink.RecordPass(ev); err != nil {
		t.Fatalf("record error: %v", err)
	}
	if got := testutil.ToFloat64(sink.passes.WithLabelValues("mqtt", "true")); got != 1 {
		t.Errorf("aborted counter = %v, want 1", got)
	}
	if got := testutil.ToFloat64(sink.deficit); got != 0 {
		t.Errorf("deficit gauge touched on aborted pass: %v", got)
	}
}

func TestPromSinkRecordModeChange(t *testing.T) {
	reg := prometheus.NewRegistry()
	sink, err := NewPromSinkWithRegistry(reg)
	if err != nil {
		t.Fatalf("create sink: %v", err)
	}
	for _, m := range []string{"charge", "charge", "auto"} {
		if err := sink.RecordModeChange(coremetrics.ModeChange{Time: time.Now(), Mode: m}); err != nil {
			t.Fatalf("record error: %v", err)
		}
	}
	if got := testutil.ToFloat64(sink.modes.WithLabelValues("charge")); got != 2 {
		t.Errorf("mode counter = %v, want 2", got)
	}
}

func TestPromSinkDoubleRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	if _, err := NewPromSinkWithRegistry(reg); err != nil {
		t.Fatalf("first registration: %v", err)
	}
	if _, err := NewPromSinkWithRegistry(reg); err != nil {
		t.Fatalf("second registration must tolerate existing collectors: %v", err)
	}
}
