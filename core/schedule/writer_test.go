package schedule

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/kilianp07/hems/core/model"
)

type captureLogger struct {
	lines []string
}

func (l *captureLogger) Debugf(string, ...any)         {}
func (l *captureLogger) Debugw(string, map[string]any) {}
func (l *captureLogger) Warnf(string, ...any)          {}
func (l *captureLogger) Errorf(string, ...any)         {}
func (l *captureLogger) Infof(format string, args ...any) {
	l.lines = append(l.lines, fmt.Sprintf(format, args...))
}

func TestWriterApply(t *testing.T) {
	now := time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC)
	store := NewMemoryStore()
	w := NewWriter(store, nil)

	res := model.OptimizationResult{
		ChargeHours: []model.PlannedHour{
			{Slot: model.Slot{Date: "2026-09-01", Hour: 12}, Price: 0.10},
			{Slot: model.Slot{Date: "2026-09-01", Hour: 13}, Price: 0.11, EVCharging: true},
		},
		DischargeHours: []model.PlannedHour{
			{Slot: model.Slot{Date: "2026-09-01", Hour: 19}, Price: 0.30},
		},
		SolarHours: []model.PlannedHour{
			{Slot: model.Slot{Date: "2026-09-01", Hour: 14}, PVKWh: 1.5},
		},
	}
	if err := w.Apply(now, 24, res, 20); err != nil {
		t.Fatalf("apply: %v", err)
	}

	charge, _, _ := store.Hour("2026-09-01", 12)
	if charge.Action != model.ActionCharge || !charge.FullHour {
		t.Fatalf("charge entry: %+v", charge)
	}
	if charge.SoCLimit == nil || *charge.SoCLimit != 100 || charge.SoCLimitType != model.SoCLimitMax {
		t.Fatalf("battery charge must cap at full: %+v", charge)
	}

	evCharge, _, _ := store.Hour("2026-09-01", 13)
	if !evCharge.EVCharging {
		t.Fatalf("ev flag lost: %+v", evCharge)
	}
	if evCharge.SoCLimit != nil {
		t.Fatalf("ev hour must not carry a battery soc limit: %+v", evCharge)
	}

	discharge, _, _ := store.Hour("2026-09-01", 19)
	if discharge.Action != model.ActionDischarge {
		t.Fatalf("discharge entry: %+v", discharge)
	}
	if discharge.SoCLimit == nil || *discharge.SoCLimit != 20 || discharge.SoCLimitType != model.SoCLimitMin {
		t.Fatalf("discharge must stop at the reserve floor: %+v", discharge)
	}

	solar, _, _ := store.Hour("2026-09-01", 14)
	if solar.Action != model.ActionSolarOnly {
		t.Fatalf("solar entry: %+v", solar)
	}
}

func TestWriterApplyChargeWinsOverlap(t *testing.T) {
	now := time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC)
	store := NewMemoryStore()
	w := NewWriter(store, nil)

	slot := model.Slot{Date: "2026-09-01", Hour: 12}
	res := model.OptimizationResult{
		ChargeHours:    []model.PlannedHour{{Slot: slot}},
		DischargeHours: []model.PlannedHour{{Slot: slot}},
		SolarHours:     []model.PlannedHour{{Slot: slot}},
	}
	if err := w.Apply(now, 24, res, 20); err != nil {
		t.Fatalf("apply: %v", err)
	}
	e, _, _ := store.Hour(slot.Date, slot.Hour)
	if e.Action != model.ActionCharge {
		t.Fatalf("precedence violated: %v", e.Action)
	}
}

func TestWriterApplyReplacesPreviousPlan(t *testing.T) {
	now := time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC)
	store := NewMemoryStore()
	w := NewWriter(store, nil)

	stale := model.ScheduleEntry{Slot: model.Slot{Date: "2026-09-01", Hour: 15}, Action: model.ActionCharge}
	if err := store.Set(stale); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := w.Apply(now, 24, model.OptimizationResult{}, 20); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if _, ok, _ := store.Hour("2026-09-01", 15); ok {
		t.Fatal("stale auto entry survived an empty plan")
	}
}

func TestWriterApplyLogsManualConflict(t *testing.T) {
	now := time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC)
	store := NewMemoryStore()
	log := &captureLogger{}
	w := NewWriter(store, log)

	slot := model.Slot{Date: "2026-09-01", Hour: 12}
	locked := model.ScheduleEntry{Slot: slot, Action: model.ActionGridOnly, Manual: true}
	if err := store.Set(locked); err != nil {
		t.Fatalf("set: %v", err)
	}

	res := model.OptimizationResult{ChargeHours: []model.PlannedHour{{Slot: slot}}}
	if err := w.Apply(now, 24, res, 20); err != nil {
		t.Fatalf("apply: %v", err)
	}

	got, _, _ := store.Hour(slot.Date, slot.Hour)
	if got.Action != model.ActionGridOnly || !got.Manual {
		t.Fatalf("manual entry overwritten: %+v", got)
	}
	var logged bool
	for _, line := range log.lines {
		if strings.Contains(line, "manual lock") {
			logged = true
		}
	}
	if !logged {
		t.Fatalf("conflict with the manual lock was not logged: %v", log.lines)
	}
}

func TestHorizonDates(t *testing.T) {
	now := time.Date(2026, 9, 1, 22, 0, 0, 0, time.UTC)
	dates := horizonDates(now, 24)
	if len(dates) != 2 || dates[0] != "2026-09-01" || dates[1] != "2026-09-02" {
		t.Fatalf("dates = %v", dates)
	}
}
