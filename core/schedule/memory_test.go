package schedule

import (
	"testing"
	"time"

	"github.com/kilianp07/hems/core/model"
)

func entryAt(date string, hour int, action model.Action) model.ScheduleEntry {
	return model.ScheduleEntry{Slot: model.Slot{Date: date, Hour: hour}, Action: action}
}

func TestMemoryStoreSetHour(t *testing.T) {
	s := NewMemoryStore()
	if err := s.Set(entryAt("2026-09-01", 3, model.ActionCharge)); err != nil {
		t.Fatalf("set: %v", err)
	}
	e, ok, err := s.Hour("2026-09-01", 3)
	if err != nil || !ok {
		t.Fatalf("hour: ok=%v err=%v", ok, err)
	}
	if e.Action != model.ActionCharge {
		t.Fatalf("action = %v", e.Action)
	}
	if _, ok, _ := s.Hour("2026-09-01", 4); ok {
		t.Fatal("unexpected entry")
	}
}

func TestMemoryStoreReplaceAutoPreservesManual(t *testing.T) {
	s := NewMemoryStore()
	manual := entryAt("2026-09-01", 2, model.ActionGridOnly)
	manual.Manual = true
	if err := s.Set(manual); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := s.Set(entryAt("2026-09-01", 5, model.ActionCharge)); err != nil {
		t.Fatalf("set: %v", err)
	}

	err := s.ReplaceAuto([]string{"2026-09-01"}, []model.ScheduleEntry{
		entryAt("2026-09-01", 2, model.ActionCharge), // collides with the manual slot
		entryAt("2026-09-01", 8, model.ActionDischarge),
	})
	if err != nil {
		t.Fatalf("replace: %v", err)
	}

	day, _ := s.Schedule("2026-09-01")
	if got := day[2]; got.Action != model.ActionGridOnly || !got.Manual {
		t.Fatalf("manual slot touched: %+v", got)
	}
	if _, ok := day[5]; ok {
		t.Fatal("stale auto entry survived")
	}
	if got := day[8]; got.Action != model.ActionDischarge {
		t.Fatalf("replacement missing: %+v", got)
	}
}

func TestMemoryStoreReplaceAutoForcesAutoOwnership(t *testing.T) {
	s := NewMemoryStore()
	e := entryAt("2026-09-01", 4, model.ActionCharge)
	e.Manual = true // a recompute result can never claim manual ownership
	if err := s.ReplaceAuto([]string{"2026-09-01"}, []model.ScheduleEntry{e}); err != nil {
		t.Fatalf("replace: %v", err)
	}
	got, _, _ := s.Hour("2026-09-01", 4)
	if got.Manual {
		t.Fatal("replacement entry stored as manual")
	}
}

func TestMemoryStoreManualHours(t *testing.T) {
	s := NewMemoryStore()
	if err := s.Set(entryAt("2026-09-01", 1, model.ActionCharge)); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := s.SetManual("2026-09-01", 1, true); err != nil {
		t.Fatalf("set manual: %v", err)
	}
	hours, _ := s.ManualHours("2026-09-01")
	if !hours[1] || len(hours) != 1 {
		t.Fatalf("manual hours = %v", hours)
	}
	if err := s.SetManual("2026-09-01", 1, false); err != nil {
		t.Fatalf("unset manual: %v", err)
	}
	hours, _ = s.ManualHours("2026-09-01")
	if len(hours) != 0 {
		t.Fatalf("manual hours after unlock = %v", hours)
	}
}

func TestMemoryStoreClear(t *testing.T) {
	s := NewMemoryStore()
	_ = s.Set(entryAt("2026-09-01", 1, model.ActionCharge))
	_ = s.Set(entryAt("2026-09-01", 2, model.ActionCharge))
	if err := s.ClearHour("2026-09-01", 1); err != nil {
		t.Fatalf("clear hour: %v", err)
	}
	if day, _ := s.Schedule("2026-09-01"); len(day) != 1 {
		t.Fatalf("day = %v", day)
	}
	if err := s.ClearDate("2026-09-01"); err != nil {
		t.Fatalf("clear date: %v", err)
	}
	if day, _ := s.Schedule("2026-09-01"); len(day) != 0 {
		t.Fatalf("day after clear = %v", day)
	}
}

func TestMemoryStoreCleanup(t *testing.T) {
	s := NewMemoryStore()
	_ = s.Set(entryAt("2026-08-20", 1, model.ActionCharge))
	_ = s.Set(entryAt("2026-09-01", 1, model.ActionCharge))
	_ = s.Set(entryAt("not-a-date", 1, model.ActionCharge))

	cutoff := time.Date(2026, 8, 25, 0, 0, 0, 0, time.UTC)
	if err := s.Cleanup(cutoff); err != nil {
		t.Fatalf("cleanup: %v", err)
	}
	if day, _ := s.Schedule("2026-08-20"); len(day) != 0 {
		t.Fatal("old date survived")
	}
	if day, _ := s.Schedule("not-a-date"); len(day) != 0 {
		t.Fatal("malformed date survived")
	}
	if day, _ := s.Schedule("2026-09-01"); len(day) != 1 {
		t.Fatal("recent date removed")
	}
}
