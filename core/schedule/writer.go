package schedule

import (
	"time"

	"github.com/kilianp07/hems/core/logger"
	"github.com/kilianp07/hems/core/model"
)

// Writer reconciles an optimization result with the persisted schedule. It
// only ever replaces automatic entries; manual locks survive every recompute.
type Writer struct {
	store Store
	log   logger.Logger
}

func NewWriter(store Store, log logger.Logger) *Writer {
	if log == nil {
		log = logger.Nop{}
	}
	return &Writer{store: store, log: log}
}

// Apply commits the plan for the horizon starting at now. Charge hours are
// stored with the abstract charge intent so the concrete inverter mode can be
// resolved from live state at execution time.
func (w *Writer) Apply(now time.Time, horizon int, res model.OptimizationResult, batteryMinSoC float64) error {
	dates := horizonDates(now, horizon)

	entries := make([]model.ScheduleEntry, 0, len(res.ChargeHours)+len(res.DischargeHours)+len(res.SolarHours))
	claimed := make(map[model.Slot]bool)

	full := 100
	minSoC := int(batteryMinSoC)
	for _, h := range res.ChargeHours {
		claimed[h.Slot] = true
		e := model.ScheduleEntry{
			Slot:       h.Slot,
			Action:     model.ActionCharge,
			FullHour:   true,
			EVCharging: h.EVCharging,
		}
		if !h.EVCharging {
			// The EV stop condition terminates EV hours; plain battery hours
			// stop once the battery is full.
			e.SoCLimit = &full
			e.SoCLimitType = model.SoCLimitMax
		}
		entries = append(entries, e)
	}
	for _, h := range res.DischargeHours {
		if claimed[h.Slot] {
			continue
		}
		claimed[h.Slot] = true
		limit := minSoC
		entries = append(entries, model.ScheduleEntry{
			Slot:         h.Slot,
			Action:       model.ActionDischarge,
			SoCLimit:     &limit,
			SoCLimitType: model.SoCLimitMin,
			FullHour:     true,
		})
	}
	for _, h := range res.SolarHours {
		if claimed[h.Slot] {
			continue
		}
		claimed[h.Slot] = true
		entries = append(entries, model.ScheduleEntry{
			Slot:     h.Slot,
			Action:   model.ActionSolarOnly,
			FullHour: true,
		})
	}

	w.logManualConflicts(dates, entries)

	if err := w.store.ReplaceAuto(dates, entries); err != nil {
		return err
	}
	w.log.Infof("applied schedule: %d charge, %d discharge, %d solar hours",
		len(res.ChargeHours), len(res.DischargeHours), len(res.SolarHours))
	return nil
}

// logManualConflicts reports planned entries that will be dropped because a
// manual lock holds their slot.
func (w *Writer) logManualConflicts(dates []string, entries []model.ScheduleEntry) {
	manual := make(map[string]map[int]bool, len(dates))
	for _, d := range dates {
		hours, err := w.store.ManualHours(d)
		if err != nil {
			w.log.Errorf("read manual hours %s: %v", d, err)
			continue
		}
		manual[d] = hours
	}
	for _, e := range entries {
		if manual[e.Date][e.Hour] {
			w.log.Infof("manual lock holds %s, planned %s entry skipped", e.Slot, e.Action)
		}
	}
}

// horizonDates lists the calendar dates covered by [now, now+horizon).
func horizonDates(now time.Time, horizon int) []string {
	seen := map[string]bool{}
	var dates []string
	for i := 0; i < horizon; i++ {
		d := now.Add(time.Duration(i) * time.Hour).Format(model.DateLayout)
		if !seen[d] {
			seen[d] = true
			dates = append(dates, d)
		}
	}
	return dates
}
