package optimizer

import (
	"testing"
	"time"

	"github.com/kilianp07/hems/core/model"
)

func pricesAt(now time.Time, values map[int]float64) []model.PricePoint {
	var points []model.PricePoint
	for offset, v := range values {
		points = append(points, model.PricePoint{
			Slot:  model.SlotAt(now.Add(time.Duration(offset) * time.Hour)),
			Value: v,
		})
	}
	return points
}

func TestBuildCandidatesSortsByEffectivePrice(t *testing.T) {
	now := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	buy := pricesAt(now, map[int]float64{1: 0.30, 2: 0.10, 3: 0.20})
	cands := buildCandidates(now, 24, buy, 0.05)
	if len(cands) != 3 {
		t.Fatalf("expected 3 candidates, got %d", len(cands))
	}
	if cands[0].slot.Hour != 2 || cands[1].slot.Hour != 3 || cands[2].slot.Hour != 1 {
		t.Fatalf("wrong order: %d %d %d", cands[0].slot.Hour, cands[1].slot.Hour, cands[2].slot.Hour)
	}
	if cands[0].effective != 0.15 {
		t.Fatalf("effective = %v, want raw+cycle", cands[0].effective)
	}
}

func TestBuildCandidatesTieBreakEarlierHour(t *testing.T) {
	now := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	buy := pricesAt(now, map[int]float64{5: 0.10, 2: 0.10, 8: 0.10})
	cands := buildCandidates(now, 24, buy, 0)
	if cands[0].slot.Hour != 2 || cands[1].slot.Hour != 5 || cands[2].slot.Hour != 8 {
		t.Fatalf("tie not broken by earlier hour: %d %d %d",
			cands[0].slot.Hour, cands[1].slot.Hour, cands[2].slot.Hour)
	}
}

func TestBuildCandidatesExcludesCurrentAndPastHours(t *testing.T) {
	now := time.Date(2026, 9, 1, 12, 30, 0, 0, time.UTC)
	buy := pricesAt(now, map[int]float64{-2: 0.01, 0: 0.01, 1: 0.20})
	cands := buildCandidates(now, 24, buy, 0)
	if len(cands) != 1 || cands[0].slot.Hour != 13 {
		t.Fatalf("expected only the next hour, got %+v", cands)
	}
}

func TestBuildCandidatesHorizonBound(t *testing.T) {
	now := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	buy := pricesAt(now, map[int]float64{11: 0.10, 13: 0.05})
	cands := buildCandidates(now, 12, buy, 0)
	if len(cands) != 1 || cands[0].slot.Hour != 11 {
		t.Fatalf("horizon bound not applied: %+v", cands)
	}
}

func TestDropNightHoursWrapsMidnight(t *testing.T) {
	now := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	buy := pricesAt(now, map[int]float64{23: 0.1, 2: 0.1, 5: 0.1, 6: 0.1, 12: 0.1, 21: 0.1})
	cands := buildCandidates(now, 24, buy, 0)
	kept := dropNightHours(cands, 22, 6)
	hours := map[int]bool{}
	for _, c := range kept {
		hours[c.slot.Hour] = true
	}
	for _, h := range []int{23, 2, 5} {
		if hours[h] {
			t.Fatalf("night hour %d survived the filter", h)
		}
	}
	for _, h := range []int{6, 12, 21} {
		if !hours[h] {
			t.Fatalf("day hour %d was dropped", h)
		}
	}
}

func TestShouldSkipNightCharge(t *testing.T) {
	now := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	forecast := model.ZeroForecast(now, 24)
	for i := range forecast {
		if forecast[i].Hour >= 8 && forecast[i].Hour < 16 {
			forecast[i].KWh = 1.5 // 12 kWh daylight total
		}
	}
	// Threshold is 12h * avg * margin.
	if !shouldSkipNightCharge(forecast, 0.6, 1.2) { // threshold 8.64
		t.Fatal("abundant daylight PV should skip night charging")
	}
	if shouldSkipNightCharge(forecast, 2.0, 1.2) { // threshold 28.8
		t.Fatal("high consumption should keep night charging")
	}
	if shouldSkipNightCharge(nil, 0.1, 1.2) {
		t.Fatal("empty forecast should never skip night charging")
	}
}

func TestSelectDischargeHours(t *testing.T) {
	now := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	cycleCost := 0.02
	minEffective := 0.10
	threshold := minEffective + 2*cycleCost // 0.14

	sell := pricesAt(now, map[int]float64{
		2: 0.13, // below threshold
		3: 0.20,
		4: 0.30,
		5: 0.25, // claimed by a charge hour
		6: 0.25, // solar hour
	})
	chargeSet := map[model.Slot]bool{model.SlotAt(now.Add(5 * time.Hour)): true}
	forecastBySlot := map[model.Slot]float64{model.SlotAt(now.Add(6 * time.Hour)): 0.5}

	got := selectDischargeHours(now, 24, sell, forecastBySlot, chargeSet, minEffective, cycleCost, 0.1, -1)
	if len(got) != 2 {
		t.Fatalf("expected 2 discharge hours, got %d: %+v", len(got), got)
	}
	// Ranked by profit descending.
	if got[0].slot.Hour != 4 || got[1].slot.Hour != 3 {
		t.Fatalf("wrong profit ranking: %d %d", got[0].slot.Hour, got[1].slot.Hour)
	}
	if got[0].profit != 0.30-threshold {
		t.Fatalf("profit = %v, want %v", got[0].profit, 0.30-threshold)
	}

	capped := selectDischargeHours(now, 24, sell, forecastBySlot, chargeSet, minEffective, cycleCost, 0.1, 1)
	if len(capped) != 1 || capped[0].slot.Hour != 4 {
		t.Fatalf("budget cap kept the wrong hour: %+v", capped)
	}
}

func TestDischargeBudgetHours(t *testing.T) {
	battery := model.BatteryState{
		SoC: 50, MinSoC: 20, CapacityKWh: 10,
		MaxChargePowerKW: 3, MaxDischargePowerKW: 2,
	}
	// usable 3 kWh + 2 charge hours * 3 kW = 9, below the 8 kWh usable
	// capacity cap -> capped at 8, /2 kW = 4 hours.
	if got := dischargeBudgetHours(2, battery); got != 4 {
		t.Fatalf("budget = %d, want 4", got)
	}
	// Falls back to charge power when discharge power is unset.
	battery.MaxDischargePowerKW = 0
	if got := dischargeBudgetHours(0, battery); got != 1 {
		t.Fatalf("budget = %d, want 1", got)
	}
}

func TestSelectSolarHoursPrecedence(t *testing.T) {
	now := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	forecast := model.ZeroForecast(now, 24)
	for i := range forecast {
		if forecast[i].Hour == 10 || forecast[i].Hour == 11 {
			forecast[i].KWh = 2
		}
	}
	chargeSet := map[model.Slot]bool{model.SlotAt(now.Add(10 * time.Hour)): true}

	hours := selectSolarHours(now, 24, forecast, chargeSet, 0.1)
	if len(hours) != 1 || hours[0].Hour != 11 {
		t.Fatalf("charge precedence violated: %+v", hours)
	}
	if hours[0].PVKWh != 2 {
		t.Fatalf("pv not carried: %+v", hours[0])
	}
}
