package optimizer

import (
	"fmt"
	"math"
	"sort"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/kilianp07/hems/core/model"
)

// emergencyDecision is the outcome of the survivability check.
type emergencyDecision struct {
	triggered bool
	reason    string
	hours     []model.PlannedHour
}

// checkEmergency verifies the battery survives until the next charge
// opportunity. The anchor is the first selected charge hour; when the normal
// selection produced none, the earliest hour in the cheapest price quartile
// is used instead. If consumption until the anchor exceeds usable storage
// plus forecast production, the cheapest hours strictly before the anchor are
// injected as charge hours regardless of price ranking.
//
// The decision is a pure function of the inputs, so re-running the pass on
// unchanged inputs reproduces it exactly.
func checkEmergency(now time.Time, buy []model.PricePoint, cands, selected []candidate,
	forecast []model.ForecastPoint, battery model.BatteryState, avgConsumptionKW, cycleCost float64) emergencyDecision {
	anchor := nextChargeOffset(cands, selected)
	if anchor <= 0 {
		return emergencyDecision{}
	}

	var pvUntil float64
	for _, p := range forecast {
		off, err := p.HoursFrom(now)
		if err != nil {
			continue
		}
		if off > -1 && off < anchor {
			pvUntil += p.KWh
		}
	}

	needed := anchor * avgConsumptionKW
	available := battery.UsableKWh() + pvUntil
	if needed <= available {
		return emergencyDecision{}
	}

	deficit := needed - available
	var hoursNeeded int
	if battery.MaxChargePowerKW > 0 {
		hoursNeeded = int(math.Ceil(deficit / battery.MaxChargePowerKW))
	} else {
		hoursNeeded = int(math.Ceil(deficit))
	}

	selectedSet := make(map[model.Slot]bool, len(selected))
	for _, c := range selected {
		selectedSet[c.slot] = true
	}

	// Current hour is eligible here even though normal selection skips it:
	// feasibility is the objective, not cost.
	var pool []candidate
	for _, p := range buy {
		off, err := p.HoursFrom(now)
		if err != nil || off <= -1 || off >= anchor {
			continue
		}
		if selectedSet[p.Slot] {
			continue
		}
		pool = append(pool, candidate{slot: p.Slot, raw: p.Value, effective: p.Value + cycleCost, offset: off})
	}
	sortCandidates(pool)
	if len(pool) > hoursNeeded {
		pool = pool[:hoursNeeded]
	}

	dec := emergencyDecision{
		triggered: true,
		reason: fmt.Sprintf("SOC %.0f%% insufficient for %.1fh wait (need %.1f kWh, have %.1f kWh)",
			battery.SoC, anchor, needed, available),
	}
	for _, c := range pool {
		dec.hours = append(dec.hours, model.PlannedHour{
			Slot: c.slot, Price: c.raw, EffectivePrice: c.effective, Emergency: true,
		})
	}
	return dec
}

// nextChargeOffset returns the hours until the anchor charge opportunity, or
// a 24 hour default when no candidate qualifies.
func nextChargeOffset(cands, selected []candidate) float64 {
	if len(selected) > 0 {
		min := selected[0].offset
		for _, c := range selected[1:] {
			if c.offset < min {
				min = c.offset
			}
		}
		return min
	}
	if len(cands) == 0 {
		return 24
	}
	vals := make([]float64, len(cands))
	for i, c := range cands {
		vals[i] = c.effective
	}
	sort.Float64s(vals)
	q := stat.Quantile(0.25, stat.Empirical, vals, nil)
	anchor := math.Inf(1)
	for _, c := range cands {
		if c.effective <= q && c.offset < anchor {
			anchor = c.offset
		}
	}
	if math.IsInf(anchor, 1) {
		return 24
	}
	return anchor
}
