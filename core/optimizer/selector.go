package optimizer

import (
	"math"
	"sort"
	"time"

	"github.com/kilianp07/hems/core/model"
)

// candidate is a buy-price hour eligible for charging.
type candidate struct {
	slot      model.Slot
	raw       float64
	effective float64 // raw + cycle cost
	offset    float64 // hours from now to the slot start
}

// buildCandidates turns the buy price curve into sorted charge candidates
// within the horizon. Ordering is ascending effective price; ties are broken
// by the earlier hour, preferring to act sooner and reduce exposure to
// forecast drift.
func buildCandidates(now time.Time, horizon int, buy []model.PricePoint, cycleCost float64) []candidate {
	cands := make([]candidate, 0, len(buy))
	for _, p := range buy {
		off, err := p.HoursFrom(now)
		if err != nil || off < 0 || off >= float64(horizon) {
			continue
		}
		cands = append(cands, candidate{slot: p.Slot, raw: p.Value, effective: p.Value + cycleCost, offset: off})
	}
	sortCandidates(cands)
	return cands
}

func sortCandidates(cands []candidate) {
	sort.Slice(cands, func(i, j int) bool {
		if cands[i].effective != cands[j].effective {
			return cands[i].effective < cands[j].effective
		}
		return cands[i].offset < cands[j].offset
	})
}

// chargeHoursNeeded converts a deficit into whole charge hours at the given
// combined power.
func chargeHoursNeeded(deficitKWh, totalPowerKW float64) int {
	if totalPowerKW <= 0 || deficitKWh <= 0 {
		return 0
	}
	return int(math.Ceil(deficitKWh / totalPowerKW))
}

// dropNightHours removes candidates inside the configured night window.
// The window may wrap across midnight (e.g. 22 to 6).
func dropNightHours(cands []candidate, startHour, endHour int) []candidate {
	kept := cands[:0]
	for _, c := range cands {
		h := c.slot.Hour
		var night bool
		if startHour <= endHour {
			night = h >= startHour && h < endHour
		} else {
			night = h >= startHour || h < endHour
		}
		if !night {
			kept = append(kept, c)
		}
	}
	return kept
}

// shouldSkipNightCharge reports whether tomorrow's daylight PV production
// covers the expected daylight consumption with the configured margin.
func shouldSkipNightCharge(forecast []model.ForecastPoint, avgConsumptionKW, margin float64) bool {
	if len(forecast) == 0 {
		return false
	}
	var daylight float64
	for _, p := range forecast {
		if p.Hour >= 6 && p.Hour < 18 {
			daylight += p.KWh
		}
	}
	return daylight > 12*avgConsumptionKW*margin
}

// dischargeCandidate is a sell-price hour worth discharging into.
type dischargeCandidate struct {
	slot   model.Slot
	raw    float64
	profit float64
	offset float64
}

// selectDischargeHours picks hours whose sell price beats the threshold
// (cheapest effective buy price plus twice the cycle cost), excluding charge
// hours and hours with forecast production. Candidates are ranked by profit
// and capped by the energy actually available for discharge.
func selectDischargeHours(now time.Time, horizon int, sell []model.PricePoint, forecastBySlot map[model.Slot]float64,
	chargeSet map[model.Slot]bool, minEffectiveBuy, cycleCost, solarThreshold float64, maxHours int) []dischargeCandidate {
	threshold := minEffectiveBuy + 2*cycleCost
	var cands []dischargeCandidate
	for _, p := range sell {
		if p.Value <= threshold || chargeSet[p.Slot] {
			continue
		}
		if forecastBySlot[p.Slot] >= solarThreshold {
			continue
		}
		off, err := p.HoursFrom(now)
		if err != nil || off < 0 || off >= float64(horizon) {
			continue
		}
		cands = append(cands, dischargeCandidate{
			slot:   p.Slot,
			raw:    p.Value,
			profit: p.Value - minEffectiveBuy - 2*cycleCost,
			offset: off,
		})
	}
	sort.Slice(cands, func(i, j int) bool {
		if cands[i].profit != cands[j].profit {
			return cands[i].profit > cands[j].profit
		}
		return cands[i].offset < cands[j].offset
	})
	if maxHours >= 0 && len(cands) > maxHours {
		cands = cands[:maxHours]
	}
	return cands
}

// dischargeBudgetHours bounds discharge by the energy the battery will hold:
// planned charge energy plus the currently usable energy, capped at the
// usable capacity.
func dischargeBudgetHours(chargeHours int, battery model.BatteryState) int {
	power := battery.DischargePowerKW()
	if power <= 0 {
		return 0
	}
	chargeEnergy := float64(chargeHours) * battery.MaxChargePowerKW
	available := chargeEnergy + battery.UsableKWh()
	if cap := battery.UsableCapacityKWh(); available > cap {
		available = cap
	}
	return int(available / power)
}

// selectSolarHours returns horizon hours with meaningful forecast production
// that are not already claimed by a charge hour. Resolution priority is
// charge > solar-only > discharge > default.
func selectSolarHours(now time.Time, horizon int, forecast []model.ForecastPoint, chargeSet map[model.Slot]bool, solarThreshold float64) []model.PlannedHour {
	var hours []model.PlannedHour
	for _, p := range forecast {
		if p.KWh <= solarThreshold || chargeSet[p.Slot] {
			continue
		}
		off, err := p.HoursFrom(now)
		if err != nil || off < 0 || off >= float64(horizon) {
			continue
		}
		hours = append(hours, model.PlannedHour{Slot: p.Slot, PVKWh: p.KWh})
	}
	return hours
}
