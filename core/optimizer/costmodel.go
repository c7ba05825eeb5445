package optimizer

import "github.com/kilianp07/hems/core/model"

// CycleCost returns the amortized wear cost of moving one kWh through the
// battery. A full cycle is a charge plus a discharge of the full capacity,
// hence the factor two. Non-positive inputs yield zero so that charging is
// never penalized or blocked by incomplete configuration.
func CycleCost(b model.BatteryState) float64 {
	if b.RatedCycles <= 0 || b.CapacityKWh <= 0 || b.Cost <= 0 {
		return 0
	}
	costPerCycle := b.Cost / float64(b.RatedCycles)
	return costPerCycle / (b.CapacityKWh * 2)
}
