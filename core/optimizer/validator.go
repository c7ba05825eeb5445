package optimizer

import (
	"fmt"

	"github.com/kilianp07/hems/core/model"
)

// ValidateInputs checks the preconditions of a planning pass. An empty buy
// price curve is fatal. A sell price above the buy price for the same hour is
// plausible market data, so it only produces a warning.
func ValidateInputs(buy, sell []model.PricePoint) ([]string, error) {
	if len(buy) == 0 {
		return nil, ErrMissingPriceData
	}
	sellBySlot := make(map[model.Slot]float64, len(sell))
	for _, p := range sell {
		sellBySlot[p.Slot] = p.Value
	}
	var warnings []string
	for _, b := range buy {
		if s, ok := sellBySlot[b.Slot]; ok && s > b.Value {
			warnings = append(warnings, fmt.Sprintf("price anomaly at %s: sell %.4f > buy %.4f", b.Slot, s, b.Value))
		}
	}
	return warnings, nil
}
