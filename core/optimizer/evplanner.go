package optimizer

import (
	"fmt"
	"math"
	"time"

	"github.com/kilianp07/hems/core/model"
)

// ResolveChargeMode maps live battery and EV state to the concrete inverter
// behaviour for a stored charge action. Mode resolution is deferred to
// execution time because EV connection state can change between planning and
// execution; the stored plan only carries the abstract charge intent.
func ResolveChargeMode(evEnabled, evConnected, batteryFull bool) model.ChargeMode {
	switch {
	case !evEnabled || !evConnected:
		return model.ModeBatteryOnly
	case batteryFull:
		return model.ModeEVOnly
	default:
		return model.ModeEVAndBattery
	}
}

// evDecision is the outcome of the EV sub-planner.
type evDecision struct {
	urgent bool
	reason string
	hours  []model.PlannedHour
}

// planEV enforces the vehicle's charge deadline. Hours strictly before
// ready_by are eligible; when even charging every eligible hour cannot reach
// the target, the deadline dominates cost and charging starts in the current
// hour. Without a deadline the EV need is already folded into the balance
// deficit and no dedicated hours are reserved.
func planEV(now time.Time, ev *model.EVState, cands []candidate) evDecision {
	if ev == nil || !ev.Connected {
		return evDecision{}
	}
	need := ev.NeedKWh()
	if need <= 0 || ev.ReadyBy == nil {
		return evDecision{}
	}

	var hoursNeeded int
	if ev.MaxChargePowerKW > 0 {
		hoursNeeded = int(math.Ceil(need / ev.MaxChargePowerKW))
	} else {
		return evDecision{
			urgent: true,
			reason: fmt.Sprintf("EV needs %.1f kWh but no charge power is configured", need),
		}
	}

	deadline := ev.ReadyBy.NextAfter(now)
	horizon := deadline.Sub(now).Hours()
	var available []candidate
	for _, c := range cands {
		if c.offset < horizon {
			available = append(available, c)
		}
	}

	if hoursNeeded > len(available) {
		return evDecision{
			urgent: true,
			reason: fmt.Sprintf("EV needs %dh before %s, only %dh available", hoursNeeded, ev.ReadyBy, len(available)),
			hours: []model.PlannedHour{{
				Slot: model.SlotAt(now), EVCharging: true,
			}},
		}
	}

	dec := evDecision{}
	for _, c := range available[:hoursNeeded] {
		dec.hours = append(dec.hours, model.PlannedHour{
			Slot: c.slot, Price: c.raw, EffectivePrice: c.effective, EVCharging: true,
		})
	}
	return dec
}
