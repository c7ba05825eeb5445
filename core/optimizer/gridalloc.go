package optimizer

// AllocationPolicy splits a grid power budget between battery and EV charging
// when the combined request exceeds the limit. Implementations must return
// non-negative values whose sum does not exceed maxGrid.
type AllocationPolicy func(batteryKW, evKW, maxGridKW float64) (float64, float64)

// DefaultAllocationPolicy gives the battery a floor of 40% of the grid budget
// (or its own limit, whichever is lower) and hands the clamped remainder to
// the EV. Priority under contention is a policy choice; swap the function to
// change it.
func DefaultAllocationPolicy(batteryKW, evKW, maxGridKW float64) (float64, float64) {
	floor := 0.4 * maxGridKW
	if batteryKW < floor {
		floor = batteryKW
	}
	ev := maxGridKW - floor
	if ev > evKW {
		ev = evKW
	}
	if ev < 0 {
		ev = 0
	}
	return floor, ev
}

// Allocate applies the policy only when the combined request overshoots the
// grid limit; otherwise both requests pass through unchanged. The overcommit
// flag reports whether the policy had to intervene.
func Allocate(policy AllocationPolicy, batteryKW, evKW, maxGridKW float64) (battery, ev float64, overcommit bool) {
	if batteryKW < 0 {
		batteryKW = 0
	}
	if evKW < 0 {
		evKW = 0
	}
	if batteryKW+evKW <= maxGridKW {
		return batteryKW, evKW, false
	}
	if policy == nil {
		policy = DefaultAllocationPolicy
	}
	battery, ev = policy(batteryKW, evKW, maxGridKW)
	return battery, ev, true
}
