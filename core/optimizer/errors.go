package optimizer

import "errors"

// Fatal errors abort the pass and leave the previously committed schedule
// authoritative. Non-fatal conditions degrade gracefully and are surfaced as
// warnings on the result.
var (
	// ErrMissingPriceData is fatal: no buy prices cover the horizon.
	ErrMissingPriceData = errors.New("no buy price data for horizon")
	// ErrSensorUnavailable is fatal when the battery sensor is missing; for
	// the EV sub-planner it only disables EV planning.
	ErrSensorUnavailable = errors.New("required sensor unavailable")
	// ErrForecastUnavailable is non-fatal: a zero forecast is substituted.
	ErrForecastUnavailable = errors.New("pv forecast unavailable")
	// ErrInfeasibleEVDeadline is non-fatal: the planner degrades to charging
	// immediately instead of waiting for cheap hours.
	ErrInfeasibleEVDeadline = errors.New("ev deadline not reachable")
	// ErrGridOvercommit is non-fatal: resolved by the allocation policy.
	ErrGridOvercommit = errors.New("requested power exceeds grid limit")
)
