// Package optimizer computes a cost-minimizing hourly action plan for a
// household energy system against a variable-price market.
//
// The pipeline validates inputs, derives the horizon energy deficit, greedily
// selects the cheapest hours to cover it, verifies the plan keeps the battery
// above its reserved floor, enforces the EV charge deadline and splits the
// grid power budget under contention. Planned charge hours carry an abstract
// intent; the concrete inverter mode is resolved from live state at execution
// time (see ResolveChargeMode).
package optimizer
