package optimizer

import (
	"fmt"
	"sort"
	"time"

	"github.com/kilianp07/hems/core/logger"
	"github.com/kilianp07/hems/core/model"
)

// Inputs carries everything a planning pass reads. The evaluation instant is
// explicit; no optimizer code consults the wall clock.
type Inputs struct {
	Now        time.Time
	Horizon    int // hours; zero uses the configured default
	BuyPrices  []model.PricePoint
	SellPrices []model.PricePoint
	Forecast   []model.ForecastPoint
	Battery    model.BatteryState
	EV         *model.EVState // nil when the EV capability is disabled
}

// Engine runs the greedy, threshold-based planning heuristic. It favours
// explainability over global optimality.
type Engine struct {
	cfg    Config
	policy AllocationPolicy
	log    logger.Logger
}

// New creates an Engine. A nil policy selects DefaultAllocationPolicy, a nil
// logger discards output.
func New(cfg Config, policy AllocationPolicy, log logger.Logger) *Engine {
	if policy == nil {
		policy = DefaultAllocationPolicy
	}
	if log == nil {
		log = logger.Nop{}
	}
	return &Engine{cfg: cfg, policy: policy, log: log}
}

// Optimize produces the hour-by-hour plan for the horizon. Fatal conditions
// return an error and no result; the caller must keep the previously
// committed schedule in that case.
func (e *Engine) Optimize(in Inputs) (model.OptimizationResult, error) {
	horizon := in.Horizon
	if horizon == 0 {
		horizon = e.cfg.HoursAhead
	}
	horizon = ClampHorizon(horizon)

	var res model.OptimizationResult

	warnings, err := ValidateInputs(in.BuyPrices, in.SellPrices)
	if err != nil {
		return res, err
	}
	res.Warnings = warnings
	for _, w := range warnings {
		e.log.Warnf("%s", w)
	}

	if err := in.Battery.Validate(); err != nil {
		return res, fmt.Errorf("%w: %v", ErrSensorUnavailable, err)
	}

	ev := in.EV
	if ev != nil {
		if !ev.Enabled {
			ev = nil
		} else if err := ev.Validate(); err != nil {
			// EV planning is optional; a broken EV config degrades to
			// battery-only planning instead of failing the pass.
			res.Warnings = append(res.Warnings, fmt.Sprintf("ev planning skipped: %v", err))
			e.log.Warnf("ev planning skipped: %v", err)
			ev = nil
		}
	}

	forecast := in.Forecast
	if len(forecast) == 0 {
		forecast = model.ZeroForecast(in.Now, horizon)
	}

	res.CycleCost = CycleCost(in.Battery)
	balance := ComputeBalance(horizon, e.cfg.AvgConsumptionKW, forecast, in.Battery, ev)
	res.TotalDeficitKWh = balance.DeficitKWh

	var evPower float64
	if ev != nil && ev.Connected {
		evPower = ev.MaxChargePowerKW
	}
	batteryPower, evPower, overcommit := Allocate(e.policy, in.Battery.MaxChargePowerKW, evPower, e.cfg.MaxGridPowerKW)
	if overcommit {
		e.log.Infof("grid overcommit: capped to battery %.1f kW, ev %.1f kW (limit %.1f kW)",
			batteryPower, evPower, e.cfg.MaxGridPowerKW)
	}

	cands := buildCandidates(in.Now, horizon, in.BuyPrices, res.CycleCost)

	res.SkipNightCharge = shouldSkipNightCharge(forecast, e.cfg.AvgConsumptionKW, e.cfg.SkipNightMargin)
	selectable := cands
	if res.SkipNightCharge {
		selectable = dropNightHours(append([]candidate(nil), cands...), e.cfg.NightStartHour, e.cfg.NightEndHour)
	}

	hoursNeeded := chargeHoursNeeded(balance.DeficitKWh, batteryPower+evPower)
	clampSelection := func(c []candidate) []candidate {
		if hoursNeeded > len(c) {
			return c
		}
		return c[:hoursNeeded]
	}
	selected := clampSelection(selectable)

	// Survivability overrides both price ranking and the night filter.
	emergency := checkEmergency(in.Now, in.BuyPrices, cands, selected, forecast, in.Battery, e.cfg.AvgConsumptionKW, res.CycleCost)
	if emergency.triggered {
		res.Emergency = true
		res.EmergencyReason = emergency.reason
		e.log.Warnf("emergency charge: %s", emergency.reason)
		if res.SkipNightCharge {
			// An active emergency reopens the night window for the normal
			// price-ranked selection as well.
			selectable = cands
			selected = clampSelection(selectable)
		}
	}

	evDec := planEV(in.Now, ev, cands)
	if evDec.urgent {
		res.EVUrgent = true
		res.EVUrgentReason = evDec.reason
		res.Warnings = append(res.Warnings, "ev urgent charge: "+evDec.reason)
		e.log.Warnf("ev urgent charge: %s", evDec.reason)
	}

	evCharging := ev != nil && ev.Connected
	chargeSet := make(map[model.Slot]bool)
	appendCharge := func(h model.PlannedHour) {
		if chargeSet[h.Slot] {
			return
		}
		chargeSet[h.Slot] = true
		h.EVCharging = h.EVCharging || evCharging
		res.ChargeHours = append(res.ChargeHours, h)
	}
	for _, h := range emergency.hours {
		appendCharge(h)
	}
	for _, c := range selected {
		appendCharge(model.PlannedHour{Slot: c.slot, Price: c.raw, EffectivePrice: c.effective})
	}
	for _, h := range evDec.hours {
		appendCharge(h)
	}

	forecastBySlot := make(map[model.Slot]float64, len(forecast))
	for _, p := range forecast {
		forecastBySlot[p.Slot] += p.KWh
	}

	if len(selectable) > 0 {
		minEffective := selectable[0].effective
		budget := dischargeBudgetHours(len(res.ChargeHours), in.Battery)
		for _, d := range selectDischargeHours(in.Now, horizon, in.SellPrices, forecastBySlot, chargeSet,
			minEffective, res.CycleCost, e.cfg.SolarThresholdKWh, budget) {
			res.DischargeHours = append(res.DischargeHours, model.PlannedHour{Slot: d.slot, Price: d.raw, Profit: d.profit})
		}
	}

	res.SolarHours = selectSolarHours(in.Now, horizon, forecast, chargeSet, e.cfg.SolarThresholdKWh)

	sortPlanned(res.ChargeHours)
	sortPlanned(res.DischargeHours)
	sortPlanned(res.SolarHours)

	e.log.Debugw("optimization pass complete", map[string]any{
		"horizon":         horizon,
		"deficit_kwh":     res.TotalDeficitKWh,
		"cycle_cost":      res.CycleCost,
		"charge_hours":    len(res.ChargeHours),
		"discharge_hours": len(res.DischargeHours),
		"solar_hours":     len(res.SolarHours),
		"emergency":       res.Emergency,
		"ev_urgent":       res.EVUrgent,
		"skip_night":      res.SkipNightCharge,
	})
	return res, nil
}

func sortPlanned(hours []model.PlannedHour) {
	sort.Slice(hours, func(i, j int) bool {
		if hours[i].Date != hours[j].Date {
			return hours[i].Date < hours[j].Date
		}
		return hours[i].Hour < hours[j].Hour
	})
}
