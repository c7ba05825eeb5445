package optimizer

import (
	"gonum.org/v1/gonum/floats"

	"github.com/kilianp07/hems/core/model"
)

// Balance is the net energy picture over a planning horizon. All values are
// kWh and never negative.
type Balance struct {
	ConsumptionKWh   float64
	SolarKWh         float64
	UsableBatteryKWh float64
	EVNeedKWh        float64
	DeficitKWh       float64
}

// ComputeBalance derives the horizon deficit: expected consumption minus
// forecast production and currently usable storage, plus the EV need when a
// connected EV capability is present.
func ComputeBalance(horizon int, avgConsumptionKW float64, forecast []model.ForecastPoint, battery model.BatteryState, ev *model.EVState) Balance {
	b := Balance{
		ConsumptionKWh:   float64(horizon) * avgConsumptionKW,
		SolarKWh:         forecastSum(forecast, horizon),
		UsableBatteryKWh: battery.UsableKWh(),
	}
	b.DeficitKWh = b.ConsumptionKWh - b.SolarKWh - b.UsableBatteryKWh
	if b.DeficitKWh < 0 {
		b.DeficitKWh = 0
	}
	if ev != nil && ev.Connected {
		b.EVNeedKWh = ev.NeedKWh()
		b.DeficitKWh += b.EVNeedKWh
	}
	return b
}

// forecastSum totals the first n forecast hours.
func forecastSum(forecast []model.ForecastPoint, n int) float64 {
	if n > len(forecast) {
		n = len(forecast)
	}
	if n <= 0 {
		return 0
	}
	vals := make([]float64, n)
	for i := 0; i < n; i++ {
		vals[i] = forecast[i].KWh
	}
	return floats.Sum(vals)
}
