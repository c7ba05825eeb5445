package optimizer

import (
	"errors"
	"math"
	"reflect"
	"testing"
	"time"

	"github.com/kilianp07/hems/core/model"
)

func testConfig() Config {
	return Config{
		AvgConsumptionKW:  0.6,
		MaxGridPowerKW:    15,
		HoursAhead:        24,
		SolarThresholdKWh: 0.1,
		NightStartHour:    22,
		NightEndHour:      6,
		SkipNightMargin:   1.2,
	}
}

func flatBuyCurve(now time.Time, hours int, base, step float64) []model.PricePoint {
	points := make([]model.PricePoint, 0, hours)
	for i := 1; i <= hours; i++ {
		points = append(points, model.PricePoint{
			Slot:  model.SlotAt(now.Add(time.Duration(i) * time.Hour)),
			Value: base + float64(i)*step,
		})
	}
	return points
}

func TestOptimizeSelectsCheapestHours(t *testing.T) {
	now := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	forecast := model.ZeroForecast(now, 24)
	forecast[3].KWh = 2
	e := New(testConfig(), nil, nil)
	res, err := e.Optimize(Inputs{
		Now:       now,
		BuyPrices: flatBuyCurve(now, 23, 0.10, 0.01),
		Forecast:  forecast,
		Battery: model.BatteryState{
			SoC: 30, MinSoC: 20, CapacityKWh: 15, MaxChargePowerKW: 6,
			Cost: 5000, RatedCycles: 6000,
		},
	})
	if err != nil {
		t.Fatalf("optimize: %v", err)
	}
	// deficit 10.9 kWh at 6 kW -> 2 hours, and the ascending curve makes the
	// two earliest hours the cheapest.
	if len(res.ChargeHours) != 2 {
		t.Fatalf("expected 2 charge hours, got %d", len(res.ChargeHours))
	}
	if res.ChargeHours[0].Hour != 1 || res.ChargeHours[1].Hour != 2 {
		t.Fatalf("wrong hours picked: %d %d", res.ChargeHours[0].Hour, res.ChargeHours[1].Hour)
	}
	if math.Abs(res.TotalDeficitKWh-10.9) > 1e-9 {
		t.Fatalf("deficit = %v, want 10.9", res.TotalDeficitKWh)
	}
	if res.CycleCost <= 0 {
		t.Fatal("cycle cost missing from result")
	}
}

func TestOptimizeNoPricesAborts(t *testing.T) {
	e := New(testConfig(), nil, nil)
	_, err := e.Optimize(Inputs{
		Now:     time.Now(),
		Battery: model.BatteryState{SoC: 50, CapacityKWh: 10, MaxChargePowerKW: 3},
	})
	if !errors.Is(err, ErrMissingPriceData) {
		t.Fatalf("expected ErrMissingPriceData, got %v", err)
	}
}

func TestOptimizeInvalidBatteryAborts(t *testing.T) {
	now := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	e := New(testConfig(), nil, nil)
	_, err := e.Optimize(Inputs{
		Now:       now,
		BuyPrices: flatBuyCurve(now, 23, 0.10, 0.01),
		Battery:   model.BatteryState{SoC: 50}, // no capacity
	})
	if !errors.Is(err, ErrSensorUnavailable) {
		t.Fatalf("expected ErrSensorUnavailable, got %v", err)
	}
}

func TestOptimizeAnomalyWarnsAndCompletes(t *testing.T) {
	now := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	buy := flatBuyCurve(now, 23, 0.10, 0.01)
	sell := []model.PricePoint{{Slot: buy[0].Slot, Value: buy[0].Value + 0.05}}

	e := New(testConfig(), nil, nil)
	res, err := e.Optimize(Inputs{
		Now:        now,
		BuyPrices:  buy,
		SellPrices: sell,
		Battery:    model.BatteryState{SoC: 30, MinSoC: 20, CapacityKWh: 15, MaxChargePowerKW: 6},
	})
	if err != nil {
		t.Fatalf("anomaly aborted the pass: %v", err)
	}
	if len(res.Warnings) == 0 {
		t.Fatal("expected a price anomaly warning")
	}
}

func TestOptimizeIdempotent(t *testing.T) {
	now := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	forecast := model.ZeroForecast(now, 24)
	forecast[13].KWh = 1.2
	in := Inputs{
		Now:        now,
		BuyPrices:  flatBuyCurve(now, 23, 0.10, 0.01),
		SellPrices: flatBuyCurve(now, 23, 0.20, 0.01),
		Forecast:   forecast,
		Battery: model.BatteryState{
			SoC: 25, MinSoC: 20, CapacityKWh: 15, MaxChargePowerKW: 6,
			Cost: 5000, RatedCycles: 6000,
		},
		EV: &model.EVState{
			Enabled: true, Connected: true, CapacityKWh: 60, SoC: 40,
			TargetSoC: 80, MaxChargePowerKW: 11,
			ReadyBy: &model.TimeOfDay{Hour: 7},
		},
	}
	e := New(testConfig(), nil, nil)
	first, err := e.Optimize(in)
	if err != nil {
		t.Fatalf("optimize: %v", err)
	}
	second, err := e.Optimize(in)
	if err != nil {
		t.Fatalf("optimize: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("results differ on identical inputs:\n%+v\n%+v", first, second)
	}
}

func TestOptimizeChargePrecedesSolar(t *testing.T) {
	now := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	forecast := model.ZeroForecast(now, 24)
	forecast[1].KWh = 2 // the cheapest hour also has sun

	e := New(testConfig(), nil, nil)
	res, err := e.Optimize(Inputs{
		Now:       now,
		BuyPrices: flatBuyCurve(now, 23, 0.10, 0.01),
		Forecast:  forecast,
		Battery:   model.BatteryState{SoC: 30, MinSoC: 20, CapacityKWh: 15, MaxChargePowerKW: 6},
	})
	if err != nil {
		t.Fatalf("optimize: %v", err)
	}
	chargeSlot := model.SlotAt(now.Add(time.Hour))
	var isCharge bool
	for _, h := range res.ChargeHours {
		if h.Slot == chargeSlot {
			isCharge = true
		}
	}
	if !isCharge {
		t.Fatal("test setup: hour 1 should be a charge hour")
	}
	for _, h := range res.SolarHours {
		if h.Slot == chargeSlot {
			t.Fatal("hour labeled both charge and solar")
		}
	}
}

func TestOptimizeEmergencyReopensNightWindow(t *testing.T) {
	now := time.Date(2026, 9, 1, 21, 0, 0, 0, time.UTC)

	// Cheap night hours, expensive day hours.
	nightPrices := map[int]float64{22: 0.05, 23: 0.03, 0: 0.02, 1: 0.04, 2: 0.06, 3: 0.07, 4: 0.08, 5: 0.09}
	var buy []model.PricePoint
	for i := 1; i <= 23; i++ {
		slot := model.SlotAt(now.Add(time.Duration(i) * time.Hour))
		v, night := nightPrices[slot.Hour]
		if !night {
			v = 0.40
		}
		buy = append(buy, model.PricePoint{Slot: slot, Value: v})
	}

	// Tomorrow's daylight production is strong enough to skip night charging.
	forecast := model.ZeroForecast(now, 24)
	for i := range forecast {
		if forecast[i].Hour >= 10 && forecast[i].Hour < 15 {
			forecast[i].KWh = 2
		}
	}

	e := New(testConfig(), nil, nil)
	res, err := e.Optimize(Inputs{
		Now:       now,
		BuyPrices: buy,
		Forecast:  forecast,
		Battery:   model.BatteryState{SoC: 25, MinSoC: 20, CapacityKWh: 15, MaxChargePowerKW: 3},
	})
	if err != nil {
		t.Fatalf("optimize: %v", err)
	}
	if !res.SkipNightCharge {
		t.Fatal("test setup: daylight forecast should activate the night skip")
	}
	if !res.Emergency {
		t.Fatal("test setup: low SoC should trigger the emergency guard")
	}
	if len(res.ChargeHours) == 0 {
		t.Fatal("no charge hours planned")
	}
	for _, h := range res.ChargeHours {
		if h.Hour >= 6 && h.Hour < 22 {
			t.Fatalf("day hour %d charged at 0.40 while cheap night hours were available", h.Hour)
		}
	}
}

func TestOptimizeDisabledEVIgnored(t *testing.T) {
	now := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	e := New(testConfig(), nil, nil)
	res, err := e.Optimize(Inputs{
		Now:       now,
		BuyPrices: flatBuyCurve(now, 23, 0.10, 0.01),
		Battery:   model.BatteryState{SoC: 30, MinSoC: 20, CapacityKWh: 15, MaxChargePowerKW: 6},
		EV:        &model.EVState{Enabled: false},
	})
	if err != nil {
		t.Fatalf("optimize: %v", err)
	}
	for _, h := range res.ChargeHours {
		if h.EVCharging {
			t.Fatalf("disabled ev flagged a charge hour: %+v", h)
		}
	}
}

func TestOptimizeInvalidEVDegrades(t *testing.T) {
	now := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	e := New(testConfig(), nil, nil)
	res, err := e.Optimize(Inputs{
		Now:       now,
		BuyPrices: flatBuyCurve(now, 23, 0.10, 0.01),
		Battery:   model.BatteryState{SoC: 30, MinSoC: 20, CapacityKWh: 15, MaxChargePowerKW: 6},
		EV:        &model.EVState{Enabled: true}, // missing capacity and target
	})
	if err != nil {
		t.Fatalf("broken ev config must not abort: %v", err)
	}
	if len(res.Warnings) == 0 {
		t.Fatal("expected a degradation warning")
	}
}

func TestOptimizeHorizonClamped(t *testing.T) {
	if got := ClampHorizon(4); got != MinHorizon {
		t.Fatalf("clamp(4) = %d, want %d", got, MinHorizon)
	}
	if got := ClampHorizon(100); got != MaxHorizon {
		t.Fatalf("clamp(100) = %d, want %d", got, MaxHorizon)
	}
	if got := ClampHorizon(24); got != 24 {
		t.Fatalf("clamp(24) = %d, want 24", got)
	}
}
