package coordinator

import (
	"context"

	"github.com/kilianp07/hems/core/model"
)

// PriceProvider supplies the hourly market price curves.
type PriceProvider interface {
	Prices(ctx context.Context, kind model.PriceKind) ([]model.PricePoint, error)
}

// ForecastProvider supplies the hourly solar production forecast.
type ForecastProvider interface {
	Forecast(ctx context.Context) ([]model.ForecastPoint, error)
}

// SensorReader exposes the live battery and vehicle state.
type SensorReader interface {
	BatteryState(ctx context.Context) (model.BatteryState, error)
	EVState(ctx context.Context) (model.EVState, error)
}
