package mqtt

import (
	"context"
	"fmt"

	"github.com/kilianp07/hems/core/model"
	"github.com/kilianp07/hems/core/optimizer"
)

// Prices returns the cached price curve for the given kind. An empty slice
// means no curve has arrived yet; the planner treats that as fatal for buy
// prices and tolerable for sell prices.
func (c *Client) Prices(_ context.Context, kind model.PriceKind) ([]model.PricePoint, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var src []model.PricePoint
	switch kind {
	case model.PriceBuy:
		src = c.buy
	case model.PriceSell:
		src = c.sell
	default:
		return nil, fmt.Errorf("unknown price kind %q", kind)
	}
	out := make([]model.PricePoint, len(src))
	copy(out, src)
	return out, nil
}

// Forecast returns the cached solar forecast, possibly empty.
func (c *Client) Forecast(_ context.Context) ([]model.ForecastPoint, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]model.ForecastPoint, len(c.forecast))
	copy(out, c.forecast)
	return out, nil
}

// BatteryState merges the live SoC reading into the configured ratings.
func (c *Client) BatteryState(_ context.Context) (model.BatteryState, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if !c.batterySeen {
		return model.BatteryState{}, fmt.Errorf("battery soc: %w", optimizer.ErrSensorUnavailable)
	}
	b := c.baseBattery
	b.SoC = c.batterySoC
	return b, nil
}

// EVState merges the live plug and SoC readings into the configured vehicle.
// A silent EV topic reads as disconnected rather than an error.
func (c *Client) EVState(_ context.Context) (model.EVState, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	ev := c.baseEV
	if !c.evSeen {
		ev.Connected = false
		return ev, nil
	}
	ev.Connected = c.evConnected
	ev.SoC = c.evSoC
	return ev, nil
}

// BatterySoC implements the executor's sensor interface.
func (c *Client) BatterySoC(ctx context.Context) (float64, error) {
	b, err := c.BatteryState(ctx)
	if err != nil {
		return 0, err
	}
	return b.SoC, nil
}

// EVStatus implements the executor's sensor interface.
func (c *Client) EVStatus(ctx context.Context) (model.EVState, error) {
	return c.EVState(ctx)
}
