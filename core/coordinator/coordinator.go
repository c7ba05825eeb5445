// Package coordinator owns the planning loop: it gathers telemetry, runs
// optimization passes, commits the resulting schedule and reacts to events
// that invalidate the current plan.
package coordinator

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/kilianp07/hems/core/logger"
	"github.com/kilianp07/hems/core/metrics"
	"github.com/kilianp07/hems/core/model"
	"github.com/kilianp07/hems/core/optimizer"
	"github.com/kilianp07/hems/core/schedule"
	"github.com/kilianp07/hems/internal/eventbus"
)

// Config tunes the planning loop.
type Config struct {
	CadenceMinutes int `json:"cadence_minutes"`
	DebounceMS     int `json:"debounce_ms"`
	HoursAhead     int `json:"hours_ahead"`
	RetentionDays  int `json:"retention_days"`
}

func (c *Config) SetDefaults() {
	if c.CadenceMinutes <= 0 {
		c.CadenceMinutes = 60
	}
	if c.DebounceMS <= 0 {
		c.DebounceMS = 500
	}
	if c.HoursAhead <= 0 {
		c.HoursAhead = 24
	}
	if c.RetentionDays <= 0 {
		c.RetentionDays = 7
	}
}

// OverrideMarker is notified when a recompute replaces entries that never
// became active.
type OverrideMarker interface {
	MarkOverridden(slots []model.Slot)
}

// Coordinator serializes optimization passes. At most one pass runs at a
// time; triggers arriving during a pass coalesce into a single follow-up.
type Coordinator struct {
	cfg      Config
	engine   *optimizer.Engine
	writer   *schedule.Writer
	store    schedule.Store
	marker   OverrideMarker
	prices   PriceProvider
	forecast ForecastProvider
	sensors  SensorReader
	bus      *eventbus.Bus[eventbus.Event]
	sink     metrics.PlanSink
	log      logger.Logger

	trigger chan string
}

func New(cfg Config, engine *optimizer.Engine, writer *schedule.Writer, store schedule.Store,
	marker OverrideMarker, prices PriceProvider, forecast ForecastProvider, sensors SensorReader,
	bus *eventbus.Bus[eventbus.Event], sink metrics.PlanSink, log logger.Logger) *Coordinator {
	cfg.SetDefaults()
	if sink == nil {
		sink = nopSink{}
	}
	if log == nil {
		log = logger.Nop{}
	}
	return &Coordinator{
		cfg:      cfg,
		engine:   engine,
		writer:   writer,
		store:    store,
		marker:   marker,
		prices:   prices,
		forecast: forecast,
		sensors:  sensors,
		bus:      bus,
		sink:     sink,
		log:      log,
		trigger:  make(chan string, 1),
	}
}

type nopSink struct{}

func (nopSink) RecordPass(metrics.PassEvent) error { return nil }

// Run drives the loop until the context ends. It performs a startup pass,
// then recomputes on cadence and on bus events.
func (c *Coordinator) Run(ctx context.Context) error {
	var sub <-chan eventbus.Event
	if c.bus != nil {
		sub = c.bus.Subscribe()
		defer c.bus.Unsubscribe(sub)
	}

	cadence := time.NewTicker(time.Duration(c.cfg.CadenceMinutes) * time.Minute)
	defer cadence.Stop()
	cleanup := time.NewTicker(24 * time.Hour)
	defer cleanup.Stop()

	c.Request("startup")
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-cadence.C:
			c.Request("periodic")
		case ev, ok := <-sub:
			if !ok {
				sub = nil
				continue
			}
			c.Request(string(ev.Kind))
		case trig := <-c.trigger:
			c.debounce(ctx)
			if err := c.RunOptimization(ctx, trig, 0); err != nil {
				c.log.Errorf("optimization pass (%s): %v", trig, err)
			}
		case <-cleanup.C:
			cutoff := time.Now().AddDate(0, 0, -c.cfg.RetentionDays)
			if err := c.store.Cleanup(cutoff); err != nil {
				c.log.Errorf("schedule cleanup: %v", err)
			}
		}
	}
}

// Request queues a recompute. Requests arriving while one is already queued
// are absorbed.
func (c *Coordinator) Request(trigger string) {
	select {
	case c.trigger <- trigger:
	default:
	}
}

// debounce lets a burst of triggers settle into one pass.
func (c *Coordinator) debounce(ctx context.Context) {
	timer := time.NewTimer(time.Duration(c.cfg.DebounceMS) * time.Millisecond)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
	}
	select {
	case <-c.trigger:
	default:
	}
}

// RunOptimization executes one pass over hoursAhead hours; zero selects the
// configured default. A failed pass leaves the committed schedule untouched.
func (c *Coordinator) RunOptimization(ctx context.Context, trigger string, hoursAhead int) error {
	start := time.Now()
	passID := uuid.NewString()

	res, horizon, err := c.pass(ctx, start, hoursAhead)
	event := metrics.PassEvent{
		PassID:   passID,
		Time:     start,
		Duration: time.Since(start),
		Trigger:  trigger,
		Horizon:  horizon,
		Result:   res,
	}
	if err != nil {
		event.Aborted = true
		event.Err = err.Error()
	}
	if rerr := c.sink.RecordPass(event); rerr != nil {
		c.log.Errorf("record pass: %v", rerr)
	}
	return err
}

func (c *Coordinator) pass(ctx context.Context, now time.Time, hoursAhead int) (model.OptimizationResult, int, error) {
	if hoursAhead <= 0 {
		hoursAhead = c.cfg.HoursAhead
	}
	horizon := optimizer.ClampHorizon(hoursAhead)

	buy, err := c.prices.Prices(ctx, model.PriceBuy)
	if err != nil {
		return model.OptimizationResult{}, horizon, fmt.Errorf("buy prices: %w", err)
	}
	sell, err := c.prices.Prices(ctx, model.PriceSell)
	if err != nil {
		c.log.Warnf("sell prices unavailable: %v", err)
		sell = nil
	}
	forecast, err := c.forecast.Forecast(ctx)
	if err != nil {
		c.log.Warnf("solar forecast unavailable: %v", err)
		forecast = nil
	}
	battery, err := c.sensors.BatteryState(ctx)
	if err != nil {
		return model.OptimizationResult{}, horizon, fmt.Errorf("battery state: %w", err)
	}
	var ev *model.EVState
	if state, err := c.sensors.EVState(ctx); err != nil {
		c.log.Warnf("ev state unavailable: %v", err)
	} else if state.Enabled {
		ev = &state
	}

	res, err := c.engine.Optimize(optimizer.Inputs{
		Now:        now,
		Horizon:    horizon,
		BuyPrices:  buy,
		SellPrices: sell,
		Forecast:   forecast,
		Battery:    battery,
		EV:         ev,
	})
	if err != nil {
		return res, horizon, err
	}

	replaced := c.pendingAutoSlots(now, horizon)
	if err := c.writer.Apply(now, horizon, res, battery.MinSoC); err != nil {
		return res, horizon, fmt.Errorf("commit schedule: %w", err)
	}
	if c.marker != nil {
		c.marker.MarkOverridden(replaced)
	}
	return res, horizon, nil
}

// pendingAutoSlots lists the automatic entries a commit is about to replace.
func (c *Coordinator) pendingAutoSlots(now time.Time, horizon int) []model.Slot {
	var slots []model.Slot
	seen := map[string]bool{}
	for i := 0; i < horizon; i++ {
		date := now.Add(time.Duration(i) * time.Hour).Format(model.DateLayout)
		if seen[date] {
			continue
		}
		seen[date] = true
		day, err := c.store.Schedule(date)
		if err != nil {
			c.log.Errorf("read schedule %s: %v", date, err)
			continue
		}
		for hour, e := range day {
			if !e.Manual {
				slots = append(slots, model.Slot{Date: date, Hour: hour})
			}
		}
	}
	return slots
}

// SetManualEntry stores a user-owned entry. Recomputes will not touch the
// slot until it is unlocked or cleared.
func (c *Coordinator) SetManualEntry(entry model.ScheduleEntry) error {
	entry.Manual = true
	if err := c.store.Set(entry); err != nil {
		return err
	}
	c.log.Infof("manual entry set: %s action=%s", entry.Slot, entry.Action)
	return nil
}

// ClearHour removes one entry, manual or not.
func (c *Coordinator) ClearHour(date string, hour int) error {
	return c.store.ClearHour(date, hour)
}

// ClearDate removes all entries for a date.
func (c *Coordinator) ClearDate(date string) error {
	return c.store.ClearDate(date)
}

// Unlock releases a manual slot back to automatic planning and requests a
// recompute so the freed slot is replanned.
func (c *Coordinator) Unlock(date string, hour int) error {
	if err := c.store.SetManual(date, hour, false); err != nil {
		return err
	}
	c.requestRecompute("unlock " + model.Slot{Date: date, Hour: hour}.String())
	return nil
}

// requestRecompute routes the request through the event bus so other
// subscribers observe it; without a bus it queues the trigger directly.
func (c *Coordinator) requestRecompute(detail string) {
	if c.bus != nil {
		c.bus.Publish(eventbus.Event{Kind: eventbus.RecomputeRequested, Time: time.Now(), Detail: detail})
		return
	}
	c.Request(detail)
}
