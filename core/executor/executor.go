package executor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/kilianp07/hems/core/logger"
	"github.com/kilianp07/hems/core/metrics"
	"github.com/kilianp07/hems/core/model"
	"github.com/kilianp07/hems/core/schedule"
)

// ModeApplier pushes a concrete mode to the inverter. Application is
// fire-and-forget from the executor's perspective; retries belong to the
// implementation.
type ModeApplier interface {
	ApplyMode(ctx context.Context, mode string) error
	// CurrentMode returns the mode the inverter is actually in, so external
	// changes are adopted instead of fought.
	CurrentMode(ctx context.Context) (string, error)
}

// Sensors exposes the live readings consulted at execution time.
type Sensors interface {
	BatterySoC(ctx context.Context) (float64, error)
	EVStatus(ctx context.Context) (model.EVState, error)
}

// EVStopCondition reports whether an EV charging hour should terminate early.
type EVStopCondition func(model.EVState) bool

// TargetSoCReached is the default stop condition.
func TargetSoCReached(ev model.EVState) bool {
	return ev.Enabled && ev.TargetSoC > 0 && ev.SoC >= ev.TargetSoC
}

// socHysteresis is the band, in percent, within which auto direction
// detection considers the SoC already at target.
const socHysteresis = 2

// Executor walks the persisted schedule hour by hour and applies the
// resolved inverter mode. It owns the PENDING/ACTIVE/COMPLETED/OVERRIDDEN
// lifecycle of entries.
type Executor struct {
	store    schedule.Store
	applier  ModeApplier
	sensors  Sensors
	modes    ModeMap
	evStop   EVStopCondition
	recorder metrics.ModeRecorder
	log      logger.Logger

	mu         sync.Mutex
	current    string                          // last applied inverter mode
	lockedDirs map[model.Slot]model.SoCLimitType // auto-detected SoC directions
	states     map[model.Slot]State
}

// New creates an Executor. A nil evStop uses TargetSoCReached, a nil recorder
// skips mode-change metrics, a nil logger discards output.
func New(store schedule.Store, applier ModeApplier, sensors Sensors, modes ModeMap,
	evStop EVStopCondition, recorder metrics.ModeRecorder, log logger.Logger) *Executor {
	if evStop == nil {
		evStop = TargetSoCReached
	}
	if log == nil {
		log = logger.Nop{}
	}
	return &Executor{
		store:      store,
		applier:    applier,
		sensors:    sensors,
		modes:      modes,
		evStop:     evStop,
		recorder:   recorder,
		log:        log,
		lockedDirs: map[model.Slot]model.SoCLimitType{},
		states:     map[model.Slot]State{},
	}
}

// Run ticks the executor at the given interval until the context ends.
func (x *Executor) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if err := x.Tick(ctx, time.Now()); err != nil {
				x.log.Errorf("executor tick: %v", err)
			}
		case <-ctx.Done():
			return
		}
	}
}

// Tick evaluates the entry for the hour containing now and applies or reverts
// the inverter mode accordingly.
func (x *Executor) Tick(ctx context.Context, now time.Time) error {
	slot := model.SlotAt(now)

	x.mu.Lock()
	defer x.mu.Unlock()

	x.dropStaleLocks(slot)

	// Adopt externally applied mode changes.
	if mode, err := x.applier.CurrentMode(ctx); err == nil && mode != "" && mode != x.current {
		if x.current != "" {
			x.log.Debugf("inverter mode changed externally: %s -> %s", x.current, mode)
		}
		x.current = mode
	}

	entry, ok, err := x.store.Hour(slot.Date, slot.Hour)
	if err != nil {
		return fmt.Errorf("read schedule: %w", err)
	}
	if !ok {
		return x.revertToDefault(ctx)
	}

	if st := x.states[slot]; st == StatePending || st == StateOverridden {
		x.states[slot] = StateActive
	}

	live, liveErr := x.liveState(ctx)
	resolved := ResolveAction(entry.Action, live, x.modes)

	shouldApply := true
	shouldRevert := false

	if entry.EVCharging && liveErr == nil {
		if ev, err := x.sensors.EVStatus(ctx); err == nil && x.evStop(ev) {
			shouldApply = false
			shouldRevert = x.current == resolved
			if shouldRevert {
				x.log.Infof("ev stop condition met, reverting to default mode")
			}
		}
	}

	if entry.SoCLimit != nil && !entry.EVCharging && liveErr == nil {
		stop, revert := x.checkSoCLimit(slot, entry, live.BatterySoC, resolved)
		if stop {
			shouldApply = false
			shouldRevert = shouldRevert || revert
		}
	}

	// Minute cap: > rather than >= so the target minute is included.
	if entry.Minutes > 0 && !entry.FullHour && now.Minute() > entry.Minutes {
		shouldApply = false
		if x.current == resolved {
			shouldRevert = true
			x.log.Infof("minutes limit exceeded (%d > %d), reverting to default mode", now.Minute(), entry.Minutes)
		}
	}

	switch {
	case shouldApply:
		if x.current != resolved {
			if err := x.applyMode(ctx, resolved); err != nil {
				return err
			}
		}
	case shouldRevert:
		x.states[slot] = StateCompleted
		return x.revertToDefault(ctx)
	default:
		x.states[slot] = StateCompleted
	}
	return nil
}

// checkSoCLimit evaluates the SoC stop condition, auto-detecting and locking
// the direction when the entry does not specify one.
func (x *Executor) checkSoCLimit(slot model.Slot, entry model.ScheduleEntry, soc float64, resolved string) (stop, revert bool) {
	limit := float64(*entry.SoCLimit)
	dir := entry.SoCLimitType
	if dir == model.SoCLimitAuto {
		if locked, ok := x.lockedDirs[slot]; ok {
			dir = locked
		} else {
			switch {
			case soc < limit-socHysteresis:
				dir = model.SoCLimitMax
			case soc > limit+socHysteresis:
				dir = model.SoCLimitMin
			default:
				// Already within the band around the target.
				return true, x.current == resolved
			}
			// Lock the direction so SoC drift cannot flip it mid-hour.
			x.lockedDirs[slot] = dir
		}
	}

	reached := (dir == model.SoCLimitMin && soc <= limit) || (dir == model.SoCLimitMax && soc >= limit)
	if !reached {
		return false, false
	}
	delete(x.lockedDirs, slot)
	revert = x.current == resolved
	if revert {
		x.log.Infof("soc limit reached (%.0f%% vs %.0f%% %s), reverting to default mode", soc, limit, dir)
	}
	return true, revert
}

// MarkOverridden records that a recompute replaced entries before they became
// active. Slots already active or completed keep their state.
func (x *Executor) MarkOverridden(slots []model.Slot) {
	x.mu.Lock()
	defer x.mu.Unlock()
	for _, s := range slots {
		if st, ok := x.states[s]; !ok || st == StatePending {
			x.states[s] = StateOverridden
		}
	}
}

// EntryState reports the lifecycle state of a slot.
func (x *Executor) EntryState(slot model.Slot) State {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.states[slot]
}

// ApplyModeNow applies a mode immediately, bypassing the schedule.
func (x *Executor) ApplyModeNow(ctx context.Context, mode string) error {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.applyMode(ctx, mode)
}

func (x *Executor) applyMode(ctx context.Context, mode string) error {
	if mode == "" {
		return nil
	}
	if err := x.applier.ApplyMode(ctx, mode); err != nil {
		return fmt.Errorf("apply mode %s: %w", mode, err)
	}
	x.current = mode
	x.log.Infof("applied inverter mode: %s", mode)
	if x.recorder != nil {
		if err := x.recorder.RecordModeChange(metrics.ModeChange{Time: time.Now(), Mode: mode}); err != nil {
			x.log.Errorf("record mode change: %v", err)
		}
	}
	return nil
}

func (x *Executor) revertToDefault(ctx context.Context) error {
	if x.modes.Default == "" || x.current == x.modes.Default {
		return nil
	}
	return x.applyMode(ctx, x.modes.Default)
}

func (x *Executor) liveState(ctx context.Context) (LiveState, error) {
	soc, err := x.sensors.BatterySoC(ctx)
	if err != nil {
		return LiveState{}, err
	}
	live := LiveState{BatterySoC: soc}
	if ev, err := x.sensors.EVStatus(ctx); err == nil {
		live.EVEnabled = ev.Enabled
		live.EVConnected = ev.Connected
	}
	return live, nil
}

// dropStaleLocks clears direction locks and lifecycle state from past slots.
func (x *Executor) dropStaleLocks(current model.Slot) {
	for s := range x.lockedDirs {
		if s != current {
			delete(x.lockedDirs, s)
		}
	}
	for s, st := range x.states {
		if s != current && st == StateActive {
			x.states[s] = StateCompleted
		}
	}
}
