// Package app wires the configured components into a runnable service.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/kilianp07/hems/config"
	"github.com/kilianp07/hems/core/coordinator"
	"github.com/kilianp07/hems/core/executor"
	coremetrics "github.com/kilianp07/hems/core/metrics"
	"github.com/kilianp07/hems/core/model"
	"github.com/kilianp07/hems/core/optimizer"
	"github.com/kilianp07/hems/core/schedule"
	"github.com/kilianp07/hems/infra/logger"
	"github.com/kilianp07/hems/infra/metrics"
	"github.com/kilianp07/hems/infra/mqtt"
	"github.com/kilianp07/hems/infra/storage"
	"github.com/kilianp07/hems/internal/eventbus"
)

// Service orchestrates the planning coordinator and the schedule executor.
type Service struct {
	Coordinator *coordinator.Coordinator
	Executor    *executor.Executor

	client       *mqtt.Client
	store        schedule.Store
	bus          *eventbus.Bus[eventbus.Event]
	log          logger.Logger
	tickInterval time.Duration
	promEnabled  bool
	promPort     string
}

// New creates a Service from the configuration.
func New(cfg *config.Config) (*Service, error) {
	logg := logger.New("service")

	bus := eventbus.New[eventbus.Event]()
	client, err := mqtt.New(cfg.MQTT, cfg.Battery, cfg.EV, bus)
	if err != nil {
		return nil, fmt.Errorf("mqtt client: %w", err)
	}

	store, err := newStore(cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("schedule store: %w", err)
	}

	var sinks []coremetrics.PlanSink
	if cfg.Metrics.PrometheusEnabled {
		sink, err := metrics.NewPromSink()
		if err != nil {
			return nil, fmt.Errorf("prom sink: %w", err)
		}
		sinks = append(sinks, sink)
	}
	if cfg.Metrics.InfluxEnabled {
		sinks = append(sinks, metrics.NewInfluxSinkWithFallback(cfg.Metrics))
	}
	var sink coremetrics.PlanSink
	if len(sinks) == 1 {
		sink = sinks[0]
	} else if len(sinks) > 1 {
		sink = metrics.NewMultiSink(sinks...)
	}

	var recorder coremetrics.ModeRecorder
	if r, ok := sink.(coremetrics.ModeRecorder); ok {
		recorder = r
	}

	engine := optimizer.New(cfg.Optimizer, nil, logger.New("optimizer"))
	writer := schedule.NewWriter(store, logger.New("schedule"))
	exec := executor.New(store, client, client, cfg.Modes, nil, recorder, logger.New("executor"))
	coord := coordinator.New(cfg.Planner, engine, writer, store, exec,
		client, client, client, bus, sink, logger.New("coordinator"))

	return &Service{
		Coordinator:  coord,
		Executor:     exec,
		client:       client,
		store:        store,
		bus:          bus,
		log:          logg,
		tickInterval: time.Duration(cfg.Executor.TickSeconds) * time.Second,
		promEnabled:  cfg.Metrics.PrometheusEnabled,
		promPort:     cfg.Metrics.PrometheusPort,
	}, nil
}

func newStore(cfg config.StorageConfig) (schedule.Store, error) {
	if cfg.Backend == "sqlite" {
		return storage.NewSQLiteStore(cfg.Path)
	}
	return schedule.NewMemoryStore(), nil
}

// Run starts the loops and blocks until the context is cancelled.
func (s *Service) Run(ctx context.Context) error {
	go s.Executor.Run(ctx, s.tickInterval)
	if s.promEnabled {
		go func() {
			if err := metrics.StartPromServer(ctx, s.promPort); err != nil {
				s.log.Errorf("prom server: %v", err)
			}
		}()
	}
	err := s.Coordinator.Run(ctx)
	if err == context.Canceled {
		return nil
	}
	return err
}

// Prices exposes the cached market prices, used by one-shot commands to wait
// for retained telemetry.
func (s *Service) Prices(ctx context.Context, kind model.PriceKind) ([]model.PricePoint, error) {
	return s.client.Prices(ctx, kind)
}

// Close releases resources held by the service.
func (s *Service) Close() error {
	s.bus.Close()
	s.client.Disconnect()
	return s.store.Close()
}
