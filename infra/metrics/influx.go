package metrics

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	coremetrics "github.com/kilianp07/hems/core/metrics"
	"github.com/kilianp07/hems/infra/logger"
)

// InfluxSink writes optimization passes to an InfluxDB instance using the
// official client.
type InfluxSink struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	log      logger.Logger
}

// NewInfluxSink creates a sink for the given InfluxDB endpoint.
func NewInfluxSink(cfg coremetrics.Config) *InfluxSink {
	base := strings.TrimSuffix(cfg.InfluxURL, "/api/v2/write")
	client := influxdb2.NewClientWithOptions(base, cfg.InfluxToken,
		influxdb2.DefaultOptions().SetHTTPClient(&http.Client{Timeout: 5 * time.Second}))
	return &InfluxSink{
		client:   client,
		writeAPI: client.WriteAPIBlocking(cfg.InfluxOrg, cfg.InfluxBucket),
		log:      logger.New("influx-sink"),
	}
}

// NewInfluxSinkWithFallback pings the InfluxDB instance and returns a NopSink
// when the health check fails, so a broken metrics backend never blocks
// planning.
func NewInfluxSinkWithFallback(cfg coremetrics.Config) coremetrics.PlanSink {
	sink := NewInfluxSink(cfg)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	health, err := sink.client.Health(ctx)
	if err != nil || health.Status != "pass" {
		if err != nil {
			sink.log.Errorf("influx health check error: %v", err)
		} else {
			sink.log.Errorf("influx health status: %s", health.Status)
		}
		sink.client.Close()
		return NopSink{}
	}
	return sink
}

// RecordPass writes the pass summary and one point per planned hour.
func (s *InfluxSink) RecordPass(ev coremetrics.PassEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("optimization_pass").
		AddTag("pass_id", ev.PassID).
		AddTag("trigger", ev.Trigger).
		AddTag("aborted", strconv.FormatBool(ev.Aborted)).
		AddField("horizon", ev.Horizon).
		AddField("deficit_kwh", ev.Result.TotalDeficitKWh).
		AddField("cycle_cost", ev.Result.CycleCost).
		AddField("charge_hours", len(ev.Result.ChargeHours)).
		AddField("discharge_hours", len(ev.Result.DischargeHours)).
		AddField("solar_hours", len(ev.Result.SolarHours)).
		AddField("emergency", ev.Result.Emergency).
		AddField("ev_urgent", ev.Result.EVUrgent).
		AddField("duration_ms", ev.Duration.Milliseconds()).
		SetTime(ev.Time)
	if err := s.writeAPI.WritePoint(ctx, p); err != nil {
		return err
	}
	for _, h := range ev.Result.ChargeHours {
		hp := write.NewPointWithMeasurement("planned_hour").
			AddTag("pass_id", ev.PassID).
			AddTag("kind", "charge").
			AddTag("slot", h.Slot.String()).
			AddField("price", h.Price).
			AddField("effective_price", h.EffectivePrice).
			AddField("emergency", h.Emergency).
			SetTime(ev.Time)
		if err := s.writeAPI.WritePoint(ctx, hp); err != nil {
			return err
		}
	}
	return nil
}

// RecordModeChange writes an inverter mode application.
func (s *InfluxSink) RecordModeChange(ev coremetrics.ModeChange) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("mode_change").
		AddTag("mode", ev.Mode).
		AddField("applied", 1).
		SetTime(ev.Time)
	return s.writeAPI.WritePoint(ctx, p)
}

// Close flushes the underlying client.
func (s *InfluxSink) Close() { s.client.Close() }
