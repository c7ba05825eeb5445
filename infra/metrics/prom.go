package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	coremetrics "github.com/kilianp07/hems/core/metrics"
)

// PromSink records optimization passes as Prometheus metrics.
type PromSink struct {
	passes    *prometheus.CounterVec
	deficit   prometheus.Gauge
	cycleCost prometheus.Gauge
	planned   *prometheus.GaugeVec
	emergency prometheus.Counter
	evUrgent  prometheus.Counter
	duration  prometheus.Histogram
	modes     *prometheus.CounterVec
}

// NewPromSink registers the planner metrics on the default registerer.
func NewPromSink() (*PromSink, error) {
	return NewPromSinkWithRegistry(prometheus.DefaultRegisterer)
}

// NewPromSinkWithRegistry registers metrics on the provided registerer.
// A nil registerer defaults to the global one.
func NewPromSinkWithRegistry(reg prometheus.Registerer) (*PromSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	s := &PromSink{
		passes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hems_optimization_passes_total",
			Help: "Optimization passes by trigger and outcome",
		}, []string{"trigger", "aborted"}),
		deficit: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "hems_energy_deficit_kwh",
			Help: "Horizon energy deficit computed by the last pass",
		}),
		cycleCost: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "hems_battery_cycle_cost",
			Help: "Amortized battery wear cost per kWh",
		}),
		planned: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "hems_planned_hours",
			Help: "Hours planned by the last pass, by kind",
		}, []string{"kind"}),
		emergency: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "hems_emergency_charges_total",
			Help: "Passes that injected out-of-band emergency charge hours",
		}),
		evUrgent: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "hems_ev_urgent_charges_total",
			Help: "Passes that degraded to urgent immediate EV charging",
		}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "hems_optimization_duration_seconds",
			Help:    "Wall time of an optimization pass",
			Buckets: prometheus.DefBuckets,
		}),
		modes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hems_mode_changes_total",
			Help: "Inverter mode applications",
		}, []string{"mode"}),
	}
	for _, c := range []prometheus.Collector{
		s.passes, s.deficit, s.cycleCost, s.planned,
		s.emergency, s.evUrgent, s.duration, s.modes,
	} {
		if err := reg.Register(c); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); !ok {
				return nil, err
			}
		}
	}
	return s, nil
}

// RecordPass implements coremetrics.PlanSink.
func (s *PromSink) RecordPass(ev coremetrics.PassEvent) error {
	s.passes.WithLabelValues(ev.Trigger, strconv.FormatBool(ev.Aborted)).Inc()
	s.duration.Observe(ev.Duration.Seconds())
	if ev.Aborted {
		return nil
	}
	s.deficit.Set(ev.Result.TotalDeficitKWh)
	s.cycleCost.Set(ev.Result.CycleCost)
	s.planned.WithLabelValues("charge").Set(float64(len(ev.Result.ChargeHours)))
	s.planned.WithLabelValues("discharge").Set(float64(len(ev.Result.DischargeHours)))
	s.planned.WithLabelValues("solar").Set(float64(len(ev.Result.SolarHours)))
	if ev.Result.Emergency {
		s.emergency.Inc()
	}
	if ev.Result.EVUrgent {
		s.evUrgent.Inc()
	}
	return nil
}

// RecordModeChange implements coremetrics.ModeRecorder.
func (s *PromSink) RecordModeChange(ev coremetrics.ModeChange) error {
	s.modes.WithLabelValues(ev.Mode).Inc()
	return nil
}
