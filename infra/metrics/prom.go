package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	coremetrics "github.com/kilianp07/robocharge/core/metrics"
)

// PromSink exposes simulation progress as Prometheus metrics.
type PromSink struct {
	ticks     *prometheus.CounterVec
	states    *prometheus.GaugeVec
	queueLen  *prometheus.GaugeVec
	occupants *prometheus.GaugeVec
	battery   *prometheus.GaugeVec
	yields    *prometheus.GaugeVec
	proposals *prometheus.GaugeVec
	runs      *prometheus.CounterVec
	fairness  *prometheus.GaugeVec
}

// NewPromSink registers the simulation metrics on the default registerer.
func NewPromSink(cfg coremetrics.Config) (coremetrics.Sink, error) {
	return NewPromSinkWithRegistry(cfg, prometheus.DefaultRegisterer)
}

// NewPromSinkWithRegistry registers metrics on the provided registerer. A
// nil registerer defaults to the global one.
func NewPromSinkWithRegistry(cfg coremetrics.Config, reg prometheus.Registerer) (coremetrics.Sink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	s := &PromSink{
		ticks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sim_ticks_total",
			Help: "Total simulation ticks executed",
		}, []string{"scenario"}),
		states: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "sim_vehicles_by_state",
			Help: "Vehicles per state machine state",
		}, []string{"scenario", "state"}),
		queueLen: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "sim_station_queue_length",
			Help: "Queue length per charging station",
		}, []string{"scenario", "station"}),
		occupants: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "sim_station_occupants",
			Help: "Occupied slots per charging station",
		}, []string{"scenario", "station"}),
		battery: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "sim_fleet_avg_battery",
			Help: "Average fleet battery level",
		}, []string{"scenario"}),
		yields: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "sim_collision_yields_total",
			Help: "Cumulative collision yields averted",
		}, []string{"scenario"}),
		proposals: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "sim_counter_proposals_total",
			Help: "Cumulative negotiation counter-proposals",
		}, []string{"scenario"}),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sim_runs_total",
			Help: "Completed simulation runs by termination reason",
		}, []string{"scenario", "reason"}),
		fairness: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "sim_fairness_jain",
			Help: "Jain fairness index over ticks-to-complete",
		}, []string{"scenario"}),
	}
	collectors := []prometheus.Collector{
		s.ticks, s.states, s.queueLen, s.occupants, s.battery, s.yields, s.proposals, s.runs, s.fairness,
	}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); !ok {
				return nil, err
			}
		}
	}
	return s, nil
}

// RecordTick updates the per-tick gauges.
func (s *PromSink) RecordTick(t coremetrics.TickSample) error {
	s.ticks.WithLabelValues(t.Scenario).Inc()
	for state, n := range t.States {
		s.states.WithLabelValues(t.Scenario, state).Set(float64(n))
	}
	for id, n := range t.QueueLens {
		s.queueLen.WithLabelValues(t.Scenario, strconv.Itoa(id)).Set(float64(n))
	}
	for id, n := range t.Occupants {
		s.occupants.WithLabelValues(t.Scenario, strconv.Itoa(id)).Set(float64(n))
	}
	s.battery.WithLabelValues(t.Scenario).Set(t.AvgBattery)
	s.yields.WithLabelValues(t.Scenario).Set(float64(t.Yields))
	s.proposals.WithLabelValues(t.Scenario).Set(float64(t.Proposals))
	return nil
}

// RecordRun counts the finished run and publishes the fairness index.
func (s *PromSink) RecordRun(sum coremetrics.Summary) error {
	s.runs.WithLabelValues(sum.Scenario, sum.Reason).Inc()
	s.fairness.WithLabelValues(sum.Scenario).Set(sum.System.Fairness)
	return nil
}
