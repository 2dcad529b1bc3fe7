package metrics

import (
	"sort"

	"gonum.org/v1/gonum/floats"

	"github.com/kilianp07/robocharge/core/grid"
	"github.com/kilianp07/robocharge/core/message"
	"github.com/kilianp07/robocharge/core/orchestrator"
	"github.com/kilianp07/robocharge/core/vehicle"
)

// Collector observes the simulation after every tick and aggregates the
// per-run summary. It never mutates simulation state.
type Collector struct {
	runID    string
	scenario string
	sink     Sink

	ticks         int
	occupiedTicks map[int]int
	peakQueue     map[int]int
}

// NewCollector creates a collector reporting to the sink. A nil sink is
// replaced by NopSink.
func NewCollector(runID, scenario string, sink Sink) *Collector {
	if sink == nil {
		sink = NopSink{}
	}
	return &Collector{
		runID:         runID,
		scenario:      scenario,
		sink:          sink,
		occupiedTicks: make(map[int]int),
		peakQueue:     make(map[int]int),
	}
}

// Collect records one tick's state.
func (c *Collector) Collect(tick int, vehicles []*vehicle.Vehicle, stations []*grid.ChargingStation, orch orchestrator.Stats) error {
	c.ticks = tick + 1

	sample := TickSample{
		RunID:     c.runID,
		Scenario:  c.scenario,
		Tick:      tick,
		States:    make(map[string]int),
		QueueLens: make(map[int]int),
		Occupants: make(map[int]int),
		Proposals: orch.CounterProposals,
	}
	var battery float64
	for _, v := range vehicles {
		sample.States[v.State.String()]++
		sample.Yields += v.Stats.Yields
		sample.Replans += v.Stats.Replans
		battery += v.Battery
	}
	if len(vehicles) > 0 {
		sample.AvgBattery = battery / float64(len(vehicles))
	}
	for _, st := range stations {
		sample.QueueLens[st.ID] = len(st.Queue)
		sample.Occupants[st.ID] = len(st.Occupants)
		if len(st.Occupants) > 0 {
			c.occupiedTicks[st.ID]++
		}
		if len(st.Queue) > c.peakQueue[st.ID] {
			c.peakQueue[st.ID] = len(st.Queue)
		}
	}
	return c.sink.RecordTick(sample)
}

// Summary builds the final report for the run.
func (c *Collector) Summary(vehicles []*vehicle.Vehicle, stations []*grid.ChargingStation, orch orchestrator.Stats, reason string) Summary {
	out := Summary{
		RunID:    c.runID,
		Scenario: c.scenario,
		Ticks:    c.ticks,
		Reason:   reason,
		System: SystemSummary{
			YieldsAverted:     0,
			CounterProposals:  orch.CounterProposals,
			AcceptsByBehavior: orch.AcceptsByB,
			RejectsByBehavior: orch.RejectsByB,
		},
	}

	var completionTicks []float64
	for _, v := range vehicles {
		vs := VehicleSummary{
			ID:            v.ID,
			Behavior:      v.Behavior.String(),
			Distance:      v.Stats.Distance,
			ChargingTicks: v.Stats.ChargingTicks,
			WaitingTicks:  v.Stats.WaitingTicks,
			Replans:       v.Stats.Replans,
			Yields:        v.Stats.Yields,
			Completed:     v.State == message.Completed && !v.Stranded,
			Stranded:      v.Stranded,
			CompletedTick: v.Stats.CompletedTick,
		}
		out.System.YieldsAverted += v.Stats.Yields
		if vs.Completed {
			completionTicks = append(completionTicks, float64(v.Stats.CompletedTick))
		}
		out.Vehicles = append(out.Vehicles, vs)
	}
	sort.Slice(out.Vehicles, func(i, j int) bool { return out.Vehicles[i].ID < out.Vehicles[j].ID })

	for _, st := range stations {
		util := 0.0
		if c.ticks > 0 {
			util = float64(c.occupiedTicks[st.ID]) / float64(c.ticks)
		}
		out.Stations = append(out.Stations, StationSummary{
			ID:          st.ID,
			Utilization: util,
			PeakQueue:   c.peakQueue[st.ID],
		})
	}

	out.System.Fairness = jain(completionTicks)
	return out
}

// Flush sends the run summary to the sink.
func (c *Collector) Flush(s Summary) error { return c.sink.RecordRun(s) }

// jain computes the Jain fairness index (sum x)^2 / (n * sum x^2), which is
// 1 for perfectly even completion times.
func jain(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	sum := floats.Sum(xs)
	sq := floats.Dot(xs, xs)
	if sq == 0 {
		return 1
	}
	return sum * sum / (float64(len(xs)) * sq)
}
