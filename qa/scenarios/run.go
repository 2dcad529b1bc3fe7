package scenarios

import (
	"testing"

	"github.com/kilianp07/robocharge/core/metrics"
	"github.com/kilianp07/robocharge/core/sim"
)

// RunScenario executes a preset to termination, checking the structural
// invariants after every tick and the scenario's expected outcome at the
// end. The observe hook, when non-nil, runs after each tick.
func RunScenario(t *testing.T, sc sim.Scenario, observe func(t *testing.T, m *sim.Model)) sim.Result {
	t.Helper()
	m, err := sim.New(sc, metrics.NopSink{}, nil)
	if err != nil {
		t.Fatalf("scenario %s: %v", sc.Name, err)
	}
	for !m.Done() {
		m.Step()
		if err := m.CheckInvariants(); err != nil {
			t.Fatalf("scenario %s tick %d: %v", sc.Name, m.Tick(), err)
		}
		if observe != nil {
			observe(t, m)
		}
	}
	result := m.Result()

	if exp := sc.Expected; exp != nil {
		completed := 0
		for _, v := range result.Summary.Vehicles {
			if v.Completed {
				completed++
			}
		}
		if completed != exp.Completed {
			t.Errorf("scenario %s: %d vehicles completed, want %d", sc.Name, completed, exp.Completed)
		}
		if exp.MaxTicks > 0 && result.Ticks > exp.MaxTicks {
			t.Errorf("scenario %s: took %d ticks, budget %d", sc.Name, result.Ticks, exp.MaxTicks)
		}
	}
	return result
}
