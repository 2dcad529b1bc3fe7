package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	coremetrics "github.com/kilianp07/robocharge/core/metrics"
)

func TestPromSinkRecordTick(t *testing.T) {
	reg := prometheus.NewRegistry()
	sinkIf, err := NewPromSinkWithRegistry(coremetrics.Config{}, reg)
	if err != nil {
		t.Fatalf("prom sink: %v", err)
	}
	sink, ok := sinkIf.(*PromSink)
	if !ok {
		t.Fatalf("expected *PromSink, got %T", sinkIf)
	}

	sample := coremetrics.TickSample{
		RunID:      "run",
		Scenario:   "small",
		Tick:       3,
		States:     map[string]int{"moving": 2, "charging": 1},
		QueueLens:  map[int]int{0: 2},
		Occupants:  map[int]int{0: 1},
		Yields:     4,
		Replans:    1,
		Proposals:  2,
		AvgBattery: 48.5,
	}
	if err := sink.RecordTick(sample); err != nil {
		t.Fatalf("record tick: %v", err)
	}
	if got := testutil.ToFloat64(sink.ticks.WithLabelValues("small")); got != 1 {
		t.Fatalf("ticks counter = %v, want 1", got)
	}
	if got := testutil.ToFloat64(sink.states.WithLabelValues("small", "moving")); got != 2 {
		t.Fatalf("moving gauge = %v, want 2", got)
	}
	if got := testutil.ToFloat64(sink.queueLen.WithLabelValues("small", "0")); got != 2 {
		t.Fatalf("queue gauge = %v, want 2", got)
	}
	if got := testutil.ToFloat64(sink.battery.WithLabelValues("small")); got != 48.5 {
		t.Fatalf("battery gauge = %v, want 48.5", got)
	}
}

func TestPromSinkRecordRun(t *testing.T) {
	reg := prometheus.NewRegistry()
	sinkIf, err := NewPromSinkWithRegistry(coremetrics.Config{}, reg)
	if err != nil {
		t.Fatalf("prom sink: %v", err)
	}
	sink := sinkIf.(*PromSink)
	sum := coremetrics.Summary{
		RunID:    "run",
		Scenario: "small",
		Reason:   "completed",
		Ticks:    60,
		System:   coremetrics.SystemSummary{Fairness: 0.97},
	}
	if err := sink.RecordRun(sum); err != nil {
		t.Fatalf("record run: %v", err)
	}
	if got := testutil.ToFloat64(sink.runs.WithLabelValues("small", "completed")); got != 1 {
		t.Fatalf("runs counter = %v, want 1", got)
	}
	if got := testutil.ToFloat64(sink.fairness.WithLabelValues("small")); got != 0.97 {
		t.Fatalf("fairness gauge = %v, want 0.97", got)
	}
}

func TestPromSinkDoubleRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	if _, err := NewPromSinkWithRegistry(coremetrics.Config{}, reg); err != nil {
		t.Fatalf("first registration: %v", err)
	}
	if _, err := NewPromSinkWithRegistry(coremetrics.Config{}, reg); err != nil {
		t.Fatalf("second registration should reuse collectors: %v", err)
	}
}
