// Package metrics defines the simulation metrics model and the sink
// interface observability backends implement.
package metrics

// TickSample is the per-tick observation handed to sinks.
type TickSample struct {
	RunID      string         `json:"run_id"`
	Scenario   string         `json:"scenario"`
	Tick       int            `json:"tick"`
	States     map[string]int `json:"states"` // vehicle state name -> count
	QueueLens  map[int]int    `json:"queue_lens"`
	Occupants  map[int]int    `json:"occupants"`
	Yields     int            `json:"yields"`
	Replans    int            `json:"replans"`
	Proposals  int            `json:"proposals"`
	AvgBattery float64        `json:"avg_battery"`
}

// VehicleSummary aggregates one vehicle's run.
type VehicleSummary struct {
	ID            int    `json:"id"`
	Behavior      string `json:"behavior"`
	Distance      int    `json:"distance"`
	ChargingTicks int    `json:"charging_ticks"`
	WaitingTicks  int    `json:"waiting_ticks"`
	Replans       int    `json:"replans"`
	Yields        int    `json:"yields"`
	Completed     bool   `json:"completed"`
	Stranded      bool   `json:"stranded"`
	CompletedTick int    `json:"completed_tick"`
}

// StationSummary aggregates one station's run.
type StationSummary struct {
	ID          int     `json:"id"`
	Utilization float64 `json:"utilization"` // occupied ticks / total ticks
	PeakQueue   int     `json:"peak_queue"`
}

// SystemSummary holds fleet-wide aggregates.
type SystemSummary struct {
	YieldsAverted     int            `json:"yields_averted"`
	CounterProposals  int            `json:"counter_proposals"`
	AcceptsByBehavior map[string]int `json:"accepts_by_behavior"`
	RejectsByBehavior map[string]int `json:"rejects_by_behavior"`
	Fairness          float64        `json:"fairness"` // Jain index over ticks-to-complete
}

// Summary is the full per-run report.
type Summary struct {
	RunID    string           `json:"run_id"`
	Scenario string           `json:"scenario"`
	Ticks    int              `json:"ticks"`
	Reason   string           `json:"reason"`
	Vehicles []VehicleSummary `json:"vehicles"`
	Stations []StationSummary `json:"stations"`
	System   SystemSummary    `json:"system"`
}

// Sink records simulation observations.
type Sink interface {
	RecordTick(TickSample) error
	RecordRun(Summary) error
}

// NopSink discards everything.
type NopSink struct{}

func (NopSink) RecordTick(TickSample) error { return nil }
func (NopSink) RecordRun(Summary) error     { return nil }

// MultiSink fans observations out to several sinks, returning the first
// error encountered.
type MultiSink struct {
	sinks []Sink
}

// NewMultiSink combines sinks into one.
func NewMultiSink(sinks ...Sink) *MultiSink { return &MultiSink{sinks: sinks} }

func (m *MultiSink) RecordTick(s TickSample) error {
	var first error
	for _, sink := range m.sinks {
		if err := sink.RecordTick(s); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func (m *MultiSink) RecordRun(s Summary) error {
	var first error
	for _, sink := range m.sinks {
		if err := sink.RecordRun(s); err != nil && first == nil {
			first = err
		}
	}
	return first
}
