package sim

import (
	"github.com/kilianp07/robocharge/core/grid"
	"github.com/kilianp07/robocharge/core/metrics"
)

// VehicleSnapshot is the read-only view of one vehicle.
type VehicleSnapshot struct {
	ID        int          `json:"id"`
	Coord     grid.Coord   `json:"coord"`
	Battery   float64      `json:"battery"`
	State     string       `json:"state"`
	Stranded  bool         `json:"stranded,omitempty"`
	Behavior  string       `json:"behavior"`
	Path      []grid.Coord `json:"path,omitempty"`
	Trail     []grid.Coord `json:"trail,omitempty"`
	StationID int          `json:"station_id"` // -1 when unassigned
	QueuePos  int          `json:"queue_pos"`  // -1 when unassigned
}

// StationSnapshot is the read-only view of one station.
type StationSnapshot struct {
	ID        int        `json:"id"`
	Coord     grid.Coord `json:"coord"`
	Capacity  int        `json:"capacity"`
	Occupants []int      `json:"occupants"`
	Queue     []int      `json:"queue"`
}

// Snapshot is a tick-aligned view of the whole simulation, taken only
// between ticks so external observers never see a half-applied step.
type Snapshot struct {
	RunID    string            `json:"run_id"`
	Scenario string            `json:"scenario"`
	Tick     int               `json:"tick"`
	Done     bool              `json:"done"`
	Reason   Reason            `json:"reason"`
	Vehicles []VehicleSnapshot `json:"vehicles"`
	Stations []StationSnapshot `json:"stations"`
	Logs     []LogLine         `json:"logs"`
	Metrics  metrics.Summary   `json:"metrics"`
	GridView string            `json:"grid_view"`
}

// Snapshot captures the current state. Call only between ticks.
func (m *Model) Snapshot() Snapshot {
	snap := Snapshot{
		RunID:    m.runID,
		Scenario: m.scenario.Name,
		Tick:     m.tick,
		Done:     m.done,
		Reason:   m.reason,
		Logs:     append([]LogLine(nil), m.recent...),
		Metrics:  m.collector.Summary(m.vehicles, m.grid.Stations, m.orch.Stats(), string(m.reason)),
	}

	positions := make(map[grid.Coord]int)
	for _, v := range m.vehicles {
		vs := VehicleSnapshot{
			ID:        v.ID,
			Coord:     v.Coord,
			Battery:   v.Battery,
			State:     v.State.String(),
			Stranded:  v.Stranded,
			Behavior:  v.Behavior.String(),
			Path:      v.RemainingPath(),
			Trail:     append([]grid.Coord(nil), v.Trail...),
			StationID: v.AssignedStation,
			QueuePos:  v.QueuePos,
		}
		if !v.Terminal() {
			positions[v.Coord] = v.ID
		}
		snap.Vehicles = append(snap.Vehicles, vs)
	}
	for _, st := range m.grid.Stations {
		snap.Stations = append(snap.Stations, StationSnapshot{
			ID:        st.ID,
			Coord:     st.Coord,
			Capacity:  st.Capacity,
			Occupants: append([]int(nil), st.Occupants...),
			Queue:     append([]int(nil), st.Queue...),
		})
	}
	snap.GridView = m.grid.String(positions)
	return snap
}

// Reset rebuilds the model to its initial state from the same scenario.
func (m *Model) Reset() error {
	fresh, err := New(m.scenario, m.sink, m.log)
	if err != nil {
		return err
	}
	*m = *fresh
	return nil
}
