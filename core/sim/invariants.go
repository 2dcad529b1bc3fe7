package sim

import (
	"fmt"

	"github.com/kilianp07/robocharge/core/grid"
	"github.com/kilianp07/robocharge/core/message"
)

// CheckInvariants verifies the structural invariants that must hold after
// every tick. Intended for tests and debugging; the simulation does not run
// it on the hot path.
func (m *Model) CheckInvariants() error {
	// No two active vehicles share a cell.
	occupied := make(map[grid.Coord]int)
	for _, v := range m.vehicles {
		if v.Terminal() {
			continue
		}
		if other, clash := occupied[v.Coord]; clash {
			return fmt.Errorf("vehicles %d and %d both occupy %s", other, v.ID, v.Coord)
		}
		occupied[v.Coord] = v.ID
		if v.Battery < 0 || v.Battery > 100 {
			return fmt.Errorf("vehicle %d battery %.2f outside [0,100]", v.ID, v.Battery)
		}
	}

	for _, st := range m.grid.Stations {
		if len(st.Occupants) > st.Capacity {
			return fmt.Errorf("station %d has %d occupants, capacity %d", st.ID, len(st.Occupants), st.Capacity)
		}
		inQueue := make(map[int]bool, len(st.Queue))
		for _, id := range st.Queue {
			inQueue[id] = true
		}
		for _, id := range st.Occupants {
			if inQueue[id] {
				return fmt.Errorf("vehicle %d is both occupant and queued at station %d", id, st.ID)
			}
		}
	}

	// A charging vehicle sits on its station cell and is an occupant there.
	for _, v := range m.vehicles {
		if v.State != message.Charging {
			continue
		}
		st := m.grid.StationAt(v.Coord)
		if st == nil || st.ID != v.AssignedStation {
			return fmt.Errorf("vehicle %d charging off its station cell at %s", v.ID, v.Coord)
		}
		if st.QueuePos(v.ID) != 0 {
			return fmt.Errorf("charging vehicle %d not an occupant of station %d", v.ID, st.ID)
		}
	}
	return nil
}
