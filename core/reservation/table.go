// Package reservation tracks per-tick cell ownership so vehicles can detect
// and plan around future collisions. Priority rules resolve same-tick intent
// ties; the table resolves future conflicts and swaps.
package reservation

import (
	"fmt"
	"sort"

	"github.com/kilianp07/robocharge/core/grid"
)

// ConflictError reports a reservation that clashed with another vehicle's.
type ConflictError struct {
	Tick   int
	Coord  grid.Coord
	Holder int
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("cell %s at tick %d already reserved by vehicle %d", e.Coord, e.Tick, e.Holder)
}

// Table maps (tick, coord) to the owning vehicle, with a secondary index per
// vehicle. It is mutated only by vehicles during their own step slots, in id
// order, so no locking is needed.
type Table struct {
	byTick    map[int]map[grid.Coord]int
	byVehicle map[int]map[int]grid.Coord
}

// NewTable returns an empty reservation table.
func NewTable() *Table {
	return &Table{
		byTick:    make(map[int]map[grid.Coord]int),
		byVehicle: make(map[int]map[int]grid.Coord),
	}
}

// Reserve claims coord at tick for the vehicle. Reserving a cell the vehicle
// already holds is a no-op.
func (t *Table) Reserve(vehicleID, tick int, c grid.Coord) error {
	cells := t.byTick[tick]
	if holder, ok := cells[c]; ok && holder != vehicleID {
		return &ConflictError{Tick: tick, Coord: c, Holder: holder}
	}
	if cells == nil {
		cells = make(map[grid.Coord]int)
		t.byTick[tick] = cells
	}
	cells[c] = vehicleID
	ticks := t.byVehicle[vehicleID]
	if ticks == nil {
		ticks = make(map[int]grid.Coord)
		t.byVehicle[vehicleID] = ticks
	}
	ticks[tick] = c
	return nil
}

// ReservePath reserves path[0] at firstTick, path[1] at firstTick+1, and so
// on. On the first conflict nothing is kept.
func (t *Table) ReservePath(vehicleID, firstTick int, path []grid.Coord) error {
	for i, c := range path {
		if holder, ok := t.ReservedBy(firstTick+i, c); ok && holder != vehicleID {
			return &ConflictError{Tick: firstTick + i, Coord: c, Holder: holder}
		}
	}
	for i, c := range path {
		// The prefix was checked conflict-free above; only stale own
		// entries at the same tick can be overwritten here.
		t.release(vehicleID, firstTick+i)
		if err := t.Reserve(vehicleID, firstTick+i, c); err != nil {
			return err
		}
	}
	return nil
}

// ReservedBy returns the vehicle holding coord at tick.
func (t *Table) ReservedBy(tick int, c grid.Coord) (int, bool) {
	holder, ok := t.byTick[tick][c]
	return holder, ok
}

// release drops the vehicle's reservation at tick, if any.
func (t *Table) release(vehicleID, tick int) {
	c, ok := t.byVehicle[vehicleID][tick]
	if !ok {
		return
	}
	if holder, held := t.byTick[tick][c]; held && holder == vehicleID {
		delete(t.byTick[tick], c)
	}
	delete(t.byVehicle[vehicleID], tick)
}

// ClearVehicle removes every reservation held by the vehicle. Used on replan.
func (t *Table) ClearVehicle(vehicleID int) {
	ticks := t.byVehicle[vehicleID]
	if ticks == nil {
		return
	}
	for tick, c := range ticks {
		if holder, held := t.byTick[tick][c]; held && holder == vehicleID {
			delete(t.byTick[tick], c)
		}
	}
	delete(t.byVehicle, vehicleID)
}

// GC drops all entries older than currentTick.
func (t *Table) GC(currentTick int) {
	for tick, cells := range t.byTick {
		if tick >= currentTick {
			continue
		}
		for c, holder := range cells {
			if ticks, ok := t.byVehicle[holder]; ok {
				if have, held := ticks[tick]; held && have == c {
					delete(ticks, tick)
				}
				if len(ticks) == 0 {
					delete(t.byVehicle, holder)
				}
			}
		}
		delete(t.byTick, tick)
	}
}

// BlockedAt returns the cells reserved at tick by vehicles other than
// exclude, sorted for deterministic iteration by callers.
func (t *Table) BlockedAt(tick, exclude int) []grid.Coord {
	var out []grid.Coord
	for c, holder := range t.byTick[tick] {
		if holder != exclude {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].X != out[j].X {
			return out[i].X < out[j].X
		}
		return out[i].Y < out[j].Y
	})
	return out
}

// VehicleReservations returns the vehicle's (tick, coord) claims in tick
// order.
func (t *Table) VehicleReservations(vehicleID int) []struct {
	Tick  int
	Coord grid.Coord
} {
	ticks := t.byVehicle[vehicleID]
	keys := make([]int, 0, len(ticks))
	for tick := range ticks {
		keys = append(keys, tick)
	}
	sort.Ints(keys)
	out := make([]struct {
		Tick  int
		Coord grid.Coord
	}, 0, len(keys))
	for _, tick := range keys {
		out = append(out, struct {
			Tick  int
			Coord grid.Coord
		}{tick, ticks[tick]})
	}
	return out
}
