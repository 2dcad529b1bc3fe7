package reservation

import (
	"errors"
	"testing"

	"github.com/kilianp07/robocharge/core/grid"
)

func TestReserveConflict(t *testing.T) {
	tbl := NewTable()
	c := grid.Coord{2, 3}
	if err := tbl.Reserve(1, 5, c); err != nil {
		t.Fatalf("reserve: %v", err)
	}
	// Re-reserving one's own claim is a no-op.
	if err := tbl.Reserve(1, 5, c); err != nil {
		t.Fatalf("own re-reserve: %v", err)
	}
	err := tbl.Reserve(2, 5, c)
	var conflict *ConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("err = %v, want ConflictError", err)
	}
	if conflict.Holder != 1 || conflict.Tick != 5 || conflict.Coord != c {
		t.Fatalf("conflict = %+v", conflict)
	}
	// Same cell at another tick is free.
	if err := tbl.Reserve(2, 6, c); err != nil {
		t.Fatalf("reserve other tick: %v", err)
	}
}

func TestReservePathRollsBack(t *testing.T) {
	tbl := NewTable()
	if err := tbl.Reserve(9, 12, grid.Coord{2, 0}); err != nil {
		t.Fatalf("setup: %v", err)
	}
	path := []grid.Coord{{0, 0}, {1, 0}, {2, 0}}
	err := tbl.ReservePath(1, 10, path)
	if err == nil {
		t.Fatalf("expected conflict on (2,0)@12")
	}
	// Nothing from the failed attempt is kept.
	for i, c := range path {
		if holder, ok := tbl.ReservedBy(10+i, c); ok && holder == 1 {
			t.Fatalf("leftover reservation at %v tick %d", c, 10+i)
		}
	}
	if err := tbl.ReservePath(1, 20, path); err != nil {
		t.Fatalf("clean reserve: %v", err)
	}
	for i, c := range path {
		holder, ok := tbl.ReservedBy(20+i, c)
		if !ok || holder != 1 {
			t.Fatalf("missing reservation at %v tick %d", c, 20+i)
		}
	}
}

func TestClearVehicle(t *testing.T) {
	tbl := NewTable()
	path := []grid.Coord{{0, 0}, {0, 1}, {0, 2}}
	if err := tbl.ReservePath(4, 1, path); err != nil {
		t.Fatalf("reserve: %v", err)
	}
	tbl.ClearVehicle(4)
	for i, c := range path {
		if _, ok := tbl.ReservedBy(1+i, c); ok {
			t.Fatalf("reservation survived clear at %v", c)
		}
	}
	if got := tbl.VehicleReservations(4); len(got) != 0 {
		t.Fatalf("vehicle index not cleared: %v", got)
	}
}

func TestGC(t *testing.T) {
	tbl := NewTable()
	for tick := 0; tick < 10; tick++ {
		if err := tbl.Reserve(1, tick, grid.Coord{tick, 0}); err != nil {
			t.Fatalf("reserve: %v", err)
		}
	}
	tbl.GC(5)
	for tick := 0; tick < 5; tick++ {
		if _, ok := tbl.ReservedBy(tick, grid.Coord{tick, 0}); ok {
			t.Fatalf("stale entry at tick %d survived gc", tick)
		}
	}
	for tick := 5; tick < 10; tick++ {
		if _, ok := tbl.ReservedBy(tick, grid.Coord{tick, 0}); !ok {
			t.Fatalf("live entry at tick %d dropped by gc", tick)
		}
	}
}

func TestBlockedAt(t *testing.T) {
	tbl := NewTable()
	_ = tbl.Reserve(1, 3, grid.Coord{5, 5})
	_ = tbl.Reserve(2, 3, grid.Coord{1, 1})
	_ = tbl.Reserve(2, 4, grid.Coord{2, 2})
	got := tbl.BlockedAt(3, 1)
	if len(got) != 1 || got[0] != (grid.Coord{1, 1}) {
		t.Fatalf("blocked = %v, want [(1,1)]", got)
	}
}

func TestVehicleReservationsOrdered(t *testing.T) {
	tbl := NewTable()
	_ = tbl.Reserve(7, 9, grid.Coord{0, 2})
	_ = tbl.Reserve(7, 3, grid.Coord{0, 0})
	_ = tbl.Reserve(7, 6, grid.Coord{0, 1})
	got := tbl.VehicleReservations(7)
	if len(got) != 3 {
		t.Fatalf("got %d entries", len(got))
	}
	for i := 1; i < len(got); i++ {
		if got[i].Tick <= got[i-1].Tick {
			t.Fatalf("not ordered by tick: %v", got)
		}
	}
}
