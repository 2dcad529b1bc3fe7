package grid

import "testing"

const testMap = `.....
.#.C.
.....
..#..
E....`

func TestParse(t *testing.T) {
	g, err := Parse(testMap, []int{2})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if g.Width != 5 || g.Height != 5 {
		t.Fatalf("got %dx%d, want 5x5", g.Width, g.Height)
	}
	if len(g.Stations) != 1 {
		t.Fatalf("got %d stations, want 1", len(g.Stations))
	}
	st := g.Stations[0]
	if st.Coord != (Coord{3, 1}) || st.Capacity != 2 {
		t.Fatalf("station = %+v", st)
	}
	if !g.HasExit() || g.Exit != (Coord{0, 4}) {
		t.Fatalf("exit = %v", g.Exit)
	}
	if g.IsWalkable(Coord{1, 1}) {
		t.Fatalf("obstacle (1,1) reported walkable")
	}
	if !g.IsWalkable(Coord{3, 1}) {
		t.Fatalf("station cell not walkable")
	}
	if !g.IsWalkable(Coord{0, 4}) {
		t.Fatalf("exit cell not walkable")
	}
}

func TestParseErrors(t *testing.T) {
	cases := []struct {
		name string
		m    string
		caps []int
	}{
		{"empty", "", nil},
		{"ragged", ".....\n...", nil},
		{"unknown rune", "..X..", nil},
		{"extra capacities", ".....", []int{1}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := Parse(tc.m, tc.caps); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}

func TestNeighbors4Order(t *testing.T) {
	g, err := Parse(testMap, []int{1})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	// Fixed order (0,1),(1,0),(0,-1),(-1,0), filtered to walkable: (2,3) is
	// an obstacle in testMap and drops out.
	got := g.Neighbors4(Coord{2, 2})
	want := []Coord{{3, 2}, {2, 1}, {1, 2}}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("neighbor %d = %v, want %v", i, got[i], want[i])
		}
	}
	// Corner cell drops out-of-bounds neighbors.
	got = g.Neighbors4(Coord{0, 0})
	want = []Coord{{0, 1}, {1, 0}}
	if len(got) != 2 || got[0] != want[0] || got[1] != want[1] {
		t.Fatalf("corner neighbors = %v, want %v", got, want)
	}
}

func TestManhattan(t *testing.T) {
	if d := Manhattan(Coord{1, 2}, Coord{4, 6}); d != 7 {
		t.Fatalf("manhattan = %d, want 7", d)
	}
	if d := Manhattan(Coord{4, 6}, Coord{1, 2}); d != 7 {
		t.Fatalf("manhattan not symmetric: %d", d)
	}
}

func TestStationOccupancy(t *testing.T) {
	st := &ChargingStation{ID: 0, Capacity: 2}
	if !st.Occupy(1) || !st.Occupy(2) {
		t.Fatalf("occupy failed with free slots")
	}
	if st.Occupy(3) {
		t.Fatalf("occupy succeeded beyond capacity")
	}
	if !st.Occupy(1) {
		t.Fatalf("re-occupy by existing occupant should be a no-op success")
	}
	st.Enqueue(3)
	st.Enqueue(4)
	st.Enqueue(3) // duplicate ignored
	if st.Load() != 4 {
		t.Fatalf("load = %d, want 4", st.Load())
	}
	if pos := st.QueuePos(1); pos != 0 {
		t.Fatalf("occupant queue pos = %d, want 0", pos)
	}
	if pos := st.QueuePos(4); pos != 2 {
		t.Fatalf("queued pos = %d, want 2", pos)
	}
	if pos := st.QueuePos(9); pos != -1 {
		t.Fatalf("unknown vehicle pos = %d, want -1", pos)
	}
	st.Release(1)
	st.Dequeue(3)
	if st.Load() != 2 {
		t.Fatalf("load after release = %d, want 2", st.Load())
	}
	if !st.HasSlot() {
		t.Fatalf("expected a free slot after release")
	}
}

func TestGridString(t *testing.T) {
	g, err := Parse(testMap, []int{1})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	out := g.String(map[Coord]int{{0, 0}: 7})
	if out[0] != 'V' {
		t.Fatalf("vehicle overlay missing: %q", out)
	}
}
