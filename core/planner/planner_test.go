package planner

import (
	"errors"
	"testing"

	"github.com/kilianp07/robocharge/core/grid"
)

func mustGrid(t *testing.T, m string, caps []int) *grid.Grid {
	t.Helper()
	g, err := grid.Parse(m, caps)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	return g
}

func TestPlanStraightLine(t *testing.T) {
	g := mustGrid(t, `.....
.....
.....`, nil)
	path, err := Plan(g, grid.Coord{0, 0}, grid.Coord{4, 0}, nil)
	if err != nil {
		t.Fatalf("plan: %v", err)
	}
	if len(path) != 5 {
		t.Fatalf("path length %d, want 5", len(path))
	}
	if path[0] != (grid.Coord{0, 0}) || path[4] != (grid.Coord{4, 0}) {
		t.Fatalf("endpoints wrong: %v", path)
	}
	for i := 1; i < len(path); i++ {
		if grid.Manhattan(path[i-1], path[i]) != 1 {
			t.Fatalf("non-unit step %v -> %v", path[i-1], path[i])
		}
	}
}

func TestPlanOptimalAroundWall(t *testing.T) {
	g := mustGrid(t, `.....
.###.
.....`, nil)
	path, err := Plan(g, grid.Coord{0, 1}, grid.Coord{4, 1}, nil)
	if err != nil {
		t.Fatalf("plan: %v", err)
	}
	// Shortest detour over or under the wall: 6 moves, 7 cells.
	if len(path) != 7 {
		t.Fatalf("path length %d, want 7", len(path))
	}
}

func TestPlanStartEqualsGoal(t *testing.T) {
	g := mustGrid(t, `...`, nil)
	path, err := Plan(g, grid.Coord{1, 0}, grid.Coord{1, 0}, nil)
	if err != nil {
		t.Fatalf("plan: %v", err)
	}
	if len(path) != 1 {
		t.Fatalf("path = %v, want single cell", path)
	}
}

func TestPlanNoPath(t *testing.T) {
	g := mustGrid(t, `..#..
..#..
..#..`, nil)
	if _, err := Plan(g, grid.Coord{0, 0}, grid.Coord{4, 0}, nil); !errors.Is(err, ErrNoPath) {
		t.Fatalf("err = %v, want ErrNoPath", err)
	}
}

func TestPlanBlockedCells(t *testing.T) {
	g := mustGrid(t, `.....
.....
.....`, nil)
	blocked := map[grid.Coord]struct{}{
		{1, 0}: {}, {1, 1}: {},
	}
	path, err := Plan(g, grid.Coord{0, 0}, grid.Coord{4, 0}, blocked)
	if err != nil {
		t.Fatalf("plan: %v", err)
	}
	for _, c := range path {
		if _, hit := blocked[c]; hit {
			t.Fatalf("path enters blocked cell %v", c)
		}
	}
	// Blocked goal stays reachable: the block set never excludes the goal.
	path, err = Plan(g, grid.Coord{0, 0}, grid.Coord{4, 0}, map[grid.Coord]struct{}{{4, 0}: {}})
	if err != nil {
		t.Fatalf("plan to blocked goal: %v", err)
	}
	if path[len(path)-1] != (grid.Coord{4, 0}) {
		t.Fatalf("goal missing from path")
	}
}

func TestPlanDeterministic(t *testing.T) {
	g := mustGrid(t, `.....
.....
.....
.....`, nil)
	first, err := Plan(g, grid.Coord{0, 0}, grid.Coord{3, 3}, nil)
	if err != nil {
		t.Fatalf("plan: %v", err)
	}
	for i := 0; i < 5; i++ {
		again, err := Plan(g, grid.Coord{0, 0}, grid.Coord{3, 3}, nil)
		if err != nil {
			t.Fatalf("plan: %v", err)
		}
		if len(again) != len(first) {
			t.Fatalf("length changed between runs")
		}
		for j := range first {
			if first[j] != again[j] {
				t.Fatalf("path differs at %d: %v vs %v", j, first[j], again[j])
			}
		}
	}
}
