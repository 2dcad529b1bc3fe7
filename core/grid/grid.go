package grid

import (
	"fmt"
	"strings"
)

// Coord identifies a cell on the grid.
type Coord struct {
	X int `json:"x"`
	Y int `json:"y"`
}

func (c Coord) String() string { return fmt.Sprintf("(%d,%d)", c.X, c.Y) }

// Manhattan returns the L1 distance between two coordinates.
func Manhattan(a, b Coord) int {
	return abs(a.X-b.X) + abs(a.Y-b.Y)
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// CellKind enumerates the static cell types.
type CellKind int

const (
	Empty CellKind = iota
	Obstacle
	Station
	Exit
)

// Cell is a single immutable grid cell. StationID is -1 unless Kind is Station.
type Cell struct {
	Kind      CellKind
	Coord     Coord
	StationID int
}

// Walkable reports whether the cell can be traversed.
func (c Cell) Walkable() bool {
	return c.Kind == Empty || c.Kind == Station || c.Kind == Exit
}

// Grid is the static 2D environment. Cells never change after construction;
// only the stations' occupant and queue lists are mutable, and those are
// owned by the orchestrator's step slot.
type Grid struct {
	Width    int
	Height   int
	cells    [][]Cell
	Stations []*ChargingStation
	Exit     Coord
}

// neighborOffsets is the fixed expansion order used by Neighbors4 and,
// through it, the planner's tie-breaking.
var neighborOffsets = [4]Coord{{0, 1}, {1, 0}, {0, -1}, {-1, 0}}

// New creates an empty grid of the given dimensions.
func New(width, height int) *Grid {
	cells := make([][]Cell, width)
	for x := range cells {
		cells[x] = make([]Cell, height)
		for y := range cells[x] {
			cells[x][y] = Cell{Kind: Empty, Coord: Coord{x, y}, StationID: -1}
		}
	}
	return &Grid{Width: width, Height: height, cells: cells, Exit: Coord{-1, -1}}
}

// InBounds reports whether c lies inside the grid.
func (g *Grid) InBounds(c Coord) bool {
	return c.X >= 0 && c.X < g.Width && c.Y >= 0 && c.Y < g.Height
}

// Cell returns the cell at c. Callers must check InBounds first.
func (g *Grid) Cell(c Coord) Cell { return g.cells[c.X][c.Y] }

// IsWalkable reports whether c is inside the grid and traversable.
func (g *Grid) IsWalkable(c Coord) bool {
	return g.InBounds(c) && g.cells[c.X][c.Y].Walkable()
}

// Neighbors4 returns the walkable 4-connected neighbors of c in the fixed
// order defined by neighborOffsets.
func (g *Grid) Neighbors4(c Coord) []Coord {
	out := make([]Coord, 0, 4)
	for _, d := range neighborOffsets {
		n := Coord{c.X + d.X, c.Y + d.Y}
		if g.IsWalkable(n) {
			out = append(out, n)
		}
	}
	return out
}

// SetObstacle marks c as an obstacle.
func (g *Grid) SetObstacle(c Coord) error {
	if !g.InBounds(c) {
		return fmt.Errorf("obstacle out of bounds: %s", c)
	}
	g.cells[c.X][c.Y].Kind = Obstacle
	return nil
}

// AddStation places a charging station at c with the given capacity and
// returns it. Station ids are assigned in insertion order.
func (g *Grid) AddStation(c Coord, capacity int) (*ChargingStation, error) {
	if !g.InBounds(c) {
		return nil, fmt.Errorf("station out of bounds: %s", c)
	}
	if capacity < 1 {
		return nil, fmt.Errorf("station at %s: capacity must be >= 1, got %d", c, capacity)
	}
	id := len(g.Stations)
	g.cells[c.X][c.Y].Kind = Station
	g.cells[c.X][c.Y].StationID = id
	st := &ChargingStation{ID: id, Coord: c, Capacity: capacity}
	g.Stations = append(g.Stations, st)
	return st, nil
}

// SetExit marks c as the exit cell.
func (g *Grid) SetExit(c Coord) error {
	if !g.InBounds(c) {
		return fmt.Errorf("exit out of bounds: %s", c)
	}
	if g.cells[c.X][c.Y].Kind == Obstacle {
		return fmt.Errorf("exit cell %s is an obstacle", c)
	}
	if g.cells[c.X][c.Y].Kind == Empty {
		g.cells[c.X][c.Y].Kind = Exit
	}
	g.Exit = c
	return nil
}

// HasExit reports whether an exit has been configured.
func (g *Grid) HasExit() bool { return g.Exit.X >= 0 }

// StationAt returns the station whose cell is c, or nil.
func (g *Grid) StationAt(c Coord) *ChargingStation {
	if !g.InBounds(c) {
		return nil
	}
	if id := g.cells[c.X][c.Y].StationID; id >= 0 {
		return g.Stations[id]
	}
	return nil
}

// String renders the grid as ASCII, overlaying vehicle positions when given.
func (g *Grid) String(vehicles map[Coord]int) string {
	var b strings.Builder
	for y := 0; y < g.Height; y++ {
		for x := 0; x < g.Width; x++ {
			c := Coord{x, y}
			if _, ok := vehicles[c]; ok {
				b.WriteByte('V')
				continue
			}
			switch g.cells[x][y].Kind {
			case Obstacle:
				b.WriteByte('#')
			case Station:
				b.WriteByte('C')
			case Exit:
				b.WriteByte('E')
			default:
				b.WriteByte('.')
			}
		}
		if y < g.Height-1 {
			b.WriteByte('\n')
		}
	}
	return b.String()
}
