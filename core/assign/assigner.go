package assign

import (
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/kilianp07/robocharge/core/grid"
)

// PadCost is the virtual-slot cost. Vehicles matched at this cost keep
// their prior assignment instead of being forced onto a bad one.
const PadCost = 1e9

// Weights tune the assignment cost function.
type Weights struct {
	Distance float64 `json:"w_d"`
	Battery  float64 `json:"w_b"`
	Load     float64 `json:"w_l"`
}

// DefaultWeights mirror the reference tuning.
func DefaultWeights() Weights { return Weights{Distance: 1.0, Battery: 2.0, Load: 0.5} }

// VehicleInfo is the assignment view of a vehicle.
type VehicleInfo struct {
	ID      int
	Coord   grid.Coord
	Battery float64
}

// StationInfo is the assignment view of a station. Load counts occupants,
// queued vehicles and promotions still traveling.
type StationInfo struct {
	ID       int
	Coord    grid.Coord
	Capacity int
	Load     int
}

// Assigner builds cost matrices and solves the vehicle-station matching.
type Assigner struct {
	Weights  Weights
	QueueCap int // queue slots beyond capacity; <0 means unbounded
}

// NewAssigner returns an assigner with the default weights and an unbounded
// queue.
func NewAssigner() *Assigner {
	return &Assigner{Weights: DefaultWeights(), QueueCap: -1}
}

// Cost evaluates one vehicle-station pair:
//
//	w_d * manhattan(v, s) + w_b * (100 - battery) + w_l * load
func (a *Assigner) Cost(v VehicleInfo, s StationInfo) float64 {
	return a.Weights.Distance*float64(grid.Manhattan(v.Coord, s.Coord)) +
		a.Weights.Battery*(100-v.Battery) +
		a.Weights.Load*float64(s.Load)
}

// Assign solves the matching and returns vehicle id -> station id. Each
// station contributes one column per free occupant or queue slot, with the
// marginal load penalty on deeper slots, so several vehicles can be routed
// to one station in a single round. Stations whose load already reaches
// capacity plus the queue cap contribute no columns. Vehicles matched only to
// virtual padding are absent from the result. Inputs are sorted by id
// before the matrix is built, so ties break by ascending (vehicle id,
// station id).
func (a *Assigner) Assign(vehicles []VehicleInfo, stations []StationInfo) map[int]int {
	out := make(map[int]int)
	if len(vehicles) == 0 || len(stations) == 0 {
		return out
	}

	vs := append([]VehicleInfo(nil), vehicles...)
	ss := append([]StationInfo(nil), stations...)
	sort.Slice(vs, func(i, j int) bool { return vs[i].ID < vs[j].ID })
	sort.Slice(ss, func(i, j int) bool { return ss[i].ID < ss[j].ID })

	type slot struct {
		station int // index into ss
		depth   int
	}
	var slots []slot
	for si, s := range ss {
		extra := a.QueueCap
		if extra < 0 {
			extra = len(vs)
		}
		free := s.Capacity + extra - s.Load
		if free <= 0 {
			continue
		}
		if free > len(vs) {
			free = len(vs)
		}
		for k := 0; k < free; k++ {
			slots = append(slots, slot{station: si, depth: k})
		}
	}
	if len(slots) == 0 {
		return out
	}

	// Pad with virtual slots so unmatched vehicles retain their prior
	// assignment.
	nCols := len(slots)
	if len(vs) > nCols {
		nCols = len(vs)
	}
	cost := mat.NewDense(len(vs), nCols, nil)
	for i, v := range vs {
		for j := 0; j < nCols; j++ {
			if j < len(slots) {
				sl := slots[j]
				cost.Set(i, j, a.Cost(v, ss[sl.station])+a.Weights.Load*float64(sl.depth))
			} else {
				cost.Set(i, j, PadCost)
			}
		}
	}

	for i, j := range Solve(cost) {
		if j < 0 || j >= len(slots) {
			continue
		}
		if cost.At(i, j) >= PadCost {
			continue
		}
		out[vs[i].ID] = ss[slots[j].station].ID
	}
	return out
}
