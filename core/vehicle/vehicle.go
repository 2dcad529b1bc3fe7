// Package vehicle implements the per-robot state machine: sense, plan, move,
// charge, and the behavioral layer that negotiates queue positions.
package vehicle

import (
	"github.com/kilianp07/robocharge/core/grid"
	"github.com/kilianp07/robocharge/core/message"
	"github.com/kilianp07/robocharge/core/reservation"
)

// Params are the battery and threshold settings shared by all vehicles.
type Params struct {
	DrainPerStep  float64 `json:"drain_per_step"`
	ChargePerStep float64 `json:"charge_per_step"`
	LowThreshold  float64 `json:"low_threshold"`
	ChargeTarget  float64 `json:"charge_target"`
}

// SetDefaults applies the reference tuning for unset fields.
func (p *Params) SetDefaults() {
	if p.DrainPerStep == 0 {
		p.DrainPerStep = 0.5
	}
	if p.ChargePerStep == 0 {
		p.ChargePerStep = 2.0
	}
	if p.LowThreshold == 0 {
		p.LowThreshold = 30.0
	}
	if p.ChargeTarget == 0 {
		p.ChargeTarget = 95.0
	}
}

const (
	maxConsecutiveYields = 3
	maxConsecutiveNoPath = 3
	maxTrailLength       = 10
)

// Stats accumulates per-vehicle run metrics.
type Stats struct {
	Distance      int `json:"distance"`
	ChargingTicks int `json:"charging_ticks"`
	WaitingTicks  int `json:"waiting_ticks"`
	Replans       int `json:"replans"`
	Yields        int `json:"yields"`
	CompletedTick int `json:"completed_tick"`
}

// Vehicle is one battery-powered robot. All fields are owned by the stepping
// model; vehicles are stepped strictly in ascending ID order.
type Vehicle struct {
	ID      int
	Coord   grid.Coord
	Battery float64
	State   message.VehicleStatus
	// Path is the remaining route, next cell first. Goal is the last entry.
	Path []grid.Coord

	AssignedStation int // -1 when unassigned
	StationCoord    grid.Coord
	QueuePos        int // -1 when unassigned, 0 occupant, >0 queued
	Behavior        Behavior

	PeerHistory map[int][]message.Action
	SelfHistory map[int][]message.Action

	Stranded bool
	Trail    []grid.Coord
	Stats    Stats

	goal         grid.Coord
	hasGoal      bool
	blockers     []grid.Coord
	yieldStreak  int
	noPathStreak int
	ticksWaited  int
	aheadPeer    int
	lastAction   message.Action
	// lifecycle hints carried on the next StatusUpdate
	arrivedStation  int
	releasedStation int
}

// New creates an Idle vehicle at the given position.
func New(id int, start grid.Coord, battery float64, behavior Behavior) *Vehicle {
	return &Vehicle{
		ID:              id,
		Coord:           start,
		Battery:         battery,
		State:           message.Idle,
		AssignedStation: -1,
		QueuePos:        -1,
		Behavior:        behavior,
		PeerHistory:     make(map[int][]message.Action),
		SelfHistory:     make(map[int][]message.Action),
		aheadPeer:       -1,
		arrivedStation:  -1,
		releasedStation: -1,
	}
}

// Terminal reports whether the vehicle has finished, either by completing
// its cycle or by stranding.
func (v *Vehicle) Terminal() bool { return v.State == message.Completed }

// RemainingPath returns a copy of the remaining route.
func (v *Vehicle) RemainingPath() []grid.Coord {
	return append([]grid.Coord(nil), v.Path...)
}

// IntendedNext returns the cell the vehicle wants to enter on its next move.
func (v *Vehicle) IntendedNext() (grid.Coord, bool) {
	if v.State != message.Moving && v.State != message.Exiting {
		return grid.Coord{}, false
	}
	if len(v.Path) == 0 {
		return grid.Coord{}, false
	}
	return v.Path[0], true
}

// clearAssignment drops station targeting state.
func (v *Vehicle) clearAssignment() {
	v.AssignedStation = -1
	v.QueuePos = -1
	v.aheadPeer = -1
}

// setGoal replaces the current goal and discards any stale path.
func (v *Vehicle) setGoal(goal grid.Coord) {
	if v.hasGoal && v.goal == goal {
		return
	}
	v.goal = goal
	v.hasGoal = true
	v.Path = nil
}

// pushTrail records the position for visualization snapshots.
func (v *Vehicle) pushTrail() {
	if n := len(v.Trail); n > 0 && v.Trail[n-1] == v.Coord {
		return
	}
	v.Trail = append(v.Trail, v.Coord)
	if len(v.Trail) > maxTrailLength {
		v.Trail = v.Trail[1:]
	}
}

// ForceReplan discards the current path so the next step recomputes it.
// Used by the deadlock escape hatch.
func (v *Vehicle) ForceReplan() {
	v.Path = nil
	v.yieldStreak = 0
	v.blockersReset()
}

// LastDecision returns the most recent behavioral action taken.
func (v *Vehicle) LastDecision() message.Action { return v.lastAction }

// complete marks the vehicle terminal and releases its reservations.
func (v *Vehicle) complete(tick int, res *reservation.Table, stranded bool) {
	v.State = message.Completed
	v.Stranded = stranded
	v.Stats.CompletedTick = tick
	v.Path = nil
	v.hasGoal = false
	res.ClearVehicle(v.ID)
}
