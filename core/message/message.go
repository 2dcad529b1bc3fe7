// Package message defines the typed messages exchanged between vehicles and
// the orchestrator, and the deterministic per-tick bus that carries them.
package message

import "github.com/kilianp07/robocharge/core/grid"

// OrchestratorID is the sender/recipient id used by the orchestrator.
const OrchestratorID = -1

// VehicleStatus enumerates the vehicle state machine states.
type VehicleStatus int

const (
	Idle VehicleStatus = iota
	Waiting
	Moving
	Charging
	Exiting
	Completed
)

func (s VehicleStatus) String() string {
	switch s {
	case Idle:
		return "idle"
	case Waiting:
		return "waiting"
	case Moving:
		return "moving"
	case Charging:
		return "charging"
	case Exiting:
		return "exiting"
	case Completed:
		return "completed"
	default:
		return "unknown"
	}
}

// Terminal reports whether the state ends a vehicle's run.
func (s VehicleStatus) Terminal() bool { return s == Completed }

// Message is implemented by every bus payload.
type Message interface {
	Sender() int
}

// StatusUpdate is sent by each vehicle at the end of its step, after its
// action for the tick.
type StatusUpdate struct {
	VehicleID int
	Coord     grid.Coord
	Battery   float64
	State     VehicleStatus
	Stranded  bool
	Tick      int
	// Station lifecycle hints the orchestrator applies in its step slot.
	ArrivedAtStation  int // station id the vehicle entered this tick, else -1
	ReleasedStation   int // station id the vehicle vacated this tick, else -1
	RequestAssignment bool
}

func (m StatusUpdate) Sender() int { return m.VehicleID }

// Assignment directs a vehicle to a station and queue position.
type Assignment struct {
	VehicleID    int
	StationID    int
	StationCoord grid.Coord
	QueuePos     int
	Priority     int
	// Ahead is the vehicle holding the slot immediately above, or -1. The
	// behavioral layer treats it as the negotiation opponent.
	Ahead int
}

func (m Assignment) Sender() int { return OrchestratorID }

// CounterProposal asks the orchestrator for a better queue position or a
// different station.
type CounterProposal struct {
	VehicleID       int
	CurrentStation  int
	ProposedStation int // -1 when the proposal targets a queue position
	ProposedPos     int // -1 when the proposal targets another station
	Reason          string
	Urgency         float64 // normalized to [0,1]
}

func (m CounterProposal) Sender() int { return m.VehicleID }

// Action is a game-theoretic move observed by peers.
type Action int

const (
	Cooperate Action = iota
	Defect
)

func (a Action) String() string {
	if a == Defect {
		return "defect"
	}
	return "cooperate"
}

// AssignmentDecision answers a CounterProposal. Peer identifies the vehicle
// whose position was affected and PeerAction what that peer effectively did,
// so tit-for-tat histories can be updated.
type AssignmentDecision struct {
	VehicleID     int
	Accepted      bool
	NewAssignment *Assignment
	Peer          int
	PeerAction    Action
}

func (m AssignmentDecision) Sender() int { return OrchestratorID }
