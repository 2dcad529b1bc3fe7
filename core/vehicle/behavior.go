package vehicle

import "github.com/kilianp07/robocharge/core/message"

// Behavior selects how a vehicle responds to assignments it considers
// suboptimal. Modeled as a tagged variant with a single decision function
// rather than subtyping; histories live on the vehicle record.
type Behavior int

const (
	BehaviorNone Behavior = iota
	Cooperative
	Competitive
	TitForTat
)

func (b Behavior) String() string {
	switch b {
	case Cooperative:
		return "cooperative"
	case Competitive:
		return "competitive"
	case TitForTat:
		return "tit_for_tat"
	default:
		return "none"
	}
}

// ParseBehavior maps a scenario string to a Behavior tag.
func ParseBehavior(s string) Behavior {
	switch s {
	case "cooperative":
		return Cooperative
	case "competitive":
		return Competitive
	case "tit_for_tat", "tft":
		return TitForTat
	default:
		return BehaviorNone
	}
}

// decide picks Cooperate (accept) or Defect (dispute) for an assignment.
// Occupant slots are never disputed. TitForTat is nice on first contact and
// mirrors the opponent's last recorded action afterwards; with no opponent
// it acts cooperatively for the round.
func (v *Vehicle) decide(asgn message.Assignment) message.Action {
	if asgn.QueuePos <= 0 {
		return message.Cooperate
	}
	switch v.Behavior {
	case Competitive:
		return message.Defect
	case TitForTat:
		opp := asgn.Ahead
		if opp < 0 {
			return message.Cooperate
		}
		hist := v.PeerHistory[opp]
		if len(hist) == 0 {
			return message.Cooperate
		}
		return hist[len(hist)-1]
	default:
		return message.Cooperate
	}
}

// recordSelf appends the vehicle's own action toward a peer.
func (v *Vehicle) recordSelf(peer int, a message.Action) {
	if peer < 0 {
		return
	}
	v.SelfHistory[peer] = append(v.SelfHistory[peer], a)
}

// recordPeer appends an observed peer action.
func (v *Vehicle) recordPeer(peer int, a message.Action) {
	if peer < 0 {
		return
	}
	v.PeerHistory[peer] = append(v.PeerHistory[peer], a)
}
