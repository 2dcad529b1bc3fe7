package orchestrator

import (
	"sort"

	"github.com/kilianp07/robocharge/core/assign"
	"github.com/kilianp07/robocharge/core/grid"
	"github.com/kilianp07/robocharge/core/message"
	"github.com/kilianp07/robocharge/core/vehicle"
)

// urgency mirrors the vehicles' formula from the orchestrator's own view:
// normalized battery deficit plus 0.1 per tick already waited, capped at 1.
func (o *Orchestrator) urgency(v *view, p vehicle.Params) float64 {
	u := 0.0
	if v.battery < p.LowThreshold && p.LowThreshold > 0 {
		u = (p.LowThreshold - v.battery) / p.LowThreshold
	}
	u += 0.1 * float64(v.ticksWaited)
	if u > 1 {
		u = 1
	}
	return u
}

// negotiate settles counter-proposals in ascending (sender, target station)
// order. At most one proposal is accepted per vehicle and tick; the surplus
// is deferred to the next tick.
func (o *Orchestrator) negotiate(ctx *Context, incoming []message.CounterProposal) {
	proposals := append(o.pending, incoming...)
	o.pending = nil
	if len(proposals) == 0 {
		return
	}
	sort.SliceStable(proposals, func(i, j int) bool {
		if proposals[i].VehicleID != proposals[j].VehicleID {
			return proposals[i].VehicleID < proposals[j].VehicleID
		}
		return targetStation(proposals[i]) < targetStation(proposals[j])
	})

	accepted := make(map[int]bool)
	for _, p := range proposals {
		v := o.views[p.VehicleID]
		if v == nil || v.terminal {
			continue
		}
		if cur, ok := o.assignments[p.VehicleID]; !ok || cur != p.CurrentStation {
			continue // stale: assignment changed since the proposal was sent
		}
		if accepted[p.VehicleID] {
			o.pending = append(o.pending, p)
			continue
		}
		o.stats.CounterProposals++
		beh := ctx.BehaviorOf(p.VehicleID).String()

		var ok bool
		if p.ProposedStation < 0 {
			ok = o.negotiateQueuePos(ctx, p)
		} else {
			ok = o.negotiateStation(ctx, p)
		}
		if ok {
			accepted[p.VehicleID] = true
			o.stats.AcceptsByB[beh]++
			o.version++
		} else {
			o.stats.RejectsByB[beh]++
		}
	}
}

func targetStation(p message.CounterProposal) int {
	if p.ProposedStation >= 0 {
		return p.ProposedStation
	}
	return p.CurrentStation
}

// negotiateQueuePos handles a proposal for a better position on the same
// station. The holder of the coveted position is displaced only when the
// proposer's urgency exceeds the holder's by at least epsilon.
func (o *Orchestrator) negotiateQueuePos(ctx *Context, p message.CounterProposal) bool {
	st := ctx.Stations[p.CurrentStation]
	curPos := o.queuePosOf(st, p.VehicleID)
	if curPos <= 0 || p.ProposedPos >= curPos || p.ProposedPos < 0 {
		o.reject(ctx, p.VehicleID)
		return false
	}

	holder := o.holderAt(st, p.ProposedPos)
	if holder < 0 {
		// Nobody holds the coveted slot; treat as a straight promotion.
		st.Dequeue(p.VehicleID)
		if p.ProposedPos == 0 {
			o.enroute[st.ID] = append(o.enroute[st.ID], p.VehicleID)
		} else {
			st.Queue = insertAt(st.Queue, p.ProposedPos-1, p.VehicleID)
		}
		o.accept(ctx, p.VehicleID, st, p.ProposedPos, -1)
		o.renumber(ctx, st)
		return true
	}

	hv := o.views[holder]
	pv := o.views[p.VehicleID]
	if hv == nil || o.urgency(pv, ctx.Params)-o.urgency(hv, ctx.Params) < o.cfg.Epsilon {
		o.reject(ctx, p.VehicleID)
		return false
	}

	// Swap the two positions.
	if p.ProposedPos == 0 {
		o.dropEnroute(st.ID, holder)
		st.Dequeue(p.VehicleID)
		o.enroute[st.ID] = append(o.enroute[st.ID], p.VehicleID)
		st.Queue = insertAt(st.Queue, curPos-1, holder)
	} else {
		swapQueue(st, p.VehicleID, holder)
	}
	ctx.Logf("orchestrator", "info", "swapped vehicle %d and %d at station %d (urgency)",
		p.VehicleID, holder, st.ID)
	o.accept(ctx, p.VehicleID, st, p.ProposedPos, holder)
	o.demote(ctx, holder, st, curPos, p.VehicleID)
	o.renumber(ctx, st)
	return true
}

// negotiateStation handles a proposal for a different station: the matching
// restricted to the proposer and the last holder there is re-evaluated and
// applied only when total cost strictly decreases.
func (o *Orchestrator) negotiateStation(ctx *Context, p message.CounterProposal) bool {
	if p.ProposedStation >= len(ctx.Stations) {
		o.reject(ctx, p.VehicleID)
		return false
	}
	cur := ctx.Stations[p.CurrentStation]
	tgt := ctx.Stations[p.ProposedStation]
	pv := o.views[p.VehicleID]

	costOf := func(v *view, st *grid.ChargingStation) float64 {
		return o.assigner.Cost(
			assign.VehicleInfo{ID: v.id, Coord: v.coord, Battery: v.battery},
			assign.StationInfo{ID: st.ID, Coord: st.Coord, Capacity: st.Capacity, Load: st.Load() + len(o.enroute[st.ID])},
		)
	}

	other := o.lastHolder(tgt)
	if other < 0 {
		// Free capacity at the target: plain reassignment on cost.
		if costOf(pv, tgt) >= costOf(pv, cur) {
			o.reject(ctx, p.VehicleID)
			return false
		}
		o.removeFromStation(cur, p.VehicleID)
		o.placeAtStation(ctx, tgt, p.VehicleID)
		o.accept(ctx, p.VehicleID, tgt, o.queuePosOf(tgt, p.VehicleID), -1)
		o.renumber(ctx, cur)
		return true
	}

	ov := o.views[other]
	if ov == nil {
		o.reject(ctx, p.VehicleID)
		return false
	}
	current := costOf(pv, cur) + costOf(ov, tgt)
	swapped := costOf(pv, tgt) + costOf(ov, cur)
	if swapped >= current {
		o.reject(ctx, p.VehicleID)
		return false
	}

	o.removeFromStation(cur, p.VehicleID)
	o.removeFromStation(tgt, other)
	o.placeAtStation(ctx, tgt, p.VehicleID)
	o.placeAtStation(ctx, cur, other)
	ctx.Logf("orchestrator", "info", "station swap: vehicle %d -> %d, vehicle %d -> %d",
		p.VehicleID, tgt.ID, other, cur.ID)
	o.accept(ctx, p.VehicleID, tgt, o.queuePosOf(tgt, p.VehicleID), other)
	o.demote(ctx, other, cur, o.queuePosOf(cur, other), p.VehicleID)
	o.renumber(ctx, cur)
	o.renumber(ctx, tgt)
	return true
}

// holderAt returns the vehicle at a queue position: 0 resolves through the
// promoted-but-traveling list, positive positions through the queue.
func (o *Orchestrator) holderAt(st *grid.ChargingStation, pos int) int {
	if pos == 0 {
		if list := o.enroute[st.ID]; len(list) > 0 {
			return list[0]
		}
		return -1
	}
	if pos-1 < len(st.Queue) {
		return st.Queue[pos-1]
	}
	return -1
}

// lastHolder returns the least-served vehicle at the station: queue tail,
// else the most recent promotion.
func (o *Orchestrator) lastHolder(st *grid.ChargingStation) int {
	if len(st.Queue) > 0 {
		return st.Queue[len(st.Queue)-1]
	}
	if list := o.enroute[st.ID]; len(list) > 0 {
		return list[len(list)-1]
	}
	return -1
}

func (o *Orchestrator) removeFromStation(st *grid.ChargingStation, id int) {
	st.Dequeue(id)
	o.dropEnroute(st.ID, id)
	delete(o.assignments, id)
}

func (o *Orchestrator) placeAtStation(ctx *Context, st *grid.ChargingStation, id int) {
	if o.freeSlots(st) > 0 {
		o.enroute[st.ID] = append(o.enroute[st.ID], id)
	} else {
		st.Enqueue(id)
	}
	o.assignments[id] = st.ID
}

// accept notifies the proposer, carrying the displaced peer so tit-for-tat
// histories can record the interaction.
func (o *Orchestrator) accept(ctx *Context, id int, st *grid.ChargingStation, pos, peer int) {
	o.assignments[id] = st.ID
	asgn := message.Assignment{
		VehicleID:    id,
		StationID:    st.ID,
		StationCoord: st.Coord,
		QueuePos:     pos,
		Ahead:        o.ahead(st, pos),
	}
	ctx.Bus.Send(id, message.AssignmentDecision{
		VehicleID:     id,
		Accepted:      true,
		NewAssignment: &asgn,
		Peer:          peer,
		PeerAction:    message.Cooperate,
	})
}

// demote hands the displaced vehicle its new slot; the proposer's move is
// recorded as a defection in the victim's peer history.
func (o *Orchestrator) demote(ctx *Context, id int, st *grid.ChargingStation, pos, byWhom int) {
	o.assignments[id] = st.ID
	asgn := message.Assignment{
		VehicleID:    id,
		StationID:    st.ID,
		StationCoord: st.Coord,
		QueuePos:     pos,
		Ahead:        o.ahead(st, pos),
	}
	ctx.Bus.Send(id, message.AssignmentDecision{
		VehicleID:     id,
		Accepted:      true,
		NewAssignment: &asgn,
		Peer:          byWhom,
		PeerAction:    message.Defect,
	})
}

// reject answers a failed proposal. Nobody was displaced, so no peer
// interaction is attached: a rejection must not write a history entry that
// could mask a real prior defection.
func (o *Orchestrator) reject(ctx *Context, id int) {
	ctx.Bus.Send(id, message.AssignmentDecision{
		VehicleID: id,
		Accepted:  false,
		Peer:      -1,
	})
}

func swapQueue(st *grid.ChargingStation, a, b int) {
	ia, ib := -1, -1
	for i, id := range st.Queue {
		if id == a {
			ia = i
		}
		if id == b {
			ib = i
		}
	}
	if ia >= 0 && ib >= 0 {
		st.Queue[ia], st.Queue[ib] = st.Queue[ib], st.Queue[ia]
	}
}

func insertAt(q []int, i, id int) []int {
	if i < 0 {
		i = 0
	}
	if i >= len(q) {
		return append(q, id)
	}
	q = append(q, 0)
	copy(q[i+1:], q[i:])
	q[i] = id
	return q
}
