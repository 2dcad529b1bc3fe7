package vehicle

import (
	"errors"
	"strconv"

	"github.com/kilianp07/robocharge/core/grid"
	"github.com/kilianp07/robocharge/core/message"
	"github.com/kilianp07/robocharge/core/planner"
	"github.com/kilianp07/robocharge/core/reservation"
)

// StepContext carries the per-tick view a vehicle needs. The stepping model
// builds one per tick and owns every referenced structure; vehicles never
// hold stations or other vehicles directly.
type StepContext struct {
	Tick   int
	Grid   *grid.Grid
	Res    *reservation.Table
	Bus    *message.Bus
	Params Params

	// Claim records this vehicle's intended next cell; ClaimedBy answers
	// which already-stepped (lower id) vehicle claimed a cell this tick.
	Claim     func(id int, c grid.Coord)
	ClaimedBy func(c grid.Coord) (int, bool)
	// OccupantAt reports the non-terminal vehicle currently on a cell.
	OccupantAt func(c grid.Coord) (int, bool)
	// IntendedNextOf reports another vehicle's next path cell.
	IntendedNextOf func(id int) (grid.Coord, bool)
	// PositionOf reports another vehicle's current cell.
	PositionOf func(id int) (grid.Coord, bool)
	// StationHasSlot reports whether an occupant slot is free right now.
	StationHasSlot func(stationID int) bool
	Logf           func(agent, level, format string, args ...any)
}

// Step advances the vehicle by one tick. Invoked in ascending vehicle id
// order by the stepping model.
func (v *Vehicle) Step(ctx *StepContext) {
	if v.State == message.Completed {
		// Discard anything still addressed to a finished vehicle.
		ctx.Bus.Drain(v.ID)
		return
	}
	v.arrivedStation, v.releasedStation = -1, -1
	requestAssignment := false

	if v.State != message.Charging {
		v.Battery -= ctx.Params.DrainPerStep
		if v.Battery <= 0 {
			v.Battery = 0
			ctx.Logf(v.agent(), "warning", "battery depleted at %s, stranded", v.Coord)
			v.complete(ctx.Tick, ctx.Res, true)
			v.emitStatus(ctx, false)
			return
		}
	}

	v.ingest(ctx)

	switch v.State {
	case message.Idle:
		if v.Battery <= ctx.Params.LowThreshold {
			v.State = message.Waiting
			requestAssignment = true
			ctx.Logf(v.agent(), "info", "battery low (%.1f%%), requesting charging assignment", v.Battery)
		}
	case message.Waiting:
		v.ticksWaited++
		v.Stats.WaitingTicks++
		if v.AssignedStation < 0 {
			requestAssignment = true
		} else if v.QueuePos == 0 && v.Coord == v.StationCoord && ctx.StationHasSlot(v.AssignedStation) {
			// Slot freed while holding on the station cell.
			v.State = message.Charging
			v.arrivedStation = v.AssignedStation
			v.ticksWaited = 0
			ctx.Logf(v.agent(), "action", "entered station %d, charging (%.1f%%)", v.AssignedStation, v.Battery)
		}
	case message.Moving, message.Exiting:
		v.stepMove(ctx)
	case message.Charging:
		v.Battery += ctx.Params.ChargePerStep
		if v.Battery > 100 {
			v.Battery = 100
		}
		v.Stats.ChargingTicks++
		if v.Battery >= ctx.Params.ChargeTarget {
			v.releasedStation = v.AssignedStation
			v.clearAssignment()
			if ctx.Grid.HasExit() {
				v.State = message.Exiting
				v.setGoal(ctx.Grid.Exit)
				v.planPath(ctx, nil)
				ctx.Logf(v.agent(), "action", "charging complete (%.1f%%), heading to exit %s", v.Battery, ctx.Grid.Exit)
			} else {
				v.State = message.Idle
				ctx.Logf(v.agent(), "action", "charging complete (%.1f%%), idle", v.Battery)
			}
		}
	}

	if v.State != message.Completed {
		v.refreshReservations(ctx)
	}
	v.pushTrail()
	v.emitStatus(ctx, requestAssignment)
}

func (v *Vehicle) agent() string { return "vehicle_" + strconv.Itoa(v.ID) }

// ingest drains the inbox and applies assignments per the behavioral layer.
func (v *Vehicle) ingest(ctx *StepContext) {
	for _, m := range ctx.Bus.Drain(v.ID) {
		switch msg := m.(type) {
		case message.Assignment:
			v.applyAssignment(ctx, msg, true)
		case message.AssignmentDecision:
			v.recordPeer(msg.Peer, msg.PeerAction)
			if msg.Accepted && msg.NewAssignment != nil {
				// An accepted counter-proposal is applied as-is; it is
				// not disputed again this tick.
				v.applyAssignment(ctx, *msg.NewAssignment, false)
			}
		}
	}
}

func (v *Vehicle) applyAssignment(ctx *StepContext, msg message.Assignment, negotiable bool) {
	if v.State == message.Charging || v.State == message.Completed || v.State == message.Exiting {
		return
	}
	v.AssignedStation = msg.StationID
	v.StationCoord = msg.StationCoord
	v.QueuePos = msg.QueuePos
	v.aheadPeer = msg.Ahead

	if negotiable && msg.QueuePos == 0 {
		// Uncontested slot: tit-for-tat acts cooperatively for the round.
		v.lastAction = message.Cooperate
	}
	if negotiable && msg.QueuePos > 0 {
		act := v.decide(msg)
		v.lastAction = act
		v.recordSelf(msg.Ahead, act)
		if act == message.Defect {
			ctx.Bus.Send(message.OrchestratorID, message.CounterProposal{
				VehicleID:       v.ID,
				CurrentStation:  msg.StationID,
				ProposedStation: -1,
				ProposedPos:     msg.QueuePos - 1,
				Reason:          v.Behavior.String(),
				Urgency:         v.urgency(ctx.Params),
			})
			ctx.Logf(v.agent(), "warning", "disputing queue position %d at station %d", msg.QueuePos, msg.StationID)
		}
	}

	var goal grid.Coord
	if msg.QueuePos == 0 {
		goal = msg.StationCoord
	} else {
		goal = v.waitingCell(ctx, msg)
	}
	v.setGoal(goal)
	if v.State == message.Idle || v.State == message.Waiting || v.State == message.Moving {
		if v.Coord == goal {
			if v.State == message.Moving {
				v.State = message.Waiting
			}
		} else {
			v.State = message.Moving
		}
	}
}

// waitingCell picks a deterministic hold position for a queued vehicle: the
// (queue_pos-1)-th walkable non-station cell in breadth-first order from the
// station, so distinct queue positions resolve to distinct cells.
func (v *Vehicle) waitingCell(ctx *StepContext, msg message.Assignment) grid.Coord {
	want := msg.QueuePos - 1
	visited := map[grid.Coord]struct{}{msg.StationCoord: {}}
	frontier := []grid.Coord{msg.StationCoord}
	idx := 0
	for len(frontier) > 0 {
		next := frontier[:0:0]
		for _, c := range frontier {
			for _, nb := range ctx.Grid.Neighbors4(c) {
				if _, seen := visited[nb]; seen {
					continue
				}
				visited[nb] = struct{}{}
				next = append(next, nb)
				if ctx.Grid.Cell(nb).Kind == grid.Station {
					continue
				}
				if idx == want {
					return nb
				}
				idx++
			}
		}
		frontier = next
	}
	return msg.StationCoord
}

// stepMove advances one cell along the path, applying the collision rules.
func (v *Vehicle) stepMove(ctx *StepContext) {
	if len(v.Path) == 0 {
		if !v.hasGoal {
			v.State = message.Idle
			return
		}
		if v.Coord == v.goal {
			v.arrive(ctx)
			return
		}
		if !v.planPath(ctx, nil) {
			return
		}
		if len(v.Path) == 0 {
			v.arrive(ctx)
			return
		}
	}

	intended := v.Path[0]
	ctx.Claim(v.ID, intended)

	// Rule 1: the cell is reserved for next tick by someone else.
	if holder, ok := ctx.Res.ReservedBy(ctx.Tick+1, intended); ok && holder != v.ID {
		v.yield(ctx, holder, true)
		return
	}
	// Rule 2: a lower-id vehicle declared the same intent this tick.
	if claimer, ok := ctx.ClaimedBy(intended); ok && claimer < v.ID {
		v.yield(ctx, claimer, true)
		return
	}
	// Rule 3: head-on swap. The lower id keeps its plan; the higher id
	// yields and routes around once the yield streak forces a replan.
	if occ, ok := ctx.OccupantAt(intended); ok && occ != v.ID {
		if next, has := ctx.IntendedNextOf(occ); has && next == v.Coord && occ > v.ID {
			v.yield(ctx, occ, false)
			return
		}
		v.yield(ctx, occ, true)
		return
	}
	v.moveTo(ctx, intended)
}

func (v *Vehicle) moveTo(ctx *StepContext, next grid.Coord) {
	v.Coord = next
	v.Path = v.Path[1:]
	v.Stats.Distance++
	v.yieldStreak = 0
	v.blockersReset()
	if len(v.Path) == 0 && v.hasGoal && v.Coord == v.goal {
		v.arrive(ctx)
	}
}

func (v *Vehicle) arrive(ctx *StepContext) {
	v.hasGoal = false
	v.Path = nil
	switch {
	case v.State == message.Exiting:
		if v.Coord == ctx.Grid.Exit {
			ctx.Logf(v.agent(), "action", "reached exit %s, cycle complete", v.Coord)
			v.complete(ctx.Tick, ctx.Res, false)
		}
	case v.QueuePos == 0 && v.Coord == v.StationCoord:
		if ctx.StationHasSlot(v.AssignedStation) {
			v.State = message.Charging
			v.arrivedStation = v.AssignedStation
			v.ticksWaited = 0
			ctx.Logf(v.agent(), "action", "entered station %d, charging (%.1f%%)", v.AssignedStation, v.Battery)
		} else {
			v.State = message.Waiting
		}
	default:
		v.State = message.Waiting
	}
}

// yield stays put for one tick. After three consecutive counted yields the
// vehicle replans with the blockers' current cells marked unwalkable.
func (v *Vehicle) yield(ctx *StepContext, blocker int, count bool) {
	v.Stats.Yields++
	if c, ok := ctx.PositionOf(blocker); ok {
		v.blockers = append(v.blockers, c)
	}
	if !count {
		return
	}
	v.yieldStreak++
	if v.yieldStreak >= maxConsecutiveYields {
		blocked := append([]grid.Coord(nil), v.blockers...)
		v.yieldStreak = 0
		v.blockersReset()
		v.Stats.Replans++
		ctx.Res.ClearVehicle(v.ID)
		v.Path = nil
		v.planPath(ctx, blocked)
		ctx.Logf(v.agent(), "info", "replanning around %d blocked cell(s)", len(blocked))
	}
}

func (v *Vehicle) blockersReset() { v.blockers = v.blockers[:0] }

// planPath runs A* toward the current goal. Three consecutive failures
// strand the vehicle.
func (v *Vehicle) planPath(ctx *StepContext, extraBlocked []grid.Coord) bool {
	if !v.hasGoal {
		return false
	}
	var blocked map[grid.Coord]struct{}
	if len(extraBlocked) > 0 {
		blocked = make(map[grid.Coord]struct{}, len(extraBlocked))
		for _, c := range extraBlocked {
			blocked[c] = struct{}{}
		}
	}
	path, err := planner.Plan(ctx.Grid, v.Coord, v.goal, blocked)
	if err != nil {
		if errors.Is(err, planner.ErrNoPath) {
			v.noPathStreak++
			ctx.Logf(v.agent(), "warning", "no path from %s to %s (attempt %d)", v.Coord, v.goal, v.noPathStreak)
			if v.noPathStreak >= maxConsecutiveNoPath {
				ctx.Logf(v.agent(), "warning", "no route after %d attempts, stranded", v.noPathStreak)
				v.complete(ctx.Tick, ctx.Res, true)
			}
		}
		return false
	}
	v.noPathStreak = 0
	v.Path = path[1:]
	return true
}

// refreshReservations rebuilds the vehicle's claims: its own cell at the
// next tick, then the remaining path. Reservation stops at the first
// conflict so the claims always form a prefix of the plan.
func (v *Vehicle) refreshReservations(ctx *StepContext) {
	ctx.Res.ClearVehicle(v.ID)
	if err := ctx.Res.Reserve(v.ID, ctx.Tick+1, v.Coord); err != nil {
		return
	}
	for i, c := range v.Path {
		if err := ctx.Res.Reserve(v.ID, ctx.Tick+2+i, c); err != nil {
			break
		}
	}
}

func (v *Vehicle) urgency(p Params) float64 {
	u := 0.0
	if v.Battery < p.LowThreshold && p.LowThreshold > 0 {
		u = (p.LowThreshold - v.Battery) / p.LowThreshold
	}
	u += 0.1 * float64(v.ticksWaited)
	if u > 1 {
		u = 1
	}
	return u
}

func (v *Vehicle) emitStatus(ctx *StepContext, requestAssignment bool) {
	ctx.Bus.Send(message.OrchestratorID, message.StatusUpdate{
		VehicleID:         v.ID,
		Coord:             v.Coord,
		Battery:           v.Battery,
		State:             v.State,
		Stranded:          v.Stranded,
		Tick:              ctx.Tick,
		ArrivedAtStation:  v.arrivedStation,
		ReleasedStation:   v.releasedStation,
		RequestAssignment: requestAssignment,
	})
}
