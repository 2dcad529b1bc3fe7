// Package orchestrator implements the central coordinator: Hungarian
// vehicle-to-station assignment, FIFO station queues, promotions, and the
// counter-proposal negotiation protocol.
package orchestrator

import (
	"sort"

	"github.com/kilianp07/robocharge/core/assign"
	"github.com/kilianp07/robocharge/core/grid"
	"github.com/kilianp07/robocharge/core/message"
	"github.com/kilianp07/robocharge/core/vehicle"
)

// Config tunes assignment and negotiation.
type Config struct {
	Weights  assign.Weights `json:"weights"`
	QueueCap int            `json:"queue_cap"` // extra queue slots beyond capacity; <0 unbounded
	Epsilon  float64        `json:"epsilon"`   // urgency margin for queue swaps
}

// SetDefaults applies the reference tuning for unset fields.
func (c *Config) SetDefaults() {
	if c.Weights == (assign.Weights{}) {
		c.Weights = assign.DefaultWeights()
	}
	if c.QueueCap == 0 {
		c.QueueCap = -1
	}
	if c.Epsilon == 0 {
		c.Epsilon = 0.05
	}
}

// Stats counts orchestrator decisions for the metrics collector.
type Stats struct {
	Assignments      int            `json:"assignments"`
	Promotions       int            `json:"promotions"`
	CounterProposals int            `json:"counter_proposals"`
	AcceptsByB       map[string]int `json:"accepts_by_behavior"`
	RejectsByB       map[string]int `json:"rejects_by_behavior"`
}

// view is the orchestrator's last known picture of one vehicle. The
// orchestrator holds ids and views, never the vehicles themselves.
type view struct {
	id          int
	coord       grid.Coord
	battery     float64
	state       message.VehicleStatus
	ticksWaited int
	requested   bool
	terminal    bool
}

// Context is the per-tick environment handed over by the stepping model.
type Context struct {
	Tick       int
	Bus        *message.Bus
	Stations   []*grid.ChargingStation
	Params     vehicle.Params
	BehaviorOf func(id int) vehicle.Behavior
	Logf       func(agent, level, format string, args ...any)
}

// Orchestrator owns assignment and queue state across ticks.
type Orchestrator struct {
	cfg      Config
	assigner *assign.Assigner

	views       map[int]*view
	assignments map[int]int   // vehicle id -> station id
	enroute     map[int][]int // station id -> vehicles assigned queue_pos 0, not yet occupant
	pending     []message.CounterProposal

	stats Stats
	// version changes whenever assignment or queue state changes; the
	// stepping model uses it for deadlock detection.
	version uint64
}

// New creates an orchestrator with the given configuration.
func New(cfg Config) *Orchestrator {
	cfg.SetDefaults()
	a := assign.NewAssigner()
	a.Weights = cfg.Weights
	a.QueueCap = cfg.QueueCap
	return &Orchestrator{
		cfg:         cfg,
		assigner:    a,
		views:       make(map[int]*view),
		assignments: make(map[int]int),
		enroute:     make(map[int][]int),
		stats:       Stats{AcceptsByB: make(map[string]int), RejectsByB: make(map[string]int)},
	}
}

// Version returns the mutation counter used for deadlock detection.
func (o *Orchestrator) Version() uint64 { return o.version }

// Stats returns a copy of the decision counters.
func (o *Orchestrator) Stats() Stats {
	s := Stats{
		Assignments:      o.stats.Assignments,
		Promotions:       o.stats.Promotions,
		CounterProposals: o.stats.CounterProposals,
		AcceptsByB:       make(map[string]int, len(o.stats.AcceptsByB)),
		RejectsByB:       make(map[string]int, len(o.stats.RejectsByB)),
	}
	for k, v := range o.stats.AcceptsByB {
		s.AcceptsByB[k] = v
	}
	for k, v := range o.stats.RejectsByB {
		s.RejectsByB[k] = v
	}
	return s
}

// Step runs the orchestrator's slot for one tick: drain statuses, apply
// station lifecycle changes, promote queues, assign waiting vehicles, then
// settle counter-proposals.
func (o *Orchestrator) Step(ctx *Context) {
	var proposals []message.CounterProposal
	for _, m := range ctx.Bus.Drain(message.OrchestratorID) {
		switch msg := m.(type) {
		case message.StatusUpdate:
			o.applyStatus(ctx, msg)
		case message.CounterProposal:
			proposals = append(proposals, msg)
		}
	}

	o.accrueWaits(ctx)
	o.promote(ctx)
	o.assignWaiting(ctx)
	o.negotiate(ctx, proposals)
}

// accrueWaits advances the per-vehicle wait counters feeding the urgency
// formula. Waiting accumulates while a vehicle is unserved (queued, or
// waiting with no assignment); it is cumulative, so winning a swap does not
// zero the victim's claim, and it resets once service starts.
func (o *Orchestrator) accrueWaits(ctx *Context) {
	queued := make(map[int]bool)
	for _, st := range ctx.Stations {
		for _, id := range st.Queue {
			queued[id] = true
		}
	}
	for id, v := range o.views {
		switch {
		case v.terminal:
		case v.state == message.Charging:
			v.ticksWaited = 0
		case queued[id] || v.state == message.Waiting:
			v.ticksWaited++
		}
	}
}

// applyStatus folds one vehicle status into the orchestrator state and
// applies the station lifecycle hints in the orchestrator's step slot, which
// is the only place station occupancy is mutated.
func (o *Orchestrator) applyStatus(ctx *Context, msg message.StatusUpdate) {
	v := o.views[msg.VehicleID]
	if v == nil {
		v = &view{id: msg.VehicleID}
		o.views[msg.VehicleID] = v
	}
	v.coord = msg.Coord
	v.battery = msg.Battery
	v.state = msg.State
	v.requested = msg.RequestAssignment
	v.terminal = msg.State.Terminal()

	if msg.ArrivedAtStation >= 0 {
		st := ctx.Stations[msg.ArrivedAtStation]
		st.Dequeue(msg.VehicleID)
		o.dropEnroute(msg.ArrivedAtStation, msg.VehicleID)
		if st.Occupy(msg.VehicleID) {
			o.version++
			ctx.Logf("orchestrator", "info", "vehicle %d occupies station %d (%d/%d)",
				msg.VehicleID, st.ID, len(st.Occupants), st.Capacity)
		}
	}
	if msg.ReleasedStation >= 0 {
		st := ctx.Stations[msg.ReleasedStation]
		st.Release(msg.VehicleID)
		delete(o.assignments, msg.VehicleID)
		o.version++
		ctx.Logf("orchestrator", "info", "vehicle %d released station %d", msg.VehicleID, st.ID)
	}
	if v.terminal {
		o.evict(ctx, msg.VehicleID)
	}
}

// evict removes a terminal vehicle from every queue and slot.
func (o *Orchestrator) evict(ctx *Context, vehicleID int) {
	for _, st := range ctx.Stations {
		st.Release(vehicleID)
		st.Dequeue(vehicleID)
		o.dropEnroute(st.ID, vehicleID)
	}
	delete(o.assignments, vehicleID)
	o.version++
}

func (o *Orchestrator) dropEnroute(stationID, vehicleID int) {
	list := o.enroute[stationID]
	for i, id := range list {
		if id == vehicleID {
			o.enroute[stationID] = append(list[:i], list[i+1:]...)
			return
		}
	}
}

// freeSlots is the number of occupant slots not spoken for, counting
// vehicles already promoted but still traveling.
func (o *Orchestrator) freeSlots(st *grid.ChargingStation) int {
	n := st.Capacity - len(st.Occupants) - len(o.enroute[st.ID])
	if n < 0 {
		return 0
	}
	return n
}

// promote advances queue heads into freed slots and renumbers the rest.
func (o *Orchestrator) promote(ctx *Context) {
	for _, st := range ctx.Stations {
		changed := false
		for o.freeSlots(st) > 0 && len(st.Queue) > 0 {
			head := st.Queue[0]
			st.Queue = st.Queue[1:]
			o.enroute[st.ID] = append(o.enroute[st.ID], head)
			o.stats.Promotions++
			o.sendAssignment(ctx, head, st, 0)
			ctx.Logf("orchestrator", "info", "promoted vehicle %d to station %d slot", head, st.ID)
			changed = true
		}
		if changed {
			o.renumber(ctx, st)
			o.version++
		}
	}
}

// renumber re-announces queue positions after queue membership changed.
func (o *Orchestrator) renumber(ctx *Context, st *grid.ChargingStation) {
	for i, id := range st.Queue {
		o.sendAssignment(ctx, id, st, i+1)
	}
}

// ahead resolves the opponent for a queue position: the vehicle holding the
// slot immediately above, or -1 for an uncontested position.
func (o *Orchestrator) ahead(st *grid.ChargingStation, queuePos int) int {
	if queuePos <= 0 {
		return -1
	}
	if queuePos >= 2 && queuePos-2 < len(st.Queue) {
		return st.Queue[queuePos-2]
	}
	if list := o.enroute[st.ID]; len(list) > 0 {
		return list[len(list)-1]
	}
	if len(st.Occupants) > 0 {
		return st.Occupants[len(st.Occupants)-1]
	}
	return -1
}

func (o *Orchestrator) sendAssignment(ctx *Context, vehicleID int, st *grid.ChargingStation, queuePos int) {
	o.assignments[vehicleID] = st.ID
	ctx.Bus.Send(vehicleID, message.Assignment{
		VehicleID:    vehicleID,
		StationID:    st.ID,
		StationCoord: st.Coord,
		QueuePos:     queuePos,
		Ahead:        o.ahead(st, queuePos),
	})
}

// assignWaiting runs the Hungarian matching over unassigned waiting
// vehicles and the eligible stations.
func (o *Orchestrator) assignWaiting(ctx *Context) {
	var unassigned []assign.VehicleInfo
	ids := make([]int, 0, len(o.views))
	for id := range o.views {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	for _, id := range ids {
		v := o.views[id]
		if v.terminal {
			continue
		}
		_, has := o.assignments[id]
		needs := (v.state == message.Waiting && !has) || (v.requested && !has)
		if needs {
			unassigned = append(unassigned, assign.VehicleInfo{ID: id, Coord: v.coord, Battery: v.battery})
		}
	}
	if len(unassigned) == 0 {
		return
	}

	stations := make([]assign.StationInfo, 0, len(ctx.Stations))
	for _, st := range ctx.Stations {
		stations = append(stations, assign.StationInfo{
			ID:       st.ID,
			Coord:    st.Coord,
			Capacity: st.Capacity,
			Load:     st.Load() + len(o.enroute[st.ID]),
		})
	}

	matched := o.assigner.Assign(unassigned, stations)
	if len(matched) == 0 {
		ctx.Logf("orchestrator", "warning", "no eligible station for %d waiting vehicle(s)", len(unassigned))
		return
	}

	infoByID := make(map[int]assign.VehicleInfo, len(unassigned))
	for _, vi := range unassigned {
		infoByID[vi.ID] = vi
	}

	// Group winners per station and serve cheaper (then lower id) vehicles
	// the shallower slots.
	byStation := make(map[int][]int)
	for id, stID := range matched {
		byStation[stID] = append(byStation[stID], id)
	}
	stIDs := make([]int, 0, len(byStation))
	for stID := range byStation {
		stIDs = append(stIDs, stID)
	}
	sort.Ints(stIDs)
	for _, stID := range stIDs {
		st := ctx.Stations[stID]
		group := byStation[stID]
		sInfo := assign.StationInfo{ID: st.ID, Coord: st.Coord, Capacity: st.Capacity, Load: st.Load() + len(o.enroute[st.ID])}
		sort.Slice(group, func(i, j int) bool {
			ci := o.assigner.Cost(infoByID[group[i]], sInfo)
			cj := o.assigner.Cost(infoByID[group[j]], sInfo)
			if ci != cj {
				return ci < cj
			}
			return group[i] < group[j]
		})
		for _, id := range group {
			o.stats.Assignments++
			if o.freeSlots(st) > 0 {
				o.enroute[st.ID] = append(o.enroute[st.ID], id)
				o.sendAssignment(ctx, id, st, 0)
			} else {
				st.Enqueue(id)
				o.sendAssignment(ctx, id, st, st.QueuePos(id))
			}
			o.version++
			ctx.Logf("orchestrator", "info", "assigned vehicle %d to station %d (queue_pos %d)",
				id, st.ID, o.queuePosOf(st, id))
		}
	}
}

func (o *Orchestrator) queuePosOf(st *grid.ChargingStation, vehicleID int) int {
	for _, id := range o.enroute[st.ID] {
		if id == vehicleID {
			return 0
		}
	}
	return st.QueuePos(vehicleID)
}
