// Package sim composes the grid, vehicles, orchestrator, reservation table
// and metrics into the deterministic tick loop.
package sim

import (
	"fmt"
	"math/rand"
	"sort"

	"github.com/google/uuid"

	"github.com/kilianp07/robocharge/core/grid"
	"github.com/kilianp07/robocharge/core/logger"
	"github.com/kilianp07/robocharge/core/message"
	"github.com/kilianp07/robocharge/core/metrics"
	"github.com/kilianp07/robocharge/core/orchestrator"
	"github.com/kilianp07/robocharge/core/planner"
	"github.com/kilianp07/robocharge/core/reservation"
	"github.com/kilianp07/robocharge/core/vehicle"
)

const recentLogLines = 50

// LogLine is one activity entry surfaced through snapshots.
type LogLine struct {
	Tick    int    `json:"tick"`
	Agent   string `json:"agent"`
	Level   string `json:"level"`
	Message string `json:"message"`
}

// Model owns every simulation structure. Execution is single threaded and
// tick driven; given the same scenario two runs are bit-for-bit identical.
type Model struct {
	scenario Scenario
	params   Params

	grid      *grid.Grid
	vehicles  []*vehicle.Vehicle
	byID      map[int]*vehicle.Vehicle
	res       *reservation.Table
	bus       *message.Bus
	orch      *orchestrator.Orchestrator
	collector *metrics.Collector
	sink      metrics.Sink
	log       logger.Logger

	runID  string
	rng    *rand.Rand
	tick   int
	done   bool
	reason Reason
	recent []LogLine

	noProgress  int
	lastVersion uint64
}

// New builds a model from the scenario. All configuration problems are
// reported as *ConfigError.
func New(sc Scenario, sink metrics.Sink, log logger.Logger) (*Model, error) {
	if log == nil {
		log = logger.NopLogger{}
	}
	if err := sc.Validate(); err != nil {
		return nil, err
	}
	sc.Params.SetDefaults()

	g, err := grid.Parse(sc.Map, sc.Capacities)
	if err != nil {
		return nil, &ConfigError{Reason: err.Error()}
	}
	if sc.Exit != nil {
		if err := g.SetExit(grid.Coord{X: sc.Exit[0], Y: sc.Exit[1]}); err != nil {
			return nil, &ConfigError{Reason: err.Error()}
		}
	}
	if !g.HasExit() {
		return nil, configErrorf("scenario %s has no exit", sc.Name)
	}

	m := &Model{
		scenario: sc,
		params:   sc.Params,
		grid:     g,
		byID:     make(map[int]*vehicle.Vehicle),
		res:      reservation.NewTable(),
		bus:      message.NewBus(),
		sink:     sink,
		log:      log,
		reason:   ReasonRunning,
		rng:      rand.New(rand.NewSource(sc.Params.Seed)),
	}
	// Deterministic run id so reset/start cycles reproduce snapshots.
	m.runID = uuid.NewSHA1(uuid.NameSpaceURL, []byte("robocharge/"+sc.Name)).String()

	starts := make(map[grid.Coord]int)
	for i, def := range sc.Vehicles {
		id := i
		if def.ID != nil {
			id = *def.ID
		}
		start := grid.Coord{X: def.X, Y: def.Y}
		if !g.IsWalkable(start) {
			return nil, configErrorf("vehicle %d starts on unwalkable cell %s", id, start)
		}
		if other, taken := starts[start]; taken {
			return nil, configErrorf("vehicles %d and %d share start cell %s", other, id, start)
		}
		starts[start] = id
		if _, err := planner.Plan(g, start, g.Exit, nil); err != nil {
			return nil, configErrorf("exit unreachable from vehicle %d start %s", id, start)
		}
		v := vehicle.New(id, start, def.Battery, vehicle.ParseBehavior(def.Behavior))
		m.vehicles = append(m.vehicles, v)
		m.byID[id] = v
	}
	sort.Slice(m.vehicles, func(i, j int) bool { return m.vehicles[i].ID < m.vehicles[j].ID })

	m.orch = orchestrator.New(orchestrator.Config{
		Weights:  sc.Params.Weights,
		QueueCap: sc.Params.QueueCap,
		Epsilon:  sc.Params.Epsilon,
	})
	m.collector = metrics.NewCollector(m.runID, sc.Name, sink)
	return m, nil
}

// Tick returns the current tick number.
func (m *Model) Tick() int { return m.tick }

// Done reports whether the run has terminated.
func (m *Model) Done() bool { return m.done }

// TerminationReason returns why the run ended, or ReasonRunning.
func (m *Model) TerminationReason() Reason { return m.reason }

// Vehicles exposes the vehicles for observers and tests. Callers must not
// mutate them.
func (m *Model) Vehicles() []*vehicle.Vehicle { return m.vehicles }

// Grid exposes the immutable environment.
func (m *Model) Grid() *grid.Grid { return m.grid }

// Reservations exposes the reservation table for invariant checks.
func (m *Model) Reservations() *reservation.Table { return m.res }

// Scenario returns the configuration the model was built from.
func (m *Model) Scenario() Scenario { return m.scenario }

// logActivity records one activity line for snapshots and mirrors it to the
// structured logger.
func (m *Model) logActivity(agent, level, format string, args ...any) {
	line := LogLine{Tick: m.tick, Agent: agent, Level: level}
	switch level {
	case "warning":
		m.log.Warnf(agent+": "+format, args...)
	case "action", "info":
		m.log.Infof(agent+": "+format, args...)
	default:
		m.log.Debugf(agent+": "+format, args...)
	}
	line.Message = fmt.Sprintf(format, args...)
	m.recent = append(m.recent, line)
	if len(m.recent) > recentLogLines {
		m.recent = m.recent[len(m.recent)-recentLogLines:]
	}
}

// Step advances the simulation by exactly one tick.
func (m *Model) Step() {
	if m.done {
		return
	}
	m.res.GC(m.tick)

	claims := make(map[grid.Coord]int)
	pendingArrivals := make(map[int]int)
	ctx := &vehicle.StepContext{
		Tick:   m.tick,
		Grid:   m.grid,
		Res:    m.res,
		Bus:    m.bus,
		Params: m.params.Params,
		Claim: func(id int, c grid.Coord) {
			if _, taken := claims[c]; !taken {
				claims[c] = id
			}
		},
		ClaimedBy: func(c grid.Coord) (int, bool) {
			id, ok := claims[c]
			return id, ok
		},
		OccupantAt: func(c grid.Coord) (int, bool) {
			for _, v := range m.vehicles {
				if !v.Terminal() && v.Coord == c {
					return v.ID, true
				}
			}
			return 0, false
		},
		IntendedNextOf: func(id int) (grid.Coord, bool) {
			if v, ok := m.byID[id]; ok {
				return v.IntendedNext()
			}
			return grid.Coord{}, false
		},
		PositionOf: func(id int) (grid.Coord, bool) {
			if v, ok := m.byID[id]; ok && !v.Terminal() {
				return v.Coord, true
			}
			return grid.Coord{}, false
		},
		StationHasSlot: func(stationID int) bool {
			if stationID < 0 || stationID >= len(m.grid.Stations) {
				return false
			}
			st := m.grid.Stations[stationID]
			return len(st.Occupants)+pendingArrivals[stationID] < st.Capacity
		},
		Logf: m.logActivity,
	}

	moved := false
	for _, v := range m.vehicles {
		prevState := v.State
		prevCoord := v.Coord
		v.Step(ctx)
		if v.Coord != prevCoord {
			moved = true
		}
		if v.State == message.Charging {
			// A charging vehicle is making progress toward release.
			moved = true
			if prevState != message.Charging {
				pendingArrivals[v.AssignedStation]++
			}
		}
	}

	m.orch.Step(&orchestrator.Context{
		Tick:     m.tick,
		Bus:      m.bus,
		Stations: m.grid.Stations,
		Params:   m.params.Params,
		BehaviorOf: func(id int) vehicle.Behavior {
			if v, ok := m.byID[id]; ok {
				return v.Behavior
			}
			return vehicle.BehaviorNone
		},
		Logf: m.logActivity,
	})

	if err := m.collector.Collect(m.tick, m.vehicles, m.grid.Stations, m.orch.Stats()); err != nil {
		m.log.Errorf("metrics collect: %v", err)
	}

	version := m.orch.Version()
	if !moved && version == m.lastVersion {
		m.noProgress++
	} else {
		m.noProgress = 0
	}
	m.lastVersion = version
	if m.noProgress >= m.params.DeadlockTicks {
		m.breakDeadlock()
		m.noProgress = 0
	}

	m.tick++

	allDone := true
	for _, v := range m.vehicles {
		if !v.Terminal() {
			allDone = false
			break
		}
	}
	switch {
	case allDone:
		m.finish(ReasonCompleted)
	case m.tick >= m.params.MaxSteps:
		m.logActivity("sim", "warning", "timed out at tick %d with incomplete vehicles", m.tick)
		m.finish(ReasonTimedOut)
	}
}

func (m *Model) finish(r Reason) {
	m.done = true
	m.reason = r
	summary := m.collector.Summary(m.vehicles, m.grid.Stations, m.orch.Stats(), string(r))
	if err := m.collector.Flush(summary); err != nil {
		m.log.Errorf("metrics flush: %v", err)
	}
}

// breakDeadlock forces a replan for every unfinished vehicle, clearing
// reservations in a seeded random order so symmetric stalemates resolve.
func (m *Model) breakDeadlock() {
	m.logActivity("sim", "warning", "deadlock detected after %d ticks without progress, forcing replans", m.params.DeadlockTicks)
	order := m.rng.Perm(len(m.vehicles))
	for _, i := range order {
		v := m.vehicles[i]
		if v.Terminal() {
			continue
		}
		m.res.ClearVehicle(v.ID)
		v.ForceReplan()
	}
}

// Run steps until termination and returns the final result.
func (m *Model) Run() Result {
	for !m.done {
		m.Step()
	}
	return m.Result()
}

// RunUntil steps until cond holds, the run terminates, or maxTicks extra
// ticks elapse. A nil cond runs to termination or the tick budget.
func (m *Model) RunUntil(cond func(*Model) bool, maxTicks int) {
	for i := 0; !m.done && i < maxTicks; i++ {
		m.Step()
		if cond != nil && cond(m) {
			return
		}
	}
}

// Result summarizes the run so far.
func (m *Model) Result() Result {
	incomplete := 0
	for _, v := range m.vehicles {
		if !v.Terminal() {
			incomplete++
		}
	}
	return Result{
		Reason:     m.reason,
		Ticks:      m.tick,
		Incomplete: incomplete,
		Summary:    m.collector.Summary(m.vehicles, m.grid.Stations, m.orch.Stats(), string(m.reason)),
	}
}

// Result is the terminal report of a run.
type Result struct {
	Reason     Reason          `json:"reason"`
	Ticks      int             `json:"ticks"`
	Incomplete int             `json:"incomplete"`
	Summary    metrics.Summary `json:"summary"`
}
