package sim

import (
	"fmt"

	"github.com/kilianp07/robocharge/core/assign"
	"github.com/kilianp07/robocharge/core/vehicle"
)

// Params collects every tunable of a run. Embedded structs keep the wire
// keys flat (drain_per_step, w_d, ...).
type Params struct {
	vehicle.Params `json:",squash"`
	assign.Weights `json:",squash"`

	MaxSteps      int   `json:"max_steps"`
	QueueCap      int   `json:"queue_cap"`
	DeadlockTicks int   `json:"deadlock_ticks"`
	Seed          int64 `json:"seed"`
	// Epsilon is the urgency margin required to win a queue swap.
	Epsilon float64 `json:"epsilon"`
}

// SetDefaults applies the reference tuning for unset fields.
func (p *Params) SetDefaults() {
	p.Params.SetDefaults()
	if p.Weights == (assign.Weights{}) {
		p.Weights = assign.DefaultWeights()
	}
	if p.MaxSteps == 0 {
		p.MaxSteps = 1000
	}
	if p.QueueCap == 0 {
		p.QueueCap = -1
	}
	if p.DeadlockTicks == 0 {
		p.DeadlockTicks = 10
	}
	if p.Epsilon == 0 {
		p.Epsilon = 0.05
	}
}

// VehicleDef places one vehicle in a scenario.
type VehicleDef struct {
	ID       *int    `json:"id,omitempty"`
	X        int     `json:"x"`
	Y        int     `json:"y"`
	Battery  float64 `json:"battery"`
	Behavior string  `json:"behavior,omitempty"`
}

// Expected is the oracle used by scenario tests.
type Expected struct {
	Completed int `json:"completed"`
	MaxTicks  int `json:"max_ticks"`
}

// Scenario is the full configuration of a run. The map uses '.' empty,
// '#' obstacle, 'C' station (capacities matched in scan order) and 'E' exit.
type Scenario struct {
	Name        string       `json:"name"`
	Description string       `json:"description,omitempty"`
	Map         string       `json:"map"`
	Capacities  []int        `json:"capacities"`
	Exit        []int        `json:"exit,omitempty"` // [x, y]; optional when the map has an E
	Vehicles    []VehicleDef `json:"vehicles"`
	Params      Params       `json:"params"`
	Expected    *Expected    `json:"expected,omitempty"`
}

// Validate performs the checks that do not need the parsed grid.
func (s *Scenario) Validate() error {
	if s.Name == "" {
		return &ConfigError{Reason: "scenario name is required"}
	}
	if s.Map == "" {
		return &ConfigError{Reason: "scenario map is required"}
	}
	if len(s.Vehicles) == 0 {
		return &ConfigError{Reason: "scenario needs at least one vehicle"}
	}
	if s.Exit != nil && len(s.Exit) != 2 {
		return &ConfigError{Reason: fmt.Sprintf("exit must be [x, y], got %v", s.Exit)}
	}
	seen := make(map[int]bool)
	for i, v := range s.Vehicles {
		id := i
		if v.ID != nil {
			id = *v.ID
		}
		if seen[id] {
			return &ConfigError{Reason: fmt.Sprintf("duplicate vehicle id %d", id)}
		}
		seen[id] = true
		if v.Battery < 0 || v.Battery > 100 {
			return &ConfigError{Reason: fmt.Sprintf("vehicle %d battery %.1f outside [0,100]", id, v.Battery)}
		}
	}
	return nil
}
