package scenarios

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/kilianp07/robocharge/core/sim"
)

// fileScenario is the YAML shape of a scenario file. It mirrors
// sim.Scenario but keeps the parameter keys flat.
type fileScenario struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Map         string `yaml:"map"`
	Capacities  []int  `yaml:"capacities"`
	Exit        []int  `yaml:"exit"`
	Vehicles    []struct {
		ID       *int    `yaml:"id"`
		X        int     `yaml:"x"`
		Y        int     `yaml:"y"`
		Battery  float64 `yaml:"battery"`
		Behavior string  `yaml:"behavior"`
	} `yaml:"vehicles"`
	Params struct {
		DrainPerStep  float64 `yaml:"drain_per_step"`
		ChargePerStep float64 `yaml:"charge_per_step"`
		LowThreshold  float64 `yaml:"low_threshold"`
		ChargeTarget  float64 `yaml:"charge_target"`
		WD            float64 `yaml:"w_d"`
		WB            float64 `yaml:"w_b"`
		WL            float64 `yaml:"w_l"`
		MaxSteps      int     `yaml:"max_steps"`
		QueueCap      int     `yaml:"queue_cap"`
		DeadlockTicks int     `yaml:"deadlock_ticks"`
		Seed          int64   `yaml:"seed"`
		Epsilon       float64 `yaml:"epsilon"`
	} `yaml:"params"`
	Expected *struct {
		Completed int `yaml:"completed"`
		MaxTicks  int `yaml:"max_ticks"`
	} `yaml:"expected"`
}

// Load reads a scenario from a YAML file.
func Load(path string) (sim.Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return sim.Scenario{}, err
	}
	var fs fileScenario
	if err := yaml.Unmarshal(data, &fs); err != nil {
		return sim.Scenario{}, fmt.Errorf("parse scenario %s: %w", path, err)
	}

	sc := sim.Scenario{
		Name:        fs.Name,
		Description: fs.Description,
		Map:         fs.Map,
		Capacities:  fs.Capacities,
		Exit:        fs.Exit,
	}
	for _, v := range fs.Vehicles {
		sc.Vehicles = append(sc.Vehicles, sim.VehicleDef{
			ID: v.ID, X: v.X, Y: v.Y, Battery: v.Battery, Behavior: v.Behavior,
		})
	}
	sc.Params.DrainPerStep = fs.Params.DrainPerStep
	sc.Params.ChargePerStep = fs.Params.ChargePerStep
	sc.Params.LowThreshold = fs.Params.LowThreshold
	sc.Params.ChargeTarget = fs.Params.ChargeTarget
	sc.Params.Distance = fs.Params.WD
	sc.Params.Battery = fs.Params.WB
	sc.Params.Load = fs.Params.WL
	sc.Params.MaxSteps = fs.Params.MaxSteps
	sc.Params.QueueCap = fs.Params.QueueCap
	sc.Params.DeadlockTicks = fs.Params.DeadlockTicks
	sc.Params.Seed = fs.Params.Seed
	sc.Params.Epsilon = fs.Params.Epsilon
	if fs.Expected != nil {
		sc.Expected = &sim.Expected{Completed: fs.Expected.Completed, MaxTicks: fs.Expected.MaxTicks}
	}
	if err := sc.Validate(); err != nil {
		return sim.Scenario{}, err
	}
	return sc, nil
}
