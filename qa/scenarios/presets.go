// Package scenarios ships the preset simulation scenarios used by the CLI,
// the server and the oracle tests.
package scenarios

import (
	"fmt"
	"sort"

	"github.com/kilianp07/robocharge/core/sim"
	"github.com/kilianp07/robocharge/core/vehicle"
)

// SingleAmple is a lone vehicle with two roomy stations: it picks the
// nearest one, charges and exits.
func SingleAmple() sim.Scenario {
	return sim.Scenario{
		Name:        "single_ample",
		Description: "one vehicle, two capacity-2 stations, nearest wins",
		Map: `...............
...............
...............
...#...........
...............
.....C.........
..........C....
...............
.......#.......
...............
...............
E..............`,
		Capacities: []int{2, 2},
		Vehicles: []sim.VehicleDef{
			{X: 12, Y: 1, Battery: 25},
		},
		Params:   sim.Params{MaxSteps: 300},
		Expected: &sim.Expected{Completed: 1, MaxTicks: 150},
	}
}

// ThreePairwise has three vehicles and three unit-capacity stations that
// pair up by proximity.
func ThreePairwise() sim.Scenario {
	return sim.Scenario{
		Name:        "three_pairwise",
		Description: "three vehicles, three unit stations, proximity pairing",
		Map: `....................
....................
....................
....................
....................
.....C........C.....
....................
....................
....................
....................
....................
....................
..........C.........
....................
....................
E...................`,
		Capacities: []int{1, 1, 1},
		Vehicles: []sim.VehicleDef{
			{X: 2, Y: 2, Battery: 28},
			{X: 17, Y: 2, Battery: 26},
			{X: 10, Y: 8, Battery: 24},
		},
		Params:   sim.Params{MaxSteps: 400},
		Expected: &sim.Expected{Completed: 3, MaxTicks: 400},
	}
}

// HeadOnCorridor forces two vehicles through a two-wide corridor; the
// higher id yields and detours.
func HeadOnCorridor() sim.Scenario {
	return sim.Scenario{
		Name:        "head_on_corridor",
		Description: "two vehicles share a 2-wide corridor, higher id yields",
		Map: `#########
#########
E.C...C..
.........
#########
#########
#########
#########
#########
#########`,
		Capacities: []int{1, 1},
		Vehicles: []sim.VehicleDef{
			{X: 0, Y: 2, Battery: 10},
			{X: 8, Y: 2, Battery: 28},
		},
		Params:   sim.Params{MaxSteps: 300},
		Expected: &sim.Expected{Completed: 2, MaxTicks: 300},
	}
}

// SingleStationQueue sends three vehicles to one unit-capacity station so a
// queue with positions 0, 1 and 2 forms.
func SingleStationQueue() sim.Scenario {
	return sim.Scenario{
		Name:        "single_station_queue",
		Description: "three vehicles, one unit station, serial service",
		Map: `............
............
............
............
......C.....
............
............
............
............
E...........`,
		Capacities: []int{1},
		Vehicles: []sim.VehicleDef{
			{X: 3, Y: 1, Battery: 28},
			{X: 10, Y: 1, Battery: 26},
			{X: 6, Y: 7, Battery: 24},
		},
		Params: sim.Params{
			Params:   vehicleParams(0.2, 3.0),
			MaxSteps: 400,
		},
		Expected: &sim.Expected{Completed: 3, MaxTicks: 400},
	}
}

// UrgencyNegotiation gives the farther vehicle a critical battery; its
// counter-proposal wins the occupant slot.
func UrgencyNegotiation() sim.Scenario {
	return sim.Scenario{
		Name:        "urgency_negotiation",
		Description: "critical vehicle swaps to the head of the queue",
		Map: `...............
...............
...............
...............
......C........
...............
...............
...............
...............
...............
...............
E..............`,
		Capacities: []int{1},
		Vehicles: []sim.VehicleDef{
			{X: 2, Y: 2, Battery: 25},
			{X: 10, Y: 2, Battery: 15, Behavior: "competitive"},
		},
		Params: sim.Params{
			Params:   vehicleParams(0.2, 3.0),
			MaxSteps: 300,
		},
		Expected: &sim.Expected{Completed: 2, MaxTicks: 300},
	}
}

// TFTTournament pits cooperative, competitive and tit-for-tat vehicles
// against one unit-capacity station.
func TFTTournament() sim.Scenario {
	return sim.Scenario{
		Name:        "tft_tournament",
		Description: "behavioral tournament at a single station",
		Map: `............
............
............
............
............
......C.....
............
............
............
E...........`,
		Capacities: []int{1},
		Vehicles: []sim.VehicleDef{
			{X: 2, Y: 2, Battery: 22, Behavior: "cooperative"},
			{X: 9, Y: 2, Battery: 22, Behavior: "competitive"},
			{X: 6, Y: 8, Battery: 22, Behavior: "tit_for_tat"},
		},
		Params: sim.Params{
			Params:   vehicleParams(0.1, 5.0),
			MaxSteps: 400,
		},
		Expected: &sim.Expected{Completed: 3, MaxTicks: 400},
	}
}

// Stress packs twelve vehicles against three stations on a walled grid.
func Stress() sim.Scenario {
	vehicles := []sim.VehicleDef{
		{X: 1, Y: 1, Battery: 24}, {X: 6, Y: 1, Battery: 27}, {X: 11, Y: 1, Battery: 22},
		{X: 16, Y: 1, Battery: 29}, {X: 1, Y: 8, Battery: 25}, {X: 6, Y: 8, Battery: 21},
		{X: 11, Y: 8, Battery: 26}, {X: 16, Y: 8, Battery: 23}, {X: 1, Y: 13, Battery: 28},
		{X: 6, Y: 13, Battery: 20}, {X: 11, Y: 13, Battery: 27}, {X: 16, Y: 13, Battery: 24},
	}
	return sim.Scenario{
		Name:        "stress",
		Description: "twelve vehicles share three stations",
		Map: `##################
#................#
#................#
#....C......C....#
#................#
#................#
#................#
#................#
#................#
#........C......##
#................#
#................#
#................#
#................#
E................#
##################`,
		Capacities: []int{2, 2, 3},
		Vehicles:   vehicles,
		Params: sim.Params{
			Params:   vehicleParams(0.1, 5.0),
			MaxSteps: 1500,
		},
		Expected: &sim.Expected{Completed: 12, MaxTicks: 1500},
	}
}

func vehicleParams(drain, charge float64) vehicle.Params {
	return vehicle.Params{DrainPerStep: drain, ChargePerStep: charge}
}

// builders maps preset names to constructors.
var builders = map[string]func() sim.Scenario{
	"single_ample":         SingleAmple,
	"three_pairwise":       ThreePairwise,
	"head_on_corridor":     HeadOnCorridor,
	"single_station_queue": SingleStationQueue,
	"urgency_negotiation":  UrgencyNegotiation,
	"tft_tournament":       TFTTournament,
	"stress":               Stress,
}

// Get returns the preset by name.
func Get(name string) (sim.Scenario, error) {
	b, ok := builders[name]
	if !ok {
		return sim.Scenario{}, fmt.Errorf("unknown scenario %q", name)
	}
	return b(), nil
}

// Names lists the available presets in stable order.
func Names() []string {
	out := make([]string, 0, len(builders))
	for name := range builders {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
