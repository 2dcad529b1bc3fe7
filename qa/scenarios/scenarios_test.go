package scenarios

import (
	"testing"

	"github.com/kilianp07/robocharge/core/message"
	"github.com/kilianp07/robocharge/core/sim"
)

func TestSingleAmple(t *testing.T) {
	sc := SingleAmple()
	var assignedStation int = -1
	result := RunScenario(t, sc, func(t *testing.T, m *sim.Model) {
		v := m.Vehicles()[0]
		if v.AssignedStation >= 0 && assignedStation == -1 {
			assignedStation = v.AssignedStation
		}
	})
	if assignedStation != 1 {
		t.Fatalf("vehicle assigned station %d, want nearest station 1", assignedStation)
	}
	if result.Ticks > 150 {
		t.Fatalf("run took %d ticks, want <= 150", result.Ticks)
	}
	// Only the nearer station was ever used.
	for _, st := range result.Summary.Stations {
		switch st.ID {
		case 0:
			if st.Utilization != 0 {
				t.Fatalf("station 0 used: %v", st.Utilization)
			}
		case 1:
			if st.Utilization == 0 {
				t.Fatalf("station 1 never used")
			}
		}
	}
}

func TestThreePairwise(t *testing.T) {
	sc := ThreePairwise()
	first := map[int]int{} // vehicle -> first assigned station
	result := RunScenario(t, sc, func(t *testing.T, m *sim.Model) {
		for _, v := range m.Vehicles() {
			if v.AssignedStation >= 0 {
				if _, seen := first[v.ID]; !seen {
					first[v.ID] = v.AssignedStation
				}
			}
		}
	})
	want := map[int]int{0: 0, 1: 1, 2: 2}
	for id, st := range want {
		if first[id] != st {
			t.Fatalf("vehicle %d first assigned station %d, want %d", id, first[id], st)
		}
	}
	totalYields := 0
	for _, v := range result.Summary.Vehicles {
		totalYields += v.Yields
	}
	if totalYields > 3 {
		t.Fatalf("collective yields = %d, want <= 3", totalYields)
	}
}

func TestHeadOnCorridor(t *testing.T) {
	sc := HeadOnCorridor()
	charged := map[int]bool{}
	result := RunScenario(t, sc, func(t *testing.T, m *sim.Model) {
		for _, v := range m.Vehicles() {
			if v.State == message.Charging {
				charged[v.ID] = true
			}
		}
	})
	if !charged[0] || !charged[1] {
		t.Fatalf("charged = %v, want both vehicles to reach their stations", charged)
	}
	var v1 *struct{ yields int }
	for _, v := range result.Summary.Vehicles {
		if v.ID == 1 {
			v1 = &struct{ yields int }{v.Yields}
		}
	}
	if v1 == nil || v1.yields < 1 {
		t.Fatalf("vehicle 1 never yielded")
	}
}

func TestSingleStationQueue(t *testing.T) {
	sc := SingleStationQueue()
	seenPos := map[int]bool{}
	lastPos := map[int]int{}
	chargingAtOnce := 0
	RunScenario(t, sc, func(t *testing.T, m *sim.Model) {
		n := 0
		for _, v := range m.Vehicles() {
			if v.QueuePos >= 0 {
				seenPos[v.QueuePos] = true
				// Without negotiation a queued vehicle only moves up.
				if prev, ok := lastPos[v.ID]; ok && v.QueuePos > prev {
					t.Fatalf("vehicle %d queue pos grew %d -> %d", v.ID, prev, v.QueuePos)
				}
				lastPos[v.ID] = v.QueuePos
			}
			if v.State == message.Charging {
				n++
			}
		}
		if n > chargingAtOnce {
			chargingAtOnce = n
		}
	})
	if chargingAtOnce != 1 {
		t.Fatalf("max concurrent charging = %d, want exactly 1", chargingAtOnce)
	}
	for pos := 0; pos <= 2; pos++ {
		if !seenPos[pos] {
			t.Fatalf("queue positions observed %v, want {0,1,2}", seenPos)
		}
	}
}

func TestUrgencyNegotiation(t *testing.T) {
	sc := UrgencyNegotiation()
	firstCharger := -1
	result := RunScenario(t, sc, func(t *testing.T, m *sim.Model) {
		if firstCharger >= 0 {
			return
		}
		for _, v := range m.Vehicles() {
			if v.State == message.Charging {
				firstCharger = v.ID
			}
		}
	})
	if firstCharger != 1 {
		t.Fatalf("first charger = vehicle %d, want the critical vehicle 1", firstCharger)
	}
	if result.Summary.System.CounterProposals == 0 {
		t.Fatalf("no counter-proposals recorded")
	}
}

func TestTFTTournament(t *testing.T) {
	sc := TFTTournament()
	result := RunScenario(t, sc, nil)

	for _, v := range result.Summary.Vehicles {
		if !v.Completed {
			t.Fatalf("vehicle %d did not complete: %+v", v.ID, v)
		}
	}

	// Re-run with direct observation of the behavioral histories.
	m, err := sim.New(sc, nil, nil)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	m.Run()
	var tft = m.Vehicles()[2]
	if tft.Behavior.String() != "tit_for_tat" {
		t.Fatalf("vehicle 2 behavior = %v", tft.Behavior)
	}
	// The competitive vehicle's defection was recorded.
	hist := tft.PeerHistory[1]
	if len(hist) == 0 || hist[0] != message.Defect {
		t.Fatalf("peer history vs vehicle 1 = %v, want defect recorded", hist)
	}
	// Reciprocity: the tit-for-tat vehicle answered the defection in kind.
	self := tft.SelfHistory[1]
	if len(self) == 0 || self[0] != message.Defect {
		t.Fatalf("self history vs vehicle 1 = %v, want a retaliatory defect", self)
	}
	// The cooperative vehicle was never retaliated against.
	for _, a := range tft.SelfHistory[0] {
		if a == message.Defect {
			t.Fatalf("tit-for-tat defected against the cooperative vehicle")
		}
	}
}

func TestStressAllComplete(t *testing.T) {
	if testing.Short() {
		t.Skip("long scenario")
	}
	RunScenario(t, Stress(), nil)
}

func TestPresetRegistry(t *testing.T) {
	names := Names()
	if len(names) != 7 {
		t.Fatalf("got %d presets: %v", len(names), names)
	}
	for _, name := range names {
		sc, err := Get(name)
		if err != nil {
			t.Fatalf("get %s: %v", name, err)
		}
		if err := sc.Validate(); err != nil {
			t.Fatalf("preset %s invalid: %v", name, err)
		}
	}
	if _, err := Get("nope"); err == nil {
		t.Fatalf("expected error for unknown preset")
	}
}
