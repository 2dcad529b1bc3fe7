package simulation

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/kilianp07/robocharge/core/sim"
)

func newServer(t *testing.T) (*httptest.Server, *Controller) {
	t.Helper()
	c := NewController(nil, nil)
	srv := httptest.NewServer(NewHandler(c))
	t.Cleanup(func() {
		srv.Close()
		c.Close()
	})
	return srv, c
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(data))
	if err != nil {
		t.Fatalf("post %s: %v", url, err)
	}
	return resp
}

func decodeSnapshot(t *testing.T, resp *http.Response) sim.Snapshot {
	t.Helper()
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status %d", resp.StatusCode)
	}
	var snap sim.Snapshot
	if err := json.NewDecoder(resp.Body).Decode(&snap); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return snap
}

func TestStartStepSnapshot(t *testing.T) {
	srv, _ := newServer(t)

	snap := decodeSnapshot(t, postJSON(t, srv.URL+"/api/run/start", startRequest{Scenario: "single_ample"}))
	if snap.Tick != 0 || snap.Scenario != "single_ample" {
		t.Fatalf("initial snapshot = tick %d scenario %q", snap.Tick, snap.Scenario)
	}
	if len(snap.Vehicles) != 1 || len(snap.Stations) != 2 {
		t.Fatalf("snapshot has %d vehicles, %d stations", len(snap.Vehicles), len(snap.Stations))
	}

	snap = decodeSnapshot(t, postJSON(t, srv.URL+"/api/run/step", struct{}{}))
	if snap.Tick != 1 {
		t.Fatalf("tick after step = %d, want 1", snap.Tick)
	}

	resp, err := http.Get(srv.URL + "/api/run/snapshot")
	if err != nil {
		t.Fatalf("get snapshot: %v", err)
	}
	snap = decodeSnapshot(t, resp)
	if snap.Tick != 1 {
		t.Fatalf("snapshot tick = %d, want 1", snap.Tick)
	}
}

func TestStepWithoutRunConflicts(t *testing.T) {
	srv, _ := newServer(t)
	resp := postJSON(t, srv.URL+"/api/run/step", struct{}{})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("status = %d, want 409", resp.StatusCode)
	}
}

func TestStartUnknownScenario(t *testing.T) {
	srv, _ := newServer(t)
	resp := postJSON(t, srv.URL+"/api/run/start", startRequest{Scenario: "nope"})
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusOK {
		t.Fatalf("unknown scenario accepted")
	}
}

func TestRunUntilAndReset(t *testing.T) {
	srv, _ := newServer(t)
	decodeSnapshot(t, postJSON(t, srv.URL+"/api/run/start", startRequest{Scenario: "single_ample"}))

	snap := decodeSnapshot(t, postJSON(t, srv.URL+"/api/run/until", map[string]int{"max_ticks": 10}))
	if snap.Tick != 10 {
		t.Fatalf("tick after run_until = %d, want 10", snap.Tick)
	}

	snap = decodeSnapshot(t, postJSON(t, srv.URL+"/api/run/reset", struct{}{}))
	if snap.Tick != 0 {
		t.Fatalf("tick after reset = %d, want 0", snap.Tick)
	}
}

func TestRunToCompletionOverHTTP(t *testing.T) {
	srv, _ := newServer(t)
	decodeSnapshot(t, postJSON(t, srv.URL+"/api/run/start", startRequest{Scenario: "single_ample"}))
	snap := decodeSnapshot(t, postJSON(t, srv.URL+"/api/run/until", map[string]int{"max_ticks": 300}))
	if !snap.Done || snap.Reason != sim.ReasonCompleted {
		t.Fatalf("run not completed: done %v reason %v", snap.Done, snap.Reason)
	}
}

func TestScenarioList(t *testing.T) {
	srv, _ := newServer(t)
	resp, err := http.Get(srv.URL + "/api/scenarios")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	var names []string
	if err := json.NewDecoder(resp.Body).Decode(&names); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(names) == 0 {
		t.Fatalf("no scenarios listed")
	}
}

func TestInlineScenarioStart(t *testing.T) {
	srv, _ := newServer(t)
	inline := &sim.Scenario{
		Name: "inline",
		Map: `.....C
......
E.....`,
		Capacities: []int{1},
		Vehicles:   []sim.VehicleDef{{X: 1, Y: 1, Battery: 50}},
		Params:     sim.Params{MaxSteps: 50},
	}
	snap := decodeSnapshot(t, postJSON(t, srv.URL+"/api/run/start", startRequest{Inline: inline}))
	if snap.Scenario != "inline" {
		t.Fatalf("scenario = %q", snap.Scenario)
	}
}
