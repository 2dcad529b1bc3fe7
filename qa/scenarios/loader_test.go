package scenarios

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadScenarioFile(t *testing.T) {
	data := `name: custom
description: small custom run
map: |-
  .....C
  ......
  E.....
capacities: [2]
vehicles:
  - {x: 1, y: 1, battery: 25}
  - {x: 4, y: 1, battery: 40, behavior: tit_for_tat}
params:
  drain_per_step: 0.2
  charge_per_step: 3
  max_steps: 120
  seed: 7
expected:
  completed: 2
  max_ticks: 120
`
	path := filepath.Join(t.TempDir(), "custom.yaml")
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	sc, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if sc.Name != "custom" || len(sc.Vehicles) != 2 {
		t.Fatalf("scenario = %+v", sc)
	}
	if sc.Vehicles[1].Behavior != "tit_for_tat" {
		t.Fatalf("behavior = %q", sc.Vehicles[1].Behavior)
	}
	if sc.Params.DrainPerStep != 0.2 || sc.Params.MaxSteps != 120 || sc.Params.Seed != 7 {
		t.Fatalf("params = %+v", sc.Params)
	}
	if sc.Expected == nil || sc.Expected.Completed != 2 {
		t.Fatalf("expected = %+v", sc.Expected)
	}
}

func TestLoadScenarioFileInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("name: broken\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatalf("expected validation error for scenario without map")
	}
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}
