package config

import (
	"os"
	"path/filepath"
	"testing"
)

func write(t *testing.T, name, data string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadYAML(t *testing.T) {
	path := write(t, "config.yaml", `scenario_name: single_ample
server:
  addr: ":9001"
metrics:
  prometheus_enabled: true
  prometheus_port: ":9465"
mqtt:
  enabled: false
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	checks := []struct {
		name string
		got  any
		want any
	}{
		{"scenario name", cfg.ScenarioName, "single_ample"},
		{"server addr", cfg.Server.Addr, ":9001"},
		{"prom enabled", cfg.Metrics.PrometheusEnabled, true},
		{"prom port", cfg.Metrics.PrometheusPort, ":9465"},
		{"mqtt disabled", cfg.MQTT.Enabled, false},
	}
	for _, c := range checks {
		if c.got != c.want {
			t.Errorf("%s = %v, want %v", c.name, c.got, c.want)
		}
	}
}

func TestLoadInlineScenario(t *testing.T) {
	path := write(t, "config.json", `{
  "scenario": {
    "name": "inline",
    "map": "....C\n.....\nE....",
    "capacities": [1],
    "vehicles": [{"x": 1, "y": 0, "battery": 40}],
    "params": {"max_steps": 50}
  }
}`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Scenario == nil || cfg.Scenario.Name != "inline" {
		t.Fatalf("scenario = %+v", cfg.Scenario)
	}
	if cfg.Scenario.Params.MaxSteps != 50 {
		t.Fatalf("max_steps = %d, want 50", cfg.Scenario.Params.MaxSteps)
	}
	if cfg.Server.Addr != ":8080" {
		t.Fatalf("default server addr = %q", cfg.Server.Addr)
	}
}

func TestLoadRejectsAmbiguousScenario(t *testing.T) {
	path := write(t, "config.yaml", `scenario_name: single_ample
scenario:
  name: also-inline
  map: "E."
  vehicles:
    - {x: 1, y: 0, battery: 40}
`)
	if _, err := Load(path); err == nil {
		t.Fatalf("expected error for scenario + scenario_name")
	}
}

func TestLoadRejectsMQTTWithoutBroker(t *testing.T) {
	path := write(t, "config.yaml", `scenario_name: single_ample
mqtt:
  enabled: true
`)
	if _, err := Load(path); err == nil {
		t.Fatalf("expected error for enabled mqtt without broker")
	}
}

func TestLoadUnsupportedFormat(t *testing.T) {
	path := write(t, "config.toml", `x = 1`)
	if _, err := Load(path); err == nil {
		t.Fatalf("expected error for unsupported format")
	}
}

func TestEnvOverride(t *testing.T) {
	path := write(t, "config.yaml", `scenario_name: single_ample
server:
  addr: ":8080"
`)
	t.Setenv("RC_SERVER__ADDR", ":7070")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Addr != ":7070" {
		t.Fatalf("env override ignored, addr = %q", cfg.Server.Addr)
	}
}
