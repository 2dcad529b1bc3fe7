// Package config loads service configuration from YAML or JSON files with
// environment overrides.
package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	coremetrics "github.com/kilianp07/robocharge/core/metrics"
	"github.com/kilianp07/robocharge/core/sim"
	"github.com/kilianp07/robocharge/infra/mqtt"
)

// ServerConfig holds the control-surface HTTP settings.
type ServerConfig struct {
	Addr string `json:"addr"`
}

// SetDefaults applies sane defaults.
func (c *ServerConfig) SetDefaults() {
	if c.Addr == "" {
		c.Addr = ":8080"
	}
}

// Config is the root configuration. A run takes either an inline scenario
// or the name of a preset.
type Config struct {
	Scenario     *sim.Scenario      `json:"scenario"`
	ScenarioName string             `json:"scenario_name"`
	Metrics      coremetrics.Config `json:"metrics"`
	MQTT         mqtt.Config        `json:"mqtt"`
	Server       ServerConfig       `json:"server"`
}

// Load reads the configuration file, applying RC_-prefixed environment
// overrides (RC_SERVER__ADDR=:9000 overrides server.addr).
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	ext := strings.ToLower(filepath.Ext(path))
	var parser koanf.Parser
	switch ext {
	case ".yaml", ".yml":
		parser = yaml.Parser()
	case ".json":
		parser = json.Parser()
	default:
		return nil, fmt.Errorf("unsupported config format: %s", ext)
	}
	if err := k.Load(file.Provider(path), parser); err != nil {
		return nil, err
	}
	if err := k.Load(env.Provider("RC_", ".", func(s string) string {
		s = strings.TrimPrefix(strings.ToLower(s), "rc_")
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, err
	}
	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, err
	}
	cfg.Server.SetDefaults()
	cfg.Metrics.SetDefaults()
	cfg.MQTT.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks cross-field consistency.
func (c *Config) Validate() error {
	if c.Scenario != nil && c.ScenarioName != "" {
		return fmt.Errorf("scenario and scenario_name are mutually exclusive")
	}
	if c.Scenario != nil {
		if err := c.Scenario.Validate(); err != nil {
			return err
		}
	}
	if c.MQTT.Enabled && c.MQTT.Broker == "" {
		return fmt.Errorf("mqtt.broker is required when mqtt is enabled")
	}
	return nil
}
