// Package config loads and validates the service configuration from a JSON
// or YAML file, with environment overrides.
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

	"github.com/kilianp07/hems/core/coordinator"
	"github.com/kilianp07/hems/core/executor"
	"github.com/kilianp07/hems/core/metrics"
	"github.com/kilianp07/hems/core/model"
	"github.com/kilianp07/hems/core/optimizer"
	"github.com/kilianp07/hems/infra/mqtt"
)

type Config struct {
	Optimizer optimizer.Config   `json:"optimizer"`
	Planner   coordinator.Config `json:"planner"`
	Battery   model.BatteryState `json:"battery"`
	EV        model.EVState      `json:"ev"`
	Modes     executor.ModeMap   `json:"modes"`
	Executor  ExecutorConfig     `json:"executor"`
	MQTT      mqtt.Config        `json:"mqtt"`
	Metrics   metrics.Config     `json:"metrics"`
	Storage   StorageConfig      `json:"storage"`
}

// ExecutorConfig tunes the schedule execution loop.
type ExecutorConfig struct {
	TickSeconds int `json:"tick_seconds"`
}

func (c *ExecutorConfig) SetDefaults() {
	if c.TickSeconds <= 0 {
		c.TickSeconds = 60
	}
}

// StorageConfig selects the schedule store backend.
type StorageConfig struct {
	Backend string `json:"backend"` // "memory" or "sqlite"
	Path    string `json:"path"`    // sqlite database file
}

func (c *StorageConfig) SetDefaults() {
	if c.Backend == "" {
		c.Backend = "memory"
	}
}

func (c StorageConfig) Validate() error {
	switch c.Backend {
	case "memory":
		return nil
	case "sqlite":
		if c.Path == "" {
			return fmt.Errorf("storage.path is required for the sqlite backend")
		}
		return nil
	default:
		return fmt.Errorf("unsupported storage backend: %s", c.Backend)
	}
}

// Load reads the file at path and applies HEMS_* environment overrides.
// "HEMS_MQTT__BROKER" overrides "mqtt.broker".
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
	if err := k.Load(env.Provider("HEMS_", "__", func(s string) string {
		s = strings.TrimPrefix(strings.ToLower(s), "hems_")
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, err
	}
	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, err
	}
	cfg.Optimizer.SetDefaults()
	cfg.Planner.SetDefaults()
	cfg.Executor.SetDefaults()
	cfg.Storage.SetDefaults()
	cfg.MQTT.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks all sections.
func (c Config) Validate() error {
	if err := c.Optimizer.Validate(); err != nil {
		return fmt.Errorf("optimizer: %w", err)
	}
	if err := c.Battery.Validate(); err != nil {
		return fmt.Errorf("battery: %w", err)
	}
	if err := c.EV.Validate(); err != nil {
		return fmt.Errorf("ev: %w", err)
	}
	if err := c.MQTT.Validate(); err != nil {
		return fmt.Errorf("mqtt: %w", err)
	}
	if err := c.Storage.Validate(); err != nil {
		return fmt.Errorf("storage: %w", err)
	}
	return nil
}
