// Package config loads and validates the service configuration from a YAML or
// JSON file, with environment overrides under the AID_ prefix.
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

	"github.com/Effec77/aidflow/api"
	"github.com/Effec77/aidflow/core/allocation"
	"github.com/Effec77/aidflow/core/hazard"
	coremetrics "github.com/Effec77/aidflow/core/metrics"
	"github.com/Effec77/aidflow/core/routing"
	"github.com/Effec77/aidflow/core/timing"
	"github.com/Effec77/aidflow/infra/advisory"
	"github.com/Effec77/aidflow/infra/feeds"
	"github.com/Effec77/aidflow/infra/mqtt"
	"github.com/Effec77/aidflow/infra/store"
)

// DispatchConfig bounds a single dispatch run.
type DispatchConfig struct {
	TimeoutSeconds      int `json:"timeout_seconds"`
	ZoneCacheTTLSeconds int `json:"zone_cache_ttl_seconds"`
}

// SetDefaults applies sane defaults.
func (c *DispatchConfig) SetDefaults() {
	if c.TimeoutSeconds <= 0 {
		c.TimeoutSeconds = 30
	}
	if c.ZoneCacheTTLSeconds <= 0 {
		c.ZoneCacheTTLSeconds = 30
	}
}

// Config aggregates every component's settings.
type Config struct {
	API        api.Config         `json:"api"`
	Storage    store.Config       `json:"storage"`
	MQTT       mqtt.Config        `json:"mqtt"`
	Routing    routing.Config     `json:"routing"`
	Advisory   advisory.Config    `json:"advisory"`
	Timing     timing.Config      `json:"timing"`
	Allocation allocation.Config  `json:"allocation"`
	Hazard     hazard.Config      `json:"hazard"`
	Metrics    coremetrics.Config `json:"metrics"`
	Feeds      feeds.Config       `json:"feeds"`
	Dispatch   DispatchConfig     `json:"dispatch"`
}

// Load reads the file at path, applies AID_* environment overrides
// (AID_STORAGE__PATH maps to storage.path), fills defaults and validates.
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
	if err := k.Load(env.Provider("AID_", "__", func(s string) string {
		s = strings.TrimPrefix(strings.ToLower(s), "aid_")
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, err
	}

	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	c.API.SetDefaults()
	c.Storage.SetDefaults()
	c.MQTT.SetDefaults()
	c.Routing.SetDefaults()
	c.Advisory.SetDefaults()
	c.Timing.SetDefaults()
	c.Allocation.SetDefaults()
	c.Hazard.SetDefaults()
	c.Metrics.SetDefaults()
	c.Feeds.SetDefaults()
	c.Dispatch.SetDefaults()
}

// Validate checks every section that defines constraints.
func (c *Config) Validate() error {
	if err := c.Storage.Validate(); err != nil {
		return err
	}
	if err := c.MQTT.Validate(); err != nil {
		return err
	}
	if err := c.Routing.Validate(); err != nil {
		return err
	}
	if err := c.Timing.Validate(); err != nil {
		return err
	}
	if err := c.Allocation.Validate(); err != nil {
		return err
	}
	return c.Feeds.Validate()
}
