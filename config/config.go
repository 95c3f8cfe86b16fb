package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/kilianp07/derval/core/metrics"
	"github.com/kilianp07/derval/core/scenario"
	"github.com/kilianp07/derval/infra/monitoring"
	"github.com/kilianp07/derval/infra/mqtt"
)

// Config is the application configuration.
type Config struct {
	Scenario scenario.Config   `json:"scenario"`
	Data     DataConfig        `json:"data"`
	Services []PluginConfig    `json:"services"`
	Fleet    []PluginConfig    `json:"resources"`
	Metrics  metrics.Config    `json:"metrics"`
	MQTT     mqtt.Config       `json:"mqtt"`
	Output   OutputConfig      `json:"output"`
	Logging  LoggingConfig     `json:"logging"`
	API      APIConfig         `json:"api"`
	Prices   []PriceFeedConfig `json:"prices"`

	Sentry monitoring.SentryConfig `json:"sentry"`
}

// Load reads the YAML or JSON file at path, applies K_ prefixed environment
// overrides, then defaults and validation.
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
	// Optional environment overrides
	if err := k.Load(env.Provider("K_", ".", func(s string) string {
		s = strings.TrimPrefix(strings.ToLower(s), "k_")
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, err
	}
	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, err
	}
	cfg.resolvePaths(filepath.Dir(path))
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// SetDefaults applies defaults to every section.
func (c *Config) SetDefaults() {
	c.Scenario.SetDefaults()
	c.Output.SetDefaults()
	c.Logging.SetDefaults()
	c.API.SetDefaults()
	for i := range c.Prices {
		c.Prices[i].SetDefaults()
	}
}

// Validate checks every section.
func (c Config) Validate() error {
	if err := c.Scenario.Validate(); err != nil {
		return err
	}
	if err := c.Data.Validate(); err != nil {
		return err
	}
	if len(c.Services) == 0 {
		return errors.New("at least one service is required")
	}
	for i, s := range c.Services {
		if s.Type == "" {
			return fmt.Errorf("services[%d]: type is required", i)
		}
	}
	for i, r := range c.Fleet {
		if r.Type == "" {
			return fmt.Errorf("resources[%d]: type is required", i)
		}
	}
	for _, p := range c.Prices {
		if err := p.Validate(); err != nil {
			return err
		}
	}
	if err := c.Output.Validate(); err != nil {
		return err
	}
	return c.Logging.Validate()
}

// resolvePaths makes relative data paths relative to the config file.
func (c *Config) resolvePaths(dir string) {
	for _, p := range []*string{&c.Data.TimeSeries, &c.Data.Monthly, &c.Data.Fleet, &c.API.History} {
		if *p != "" && !filepath.IsAbs(*p) {
			*p = filepath.Join(dir, *p)
		}
	}
}
