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

	"github.com/kilianp07/chargeplan/core/geo"
	"github.com/kilianp07/chargeplan/infra/llm"
	"github.com/kilianp07/chargeplan/infra/metrics"
	"github.com/kilianp07/chargeplan/infra/mqtt"
	"github.com/kilianp07/chargeplan/infra/route"
	"github.com/kilianp07/chargeplan/infra/store/sqlite"
)

// Config is the root configuration of the service.
type Config struct {
	HTTP    HTTPConfig     `json:"http"`
	Planner PlannerConfig  `json:"planner"`
	Geo     geo.Config     `json:"geo"`
	Route   route.Config   `json:"route"`
	LLM     llm.Config     `json:"llm"`
	Store   sqlite.Config  `json:"store"`
	Metrics metrics.Config `json:"metrics"`
	MQTT    mqtt.Config    `json:"mqtt"`
}

// HTTPConfig sets the API listen address.
type HTTPConfig struct {
	Addr string `json:"addr"`
}

// SetDefaults fills the stock listen address.
func (c *HTTPConfig) SetDefaults() {
	if c.Addr == "" {
		c.Addr = ":8080"
	}
}

// PlannerConfig tunes the planning pipeline.
type PlannerConfig struct {
	// CandidateLimit is how many nearby stations are ranked per run.
	CandidateLimit int `json:"candidateLimit"`
	// ColorBands holds the "low,high" minute thresholds for the
	// green/amber/red classification. Malformed values fall back to
	// the built-in defaults at use sites.
	ColorBands string `json:"colorBands"`
}

// SetDefaults applies sane defaults.
func (c *PlannerConfig) SetDefaults() {
	if c.CandidateLimit <= 0 {
		c.CandidateLimit = 6
	}
	if c.ColorBands == "" {
		c.ColorBands = "10,25"
	}
}

// Validate checks mandatory fields.
func (c PlannerConfig) Validate() error {
	if c.CandidateLimit < 1 {
		return fmt.Errorf("candidateLimit must be positive")
	}
	return nil
}

// Load reads the configuration file at path, applying K_ environment
// overrides on top (K_PLANNER__COLORBANDS=5,20 overrides planner.colorBands).
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
	// Optional environment overrides. The callback emits dotted keys, so
	// the provider delimiter must be "." for them to nest.
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
	cfg.applyDefaults()
	if err := cfg.Planner.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	var cfg Config
	cfg.applyDefaults()
	return &cfg
}

func (c *Config) applyDefaults() {
	c.HTTP.SetDefaults()
	c.Planner.SetDefaults()
	c.Geo.SetDefaults()
	c.Route.SetDefaults()
	c.LLM.SetDefaults()
	c.Store.SetDefaults()
	c.Metrics.SetDefaults()
	c.MQTT.SetDefaults()
}
