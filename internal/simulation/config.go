package simulation

import (
	"log"
	"os"
	"sync"

	"gopkg.in/yaml.v3"
)

// SlippageConfig controls the deviation between reference and execution price.
type SlippageConfig struct {
	Enabled bool    `yaml:"enabled" json:"enabled"`
	Mode    string  `yaml:"mode" json:"mode"` // percentage, fixed, random
	Value   float64 `yaml:"value" json:"value"`
}

// CommissionTier is one band of a tiered fee schedule. MaxValue nil means the
// band is unbounded and terminates the walk.
type CommissionTier struct {
	MaxValue *float64 `yaml:"max_value" json:"max_value"`
	Rate     float64  `yaml:"rate" json:"rate"`
}

// CommissionConfig controls trading fees.
type CommissionConfig struct {
	Enabled  bool             `yaml:"enabled" json:"enabled"`
	Mode     string           `yaml:"mode" json:"mode"` // percentage, fixed, tiered
	Rate     float64          `yaml:"rate" json:"rate"`
	Minimum  float64          `yaml:"minimum" json:"minimum"`
	PerTrade float64          `yaml:"per_trade" json:"per_trade"`
	Tiers    []CommissionTier `yaml:"tiers" json:"tiers,omitempty"`
}

// PartialFillConfig controls liquidity simulation for large orders.
type PartialFillConfig struct {
	Enabled     bool    `yaml:"enabled" json:"enabled"`
	Threshold   float64 `yaml:"threshold" json:"threshold"`
	MinFillRate float64 `yaml:"min_fill_rate" json:"min_fill_rate"`
	MaxFillRate float64 `yaml:"max_fill_rate" json:"max_fill_rate"`
}

// LatencyConfig controls the simulated venue round-trip delay.
type LatencyConfig struct {
	Enabled bool `yaml:"enabled" json:"enabled"`
	MinMs   int  `yaml:"min_ms" json:"min_ms"`
	MaxMs   int  `yaml:"max_ms" json:"max_ms"`
}

// Config is the immutable simulation parameter set threaded through the
// fill calculator. Preset names which named preset produced it ("" = custom).
type Config struct {
	Slippage    SlippageConfig    `json:"slippage"`
	Commission  CommissionConfig  `json:"commission"`
	PartialFill PartialFillConfig `json:"partial_fill"`
	Latency     LatencyConfig     `json:"latency"`
	Preset      string            `json:"preset,omitempty"`
}

// DefaultConfig returns the compiled-in parameter set. Every block has sane
// values so a missing or broken config file never prevents execution.
func DefaultConfig() Config {
	return Config{
		Slippage: SlippageConfig{
			Enabled: true,
			Mode:    "percentage",
			Value:   0.05,
		},
		Commission: CommissionConfig{
			Enabled:  true,
			Mode:     "percentage",
			Rate:     0.001,
			Minimum:  1.0,
			PerTrade: 5.0,
		},
		PartialFill: PartialFillConfig{
			Enabled:     false,
			Threshold:   10000,
			MinFillRate: 0.3,
			MaxFillRate: 1.0,
		},
		Latency: LatencyConfig{
			Enabled: false,
			MinMs:   50,
			MaxMs:   200,
		},
	}
}

// blockSet is one group of optional config blocks as they appear in the file.
// Pointers distinguish "absent" from "zero" so merging is per block.
type blockSet struct {
	Slippage    *SlippageConfig    `yaml:"slippage"`
	Commission  *CommissionConfig  `yaml:"commission"`
	PartialFill *PartialFillConfig `yaml:"partial_fill"`
	Latency     *LatencyConfig     `yaml:"latency"`
}

type document struct {
	Simulation struct {
		UsePreset string `yaml:"use_preset"`
		blockSet  `yaml:",inline"`
	} `yaml:"simulation"`
	Presets map[string]blockSet `yaml:"presets"`
}

// merge overlays the blocks present in bs on the defaults.
func (bs blockSet) merge() Config {
	cfg := DefaultConfig()
	if bs.Slippage != nil {
		cfg.Slippage = *bs.Slippage
	}
	if bs.Commission != nil {
		cfg.Commission = *bs.Commission
	}
	if bs.PartialFill != nil {
		cfg.PartialFill = *bs.PartialFill
	}
	if bs.Latency != nil {
		cfg.Latency = *bs.Latency
	}
	return cfg
}

// LoadConfig reads the simulation config file. A named preset that exists
// replaces all four blocks; a missing preset falls back to the document's own
// blocks. Any read or parse failure is non-fatal and yields the defaults.
func LoadConfig(path string) Config {
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Printf("simulation config: read %s failed: %v, using defaults", path, err)
		}
		return DefaultConfig()
	}

	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		log.Printf("simulation config: parse %s failed: %v, using defaults", path, err)
		return DefaultConfig()
	}

	if name := doc.Simulation.UsePreset; name != "" {
		if preset, ok := doc.Presets[name]; ok {
			cfg := preset.merge()
			cfg.Preset = name
			log.Printf("simulation config: using preset %q", name)
			return cfg
		}
		log.Printf("simulation config: preset %q not found, using custom settings", name)
	}

	return doc.Simulation.blockSet.merge()
}

// Loader holds the last successfully loaded config behind a lock. It is the
// single long-lived holder at the process boundary; the engine itself only
// sees immutable Config values.
type Loader struct {
	path   string
	mu     sync.RWMutex
	cfg    *Config
	loaded bool
}

func NewLoader(path string) *Loader {
	return &Loader{path: path}
}

// Get returns the current config, lazily loading on first use.
func (l *Loader) Get() Config {
	l.mu.RLock()
	if l.loaded {
		cfg := *l.cfg
		l.mu.RUnlock()
		return cfg
	}
	l.mu.RUnlock()
	return l.Reload()
}

// Reload re-reads the config file and swaps in the result.
func (l *Loader) Reload() Config {
	cfg := LoadConfig(l.path)
	l.mu.Lock()
	l.cfg = &cfg
	l.loaded = true
	l.mu.Unlock()
	return cfg
}

// Set replaces the current config directly, bypassing the file. Used by tests
// and by callers that construct configs programmatically.
func (l *Loader) Set(cfg Config) {
	l.mu.Lock()
	l.cfg = &cfg
	l.loaded = true
	l.mu.Unlock()
}

// Path returns the config file path backing this loader.
func (l *Loader) Path() string {
	return l.path
}
