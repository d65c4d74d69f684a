package simulation

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "simulation.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadConfigMissingFile(t *testing.T) {
	cfg := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoadConfigParseFailure(t *testing.T) {
	path := writeConfig(t, "simulation: [not: valid")
	cfg := LoadConfig(path)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoadConfigMergesPerBlock(t *testing.T) {
	path := writeConfig(t, `
simulation:
  slippage:
    enabled: true
    mode: fixed
    value: 0.5
`)
	cfg := LoadConfig(path)

	// Overridden block
	assert.Equal(t, SlippageConfig{Enabled: true, Mode: "fixed", Value: 0.5}, cfg.Slippage)
	// Untouched blocks keep defaults
	assert.Equal(t, DefaultConfig().Commission, cfg.Commission)
	assert.Equal(t, DefaultConfig().PartialFill, cfg.PartialFill)
	assert.Equal(t, DefaultConfig().Latency, cfg.Latency)
	assert.Empty(t, cfg.Preset)
}

func TestLoadConfigPresetWinsOverCustom(t *testing.T) {
	path := writeConfig(t, `
simulation:
  use_preset: ideal
  slippage:
    enabled: true
    mode: fixed
    value: 9.9
presets:
  ideal:
    slippage:
      enabled: false
      mode: percentage
      value: 0
    commission:
      enabled: false
      mode: percentage
      rate: 0
`)
	cfg := LoadConfig(path)

	assert.Equal(t, "ideal", cfg.Preset)
	assert.False(t, cfg.Slippage.Enabled)
	assert.False(t, cfg.Commission.Enabled)
	// Blocks the preset omits fall back to defaults, not to the custom section
	assert.Equal(t, DefaultConfig().PartialFill, cfg.PartialFill)
}

func TestLoadConfigUnknownPresetFallsBackToCustom(t *testing.T) {
	path := writeConfig(t, `
simulation:
  use_preset: ghost
  latency:
    enabled: true
    min_ms: 1
    max_ms: 2
`)
	cfg := LoadConfig(path)

	assert.Empty(t, cfg.Preset)
	assert.Equal(t, LatencyConfig{Enabled: true, MinMs: 1, MaxMs: 2}, cfg.Latency)
}

func TestLoadConfigTieredNilMaxValue(t *testing.T) {
	path := writeConfig(t, `
simulation:
  commission:
    enabled: true
    mode: tiered
    tiers:
      - max_value: 10000
        rate: 0.001
      - max_value: null
        rate: 0.0005
`)
	cfg := LoadConfig(path)

	require.Len(t, cfg.Commission.Tiers, 2)
	require.NotNil(t, cfg.Commission.Tiers[0].MaxValue)
	assert.Equal(t, 10000.0, *cfg.Commission.Tiers[0].MaxValue)
	assert.Nil(t, cfg.Commission.Tiers[1].MaxValue)
}

func TestLoaderLazyGetAndReload(t *testing.T) {
	path := writeConfig(t, `
simulation:
  latency:
    enabled: true
    min_ms: 10
    max_ms: 20
`)
	loader := NewLoader(path)

	cfg := loader.Get()
	assert.True(t, cfg.Latency.Enabled)

	// Rewrite the file; Get still serves the cached config until Reload
	require.NoError(t, os.WriteFile(path, []byte(`
simulation:
  latency:
    enabled: false
    min_ms: 10
    max_ms: 20
`), 0o644))
	assert.True(t, loader.Get().Latency.Enabled)

	reloaded := loader.Reload()
	assert.False(t, reloaded.Latency.Enabled)
	assert.False(t, loader.Get().Latency.Enabled)
}

func TestLoaderSet(t *testing.T) {
	loader := NewLoader(filepath.Join(t.TempDir(), "nope.yaml"))
	cfg := DefaultConfig()
	cfg.Commission.Enabled = false
	loader.Set(cfg)

	assert.False(t, loader.Get().Commission.Enabled)
}
