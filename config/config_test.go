package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rgallant/tradesim/sizing"
)

func TestDefaultIsValid(t *testing.T) {
	t.Parallel()
	assert.NoError(t, Default().Validate())
}

func TestLoadYAML(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "config.yaml")
	doc := `
data:
  dir: ./bars
  symbols: [AAPL, MSFT]
  interval: 1d
broker:
  kind: sim
  initial_cash: 250000
  slippage_bps: 10
sizing:
  kind: kelly
  win_rate: 0.55
  avg_win: 200
  avg_loss: 100
journal:
  type: none
`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0644))

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, []string{"AAPL", "MSFT"}, cfg.Data.Symbols)
	assert.Equal(t, 250000.0, cfg.Broker.InitialCash)
	assert.Equal(t, 10.0, cfg.Broker.SlippageBPS)
	assert.Equal(t, sizing.Kelly, cfg.Sizing.Kind)
	assert.Equal(t, "none", cfg.Journal.Type)

	// Unset sections keep their defaults.
	assert.Equal(t, 3, cfg.Signal.Threshold)
	assert.Equal(t, 2.0, cfg.Execution.ATRStopMultiplier)
}

func TestLoadJSONFallback(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "config.json")
	doc := `{"data": {"dir": "./bars", "symbols": ["SPY"]}, "journal": {"type": "none"}}`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0644))

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"SPY"}, cfg.Data.Symbols)
}

func TestLoadRejectsGarbage(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("{{not parseable"), 0644))

	_, err := LoadFromFile(path)
	assert.Error(t, err)

	_, err = LoadFromFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestValidateRejections(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "no symbols",
			mutate:  func(c *Config) { c.Data.Symbols = nil },
			wantErr: "data.symbols",
		},
		{
			name:    "zero cash",
			mutate:  func(c *Config) { c.Broker.InitialCash = 0 },
			wantErr: "initial_cash",
		},
		{
			name:    "negative slippage",
			mutate:  func(c *Config) { c.Broker.SlippageBPS = -5 },
			wantErr: "slippage_bps",
		},
		{
			name:    "bad risk limits",
			mutate:  func(c *Config) { c.Risk.MaxRiskPerDayPct = 2 },
			wantErr: "max_risk_per_day_pct",
		},
		{
			name:    "bad stop pct",
			mutate:  func(c *Config) { c.Execution.StopLossPct = 1.5 },
			wantErr: "stop_loss_pct",
		},
		{
			name:    "unknown journal type",
			mutate:  func(c *Config) { c.Journal.Type = "parquet" },
			wantErr: "journal.type",
		},
		{
			name:    "csv journal without paths",
			mutate:  func(c *Config) { c.Journal.OrdersFile = "" },
			wantErr: "orders_file",
		},
		{
			name:    "inverted rsi levels",
			mutate:  func(c *Config) { c.Signal.RSIOversold = 75 },
			wantErr: "rsi_oversold",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestSaveRoundTrip(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	cfg := Default()
	cfg.Broker.InitialCash = 42000

	yamlPath := filepath.Join(dir, "out.yaml")
	require.NoError(t, cfg.SaveToFile(yamlPath))
	got, err := LoadFromFile(yamlPath)
	require.NoError(t, err)
	assert.Equal(t, 42000.0, got.Broker.InitialCash)

	jsonPath := filepath.Join(dir, "out.json")
	require.NoError(t, cfg.SaveToFile(jsonPath))
	got, err = LoadFromFile(jsonPath)
	require.NoError(t, err)
	assert.Equal(t, 42000.0, got.Broker.InitialCash)
}
