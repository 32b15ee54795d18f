// Package config loads and validates the full run configuration.
// Files may be YAML or JSON; YAML is tried first.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/rgallant/tradesim/broker"
	"github.com/rgallant/tradesim/indicators"
	"github.com/rgallant/tradesim/risk"
	"github.com/rgallant/tradesim/sizing"
)

// Config represents the complete run configuration.
type Config struct {
	Data       DataConfig        `json:"data" yaml:"data"`
	Broker     broker.Config     `json:"broker" yaml:"broker"`
	Indicators indicators.Config `json:"indicators" yaml:"indicators"`
	Signal     SignalConfig      `json:"signal" yaml:"signal"`
	Sizing     sizing.Method     `json:"sizing" yaml:"sizing"`
	Risk       risk.Limits       `json:"risk" yaml:"risk"`
	Execution  ExecutionConfig   `json:"execution" yaml:"execution"`
	Journal    JournalConfig     `json:"journal" yaml:"journal"`
	Metrics    MetricsConfig     `json:"metrics" yaml:"metrics"`
}

// DataConfig points at the bar source.
type DataConfig struct {
	Dir      string   `json:"dir" yaml:"dir"`
	Symbols  []string `json:"symbols" yaml:"symbols"`
	Interval string   `json:"interval" yaml:"interval"`

	// Optional RFC3339 or YYYY-MM-DD bounds; empty means unbounded.
	Start string `json:"start,omitempty" yaml:"start,omitempty"`
	End   string `json:"end,omitempty" yaml:"end,omitempty"`
}

// SignalConfig tunes the scoring signal generator.
type SignalConfig struct {
	RSIOverbought       float64 `json:"rsi_overbought" yaml:"rsi_overbought"`
	RSIOversold         float64 `json:"rsi_oversold" yaml:"rsi_oversold"`
	RSIStrongOverbought float64 `json:"rsi_strong_overbought" yaml:"rsi_strong_overbought"`
	RSIStrongOversold   float64 `json:"rsi_strong_oversold" yaml:"rsi_strong_oversold"`
	Threshold           int     `json:"threshold" yaml:"threshold"`
}

// ExecutionConfig tunes stop derivation and order shaping.
type ExecutionConfig struct {
	Strategy string `json:"strategy" yaml:"strategy"`

	// ATRStopMultiplier places the stop this many ATRs from entry.
	ATRStopMultiplier float64 `json:"atr_stop_multiplier" yaml:"atr_stop_multiplier"`

	// StopLossPct is the fallback stop distance when ATR is not ready.
	StopLossPct float64 `json:"stop_loss_pct" yaml:"stop_loss_pct"`

	// RewardRisk sets the take-profit as a multiple of stop distance.
	RewardRisk float64 `json:"reward_risk" yaml:"reward_risk"`

	DryRun bool `json:"dry_run" yaml:"dry_run"`
}

// JournalConfig selects the audit backend.
type JournalConfig struct {
	Type       string `json:"type" yaml:"type"` // "csv", "sqlite", or "none"
	OrdersFile string `json:"orders_file,omitempty" yaml:"orders_file,omitempty"`
	TradesFile string `json:"trades_file,omitempty" yaml:"trades_file,omitempty"`
	EquityFile string `json:"equity_file,omitempty" yaml:"equity_file,omitempty"`
	DBPath     string `json:"db_path,omitempty" yaml:"db_path,omitempty"`
}

// MetricsConfig parameterizes the performance report.
type MetricsConfig struct {
	RiskFreeRate       float64 `json:"risk_free_rate" yaml:"risk_free_rate"`
	TradingDaysPerYear int     `json:"trading_days_per_year" yaml:"trading_days_per_year"`
	VaRConfidence      float64 `json:"var_confidence" yaml:"var_confidence"`
}

// LoadFromFile loads configuration from a file. YAML is tried first,
// then JSON, so either format works regardless of extension.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		if jerr := json.Unmarshal(data, cfg); jerr != nil {
			return nil, fmt.Errorf("parse config (tried YAML and JSON): %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// SaveToFile writes the configuration, choosing the format by
// extension (.yaml/.yml for YAML, anything else JSON).
func (c *Config) SaveToFile(path string) error {
	var data []byte
	var err error

	if strings.HasSuffix(path, ".yaml") || strings.HasSuffix(path, ".yml") {
		data, err = yaml.Marshal(c)
	} else {
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}

// Validate checks the configuration is coherent.
func (c *Config) Validate() error {
	if len(c.Data.Symbols) == 0 {
		return fmt.Errorf("data.symbols is required")
	}
	if c.Data.Dir == "" {
		return fmt.Errorf("data.dir is required")
	}

	if c.Broker.Kind == "" {
		return fmt.Errorf("broker.kind is required")
	}
	if c.Broker.InitialCash <= 0 {
		return fmt.Errorf("broker.initial_cash must be positive")
	}
	if c.Broker.SlippageBPS < 0 || c.Broker.SpreadBPS < 0 {
		return fmt.Errorf("broker slippage_bps and spread_bps must be non-negative")
	}
	if c.Broker.CommissionPerTrade < 0 {
		return fmt.Errorf("broker.commission_per_trade must be non-negative")
	}

	if c.Signal.Threshold <= 0 {
		return fmt.Errorf("signal.threshold must be positive")
	}
	if c.Signal.RSIOversold >= c.Signal.RSIOverbought {
		return fmt.Errorf("signal.rsi_oversold must be below rsi_overbought")
	}

	if c.Sizing.Kind == "" {
		return fmt.Errorf("sizing.kind is required")
	}
	if c.Sizing.RiskPct < 0 {
		return fmt.Errorf("sizing.risk_pct must be non-negative")
	}

	if err := c.Risk.Validate(); err != nil {
		return err
	}

	if c.Execution.ATRStopMultiplier <= 0 {
		return fmt.Errorf("execution.atr_stop_multiplier must be positive")
	}
	if c.Execution.StopLossPct <= 0 || c.Execution.StopLossPct >= 1 {
		return fmt.Errorf("execution.stop_loss_pct must be in (0, 1)")
	}
	if c.Execution.RewardRisk <= 0 {
		return fmt.Errorf("execution.reward_risk must be positive")
	}

	switch c.Journal.Type {
	case "csv":
		if c.Journal.OrdersFile == "" || c.Journal.TradesFile == "" || c.Journal.EquityFile == "" {
			return fmt.Errorf("journal orders_file, trades_file, and equity_file required for CSV type")
		}
	case "sqlite":
		if c.Journal.DBPath == "" {
			return fmt.Errorf("journal db_path required for SQLite type")
		}
	case "none":
	default:
		return fmt.Errorf("journal.type must be 'csv', 'sqlite', or 'none'")
	}

	if c.Metrics.VaRConfidence < 0 || c.Metrics.VaRConfidence >= 1 {
		return fmt.Errorf("metrics.var_confidence must be in [0, 1)")
	}
	if c.Metrics.TradingDaysPerYear < 0 {
		return fmt.Errorf("metrics.trading_days_per_year must be non-negative")
	}

	return nil
}

// Default returns a configuration with sensible defaults.
func Default() *Config {
	return &Config{
		Data: DataConfig{
			Dir:      "./data",
			Symbols:  []string{"AAPL"},
			Interval: "1d",
		},
		Broker: broker.Config{
			Kind:               "sim",
			InitialCash:        100000,
			SlippageBPS:        5,
			SpreadBPS:          2,
			CommissionPerTrade: 1,
		},
		Indicators: indicators.DefaultConfig(),
		Signal: SignalConfig{
			RSIOverbought:       70,
			RSIOversold:         30,
			RSIStrongOverbought: 80,
			RSIStrongOversold:   20,
			Threshold:           3,
		},
		Sizing: sizing.Method{
			Kind:    sizing.PercentEquity,
			RiskPct: 0.02,
		},
		Risk: risk.DefaultLimits(),
		Execution: ExecutionConfig{
			Strategy:          "scored",
			ATRStopMultiplier: 2.0,
			StopLossPct:       0.05,
			RewardRisk:        2.0,
		},
		Journal: JournalConfig{
			Type:       "csv",
			OrdersFile: "./orders.csv",
			TradesFile: "./trades.csv",
			EquityFile: "./equity.csv",
		},
		Metrics: MetricsConfig{
			TradingDaysPerYear: 252,
			VaRConfidence:      0.95,
		},
	}
}
