package risk

import "fmt"

// Limits are the configured risk boundaries. Percentages are
// fractions (0.02 means 2%). A zero value disables the optional
// limits noted below.
type Limits struct {
	MaxPositionSizePct  float64 `json:"max_position_size_pct" yaml:"max_position_size_pct"`
	MaxRiskPerTradePct  float64 `json:"max_risk_per_trade_pct" yaml:"max_risk_per_trade_pct"`
	MaxRiskPerDayPct    float64 `json:"max_risk_per_day_pct" yaml:"max_risk_per_day_pct"`
	MaxDailyDrawdownPct float64 `json:"max_daily_drawdown_pct" yaml:"max_daily_drawdown_pct"`

	// MaxDailyLoss is an absolute currency amount; 0 disables it.
	MaxDailyLoss float64 `json:"max_daily_loss" yaml:"max_daily_loss"`

	// MaxConsecutiveLosses trips the breaker when the loss streak
	// reaches it; 0 disables it.
	MaxConsecutiveLosses int `json:"max_consecutive_losses" yaml:"max_consecutive_losses"`

	MaxOpenPositions   int     `json:"max_open_positions" yaml:"max_open_positions"`
	MaxSingleSymbolPct float64 `json:"max_single_symbol_pct" yaml:"max_single_symbol_pct"`

	// MaxATRMultiplier gates entries when current volatility runs this
	// far above its trailing average; 0 disables the gate.
	MaxATRMultiplier float64 `json:"max_atr_multiplier" yaml:"max_atr_multiplier"`

	// EstimatedCommission is added to the capital-sufficiency check.
	EstimatedCommission float64 `json:"estimated_commission" yaml:"estimated_commission"`
}

// DefaultLimits are conservative boundaries suitable for simulation.
func DefaultLimits() Limits {
	return Limits{
		MaxPositionSizePct:   0.10,
		MaxRiskPerTradePct:   0.02,
		MaxRiskPerDayPct:     0.06,
		MaxDailyDrawdownPct:  0.05,
		MaxConsecutiveLosses: 5,
		MaxOpenPositions:     10,
		MaxSingleSymbolPct:   0.20,
		MaxATRMultiplier:     3.0,
	}
}

// Validate rejects limit sets that could never approve a trade or
// that are outside their meaningful ranges.
func (l Limits) Validate() error {
	type pct struct {
		name string
		v    float64
	}
	for _, p := range []pct{
		{"max_position_size_pct", l.MaxPositionSizePct},
		{"max_risk_per_trade_pct", l.MaxRiskPerTradePct},
		{"max_risk_per_day_pct", l.MaxRiskPerDayPct},
		{"max_daily_drawdown_pct", l.MaxDailyDrawdownPct},
		{"max_single_symbol_pct", l.MaxSingleSymbolPct},
	} {
		if p.v <= 0 || p.v > 1 {
			return fmt.Errorf("risk limits: %s must be in (0, 1], got %v", p.name, p.v)
		}
	}
	if l.MaxDailyLoss < 0 {
		return fmt.Errorf("risk limits: max_daily_loss must be non-negative, got %v", l.MaxDailyLoss)
	}
	if l.MaxConsecutiveLosses < 0 {
		return fmt.Errorf("risk limits: max_consecutive_losses must be non-negative, got %d", l.MaxConsecutiveLosses)
	}
	if l.MaxOpenPositions <= 0 {
		return fmt.Errorf("risk limits: max_open_positions must be positive, got %d", l.MaxOpenPositions)
	}
	if l.MaxATRMultiplier < 0 {
		return fmt.Errorf("risk limits: max_atr_multiplier must be non-negative, got %v", l.MaxATRMultiplier)
	}
	if l.EstimatedCommission < 0 {
		return fmt.Errorf("risk limits: estimated_commission must be non-negative, got %v", l.EstimatedCommission)
	}
	return nil
}
