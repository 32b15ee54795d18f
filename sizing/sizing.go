// Package sizing converts a trade intent plus account state into an
// order quantity. Methods form a closed set dispatched by tag; adding
// a method means extending the switch in Size, on purpose.
package sizing

import (
	"errors"
	"fmt"
	"math"
)

// Kind tags a sizing method.
type Kind string

const (
	Fixed         Kind = "fixed"
	PercentEquity Kind = "percent_equity"
	Kelly         Kind = "kelly"
	ATRMultiple   Kind = "atr_multiple"
)

// Method is a tagged variant: Kind selects the algorithm, the

// remaining fields parameterize it. Unused fields are ignored.
type Method struct {
	Kind Kind `json:"kind" yaml:"kind"`

	// Fixed
	Quantity float64 `json:"quantity,omitempty" yaml:"quantity,omitempty"`

	// PercentEquity and ATRMultiple
	RiskPct float64 `json:"risk_pct,omitempty" yaml:"risk_pct,omitempty"`

	// Kelly
	WinRate  float64 `json:"win_rate,omitempty" yaml:"win_rate,omitempty"`
	AvgWin   float64 `json:"avg_win,omitempty" yaml:"avg_win,omitempty"`
	AvgLoss  float64 `json:"avg_loss,omitempty" yaml:"avg_loss,omitempty"`
	Fraction float64 `json:"fraction,omitempty" yaml:"fraction,omitempty"`

	// ATRMultiple
	ATRMultiplier float64 `json:"atr_multiplier,omitempty" yaml:"atr_multiplier,omitempty"`
}

// Input is the account and trade context a method sizes against.
type Input struct {
	Equity     float64
	EntryPrice float64
	StopLoss   float64 // 0 means no stop attached

	// Volatility context for the cross-cutting adjustment; both zero
	// when unavailable.
	ATR    float64
	AvgATR float64
}

var (
	// ErrZeroRiskPerUnit: entry equals stop, so risk-based division is
	// impossible. Callers must treat this as "cannot size", never as
	// quantity zero by accident.
	ErrZeroRiskPerUnit = errors.New("zero risk per unit: entry price equals stop loss")

	ErrNoStopLoss = errors.New("sizing method requires a stop loss")
)

// Size computes a whole, non-negative quantity. Configuration problems
// (negative percentages, bad Kelly stats) are errors, not zero sizes.
func Size(m Method, in Input) (int64, error) {
	if in.EntryPrice <= 0 {
		return 0, fmt.Errorf("entry price must be positive, got %v", in.EntryPrice)
	}
	if in.Equity <= 0 {
		return 0, fmt.Errorf("equity must be positive, got %v", in.Equity)
	}

	var qty float64

	switch m.Kind {
	case Fixed:
		if m.Quantity < 0 {
			return 0, fmt.Errorf("fixed quantity must be non-negative, got %v", m.Quantity)
		}
		qty = m.Quantity

	case PercentEquity:
		if m.RiskPct <= 0 || m.RiskPct > 1 {
			return 0, fmt.Errorf("risk_pct must be in (0, 1], got %v", m.RiskPct)
		}
		if in.StopLoss <= 0 {
			return 0, ErrNoStopLoss
		}
		riskPerUnit := math.Abs(in.EntryPrice - in.StopLoss)
		if riskPerUnit == 0 {
			return 0, ErrZeroRiskPerUnit
		}
		qty = in.Equity * m.RiskPct / riskPerUnit

	case Kelly:
		f, err := kellyFraction(m)
		if err != nil {
			return 0, err
		}
		qty = in.Equity * f / in.EntryPrice

	case ATRMultiple:
		if m.RiskPct <= 0 || m.RiskPct > 1 {
			return 0, fmt.Errorf("risk_pct must be in (0, 1], got %v", m.RiskPct)
		}
		mult := m.ATRMultiplier
		if mult == 0 {
			mult = 1
		}
		if in.ATR <= 0 {
			return 0, fmt.Errorf("atr_multiple sizing requires a positive ATR, got %v", in.ATR)
		}
		riskPerUnit := in.ATR * mult
		qty = in.Equity * m.RiskPct / riskPerUnit

	default:
		return 0, fmt.Errorf("unknown sizing method %q", m.Kind)
	}

	qty = adjustForVolatility(qty, in.ATR, in.AvgATR)

	if qty < 0 {
		qty = 0
	}
	return int64(math.Floor(qty)), nil
}

// kellyFraction computes f = (p*b - q) / b with b = avgWin/avgLoss,
// clamped at zero (no shorting on a negative edge) and scaled by the
// configured fractional-Kelly multiplier (default one-half).
func kellyFraction(m Method) (float64, error) {
	if m.WinRate <= 0 || m.WinRate >= 1 {
		return 0, fmt.Errorf("kelly win_rate must be in (0, 1), got %v", m.WinRate)
	}
	if m.AvgWin <= 0 || m.AvgLoss <= 0 {
		return 0, fmt.Errorf("kelly avg_win and avg_loss must be positive, got %v and %v", m.AvgWin, m.AvgLoss)
	}

	b := m.AvgWin / m.AvgLoss
	f := (m.WinRate*b - (1 - m.WinRate)) / b
	if f < 0 {
		f = 0
	}

	fraction := m.Fraction
	if fraction == 0 {
		fraction = 0.5
	}
	return f * fraction, nil
}

// adjustForVolatility scales the quantity down when current volatility
// runs above its trailing average. The factor is floored at 0.5 so a
// volatility spike cannot zero out sizing entirely.
func adjustForVolatility(qty, atr, avgATR float64) float64 {
	if atr <= 0 || avgATR <= 0 || atr <= avgATR {
		return qty
	}
	factor := avgATR / atr
	if factor < 0.5 {
		factor = 0.5
	}
	return qty * factor
}
