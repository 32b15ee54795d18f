// Package risk validates candidate orders against configured limits
// and runs the circuit breaker that can halt all trading. Checks run
// in a fixed order and the first failure wins, so rejection reasons
// are reproducible run to run.
package risk

import (
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"
)

// Rejection codes, stable for journaling and tests.
const (
	CodeOK            = "ok"
	CodeHalted        = "halted"
	CodePositionSize  = "position_size"
	CodeCash          = "insufficient_cash"
	CodeTradeRisk     = "risk_per_trade"
	CodeDailyRisk     = "daily_risk"
	CodeDailyDrawdown = "daily_drawdown"
	CodeMaxPositions  = "max_positions"
	CodeConcentration = "concentration"
	CodeVolatility    = "volatility"
)

// Decision is the outcome of validating one candidate order.
type Decision struct {
	Approved bool
	Code     string
	Reason   string
}

func approve() Decision {
	return Decision{Approved: true, Code: CodeOK}
}

func reject(code, format string, args ...any) Decision {
	return Decision{Code: code, Reason: fmt.Sprintf(format, args...)}
}

// OrderCandidate is the minimal view of an order the validator needs.
type OrderCandidate struct {
	Symbol   string
	Quantity float64
	Price    float64

	// StopLoss, when set, lets the per-trade risk check run.
	StopLoss *float64

	// Reduces marks orders that shrink or close an existing position;
	// those bypass the open-position and concentration caps.
	Reduces bool
}

// AccountSnapshot is the validator's view of the account at check
// time. It deliberately avoids importing the broker package: the
// validator must work identically for simulated and live accounts.
type AccountSnapshot struct {
	Cash   float64
	Equity float64

	OpenPositions int

	// SymbolExposure is the current absolute notional held in the
	// candidate's symbol.
	SymbolExposure float64
}

// State is the circuit breaker and daily accounting, owned by the
// Manager. Snapshot returns copies.
type State struct {
	Halted     bool
	HaltReason string
	HaltedAt   time.Time

	ConsecutiveLosses int

	DailyRiskUsed    float64
	DailyStartEquity float64
	DailyPL          float64
	TradesToday      int
	LossesToday      int
}

// Manager applies Limits to candidate orders and tracks breaker state.
type Manager struct {
	mu     sync.Mutex
	limits Limits
	state  State
	day    time.Time
	log    *slog.Logger
}

func NewManager(limits Limits) (*Manager, error) {
	if err := limits.Validate(); err != nil {
		return nil, err
	}
	return &Manager{
		limits: limits,
		log:    slog.Default().With("component", "risk"),
	}, nil
}

// Limits returns the configured limits.
func (m *Manager) Limits() Limits {
	return m.limits
}

// Snapshot returns a copy of the current state.
func (m *Manager) Snapshot() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// StartDay resets the daily counters exactly once per calendar day.
// The consecutive-loss streak survives day boundaries.
func (m *Manager) StartDay(at time.Time, equity float64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	day := at.Truncate(24 * time.Hour)
	if day.Equal(m.day) {
		return
	}
	m.day = day

	m.state.DailyRiskUsed = 0
	m.state.DailyStartEquity = equity
	m.state.DailyPL = 0
	m.state.TradesToday = 0
	m.state.LossesToday = 0
}

// Halt trips the breaker. It is also the manual kill-switch.
func (m *Manager) Halt(reason string, at time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.haltLocked(reason, at)
}

func (m *Manager) haltLocked(reason string, at time.Time) {
	if m.state.Halted {
		return
	}
	m.state.Halted = true
	m.state.HaltReason = reason
	m.state.HaltedAt = at
	m.log.Warn("circuit breaker tripped", "reason", reason, "at", at)
}

// Resume clears the breaker. Nothing resumes trading automatically;
// this must be an explicit operator action.
func (m *Manager) Resume() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.state.Halted = false
	m.state.HaltReason = ""
	m.state.HaltedAt = time.Time{}
	m.log.Info("circuit breaker reset")
}

// Halted reports the breaker state and reason.
func (m *Manager) Halted() (bool, string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.Halted, m.state.HaltReason
}

// Validate runs the ordered check pipeline. The first failing check
// produces the Decision; later checks never run.
func (m *Manager) Validate(c OrderCandidate, acct AccountSnapshot, at time.Time) Decision {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state.Halted {
		return reject(CodeHalted, "trading halted: %s", m.state.HaltReason)
	}

	notional := c.Quantity * c.Price

	if maxNotional := m.limits.MaxPositionSizePct * acct.Equity; notional > maxNotional {
		return reject(CodePositionSize,
			"position notional %.2f exceeds limit %.2f", notional, maxNotional)
	}

	if need := notional + m.limits.EstimatedCommission; acct.Cash < need {
		return reject(CodeCash,
			"insufficient cash: need %.2f, have %.2f", need, acct.Cash)
	}

	tradeRisk := 0.0
	if c.StopLoss != nil && acct.Equity > 0 {
		tradeRisk = math.Abs(c.Price-*c.StopLoss) * c.Quantity / acct.Equity
		if tradeRisk > m.limits.MaxRiskPerTradePct {
			return reject(CodeTradeRisk,
				"trade risk %.4f exceeds per-trade limit %.4f", tradeRisk, m.limits.MaxRiskPerTradePct)
		}
	}

	if used := m.state.DailyRiskUsed + tradeRisk; used > m.limits.MaxRiskPerDayPct {
		return reject(CodeDailyRisk,
			"daily risk %.4f would exceed limit %.4f", used, m.limits.MaxRiskPerDayPct)
	}

	if m.state.DailyStartEquity > 0 {
		dd := (m.state.DailyStartEquity - acct.Equity) / m.state.DailyStartEquity
		if dd >= m.limits.MaxDailyDrawdownPct {
			m.haltLocked(fmt.Sprintf("daily drawdown %.2f%% breached limit %.2f%%",
				dd*100, m.limits.MaxDailyDrawdownPct*100), at)
			return reject(CodeDailyDrawdown, "trading halted: %s", m.state.HaltReason)
		}
	}

	if !c.Reduces {
		if acct.OpenPositions >= m.limits.MaxOpenPositions {
			return reject(CodeMaxPositions,
				"open positions %d at limit %d", acct.OpenPositions, m.limits.MaxOpenPositions)
		}

		if maxExposure := m.limits.MaxSingleSymbolPct * acct.Equity; acct.SymbolExposure+notional > maxExposure {
			return reject(CodeConcentration,
				"%s exposure %.2f would exceed limit %.2f",
				c.Symbol, acct.SymbolExposure+notional, maxExposure)
		}
	}

	return approve()
}

// CommitRisk records risk actually taken on, as a fraction of equity.
// The engine calls it after an approved order is placed; a dry-run
// validation alone must not consume the daily budget.
func (m *Manager) CommitRisk(fraction float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state.DailyRiskUsed += fraction
}

// CheckVolatility gates entries during volatility spikes: current ATR
// running more than the configured multiple above its trailing average
// is rejected. A zero multiplier disables the gate.
func (m *Manager) CheckVolatility(currentATR, avgATR float64) Decision {
	if m.limits.MaxATRMultiplier == 0 || avgATR <= 0 {
		return approve()
	}
	if ratio := currentATR / avgATR; ratio > m.limits.MaxATRMultiplier {
		return reject(CodeVolatility,
			"volatility %.2fx average exceeds limit %.2fx", ratio, m.limits.MaxATRMultiplier)
	}
	return approve()
}

// RecordTradeResult folds a closed trade into the daily counters and
// streak, then re-checks the loss breakers. Wins reset the streak;
// flat trades leave it unchanged.
func (m *Manager) RecordTradeResult(pnl float64, at time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.state.TradesToday++
	m.state.DailyPL += pnl

	switch {
	case pnl < 0:
		m.state.ConsecutiveLosses++
		m.state.LossesToday++
	case pnl > 0:
		m.state.ConsecutiveLosses = 0
	}

	if m.limits.MaxConsecutiveLosses > 0 && m.state.ConsecutiveLosses >= m.limits.MaxConsecutiveLosses {
		m.haltLocked(fmt.Sprintf("%d consecutive losses", m.state.ConsecutiveLosses), at)
	}
	if m.limits.MaxDailyLoss > 0 && m.state.DailyPL <= -m.limits.MaxDailyLoss {
		m.haltLocked(fmt.Sprintf("daily loss %.2f breached limit %.2f",
			-m.state.DailyPL, m.limits.MaxDailyLoss), at)
	}
}
