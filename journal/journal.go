// Package journal persists the audit trail of a run: every order
// submission, every closed trade, and the equity curve. Backends
// share one record model so a backtest can be replayed from either.
package journal

import "time"

// OrderRecord captures an order at the end of its synchronous
// lifecycle step. Optional levels are 0 when unset.
type OrderRecord struct {
	Time       time.Time
	OrderID    string
	Symbol     string
	Side       string
	Quantity   float64
	Type       string
	Status     string
	FillPrice  float64
	StopLoss   float64
	TakeProfit float64
	Strategy   string
	Confidence float64
	Reason     string

	// Metadata is free-form strategy context, stored as JSON.
	Metadata map[string]string
}

// TradeRecord is one closed (or partially closed) round trip.
type TradeRecord struct {
	TradeID    string
	Symbol     string
	Quantity   float64
	EntryPrice float64
	ExitPrice  float64
	EntryTime  time.Time
	ExitTime   time.Time
	RealizedPL float64
	Commission float64
	Reason     string
}

// EquitySnapshot is one equity-curve sample.
type EquitySnapshot struct {
	Time       time.Time
	Cash       float64
	Equity     float64
	Realized   float64
	Unrealized float64
	Drawdown   float64
}

type Journal interface {
	RecordOrder(OrderRecord) error
	RecordTrade(TradeRecord) error
	RecordEquity(EquitySnapshot) error
	Close() error
}

// Nop discards everything. Useful for dry runs and parameter sweeps
// where only the final report matters.
type Nop struct{}

func (Nop) RecordOrder(OrderRecord) error     { return nil }
func (Nop) RecordTrade(TradeRecord) error     { return nil }
func (Nop) RecordEquity(EquitySnapshot) error { return nil }
func (Nop) Close() error                      { return nil }
