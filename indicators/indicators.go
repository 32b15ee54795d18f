// Package indicators provides streaming technical indicators computed
// from closed bars. Every indicator sees bars strictly in time order
// and only reports a value once its warmup window is filled; callers
// must check Ready() rather than assume zero means anything.
package indicators

import "github.com/rgallant/tradesim/market"

// Indicator computes a single streaming value from bars.
// It is deterministic and safe to use in live, replay, and backtests.
type Indicator interface {
	// Name returns a stable identifier like "EMA(20)" or "RSI(14)".
	Name() string

	// Warmup returns how many updates are needed before Ready() can be true.
	Warmup() int

	// Reset clears all internal state.
	Reset()

	// Update consumes the next *closed* bar and updates internal state.
	Update(b market.Bar)

	// Ready reports whether Value() is meaningful (warmup completed).
	Ready() bool

	// Value returns the current indicator value. If !Ready() it returns 0;
	// callers must always check Ready() first.
	Value() float64
}
