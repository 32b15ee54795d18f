// Package signal turns indicator values into directional trading
// signals using a point-scoring aggregator.
package signal

import "time"

// Direction of a trading signal.
type Direction int

const (
	Hold Direction = iota
	Buy
	Sell
)

func (d Direction) String() string {
	switch d {
	case Buy:
		return "BUY"
	case Sell:
		return "SELL"
	default:
		return "HOLD"
	}
}

// Signal is an immutable recommendation for one symbol at one bar.
// Confidence is 0-100.
type Signal struct {
	Symbol     string
	Time       time.Time
	Direction  Direction
	Confidence float64
	Reasons    []string
}

// Actionable reports whether the signal calls for an order.
func (s Signal) Actionable() bool {
	return s.Direction == Buy || s.Direction == Sell
}
