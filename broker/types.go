package broker

import "time"

// Side of an order.
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// OrderType selects the fill model.
type OrderType string

const (
	Market       OrderType = "MARKET"
	Limit        OrderType = "LIMIT"
	Stop         OrderType = "STOP"
	TrailingStop OrderType = "TRAILING_STOP"
)

// Status of an order. Filled, Rejected, and Cancelled are terminal.
type Status string

const (
	StatusPending         Status = "PENDING"
	StatusFilled          Status = "FILLED"
	StatusPartiallyFilled Status = "PARTIALLY_FILLED"
	StatusRejected        Status = "REJECTED"
	StatusCancelled       Status = "CANCELLED"
)

// Terminal reports whether no further transition is possible.
func (s Status) Terminal() bool {
	return s == StatusFilled || s == StatusRejected || s == StatusCancelled
}

// OrderRequest is what a caller submits. Optional price fields use
// pointers; nil means not set.
type OrderRequest struct {
	Symbol   string
	Side     Side
	Quantity float64
	Type     OrderType

	LimitPrice *float64 // Limit orders
	StopPrice  *float64 // Stop orders
	TrailPct   float64  // TrailingStop orders: fraction, e.g. 0.05

	// Exit levels attached to the resulting position.
	StopLoss   *float64
	TakeProfit *float64

	// Carried into the trade journal.
	Strategy   string
	Confidence float64
	Metadata   map[string]string
}

// Order is the broker-owned record of a request's lifecycle. Only the
// owning broker mutates it.
type Order struct {
	ID       string
	Symbol   string
	Side     Side
	Type     OrderType
	Quantity float64
	Status   Status

	LimitPrice *float64
	StopPrice  *float64
	TrailPct   float64
	StopLoss   *float64
	TakeProfit *float64

	CreatedAt time.Time
	FilledAt  time.Time

	FilledQuantity float64
	AvgFillPrice   float64
	Commission     float64

	RejectReason string

	Strategy   string
	Confidence float64
	Metadata   map[string]string
}

// Fill is one execution against an order.
type Fill struct {
	ID         string
	OrderID    string
	Symbol     string
	Side       Side
	Quantity   float64
	Price      float64
	Commission float64
	Slippage   float64
	Time       time.Time
}

// Position is an open holding. Quantity is signed: positive long,
// negative short. Market value is always derived from quantity and a
// current price, never stored.
type Position struct {
	Symbol        string
	Quantity      float64
	AvgEntryPrice float64
	OpenedAt      time.Time

	StopLoss   *float64
	TakeProfit *float64
}

// MarketValue at the given price.
func (p Position) MarketValue(price float64) float64 {
	return p.Quantity * price
}

// UnrealizedPL at the given price.
func (p Position) UnrealizedPL(price float64) float64 {
	return (price - p.AvgEntryPrice) * p.Quantity
}

// Account is the broker-owned cash and equity state. Everything else
// reads it as a snapshot.
type Account struct {
	ID       string
	Currency string

	Cash   float64
	Equity float64

	PeakEquity       float64
	DailyStartEquity float64

	UpdatedAt time.Time
}

// Trade is one closed (or partially closed) round trip, appended to
// the immutable ledger on every closing fill.
type Trade struct {
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
