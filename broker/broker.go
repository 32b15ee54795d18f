// Package broker defines the contract every execution venue must
// satisfy, plus the order/position/account model they share.
package broker

import "context"

type Broker interface {
	Connect() error
	Disconnect()

	// PlaceOrder submits a request and returns the resulting order in
	// whatever state it reached synchronously (Filled for market
	// orders in simulation, Pending for resting orders, Rejected with
	// a reason on validation failure). Transport failures, not
	// rejections, come back as error.
	PlaceOrder(ctx context.Context, req OrderRequest) (*Order, error)

	// CancelOrder transitions a Pending order to Cancelled. It is a
	// no-op returning false on unknown ids and terminal orders.
	CancelOrder(id string) bool

	// Positions returns open positions, sorted by symbol.
	Positions() []Position

	// Account returns a snapshot of cash/equity state.
	Account() Account

	// MarkPrice returns the latest known price for a symbol.
	MarkPrice(symbol string) (float64, bool)
}
