// Package sim implements broker.Broker against historical or replayed
// bars. Fills only ever use bars already fed through SetBar, so a
// backtest cannot look ahead.
package sim

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/rgallant/tradesim/broker"
	"github.com/rgallant/tradesim/market"
)

func init() {
	broker.Register("sim", func(cfg broker.Config) (broker.Broker, error) {
		return New(cfg)
	})
}

type Broker struct {
	mu  sync.Mutex
	cfg broker.Config
	log *slog.Logger

	connected bool
	now       time.Time

	bars  map[string]market.Bar
	marks map[string]float64

	cash      float64
	positions map[string]*broker.Position

	orders  map[string]*broker.Order
	pending []string // order ids in submission order
	fills   []broker.Fill
	trades  []broker.Trade

	realized         float64
	peakEquity       float64
	dailyStartEquity float64

	// Trailing stops ratchet off the most favorable price seen since
	// submission, keyed by order id.
	trailExtreme map[string]float64

	nextOrderSeq int
	nextFillSeq  int
}

func New(cfg broker.Config) (*Broker, error) {
	if cfg.InitialCash <= 0 {
		return nil, fmt.Errorf("sim broker: initial cash must be positive, got %v", cfg.InitialCash)
	}
	if cfg.SlippageBPS < 0 || cfg.SpreadBPS < 0 || cfg.CommissionPerTrade < 0 {
		return nil, fmt.Errorf("sim broker: slippage, spread, and commission must be non-negative")
	}

	return &Broker{
		cfg:              cfg,
		log:              slog.Default().With("component", "sim-broker"),
		bars:             make(map[string]market.Bar),
		marks:            make(map[string]float64),
		cash:             cfg.InitialCash,
		positions:        make(map[string]*broker.Position),
		orders:           make(map[string]*broker.Order),
		trailExtreme:     make(map[string]float64),
		peakEquity:       cfg.InitialCash,
		dailyStartEquity: cfg.InitialCash,
	}, nil
}

func (b *Broker) Connect() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.connected = true
	return nil
}

func (b *Broker) Disconnect() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.connected = false
}

// SetBar advances the simulation clock for one symbol: records the
// bar, ratchets trailing stops, evaluates attached stop-loss /
// take-profit exits, then works resting orders in submission order.
func (b *Broker) SetBar(symbol string, bar market.Bar) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.now = bar.Time
	b.bars[symbol] = bar
	b.marks[symbol] = bar.Close

	b.updateTrailingStopsLocked(symbol, bar)
	b.checkPositionExitsLocked(symbol, bar)
	b.workPendingLocked(symbol, bar)
	b.updatePeakLocked()
}

// StartDay resets the daily-start equity anchor. The backtest engine
// calls it on the first bar of each trading day.
func (b *Broker) StartDay() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.dailyStartEquity = b.equityLocked()
}

func (b *Broker) Account() broker.Account {
	b.mu.Lock()
	defer b.mu.Unlock()

	return broker.Account{
		ID:               "SIM",
		Currency:         "USD",
		Cash:             b.cash,
		Equity:           b.equityLocked(),
		PeakEquity:       b.peakEquity,
		DailyStartEquity: b.dailyStartEquity,
		UpdatedAt:        b.now,
	}
}

func (b *Broker) Positions() []broker.Position {
	b.mu.Lock()
	defer b.mu.Unlock()

	symbols := make([]string, 0, len(b.positions))
	for s := range b.positions {
		symbols = append(symbols, s)
	}
	sort.Strings(symbols)

	out := make([]broker.Position, 0, len(symbols))
	for _, s := range symbols {
		out = append(out, *b.positions[s])
	}
	return out
}

func (b *Broker) MarkPrice(symbol string) (float64, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	p, ok := b.marks[symbol]
	return p, ok
}

func (b *Broker) CancelOrder(id string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	ord, ok := b.orders[id]
	if !ok || ord.Status.Terminal() {
		return false
	}

	ord.Status = broker.StatusCancelled
	b.removePendingLocked(id)
	delete(b.trailExtreme, id)
	return true
}

// GetOrder returns a copy of the order, if known.
func (b *Broker) GetOrder(id string) (broker.Order, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	ord, ok := b.orders[id]
	if !ok {
		return broker.Order{}, false
	}
	return *ord, true
}

// Fills returns the fill history in execution order.
func (b *Broker) Fills() []broker.Fill {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]broker.Fill(nil), b.fills...)
}

// Trades returns the closed-trade ledger in close order.
func (b *Broker) Trades() []broker.Trade {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]broker.Trade(nil), b.trades...)
}

// Realized returns cumulative realized P&L. Commission is accounted
// against cash, not here.
func (b *Broker) Realized() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.realized
}

// Unrealized marks open positions to the latest closes.
func (b *Broker) Unrealized() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()

	total := 0.0
	for s, p := range b.positions {
		if mark, ok := b.marks[s]; ok {
			total += p.UnrealizedPL(mark)
		}
	}
	return total
}

func (b *Broker) equityLocked() float64 {
	// Always derived: cash plus marked position value. Never cached.
	eq := b.cash
	for s, p := range b.positions {
		if mark, ok := b.marks[s]; ok {
			eq += p.MarketValue(mark)
		} else {
			eq += p.MarketValue(p.AvgEntryPrice)
		}
	}
	return eq
}

func (b *Broker) updatePeakLocked() {
	if eq := b.equityLocked(); eq > b.peakEquity {
		b.peakEquity = eq
	}
}

func (b *Broker) removePendingLocked(id string) {
	for i, pid := range b.pending {
		if pid == id {
			b.pending = append(b.pending[:i], b.pending[i+1:]...)
			return
		}
	}
}

func (b *Broker) nextOrderID() string {
	b.nextOrderSeq++
	return fmt.Sprintf("O-%06d", b.nextOrderSeq)
}

func (b *Broker) nextFillID() string {
	b.nextFillSeq++
	return fmt.Sprintf("F-%06d", b.nextFillSeq)
}

var _ broker.Broker = (*Broker)(nil)

// PlaceOrder validates and submits a request. Market orders execute
// against the current bar synchronously; resting orders are evaluated
// once immediately and then on every subsequent bar.
func (b *Broker) PlaceOrder(ctx context.Context, req broker.OrderRequest) (*broker.Order, error) {
	_ = ctx // synchronous; reserved for live-adapter parity

	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.connected {
		return nil, fmt.Errorf("sim broker: not connected")
	}

	ord := &broker.Order{
		ID:         b.nextOrderID(),
		Symbol:     req.Symbol,
		Side:       req.Side,
		Type:       req.Type,
		Quantity:   req.Quantity,
		Status:     broker.StatusPending,
		LimitPrice: req.LimitPrice,
		StopPrice:  req.StopPrice,
		TrailPct:   req.TrailPct,
		StopLoss:   req.StopLoss,
		TakeProfit: req.TakeProfit,
		CreatedAt:  b.now,
		Strategy:   req.Strategy,
		Confidence: req.Confidence,
		Metadata:   req.Metadata,
	}
	b.orders[ord.ID] = ord

	if reason, ok := b.validateRequestLocked(req); !ok {
		ord.Status = broker.StatusRejected
		ord.RejectReason = reason
		return ord, nil
	}

	bar, haveBar := b.bars[req.Symbol]
	if !haveBar {
		ord.Status = broker.StatusRejected
		ord.RejectReason = fmt.Sprintf("no market data for %s", req.Symbol)
		return ord, nil
	}

	if ord.Type == broker.TrailingStop {
		b.trailExtreme[ord.ID] = bar.Close
	}

	b.evalOrderLocked(ord, bar)
	if !ord.Status.Terminal() {
		b.pending = append(b.pending, ord.ID)
	}
	b.updatePeakLocked()

	return ord, nil
}

func (b *Broker) validateRequestLocked(req broker.OrderRequest) (string, bool) {
	if req.Quantity <= 0 {
		return fmt.Sprintf("quantity must be positive, got %v", req.Quantity), false
	}
	if req.Side != broker.SideBuy && req.Side != broker.SideSell {
		return fmt.Sprintf("unknown side %q", req.Side), false
	}

	switch req.Type {
	case broker.Market:
	case broker.Limit:
		if req.LimitPrice == nil || *req.LimitPrice <= 0 {
			return "limit order requires a positive limit price", false
		}
	case broker.Stop:
		if req.StopPrice == nil || *req.StopPrice <= 0 {
			return "stop order requires a positive stop price", false
		}
	case broker.TrailingStop:
		if req.TrailPct <= 0 || req.TrailPct >= 1 {
			return fmt.Sprintf("trailing stop requires trail_pct in (0, 1), got %v", req.TrailPct), false
		}
	default:
		return fmt.Sprintf("unknown order type %q", req.Type), false
	}

	return "", true
}
