// Package execution drives a signal end to end: stop derivation,
// sizing, risk validation, order placement, and journaling. One
// engine serves one account; its check-then-act sequence is atomic
// with respect to other submissions.
package execution

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"sync"

	"github.com/rgallant/tradesim/broker"
	"github.com/rgallant/tradesim/indicators"
	"github.com/rgallant/tradesim/journal"
	"github.com/rgallant/tradesim/pkg/id"
	"github.com/rgallant/tradesim/risk"
	"github.com/rgallant/tradesim/signal"
	"github.com/rgallant/tradesim/sizing"
)

// Options shape how orders are derived from signals.
type Options struct {
	Strategy string

	// ATRStopMultiplier places the stop this many ATRs away from
	// entry when ATR is available.
	ATRStopMultiplier float64

	// StopLossPct is the fallback stop distance, as a fraction of
	// entry price, when ATR is not ready yet.
	StopLossPct float64

	// RewardRisk sets the take-profit distance as a multiple of the
	// stop distance.
	RewardRisk float64

	// DryRun validates and sizes but never places orders.
	DryRun bool
}

// Result records what happened to one signal.
type Result struct {
	Signal   signal.Signal
	Decision risk.Decision
	Quantity int64

	StopLoss   float64
	TakeProfit float64

	// Order is nil for holds, dry runs, sizing failures, and risk
	// rejections.
	Order *broker.Order

	// Skipped is set when no order was attempted, with the reason.
	Skipped string
}

// Engine executes signals against one broker account.
type Engine struct {
	mu sync.Mutex

	broker  broker.Broker
	risk    *risk.Manager
	method  sizing.Method
	journal journal.Journal
	opts    Options
	log     *slog.Logger
}

func New(b broker.Broker, rm *risk.Manager, method sizing.Method, jnl journal.Journal, opts Options) *Engine {
	if jnl == nil {
		jnl = journal.Nop{}
	}
	return &Engine{
		broker:  b,
		risk:    rm,
		method:  method,
		journal: jnl,
		opts:    opts,
		log:     slog.Default().With("component", "execution"),
	}
}

// ExecuteSignal turns one signal into at most one order. The whole
// sequence runs under the engine mutex so concurrent signals for the
// same account cannot interleave their risk checks and placements.
func (e *Engine) ExecuteSignal(ctx context.Context, sig signal.Signal, ind indicators.Set) (Result, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	res := Result{Signal: sig}

	if !sig.Actionable() {
		res.Skipped = "hold"
		return res, nil
	}

	price, ok := e.broker.MarkPrice(sig.Symbol)
	if !ok {
		res.Skipped = "no market price"
		return res, fmt.Errorf("no market price for %s", sig.Symbol)
	}

	atr, haveATR := ind.Value(indicators.ATRKey)
	avgATR, haveAvg := ind.Value(indicators.ATRAvgKey)
	if haveATR && haveAvg {
		if d := e.risk.CheckVolatility(atr, avgATR); !d.Approved {
			res.Decision = d
			res.Skipped = d.Reason
			e.log.Info("signal blocked", "symbol", sig.Symbol, "reason", d.Reason)
			return res, nil
		}
	}

	stop, take := e.exitLevels(sig.Direction, price, atr, haveATR)
	res.StopLoss = stop
	res.TakeProfit = take

	acct := e.broker.Account()
	in := sizing.Input{
		Equity:     acct.Equity,
		EntryPrice: price,
		StopLoss:   stop,
	}
	if haveATR {
		in.ATR = atr
	}
	if haveAvg {
		in.AvgATR = avgATR
	}

	qty, err := sizing.Size(e.method, in)
	if err != nil {
		res.Skipped = "sizing failed"
		return res, fmt.Errorf("size %s: %w", sig.Symbol, err)
	}
	if qty == 0 {
		res.Skipped = "sized to zero"
		return res, nil
	}
	res.Quantity = qty

	reduces, exposure, openCount := e.positionContext(sig)
	cand := risk.OrderCandidate{
		Symbol:   sig.Symbol,
		Quantity: float64(qty),
		Price:    price,
		StopLoss: &stop,
		Reduces:  reduces,
	}
	snap := risk.AccountSnapshot{
		Cash:           acct.Cash,
		Equity:         acct.Equity,
		OpenPositions:  openCount,
		SymbolExposure: exposure,
	}

	res.Decision = e.risk.Validate(cand, snap, sig.Time)
	if !res.Decision.Approved {
		e.log.Info("order rejected by risk",
			"symbol", sig.Symbol, "code", res.Decision.Code, "reason", res.Decision.Reason)
		return res, nil
	}

	if e.opts.DryRun {
		res.Skipped = "dry run"
		return res, nil
	}

	side := broker.SideBuy
	if sig.Direction == signal.Sell {
		side = broker.SideSell
	}

	ord, err := e.broker.PlaceOrder(ctx, broker.OrderRequest{
		Symbol:     sig.Symbol,
		Side:       side,
		Quantity:   float64(qty),
		Type:       broker.Market,
		StopLoss:   &stop,
		TakeProfit: &take,
		Strategy:   e.opts.Strategy,
		Confidence: sig.Confidence,
		Metadata:   map[string]string{"reasons": strings.Join(sig.Reasons, "; ")},
	})
	if err != nil {
		return res, fmt.Errorf("place order for %s: %w", sig.Symbol, err)
	}
	res.Order = ord

	if ord.Status != broker.StatusRejected {
		riskFrac := 0.0
		if acct.Equity > 0 {
			riskFrac = math.Abs(price-stop) * float64(qty) / acct.Equity
		}
		e.risk.CommitRisk(riskFrac)
	}

	if err := e.journal.RecordOrder(orderRecord(ord, sig)); err != nil {
		e.log.Error("journal order failed", "order", ord.ID, "error", err)
	}

	return res, nil
}

// OnTradeClosed feeds a closed trade back into risk state and the
// journal. The sim broker's ledger is drained through here once per
// bar by the backtest engine.
func (e *Engine) OnTradeClosed(t broker.Trade) {
	e.risk.RecordTradeResult(t.RealizedPL, t.ExitTime)

	rec := journal.TradeRecord{
		TradeID:    id.New(),
		Symbol:     t.Symbol,
		Quantity:   t.Quantity,
		EntryPrice: t.EntryPrice,
		ExitPrice:  t.ExitPrice,
		EntryTime:  t.EntryTime,
		ExitTime:   t.ExitTime,
		RealizedPL: t.RealizedPL,
		Commission: t.Commission,
		Reason:     t.Reason,
	}
	if err := e.journal.RecordTrade(rec); err != nil {
		e.log.Error("journal trade failed", "symbol", t.Symbol, "error", err)
	}
}

// RecordEquity forwards one equity sample to the journal.
func (e *Engine) RecordEquity(s journal.EquitySnapshot) {
	if err := e.journal.RecordEquity(s); err != nil {
		e.log.Error("journal equity failed", "error", err)
	}
}

// exitLevels derives the stop from ATR when available, a fixed
// fraction of price otherwise, and the take-profit as a reward:risk
// multiple of the stop distance.
func (e *Engine) exitLevels(dir signal.Direction, price, atr float64, haveATR bool) (stop, take float64) {
	dist := price * e.opts.StopLossPct
	if haveATR && atr > 0 {
		dist = atr * e.opts.ATRStopMultiplier
	}

	if dir == signal.Sell {
		return price + dist, price - dist*e.opts.RewardRisk
	}
	return price - dist, price + dist*e.opts.RewardRisk
}

// positionContext reports whether the signal trades against an
// existing position, the current exposure in its symbol, and the open
// position count.
func (e *Engine) positionContext(sig signal.Signal) (reduces bool, exposure float64, open int) {
	positions := e.broker.Positions()
	open = len(positions)

	for _, p := range positions {
		if p.Symbol != sig.Symbol {
			continue
		}
		mark, ok := e.broker.MarkPrice(p.Symbol)
		if !ok {
			mark = p.AvgEntryPrice
		}
		exposure = math.Abs(p.MarketValue(mark))

		longPos := p.Quantity > 0
		reduces = (longPos && sig.Direction == signal.Sell) ||
			(!longPos && sig.Direction == signal.Buy)
	}
	return reduces, exposure, open
}

func orderRecord(ord *broker.Order, sig signal.Signal) journal.OrderRecord {
	rec := journal.OrderRecord{
		Time:       ord.CreatedAt,
		OrderID:    ord.ID,
		Symbol:     ord.Symbol,
		Side:       string(ord.Side),
		Quantity:   ord.Quantity,
		Type:       string(ord.Type),
		Status:     string(ord.Status),
		FillPrice:  ord.AvgFillPrice,
		Strategy:   ord.Strategy,
		Confidence: ord.Confidence,
		Reason:     ord.RejectReason,
		Metadata:   ord.Metadata,
	}
	if ord.StopLoss != nil {
		rec.StopLoss = *ord.StopLoss
	}
	if ord.TakeProfit != nil {
		rec.TakeProfit = *ord.TakeProfit
	}
	if rec.Reason == "" {
		rec.Reason = strings.Join(sig.Reasons, "; ")
	}
	return rec
}
