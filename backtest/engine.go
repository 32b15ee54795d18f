// Package backtest orchestrates one deterministic pass over
// historical bars: indicators, signal generation, execution, and
// equity sampling, bar by bar in time order. Identical configuration
// and bars always produce an identical ledger and curve.
package backtest

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/rgallant/tradesim/broker"
	"github.com/rgallant/tradesim/config"
	"github.com/rgallant/tradesim/execution"
	"github.com/rgallant/tradesim/indicators"
	"github.com/rgallant/tradesim/journal"
	"github.com/rgallant/tradesim/market"
	"github.com/rgallant/tradesim/metrics"
	"github.com/rgallant/tradesim/pkg/id"
	"github.com/rgallant/tradesim/pnl"
	"github.com/rgallant/tradesim/risk"
	"github.com/rgallant/tradesim/signal"
)

// barSim is what the engine needs beyond broker.Broker to replay
// history: feeding bars, day resets, and ledger access. The sim
// broker satisfies it; a live adapter does not, and cannot backtest.
type barSim interface {
	broker.Broker
	SetBar(symbol string, bar market.Bar)
	StartDay()
	Trades() []broker.Trade
	Realized() float64
	Unrealized() float64
}

// Result is everything one run produced.
type Result struct {
	RunID   string
	Symbols []string
	Start   time.Time
	End     time.Time

	Report metrics.Report
	Curve  []pnl.Point
	Trades []broker.Trade

	FinalAccount broker.Account
	SignalsSeen  int
	OrdersPlaced int
}

// Engine runs one configuration over one bar source.
type Engine struct {
	cfg *config.Config
	src market.Source
	log *slog.Logger
}

func New(cfg *config.Config) *Engine {
	return NewWithSource(cfg, market.NewCSVSource(cfg.Data.Dir))
}

func NewWithSource(cfg *config.Config, src market.Source) *Engine {
	return &Engine{
		cfg: cfg,
		src: src,
		log: slog.Default().With("component", "backtest"),
	}
}

// Run executes the full pass. The loop is single-threaded: bars are
// processed in ascending time order, and symbols sharing a timestamp
// in sorted symbol order.
func (e *Engine) Run(ctx context.Context) (*Result, error) {
	start, end, err := e.timeBounds()
	if err != nil {
		return nil, err
	}

	symbols := append([]string(nil), e.cfg.Data.Symbols...)
	sort.Strings(symbols)

	series := make(map[string][]market.Bar, len(symbols))
	for _, sym := range symbols {
		bars, err := e.src.GetBars(ctx, sym, start, end, e.cfg.Data.Interval)
		if err != nil {
			return nil, fmt.Errorf("load bars for %s: %w", sym, err)
		}
		if len(bars) == 0 {
			return nil, fmt.Errorf("no bars for %s in range", sym)
		}
		series[sym] = bars
	}

	bk, err := broker.New(e.cfg.Broker)
	if err != nil {
		return nil, err
	}
	sim, ok := bk.(barSim)
	if !ok {
		return nil, fmt.Errorf("broker kind %q cannot replay historical bars", e.cfg.Broker.Kind)
	}
	if err := sim.Connect(); err != nil {
		return nil, err
	}
	defer sim.Disconnect()

	rm, err := risk.NewManager(e.cfg.Risk)
	if err != nil {
		return nil, err
	}

	jnl, sqlJnl, err := newJournal(e.cfg.Journal)
	if err != nil {
		return nil, err
	}
	defer jnl.Close()

	eng := execution.New(sim, rm, e.cfg.Sizing, jnl, execution.Options{
		Strategy:          e.cfg.Execution.Strategy,
		ATRStopMultiplier: e.cfg.Execution.ATRStopMultiplier,
		StopLossPct:       e.cfg.Execution.StopLossPct,
		RewardRisk:        e.cfg.Execution.RewardRisk,
		DryRun:            e.cfg.Execution.DryRun,
	})

	gen := &signal.Generator{
		RSIOverbought:       e.cfg.Signal.RSIOverbought,
		RSIOversold:         e.cfg.Signal.RSIOversold,
		RSIStrongOverbought: e.cfg.Signal.RSIStrongOverbought,
		RSIStrongOversold:   e.cfg.Signal.RSIStrongOversold,
		Threshold:           e.cfg.Signal.Threshold,
	}

	engines := make(map[string]*indicators.Engine, len(symbols))
	for _, sym := range symbols {
		engines[sym] = indicators.NewEngine(e.cfg.Indicators)
	}

	tracker := pnl.NewTracker(e.cfg.Broker.InitialCash)
	res := &Result{
		RunID:   id.New(),
		Symbols: symbols,
	}

	var (
		tradesSeen int
		currentDay time.Time
	)

	drainTrades := func() {
		ledger := sim.Trades()
		for _, t := range ledger[tradesSeen:] {
			eng.OnTradeClosed(t)
		}
		tradesSeen = len(ledger)
	}

	cursor := make(map[string]int, len(symbols))
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		now, active := nextTimestamp(symbols, series, cursor)
		if len(active) == 0 {
			break
		}
		if res.Start.IsZero() {
			res.Start = now
		}
		res.End = now

		// Feed this timestamp's bars: resting orders and attached
		// exits fill against them before any new signal is seen.
		for _, sym := range active {
			sim.SetBar(sym, series[sym][cursor[sym]])
		}
		drainTrades()

		if day := now.Truncate(24 * time.Hour); !day.Equal(currentDay) {
			currentDay = day
			sim.StartDay()
			rm.StartDay(now, sim.Account().Equity)
		}

		for _, sym := range active {
			bar := series[sym][cursor[sym]]
			cursor[sym]++

			engines[sym].Update(bar)
			sig := gen.Generate(sym, now, engines[sym].Snapshot(), bar.Close)
			res.SignalsSeen++

			if !sig.Actionable() {
				continue
			}
			r, err := eng.ExecuteSignal(ctx, sig, engines[sym].Snapshot())
			if err != nil {
				return nil, err
			}
			if r.Order != nil {
				res.OrdersPlaced++
			}
			drainTrades()
		}

		acct := sim.Account()
		p := tracker.Observe(now, acct.Cash, acct.Equity-acct.Cash, sim.Realized(), sim.Unrealized())
		eng.RecordEquity(journal.EquitySnapshot{
			Time:       p.Time,
			Cash:       p.Cash,
			Equity:     p.Equity,
			Realized:   p.Realized,
			Unrealized: p.Unrealized,
			Drawdown:   p.Drawdown,
		})
	}

	res.Curve = tracker.Curve()
	res.Trades = sim.Trades()
	res.FinalAccount = sim.Account()
	res.Report = metrics.Calculate(res.Curve, res.Trades, metrics.Options{
		InitialCapital:     e.cfg.Broker.InitialCash,
		RiskFreeRate:       e.cfg.Metrics.RiskFreeRate,
		TradingDaysPerYear: e.cfg.Metrics.TradingDaysPerYear,
		VaRConfidence:      e.cfg.Metrics.VaRConfidence,
	})

	if sqlJnl != nil {
		if err := e.recordRun(sqlJnl, res); err != nil {
			e.log.Error("record run failed", "run", res.RunID, "error", err)
		}
	}

	e.log.Info("backtest complete",
		"run", res.RunID,
		"symbols", symbols,
		"trades", len(res.Trades),
		"final_equity", res.FinalAccount.Equity,
		"total_return", res.Report.TotalReturn)

	return res, nil
}

// nextTimestamp finds the earliest unprocessed bar time and the
// symbols (sorted) that have a bar at it.
func nextTimestamp(symbols []string, series map[string][]market.Bar, cursor map[string]int) (time.Time, []string) {
	var now time.Time
	found := false
	for _, sym := range symbols {
		i := cursor[sym]
		if i >= len(series[sym]) {
			continue
		}
		t := series[sym][i].Time
		if !found || t.Before(now) {
			now = t
			found = true
		}
	}
	if !found {
		return time.Time{}, nil
	}

	var active []string
	for _, sym := range symbols {
		i := cursor[sym]
		if i < len(series[sym]) && series[sym][i].Time.Equal(now) {
			active = append(active, sym)
		}
	}
	return now, active
}

func (e *Engine) timeBounds() (time.Time, time.Time, error) {
	parse := func(s string) (time.Time, error) {
		if s == "" {
			return time.Time{}, nil
		}
		if t, err := time.Parse(time.RFC3339, s); err == nil {
			return t, nil
		}
		return time.Parse("2006-01-02", s)
	}

	start, err := parse(e.cfg.Data.Start)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("bad data.start: %w", err)
	}
	end, err := parse(e.cfg.Data.End)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("bad data.end: %w", err)
	}
	if end.IsZero() {
		end = time.Date(9999, 1, 1, 0, 0, 0, 0, time.UTC)
	}
	return start, end, nil
}

func newJournal(cfg config.JournalConfig) (journal.Journal, *journal.SQLite, error) {
	switch cfg.Type {
	case "csv":
		j, err := journal.NewCSV(cfg.OrdersFile, cfg.TradesFile, cfg.EquityFile)
		return j, nil, err
	case "sqlite":
		j, err := journal.NewSQLite(cfg.DBPath)
		return j, j, err
	default:
		return journal.Nop{}, nil, nil
	}
}

func (e *Engine) recordRun(j *journal.SQLite, res *Result) error {
	cfgYAML, err := configYAML(e.cfg)
	if err != nil {
		return err
	}
	return j.RecordRun(journal.RunRecord{
		RunID:          res.RunID,
		Created:        time.Now().UTC(),
		Symbols:        joinSymbols(res.Symbols),
		Strategy:       e.cfg.Execution.Strategy,
		Start:          res.Start,
		End:            res.End,
		InitialCapital: e.cfg.Broker.InitialCash,
		FinalEquity:    res.FinalAccount.Equity,
		TotalReturn:    res.Report.TotalReturn,
		MaxDrawdown:    res.Report.MaxDrawdown,
		Sharpe:         res.Report.Sharpe,
		Trades:         res.Report.TotalTrades,
		WinRate:        res.Report.WinRate,
		Config:         cfgYAML,
	})
}
