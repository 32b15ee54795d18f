package execution

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rgallant/tradesim/broker"
	"github.com/rgallant/tradesim/broker/sim"
	"github.com/rgallant/tradesim/indicators"
	"github.com/rgallant/tradesim/journal"
	"github.com/rgallant/tradesim/market"
	"github.com/rgallant/tradesim/risk"
	"github.com/rgallant/tradesim/signal"
	"github.com/rgallant/tradesim/sizing"
)

// memJournal captures records for assertions.
type memJournal struct {
	orders []journal.OrderRecord
	trades []journal.TradeRecord
	equity []journal.EquitySnapshot
}

func (m *memJournal) RecordOrder(o journal.OrderRecord) error     { m.orders = append(m.orders, o); return nil }
func (m *memJournal) RecordTrade(t journal.TradeRecord) error     { m.trades = append(m.trades, t); return nil }
func (m *memJournal) RecordEquity(e journal.EquitySnapshot) error { m.equity = append(m.equity, e); return nil }
func (m *memJournal) Close() error                                { return nil }

func testLimits() risk.Limits {
	l := risk.DefaultLimits()
	l.MaxPositionSizePct = 0.5
	l.MaxSingleSymbolPct = 0.5
	return l
}

func testOptions() Options {
	return Options{
		Strategy:          "scored",
		ATRStopMultiplier: 2.0,
		StopLossPct:       0.04,
		RewardRisk:        2.0,
	}
}

func newTestEngine(t *testing.T, limits risk.Limits, opts Options) (*Engine, *sim.Broker, *risk.Manager, *memJournal) {
	t.Helper()

	b, err := sim.New(broker.Config{InitialCash: 100000})
	require.NoError(t, err)
	require.NoError(t, b.Connect())

	bar := market.Bar{
		Time:   time.Date(2024, 3, 1, 16, 0, 0, 0, time.UTC),
		Open:   99, High: 101, Low: 98, Close: 100, Volume: 1e6,
	}
	b.SetBar("AAPL", bar)

	rm, err := risk.NewManager(limits)
	require.NoError(t, err)
	rm.StartDay(bar.Time, 100000)

	jnl := &memJournal{}
	method := sizing.Method{Kind: sizing.PercentEquity, RiskPct: 0.02}
	return New(b, rm, method, jnl, opts), b, rm, jnl
}

func buySignal() signal.Signal {
	return signal.Signal{
		Symbol:     "AAPL",
		Time:       time.Date(2024, 3, 1, 16, 0, 0, 0, time.UTC),
		Direction:  signal.Buy,
		Confidence: 80,
		Reasons:    []string{"bullish MA crossover"},
	}
}

func indSet() indicators.Set {
	return indicators.NewSet(map[string]float64{
		indicators.ATRKey:    2.5,
		indicators.ATRAvgKey: 2.0,
	})
}

func TestHoldShortCircuits(t *testing.T) {
	t.Parallel()

	eng, b, _, jnl := newTestEngine(t, testLimits(), testOptions())

	sig := buySignal()
	sig.Direction = signal.Hold

	res, err := eng.ExecuteSignal(context.Background(), sig, indSet())
	require.NoError(t, err)
	assert.Equal(t, "hold", res.Skipped)
	assert.Nil(t, res.Order)
	assert.Empty(t, b.Fills())
	assert.Empty(t, jnl.orders)
}

func TestBuySignalPlacesOrderWithExits(t *testing.T) {
	t.Parallel()

	eng, b, rm, jnl := newTestEngine(t, testLimits(), testOptions())

	res, err := eng.ExecuteSignal(context.Background(), buySignal(), indSet())
	require.NoError(t, err)
	require.True(t, res.Decision.Approved, res.Decision.Reason)
	require.NotNil(t, res.Order)

	// ATR 2.5 with 2x multiplier: stop 5 below entry, take 10 above.
	assert.InDelta(t, 95.0, res.StopLoss, 1e-9)
	assert.InDelta(t, 110.0, res.TakeProfit, 1e-9)

	// 2% of 100k over a 5-point stop distance.
	assert.Equal(t, int64(400), res.Quantity)
	assert.Equal(t, broker.StatusFilled, res.Order.Status)

	positions := b.Positions()
	require.Len(t, positions, 1)
	require.NotNil(t, positions[0].StopLoss)
	assert.InDelta(t, 95.0, *positions[0].StopLoss, 1e-9)

	// The committed risk shows up in the daily budget.
	assert.InDelta(t, 0.02, rm.Snapshot().DailyRiskUsed, 1e-9)

	require.Len(t, jnl.orders, 1)
	assert.Equal(t, "FILLED", jnl.orders[0].Status)
	assert.Equal(t, "scored", jnl.orders[0].Strategy)
	assert.Contains(t, jnl.orders[0].Metadata["reasons"], "crossover")
}

func TestFallbackStopWithoutATR(t *testing.T) {
	t.Parallel()

	eng, _, _, _ := newTestEngine(t, testLimits(), testOptions())

	res, err := eng.ExecuteSignal(context.Background(), buySignal(), indicators.NewSet(nil))
	require.NoError(t, err)
	require.True(t, res.Decision.Approved, res.Decision.Reason)

	// 4% of the 100 entry price.
	assert.InDelta(t, 96.0, res.StopLoss, 1e-9)
	assert.InDelta(t, 108.0, res.TakeProfit, 1e-9)
}

func TestSellSignalExitsMirror(t *testing.T) {
	t.Parallel()

	eng, b, _, _ := newTestEngine(t, testLimits(), testOptions())

	// Open a long so the sell reduces instead of shorting.
	_, err := b.PlaceOrder(context.Background(), broker.OrderRequest{
		Symbol: "AAPL", Side: broker.SideBuy, Quantity: 400, Type: broker.Market,
	})
	require.NoError(t, err)

	sig := buySignal()
	sig.Direction = signal.Sell

	res, err := eng.ExecuteSignal(context.Background(), sig, indSet())
	require.NoError(t, err)
	require.True(t, res.Decision.Approved, res.Decision.Reason)

	assert.InDelta(t, 105.0, res.StopLoss, 1e-9)
	assert.InDelta(t, 90.0, res.TakeProfit, 1e-9)
	require.NotNil(t, res.Order)
	assert.Equal(t, broker.SideSell, res.Order.Side)
}

func TestRiskRejectionSkipsPlacement(t *testing.T) {
	t.Parallel()

	eng, b, rm, jnl := newTestEngine(t, testLimits(), testOptions())
	rm.Halt("manual kill switch", time.Now())

	res, err := eng.ExecuteSignal(context.Background(), buySignal(), indSet())
	require.NoError(t, err)
	assert.False(t, res.Decision.Approved)
	assert.Equal(t, risk.CodeHalted, res.Decision.Code)
	assert.Nil(t, res.Order)
	assert.Empty(t, b.Fills())
	assert.Empty(t, jnl.orders)
}

func TestDryRunNeverPlaces(t *testing.T) {
	t.Parallel()

	opts := testOptions()
	opts.DryRun = true
	eng, b, rm, jnl := newTestEngine(t, testLimits(), opts)

	res, err := eng.ExecuteSignal(context.Background(), buySignal(), indSet())
	require.NoError(t, err)
	assert.True(t, res.Decision.Approved)
	assert.Equal(t, "dry run", res.Skipped)
	assert.Equal(t, int64(400), res.Quantity)
	assert.Nil(t, res.Order)
	assert.Empty(t, b.Fills())
	assert.Empty(t, jnl.orders)

	// Dry runs must not consume the daily risk budget.
	assert.Zero(t, rm.Snapshot().DailyRiskUsed)
}

func TestVolatilityGateBlocksEntry(t *testing.T) {
	t.Parallel()

	eng, b, _, _ := newTestEngine(t, testLimits(), testOptions()) // 3x gate

	ind := indicators.NewSet(map[string]float64{
		indicators.ATRKey:    10.0,
		indicators.ATRAvgKey: 2.0,
	})
	res, err := eng.ExecuteSignal(context.Background(), buySignal(), ind)
	require.NoError(t, err)
	assert.Equal(t, risk.CodeVolatility, res.Decision.Code)
	assert.Nil(t, res.Order)
	assert.Empty(t, b.Fills())
}

func TestSizingFailureIsAnError(t *testing.T) {
	t.Parallel()

	eng, _, _, _ := newTestEngine(t, testLimits(), testOptions())
	eng.method = sizing.Method{Kind: sizing.Kelly, WinRate: 0.5, AvgWin: 0, AvgLoss: 100}

	_, err := eng.ExecuteSignal(context.Background(), buySignal(), indSet())
	assert.Error(t, err)
}

func TestOnTradeClosedFeedsRiskAndJournal(t *testing.T) {
	t.Parallel()

	eng, _, rm, jnl := newTestEngine(t, testLimits(), testOptions())

	exit := time.Date(2024, 3, 1, 16, 0, 0, 0, time.UTC)
	eng.OnTradeClosed(broker.Trade{
		Symbol:     "AAPL",
		Quantity:   100,
		EntryPrice: 100,
		ExitPrice:  98,
		ExitTime:   exit,
		RealizedPL: -200,
		Reason:     "stop_loss",
	})

	st := rm.Snapshot()
	assert.Equal(t, 1, st.ConsecutiveLosses)
	assert.Equal(t, -200.0, st.DailyPL)

	require.Len(t, jnl.trades, 1)
	assert.NotEmpty(t, jnl.trades[0].TradeID)
	assert.Equal(t, "stop_loss", jnl.trades[0].Reason)
}
