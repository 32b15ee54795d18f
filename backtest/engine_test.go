package backtest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rgallant/tradesim/broker"
	_ "github.com/rgallant/tradesim/broker/sim"
	"github.com/rgallant/tradesim/config"
	"github.com/rgallant/tradesim/indicators"
	"github.com/rgallant/tradesim/risk"
	"github.com/rgallant/tradesim/sizing"
)

// A V-shaped series with a choppy recovery: enough movement to arm
// the short-period indicators and produce actionable signals.
var testCloses = []float64{
	100, 98, 96, 94, 92, 94, 97, 95, 98, 96, 99, 101, 99, 102, 104, 102, 105,
}

func writeBars(t *testing.T, dir, symbol string, closes []float64) {
	t.Helper()

	var buf []byte
	buf = append(buf, "time,open,high,low,close,volume\n"...)
	prev := closes[0]
	for i, c := range closes {
		day := fmt.Sprintf("2024-03-%02d", i+1)
		row := fmt.Sprintf("%s,%.2f,%.2f,%.2f,%.2f,1000000\n", day, prev, c+1, c-1, c)
		buf = append(buf, row...)
		prev = c
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, symbol+".csv"), buf, 0644))
}

func testConfig(t *testing.T, symbols ...string) *config.Config {
	t.Helper()

	dir := t.TempDir()
	for _, sym := range symbols {
		writeBars(t, dir, sym, testCloses)
	}

	cfg := config.Default()
	cfg.Data = config.DataConfig{Dir: dir, Symbols: symbols, Interval: "1d"}
	cfg.Broker = broker.Config{Kind: "sim", InitialCash: 100000}
	cfg.Indicators = indicators.Config{
		ShortMAPeriod: 2,
		LongMAPeriod:  3,
		RSIPeriod:     2,
		BBPeriod:      3,
		BBStdDev:      2.0,
		ATRPeriod:     2,
		ATRAvgWindow:  3,
		MACDFast:      2,
		MACDSlow:      3,
		MACDSignal:    2,
		VolumeWindow:  2,
	}
	cfg.Signal.Threshold = 1
	cfg.Sizing = sizing.Method{Kind: sizing.PercentEquity, RiskPct: 0.003}
	cfg.Risk = risk.DefaultLimits()
	cfg.Journal.Type = "none"
	return cfg
}

func TestRunProcessesEveryBar(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t, "AAPL")
	res, err := New(cfg).Run(context.Background())
	require.NoError(t, err)

	assert.NotEmpty(t, res.RunID)
	assert.Equal(t, []string{"AAPL"}, res.Symbols)
	assert.Equal(t, len(testCloses), res.SignalsSeen)
	assert.Len(t, res.Curve, len(testCloses), "one equity sample per bar")
	assert.Equal(t, "2024-03-01", res.Start.Format("2006-01-02"))
	assert.Equal(t, "2024-03-17", res.End.Format("2006-01-02"))

	// The choppy recovery must generate at least one order.
	assert.Greater(t, res.OrdersPlaced, 0)

	last := res.Curve[len(res.Curve)-1]
	assert.Equal(t, last.Equity, res.FinalAccount.Equity)
}

func TestRunIsDeterministic(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t, "AAPL", "MSFT")

	a, err := New(cfg).Run(context.Background())
	require.NoError(t, err)
	b, err := New(cfg).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, a.Trades, b.Trades)
	assert.Equal(t, a.Curve, b.Curve)
	assert.Equal(t, a.Report, b.Report)
	assert.Equal(t, a.FinalAccount.Equity, b.FinalAccount.Equity)
}

// Truncating the data must reproduce the full run's prefix exactly:
// nothing a later bar does may reach back into earlier samples.
func TestNoLookahead(t *testing.T) {
	t.Parallel()

	full := testConfig(t, "AAPL")
	fullRes, err := New(full).Run(context.Background())
	require.NoError(t, err)

	clone := *full
	short := &clone
	dir := t.TempDir()
	writeBars(t, dir, "AAPL", testCloses[:12])
	short.Data = config.DataConfig{Dir: dir, Symbols: []string{"AAPL"}, Interval: "1d"}

	shortRes, err := New(short).Run(context.Background())
	require.NoError(t, err)

	require.Len(t, shortRes.Curve, 12)
	assert.Equal(t, fullRes.Curve[:12], shortRes.Curve)
}

func TestRunRangeFilter(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t, "AAPL")
	cfg.Data.Start = "2024-03-05"
	cfg.Data.End = "2024-03-10"

	res, err := New(cfg).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "2024-03-05", res.Start.Format("2006-01-02"))
	assert.True(t, res.End.Format("2006-01-02") <= "2024-03-10")
}

func TestRunFailsOnMissingData(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t, "AAPL")
	cfg.Data.Symbols = []string{"NOPE"}

	_, err := New(cfg).Run(context.Background())
	assert.Error(t, err)
}

func TestRunRespectsContextCancellation(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t, "AAPL")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(cfg).Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
