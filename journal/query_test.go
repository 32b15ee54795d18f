package journal

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedTrades(t *testing.T, j *SQLite, n int, start time.Time) {
	t.Helper()

	for i := 0; i < n; i++ {
		exit := start.Add(time.Duration(i) * time.Hour)
		err := j.RecordTrade(TradeRecord{
			TradeID:    fmt.Sprintf("T%d", i+1),
			Symbol:     "AAPL",
			Quantity:   10,
			EntryPrice: 100,
			ExitPrice:  101,
			EntryTime:  exit.Add(-30 * time.Minute),
			ExitTime:   exit,
			RealizedPL: 10,
			Reason:     "signal",
		})
		require.NoError(t, err)
	}
}

func TestListTradesClosedBetween(t *testing.T) {
	t.Parallel()

	j, _ := newTestSQLite(t)
	start := time.Date(2024, 1, 2, 10, 0, 0, 0, time.UTC)
	seedTrades(t, j, 5, start)

	// Half-open interval: trades at hours 1 and 2, not 3.
	got, err := j.ListTradesClosedBetween(start.Add(time.Hour), start.Add(3*time.Hour))
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "T2", got[0].TradeID)
	assert.Equal(t, "T3", got[1].TradeID)

	got, err = j.ListTradesClosedBetween(start.Add(24*time.Hour), start.Add(48*time.Hour))
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestListEquityBetween(t *testing.T) {
	t.Parallel()

	j, _ := newTestSQLite(t)
	start := time.Date(2024, 1, 2, 16, 0, 0, 0, time.UTC)

	for i := 0; i < 4; i++ {
		err := j.RecordEquity(EquitySnapshot{
			Time:   start.AddDate(0, 0, i),
			Cash:   100000,
			Equity: 100000 + float64(i)*500,
		})
		require.NoError(t, err)
	}

	got, err := j.ListEquityBetween(start, start.AddDate(0, 0, 2))
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, 100000.0, got[0].Equity)
	assert.Equal(t, 100500.0, got[1].Equity)
}

func TestOrdersSortedByTimeThenID(t *testing.T) {
	t.Parallel()

	j, _ := newTestSQLite(t)
	at := time.Date(2024, 1, 2, 15, 30, 0, 0, time.UTC)

	// Two orders on the same bar must come back in id order.
	for _, id := range []string{"O-000002", "O-000001"} {
		err := j.RecordOrder(OrderRecord{
			Time: at, OrderID: id, Symbol: "AAPL", Side: "BUY",
			Quantity: 1, Type: "MARKET", Status: "FILLED",
		})
		require.NoError(t, err)
	}

	got, err := j.ListOrdersBetween(at.Add(-time.Minute), at.Add(time.Minute))
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "O-000001", got[0].OrderID)
	assert.Equal(t, "O-000002", got[1].OrderID)
}
