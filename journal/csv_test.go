package journal

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCSV(t *testing.T) (*CSVJournal, string, string, string) {
	t.Helper()

	dir := t.TempDir()
	ordersPath := filepath.Join(dir, "orders.csv")
	tradesPath := filepath.Join(dir, "trades.csv")
	equityPath := filepath.Join(dir, "equity.csv")

	j, err := NewCSV(ordersPath, tradesPath, equityPath)
	require.NoError(t, err)

	return j, ordersPath, tradesPath, equityPath
}

func readAll(t *testing.T, path string) [][]string {
	t.Helper()

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	rows, err := csv.NewReader(strings.NewReader(string(data))).ReadAll()
	require.NoError(t, err)
	return rows
}

func TestCSVJournalHeaders(t *testing.T) {
	t.Parallel()

	j, ordersPath, tradesPath, equityPath := newTestCSV(t)
	require.NoError(t, j.Close())

	orders := readAll(t, ordersPath)
	require.Len(t, orders, 1)
	assert.Equal(t, []string{"time", "order_id", "symbol", "side", "quantity", "type", "status", "fill_price", "stop_loss", "take_profit", "strategy", "confidence", "reason", "metadata"}, orders[0])

	trades := readAll(t, tradesPath)
	require.Len(t, trades, 1)
	assert.Equal(t, []string{"trade_id", "symbol", "quantity", "entry_price", "exit_price", "entry_time", "exit_time", "realized_pl", "commission", "reason"}, trades[0])

	equity := readAll(t, equityPath)
	require.Len(t, equity, 1)
	assert.Equal(t, []string{"time", "cash", "equity", "realized", "unrealized", "drawdown"}, equity[0])
}

func TestCSVJournalRecordTrade(t *testing.T) {
	t.Parallel()

	j, _, tradesPath, _ := newTestCSV(t)

	entry := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	exit := time.Date(2024, 1, 2, 4, 5, 6, 0, time.UTC)

	err := j.RecordTrade(TradeRecord{
		TradeID:    "T1",
		Symbol:     "AAPL",
		Quantity:   100,
		EntryPrice: 150.25,
		ExitPrice:  155.5,
		EntryTime:  entry,
		ExitTime:   exit,
		RealizedPL: 525,
		Commission: 1,
		Reason:     "take_profit",
	})
	require.NoError(t, err)
	require.NoError(t, j.Close())

	rows := readAll(t, tradesPath)
	require.Len(t, rows, 2)

	row := rows[1]
	assert.Equal(t, "T1", row[0])
	assert.Equal(t, "AAPL", row[1])
	assert.Equal(t, "100.000000", row[2])
	assert.Equal(t, entry.Format(time.RFC3339), row[5])
	assert.Equal(t, "take_profit", row[9])
}

func TestCSVJournalRecordOrderAndEquity(t *testing.T) {
	t.Parallel()

	j, ordersPath, _, equityPath := newTestCSV(t)

	at := time.Date(2024, 1, 2, 15, 30, 0, 0, time.UTC)
	err := j.RecordOrder(OrderRecord{
		Time:     at,
		OrderID:  "O-000001",
		Symbol:   "AAPL",
		Side:     "BUY",
		Quantity: 100,
		Type:     "MARKET",
		Status:   "FILLED",
		Metadata: map[string]string{"score": "4"},
	})
	require.NoError(t, err)

	err = j.RecordEquity(EquitySnapshot{
		Time:   at,
		Cash:   85000,
		Equity: 100100,
	})
	require.NoError(t, err)
	require.NoError(t, j.Close())

	orders := readAll(t, ordersPath)
	require.Len(t, orders, 2)
	assert.Equal(t, "O-000001", orders[1][1])
	assert.Contains(t, orders[1][13], `"score":"4"`)

	equity := readAll(t, equityPath)
	require.Len(t, equity, 2)
	assert.Equal(t, "100100.000000", equity[1][2])
}
