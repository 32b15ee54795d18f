package journal

import (
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSQLite(t *testing.T) (*SQLite, string) {
	t.Helper()

	dir := t.TempDir()
	path := filepath.Join(dir, "test.db")

	j, err := NewSQLite(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = j.Close() })

	return j, path
}

func TestSQLiteSchemaCreated(t *testing.T) {
	t.Parallel()

	_, path := newTestSQLite(t)

	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	rows, err := db.Query(`SELECT name FROM sqlite_master WHERE type='table' AND name IN ('orders','trades','equity','runs')`)
	require.NoError(t, err)
	defer rows.Close()

	found := map[string]bool{}
	for rows.Next() {
		var name string
		assert.NoError(t, rows.Scan(&name))
		found[name] = true
	}
	assert.NoError(t, rows.Err())

	assert.True(t, found["orders"])
	assert.True(t, found["trades"])
	assert.True(t, found["equity"])
	assert.True(t, found["runs"])
}

func TestSQLiteRecordTrade(t *testing.T) {
	t.Parallel()

	j, _ := newTestSQLite(t)

	entry := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	exit := time.Date(2024, 1, 2, 4, 5, 6, 0, time.UTC)

	rec := TradeRecord{
		TradeID:    "T1",
		Symbol:     "AAPL",
		Quantity:   100,
		EntryPrice: 150.25,
		ExitPrice:  155.50,
		EntryTime:  entry,
		ExitTime:   exit,
		RealizedPL: 525,
		Commission: 1,
		Reason:     "take_profit",
	}
	require.NoError(t, j.RecordTrade(rec))

	got, err := j.GetTrade("T1")
	require.NoError(t, err)
	assert.Equal(t, rec.Symbol, got.Symbol)
	assert.Equal(t, rec.Quantity, got.Quantity)
	assert.Equal(t, rec.RealizedPL, got.RealizedPL)
	assert.Equal(t, rec.Reason, got.Reason)
	assert.True(t, got.EntryTime.Equal(entry))

	_, err = j.GetTrade("T9")
	assert.ErrorContains(t, err, "not found")
}

func TestSQLiteRecordOrderRoundTrip(t *testing.T) {
	t.Parallel()

	j, _ := newTestSQLite(t)

	at := time.Date(2024, 1, 2, 15, 30, 0, 0, time.UTC)
	rec := OrderRecord{
		Time:       at,
		OrderID:    "O-000001",
		Symbol:     "AAPL",
		Side:       "BUY",
		Quantity:   100,
		Type:       "MARKET",
		Status:     "FILLED",
		FillPrice:  150.25,
		StopLoss:   145,
		TakeProfit: 160,
		Strategy:   "scored",
		Confidence: 85,
		Reason:     "ma crossover",
		Metadata:   map[string]string{"rsi": "28.4"},
	}
	require.NoError(t, j.RecordOrder(rec))

	got, err := j.ListOrdersBetween(at.Add(-time.Hour), at.Add(time.Hour))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, rec.OrderID, got[0].OrderID)
	assert.Equal(t, rec.Status, got[0].Status)
	assert.Equal(t, rec.Metadata, got[0].Metadata)
}

func TestSQLiteRunRecord(t *testing.T) {
	t.Parallel()

	j, _ := newTestSQLite(t)

	rec := RunRecord{
		RunID:          "01HV0TESTRUN",
		Created:        time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC),
		Symbols:        "AAPL,MSFT",
		Strategy:       "scored",
		Start:          time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		End:            time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
		InitialCapital: 100000,
		FinalEquity:    112000,
		TotalReturn:    0.12,
		MaxDrawdown:    0.04,
		Sharpe:         1.3,
		Trades:         42,
		WinRate:        0.55,
		Config:         []byte("symbols: [AAPL, MSFT]"),
	}
	require.NoError(t, j.RecordRun(rec))

	got, err := j.GetRun(rec.RunID)
	require.NoError(t, err)
	assert.Equal(t, rec.FinalEquity, got.FinalEquity)
	assert.Equal(t, rec.Trades, got.Trades)
	assert.Equal(t, rec.Config, got.Config)

	runs, err := j.ListRuns(10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, rec.RunID, runs[0].RunID)
}
