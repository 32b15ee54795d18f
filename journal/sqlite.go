package journal

import (
	"database/sql"
	"encoding/json"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

type SQLite struct {
	db *sql.DB
}

func NewSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open journal db: %w", err)
	}

	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create journal schema: %w", err)
	}

	return &SQLite{db: db}, nil
}

func (j *SQLite) RecordOrder(o OrderRecord) error {
	meta, err := json.Marshal(o.Metadata)
	if err != nil {
		return fmt.Errorf("marshal order metadata: %w", err)
	}

	_, err = j.db.Exec(`
		INSERT INTO orders
		(order_id, time, symbol, side, quantity, type, status, fill_price, stop_loss, take_profit, strategy, confidence, reason, metadata)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		o.OrderID, o.Time, o.Symbol, o.Side, o.Quantity, o.Type, o.Status,
		o.FillPrice, o.StopLoss, o.TakeProfit, o.Strategy, o.Confidence, o.Reason, string(meta),
	)
	return err
}

func (j *SQLite) RecordTrade(t TradeRecord) error {
	_, err := j.db.Exec(`
		INSERT INTO trades
		(trade_id, symbol, quantity, entry_price, exit_price, entry_time, exit_time, realized_pl, commission, reason)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.TradeID, t.Symbol, t.Quantity, t.EntryPrice,
		t.ExitPrice, t.EntryTime, t.ExitTime, t.RealizedPL, t.Commission, t.Reason,
	)
	return err
}

func (j *SQLite) RecordEquity(e EquitySnapshot) error {
	_, err := j.db.Exec(`
		INSERT INTO equity
		(time, cash, equity, realized, unrealized, drawdown)
		VALUES (?, ?, ?, ?, ?, ?)`,
		e.Time, e.Cash, e.Equity, e.Realized, e.Unrealized, e.Drawdown,
	)
	return err
}

// RecordRun stores one backtest run summary.
func (j *SQLite) RecordRun(r RunRecord) error {
	_, err := j.db.Exec(`
		INSERT INTO runs
		(run_id, created, symbols, strategy, start_time, end_time, initial_capital, final_equity, total_return, max_drawdown, sharpe, trades, win_rate, config)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.RunID, r.Created, r.Symbols, r.Strategy, r.Start, r.End,
		r.InitialCapital, r.FinalEquity, r.TotalReturn, r.MaxDrawdown,
		r.Sharpe, r.Trades, r.WinRate, string(r.Config),
	)
	return err
}

func (j *SQLite) Close() error {
	return j.db.Close()
}
