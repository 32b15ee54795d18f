package journal

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// GetTrade returns a single trade record by ID.
func (j *SQLite) GetTrade(tradeID string) (TradeRecord, error) {
	var rec TradeRecord

	row := j.db.QueryRow(`
		SELECT trade_id, symbol, quantity, entry_price, exit_price, entry_time, exit_time, realized_pl, commission, reason
		FROM trades
		WHERE trade_id = ?`, tradeID)

	err := row.Scan(
		&rec.TradeID,
		&rec.Symbol,
		&rec.Quantity,
		&rec.EntryPrice,
		&rec.ExitPrice,
		&rec.EntryTime,
		&rec.ExitTime,
		&rec.RealizedPL,
		&rec.Commission,
		&rec.Reason,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return TradeRecord{}, fmt.Errorf("trade %q not found", tradeID)
		}
		return TradeRecord{}, err
	}
	return rec, nil
}

// ListTradesClosedBetween returns trades whose exit_time is within [start, end).
func (j *SQLite) ListTradesClosedBetween(start, end time.Time) ([]TradeRecord, error) {
	rows, err := j.db.Query(`
		SELECT trade_id, symbol, quantity, entry_price, exit_price, entry_time, exit_time, realized_pl, commission, reason
		FROM trades
		WHERE exit_time >= ? AND exit_time < ?
		ORDER BY exit_time ASC`, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []TradeRecord
	for rows.Next() {
		var rec TradeRecord
		if err := rows.Scan(
			&rec.TradeID,
			&rec.Symbol,
			&rec.Quantity,
			&rec.EntryPrice,
			&rec.ExitPrice,
			&rec.EntryTime,
			&rec.ExitTime,
			&rec.RealizedPL,
			&rec.Commission,
			&rec.Reason,
		); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// ListOrdersBetween returns orders submitted within [start, end).
func (j *SQLite) ListOrdersBetween(start, end time.Time) ([]OrderRecord, error) {
	rows, err := j.db.Query(`
		SELECT order_id, time, symbol, side, quantity, type, status, fill_price, stop_loss, take_profit, strategy, confidence, reason, metadata
		FROM orders
		WHERE time >= ? AND time < ?
		ORDER BY time ASC, order_id ASC`, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []OrderRecord
	for rows.Next() {
		var rec OrderRecord
		var meta string
		if err := rows.Scan(
			&rec.OrderID,
			&rec.Time,
			&rec.Symbol,
			&rec.Side,
			&rec.Quantity,
			&rec.Type,
			&rec.Status,
			&rec.FillPrice,
			&rec.StopLoss,
			&rec.TakeProfit,
			&rec.Strategy,
			&rec.Confidence,
			&rec.Reason,
			&meta,
		); err != nil {
			return nil, err
		}
		if meta != "" && meta != "null" {
			if err := json.Unmarshal([]byte(meta), &rec.Metadata); err != nil {
				return nil, fmt.Errorf("order %s: bad metadata: %w", rec.OrderID, err)
			}
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// ListEquityBetween returns equity samples within [start, end).
func (j *SQLite) ListEquityBetween(start, end time.Time) ([]EquitySnapshot, error) {
	rows, err := j.db.Query(`
		SELECT time, cash, equity, realized, unrealized, drawdown
		FROM equity
		WHERE time >= ? AND time < ?
		ORDER BY time ASC`, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []EquitySnapshot
	for rows.Next() {
		var rec EquitySnapshot
		if err := rows.Scan(
			&rec.Time,
			&rec.Cash,
			&rec.Equity,
			&rec.Realized,
			&rec.Unrealized,
			&rec.Drawdown,
		); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// GetRun returns one backtest run summary by ID.
func (j *SQLite) GetRun(runID string) (RunRecord, error) {
	var rec RunRecord
	var config string

	row := j.db.QueryRow(`
		SELECT run_id, created, symbols, strategy, start_time, end_time, initial_capital, final_equity, total_return, max_drawdown, sharpe, trades, win_rate, config
		FROM runs
		WHERE run_id = ?`, runID)

	err := row.Scan(
		&rec.RunID,
		&rec.Created,
		&rec.Symbols,
		&rec.Strategy,
		&rec.Start,
		&rec.End,
		&rec.InitialCapital,
		&rec.FinalEquity,
		&rec.TotalReturn,
		&rec.MaxDrawdown,
		&rec.Sharpe,
		&rec.Trades,
		&rec.WinRate,
		&config,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return RunRecord{}, fmt.Errorf("run %q not found", runID)
		}
		return RunRecord{}, err
	}
	rec.Config = []byte(config)
	return rec, nil
}

// ListRuns returns run summaries newest first.
func (j *SQLite) ListRuns(limit int) ([]RunRecord, error) {
	rows, err := j.db.Query(`
		SELECT run_id, created, symbols, strategy, start_time, end_time, initial_capital, final_equity, total_return, max_drawdown, sharpe, trades, win_rate, config
		FROM runs
		ORDER BY created DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []RunRecord
	for rows.Next() {
		var rec RunRecord
		var config string
		if err := rows.Scan(
			&rec.RunID,
			&rec.Created,
			&rec.Symbols,
			&rec.Strategy,
			&rec.Start,
			&rec.End,
			&rec.InitialCapital,
			&rec.FinalEquity,
			&rec.TotalReturn,
			&rec.MaxDrawdown,
			&rec.Sharpe,
			&rec.Trades,
			&rec.WinRate,
			&config,
		); err != nil {
			return nil, err
		}
		rec.Config = []byte(config)
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
