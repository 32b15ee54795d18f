package journal

import (
	"encoding/csv"
	"encoding/json"
	"os"
	"strconv"
	"time"
)

type CSVJournal struct {
	orders *csv.Writer
	trades *csv.Writer
	equity *csv.Writer
	of     *os.File
	tf     *os.File
	ef     *os.File
}

func NewCSV(ordersPath, tradesPath, equityPath string) (*CSVJournal, error) {
	of, err := os.Create(ordersPath)
	if err != nil {
		return nil, err
	}
	tf, err := os.Create(tradesPath)
	if err != nil {
		of.Close()
		return nil, err
	}
	ef, err := os.Create(equityPath)
	if err != nil {
		of.Close()
		tf.Close()
		return nil, err
	}

	ow := csv.NewWriter(of)
	tw := csv.NewWriter(tf)
	ew := csv.NewWriter(ef)

	if err := ow.Write([]string{"time", "order_id", "symbol", "side", "quantity", "type", "status", "fill_price", "stop_loss", "take_profit", "strategy", "confidence", "reason", "metadata"}); err != nil {
		return nil, err
	}
	if err := tw.Write([]string{"trade_id", "symbol", "quantity", "entry_price", "exit_price", "entry_time", "exit_time", "realized_pl", "commission", "reason"}); err != nil {
		return nil, err
	}
	if err := ew.Write([]string{"time", "cash", "equity", "realized", "unrealized", "drawdown"}); err != nil {
		return nil, err
	}

	for _, w := range []*csv.Writer{ow, tw, ew} {
		w.Flush()
		if err := w.Error(); err != nil {
			return nil, err
		}
	}

	return &CSVJournal{ow, tw, ew, of, tf, ef}, nil
}

func (j *CSVJournal) RecordOrder(o OrderRecord) error {
	meta, err := json.Marshal(o.Metadata)
	if err != nil {
		return err
	}

	if err := j.orders.Write([]string{
		o.Time.Format(time.RFC3339),
		o.OrderID,
		o.Symbol,
		o.Side,
		f(o.Quantity),
		o.Type,
		o.Status,
		f(o.FillPrice),
		f(o.StopLoss),
		f(o.TakeProfit),
		o.Strategy,
		f(o.Confidence),
		o.Reason,
		string(meta),
	}); err != nil {
		return err
	}
	j.orders.Flush()
	return j.orders.Error()
}

func (j *CSVJournal) RecordTrade(t TradeRecord) error {
	if err := j.trades.Write([]string{
		t.TradeID,
		t.Symbol,
		f(t.Quantity),
		f(t.EntryPrice),
		f(t.ExitPrice),
		t.EntryTime.Format(time.RFC3339),
		t.ExitTime.Format(time.RFC3339),
		f(t.RealizedPL),
		f(t.Commission),
		t.Reason,
	}); err != nil {
		return err
	}
	j.trades.Flush()
	return j.trades.Error()
}

func (j *CSVJournal) RecordEquity(e EquitySnapshot) error {
	if err := j.equity.Write([]string{
		e.Time.Format(time.RFC3339),
		f(e.Cash),
		f(e.Equity),
		f(e.Realized),
		f(e.Unrealized),
		f(e.Drawdown),
	}); err != nil {
		return err
	}
	j.equity.Flush()
	return j.equity.Error()
}

func (j *CSVJournal) Close() error {
	j.orders.Flush()
	if err := j.orders.Error(); err != nil {
		return err
	}
	j.trades.Flush()
	if err := j.trades.Error(); err != nil {
		return err
	}
	j.equity.Flush()
	if err := j.equity.Error(); err != nil {
		return err
	}

	if err := j.of.Close(); err != nil {
		return err
	}
	if err := j.tf.Close(); err != nil {
		return err
	}
	return j.ef.Close()
}

func f(x float64) string {
	return strconv.FormatFloat(x, 'f', 6, 64)
}
