package journal

import "time"

// RunRecord mirrors the runs table: one row per completed backtest,
// enough to compare parameter sweeps without replaying the ledger.
type RunRecord struct {
	RunID    string
	Created  time.Time
	Symbols  string // comma-joined
	Strategy string

	Start time.Time
	End   time.Time

	InitialCapital float64
	FinalEquity    float64
	TotalReturn    float64
	MaxDrawdown    float64
	Sharpe         float64
	Trades         int
	WinRate        float64

	// Config is the run configuration serialized to YAML, kept so a
	// row is reproducible on its own.
	Config []byte
}
