// Package market defines price bars and the data-source contract the
// rest of the system consumes.
package market

import (
	"context"
	"fmt"
	"time"
)

// Bar is one OHLCV candle. Bars are immutable once loaded and a series
// is strictly ordered by Time; no two bars for the same symbol share a
// timestamp.
type Bar struct {
	Time   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

// Source supplies historical bars for a symbol. Fetching and caching
// mechanics live behind this contract; the engine only needs ordered
// bars.
type Source interface {
	GetBars(ctx context.Context, symbol string, start, end time.Time, interval string) ([]Bar, error)
}

// ValidateSeries checks that bars are strictly increasing in time and
// have sane OHLC relations. A series that fails here is a data error,
// not something the engine should limp through.
func ValidateSeries(bars []Bar) error {
	for i, b := range bars {
		if b.High < b.Low {
			return fmt.Errorf("bar %d (%s): high %.6f below low %.6f", i, b.Time.Format(time.RFC3339), b.High, b.Low)
		}
		if b.Open > b.High || b.Open < b.Low || b.Close > b.High || b.Close < b.Low {
			return fmt.Errorf("bar %d (%s): open/close outside high-low range", i, b.Time.Format(time.RFC3339))
		}
		if i > 0 && !b.Time.After(bars[i-1].Time) {
			return fmt.Errorf("bar %d (%s): timestamp not after previous bar", i, b.Time.Format(time.RFC3339))
		}
	}
	return nil
}

// TrueRange for a bar given the previous close: max of high-low,
// |high-prevClose|, |low-prevClose|.
func TrueRange(cur Bar, prevClose float64) float64 {
	hl := cur.High - cur.Low
	hc := abs(cur.High - prevClose)
	lc := abs(cur.Low - prevClose)

	tr := hl
	if hc > tr {
		tr = hc
	}
	if lc > tr {
		tr = lc
	}
	return tr
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}
