package indicators

import (
	"fmt"

	"github.com/rgallant/tradesim/market"
)

// RSI is a streaming Relative Strength Index using Wilder smoothing:
// average gain / average loss over the period, mapped to 0-100.
type RSI struct {
	period  int
	avgGain float64
	avgLoss float64

	prevClose float64
	hasPrev   bool
	count     int

	warmupGain float64
	warmupLoss float64
}

func NewRSI(period int) *RSI {
	return &RSI{period: period}
}

func (r *RSI) Name() string {
	return fmt.Sprintf("RSI(%d)", r.period)
}

func (r *RSI) Warmup() int {
	// One extra bar because deltas need a previous close.
	return r.period + 1
}

func (r *RSI) Reset() {
	r.avgGain = 0
	r.avgLoss = 0
	r.prevClose = 0
	r.hasPrev = false
	r.count = 0
	r.warmupGain = 0
	r.warmupLoss = 0
}

func (r *RSI) Update(b market.Bar) {
	if !r.hasPrev {
		r.prevClose = b.Close
		r.hasPrev = true
		return
	}

	delta := b.Close - r.prevClose
	r.prevClose = b.Close

	gain, loss := 0.0, 0.0
	if delta > 0 {
		gain = delta
	} else {
		loss = -delta
	}

	if r.count < r.period {
		r.warmupGain += gain
		r.warmupLoss += loss
		r.count++
		if r.count == r.period {
			r.avgGain = r.warmupGain / float64(r.period)
			r.avgLoss = r.warmupLoss / float64(r.period)
		}
		return
	}

	// Wilder smoothing
	r.avgGain = (r.avgGain*float64(r.period-1) + gain) / float64(r.period)
	r.avgLoss = (r.avgLoss*float64(r.period-1) + loss) / float64(r.period)
}

func (r *RSI) Ready() bool {
	return r.count >= r.period
}

func (r *RSI) Value() float64 {
	if !r.Ready() {
		return 0
	}
	if r.avgLoss == 0 {
		if r.avgGain == 0 {
			return 50
		}
		return 100
	}
	rs := r.avgGain / r.avgLoss
	return 100 - 100/(1+rs)
}
