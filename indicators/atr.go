package indicators

import (
	"fmt"

	"github.com/rgallant/tradesim/market"
)

// ATR is a streaming Average True Range with Wilder smoothing.
type ATR struct {
	period    int
	atr       float64
	count     int
	warmupSum float64

	prevClose float64
	hasPrev   bool
}

func NewATR(period int) *ATR {
	return &ATR{period: period}
}

func (a *ATR) Name() string {
	return fmt.Sprintf("ATR(%d)", a.period)
}

func (a *ATR) Warmup() int {
	// Need period+1 bars because TR requires a previous close.
	return a.period + 1
}

func (a *ATR) Reset() {
	a.atr = 0
	a.count = 0
	a.warmupSum = 0
	a.hasPrev = false
}

func (a *ATR) Update(b market.Bar) {
	if !a.hasPrev {
		a.prevClose = b.Close
		a.hasPrev = true
		return
	}

	tr := market.TrueRange(b, a.prevClose)
	a.prevClose = b.Close

	if a.count < a.period {
		a.warmupSum += tr
		a.count++
		if a.count == a.period {
			a.atr = a.warmupSum / float64(a.period)
		}
		return
	}

	// Wilder smoothing
	a.atr = (a.atr*float64(a.period-1) + tr) / float64(a.period)
}

func (a *ATR) Ready() bool {
	return a.count >= a.period
}

func (a *ATR) Value() float64 {
	if !a.Ready() {
		return 0
	}
	return a.atr
}

// ATRAverage tracks the trailing simple average of another ATR's value,
// used as the "normal" volatility baseline for position-size scaling
// and the risk manager's volatility gate.
type ATRAverage struct {
	atr    *ATR
	window int
	values []float64
}

func NewATRAverage(atr *ATR, window int) *ATRAverage {
	return &ATRAverage{
		atr:    atr,
		window: window,
		values: make([]float64, 0, window),
	}
}

func (v *ATRAverage) Name() string {
	return fmt.Sprintf("ATRAvg(%d,%d)", v.atr.period, v.window)
}

func (v *ATRAverage) Warmup() int {
	return v.atr.Warmup() + v.window - 1
}

func (v *ATRAverage) Reset() {
	v.values = v.values[:0]
}

// Update samples the underlying ATR. The underlying ATR must already
// have been updated with the same bar.
func (v *ATRAverage) Update(market.Bar) {
	if !v.atr.Ready() {
		return
	}
	v.values = append(v.values, v.atr.Value())
	if len(v.values) > v.window {
		v.values = v.values[1:]
	}
}

func (v *ATRAverage) Ready() bool {
	return len(v.values) >= v.window
}

func (v *ATRAverage) Value() float64 {
	if !v.Ready() {
		return 0
	}
	sum := 0.0
	for _, x := range v.values {
		sum += x
	}
	return sum / float64(len(v.values))
}
