package indicators

import (
	"fmt"
	"math"

	"github.com/rgallant/tradesim/market"
)

// Bollinger computes N-period mean plus/minus K standard deviations of
// closes. It exposes the middle band through Value() and the full band
// set through Bands().
type Bollinger struct {
	period int
	stdevs float64
	closes []float64
}

func NewBollinger(period int, stdevs float64) *Bollinger {
	return &Bollinger{
		period: period,
		stdevs: stdevs,
		closes: make([]float64, 0, period),
	}
}

func (bb *Bollinger) Name() string {
	return fmt.Sprintf("BB(%d,%.1f)", bb.period, bb.stdevs)
}

func (bb *Bollinger) Warmup() int {
	return bb.period
}

func (bb *Bollinger) Reset() {
	bb.closes = bb.closes[:0]
}

func (bb *Bollinger) Update(b market.Bar) {
	bb.closes = append(bb.closes, b.Close)
	if len(bb.closes) > bb.period {
		bb.closes = bb.closes[1:]
	}
}

func (bb *Bollinger) Ready() bool {
	return len(bb.closes) >= bb.period
}

// Value returns the middle band (the N-period mean).
func (bb *Bollinger) Value() float64 {
	mid, _, _ := bb.Bands()
	return mid
}

// Bands returns (middle, upper, lower). All zero when not Ready.
func (bb *Bollinger) Bands() (mid, upper, lower float64) {
	if !bb.Ready() {
		return 0, 0, 0
	}

	sum := 0.0
	for _, c := range bb.closes {
		sum += c
	}
	mean := sum / float64(len(bb.closes))

	variance := 0.0
	for _, c := range bb.closes {
		d := c - mean
		variance += d * d
	}
	std := math.Sqrt(variance / float64(len(bb.closes)))

	return mean, mean + bb.stdevs*std, mean - bb.stdevs*std
}
