// Package pnl tracks the equity curve of one account over one run.
package pnl

import (
	"sync"
	"time"
)

// Point is one equity-curve sample, taken once per bar.
type Point struct {
	Time       time.Time
	Equity     float64
	Cash       float64
	Realized   float64
	Unrealized float64

	// Drawdown is the fractional decline from the running peak at
	// this sample, 0 when at a new high.
	Drawdown float64
}

// Tracker accumulates equity samples and the running peak. The peak
// never decreases within a run.
type Tracker struct {
	mu sync.Mutex

	initial float64
	peak    float64
	maxDD   float64
	points  []Point
}

func NewTracker(initialCapital float64) *Tracker {
	return &Tracker{
		initial: initialCapital,
		peak:    initialCapital,
	}
}

// Observe appends one sample. Equity is always cash plus unrealized
// value; callers pass components so the curve can be journaled.
func (t *Tracker) Observe(at time.Time, cash, positionValue, realized, unrealized float64) Point {
	t.mu.Lock()
	defer t.mu.Unlock()

	equity := cash + positionValue
	if equity > t.peak {
		t.peak = equity
	}

	dd := 0.0
	if t.peak > 0 {
		dd = (t.peak - equity) / t.peak
	}
	if dd > t.maxDD {
		t.maxDD = dd
	}

	p := Point{
		Time:       at,
		Equity:     equity,
		Cash:       cash,
		Realized:   realized,
		Unrealized: unrealized,
		Drawdown:   dd,
	}
	t.points = append(t.points, p)
	return p
}

// Curve returns the samples in observation order.
func (t *Tracker) Curve() []Point {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]Point(nil), t.points...)
}

// Last returns the most recent sample, or false before any Observe.
func (t *Tracker) Last() (Point, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.points) == 0 {
		return Point{}, false
	}
	return t.points[len(t.points)-1], true
}

// Peak returns the highest equity seen so far.
func (t *Tracker) Peak() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.peak
}

// MaxDrawdown returns the deepest fractional drawdown seen so far.
func (t *Tracker) MaxDrawdown() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.maxDD
}

// Initial returns the starting capital.
func (t *Tracker) Initial() float64 {
	return t.initial
}

// TotalReturn is the fractional return from initial capital to the
// latest sample, 0 before any Observe.
func (t *Tracker) TotalReturn() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()

	if len(t.points) == 0 || t.initial == 0 {
		return 0
	}
	return (t.points[len(t.points)-1].Equity - t.initial) / t.initial
}
