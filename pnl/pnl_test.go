package pnl

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func at(d int) time.Time {
	return time.Date(2024, 3, d, 16, 0, 0, 0, time.UTC)
}

func TestTrackerPeakMonotone(t *testing.T) {
	t.Parallel()

	tr := NewTracker(100000)

	tr.Observe(at(1), 100000, 0, 0, 0)
	tr.Observe(at(2), 95000, 10000, 0, 5000) // equity 105000, new peak
	tr.Observe(at(3), 95000, 8000, 0, 3000)  // equity 103000, below peak

	assert.Equal(t, 105000.0, tr.Peak())

	curve := tr.Curve()
	require.Len(t, curve, 3)
	assert.Zero(t, curve[0].Drawdown)
	assert.Zero(t, curve[1].Drawdown)
	assert.InDelta(t, 2000.0/105000.0, curve[2].Drawdown, 1e-12)
}

func TestTrackerMaxDrawdownSticky(t *testing.T) {
	t.Parallel()

	tr := NewTracker(100000)
	tr.Observe(at(1), 100000, 0, 0, 0)
	tr.Observe(at(2), 80000, 0, -20000, 0)
	tr.Observe(at(3), 99000, 0, -1000, 0) // recovery

	assert.InDelta(t, 0.20, tr.MaxDrawdown(), 1e-12)

	last, ok := tr.Last()
	require.True(t, ok)
	assert.InDelta(t, 0.01, last.Drawdown, 1e-12)
}

func TestTrackerTotalReturn(t *testing.T) {
	t.Parallel()

	tr := NewTracker(100000)
	assert.Zero(t, tr.TotalReturn())

	tr.Observe(at(1), 110000, 0, 10000, 0)
	assert.InDelta(t, 0.10, tr.TotalReturn(), 1e-12)

	_, ok := NewTracker(100000).Last()
	assert.False(t, ok)
}
