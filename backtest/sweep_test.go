package backtest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rgallant/tradesim/config"
)

func TestRunSweepCollectsInInputOrder(t *testing.T) {
	t.Parallel()

	conservative := testConfig(t, "AAPL")
	aggressive := testConfig(t, "AAPL")
	aggressive.Sizing.RiskPct = 0.001

	results := RunSweep(context.Background(), []*config.Config{conservative, aggressive})
	require.Len(t, results, 2)

	for i, r := range results {
		require.NoError(t, r.Err, "run %d", i)
		assert.Equal(t, i, r.Index)
		require.NotNil(t, r.Result)
	}

	// Concurrent runs share nothing: each matches its solo execution.
	solo, err := New(conservative).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, solo.Curve, results[0].Result.Curve)
	assert.Equal(t, solo.Trades, results[0].Result.Trades)
}
