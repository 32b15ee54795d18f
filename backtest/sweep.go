package backtest

import (
	"context"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/rgallant/tradesim/config"
)

// SweepResult pairs one sweep entry with its outcome. Exactly one of
// Result and Err is set.
type SweepResult struct {
	Index  int
	Result *Result
	Err    error
}

// RunSweep executes independent configurations concurrently. Each run
// owns its broker, risk state, and curve, so no synchronization is
// needed beyond collecting results, which come back in input order.
func RunSweep(ctx context.Context, cfgs []*config.Config) []SweepResult {
	out := make([]SweepResult, len(cfgs))

	var wg sync.WaitGroup
	for i, cfg := range cfgs {
		wg.Add(1)
		go func(i int, cfg *config.Config) {
			defer wg.Done()
			res, err := New(cfg).Run(ctx)
			out[i] = SweepResult{Index: i, Result: res, Err: err}
		}(i, cfg)
	}
	wg.Wait()

	return out
}

func joinSymbols(symbols []string) string {
	return strings.Join(symbols, ",")
}

func configYAML(cfg *config.Config) ([]byte, error) {
	return yaml.Marshal(cfg)
}
