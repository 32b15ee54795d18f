package cli

import (
	"fmt"

	"github.com/rgallant/tradesim/backtest"
	"github.com/rgallant/tradesim/config"
	"github.com/spf13/cobra"
)

var sweepCmd = &cobra.Command{
	Use:   "sweep <config>...",
	Short: "Run several backtest configurations in parallel",
	Long: `Sweep runs one backtest per configuration file concurrently and prints
a comparison table in the order the files were given.

Example:
  tradesim sweep conservative.yaml moderate.yaml aggressive.yaml`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSweep,
}

func init() {
	rootCmd.AddCommand(sweepCmd)
}

func runSweep(cmd *cobra.Command, args []string) error {
	cfgs := make([]*config.Config, len(args))
	for i, path := range args {
		cfg, err := config.LoadFromFile(path)
		if err != nil {
			return fmt.Errorf("load %s: %w", path, err)
		}
		cfgs[i] = cfg
	}

	results := backtest.RunSweep(cmd.Context(), cfgs)

	cmd.Printf("%-30s %12s %10s %10s %8s %8s\n",
		"CONFIG", "EQUITY", "RETURN", "MAX DD", "SHARPE", "TRADES")
	var failed int
	for i, sr := range results {
		if sr.Err != nil {
			cmd.Printf("%-30s failed: %v\n", args[i], sr.Err)
			failed++
			continue
		}
		r := sr.Result.Report
		cmd.Printf("%-30s %12.2f %9.2f%% %9.2f%% %8.2f %8d\n",
			args[i], r.FinalEquity, r.TotalReturn*100, r.MaxDrawdown*100,
			r.Sharpe, r.TotalTrades)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d runs failed", failed, len(results))
	}
	return nil
}
