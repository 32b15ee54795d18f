package cli

import (
	"fmt"

	"github.com/rgallant/tradesim/backtest"
	"github.com/rgallant/tradesim/config"
	"github.com/spf13/cobra"
)

var backtestCmd = &cobra.Command{
	Use:   "backtest",
	Short: "Run a backtest from a configuration file",
	Long: `Backtest replays historical bars through the full pipeline: indicators,
signal scoring, risk checks, simulated fills, and journaling.

Example:
  tradesim backtest -c simulation.yaml`,
	RunE: runBacktest,
}

var (
	btConfigPath string
	btSymbols    []string
	btStart      string
	btEnd        string
	btDryRun     bool
)

func init() {
	rootCmd.AddCommand(backtestCmd)

	backtestCmd.Flags().StringVarP(&btConfigPath, "config", "c", "", "path to config file (required)")
	backtestCmd.Flags().StringSliceVar(&btSymbols, "symbols", nil, "override configured symbols")
	backtestCmd.Flags().StringVar(&btStart, "start", "", "override start date (YYYY-MM-DD)")
	backtestCmd.Flags().StringVar(&btEnd, "end", "", "override end date (YYYY-MM-DD)")
	backtestCmd.Flags().BoolVar(&btDryRun, "dry-run", false, "validate signals without placing orders")

	backtestCmd.MarkFlagRequired("config")
}

func runBacktest(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadFromFile(btConfigPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if len(btSymbols) > 0 {
		cfg.Data.Symbols = btSymbols
	}
	if btStart != "" {
		cfg.Data.Start = btStart
	}
	if btEnd != "" {
		cfg.Data.End = btEnd
	}
	if btDryRun {
		cfg.Execution.DryRun = true
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}

	res, err := backtest.New(cfg).Run(cmd.Context())
	if err != nil {
		return fmt.Errorf("run: %w", err)
	}

	printResult(cmd, res)
	return nil
}

func printResult(cmd *cobra.Command, res *backtest.Result) {
	r := res.Report
	cmd.Printf("Run %s complete\n", res.RunID)
	cmd.Printf("  Symbols:        %v\n", res.Symbols)
	cmd.Printf("  Period:         %s to %s\n",
		res.Start.Format("2006-01-02"), res.End.Format("2006-01-02"))
	cmd.Printf("  Final Equity:   $%.2f\n", r.FinalEquity)
	cmd.Printf("  Total Return:   %.2f%%\n", r.TotalReturn*100)
	cmd.Printf("  CAGR:           %.2f%%\n", r.CAGR*100)
	cmd.Printf("  Max Drawdown:   %.2f%% (%d days)\n", r.MaxDrawdown*100, r.MaxDrawdownDays)
	cmd.Printf("  Sharpe:         %.2f\n", r.Sharpe)
	cmd.Printf("  Sortino:        %.2f\n", r.Sortino)
	cmd.Printf("  Calmar:         %.2f\n", r.Calmar)
	cmd.Printf("  VaR:            %.2f%%\n", r.VaR*100)
	if r.Undefined {
		cmd.Println("  Trades:         none")
		return
	}
	cmd.Printf("  Trades:         %d (%d wins, %d losses, %.1f%% win rate)\n",
		r.TotalTrades, r.WinningTrades, r.LosingTrades, r.WinRate*100)
	cmd.Printf("  Profit Factor:  %.2f\n", r.ProfitFactor)
	cmd.Printf("  Expectancy:     $%.2f per trade\n", r.Expectancy)
}
