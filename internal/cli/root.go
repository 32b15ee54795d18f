package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "tradesim",
	Short: "A trading simulation and risk-control research platform",
	Long: `Tradesim backtests signal-driven trading strategies against historical
bar data with realistic fills and layered risk controls.

It provides tools for:
  - Backtesting scored indicator strategies over daily bars
  - Sweeping many configurations in parallel
  - Querying trade journals, equity curves, and run history
  - Generating and validating configuration files`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

var logLevel string

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level: debug|info|warn|error")
	rootCmd.PersistentPreRunE = setupLogging
}

func setupLogging(cmd *cobra.Command, args []string) error {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(logLevel)); err != nil {
		return fmt.Errorf("bad log level %q: %w", logLevel, err)
	}
	h := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})
	slog.SetDefault(slog.New(h))
	return nil
}

// Execute runs the root command and reports any failure on stderr.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
