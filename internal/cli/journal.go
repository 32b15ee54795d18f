package cli

import (
	"fmt"
	"time"

	"github.com/rgallant/tradesim/journal"
	"github.com/spf13/cobra"
)

var journalCmd = &cobra.Command{
	Use:   "journal",
	Short: "Query trade journal data",
	Long: `Query and display journal records from a SQLite database.

Subcommands:
  trade  - Get details of a specific trade by ID
  today  - List trades closed today
  day    - List trades closed on a specific day
  runs   - List recent backtest runs
  run    - Show a single run by ID

Examples:
  tradesim journal trade <trade-id>
  tradesim journal day 2024-03-15
  tradesim journal runs --limit 5`,
}

var journalTradeCmd = &cobra.Command{
	Use:   "trade <trade-id>",
	Short: "Get details of a specific trade",
	Args:  cobra.ExactArgs(1),
	RunE:  runJournalTrade,
}

var journalTodayCmd = &cobra.Command{
	Use:   "today",
	Short: "List trades closed today",
	Args:  cobra.NoArgs,
	RunE:  runJournalToday,
}

var journalDayCmd = &cobra.Command{
	Use:   "day <YYYY-MM-DD>",
	Short: "List trades closed on a specific day",
	Args:  cobra.ExactArgs(1),
	RunE:  runJournalDay,
}

var journalRunsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List recent backtest runs",
	Args:  cobra.NoArgs,
	RunE:  runJournalRuns,
}

var journalRunCmd = &cobra.Command{
	Use:   "run <run-id>",
	Short: "Show a single backtest run",
	Args:  cobra.ExactArgs(1),
	RunE:  runJournalRun,
}

var (
	journalDBPath    string
	journalRunsLimit int
)

func init() {
	rootCmd.AddCommand(journalCmd)
	journalCmd.AddCommand(journalTradeCmd)
	journalCmd.AddCommand(journalTodayCmd)
	journalCmd.AddCommand(journalDayCmd)
	journalCmd.AddCommand(journalRunsCmd)
	journalCmd.AddCommand(journalRunCmd)

	journalCmd.PersistentFlags().StringVarP(&journalDBPath, "db", "d", "./tradesim.sqlite", "path to SQLite journal DB")
	journalRunsCmd.Flags().IntVar(&journalRunsLimit, "limit", 10, "maximum runs to list")
}

func openJournal() (*journal.SQLite, error) {
	j, err := journal.NewSQLite(journalDBPath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	return j, nil
}

func runJournalTrade(cmd *cobra.Command, args []string) error {
	j, err := openJournal()
	if err != nil {
		return err
	}
	defer j.Close()

	rec, err := j.GetTrade(args[0])
	if err != nil {
		return fmt.Errorf("get trade: %w", err)
	}
	printTrade(cmd, rec)
	return nil
}

func runJournalToday(cmd *cobra.Command, args []string) error {
	return listTradeDay(cmd, time.Now().Format("2006-01-02"))
}

func runJournalDay(cmd *cobra.Command, args []string) error {
	return listTradeDay(cmd, args[0])
}

func listTradeDay(cmd *cobra.Command, day string) error {
	start, end, err := dayBounds(day)
	if err != nil {
		return fmt.Errorf("date: %w", err)
	}

	j, err := openJournal()
	if err != nil {
		return err
	}
	defer j.Close()

	recs, err := j.ListTradesClosedBetween(start, end)
	if err != nil {
		return fmt.Errorf("query trades: %w", err)
	}
	if len(recs) == 0 {
		cmd.Printf("no trades closed on %s\n", day)
		return nil
	}
	for _, rec := range recs {
		printTrade(cmd, rec)
	}
	return nil
}

func runJournalRuns(cmd *cobra.Command, args []string) error {
	j, err := openJournal()
	if err != nil {
		return err
	}
	defer j.Close()

	recs, err := j.ListRuns(journalRunsLimit)
	if err != nil {
		return fmt.Errorf("query runs: %w", err)
	}
	if len(recs) == 0 {
		cmd.Println("no runs recorded")
		return nil
	}
	cmd.Printf("%-26s %-19s %10s %9s %8s %7s\n",
		"RUN", "CREATED", "EQUITY", "RETURN", "MAX DD", "TRADES")
	for _, rec := range recs {
		cmd.Printf("%-26s %-19s %10.2f %8.2f%% %7.2f%% %7d\n",
			rec.RunID, rec.Created.Format("2006-01-02 15:04:05"),
			rec.FinalEquity, rec.TotalReturn*100, rec.MaxDrawdown*100, rec.Trades)
	}
	return nil
}

func runJournalRun(cmd *cobra.Command, args []string) error {
	j, err := openJournal()
	if err != nil {
		return err
	}
	defer j.Close()

	rec, err := j.GetRun(args[0])
	if err != nil {
		return fmt.Errorf("get run: %w", err)
	}
	cmd.Printf("Run %s\n", rec.RunID)
	cmd.Printf("  Created:       %s\n", rec.Created.Format(time.RFC3339))
	cmd.Printf("  Symbols:       %s\n", rec.Symbols)
	cmd.Printf("  Strategy:      %s\n", rec.Strategy)
	cmd.Printf("  Period:        %s to %s\n",
		rec.Start.Format("2006-01-02"), rec.End.Format("2006-01-02"))
	cmd.Printf("  Capital:       $%.2f -> $%.2f\n", rec.InitialCapital, rec.FinalEquity)
	cmd.Printf("  Return:        %.2f%%\n", rec.TotalReturn*100)
	cmd.Printf("  Max Drawdown:  %.2f%%\n", rec.MaxDrawdown*100)
	cmd.Printf("  Sharpe:        %.2f\n", rec.Sharpe)
	cmd.Printf("  Trades:        %d (%.1f%% win rate)\n", rec.Trades, rec.WinRate*100)
	if len(rec.Config) > 0 {
		cmd.Printf("\n%s", rec.Config)
	}
	return nil
}

func printTrade(cmd *cobra.Command, rec journal.TradeRecord) {
	cmd.Printf("%s  %-6s qty %v  %.4f -> %.4f  P/L %.2f  (%s, closed %s)\n",
		rec.TradeID, rec.Symbol, rec.Quantity, rec.EntryPrice, rec.ExitPrice,
		rec.RealizedPL, rec.Reason, rec.ExitTime.Format("2006-01-02 15:04"))
}

func dayBounds(day string) (time.Time, time.Time, error) {
	t, err := time.ParseInLocation("2006-01-02", day, time.Local)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	start := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.Local)
	return start, start.Add(24 * time.Hour), nil
}
