package cli

import (
	"fmt"

	"github.com/rgallant/tradesim/config"
	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Generate or validate configuration files",
	Long: `Manage configuration files for backtest runs.

Subcommands:
  init     - Generate a default configuration file
  validate - Validate an existing configuration file

Examples:
  tradesim config init -o my-config.yaml
  tradesim config validate -f my-config.yaml`,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Generate a default configuration file",
	RunE:  runConfigInit,
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a configuration file",
	RunE:  runConfigValidate,
}

var (
	configInitOutput   string
	configValidatePath string
)

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configValidateCmd)

	configInitCmd.Flags().StringVarP(&configInitOutput, "output", "o", "simulation.yaml", "output config file path")
	configValidateCmd.Flags().StringVarP(&configValidatePath, "file", "f", "", "path to config file (required)")
	configValidateCmd.MarkFlagRequired("file")
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	cfg := config.Default()
	if err := cfg.SaveToFile(configInitOutput); err != nil {
		return fmt.Errorf("save config: %w", err)
	}

	cmd.Printf("Created default configuration: %s\n", configInitOutput)
	cmd.Println("\nEdit the file and run with:")
	cmd.Printf("  tradesim backtest -c %s\n", configInitOutput)
	return nil
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadFromFile(configValidatePath)
	if err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	cmd.Printf("Configuration valid: %s\n", configValidatePath)
	cmd.Printf("  Symbols:  %v\n", cfg.Data.Symbols)
	cmd.Printf("  Broker:   %s ($%.2f initial cash)\n", cfg.Broker.Kind, cfg.Broker.InitialCash)
	cmd.Printf("  Strategy: %s (sizing: %s)\n", cfg.Execution.Strategy, cfg.Sizing.Kind)
	cmd.Printf("  Journal:  %s\n", cfg.Journal.Type)
	return nil
}
