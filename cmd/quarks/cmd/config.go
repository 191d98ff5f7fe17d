package cmd

import (
	"fmt"

	"github.com/rustyeddy/quarks/config"
	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Generate or validate configuration files",
	Long: `Manage quarks configuration files.

Subcommands:
  init     - Generate a default configuration file
  validate - Validate an existing configuration file

Examples:
  quarks config init -o quarks.yaml
  quarks config validate -f quarks.yaml`,
}

var configInitCmd = &cobra.Command{
	Use:               "init",
	Short:             "Generate a default configuration file",
	PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
	RunE:              runConfigInit,
}

var configValidateCmd = &cobra.Command{
	Use:               "validate",
	Short:             "Validate a configuration file",
	PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
	RunE:              runConfigValidate,
}

var (
	configInitOutput   string
	configValidatePath string
)

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configValidateCmd)

	configInitCmd.Flags().StringVarP(&configInitOutput, "output", "o", "quarks.yaml", "output config file path")
	configValidateCmd.Flags().StringVarP(&configValidatePath, "file", "f", "", "path to config file (required)")
	configValidateCmd.MarkFlagRequired("file")
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	c := config.Default()
	if err := c.SaveToFile(configInitOutput); err != nil {
		return fmt.Errorf("save config: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "✓ Created default configuration: %s\n", configInitOutput)
	fmt.Fprintln(out, "\nEdit the file and run with:")
	fmt.Fprintf(out, "  quarks backtest -c %s --symbol AAPL --start 2024-01-02 --end 2024-12-31\n", configInitOutput)
	return nil
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	c, err := config.LoadFromFile(configValidatePath)
	if err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "✓ Configuration valid: %s\n", configValidatePath)
	fmt.Fprintf(out, "  Account: %s ($%.2f)\n", c.Account.Name, c.Account.Cash)
	fmt.Fprintf(out, "  Strategy: %s (lookback %d, window %d)\n", c.Backtest.Strategy, c.Strategy.Lookback, c.Strategy.Window)
	fmt.Fprintf(out, "  Data: %s %s\n", c.Data.Source, c.Data.Path)
	fmt.Fprintf(out, "  Journal: %s (%s)\n", c.Journal.DBPath, c.Journal.Driver)
	return nil
}
