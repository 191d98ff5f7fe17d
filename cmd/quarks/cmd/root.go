package cmd

import (
	"fmt"
	"log/slog"

	"github.com/rustyeddy/quarks/config"
	"github.com/rustyeddy/quarks/internal/logging"
	"github.com/rustyeddy/quarks/journal"
	"github.com/rustyeddy/quarks/market"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "quarks",
	Short: "Daily-bar equity backtesting and strategy research",
	Long: `Quarks replays trading strategies over daily price history against a
simulated cash portfolio.

It provides tools for:
  - Backtesting five strategies over CSV, parquet or Alpaca data
  - Stateless buy/sell/hold advice for a symbol
  - Saving portfolios, strategy definitions and watchlists in SQLite
  - Exporting runs as CSV and Org reports`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load(cfgFile)
		if err != nil {
			return err
		}
		if logLevel != "" {
			c.Logging.Level = logLevel
		}
		cfg = c
		logging.SetDefault(c.Logging.Logger())
		return nil
	},
}

var (
	cfgFile  string
	logLevel string

	// cfg is loaded before any subcommand runs.
	cfg *config.Config
)

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (YAML or JSON; defaults apply when empty)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override logging.level (debug, info, warn, error)")
}

func openJournal() (*journal.SQLite, error) {
	j, err := journal.Open(cfg.Journal.Driver, cfg.Journal.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	return j, nil
}

func openProvider() (market.Provider, market.Quoter, error) {
	p, q, err := cfg.Data.Provider()
	if err != nil {
		return nil, nil, fmt.Errorf("open %s data: %w", cfg.Data.Source, err)
	}
	slog.Debug("data source ready", "source", cfg.Data.Source, "path", cfg.Data.Path)
	return p, q, nil
}
