package cmd

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/rustyeddy/quarks/market"
	"github.com/spf13/cobra"
)

var dataCmd = &cobra.Command{
	Use:   "data",
	Short: "Import and download daily bars",
	Long: `Manage the parquet bar store.

Subcommands:
  import - Load CSV files (optionally .xz compressed) into parquet
  fetch  - Download daily bars from Alpaca into parquet

Examples:
  quarks data import AAPL.csv MSFT.csv.xz --out ./parquet
  quarks data fetch AAPL --start 2020-01-02 --end 2024-12-31`,
}

var dataImportCmd = &cobra.Command{
	Use:   "import <file.csv>...",
	Short: "Import CSV bars into the parquet store",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runDataImport,
}

var dataFetchCmd = &cobra.Command{
	Use:   "fetch <symbol>...",
	Short: "Download daily bars from Alpaca into the parquet store",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runDataFetch,
}

var (
	dataOut    string
	dataSymbol string
	dataStart  string
	dataEnd    string
)

func init() {
	rootCmd.AddCommand(dataCmd)
	dataCmd.AddCommand(dataImportCmd, dataFetchCmd)

	dataCmd.PersistentFlags().StringVarP(&dataOut, "out", "o", "", "parquet directory (default data.path when data.source is parquet)")
	dataImportCmd.Flags().StringVar(&dataSymbol, "symbol", "", "symbol for a single file (default from the file name)")
	dataFetchCmd.Flags().StringVar(&dataStart, "start", "", "first day YYYY-MM-DD (required)")
	dataFetchCmd.Flags().StringVar(&dataEnd, "end", "", "last day YYYY-MM-DD (required)")
	dataFetchCmd.MarkFlagRequired("start")
	dataFetchCmd.MarkFlagRequired("end")
}

func parquetDir() (string, error) {
	if dataOut != "" {
		return dataOut, nil
	}
	if cfg.Data.Source == "parquet" {
		return cfg.Data.Path, nil
	}
	return "", errors.New("--out is required unless data.source is parquet")
}

func runDataImport(cmd *cobra.Command, args []string) error {
	dir, err := parquetDir()
	if err != nil {
		return err
	}
	if dataSymbol != "" && len(args) > 1 {
		return errors.New("--symbol applies to a single file")
	}
	store := market.NewParquetStore(dir)
	out := cmd.OutOrStdout()

	for _, path := range args {
		sym := dataSymbol
		if sym == "" {
			base := filepath.Base(path)
			sym = strings.TrimSuffix(strings.TrimSuffix(base, ".xz"), ".csv")
		}
		bars, stats, err := market.LoadCSV(path)
		if err != nil {
			return fmt.Errorf("load %s: %w", path, err)
		}
		if err := store.WriteBars(cmd.Context(), sym, bars); err != nil {
			return fmt.Errorf("write %s: %w", sym, err)
		}
		fmt.Fprintf(out, "✓ %s: %d bars from %s (%d bad lines, %d duplicates)\n",
			strings.ToUpper(sym), len(bars), path, stats.BadLines, stats.Duplicates)
	}
	return nil
}

func runDataFetch(cmd *cobra.Command, args []string) error {
	dir, err := parquetDir()
	if err != nil {
		return err
	}
	start, err := market.ParseDate(dataStart)
	if err != nil {
		return fmt.Errorf("start date: %w", err)
	}
	end, err := market.ParseDate(dataEnd)
	if err != nil {
		return fmt.Errorf("end date: %w", err)
	}
	if cfg.Data.AlpacaKey == "" || cfg.Data.AlpacaSecret == "" {
		return errors.New("alpaca credentials missing (set APCA_API_KEY_ID and APCA_API_SECRET_KEY)")
	}

	alpaca := market.NewAlpacaProvider(market.AlpacaConfig{
		APIKey:    cfg.Data.AlpacaKey,
		APISecret: cfg.Data.AlpacaSecret,
		BaseURL:   cfg.Data.AlpacaURL,
		Feed:      cfg.Data.AlpacaFeed,
	})
	store := market.NewParquetStore(dir)
	out := cmd.OutOrStdout()

	for _, sym := range args {
		bars, err := alpaca.Range(cmd.Context(), sym, start, end)
		if err != nil {
			return fmt.Errorf("fetch %s: %w", sym, err)
		}
		if err := store.WriteBars(cmd.Context(), sym, bars); err != nil {
			return fmt.Errorf("write %s: %w", sym, err)
		}
		fmt.Fprintf(out, "✓ %s: %d bars\n", strings.ToUpper(sym), len(bars))
	}
	return nil
}
