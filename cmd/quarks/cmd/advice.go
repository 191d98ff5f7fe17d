package cmd

import (
	"fmt"
	"time"

	"github.com/rustyeddy/quarks/advice"
	"github.com/rustyeddy/quarks/internal/report"
	"github.com/rustyeddy/quarks/market"
	"github.com/spf13/cobra"
)

var adviceCmd = &cobra.Command{
	Use:   "advice <symbol>",
	Short: "Print buy/sell/hold advice for a symbol",
	Long: `Advice evaluates the last year of daily bars with four simple
recommenders (buy-and-hold, momentum, Bollinger position and moving-average
crossover) and reports their majority vote. Nothing is traded.

Example:
  quarks advice AAPL --date 2024-06-28`,
	Args: cobra.ExactArgs(1),
	RunE: runAdvice,
}

var adviceDate string

func init() {
	rootCmd.AddCommand(adviceCmd)
	adviceCmd.Flags().StringVar(&adviceDate, "date", "", "as-of date YYYY-MM-DD (default today)")
}

func runAdvice(cmd *cobra.Command, args []string) error {
	asOf := time.Now()
	if adviceDate != "" {
		d, err := market.ParseDate(adviceDate)
		if err != nil {
			return fmt.Errorf("date: %w", err)
		}
		asOf = d
	}

	provider, quoter, err := openProvider()
	if err != nil {
		return err
	}
	sheet, err := advice.Generate(cmd.Context(), provider, quoter, args[0], asOf, cfg.Strategy)
	if err != nil {
		return err
	}
	report.PrintAdvice(cmd.OutOrStdout(), sheet)
	return nil
}
