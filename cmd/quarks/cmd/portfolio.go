package cmd

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rustyeddy/quarks/internal/report"
	"github.com/rustyeddy/quarks/market"
	"github.com/rustyeddy/quarks/portfolio"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

var portfolioCmd = &cobra.Command{
	Use:   "portfolio",
	Short: "Manage saved portfolios",
	Long: `Create, inspect and trade saved portfolios.

Subcommands:
  create - Save a new cash-only portfolio
  list   - List saved portfolios
  show   - Show cash, holdings and transactions
  trade  - Apply a historical trade priced at that day's close

Examples:
  quarks portfolio create retirement --cash 25000
  quarks portfolio trade 1 BUY AAPL 10 --date 2024-03-01`,
}

var portfolioCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Save a new portfolio",
	Args:  cobra.ExactArgs(1),
	RunE:  runPortfolioCreate,
}

var portfolioListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved portfolios",
	Args:  cobra.NoArgs,
	RunE:  runPortfolioList,
}

var portfolioShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show a saved portfolio",
	Args:  cobra.ExactArgs(1),
	RunE:  runPortfolioShow,
}

var portfolioTradeCmd = &cobra.Command{
	Use:   "trade <id> <BUY|SELL> <symbol> <quantity>",
	Short: "Apply a historical trade to a saved portfolio",
	Args:  cobra.ExactArgs(4),
	RunE:  runPortfolioTrade,
}

var (
	portfolioCash float64
	tradeDate     string
	tradeReason   string
)

func init() {
	rootCmd.AddCommand(portfolioCmd)
	portfolioCmd.AddCommand(portfolioCreateCmd, portfolioListCmd, portfolioShowCmd, portfolioTradeCmd)

	portfolioCreateCmd.Flags().Float64Var(&portfolioCash, "cash", 0, "starting cash (default account.cash)")
	portfolioTradeCmd.Flags().StringVar(&tradeDate, "date", "", "trade date YYYY-MM-DD (required)")
	portfolioTradeCmd.Flags().StringVar(&tradeReason, "reason", "manual", "note stored with the transaction")
	portfolioTradeCmd.MarkFlagRequired("date")
}

func runPortfolioCreate(cmd *cobra.Command, args []string) error {
	cash := cfg.Account.Cash
	if portfolioCash > 0 {
		cash = portfolioCash
	}
	j, err := openJournal()
	if err != nil {
		return err
	}
	defer j.Close()

	id, err := j.SavePortfolio(cmd.Context(), cfg.Account.UserID, portfolio.New(args[0], decimal.NewFromFloat(cash)))
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "✓ Created portfolio %d: %s ($%.2f)\n", id, args[0], cash)
	return nil
}

func runPortfolioList(cmd *cobra.Command, args []string) error {
	j, err := openJournal()
	if err != nil {
		return err
	}
	defer j.Close()

	rows, err := j.ListPortfolios(cmd.Context(), cfg.Account.UserID)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if len(rows) == 0 {
		fmt.Fprintln(out, "No portfolios.")
		return nil
	}
	fmt.Fprintf(out, "%-4s  %-24s  %s\n", "ID", "NAME", "CREATED")
	for _, p := range rows {
		fmt.Fprintf(out, "%-4d  %-24s  %s\n", p.ID, p.Name, p.Created.Format(time.DateOnly))
	}
	return nil
}

func runPortfolioShow(cmd *cobra.Command, args []string) error {
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("portfolio id: %w", err)
	}
	j, err := openJournal()
	if err != nil {
		return err
	}
	defer j.Close()

	l, err := j.LoadPortfolio(cmd.Context(), cfg.Account.UserID, id)
	if err != nil {
		return err
	}

	var price func(string) (decimal.Decimal, bool)
	if provider, _, err := openProvider(); err == nil {
		price = latestPrice(cmd.Context(), provider)
	}

	out := cmd.OutOrStdout()
	report.PrintLedger(out, l, price)
	fmt.Fprintln(out)
	report.PrintTransactions(out, l.Transactions())
	return nil
}

func runPortfolioTrade(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("portfolio id: %w", err)
	}
	side := portfolio.Side(strings.ToUpper(args[1]))
	if !side.Valid() {
		return fmt.Errorf("side must be BUY or SELL, got %q", args[1])
	}
	symbol := strings.ToUpper(args[2])
	qty, err := strconv.ParseInt(args[3], 10, 64)
	if err != nil {
		return fmt.Errorf("quantity: %w", err)
	}
	date, err := market.ParseDate(tradeDate)
	if err != nil {
		return fmt.Errorf("date: %w", err)
	}

	provider, _, err := openProvider()
	if err != nil {
		return err
	}
	bar, err := provider.Bar(ctx, symbol, date)
	if err != nil {
		return fmt.Errorf("price %s on %s: %w", symbol, date.Format(time.DateOnly), err)
	}

	j, err := openJournal()
	if err != nil {
		return err
	}
	defer j.Close()

	l, err := j.LoadPortfolio(ctx, cfg.Account.UserID, id)
	if err != nil {
		return err
	}
	tx, err := l.Execute(portfolio.Order{
		Side:     side,
		Symbol:   symbol,
		Quantity: qty,
		Price:    decimal.NewFromFloat(bar.Close),
		Time:     bar.Date,
		Reason:   tradeReason,
	})
	if err != nil {
		return err
	}
	if err := j.UpdatePortfolio(ctx, cfg.Account.UserID, id, l); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "✓ %s %d %s @ %s on %s (cash %s)\n",
		tx.Side, tx.Quantity, tx.Symbol, tx.Price.StringFixed(2), tx.Time.Format(time.DateOnly), l.Cash().StringFixed(2))
	return nil
}

// latestPrice marks holdings at the most recent close within two weeks.
func latestPrice(ctx context.Context, p market.Provider) func(string) (decimal.Decimal, bool) {
	now := time.Now()
	return func(symbol string) (decimal.Decimal, bool) {
		px, err := market.LatestClose(ctx, p, symbol, now, 14)
		if err != nil {
			return decimal.Zero, false
		}
		return decimal.NewFromFloat(px), true
	}
}
