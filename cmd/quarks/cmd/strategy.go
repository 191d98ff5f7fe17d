package cmd

import (
	"fmt"
	"strconv"
	"time"

	"github.com/rustyeddy/quarks/journal"
	"github.com/rustyeddy/quarks/strategies"
	"github.com/spf13/cobra"
)

var strategyCmd = &cobra.Command{
	Use:   "strategy",
	Short: "Manage saved strategies",
	Long: `Save strategy definitions against a portfolio and run them later with
"quarks backtest --saved <id>".

Subcommands:
  add     - Save a strategy definition
  list    - List saved strategies
  enable  - Enable a strategy
  disable - Disable a strategy
  delete  - Delete a strategy and its execution log
  log     - Show a strategy's executions

Example:
  quarks strategy add "fast momentum" --portfolio 1 --type momentum --symbol AAPL --lookback 10`,
}

var strategyAddCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Save a strategy definition",
	Args:  cobra.ExactArgs(1),
	RunE:  runStrategyAdd,
}

var strategyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved strategies",
	Args:  cobra.NoArgs,
	RunE:  runStrategyList,
}

var strategyEnableCmd = &cobra.Command{
	Use:   "enable <id>",
	Short: "Enable a strategy",
	Args:  cobra.ExactArgs(1),
	RunE:  func(cmd *cobra.Command, args []string) error { return toggleStrategy(cmd, args[0], true) },
}

var strategyDisableCmd = &cobra.Command{
	Use:   "disable <id>",
	Short: "Disable a strategy",
	Args:  cobra.ExactArgs(1),
	RunE:  func(cmd *cobra.Command, args []string) error { return toggleStrategy(cmd, args[0], false) },
}

var strategyDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a strategy",
	Args:  cobra.ExactArgs(1),
	RunE:  runStrategyDelete,
}

var strategyLogCmd = &cobra.Command{
	Use:   "log <id>",
	Short: "Show a strategy's executions",
	Args:  cobra.ExactArgs(1),
	RunE:  runStrategyLog,
}

var (
	stPortfolio int64
	stType      string
	stSymbol    string
	stParams    strategies.Params
)

func init() {
	rootCmd.AddCommand(strategyCmd)
	strategyCmd.AddCommand(strategyAddCmd, strategyListCmd, strategyEnableCmd,
		strategyDisableCmd, strategyDeleteCmd, strategyLogCmd)

	f := strategyAddCmd.Flags()
	f.Int64Var(&stPortfolio, "portfolio", 0, "portfolio id (required)")
	f.StringVar(&stType, "type", "", fmt.Sprintf("strategy type (%v)", strategies.Names()))
	f.StringVar(&stSymbol, "symbol", "", "symbol to trade (required)")
	f.IntVar(&stParams.Lookback, "lookback", 0, "momentum lookback days")
	f.Float64Var(&stParams.Threshold, "threshold", 0, "momentum threshold")
	f.IntVar(&stParams.Window, "window", 0, "bollinger window")
	f.Float64Var(&stParams.NumStd, "num-std", 0, "bollinger band width in standard deviations")
	f.IntVar(&stParams.ShortWindow, "short", 0, "ma-cross short window")
	f.IntVar(&stParams.LongWindow, "long", 0, "ma-cross long window")
	f.Float64Var(&stParams.InitialInvestment, "investment", 0, "buy-and-hold amount to invest")
	strategyAddCmd.MarkFlagRequired("portfolio")
	strategyAddCmd.MarkFlagRequired("type")
	strategyAddCmd.MarkFlagRequired("symbol")
}

func runStrategyAdd(cmd *cobra.Command, args []string) error {
	params := cfg.Strategy
	overrideParams(cmd, &params, stParams)

	j, err := openJournal()
	if err != nil {
		return err
	}
	defer j.Close()

	id, err := j.CreateStrategy(cmd.Context(), journal.StrategyRecord{
		UserID:      cfg.Account.UserID,
		PortfolioID: stPortfolio,
		Name:        args[0],
		Symbol:      stSymbol,
		Type:        stType,
		Params:      params,
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "✓ Created strategy %d: %s\n", id, args[0])
	return nil
}

func runStrategyList(cmd *cobra.Command, args []string) error {
	j, err := openJournal()
	if err != nil {
		return err
	}
	defer j.Close()

	list, err := j.ListStrategies(cmd.Context(), cfg.Account.UserID)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if len(list) == 0 {
		fmt.Fprintln(out, "No strategies.")
		return nil
	}
	fmt.Fprintf(out, "%-4s  %-20s  %-6s  %-12s  %-6s  %-16s  %s\n", "ID", "NAME", "SYMBOL", "TYPE", "ACTIVE", "PORTFOLIO", "LAST RUN")
	for _, s := range list {
		last := "never"
		if !s.LastExecuted.IsZero() {
			last = s.LastExecuted.Format(time.DateTime)
		}
		fmt.Fprintf(out, "%-4d  %-20s  %-6s  %-12s  %-6t  %-16s  %s\n",
			s.ID, s.Name, s.Symbol, s.Type, s.Active, s.PortfolioName, last)
	}
	return nil
}

func toggleStrategy(cmd *cobra.Command, arg string, active bool) error {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil {
		return fmt.Errorf("strategy id: %w", err)
	}
	j, err := openJournal()
	if err != nil {
		return err
	}
	defer j.Close()

	if err := j.ToggleStrategy(cmd.Context(), cfg.Account.UserID, id, active); err != nil {
		return err
	}
	state := "disabled"
	if active {
		state = "enabled"
	}
	fmt.Fprintf(cmd.OutOrStdout(), "✓ Strategy %d %s\n", id, state)
	return nil
}

func runStrategyDelete(cmd *cobra.Command, args []string) error {
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("strategy id: %w", err)
	}
	j, err := openJournal()
	if err != nil {
		return err
	}
	defer j.Close()

	if err := j.DeleteStrategy(cmd.Context(), cfg.Account.UserID, id); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "✓ Deleted strategy %d\n", id)
	return nil
}

func runStrategyLog(cmd *cobra.Command, args []string) error {
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("strategy id: %w", err)
	}
	j, err := openJournal()
	if err != nil {
		return err
	}
	defer j.Close()

	// ownership check; executions carry no user id
	if _, err := j.GetStrategy(cmd.Context(), cfg.Account.UserID, id); err != nil {
		return err
	}
	execs, err := j.ListExecutions(cmd.Context(), id)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	for _, e := range execs {
		fmt.Fprintf(out, "%s  %-4s  %8d  %10.2f\n", e.Time.Format(time.DateOnly), e.Action, e.Quantity, e.Price)
	}
	if len(execs) == 0 {
		fmt.Fprintln(out, "No executions.")
	}
	return nil
}
