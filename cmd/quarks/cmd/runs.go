package cmd

import (
	"fmt"
	"time"

	"github.com/rustyeddy/quarks/internal/report"
	"github.com/spf13/cobra"
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Query recorded backtest runs",
	Long: `Query backtest runs recorded in the journal.

Subcommands:
  list - List recent runs
  show - Show one run, optionally as an Org block

Examples:
  quarks runs list
  quarks runs show 01HV5Z... --org`,
}

var runsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent runs",
	Args:  cobra.NoArgs,
	RunE:  runRunsList,
}

var runsShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Show a recorded run",
	Args:  cobra.ExactArgs(1),
	RunE:  runRunsShow,
}

var (
	runsLimit int
	runsOrg   bool
)

func init() {
	rootCmd.AddCommand(runsCmd)
	runsCmd.AddCommand(runsListCmd, runsShowCmd)

	runsListCmd.Flags().IntVarP(&runsLimit, "limit", "n", 20, "number of runs to list")
	runsShowCmd.Flags().BoolVar(&runsOrg, "org", false, "print the Org report instead of the summary")
}

func runRunsList(cmd *cobra.Command, args []string) error {
	j, err := openJournal()
	if err != nil {
		return err
	}
	defer j.Close()

	runs, err := j.ListBacktestRuns(cmd.Context(), runsLimit)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if len(runs) == 0 {
		fmt.Fprintln(out, "No runs.")
		return nil
	}
	fmt.Fprintf(out, "%-26s  %-12s  %-6s  %9s  %s\n", "RUN ID", "STRATEGY", "SYMBOL", "RETURN", "CREATED")
	for _, r := range runs {
		fmt.Fprintf(out, "%-26s  %-12s  %-6s  %8.2f%%  %s\n", r.RunID, r.Strategy, r.Symbol, r.ReturnPct, r.Created.Format(time.DateTime))
	}
	return nil
}

func runRunsShow(cmd *cobra.Command, args []string) error {
	j, err := openJournal()
	if err != nil {
		return err
	}
	defer j.Close()

	out := cmd.OutOrStdout()
	if runsOrg {
		org, err := j.ExportBacktestOrg(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		fmt.Fprintln(out, org)
		return nil
	}

	btr, err := j.GetBacktestRun(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	report.PrintBacktestRun(out, btr)
	report.PrintTransactions(out, btr.Transactions)
	return nil
}
