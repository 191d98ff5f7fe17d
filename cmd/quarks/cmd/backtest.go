package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rustyeddy/quarks/backtest"
	"github.com/rustyeddy/quarks/internal/report"
	"github.com/rustyeddy/quarks/journal"
	"github.com/rustyeddy/quarks/market"
	"github.com/rustyeddy/quarks/strategies"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

var backtestCmd = &cobra.Command{
	Use:   "backtest",
	Short: "Run backtests over daily bars",
	Long: `Backtest replays one or more strategies over a date range, one trading
day at a time, against a simulated cash portfolio.

Supported strategies:
  - buy-and-hold: single initial purchase
  - momentum:     trend-following with volatility-scaled exits
  - bollinger:    mean reversion on Bollinger Bands and RSI
  - ma-cross:     golden/death cross with MACD confirmation
  - adaptive:     regime-aware composite scoring

Several strategies or symbols may be given as comma-separated lists; the
runs execute in parallel.

Example:
  quarks backtest --strategy momentum,bollinger --symbol AAPL --start 2023-01-02 --end 2023-12-29`,
	RunE: runBacktest,
}

var (
	btStrategies string
	btSymbols    string
	btStart      string
	btEnd        string
	btCash       float64
	btPortfolio  int64
	btSaved      int64
	btSave       bool
	btCSV        bool
	btOrg        bool
	btParams     strategies.Params
)

func init() {
	rootCmd.AddCommand(backtestCmd)

	f := backtestCmd.Flags()
	f.StringVarP(&btStrategies, "strategy", "s", "", "strategy name(s), comma separated (default backtest.strategy)")
	f.StringVar(&btSymbols, "symbol", "", "symbol(s), comma separated (default backtest.symbol)")
	f.StringVar(&btStart, "start", "", "first day YYYY-MM-DD (default backtest.start)")
	f.StringVar(&btEnd, "end", "", "last day YYYY-MM-DD (default backtest.end)")
	f.Float64VarP(&btCash, "cash", "b", 0, "starting cash (default account.cash)")
	f.Int64Var(&btPortfolio, "portfolio", 0, "run against a saved portfolio and store the result back")
	f.Int64Var(&btSaved, "saved", 0, "run a saved strategy by id and log its executions")
	f.BoolVar(&btSave, "save", true, "record the run summary in the journal")
	f.BoolVar(&btCSV, "csv", false, "export transactions and prices to journal.csv_dir")
	f.BoolVar(&btOrg, "org", false, "write an Org report to journal.org_dir")

	f.IntVar(&btParams.Lookback, "lookback", 0, "momentum lookback days")
	f.Float64Var(&btParams.Threshold, "threshold", 0, "momentum threshold")
	f.IntVar(&btParams.Window, "window", 0, "bollinger window")
	f.Float64Var(&btParams.NumStd, "num-std", 0, "bollinger band width in standard deviations")
	f.IntVar(&btParams.ShortWindow, "short", 0, "ma-cross short window")
	f.IntVar(&btParams.LongWindow, "long", 0, "ma-cross long window")
	f.Float64Var(&btParams.InitialInvestment, "investment", 0, "buy-and-hold amount to invest (default all cash)")
}

// backtestPlan is what the flags resolve to.
type backtestPlan struct {
	strategies []string
	symbols    []string
	start, end time.Time
	cash       decimal.Decimal
	params     strategies.Params
}

func planBacktest(cmd *cobra.Command) (backtestPlan, error) {
	p := backtestPlan{
		strategies: splitList(orDefault(btStrategies, cfg.Backtest.Strategy)),
		symbols:    splitList(orDefault(btSymbols, cfg.Backtest.Symbol)),
		cash:       decimal.NewFromFloat(cfg.Account.Cash),
		params:     cfg.Strategy,
	}
	if btCash > 0 {
		p.cash = decimal.NewFromFloat(btCash)
	}
	overrideParams(cmd, &p.params, btParams)

	var err error
	if p.start, err = market.ParseDate(orDefault(btStart, cfg.Backtest.Start)); err != nil {
		return p, fmt.Errorf("start date: %w", err)
	}
	if p.end, err = market.ParseDate(orDefault(btEnd, cfg.Backtest.End)); err != nil {
		return p, fmt.Errorf("end date: %w", err)
	}
	if len(p.strategies) == 0 || len(p.symbols) == 0 {
		return p, errors.New("at least one strategy and one symbol are required")
	}
	return p, nil
}

func runBacktest(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	plan, err := planBacktest(cmd)
	if err != nil {
		return err
	}

	provider, quoter, err := openProvider()
	if err != nil {
		return err
	}
	j, err := openJournal()
	if err != nil {
		return err
	}
	defer j.Close()

	userID := cfg.Account.UserID
	portfolioID := btPortfolio
	var saved *journal.StrategyRecord
	if btSaved != 0 {
		rec, err := j.GetStrategy(ctx, userID, btSaved)
		if err != nil {
			return err
		}
		if !rec.Active {
			return fmt.Errorf("strategy %d is disabled", rec.ID)
		}
		saved = &rec
		portfolioID = rec.PortfolioID
		plan.strategies = []string{rec.Type}
		plan.symbols = []string{rec.Symbol}
		plan.params = rec.Params
	}

	driver := &backtest.Driver{Provider: provider, Quoter: quoter, Log: slog.Default()}

	var reqs []backtest.Request
	for _, strat := range plan.strategies {
		for _, sym := range plan.symbols {
			reqs = append(reqs, backtest.Request{
				Strategy:    strat,
				Symbol:      sym,
				Params:      plan.params,
				Start:       plan.start,
				End:         plan.end,
				InitialCash: plan.cash,
			})
		}
	}

	// A saved portfolio is a single ledger, so it supports a single run.
	priorTxs := 0
	if portfolioID != 0 {
		if len(reqs) != 1 {
			return errors.New("--portfolio runs one strategy on one symbol")
		}
		l, err := j.LoadPortfolio(ctx, userID, portfolioID)
		if err != nil {
			return err
		}
		reqs[0].Ledger = l
		priorTxs = len(l.Transactions())
	}

	out := cmd.OutOrStdout()
	var failed int
	for _, o := range driver.RunAll(ctx, reqs, cfg.Runner.Workers) {
		if o.Err != nil && o.Result == nil {
			failed++
			fmt.Fprintf(out, "%s %s: %v\n\n", o.Request.Strategy, o.Request.Symbol, o.Err)
			continue
		}
		if o.Err != nil {
			fmt.Fprintf(out, "%s %s: stopped early: %v\n", o.Request.Strategy, o.Request.Symbol, o.Err)
		}

		btr, err := journal.RunFromResult(o.Result, o.Request.Params.WithDefaults())
		if err != nil {
			return err
		}
		target := runTarget{portfolioID: portfolioID, saved: saved, priorTxs: priorTxs}
		if err := persistRun(ctx, j, o.Result, &btr, target); err != nil {
			return err
		}
		report.PrintBacktestRun(out, btr)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d backtests failed", failed, len(reqs))
	}
	return nil
}

// runTarget says where a finished run is written back to.
type runTarget struct {
	portfolioID int64
	saved       *journal.StrategyRecord
	priorTxs    int // transactions already in the ledger before the run
}

func persistRun(ctx context.Context, j *journal.SQLite, res *backtest.Result, btr *journal.BacktestRun, target runTarget) error {
	if btSave {
		if err := j.RecordBacktest(ctx, *btr); err != nil {
			return fmt.Errorf("record run: %w", err)
		}
	}
	if target.portfolioID != 0 {
		if err := j.UpdatePortfolio(ctx, cfg.Account.UserID, target.portfolioID, res.Ledger); err != nil {
			return fmt.Errorf("save portfolio: %w", err)
		}
	}
	if target.saved != nil {
		if err := j.RecordExecutions(ctx, target.saved.ID, res.Transactions[target.priorTxs:]); err != nil {
			return fmt.Errorf("log executions: %w", err)
		}
	}
	if btCSV {
		paths, err := journal.ExportCSV(cfg.Journal.CSVDir, res)
		if err != nil {
			return fmt.Errorf("export csv: %w", err)
		}
		btr.Notes = append(btr.Notes, "CSV: "+strings.Join(paths, ", "))
	}
	if btOrg {
		dir := orDefault(cfg.Journal.OrgDir, cfg.Journal.CSVDir)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
		btr.OrgPath = filepath.Join(dir, btr.RunID+".org")
		if err := btr.WriteBacktestOrg(); err != nil {
			return fmt.Errorf("write org: %w", err)
		}
	}
	return nil
}

// overrideParams copies the parameter flags the user actually set.
func overrideParams(cmd *cobra.Command, dst *strategies.Params, src strategies.Params) {
	f := cmd.Flags()
	if f.Changed("lookback") {
		dst.Lookback = src.Lookback
	}
	if f.Changed("threshold") {
		dst.Threshold = src.Threshold
	}
	if f.Changed("window") {
		dst.Window = src.Window
	}
	if f.Changed("num-std") {
		dst.NumStd = src.NumStd
	}
	if f.Changed("short") {
		dst.ShortWindow = src.ShortWindow
	}
	if f.Changed("long") {
		dst.LongWindow = src.LongWindow
	}
	if f.Changed("investment") {
		dst.InitialInvestment = src.InitialInvestment
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func orDefault(v, def string) string {
	if v != "" {
		return v
	}
	return def
}
