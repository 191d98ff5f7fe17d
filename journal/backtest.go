package journal

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"text/template"
	"time"

	"github.com/rustyeddy/quarks/backtest"
	"github.com/rustyeddy/quarks/pkg/id"
	"github.com/rustyeddy/quarks/portfolio"
	"github.com/shopspring/decimal"
)

// BacktestRun mirrors the backtest_runs table.
type BacktestRun struct {
	RunID    string
	Created  time.Time
	Strategy string
	Symbol   string
	Params   []byte // strategy parameters as JSON

	Start time.Time
	End   time.Time

	// Results
	Buys   int
	Sells  int
	Wins   int
	Losses int

	StartBalance float64
	EndBalance   float64
	NetPL        float64
	RealizedPL   float64
	ReturnPct    float64
	WinRate      float64

	Evaluations int
	SkippedDays int
	Rejections  int

	Transactions []portfolio.Transaction

	OrgPath     string
	Notes       []string
	NextActions []string
}

// RunFromResult summarises a finished backtest for storage and reporting.
func RunFromResult(r *backtest.Result, params any) (BacktestRun, error) {
	cfg, err := json.Marshal(params)
	if err != nil {
		return BacktestRun{}, err
	}
	st := r.Stats()
	start := r.InitialCash.InexactFloat64()
	end := r.FinalValue.InexactFloat64()

	btr := BacktestRun{
		RunID:        r.RunID,
		Strategy:     r.Strategy,
		Symbol:       r.Symbol,
		Params:       cfg,
		Start:        r.Start,
		End:          r.End,
		Buys:         st.Buys,
		Sells:        st.Sells,
		Wins:         st.Wins,
		Losses:       st.Losses,
		StartBalance: start,
		EndBalance:   end,
		NetPL:        end - start,
		RealizedPL:   st.RealizedPL.InexactFloat64(),
		ReturnPct:    r.Return.InexactFloat64() * 100,
		WinRate:      st.WinRate,
		Evaluations:  r.Evaluations,
		SkippedDays:  r.SkippedDays,
		Rejections:   r.Rejections,
		Transactions: r.Transactions,
	}
	// Run IDs carry their start time; others are stamped when recorded.
	if t, err := id.Time(r.RunID); err == nil {
		btr.Created = t
	}
	return btr, nil
}

func (j *SQLite) RecordBacktest(ctx context.Context, btr BacktestRun) error {
	txs := btr.Transactions
	if txs == nil {
		txs = []portfolio.Transaction{}
	}
	data, err := json.Marshal(txs)
	if err != nil {
		return err
	}
	params := btr.Params
	if len(params) == 0 {
		params = []byte("{}")
	}
	created := btr.Created
	if created.IsZero() {
		created = j.now()
	}

	_, err = j.db.ExecContext(ctx, `
		INSERT INTO backtest_runs
		(run_id, strategy, symbol, params, start_date, end_date,
		 start_balance, end_balance, return_pct, buys, sells, wins, losses, realized_pl,
		 evaluations, skipped_days, rejections, transactions, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		btr.RunID, btr.Strategy, btr.Symbol, string(params),
		btr.Start.Format(timeLayout), btr.End.Format(timeLayout),
		btr.StartBalance, btr.EndBalance, btr.ReturnPct,
		btr.Buys, btr.Sells, btr.Wins, btr.Losses, btr.RealizedPL,
		btr.Evaluations, btr.SkippedDays, btr.Rejections,
		string(data), created.UTC().Format(timeLayout),
	)
	return err
}

func (j *SQLite) GetBacktestRun(ctx context.Context, runID string) (BacktestRun, error) {
	var (
		btr                   BacktestRun
		params, data          string
		start, end, createdAt string
	)
	err := j.db.QueryRowContext(ctx, `
		SELECT run_id, strategy, symbol, params, start_date, end_date,
		       start_balance, end_balance, return_pct, buys, sells, wins, losses, realized_pl,
		       evaluations, skipped_days, rejections, transactions, created_at
		FROM backtest_runs
		WHERE run_id = ?`, runID).Scan(
		&btr.RunID, &btr.Strategy, &btr.Symbol, &params, &start, &end,
		&btr.StartBalance, &btr.EndBalance, &btr.ReturnPct,
		&btr.Buys, &btr.Sells, &btr.Wins, &btr.Losses, &btr.RealizedPL,
		&btr.Evaluations, &btr.SkippedDays, &btr.Rejections, &data, &createdAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return BacktestRun{}, fmt.Errorf("%w: backtest run %q", ErrNotFound, runID)
		}
		return BacktestRun{}, err
	}

	btr.Params = []byte(params)
	btr.NetPL = btr.EndBalance - btr.StartBalance
	if btr.Sells > 0 {
		btr.WinRate = 100 * float64(btr.Wins) / float64(btr.Sells)
	}
	for _, p := range []struct {
		s   string
		dst *time.Time
	}{{start, &btr.Start}, {end, &btr.End}, {createdAt, &btr.Created}} {
		if *p.dst, err = time.Parse(timeLayout, p.s); err != nil {
			return BacktestRun{}, err
		}
	}
	if err := json.Unmarshal([]byte(data), &btr.Transactions); err != nil {
		return BacktestRun{}, fmt.Errorf("journal: run %s transactions: %w", runID, err)
	}
	return btr, nil
}

// ListBacktestRuns returns stored runs, newest first, without transactions.
func (j *SQLite) ListBacktestRuns(ctx context.Context, limit int) ([]BacktestRun, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := j.db.QueryContext(ctx, `
		SELECT run_id, strategy, symbol, start_balance, end_balance, return_pct, created_at
		FROM backtest_runs
		ORDER BY created_at DESC, run_id DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []BacktestRun
	for rows.Next() {
		var (
			btr     BacktestRun
			created string
		)
		if err := rows.Scan(&btr.RunID, &btr.Strategy, &btr.Symbol,
			&btr.StartBalance, &btr.EndBalance, &btr.ReturnPct, &created); err != nil {
			return nil, err
		}
		if btr.Created, err = time.Parse(timeLayout, created); err != nil {
			return nil, err
		}
		btr.NetPL = btr.EndBalance - btr.StartBalance
		out = append(out, btr)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// ExportBacktestOrg loads a run and returns its Org block.
func (j *SQLite) ExportBacktestOrg(ctx context.Context, runID string) (string, error) {
	btr, err := j.GetBacktestRun(ctx, runID)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := btr.RenderOrg(&buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}

var backtestOrgFuncs = template.FuncMap{
	"orTime": func(t time.Time) time.Time {
		if t.IsZero() {
			return time.Now()
		}
		return t
	},
	"money": func(d decimal.Decimal) string { return d.StringFixed(2) },
}

var backtestOrg = template.Must(template.New("backtest").Funcs(backtestOrgFuncs).Parse(BacktestOrgTemplate))

func (v *BacktestRun) RenderOrg(w io.Writer) error {
	return backtestOrg.Execute(w, v)
}

// WriteBacktestOrg renders the run to OrgPath.
func (v *BacktestRun) WriteBacktestOrg() error {
	if v.OrgPath == "" {
		return errors.New("journal: no org path")
	}
	var buf bytes.Buffer
	if err := v.RenderOrg(&buf); err != nil {
		return err
	}
	return os.WriteFile(v.OrgPath, buf.Bytes(), 0644)
}

const BacktestOrgTemplate = `
* BACKTEST: {{.Strategy}} {{.Symbol}}
:PROPERTIES:
:RUN_ID:      {{if .RunID}}{{.RunID}}{{else}}(run-id?){{end}}
:STRATEGY:    {{.Strategy}}
:SYMBOL:      {{.Symbol}}
:START_DATE:  {{.Start.Format "2006-01-02"}}
:END_DATE:    {{.End.Format "2006-01-02"}}
:START_BAL:   {{printf "%.2f" .StartBalance}}
:END_BAL:     {{printf "%.2f" .EndBalance}}
:NET_PL:      {{printf "%.2f" .NetPL}}
:RETURN_PCT:  {{printf "%.2f" .ReturnPct}}
:BUYS:        {{.Buys}}
:SELLS:       {{.Sells}}
:WINS:        {{.Wins}}
:LOSSES:      {{.Losses}}
:WIN_RATE:    {{printf "%.2f" .WinRate}}
:CREATED:     [{{(orTime .Created).Format "2006-01-02 Mon 15:04"}}]
:END:

** Strategy Parameters
#+begin_src json
{{printf "%s" .Params}}
#+end_src

** Performance Summary
- Net P/L:          *{{printf "%.2f" .NetPL}}*
- Realized P/L:     *{{printf "%.2f" .RealizedPL}}*
- Return:           *{{printf "%.2f" .ReturnPct}}%*
- Win Rate:         *{{printf "%.2f" .WinRate}}%*
- Days evaluated:   {{.Evaluations}} ({{.SkippedDays}} without data, {{.Rejections}} rejected orders)

** Trade Distribution
| Outcome | Count |
|---------+-------|
| Wins    | {{.Wins}} |
| Losses  | {{.Losses}} |
| Sells   | {{.Sells}} |

{{- if .Transactions }}

** Transactions
| Date | Side | Qty | Price | P/L | Reason |
|------+------+-----+-------+-----+--------|
{{- range .Transactions }}
| {{.Time.Format "2006-01-02"}} | {{.Side}} | {{.Quantity}} | {{money .Price}} | {{if .PL}}{{money .PL}}{{end}} | {{.Reason}} |
{{- end }}
{{- end }}

{{- if .Notes }}

** Observations
{{- range .Notes }}
- {{.}}
{{- end }}
{{- end }}

{{- if .NextActions }}

** Notes / Next Actions
{{- range .NextActions }}
- [ ] {{.}}
{{- end }}
{{- end }}
`
