package journal

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rustyeddy/quarks/portfolio"
	"github.com/rustyeddy/quarks/strategies"
	_ "modernc.org/sqlite"
)

const (
	DriverCGO    = "sqlite3" // github.com/mattn/go-sqlite3
	DriverPureGo = "sqlite"  // modernc.org/sqlite
)

const timeLayout = time.RFC3339Nano

// SQLite is the persistent store for portfolios, backtest runs and saved
// strategies.
type SQLite struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLite opens path with the cgo driver.
func NewSQLite(path string) (*SQLite, error) {
	return Open(DriverCGO, path)
}

// Open opens path with the named driver and applies the schema.
func Open(driver, path string) (*SQLite, error) {
	switch driver {
	case "":
		driver = DriverCGO
	case DriverCGO, DriverPureGo:
	default:
		return nil, fmt.Errorf("journal: unsupported driver %q", driver)
	}

	db, err := sql.Open(driver, path)
	if err != nil {
		return nil, err
	}
	// one writer keeps in-memory databases shared and avoids SQLITE_BUSY
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(Schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("journal: apply schema: %w", err)
	}
	return &SQLite{db: db, now: func() time.Time { return time.Now().UTC() }}, nil
}

func (j *SQLite) Close() error {
	return j.db.Close()
}

// SavePortfolio stores a new snapshot of l for userID and returns its id.
func (j *SQLite) SavePortfolio(ctx context.Context, userID int64, l *portfolio.Ledger) (int64, error) {
	data, err := json.Marshal(l)
	if err != nil {
		return 0, err
	}
	res, err := j.db.ExecContext(ctx, `
		INSERT INTO portfolios (user_id, name, data, created_at)
		VALUES (?, ?, ?, ?)`,
		userID, l.Name, string(data), j.now().Format(timeLayout),
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// UpdatePortfolio replaces the stored snapshot.
func (j *SQLite) UpdatePortfolio(ctx context.Context, userID, id int64, l *portfolio.Ledger) error {
	data, err := json.Marshal(l)
	if err != nil {
		return err
	}
	res, err := j.db.ExecContext(ctx, `
		UPDATE portfolios SET name = ?, data = ?
		WHERE id = ? AND user_id = ?`,
		l.Name, string(data), id, userID,
	)
	if err != nil {
		return err
	}
	return affected(res, "portfolio", id)
}

// LoadPortfolio restores the ledger stored under id.
func (j *SQLite) LoadPortfolio(ctx context.Context, userID, id int64) (*portfolio.Ledger, error) {
	var data string
	err := j.db.QueryRowContext(ctx, `
		SELECT data FROM portfolios WHERE id = ? AND user_id = ?`, id, userID).Scan(&data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: portfolio %d", ErrNotFound, id)
		}
		return nil, err
	}

	l := new(portfolio.Ledger)
	if err := json.Unmarshal([]byte(data), l); err != nil {
		return nil, fmt.Errorf("journal: portfolio %d: %w", id, err)
	}
	return l, nil
}

func (j *SQLite) ListPortfolios(ctx context.Context, userID int64) ([]PortfolioRow, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT id, user_id, name, created_at
		FROM portfolios
		WHERE user_id = ?
		ORDER BY id ASC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []PortfolioRow
	for rows.Next() {
		var (
			p       PortfolioRow
			created string
		)
		if err := rows.Scan(&p.ID, &p.UserID, &p.Name, &created); err != nil {
			return nil, err
		}
		if p.Created, err = time.Parse(timeLayout, created); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// CreateStrategy saves a strategy definition against one of the user's
// portfolios. The type must name a registered strategy and the
// parameters must be valid for it.
func (j *SQLite) CreateStrategy(ctx context.Context, rec StrategyRecord) (int64, error) {
	s, err := strategies.New(rec.Type, rec.Params)
	if err != nil {
		return 0, err
	}
	if strings.TrimSpace(rec.Symbol) == "" {
		return 0, fmt.Errorf("%w: symbol is required", strategies.ErrInvalidParameters)
	}

	var owner int64
	err = j.db.QueryRowContext(ctx, `
		SELECT id FROM portfolios WHERE id = ? AND user_id = ?`,
		rec.PortfolioID, rec.UserID).Scan(&owner)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, fmt.Errorf("%w: portfolio %d", ErrNotFound, rec.PortfolioID)
		}
		return 0, err
	}

	params, err := json.Marshal(rec.Params)
	if err != nil {
		return 0, err
	}
	res, err := j.db.ExecContext(ctx, `
		INSERT INTO strategies
		(user_id, portfolio_id, name, symbol, strategy_type, parameters, is_active, created_at)
		VALUES (?, ?, ?, ?, ?, ?, 1, ?)`,
		rec.UserID, rec.PortfolioID, rec.Name, strings.ToUpper(rec.Symbol),
		s.Name(), string(params), j.now().Format(timeLayout),
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

const strategyColumns = `
	s.id, s.user_id, s.portfolio_id, p.name, s.name, s.symbol,
	s.strategy_type, s.parameters, s.is_active, s.created_at, s.last_executed`

func (j *SQLite) GetStrategy(ctx context.Context, userID, id int64) (StrategyRecord, error) {
	row := j.db.QueryRowContext(ctx, `SELECT `+strategyColumns+`
		FROM strategies s
		JOIN portfolios p ON s.portfolio_id = p.id
		WHERE s.id = ? AND s.user_id = ?`, id, userID)

	rec, err := scanStrategy(row)
	if errors.Is(err, sql.ErrNoRows) {
		return StrategyRecord{}, fmt.Errorf("%w: strategy %d", ErrNotFound, id)
	}
	return rec, err
}

// ListStrategies returns the user's strategies with their portfolio names.
func (j *SQLite) ListStrategies(ctx context.Context, userID int64) ([]StrategyRecord, error) {
	rows, err := j.db.QueryContext(ctx, `SELECT `+strategyColumns+`
		FROM strategies s
		JOIN portfolios p ON s.portfolio_id = p.id
		WHERE s.user_id = ?
		ORDER BY s.id ASC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []StrategyRecord
	for rows.Next() {
		rec, err := scanStrategy(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (j *SQLite) ToggleStrategy(ctx context.Context, userID, id int64, active bool) error {
	res, err := j.db.ExecContext(ctx, `
		UPDATE strategies SET is_active = ?
		WHERE id = ? AND user_id = ?`, active, id, userID)
	if err != nil {
		return err
	}
	return affected(res, "strategy", id)
}

// DeleteStrategy removes the strategy and its execution log.
func (j *SQLite) DeleteStrategy(ctx context.Context, userID, id int64) error {
	tx, err := j.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `DELETE FROM strategies WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return err
	}
	if err := affected(res, "strategy", id); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM strategy_executions WHERE strategy_id = ?`, id); err != nil {
		return err
	}
	return tx.Commit()
}

// RecordExecutions appends the transactions of a run to the strategy's
// execution log and stamps last_executed.
func (j *SQLite) RecordExecutions(ctx context.Context, strategyID int64, txs []portfolio.Transaction) error {
	tx, err := j.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `UPDATE strategies SET last_executed = ? WHERE id = ?`,
		j.now().Format(timeLayout), strategyID)
	if err != nil {
		return err
	}
	if err := affected(res, "strategy", strategyID); err != nil {
		return err
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO strategy_executions (strategy_id, execution_time, action, quantity, price)
		VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, t := range txs {
		if _, err := stmt.ExecContext(ctx, strategyID, t.Time.UTC().Format(timeLayout),
			string(t.Side), t.Quantity, t.Price.InexactFloat64()); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (j *SQLite) ListExecutions(ctx context.Context, strategyID int64) ([]Execution, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT id, strategy_id, execution_time, action, quantity, price
		FROM strategy_executions
		WHERE strategy_id = ?
		ORDER BY execution_time ASC, id ASC`, strategyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Execution
	for rows.Next() {
		var (
			e  Execution
			ts string
		)
		if err := rows.Scan(&e.ID, &e.StrategyID, &ts, &e.Action, &e.Quantity, &e.Price); err != nil {
			return nil, err
		}
		if e.Time, err = time.Parse(timeLayout, ts); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanStrategy(s scanner) (StrategyRecord, error) {
	var (
		rec      StrategyRecord
		params   string
		created  string
		executed sql.NullString
	)
	err := s.Scan(&rec.ID, &rec.UserID, &rec.PortfolioID, &rec.PortfolioName, &rec.Name,
		&rec.Symbol, &rec.Type, &params, &rec.Active, &created, &executed)
	if err != nil {
		return StrategyRecord{}, err
	}
	if err := json.Unmarshal([]byte(params), &rec.Params); err != nil {
		return StrategyRecord{}, fmt.Errorf("journal: strategy %d parameters: %w", rec.ID, err)
	}
	if rec.Created, err = time.Parse(timeLayout, created); err != nil {
		return StrategyRecord{}, err
	}
	if executed.Valid {
		if rec.LastExecuted, err = time.Parse(timeLayout, executed.String); err != nil {
			return StrategyRecord{}, err
		}
	}
	return rec, nil
}

func affected(res sql.Result, what string, id any) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %s %v", ErrNotFound, what, id)
	}
	return nil
}
