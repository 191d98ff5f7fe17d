package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// CreateWatchlist adds an empty watchlist. Names are unique per user.
func (j *SQLite) CreateWatchlist(ctx context.Context, userID int64, name string) (int64, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return 0, errors.New("journal: watchlist name is required")
	}

	var existing int64
	err := j.db.QueryRowContext(ctx, `
		SELECT id FROM watchlists WHERE user_id = ? AND name = ?`, userID, name).Scan(&existing)
	switch {
	case err == nil:
		return 0, fmt.Errorf("%w: watchlist %q", ErrExists, name)
	case !errors.Is(err, sql.ErrNoRows):
		return 0, err
	}

	res, err := j.db.ExecContext(ctx, `
		INSERT INTO watchlists (user_id, name, created_at) VALUES (?, ?, ?)`,
		userID, name, j.now().Format(timeLayout))
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// AddToWatchlist starts following symbol at price. A symbol can be on a
// watchlist once.
func (j *SQLite) AddToWatchlist(ctx context.Context, userID, id int64, symbol string, price float64, notes string) error {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return errors.New("journal: symbol is required")
	}

	tx, err := j.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if err := ownsWatchlist(ctx, tx, userID, id); err != nil {
		return err
	}
	var n int
	err = tx.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM watchlist_items WHERE watchlist_id = ? AND symbol = ?`,
		id, symbol).Scan(&n)
	if err != nil {
		return err
	}
	if n > 0 {
		return fmt.Errorf("%w: %s on watchlist %d", ErrExists, symbol, id)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO watchlist_items (watchlist_id, symbol, added_on, added_price, notes)
		VALUES (?, ?, ?, ?, ?)`,
		id, symbol, j.now().Format(timeLayout), price, notes)
	if err != nil {
		return err
	}
	return tx.Commit()
}

// RemoveFromWatchlist stops following symbol.
func (j *SQLite) RemoveFromWatchlist(ctx context.Context, userID, id int64, symbol string) error {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))

	tx, err := j.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if err := ownsWatchlist(ctx, tx, userID, id); err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx, `
		DELETE FROM watchlist_items WHERE watchlist_id = ? AND symbol = ?`, id, symbol)
	if err != nil {
		return err
	}
	if err := affected(res, "watchlist symbol", symbol); err != nil {
		return err
	}
	return tx.Commit()
}

// GetWatchlist returns the watchlist with its symbols in alphabetical
// order.
func (j *SQLite) GetWatchlist(ctx context.Context, userID, id int64) (Watchlist, error) {
	var (
		w       Watchlist
		created string
	)
	err := j.db.QueryRowContext(ctx, `
		SELECT id, user_id, name, created_at FROM watchlists
		WHERE id = ? AND user_id = ?`, id, userID).Scan(&w.ID, &w.UserID, &w.Name, &created)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Watchlist{}, fmt.Errorf("%w: watchlist %d", ErrNotFound, id)
		}
		return Watchlist{}, err
	}
	if w.Created, err = time.Parse(timeLayout, created); err != nil {
		return Watchlist{}, err
	}

	rows, err := j.db.QueryContext(ctx, `
		SELECT symbol, added_on, added_price, notes FROM watchlist_items
		WHERE watchlist_id = ?
		ORDER BY symbol ASC`, id)
	if err != nil {
		return Watchlist{}, err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			it    WatchItem
			added string
		)
		if err := rows.Scan(&it.Symbol, &added, &it.AddedPrice, &it.Notes); err != nil {
			return Watchlist{}, err
		}
		if it.AddedOn, err = time.Parse(timeLayout, added); err != nil {
			return Watchlist{}, err
		}
		w.Items = append(w.Items, it)
	}
	if err := rows.Err(); err != nil {
		return Watchlist{}, err
	}
	return w, nil
}

// ListWatchlists returns the user's watchlists without their symbols.
func (j *SQLite) ListWatchlists(ctx context.Context, userID int64) ([]Watchlist, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT id, user_id, name, created_at FROM watchlists
		WHERE user_id = ?
		ORDER BY id ASC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Watchlist
	for rows.Next() {
		var (
			w       Watchlist
			created string
		)
		if err := rows.Scan(&w.ID, &w.UserID, &w.Name, &created); err != nil {
			return nil, err
		}
		if w.Created, err = time.Parse(timeLayout, created); err != nil {
			return nil, err
		}
		out = append(out, w)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// DeleteWatchlist removes the watchlist and its symbols.
func (j *SQLite) DeleteWatchlist(ctx context.Context, userID, id int64) error {
	tx, err := j.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `DELETE FROM watchlists WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return err
	}
	if err := affected(res, "watchlist", id); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM watchlist_items WHERE watchlist_id = ?`, id); err != nil {
		return err
	}
	return tx.Commit()
}

func ownsWatchlist(ctx context.Context, tx *sql.Tx, userID, id int64) error {
	var owner int64
	err := tx.QueryRowContext(ctx, `
		SELECT id FROM watchlists WHERE id = ? AND user_id = ?`, id, userID).Scan(&owner)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: watchlist %d", ErrNotFound, id)
	}
	return err
}
