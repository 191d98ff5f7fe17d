package journal

import (
	"errors"
	"time"

	"github.com/rustyeddy/quarks/strategies"
)

var (
	// ErrNotFound is returned when a row does not exist or belongs to
	// another user.
	ErrNotFound = errors.New("journal: not found")

	// ErrExists is returned when a name or symbol is already taken.
	ErrExists = errors.New("journal: already exists")
)

// PortfolioRow is a stored ledger without its snapshot.
type PortfolioRow struct {
	ID      int64
	UserID  int64
	Name    string
	Created time.Time
}

// StrategyRecord is a saved strategy definition.
type StrategyRecord struct {
	ID            int64
	UserID        int64
	PortfolioID   int64
	PortfolioName string
	Name          string
	Symbol        string
	Type          string
	Params        strategies.Params
	Active        bool
	Created       time.Time
	LastExecuted  time.Time // zero if never run
}

// Execution is one accepted transaction attributed to a saved strategy.
type Execution struct {
	ID         int64
	StrategyID int64
	Time       time.Time
	Action     string
	Quantity   int64
	Price      float64
}

// Watchlist is a named set of symbols a user follows without holding them.
type Watchlist struct {
	ID      int64
	UserID  int64
	Name    string
	Created time.Time
	Items   []WatchItem
}

// WatchItem is one followed symbol with the price it had when added.
type WatchItem struct {
	Symbol     string
	AddedOn    time.Time
	AddedPrice float64
	Notes      string
}

// Change is the move from the added price to price, absolute and as a
// fraction. The fraction is zero when no added price was recorded.
func (w WatchItem) Change(price float64) (float64, float64) {
	diff := price - w.AddedPrice
	if w.AddedPrice == 0 {
		return diff, 0
	}
	return diff, diff / w.AddedPrice
}
