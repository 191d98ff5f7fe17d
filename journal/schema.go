package journal

// Times are stored as RFC 3339 text so both sqlite drivers read them back
// the same way.
const Schema = `
CREATE TABLE IF NOT EXISTS portfolios (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id INTEGER NOT NULL,
	name TEXT NOT NULL,
	data TEXT NOT NULL,
	created_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_portfolios_user ON portfolios(user_id);

CREATE TABLE IF NOT EXISTS backtest_runs (
	run_id TEXT PRIMARY KEY,
	strategy TEXT NOT NULL,
	symbol TEXT NOT NULL,
	params TEXT NOT NULL,
	start_date TEXT NOT NULL,
	end_date TEXT NOT NULL,
	start_balance REAL NOT NULL,
	end_balance REAL NOT NULL,
	return_pct REAL NOT NULL,
	buys INTEGER NOT NULL,
	sells INTEGER NOT NULL,
	wins INTEGER NOT NULL,
	losses INTEGER NOT NULL,
	realized_pl REAL NOT NULL,
	evaluations INTEGER NOT NULL,
	skipped_days INTEGER NOT NULL,
	rejections INTEGER NOT NULL,
	transactions TEXT NOT NULL,
	created_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS strategies (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id INTEGER NOT NULL,
	portfolio_id INTEGER NOT NULL,
	name TEXT NOT NULL,
	symbol TEXT NOT NULL,
	strategy_type TEXT NOT NULL,
	parameters TEXT NOT NULL,
	is_active INTEGER NOT NULL DEFAULT 1,
	created_at TEXT NOT NULL,
	last_executed TEXT,
	FOREIGN KEY(portfolio_id) REFERENCES portfolios(id)
);

CREATE TABLE IF NOT EXISTS strategy_executions (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	strategy_id INTEGER NOT NULL,
	execution_time TEXT NOT NULL,
	action TEXT NOT NULL,
	quantity INTEGER NOT NULL,
	price REAL NOT NULL,
	FOREIGN KEY(strategy_id) REFERENCES strategies(id)
);

CREATE INDEX IF NOT EXISTS idx_executions_strategy ON strategy_executions(strategy_id);

CREATE TABLE IF NOT EXISTS watchlists (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id INTEGER NOT NULL,
	name TEXT NOT NULL,
	created_at TEXT NOT NULL,
	UNIQUE(user_id, name)
);

CREATE TABLE IF NOT EXISTS watchlist_items (
	watchlist_id INTEGER NOT NULL,
	symbol TEXT NOT NULL,
	added_on TEXT NOT NULL,
	added_price REAL NOT NULL,
	notes TEXT NOT NULL DEFAULT '',
	PRIMARY KEY(watchlist_id, symbol),
	FOREIGN KEY(watchlist_id) REFERENCES watchlists(id)
);
`
