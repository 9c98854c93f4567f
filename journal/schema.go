package journal

const Schema = `
CREATE TABLE IF NOT EXISTS runs (
	run_id TEXT PRIMARY KEY,
	created DATETIME NOT NULL,
	instrument TEXT NOT NULL,
	timeframe TEXT NOT NULL,
	dataset TEXT NOT NULL,
	trend_period INTEGER NOT NULL,
	trend_multiplier REAL NOT NULL,
	hma_period INTEGER NOT NULL,
	slope_scaling REAL NOT NULL,
	slope_threshold REAL NOT NULL,
	take_profit REAL NOT NULL,
	quantity REAL NOT NULL,
	start_time DATETIME,
	end_time DATETIME,
	from_time DATETIME,
	trades INTEGER NOT NULL,
	wins INTEGER NOT NULL,
	losses INTEGER NOT NULL,
	win_rate REAL NOT NULL,
	total_points REAL NOT NULL,
	total_pnl REAL NOT NULL,
	avg_run_up REAL NOT NULL
);

CREATE TABLE IF NOT EXISTS trades (
	trade_id TEXT PRIMARY KEY,
	run_id TEXT NOT NULL,
	instrument TEXT NOT NULL,
	side TEXT NOT NULL,
	quantity REAL NOT NULL,
	entry_price REAL NOT NULL,
	exit_price REAL NOT NULL,
	peak_price REAL NOT NULL,
	entry_time DATETIME NOT NULL,
	exit_time DATETIME,
	pnl_per_unit REAL NOT NULL,
	pnl REAL NOT NULL,
	run_up REAL NOT NULL,
	reason TEXT NOT NULL,
	status TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_trades_run ON trades(run_id);
CREATE INDEX IF NOT EXISTS idx_trades_exit_time ON trades(exit_time);
`
