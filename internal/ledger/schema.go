package ledger

const schema = `
CREATE TABLE IF NOT EXISTS opportunities (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	market_id TEXT NOT NULL,
	timestamp REAL NOT NULL,
	yes_ask REAL,
	no_ask REAL,
	yes_size REAL,
	no_size REAL,
	sum_cost REAL,
	edge REAL,
	cost_buffer REAL,
	decision TEXT NOT NULL,
	reason TEXT,
	created_at TEXT DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS tradesets (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	market_id TEXT NOT NULL,
	status TEXT NOT NULL DEFAULT 'pending',
	yes_order_id TEXT,
	no_order_id TEXT,
	yes_cost REAL,
	no_cost REAL,
	total_cost REAL,
	total_fees REAL DEFAULT 0,
	expected_payout REAL DEFAULT 1.0,
	realized_pnl REAL,
	resolution_outcome TEXT,
	created_at TEXT DEFAULT CURRENT_TIMESTAMP,
	updated_at TEXT
);

CREATE TABLE IF NOT EXISTS orders (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	order_id TEXT UNIQUE NOT NULL,
	tradeset_id INTEGER,
	market_id TEXT NOT NULL,
	token_id TEXT NOT NULL,
	side TEXT NOT NULL,
	order_type TEXT NOT NULL,
	price REAL NOT NULL,
	size REAL NOT NULL,
	status TEXT NOT NULL,
	filled_size REAL DEFAULT 0,
	avg_fill_price REAL,
	fee REAL DEFAULT 0,
	created_at TEXT DEFAULT CURRENT_TIMESTAMP,
	updated_at TEXT,
	FOREIGN KEY (tradeset_id) REFERENCES tradesets(id)
);

CREATE TABLE IF NOT EXISTS fills (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	fill_id TEXT UNIQUE NOT NULL,
	order_id TEXT NOT NULL,
	price REAL NOT NULL,
	size REAL NOT NULL,
	fee REAL DEFAULT 0,
	timestamp REAL NOT NULL,
	created_at TEXT DEFAULT CURRENT_TIMESTAMP,
	FOREIGN KEY (order_id) REFERENCES orders(order_id)
);

CREATE TABLE IF NOT EXISTS risk_events (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	event_type TEXT NOT NULL,
	market_id TEXT,
	details TEXT,
	created_at TEXT DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS control (
	id INTEGER PRIMARY KEY CHECK (id = 1),
	halted INTEGER NOT NULL DEFAULT 0,
	halt_reason TEXT,
	heartbeat_at TEXT
);

INSERT OR IGNORE INTO control (id, halted) VALUES (1, 0);

CREATE INDEX IF NOT EXISTS idx_opportunities_market ON opportunities(market_id);
CREATE INDEX IF NOT EXISTS idx_opportunities_timestamp ON opportunities(timestamp);
CREATE INDEX IF NOT EXISTS idx_orders_tradeset ON orders(tradeset_id);
CREATE INDEX IF NOT EXISTS idx_fills_order ON fills(order_id);
CREATE INDEX IF NOT EXISTS idx_risk_events_created ON risk_events(created_at);
`
