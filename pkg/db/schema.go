package db

import "fmt"

const schema = `
PRAGMA journal_mode=WAL;

CREATE TABLE IF NOT EXISTS daily_states (
    date TEXT PRIMARY KEY,
    capital REAL NOT NULL,
    realized_pnl REAL DEFAULT 0,
    loss_budget_remaining REAL NOT NULL,
    deployed_capital REAL DEFAULT 0,
    trades_executed INTEGER DEFAULT 0,
    open_position_count INTEGER DEFAULT 0,
    consecutive_losses INTEGER DEFAULT 0,
    peak_capital REAL DEFAULT 0,
    drawdown REAL DEFAULT 0,
    safe_mode INTEGER DEFAULT 0,
    safe_mode_reason TEXT,
    halted INTEGER DEFAULT 0,
    halt_reason TEXT,
    last_strategy_id TEXT,
    last_switch_at DATETIME,
    last_trade_at DATETIME,
    archived INTEGER DEFAULT 0,
    updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS positions (
    id TEXT PRIMARY KEY,
    symbol TEXT NOT NULL,
    side TEXT NOT NULL,
    qty INTEGER NOT NULL,
    entry_price REAL NOT NULL,
    current_price REAL NOT NULL,
    peak_price REAL NOT NULL,
    stop_loss REAL NOT NULL,
    target REAL NOT NULL,
    strategy_id TEXT,
    trailing_active INTEGER DEFAULT 0,
    partials_fired TEXT DEFAULT '',
    state TEXT NOT NULL,
    entry_at DATETIME NOT NULL,
    updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS trades (
    id TEXT PRIMARY KEY,
    position_id TEXT NOT NULL,
    symbol TEXT NOT NULL,
    side TEXT NOT NULL,
    qty INTEGER NOT NULL,
    entry_price REAL NOT NULL,
    exit_price REAL NOT NULL,
    pnl REAL NOT NULL,
    fees REAL DEFAULT 0,
    reason TEXT,
    closed_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS intents (
    id TEXT PRIMARY KEY,
    symbol TEXT NOT NULL,
    side TEXT NOT NULL,
    entry REAL,
    stop_loss REAL,
    target REAL,
    qty INTEGER,
    strategy_id TEXT,
    confidence REAL,
    expected_risk REAL,
    rationale TEXT,
    status TEXT NOT NULL,
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS approvals (
    intent_id TEXT PRIMARY KEY,
    approved INTEGER NOT NULL,
    adjusted_qty INTEGER,
    hitl_required INTEGER DEFAULT 0,
    check_id TEXT,
    reason TEXT,
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_trades_symbol ON trades(symbol);
CREATE INDEX IF NOT EXISTS idx_intents_status ON intents(status);
`

// ApplyMigrations creates the schema when missing.
func ApplyMigrations(d *Database) error {
	if _, err := d.DB.Exec(schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}
