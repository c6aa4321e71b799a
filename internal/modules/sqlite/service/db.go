package service

import (
	"database/sql"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	_ "modernc.org/sqlite"
)

const memory = ":memory:"

// Open открывает файл базы (или :memory:) в WAL-режиме.
func Open(path string) (*sql.DB, error) {
	if path != memory {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, errors.Wrap(err, "create db directory")
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.Wrap(err, "open sqlite")
	}
	// у каждого соединения своя :memory: база, а писатель у sqlite всё равно один
	db.SetMaxOpenConns(1)

	if path != memory {
		if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, errors.Wrap(err, "set WAL mode")
		}
	}
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "set busy timeout")
	}
	return db, nil
}

const schemaSQL = `
CREATE TABLE IF NOT EXISTS schema_version (
    version    INTEGER PRIMARY KEY,
    applied_at TEXT NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS bot_configs (
    user_id              INTEGER PRIMARY KEY,
    symbols              TEXT NOT NULL DEFAULT '[]',
    amount_per_trade     TEXT NOT NULL,
    timeframe            INTEGER NOT NULL DEFAULT 0,
    candle_count         INTEGER NOT NULL DEFAULT 100,
    cycle_interval       INTEGER NOT NULL DEFAULT 30,
    max_trades_per_cycle INTEGER NOT NULL DEFAULT 3,
    daily_trade_limit    INTEGER NOT NULL DEFAULT 5,
    min_signal_gap       INTEGER NOT NULL DEFAULT 5,
    strategy             TEXT NOT NULL DEFAULT '',
    zone_policy          TEXT NOT NULL DEFAULT '',
    updated_at           INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS bot_status (
    user_id    INTEGER PRIMARY KEY,
    is_running INTEGER NOT NULL DEFAULT 0,
    started_at INTEGER,
    stopped_at INTEGER,
    updated_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS trades (
    id            TEXT PRIMARY KEY,
    user_id       INTEGER NOT NULL,
    contract_id   TEXT NOT NULL DEFAULT '',
    proposal_id   TEXT NOT NULL DEFAULT '',
    symbol        TEXT NOT NULL,
    contract_type TEXT NOT NULL,
    action        TEXT NOT NULL,
    amount        TEXT NOT NULL,
    entry_price   TEXT NOT NULL DEFAULT '0',
    payout        TEXT NOT NULL DEFAULT '0',
    status        TEXT NOT NULL,
    opened_at     INTEGER NOT NULL,
    closed_at     INTEGER,
    close_price   TEXT NOT NULL DEFAULT '0',
    pnl           TEXT NOT NULL DEFAULT '0'
);
CREATE INDEX IF NOT EXISTS idx_trades_user ON trades(user_id, opened_at);
`

// Migrate создаёт таблицы. IF NOT EXISTS, так что повторный вызов безопасен.
func Migrate(db *sql.DB) error {
	if _, err := db.Exec(schemaSQL); err != nil {
		return errors.Wrap(err, "run migrations")
	}
	if _, err := db.Exec(`INSERT OR IGNORE INTO schema_version (version) VALUES (1)`); err != nil {
		return errors.Wrap(err, "record schema version")
	}
	return nil
}
