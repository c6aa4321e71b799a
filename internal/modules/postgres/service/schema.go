package service

const schemaSQL = `
CREATE TABLE IF NOT EXISTS bot_configs (
    user_id              BIGINT PRIMARY KEY,
    symbols              JSONB NOT NULL DEFAULT '[]',
    amount_per_trade     NUMERIC(18,2) NOT NULL,
    timeframe            BIGINT NOT NULL DEFAULT 0,
    candle_count         INTEGER NOT NULL DEFAULT 100,
    cycle_interval       INTEGER NOT NULL DEFAULT 30,
    max_trades_per_cycle INTEGER NOT NULL DEFAULT 3,
    daily_trade_limit    INTEGER NOT NULL DEFAULT 5,
    min_signal_gap       INTEGER NOT NULL DEFAULT 5,
    strategy             TEXT NOT NULL DEFAULT '',
    zone_policy          TEXT NOT NULL DEFAULT '',
    updated_at           TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS bot_status (
    user_id    BIGINT PRIMARY KEY,
    is_running BOOLEAN NOT NULL DEFAULT FALSE,
    started_at TIMESTAMPTZ,
    stopped_at TIMESTAMPTZ,
    updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS trades (
    id            TEXT PRIMARY KEY,
    user_id       BIGINT NOT NULL,
    contract_id   TEXT NOT NULL DEFAULT '',
    proposal_id   TEXT NOT NULL DEFAULT '',
    symbol        TEXT NOT NULL,
    contract_type TEXT NOT NULL,
    action        TEXT NOT NULL,
    amount        NUMERIC(18,2) NOT NULL,
    entry_price   NUMERIC NOT NULL DEFAULT 0,
    payout        NUMERIC NOT NULL DEFAULT 0,
    status        TEXT NOT NULL,
    opened_at     TIMESTAMPTZ NOT NULL,
    closed_at     TIMESTAMPTZ,
    close_price   NUMERIC NOT NULL DEFAULT 0,
    pnl           NUMERIC NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_trades_user ON trades(user_id, opened_at);
`
