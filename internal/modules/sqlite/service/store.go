package service

import (
	"context"
	"database/sql"
	"time"

	"github.com/bytedance/sonic"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"deriv_bot/internal/models"
)

// Store — те же таблицы, что и в postgres, для локального запуска.
// Время хранится в unix-миллисекундах, деньги строками.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db, now: time.Now}
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) GetConfig(ctx context.Context, userID int64) (*models.BotConfig, error) {
	var (
		symbols, amount string
		updated         int64
	)
	cfg := &models.BotConfig{UserID: userID}
	err := s.db.QueryRowContext(ctx, `
		SELECT symbols, amount_per_trade, timeframe, candle_count, cycle_interval,
		       max_trades_per_cycle, daily_trade_limit, min_signal_gap, strategy, zone_policy, updated_at
		FROM bot_configs WHERE user_id = ?`, userID,
	).Scan(&symbols, &amount, &cfg.Timeframe, &cfg.CandleCount, &cfg.CycleInterval,
		&cfg.MaxTradesPerCycle, &cfg.DailyTradeLimit, &cfg.MinSignalGap, &cfg.Strategy, &cfg.ZonePolicy, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "sqlite.GetConfig")
	}

	if err := sonic.UnmarshalString(symbols, &cfg.Symbols); err != nil {
		return nil, errors.Wrap(err, "sqlite.GetConfig: decode symbols")
	}
	if cfg.AmountPerTrade, err = decimal.NewFromString(amount); err != nil {
		return nil, errors.Wrap(err, "sqlite.GetConfig: decode amount")
	}
	cfg.UpdatedAt = fromMillis(updated)
	return cfg, nil
}

func (s *Store) SaveConfig(ctx context.Context, cfg *models.BotConfig) error {
	symbols, err := sonic.MarshalString(cfg.Symbols)
	if err != nil {
		return errors.Wrap(err, "sqlite.SaveConfig: encode symbols")
	}
	cfg.UpdatedAt = s.now().UTC()

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO bot_configs (user_id, symbols, amount_per_trade, timeframe, candle_count, cycle_interval,
		                         max_trades_per_cycle, daily_trade_limit, min_signal_gap, strategy, zone_policy, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id) DO UPDATE SET
			symbols = excluded.symbols,
			amount_per_trade = excluded.amount_per_trade,
			timeframe = excluded.timeframe,
			candle_count = excluded.candle_count,
			cycle_interval = excluded.cycle_interval,
			max_trades_per_cycle = excluded.max_trades_per_cycle,
			daily_trade_limit = excluded.daily_trade_limit,
			min_signal_gap = excluded.min_signal_gap,
			strategy = excluded.strategy,
			zone_policy = excluded.zone_policy,
			updated_at = excluded.updated_at`,
		cfg.UserID, symbols, cfg.AmountPerTrade.String(), cfg.Timeframe, cfg.CandleCount, cfg.CycleInterval,
		cfg.MaxTradesPerCycle, cfg.DailyTradeLimit, cfg.MinSignalGap, cfg.Strategy, cfg.ZonePolicy, millis(cfg.UpdatedAt),
	)
	return errors.Wrap(err, "sqlite.SaveConfig")
}

func (s *Store) GetStatus(ctx context.Context, userID int64) (*models.BotStatus, error) {
	var (
		running          bool
		started, stopped sql.NullInt64
		updated          int64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT is_running, started_at, stopped_at, updated_at FROM bot_status WHERE user_id = ?`, userID,
	).Scan(&running, &started, &stopped, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "sqlite.GetStatus")
	}
	return &models.BotStatus{
		UserID:    userID,
		IsRunning: running,
		StartedAt: nullTime(started),
		StoppedAt: nullTime(stopped),
		UpdatedAt: fromMillis(updated),
	}, nil
}

func (s *Store) MarkRunning(ctx context.Context, userID int64, startedAt time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO bot_status (user_id, is_running, started_at, stopped_at, updated_at)
		VALUES (?, 1, ?, NULL, ?)
		ON CONFLICT (user_id) DO UPDATE SET
			is_running = 1, started_at = excluded.started_at, stopped_at = NULL, updated_at = excluded.updated_at`,
		userID, millis(startedAt), millis(s.now()),
	)
	return errors.Wrap(err, "sqlite.MarkRunning")
}

func (s *Store) MarkStopped(ctx context.Context, userID int64, stoppedAt time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO bot_status (user_id, is_running, stopped_at, updated_at)
		VALUES (?, 0, ?, ?)
		ON CONFLICT (user_id) DO UPDATE SET
			is_running = 0, stopped_at = excluded.stopped_at, updated_at = excluded.updated_at`,
		userID, millis(stoppedAt), millis(s.now()),
	)
	return errors.Wrap(err, "sqlite.MarkStopped")
}

func (s *Store) InsertTrade(ctx context.Context, userID int64, t *models.Trade) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO trades (id, user_id, contract_id, proposal_id, symbol, contract_type, action,
		                              amount, entry_price, payout, status, opened_at, closed_at, close_price, pnl)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, userID, t.ContractID, t.ProposalID, t.Symbol, string(t.ContractType), string(t.Action),
		t.Amount.String(), t.EntryPrice.String(), t.Payout.String(), string(t.Status), millis(t.OpenedAt),
		nullMillis(t.ClosedAt), t.ClosePrice.String(), t.PnL.String(),
	)
	return errors.Wrapf(err, "sqlite.InsertTrade %s", t.ID)
}

func (s *Store) CloseTrade(ctx context.Context, userID int64, t *models.Trade) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE trades SET status = ?, closed_at = ?, close_price = ?, pnl = ?
		WHERE id = ? AND user_id = ?`,
		string(t.Status), nullMillis(t.ClosedAt), t.ClosePrice.String(), t.PnL.String(), t.ID, userID,
	)
	return errors.Wrapf(err, "sqlite.CloseTrade %s", t.ID)
}

// Trades — последние сделки юзера, новые первыми.
func (s *Store) Trades(ctx context.Context, userID int64, limit int) ([]models.Trade, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, contract_id, proposal_id, symbol, contract_type, action, amount, entry_price,
		       payout, status, opened_at, closed_at, close_price, pnl
		FROM trades WHERE user_id = ? ORDER BY opened_at DESC LIMIT ?`, userID, limit)
	if err != nil {
		return nil, errors.Wrap(err, "sqlite.Trades")
	}
	defer rows.Close()

	var out []models.Trade
	for rows.Next() {
		var (
			t                                      models.Trade
			ct, action, status                     string
			amount, entry, payout, closePrice, pnl string
			opened                                 int64
			closed                                 sql.NullInt64
		)
		if err := rows.Scan(&t.ID, &t.ContractID, &t.ProposalID, &t.Symbol, &ct, &action, &amount, &entry,
			&payout, &status, &opened, &closed, &closePrice, &pnl); err != nil {
			return nil, errors.Wrap(err, "sqlite.Trades: scan")
		}
		t.ContractType = models.ContractType(ct)
		t.Action = models.Action(action)
		t.Status = models.TradeStatus(status)
		t.OpenedAt = fromMillis(opened)
		t.ClosedAt = nullTime(closed)
		t.Amount = decimal.RequireFromString(amount)
		t.EntryPrice = decimal.RequireFromString(entry)
		t.Payout = decimal.RequireFromString(payout)
		t.ClosePrice = decimal.RequireFromString(closePrice)
		t.PnL = decimal.RequireFromString(pnl)
		out = append(out, t)
	}
	return out, errors.Wrap(rows.Err(), "sqlite.Trades")
}

func millis(t time.Time) int64 { return t.UnixMilli() }

func fromMillis(ms int64) time.Time { return time.UnixMilli(ms).UTC() }

func nullMillis(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UnixMilli()
}

func nullTime(v sql.NullInt64) *time.Time {
	if !v.Valid {
		return nil
	}
	t := fromMillis(v.Int64)
	return &t
}
