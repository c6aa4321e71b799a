package service

import (
	"context"
	"time"

	"github.com/bytedance/sonic"
	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"deriv_bot/internal/models"
	"deriv_bot/pkg/db"
)

// Store — bot_configs, bot_status и trades в postgres.
type Store struct {
	db  db.TxManager
	now func() time.Time
}

func NewStore(tm db.TxManager) *Store {
	return &Store{db: tm, now: time.Now}
}

// Migrate создаёт таблицы, повторный вызов безопасен.
func (s *Store) Migrate(ctx context.Context) error {
	return s.db.RunMaster(ctx, func(ctxTx context.Context, tx pgx.Tx) error {
		_, err := tx.Exec(ctxTx, schemaSQL)
		return errors.Wrap(err, "create schema")
	})
}

func (s *Store) GetConfig(ctx context.Context, userID int64) (cfg *models.BotConfig, err error) {
	defer func() {
		if err != nil {
			err = errors.Wrap(err, "pg.GetConfig")
		}
	}()

	var (
		symbols []byte
		amount  string
	)
	cfg = &models.BotConfig{UserID: userID}
	err = s.db.Conn().QueryRow(ctx, `
		SELECT symbols, amount_per_trade::text, timeframe, candle_count, cycle_interval,
		       max_trades_per_cycle, daily_trade_limit, min_signal_gap, strategy, zone_policy, updated_at
		FROM bot_configs WHERE user_id = $1`, userID,
	).Scan(&symbols, &amount, &cfg.Timeframe, &cfg.CandleCount, &cfg.CycleInterval,
		&cfg.MaxTradesPerCycle, &cfg.DailyTradeLimit, &cfg.MinSignalGap, &cfg.Strategy, &cfg.ZonePolicy, &cfg.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	if len(symbols) > 0 {
		if err = sonic.Unmarshal(symbols, &cfg.Symbols); err != nil {
			return nil, errors.Wrap(err, "decode symbols")
		}
	}
	if cfg.AmountPerTrade, err = decimal.NewFromString(amount); err != nil {
		return nil, errors.Wrap(err, "decode amount")
	}
	return cfg, nil
}

func (s *Store) SaveConfig(ctx context.Context, cfg *models.BotConfig) (err error) {
	defer func() {
		if err != nil {
			err = errors.Wrap(err, "pg.SaveConfig")
		}
	}()

	symbols, err := sonic.Marshal(cfg.Symbols)
	if err != nil {
		return err
	}
	cfg.UpdatedAt = s.now().UTC()

	return s.db.RunMaster(ctx, func(ctxTx context.Context, tx pgx.Tx) error {
		_, err := tx.Exec(ctxTx, `
			INSERT INTO bot_configs (user_id, symbols, amount_per_trade, timeframe, candle_count, cycle_interval,
			                         max_trades_per_cycle, daily_trade_limit, min_signal_gap, strategy, zone_policy, updated_at)
			VALUES ($1, $2, $3::numeric, $4, $5, $6, $7, $8, $9, $10, $11, $12)
			ON CONFLICT (user_id) DO UPDATE SET
				symbols = EXCLUDED.symbols,
				amount_per_trade = EXCLUDED.amount_per_trade,
				timeframe = EXCLUDED.timeframe,
				candle_count = EXCLUDED.candle_count,
				cycle_interval = EXCLUDED.cycle_interval,
				max_trades_per_cycle = EXCLUDED.max_trades_per_cycle,
				daily_trade_limit = EXCLUDED.daily_trade_limit,
				min_signal_gap = EXCLUDED.min_signal_gap,
				strategy = EXCLUDED.strategy,
				zone_policy = EXCLUDED.zone_policy,
				updated_at = EXCLUDED.updated_at`,
			cfg.UserID, symbols, cfg.AmountPerTrade.String(), cfg.Timeframe, cfg.CandleCount, cfg.CycleInterval,
			cfg.MaxTradesPerCycle, cfg.DailyTradeLimit, cfg.MinSignalGap, cfg.Strategy, cfg.ZonePolicy, cfg.UpdatedAt,
		)
		return err
	})
}

func (s *Store) GetStatus(ctx context.Context, userID int64) (st *models.BotStatus, err error) {
	defer func() {
		if err != nil {
			err = errors.Wrap(err, "pg.GetStatus")
		}
	}()

	st = &models.BotStatus{UserID: userID}
	err = s.db.Conn().QueryRow(ctx,
		`SELECT is_running, started_at, stopped_at, updated_at FROM bot_status WHERE user_id = $1`, userID,
	).Scan(&st.IsRunning, &st.StartedAt, &st.StoppedAt, &st.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return st, nil
}

func (s *Store) MarkRunning(ctx context.Context, userID int64, startedAt time.Time) error {
	_, err := s.db.Conn().Exec(ctx, `
		INSERT INTO bot_status (user_id, is_running, started_at, stopped_at, updated_at)
		VALUES ($1, TRUE, $2, NULL, $3)
		ON CONFLICT (user_id) DO UPDATE SET
			is_running = TRUE, started_at = EXCLUDED.started_at, stopped_at = NULL, updated_at = EXCLUDED.updated_at`,
		userID, startedAt.UTC(), s.now().UTC(),
	)
	return errors.Wrap(err, "pg.MarkRunning")
}

func (s *Store) MarkStopped(ctx context.Context, userID int64, stoppedAt time.Time) error {
	_, err := s.db.Conn().Exec(ctx, `
		INSERT INTO bot_status (user_id, is_running, stopped_at, updated_at)
		VALUES ($1, FALSE, $2, $3)
		ON CONFLICT (user_id) DO UPDATE SET
			is_running = FALSE, stopped_at = EXCLUDED.stopped_at, updated_at = EXCLUDED.updated_at`,
		userID, stoppedAt.UTC(), s.now().UTC(),
	)
	return errors.Wrap(err, "pg.MarkStopped")
}

func (s *Store) InsertTrade(ctx context.Context, userID int64, t *models.Trade) error {
	_, err := s.db.Conn().Exec(ctx, `
		INSERT INTO trades (id, user_id, contract_id, proposal_id, symbol, contract_type, action,
		                    amount, entry_price, payout, status, opened_at, closed_at, close_price, pnl)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8::numeric, $9::numeric, $10::numeric, $11, $12, $13, $14::numeric, $15::numeric)
		ON CONFLICT (id) DO NOTHING`,
		t.ID, userID, t.ContractID, t.ProposalID, t.Symbol, string(t.ContractType), string(t.Action),
		t.Amount.String(), t.EntryPrice.String(), t.Payout.String(), string(t.Status), t.OpenedAt.UTC(), utcPtr(t.ClosedAt),
		t.ClosePrice.String(), t.PnL.String(),
	)
	return errors.Wrapf(err, "pg.InsertTrade %s", t.ID)
}

func (s *Store) CloseTrade(ctx context.Context, userID int64, t *models.Trade) error {
	_, err := s.db.Conn().Exec(ctx, `
		UPDATE trades SET status = $3, closed_at = $4, close_price = $5::numeric, pnl = $6::numeric
		WHERE id = $1 AND user_id = $2`,
		t.ID, userID, string(t.Status), utcPtr(t.ClosedAt), t.ClosePrice.String(), t.PnL.String(),
	)
	return errors.Wrapf(err, "pg.CloseTrade %s", t.ID)
}

// Trades — последние сделки юзера, новые первыми.
func (s *Store) Trades(ctx context.Context, userID int64, limit int) (out []models.Trade, err error) {
	defer func() {
		if err != nil {
			err = errors.Wrap(err, "pg.Trades")
		}
	}()

	rows, err := s.db.Conn().Query(ctx, `
		SELECT id, contract_id, proposal_id, symbol, contract_type, action, amount::text, entry_price::text,
		       payout::text, status, opened_at, closed_at, close_price::text, pnl::text
		FROM trades WHERE user_id = $1 ORDER BY opened_at DESC LIMIT $2`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			t                                      models.Trade
			ct, action, status                     string
			amount, entry, payout, closePrice, pnl string
		)
		if err = rows.Scan(&t.ID, &t.ContractID, &t.ProposalID, &t.Symbol, &ct, &action, &amount, &entry,
			&payout, &status, &t.OpenedAt, &t.ClosedAt, &closePrice, &pnl); err != nil {
			return nil, err
		}
		t.ContractType = models.ContractType(ct)
		t.Action = models.Action(action)
		t.Status = models.TradeStatus(status)
		t.Amount = decimal.RequireFromString(amount)
		t.EntryPrice = decimal.RequireFromString(entry)
		t.Payout = decimal.RequireFromString(payout)
		t.ClosePrice = decimal.RequireFromString(closePrice)
		t.PnL = decimal.RequireFromString(pnl)
		out = append(out, t)
	}
	return out, rows.Err()
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
