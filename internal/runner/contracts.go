package runner

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"deriv_bot/internal/models"
	derivws "deriv_bot/internal/modules/deriv_websocket/service"
)

// ConfigStore — bot_configs.
type ConfigStore interface {
	// GetConfig возвращает models.ErrNotFound, если конфиг не сохранён.
	GetConfig(ctx context.Context, userID int64) (*models.BotConfig, error)
	SaveConfig(ctx context.Context, cfg *models.BotConfig) error
}

// StatusStore — bot_status.
type StatusStore interface {
	GetStatus(ctx context.Context, userID int64) (*models.BotStatus, error)
	MarkRunning(ctx context.Context, userID int64, startedAt time.Time) error
	MarkStopped(ctx context.Context, userID int64, stoppedAt time.Time) error
}

// TradeStore — журнал сделок.
type TradeStore interface {
	InsertTrade(ctx context.Context, userID int64, t *models.Trade) error
	CloseTrade(ctx context.Context, userID int64, t *models.Trade) error
}

type Store interface {
	ConfigStore
	StatusStore
	TradeStore
}

// TradeHistory — чтение журнала для статусных экранов.
type TradeHistory interface {
	Trades(ctx context.Context, userID int64, limit int) ([]models.Trade, error)
}

// Venue — вызовы площадки, которые нужны циклу.
type Venue interface {
	Candles(ctx context.Context, symbol string, granularity int64, count int) ([]models.Candle, error)
	Proposal(ctx context.Context, q derivws.QuoteRequest) (*derivws.Quote, error)
	Buy(ctx context.Context, proposalID string, price decimal.Decimal) (*derivws.Purchase, error)
}

// Notifier — сообщения юзеру о сделках.
type Notifier interface {
	Notify(ctx context.Context, userID int64, format string, args ...any)
}

// Pulse — отметка о прошедшем цикле (health).
type Pulse interface {
	TouchCycle(t time.Time)
}
