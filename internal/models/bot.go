package models

import (
	"fmt"
	"strings"
	"time"

	"deriv_bot/internal/modules/config"

	"github.com/shopspring/decimal"
)

// BotConfig — запись bot_configs для юзера.
type BotConfig struct {
	UserID            int64           `json:"user_id"`
	Symbols           []string        `json:"symbols"`
	AmountPerTrade    decimal.Decimal `json:"amount_per_trade"`
	Timeframe         int64           `json:"timeframe"` // секунды; 0 — по таблице символов
	CandleCount       int             `json:"candle_count"`
	CycleInterval     int             `json:"cycle_interval"` // секунды
	MaxTradesPerCycle int             `json:"max_trades_per_cycle"`
	DailyTradeLimit   int             `json:"daily_trade_limit"`
	MinSignalGap      int             `json:"min_signal_gap"` // минуты
	Strategy          string          `json:"strategy"`
	ZonePolicy        string          `json:"zone_policy"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

func NewBotConfigFromDefaults(userID int64, cfg *config.Config) *BotConfig {
	return &BotConfig{
		UserID:            userID,
		AmountPerTrade:    decimal.NewFromFloat(cfg.Bot.AmountPerTrade),
		Timeframe:         cfg.Bot.Timeframe,
		CandleCount:       cfg.Bot.CandleCount,
		CycleInterval:     cfg.Bot.CycleInterval,
		MaxTradesPerCycle: cfg.Bot.MaxTradesPerCycle,
		DailyTradeLimit:   cfg.Bot.DailyTradeLimit,
		MinSignalGap:      cfg.Bot.MinSignalGap,
		Strategy:          cfg.Bot.Strategy,
		ZonePolicy:        cfg.Bot.ZonePolicy,
	}
}

// Normalize чистит символы (trim, upper, без дублей) и подставляет дефолты для нулей.
func (c *BotConfig) Normalize() {
	seen := make(map[string]struct{}, len(c.Symbols))
	syms := make([]string, 0, len(c.Symbols))
	for _, s := range c.Symbols {
		s = strings.ToUpper(strings.TrimSpace(s))
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		syms = append(syms, s)
	}
	c.Symbols = syms

	if c.AmountPerTrade.IsZero() {
		c.AmountPerTrade = decimal.NewFromInt(10)
	}
	if c.CandleCount <= 0 {
		c.CandleCount = 100
	}
	if c.CycleInterval <= 0 {
		c.CycleInterval = 30
	}
}

func (c *BotConfig) Validate() error {
	if len(c.Symbols) == 0 {
		return fmt.Errorf("%w: symbols list is empty", ErrInvalidConfig)
	}
	if !c.AmountPerTrade.IsPositive() {
		return fmt.Errorf("%w: amount per trade must be positive", ErrInvalidConfig)
	}
	return nil
}

func (c *BotConfig) CycleEvery() time.Duration {
	if c.CycleInterval <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.CycleInterval) * time.Second
}

// BotStatus — запись bot_status, единственный персистентный признак «бот запущен».
type BotStatus struct {
	UserID    int64      `json:"user_id"`
	IsRunning bool       `json:"is_running"`
	StartedAt *time.Time `json:"started_at,omitempty"`
	StoppedAt *time.Time `json:"stopped_at,omitempty"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// BotReport — ответ на запрос статуса.
type BotReport struct {
	UserID         int64      `json:"user_id"`
	IsRunning      bool       `json:"is_running"`
	StartedAt      *time.Time `json:"started_at,omitempty"`
	StoppedAt      *time.Time `json:"stopped_at,omitempty"`
	TradesExecuted int        `json:"trades_executed"`
	DailyTrades    int        `json:"daily_trades"`
	ActiveTrades   int        `json:"active_trades"`
	ClosedTrades   int        `json:"closed_trades"`
	WinRate        float64    `json:"win_rate"` // %
	OpenTrades     []Trade    `json:"open_trades,omitempty"`
	Config         *BotConfig `json:"config,omitempty"`
}

type Tier string

const (
	TierFree    Tier = "free"
	TierPremium Tier = "premium"
)

// TierLimits — потолок суммы сделки по тарифу.
type TierLimits map[Tier]decimal.Decimal

// Allows: тариф без записи считаем free; если нет и free — лимита нет.
func (l TierLimits) Allows(t Tier, amount decimal.Decimal) bool {
	limit, ok := l[t]
	if !ok {
		if limit, ok = l[TierFree]; !ok {
			return true
		}
	}
	return amount.LessThanOrEqual(limit)
}

// ConfigPatch — частичное обновление конфига: nil-поля не трогаем.
type ConfigPatch struct {
	Symbols           []string         `json:"symbols,omitempty"`
	AmountPerTrade    *decimal.Decimal `json:"amount_per_trade,omitempty"`
	Timeframe         *int64           `json:"timeframe,omitempty"`
	CandleCount       *int             `json:"candle_count,omitempty"`
	CycleInterval     *int             `json:"cycle_interval,omitempty"`
	MaxTradesPerCycle *int             `json:"max_trades_per_cycle,omitempty"`
	DailyTradeLimit   *int             `json:"daily_trade_limit,omitempty"`
	MinSignalGap      *int             `json:"min_signal_gap,omitempty"`
	Strategy          *string          `json:"strategy,omitempty"`
	ZonePolicy        *string          `json:"zone_policy,omitempty"`
}

func (p ConfigPatch) Apply(c *BotConfig) {
	if p.Symbols != nil {
		c.Symbols = append([]string{}, p.Symbols...)
	}
	if p.AmountPerTrade != nil {
		c.AmountPerTrade = *p.AmountPerTrade
	}
	if p.Timeframe != nil {
		c.Timeframe = *p.Timeframe
	}
	if p.CandleCount != nil {
		c.CandleCount = *p.CandleCount
	}
	if p.CycleInterval != nil {
		c.CycleInterval = *p.CycleInterval
	}
	if p.MaxTradesPerCycle != nil {
		c.MaxTradesPerCycle = *p.MaxTradesPerCycle
	}
	if p.DailyTradeLimit != nil {
		c.DailyTradeLimit = *p.DailyTradeLimit
	}
	if p.MinSignalGap != nil {
		c.MinSignalGap = *p.MinSignalGap
	}
	if p.Strategy != nil {
		c.Strategy = *p.Strategy
	}
	if p.ZonePolicy != nil {
		c.ZonePolicy = *p.ZonePolicy
	}
}
