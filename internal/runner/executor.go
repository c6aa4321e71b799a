package runner

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"deriv_bot/internal/models"
	derivws "deriv_bot/internal/modules/deriv_websocket/service"
	"deriv_bot/pkg/logger"
	"deriv_bot/pkg/tracing"
)

// Executor превращает сигнал в контракт: proposal, затем buy.
type Executor struct {
	venue Venue
	now   func() time.Time
}

func NewExecutor(v Venue, now func() time.Time) *Executor {
	if now == nil {
		now = time.Now
	}
	return &Executor{venue: v, now: now}
}

// Execute: HOLD -> (nil, nil). Ошибка proposal или buy возвращается как есть.
func (e *Executor) Execute(ctx context.Context, userID int64, sig models.Signal) (_ *models.Trade, err error) {
	if sig.IsHold() {
		return nil, nil
	}

	span, ctx := tracing.StartSpan(ctx, "bot.execute")
	defer func() { tracing.Finish(span, err) }()
	span.SetTag("user_id", userID)
	span.SetTag("symbol", sig.Symbol)

	contract := sig.ContractType
	if contract == "" {
		contract = models.ContractFor(sig.Action)
	}

	quote, err := e.venue.Proposal(ctx, derivws.QuoteRequest{
		Symbol:       sig.Symbol,
		ContractType: contract,
		Amount:       sig.Amount,
		Duration:     sig.Duration,
		DurationUnit: sig.DurationUnit,
	})
	if err != nil {
		return nil, fmt.Errorf("quote %s: %w", sig.Symbol, err)
	}

	bought, err := e.venue.Buy(ctx, quote.ID, quote.AskPrice)
	if err != nil {
		return nil, fmt.Errorf("purchase %s: %w", sig.Symbol, err)
	}

	id := bought.ContractID
	if id == "" {
		id = uuid.NewString()
	}

	trade := &models.Trade{
		ID:           id,
		ContractID:   bought.ContractID,
		ProposalID:   quote.ID,
		Symbol:       sig.Symbol,
		ContractType: contract,
		Action:       sig.Action,
		Amount:       sig.Amount,
		EntryPrice:   entryPrice(bought, quote),
		Payout:       bought.Payout,
		Status:       models.TradeOpen,
		OpenedAt:     e.now(),
	}

	logger.Info("[TRADE] user=%d %s %s amount=%s contract=%s payout=%s",
		userID, trade.Symbol, trade.ContractType, trade.Amount, trade.ContractID, trade.Payout)
	return trade, nil
}

// entry_tick, иначе спот котировки, иначе цена покупки
func entryPrice(p *derivws.Purchase, q *derivws.Quote) decimal.Decimal {
	switch {
	case p.EntryPrice.IsPositive():
		return p.EntryPrice
	case q.Spot.IsPositive():
		return q.Spot
	default:
		return p.BuyPrice
	}
}

// ForceOrder — разовая сделка в обход стратегии.
type ForceOrder struct {
	Symbol       string              `json:"symbol" binding:"required"`
	ContractType models.ContractType `json:"contract_type" binding:"required"`
	Amount       decimal.Decimal     `json:"amount"`
	Duration     int                 `json:"duration"`
	DurationUnit string              `json:"duration_unit"`
}

func (o *ForceOrder) normalize() error {
	o.Symbol = strings.ToUpper(strings.TrimSpace(o.Symbol))
	o.ContractType = models.ContractType(strings.ToUpper(string(o.ContractType)))
	if o.Symbol == "" {
		return fmt.Errorf("%w: symbol is required", models.ErrInvalidConfig)
	}
	if o.ContractType != models.ContractCall && o.ContractType != models.ContractPut {
		return fmt.Errorf("%w: contract type %q", models.ErrInvalidConfig, o.ContractType)
	}
	if !o.Amount.IsPositive() {
		return fmt.Errorf("%w: amount must be positive", models.ErrInvalidConfig)
	}
	if o.Duration <= 0 {
		o.Duration = 5
	}
	if o.DurationUnit == "" {
		o.DurationUnit = "m"
	}
	return nil
}

// ForceTrade исполняет ручной ордер как сигнал с confidence 1.
func (e *Executor) ForceTrade(ctx context.Context, userID int64, o ForceOrder) (*models.Trade, error) {
	if err := o.normalize(); err != nil {
		return nil, err
	}
	action := models.ActionBuyUp
	if o.ContractType == models.ContractPut {
		action = models.ActionBuyDown
	}
	return e.Execute(ctx, userID, models.Signal{
		Action:       action,
		Symbol:       o.Symbol,
		ContractType: o.ContractType,
		Amount:       o.Amount,
		Duration:     o.Duration,
		DurationUnit: o.DurationUnit,
		Confidence:   1,
		Timestamp:    e.now(),
	})
}
