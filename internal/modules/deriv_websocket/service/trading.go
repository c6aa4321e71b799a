package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"deriv_bot/internal/models"
)

// QuoteRequest — параметры котировки контракта.
type QuoteRequest struct {
	Symbol       string
	ContractType models.ContractType
	Amount       decimal.Decimal
	Duration     int
	DurationUnit string
}

// Quote — ответ proposal.
type Quote struct {
	ID       string
	AskPrice decimal.Decimal
	Payout   decimal.Decimal
	Spot     decimal.Decimal
}

// Purchase — ответ buy.
type Purchase struct {
	ContractID    string
	TransactionID string
	BuyPrice      decimal.Decimal
	Payout        decimal.Decimal
	EntryPrice    decimal.Decimal // может быть нулём
	StartTime     time.Time
	Longcode      string
}

type proposalReply struct {
	Proposal struct {
		ID       string          `json:"id"`
		AskPrice decimal.Decimal `json:"ask_price"`
		Payout   decimal.Decimal `json:"payout"`
		Spot     decimal.Decimal `json:"spot"`
	} `json:"proposal"`
}

// Proposal запрашивает котировку контракта.
func (c *Client) Proposal(ctx context.Context, q QuoteRequest) (*Quote, error) {
	currency := c.cfg.Deriv.Currency
	if currency == "" {
		currency = "USD"
	}
	req := Request{
		"proposal":      1,
		"amount":        q.Amount.InexactFloat64(),
		"basis":         "stake",
		"contract_type": string(q.ContractType),
		"currency":      currency,
		"duration":      q.Duration,
		"duration_unit": q.DurationUnit,
		"symbol":        q.Symbol,
	}

	f, err := c.ch.Call(ctx, req, c.cfg.Deriv.ProposalTimeout)
	if err != nil {
		return nil, fmt.Errorf("proposal %s %s: %w", q.Symbol, q.ContractType, err)
	}

	var reply proposalReply
	if err := f.Decode(&reply); err != nil {
		return nil, fmt.Errorf("proposal: decode: %w", err)
	}
	if reply.Proposal.ID == "" {
		return nil, fmt.Errorf("proposal: %w: empty proposal id", models.ErrRemoteRejected)
	}
	return &Quote{
		ID:       reply.Proposal.ID,
		AskPrice: reply.Proposal.AskPrice,
		Payout:   reply.Proposal.Payout,
		Spot:     reply.Proposal.Spot,
	}, nil
}

type buyReply struct {
	Buy struct {
		ContractID    any             `json:"contract_id"`
		TransactionID any             `json:"transaction_id"`
		BuyPrice      decimal.Decimal `json:"buy_price"`
		Payout        decimal.Decimal `json:"payout"`
		EntryTick     decimal.Decimal `json:"entry_tick"`
		StartTime     int64           `json:"start_time"`
		Longcode      string          `json:"longcode"`
	} `json:"buy"`
}

// Buy покупает контракт по котировке.
func (c *Client) Buy(ctx context.Context, proposalID string, price decimal.Decimal) (*Purchase, error) {
	req := Request{
		"buy":   proposalID,
		"price": price.InexactFloat64(),
	}

	f, err := c.ch.Call(ctx, req, c.cfg.Deriv.BuyTimeout)
	if err != nil {
		return nil, fmt.Errorf("buy %s: %w", proposalID, err)
	}

	var reply buyReply
	if err := f.Decode(&reply); err != nil {
		return nil, fmt.Errorf("buy: decode: %w", err)
	}

	p := &Purchase{
		ContractID:    idString(reply.Buy.ContractID),
		TransactionID: idString(reply.Buy.TransactionID),
		BuyPrice:      reply.Buy.BuyPrice,
		Payout:        reply.Buy.Payout,
		EntryPrice:    reply.Buy.EntryTick,
		Longcode:      reply.Buy.Longcode,
	}
	if reply.Buy.StartTime > 0 {
		p.StartTime = time.Unix(reply.Buy.StartTime, 0)
	}
	return p, nil
}

// contract_id приходит числом, иногда строкой
func idString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int64:
		return strconv.FormatInt(t, 10)
	default:
		return fmt.Sprint(t)
	}
}
