package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type TradeStatus string

const (
	TradeOpen   TradeStatus = "open"
	TradeClosed TradeStatus = "closed"
)

type Trade struct {
	ID           string          `json:"id"`
	ContractID   string          `json:"contract_id"`
	ProposalID   string          `json:"proposal_id"`
	Symbol       string          `json:"symbol"`
	ContractType ContractType    `json:"contract_type"`
	Action       Action          `json:"action"`
	Amount       decimal.Decimal `json:"amount"`
	EntryPrice   decimal.Decimal `json:"entry_price"`
	Payout       decimal.Decimal `json:"payout"`
	Status       TradeStatus     `json:"status"`
	OpenedAt     time.Time       `json:"opened_at"`
	ClosedAt     *time.Time      `json:"closed_at,omitempty"`
	ClosePrice   decimal.Decimal `json:"close_price"`
	PnL          decimal.Decimal `json:"pnl"`
}

func (t *Trade) IsOpen() bool { return t.Status == TradeOpen }
