package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type Action string

const (
	ActionBuyUp   Action = "BUY_UP"
	ActionBuyDown Action = "BUY_DOWN"
	ActionHold    Action = "HOLD"
)

// ContractType — тип контракта на площадке.
type ContractType string

const (
	ContractCall ContractType = "CALL"
	ContractPut  ContractType = "PUT"
)

// ContractFor: BUY_DOWN -> PUT, всё остальное -> CALL.
func ContractFor(a Action) ContractType {
	if a == ActionBuyDown {
		return ContractPut
	}
	return ContractCall
}

// Signal — решение стратегии, после создания не меняется.
type Signal struct {
	Action       Action          `json:"action"`
	Symbol       string          `json:"symbol"`
	ContractType ContractType    `json:"contract_type"`
	Amount       decimal.Decimal `json:"amount"`
	Duration     int             `json:"duration"`
	DurationUnit string          `json:"duration_unit"`
	Confidence   float64         `json:"confidence"`
	Zone         Zone            `json:"zone"`
	Timestamp    time.Time       `json:"timestamp"`
}

func (s Signal) IsHold() bool { return s.Action == ActionHold || s.Action == "" }

// Hold — пустой сигнал с зоной-заглушкой.
func Hold(symbol string, timeframe int64, now time.Time) Signal {
	return Signal{
		Action:       ActionHold,
		Symbol:       symbol,
		ContractType: ContractCall,
		Amount:       decimal.Zero,
		DurationUnit: "m",
		Zone: Zone{
			Type:      ZoneDemand,
			Symbol:    symbol,
			Timeframe: timeframe,
			Created:   now,
		},
		Timestamp: now,
	}
}
