package service

import (
	"context"
	"fmt"
	"time"
)

type SymbolInfo struct {
	Symbol      string `json:"symbol"`
	DisplayName string `json:"display_name"`
	Market      string `json:"market"`
	IsOpen      bool   `json:"is_open"`
}

type activeSymbolsReply struct {
	ActiveSymbols []struct {
		Symbol         string `json:"symbol"`
		DisplayName    string `json:"display_name"`
		Market         string `json:"market"`
		ExchangeIsOpen int    `json:"exchange_is_open"`
	} `json:"active_symbols"`
}

// ActiveSymbols — список торгуемых символов с признаком открытой биржи.
func (c *Client) ActiveSymbols(ctx context.Context) ([]SymbolInfo, error) {
	f, err := c.ch.Call(ctx, Request{
		"active_symbols": "brief",
		"product_type":   "basic",
	}, 15*time.Second)
	if err != nil {
		return nil, fmt.Errorf("active symbols: %w", err)
	}

	var reply activeSymbolsReply
	if err := f.Decode(&reply); err != nil {
		return nil, fmt.Errorf("active symbols: decode: %w", err)
	}

	out := make([]SymbolInfo, 0, len(reply.ActiveSymbols))
	for _, s := range reply.ActiveSymbols {
		out = append(out, SymbolInfo{
			Symbol:      s.Symbol,
			DisplayName: s.DisplayName,
			Market:      s.Market,
			IsOpen:      s.ExchangeIsOpen == 1,
		})
	}
	return out, nil
}

// OpenSymbols — только символы с открытой биржей.
func OpenSymbols(all []SymbolInfo) map[string]SymbolInfo {
	out := make(map[string]SymbolInfo, len(all))
	for _, s := range all {
		if s.IsOpen {
			out[s.Symbol] = s
		}
	}
	return out
}
