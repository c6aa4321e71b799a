package service

import (
	"context"
	"fmt"
	"strings"

	"deriv_bot/internal/models"
)

// допустимые granularity площадки, секунды
var granularities = []int64{60, 120, 180, 300, 600, 900, 1800, 3600, 7200, 14400, 28800, 86400}

// SnapGranularity приводит таймфрейм к ближайшему допустимому значению.
// Меньше 60 считаем минутами.
func SnapGranularity(tf int64) int64 {
	if tf <= 0 {
		return granularities[0]
	}
	if tf < 60 {
		tf *= 60
	}
	best := granularities[0]
	for _, g := range granularities[1:] {
		if abs64(g-tf) < abs64(best-tf) {
			best = g
		}
	}
	return best
}

// DefaultTimeframe — таймфрейм по символу, 0 если символ не из таблицы.
func DefaultTimeframe(symbol string) int64 {
	switch {
	case strings.HasPrefix(symbol, "1HZ") && strings.HasSuffix(symbol, "V"):
		return 60
	case strings.HasPrefix(symbol, "R_"):
		return 900
	}
	return 0
}

// ResolveTimeframe: явный таймфрейм из конфига важнее таблицы.
func ResolveTimeframe(symbol string, configured int64) int64 {
	if configured > 0 {
		return SnapGranularity(configured)
	}
	if tf := DefaultTimeframe(symbol); tf > 0 {
		return tf
	}
	return granularities[0]
}

func abs64(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}

type candlesReply struct {
	Candles []struct {
		Epoch  int64  `json:"epoch"`
		Open   number `json:"open"`
		High   number `json:"high"`
		Low    number `json:"low"`
		Close  number `json:"close"`
		Volume number `json:"volume"`
	} `json:"candles"`
}

// Candles — последние count свечей по символу, от старых к новым.
func (c *Client) Candles(ctx context.Context, symbol string, granularity int64, count int) ([]models.Candle, error) {
	req := Request{
		"ticks_history":     symbol,
		"adjust_start_time": 1,
		"end":               "latest",
		"count":             count,
		"style":             "candles",
		"granularity":       SnapGranularity(granularity),
	}

	f, err := c.ch.Call(ctx, req, c.cfg.Deriv.CandlesTimeout)
	if err != nil {
		return nil, fmt.Errorf("candles %s: %w", symbol, err)
	}

	var reply candlesReply
	if err := f.Decode(&reply); err != nil {
		return nil, fmt.Errorf("candles %s: decode: %w", symbol, err)
	}

	out := make([]models.Candle, 0, len(reply.Candles))
	for _, k := range reply.Candles {
		if k.Close <= 0 {
			continue
		}
		out = append(out, models.Candle{
			Open:   float64(k.Open),
			High:   float64(k.High),
			Low:    float64(k.Low),
			Close:  float64(k.Close),
			Volume: float64(k.Volume),
			Epoch:  k.Epoch,
		})
	}
	return out, nil
}
