package models

import "time"

// Candle — свеча ticks_history. Epoch — конец бакета, unix seconds.
type Candle struct {
	Open   float64 `json:"open"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Close  float64 `json:"close"`
	Volume float64 `json:"volume,omitempty"`
	Epoch  int64   `json:"epoch"`
}

func (c Candle) Time() time.Time { return time.Unix(c.Epoch, 0) }

// Closes — цены закрытия по порядку.
func Closes(cs []Candle) []float64 {
	out := make([]float64, len(cs))
	for i, c := range cs {
		out[i] = c.Close
	}
	return out
}
