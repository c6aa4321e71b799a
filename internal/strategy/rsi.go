package strategy

import "math"

const (
	rsiPeriod  = 14
	rsiEpsilon = 0.0001
	rsiNeutral = 50.0
)

// RSI — ряд значений RSI по простому среднему приростов/потерь за period дельт.
// Первое значение соответствует closes[period].
func RSI(closes []float64, period int) []float64 {
	if period <= 0 || len(closes) <= period {
		return nil
	}
	out := make([]float64, 0, len(closes)-period)
	for i := period; i < len(closes); i++ {
		var gain, loss float64
		for j := i - period + 1; j <= i; j++ {
			ch := closes[j] - closes[j-1]
			if ch > 0 {
				gain += ch
			} else {
				loss -= ch
			}
		}
		out = append(out, rsiValue(gain/float64(period), loss/float64(period)))
	}
	return out
}

func rsiValue(avgGain, avgLoss float64) float64 {
	// ни роста, ни падения
	if avgGain == 0 && avgLoss == 0 {
		return rsiNeutral
	}
	if avgLoss == 0 {
		avgLoss = rsiEpsilon
	}
	v := 100 - 100/(1+avgGain/avgLoss)
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return rsiNeutral
	}
	return v
}

// LatestRSI — последнее значение RSI(14), 50 если данных мало.
func LatestRSI(closes []float64) float64 {
	r := RSI(closes, rsiPeriod)
	if len(r) == 0 {
		return rsiNeutral
	}
	return r[len(r)-1]
}
