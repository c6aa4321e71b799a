package strategy

import (
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"deriv_bot/internal/models"
)

const (
	donchianPeriod = 20
	donchianTrend  = 50

	// RSI-фильтр: пробой вверх при перекупленности не берём, и наоборот
	rsiOverbought = 70.0
	rsiOversold   = 30.0
)

// Donchian — пробой канала Дончиана по закрытой свече с EMA-фильтром тренда.
// Зона сигнала — сам канал.
type Donchian struct {
	mu sync.Mutex

	period       int
	trend        int
	baseAmount   decimal.Decimal
	now          func() time.Time
	minSignalGap time.Duration
	lastSignal   map[string]time.Time
	channels     map[string]models.Zone
}

func NewDonchian(opts Options) *Donchian {
	base := opts.BaseAmount
	if !base.IsPositive() {
		base = decimal.NewFromInt(10)
	}
	return &Donchian{
		period:       donchianPeriod,
		trend:        donchianTrend,
		baseAmount:   base,
		now:          opts.now(),
		minSignalGap: opts.MinSignalGap,
		lastSignal:   make(map[string]time.Time),
		channels:     make(map[string]models.Zone),
	}
}

func (s *Donchian) Name() string { return NameDonchian }

func (s *Donchian) SetMinSignalGap(d time.Duration) {
	s.mu.Lock()
	s.minSignalGap = d
	s.mu.Unlock()
}

func (s *Donchian) ActiveZones() []models.Zone {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]models.Zone, 0, len(s.channels))
	for _, z := range s.channels {
		out = append(out, z)
	}
	return out
}

func (s *Donchian) Evaluate(candles []models.Candle, symbol string, timeframe int64) models.Signal {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	hold := models.Hold(symbol, timeframe, now)
	if len(candles) < s.trend+1 {
		return hold
	}

	last := candles[len(candles)-1]
	window := candles[len(candles)-1-s.period : len(candles)-1]
	high, low := channel(window)
	ema := emaClose(candles, s.trend)

	closes := make([]float64, len(candles))
	for i, c := range candles {
		closes[i] = c.Close
	}
	rsi := LatestRSI(closes)

	zone := models.Zone{
		Top:       high,
		Bottom:    low,
		Symbol:    symbol,
		Timeframe: timeframe,
		Created:   now,
	}

	var action models.Action
	switch {
	case last.Close > high && last.Close > ema && rsi < rsiOverbought:
		action, zone.Type = models.ActionBuyUp, models.ZoneSupply
	case last.Close < low && last.Close < ema && rsi > rsiOversold:
		action, zone.Type = models.ActionBuyDown, models.ZoneDemand
	default:
		delete(s.channels, symbol)
		return hold
	}
	s.channels[symbol] = zone

	if prev, ok := s.lastSignal[symbol]; ok && now.Sub(prev) < s.minSignalGap {
		return hold
	}
	s.lastSignal[symbol] = now

	zone.Strength = breakoutStrength(last.Close, high, low)
	zone.Touched = 1
	duration, unit := Duration(timeframe)
	return models.Signal{
		Action:       action,
		Symbol:       symbol,
		ContractType: models.ContractFor(action),
		Amount:       s.baseAmount,
		Duration:     duration,
		DurationUnit: unit,
		Confidence:   Confidence(zone.Strength),
		Zone:         zone,
		Timestamp:    now,
	}
}

// breakoutStrength: насколько далеко закрылись за каналом, в долях ширины канала.
func breakoutStrength(price, high, low float64) int {
	width := high - low
	if width <= 0 {
		return 5
	}
	dist := price - high
	if price < low {
		dist = low - price
	}
	st := 5 + int(dist/width*10)
	if st > 10 {
		st = 10
	}
	return st
}

func channel(window []models.Candle) (high, low float64) {
	high, low = window[0].High, window[0].Low
	for _, c := range window[1:] {
		if c.High > high {
			high = c.High
		}
		if c.Low < low {
			low = c.Low
		}
	}
	return high, low
}

// emaClose — EMA закрытий с затравкой первым значением.
func emaClose(candles []models.Candle, period int) float64 {
	alpha := 2.0 / (float64(period) + 1)
	v := candles[0].Close
	for _, c := range candles[1:] {
		v = alpha*c.Close + (1-alpha)*v
	}
	return v
}
