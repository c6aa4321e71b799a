package strategy

import (
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"deriv_bot/internal/models"
)

const alternatingGap = 30 * time.Second

// Alternating — дымовая стратегия: CALL/PUT по очереди, без анализа.
// Нужна, чтобы проверить цепочку proposal -> buy на демо-счёте.
type Alternating struct {
	mu sync.Mutex

	baseAmount   decimal.Decimal
	now          func() time.Time
	lastSignal   time.Time
	minSignalGap time.Duration
	count        int
}

func NewAlternating(opts Options) *Alternating {
	gap := opts.MinSignalGap
	if gap <= 0 {
		gap = alternatingGap
	}
	base := opts.BaseAmount
	if !base.IsPositive() {
		base = decimal.NewFromInt(10)
	}
	return &Alternating{baseAmount: base, now: opts.now(), minSignalGap: gap}
}

func (a *Alternating) Name() string { return NameAlternating }

func (a *Alternating) SetMinSignalGap(d time.Duration) {
	a.mu.Lock()
	a.minSignalGap = d
	a.mu.Unlock()
}

func (a *Alternating) ActiveZones() []models.Zone { return nil }

func (a *Alternating) Evaluate(candles []models.Candle, symbol string, timeframe int64) models.Signal {
	a.mu.Lock()
	defer a.mu.Unlock()

	now := a.now()
	if now.Sub(a.lastSignal) < a.minSignalGap || len(candles) == 0 {
		return models.Hold(symbol, timeframe, now)
	}

	action := models.ActionBuyUp
	zoneType := models.ZoneDemand
	if a.count%2 == 1 {
		action = models.ActionBuyDown
		zoneType = models.ZoneSupply
	}
	a.count++
	a.lastSignal = now

	price := candles[len(candles)-1].Close
	duration, unit := Duration(timeframe)
	return models.Signal{
		Action:       action,
		Symbol:       symbol,
		ContractType: models.ContractFor(action),
		Amount:       a.baseAmount,
		Duration:     duration,
		DurationUnit: unit,
		Confidence:   0.8,
		Zone: models.Zone{
			Top:       price * 1.001,
			Bottom:    price * 0.999,
			Type:      zoneType,
			Strength:  7,
			Symbol:    symbol,
			Timeframe: timeframe,
			Created:   now,
			Touched:   1,
		},
		Timestamp: now,
	}
}
