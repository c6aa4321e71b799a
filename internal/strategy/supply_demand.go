package strategy

import (
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"deriv_bot/internal/models"
)

const (
	defaultSignalGap = 5 * time.Minute
	zoneMaxAge       = 24 * time.Hour
	zoneMaxTouches   = 3

	oversold   = 35.0
	overbought = 65.0
)

// SupplyDemand — вход от зон спроса/предложения с фильтром RSI.
type SupplyDemand struct {
	mu sync.Mutex

	detector   ZoneDetector
	baseAmount decimal.Decimal
	now        func() time.Time

	zones        []models.Zone
	lastSignal   time.Time
	minSignalGap time.Duration
}

func NewSupplyDemand(opts Options) *SupplyDemand {
	gap := opts.MinSignalGap
	if gap <= 0 {
		gap = defaultSignalGap
	}
	base := opts.BaseAmount
	if !base.IsPositive() {
		base = decimal.NewFromInt(10)
	}
	return &SupplyDemand{
		detector:     NewZoneDetector(opts.Policy),
		baseAmount:   base,
		now:          opts.now(),
		minSignalGap: gap,
	}
}

func (s *SupplyDemand) Name() string { return NameSupplyDemand }

func (s *SupplyDemand) SetMinSignalGap(d time.Duration) {
	s.mu.Lock()
	s.minSignalGap = d
	s.mu.Unlock()
}

func (s *SupplyDemand) ActiveZones() []models.Zone {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Zone, len(s.zones))
	copy(out, s.zones)
	return out
}

func (s *SupplyDemand) Evaluate(candles []models.Candle, symbol string, timeframe int64) models.Signal {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if now.Sub(s.lastSignal) < s.minSignalGap || len(candles) == 0 {
		return models.Hold(symbol, timeframe, now)
	}

	s.fold(s.detector.Detect(candles), symbol, timeframe, now)
	s.evict(now)

	price := candles[len(candles)-1].Close
	zone, ok := s.find(symbol, price)
	if !ok {
		return models.Hold(symbol, timeframe, now)
	}

	rsi := LatestRSI(models.Closes(candles))

	var action models.Action
	switch {
	case zone.Type == models.ZoneDemand && rsi < oversold:
		action = models.ActionBuyUp
	case zone.Type == models.ZoneSupply && rsi > overbought:
		action = models.ActionBuyDown
	default:
		hold := models.Hold(symbol, timeframe, now)
		hold.Zone = zone
		return hold
	}

	confidence := Confidence(zone.Strength)
	duration, unit := Duration(zone.Timeframe)
	s.lastSignal = now

	return models.Signal{
		Action:       action,
		Symbol:       symbol,
		ContractType: models.ContractFor(action),
		Amount:       s.baseAmount.Mul(decimal.NewFromFloat(confidence)).Round(2),
		Duration:     duration,
		DurationUnit: unit,
		Confidence:   confidence,
		Zone:         zone,
		Timestamp:    now,
	}
}

// Confidence: 0.5 + (10-strength)*0.05 + 0.3, обрезано в [0, 1].
func Confidence(strength int) float64 {
	c := 0.5 + float64(10-strength)*0.05 + 0.3
	if c > 1 {
		return 1
	}
	if c < 0 {
		return 0
	}
	return c
}

// fold вливает свежие зоны: похожая существующая получает max(strength) и touched+1.
func (s *SupplyDemand) fold(found []models.Zone, symbol string, timeframe int64, now time.Time) {
	for _, z := range found {
		z.Symbol = symbol
		z.Timeframe = timeframe
		z.Created = now
		z.Touched = 0

		idx := -1
		for i := range s.zones {
			if s.zones[i].Symbol == symbol && s.detector.similar(s.zones[i], z) {
				idx = i
				break
			}
		}
		if idx < 0 {
			s.zones = append(s.zones, z)
			continue
		}
		if z.Strength > s.zones[idx].Strength {
			s.zones[idx].Strength = z.Strength
		}
		s.zones[idx].Touched++
	}
}

func (s *SupplyDemand) evict(now time.Time) {
	kept := s.zones[:0]
	for _, z := range s.zones {
		if now.Sub(z.Created) > zoneMaxAge || z.Touched >= zoneMaxTouches {
			continue
		}
		kept = append(kept, z)
	}
	s.zones = kept
}

func (s *SupplyDemand) find(symbol string, price float64) (models.Zone, bool) {
	for _, z := range s.zones {
		if z.Symbol == symbol && z.Contains(price) {
			return z, true
		}
	}
	return models.Zone{}, false
}
