package strategy

import (
	"time"

	"github.com/shopspring/decimal"

	"deriv_bot/internal/models"
)

// Engine — то, что дергает цикл бота. Один экземпляр на запущенного бота.
type Engine interface {
	Evaluate(candles []models.Candle, symbol string, timeframe int64) models.Signal
	Name() string
	ActiveZones() []models.Zone
	SetMinSignalGap(d time.Duration)
}

// Options — настройки стратегии из конфига бота.
type Options struct {
	BaseAmount   decimal.Decimal
	MinSignalGap time.Duration
	Policy       ZonePolicy
	Now          func() time.Time
}

func (o Options) now() func() time.Time {
	if o.Now != nil {
		return o.Now
	}
	return time.Now
}

// Duration — экспирация контракта по таймфрейму (секунды).
func Duration(timeframe int64) (int, string) {
	switch {
	case timeframe <= 60:
		return 5, "m"
	case timeframe <= 300:
		return 15, "m"
	case timeframe <= 900:
		return 60, "m"
	default:
		return 120, "m"
	}
}
