package strategy

import (
	"deriv_bot/pkg/logger"
)

const (
	NameSupplyDemand = "supply_demand"
	NameAlternating  = "alternating"
	NameDonchian     = "donchian"
)

// New собирает стратегию по имени; неизвестное имя -> supply_demand.
func New(name string, opts Options) Engine {
	switch name {
	case NameAlternating:
		return NewAlternating(opts)
	case NameDonchian:
		return NewDonchian(opts)
	case NameSupplyDemand, "":
		return NewSupplyDemand(opts)
	default:
		logger.Warn("strategy: unknown %q, fallback to %s", name, NameSupplyDemand)
		return NewSupplyDemand(opts)
	}
}
