package models

import "time"

type ZoneType string

const (
	ZoneDemand ZoneType = "demand"
	ZoneSupply ZoneType = "supply"
)

// Zone — ценовая полоса консолидации перед импульсом.
type Zone struct {
	Top       float64   `json:"top"`
	Bottom    float64   `json:"bottom"`
	Type      ZoneType  `json:"type"`
	Strength  int       `json:"strength"` // 1..10
	Symbol    string    `json:"symbol"`
	Timeframe int64     `json:"timeframe"` // секунды
	Created   time.Time `json:"created"`
	Touched   int       `json:"touched"`
}

func (z Zone) Contains(price float64) bool {
	return price >= z.Bottom && price <= z.Top
}

// IsEmpty — заглушка для HOLD без зоны.
func (z Zone) IsEmpty() bool { return z.Top == 0 && z.Bottom == 0 }
