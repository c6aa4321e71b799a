package strategy

import (
	"fmt"
	"math"

	"deriv_bot/internal/models"
)

// ZonePolicy — какой тип зоны получает пробой вниз/вверх.
type ZonePolicy string

const (
	// PolicyBreakout: пробой вниз -> demand, вверх -> supply.
	PolicyBreakout ZonePolicy = "breakout"
	// PolicyInverted: пробой вниз -> supply, вверх -> demand.
	PolicyInverted ZonePolicy = "inverted"
)

func ParseZonePolicy(s string) (ZonePolicy, error) {
	switch ZonePolicy(s) {
	case "", PolicyBreakout:
		return PolicyBreakout, nil
	case PolicyInverted:
		return PolicyInverted, nil
	}
	return "", fmt.Errorf("unknown zone policy %q", s)
}

func (p ZonePolicy) label(down bool) models.ZoneType {
	if (p == PolicyInverted) == down {
		return models.ZoneSupply
	}
	return models.ZoneDemand
}

// ZoneDetector ищет зоны консолидация -> импульс. Без состояния.
type ZoneDetector struct {
	ConsolidationThreshold float64
	MinConsolidationBars   int
	ImpulseThreshold       float64
	Lookback               int
	MergeThreshold         float64
	Policy                 ZonePolicy
}

func NewZoneDetector(policy ZonePolicy) ZoneDetector {
	return ZoneDetector{
		ConsolidationThreshold: 0.02,
		MinConsolidationBars:   5,
		ImpulseThreshold:       0.03,
		Lookback:               20,
		MergeThreshold:         0.01,
		Policy:                 policy,
	}
}

// Detect прогоняет окно Lookback со сдвигом 1 по всей истории и склеивает дубли.
// Symbol, Timeframe и Created у зон не заполняются.
func (d ZoneDetector) Detect(candles []models.Candle) []models.Zone {
	var found []models.Zone
	for i := 0; i < len(candles)-d.MinConsolidationBars; i++ {
		end := i + d.Lookback
		if end > len(candles) {
			end = len(candles)
		}
		found = append(found, d.scanWindow(candles[i:end])...)
	}
	return d.Merge(found)
}

func (d ZoneDetector) scanWindow(window []models.Candle) []models.Zone {
	var zones []models.Zone
	n := d.MinConsolidationBars
	// блок [i, i+n), пробойная свеча i+n
	for i := 0; i+n < len(window); i++ {
		block := window[i : i+n]
		if !d.isConsolidation(block) {
			continue
		}
		if z, ok := d.classify(block, window[i+n]); ok {
			zones = append(zones, z)
		}
	}
	return zones
}

func blockBounds(block []models.Candle) (low, high float64) {
	low, high = math.Inf(1), math.Inf(-1)
	for _, c := range block {
		low = math.Min(low, c.Low)
		high = math.Max(high, c.High)
	}
	return low, high
}

func (d ZoneDetector) isConsolidation(block []models.Candle) bool {
	low, high := blockBounds(block)
	var sum float64
	for _, c := range block {
		sum += c.Close
	}
	avg := sum / float64(len(block))
	if avg <= 0 {
		return false
	}
	return (high-low)/avg < d.ConsolidationThreshold
}

func (d ZoneDetector) classify(block []models.Candle, next models.Candle) (models.Zone, bool) {
	if next.Close <= 0 {
		return models.Zone{}, false
	}
	low, high := blockBounds(block)

	var down bool
	switch {
	case next.Close < low && (next.Close-next.Low)/next.Close > d.ImpulseThreshold:
		down = true
	case next.Close > high && (next.High-next.Close)/next.Close > d.ImpulseThreshold:
		down = false
	default:
		return models.Zone{}, false
	}

	return models.Zone{
		Top:      high,
		Bottom:   low,
		Type:     d.Policy.label(down),
		Strength: d.strength(block, next, low, high, down),
	}, true
}

func (d ZoneDetector) strength(block []models.Candle, next models.Candle, low, high float64, down bool) int {
	s := 5

	var vol float64
	for _, c := range block {
		vol += c.Volume
	}
	if next.Volume > vol/float64(len(block))*1.5 {
		s += 2
	}

	if next.Open > 0 && math.Abs(next.Close-next.Open)/next.Open > 0.05 {
		s += 2
	}

	// чистый пробой: тень ушла за край блока больше чем на 0.5%
	if down && next.Low <= low*0.995 || !down && next.High >= high*1.005 {
		s++
	}

	if s > 10 {
		s = 10
	}
	return s
}

func (d ZoneDetector) similar(a, b models.Zone) bool {
	return a.Type == b.Type &&
		math.Abs(a.Top-b.Top)/b.Top < d.MergeThreshold &&
		math.Abs(a.Bottom-b.Bottom)/b.Bottom < d.MergeThreshold
}

// Merge склеивает зоны одного типа с top и bottom в пределах MergeThreshold, оставляя сильнейшую.
func (d ZoneDetector) Merge(zones []models.Zone) []models.Zone {
	merged := make([]models.Zone, 0, len(zones))
	for _, z := range zones {
		idx := -1
		for i := range merged {
			if d.similar(merged[i], z) {
				idx = i
				break
			}
		}
		if idx < 0 {
			merged = append(merged, z)
			continue
		}
		if z.Strength > merged[idx].Strength {
			merged[idx] = z
		}
	}
	return merged
}
