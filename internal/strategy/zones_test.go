package strategy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"deriv_bot/internal/models"
)

func flat(n int, price float64) []models.Candle {
	out := make([]models.Candle, n)
	for i := range out {
		out[i] = models.Candle{Open: price, High: price + 0.5, Low: price - 0.5, Close: price, Epoch: int64(i * 60)}
	}
	return out
}

var (
	downBreakout = models.Candle{Open: 100, High: 100.2, Low: 92, Close: 96}
	upBreakout   = models.Candle{Open: 100, High: 108, Low: 99.9, Close: 104}
)

func TestDetect_FlatBlockThenDownBreakout(t *testing.T) {
	d := NewZoneDetector(PolicyBreakout)

	candles := append(flat(5, 100), downBreakout)
	zones := d.Detect(candles)

	require.Len(t, zones, 1)
	z := zones[0]
	assert.Equal(t, models.ZoneDemand, z.Type)
	assert.Equal(t, 99.5, z.Bottom)
	assert.Equal(t, 100.5, z.Top)
	// объёмов нет, тело 4% — только чистый пробой
	assert.Equal(t, 6, z.Strength)
}

func TestDetect_LongFlatRunMergesIntoOneZone(t *testing.T) {
	d := NewZoneDetector(PolicyBreakout)

	zones := d.Detect(append(flat(25, 100), downBreakout))
	require.Len(t, zones, 1)
	assert.Equal(t, models.ZoneDemand, zones[0].Type)
}

func TestDetect_UpBreakoutIsSupply(t *testing.T) {
	d := NewZoneDetector(PolicyBreakout)

	zones := d.Detect(append(flat(5, 100), upBreakout))
	require.Len(t, zones, 1)
	assert.Equal(t, models.ZoneSupply, zones[0].Type)
}

func TestDetect_InvertedPolicySwapsLabels(t *testing.T) {
	d := NewZoneDetector(PolicyInverted)

	down := d.Detect(append(flat(5, 100), downBreakout))
	require.Len(t, down, 1)
	assert.Equal(t, models.ZoneSupply, down[0].Type)

	up := d.Detect(append(flat(5, 100), upBreakout))
	require.Len(t, up, 1)
	assert.Equal(t, models.ZoneDemand, up[0].Type)
}

func TestDetect_NoZone(t *testing.T) {
	d := NewZoneDetector(PolicyBreakout)

	t.Run("too few candles", func(t *testing.T) {
		assert.Empty(t, d.Detect(flat(5, 100)))
	})
	t.Run("no breakout", func(t *testing.T) {
		assert.Empty(t, d.Detect(flat(30, 100)))
	})
	t.Run("weak wick", func(t *testing.T) {
		weak := models.Candle{Open: 100, High: 100, Low: 98, Close: 99}
		assert.Empty(t, d.Detect(append(flat(5, 100), weak)))
	})
	t.Run("wide block", func(t *testing.T) {
		wide := flat(5, 100)
		wide[2].High = 104
		assert.Empty(t, d.Detect(append(wide, downBreakout)))
	})
}

func TestDetect_StrengthBonuses(t *testing.T) {
	d := NewZoneDetector(PolicyBreakout)

	block := flat(5, 100)
	for i := range block {
		block[i].Volume = 10
	}
	next := models.Candle{Open: 100, High: 100, Low: 88, Close: 93, Volume: 20}

	zones := d.Detect(append(block, next))
	require.Len(t, zones, 1)
	// 5 + объём + тело 7% + чистый пробой
	assert.Equal(t, 10, zones[0].Strength)
}

func TestMerge(t *testing.T) {
	d := NewZoneDetector(PolicyBreakout)

	a := models.Zone{Top: 100, Bottom: 99, Type: models.ZoneDemand, Strength: 6}
	b := models.Zone{Top: 100.5, Bottom: 99.4, Type: models.ZoneDemand, Strength: 8}
	c := models.Zone{Top: 100.2, Bottom: 99.2, Type: models.ZoneSupply, Strength: 9}
	far := models.Zone{Top: 110, Bottom: 109, Type: models.ZoneDemand, Strength: 5}

	merged := d.Merge([]models.Zone{a, b, c, far})
	require.Len(t, merged, 3)
	assert.Equal(t, 8, merged[0].Strength)
	assert.Equal(t, 100.5, merged[0].Top)
	assert.Equal(t, models.ZoneSupply, merged[1].Type)
	assert.Equal(t, 110.0, merged[2].Top)
}

func TestParseZonePolicy(t *testing.T) {
	p, err := ParseZonePolicy("")
	require.NoError(t, err)
	assert.Equal(t, PolicyBreakout, p)

	p, err = ParseZonePolicy("inverted")
	require.NoError(t, err)
	assert.Equal(t, PolicyInverted, p)

	_, err = ParseZonePolicy("sideways")
	assert.Error(t, err)
}
