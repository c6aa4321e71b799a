package strategy

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"deriv_bot/internal/models"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time          { return c.t }
func (c *clock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newClock() *clock {
	return &clock{t: time.Date(2026, 3, 2, 10, 0, 0, 0, time.Local)}
}

// retrace: флэт, пробой вниз, отскок и плавное снижение обратно в зону.
// RSI на хвосте ~0, последняя цена внутри [99.5, 100.5].
func retrace(breakout models.Candle, back float64, step float64) []models.Candle {
	candles := append(flat(20, 100), breakout)
	prev := breakout.Close
	price := back
	candles = append(candles, models.Candle{
		Open: prev, High: maxf(prev, price) + 0.1, Low: minf(prev, price) - 0.1, Close: price,
	})
	for i := 0; i < 15; i++ {
		prev, price = price, price+step
		candles = append(candles, models.Candle{Open: prev, High: price + 0.1, Low: price - 0.1, Close: price})
	}
	return candles
}

func maxf(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

func minf(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

func newSD(c *clock, policy ZonePolicy) *SupplyDemand {
	return NewSupplyDemand(Options{
		BaseAmount: decimal.NewFromInt(10),
		Policy:     policy,
		Now:        c.now,
	})
}

func TestSupplyDemand_DemandZoneRetraceBuysUp(t *testing.T) {
	c := newClock()
	s := newSD(c, PolicyBreakout)

	candles := retrace(downBreakout, 100.4, -0.05)
	last := candles[len(candles)-1].Close
	require.InDelta(t, 99.65, last, 1e-9)
	require.Less(t, LatestRSI(models.Closes(candles)), 35.0)

	sig := s.Evaluate(candles, "R_100", 60)

	require.Equal(t, models.ActionBuyUp, sig.Action)
	assert.Equal(t, models.ContractCall, sig.ContractType)
	assert.Equal(t, "R_100", sig.Symbol)
	assert.Equal(t, 6, sig.Zone.Strength)
	assert.InDelta(t, 1.0, sig.Confidence, 1e-9)
	assert.True(t, sig.Amount.Equal(decimal.NewFromInt(10)), "amount=%s", sig.Amount)
	assert.Equal(t, 5, sig.Duration)
	assert.Equal(t, "m", sig.DurationUnit)
	assert.Equal(t, c.t, sig.Timestamp)
}

func TestSupplyDemand_SupplyZoneRetraceBuysDown(t *testing.T) {
	c := newClock()
	s := newSD(c, PolicyBreakout)

	candles := retrace(upBreakout, 99.6, 0.05)
	sig := s.Evaluate(candles, "R_50", 900)

	require.Equal(t, models.ActionBuyDown, sig.Action)
	assert.Equal(t, models.ContractPut, sig.ContractType)
	assert.Equal(t, models.ZoneSupply, sig.Zone.Type)
	assert.Equal(t, 60, sig.Duration)
}

func TestSupplyDemand_InvertedPolicyHolds(t *testing.T) {
	c := newClock()
	s := newSD(c, PolicyInverted)

	// та же картина, но зона размечена как supply, а RSI низкий
	sig := s.Evaluate(retrace(downBreakout, 100.4, -0.05), "R_100", 60)
	assert.True(t, sig.IsHold())
	assert.Equal(t, models.ZoneSupply, sig.Zone.Type)
}

func TestSupplyDemand_PriceOutsideZoneHolds(t *testing.T) {
	c := newClock()
	s := newSD(c, PolicyBreakout)

	// последняя свеча — сам пробой, цена ниже зоны
	sig := s.Evaluate(append(flat(25, 100), downBreakout), "R_100", 60)
	assert.True(t, sig.IsHold())
	assert.True(t, sig.Zone.IsEmpty())
	assert.Len(t, s.ActiveZones(), 1)
}

func TestSupplyDemand_SignalGap(t *testing.T) {
	c := newClock()
	s := newSD(c, PolicyBreakout)
	candles := retrace(downBreakout, 100.4, -0.05)

	require.False(t, s.Evaluate(candles, "R_100", 60).IsHold())

	c.advance(4 * time.Minute)
	assert.True(t, s.Evaluate(candles, "R_100", 60).IsHold())

	c.advance(time.Minute)
	assert.False(t, s.Evaluate(candles, "R_100", 60).IsHold())
}

func TestSupplyDemand_SetMinSignalGap(t *testing.T) {
	c := newClock()
	s := newSD(c, PolicyBreakout)
	candles := retrace(downBreakout, 100.4, -0.05)

	require.False(t, s.Evaluate(candles, "R_100", 60).IsHold())
	s.SetMinSignalGap(time.Second)
	c.advance(2 * time.Second)
	assert.False(t, s.Evaluate(candles, "R_100", 60).IsHold())
}

func TestSupplyDemand_TouchedZonesAreEvicted(t *testing.T) {
	c := newClock()
	s := newSD(c, PolicyBreakout)
	candles := append(flat(25, 100), downBreakout)

	for want := 0; want < 3; want++ {
		s.Evaluate(candles, "R_100", 60)
		zones := s.ActiveZones()
		require.Len(t, zones, 1)
		assert.Equal(t, want, zones[0].Touched)
		assert.Equal(t, "R_100", zones[0].Symbol)
	}

	s.Evaluate(candles, "R_100", 60)
	assert.Empty(t, s.ActiveZones())
}

func TestSupplyDemand_OldZonesAreEvicted(t *testing.T) {
	c := newClock()
	s := newSD(c, PolicyBreakout)

	s.Evaluate(append(flat(25, 100), downBreakout), "R_100", 60)
	require.Len(t, s.ActiveZones(), 1)

	c.advance(25 * time.Hour)
	s.Evaluate(flat(30, 100), "R_100", 60)
	assert.Empty(t, s.ActiveZones())
}

func TestSupplyDemand_ZonesAreKeptPerSymbol(t *testing.T) {
	c := newClock()
	s := newSD(c, PolicyBreakout)
	candles := append(flat(25, 100), downBreakout)

	s.Evaluate(candles, "R_100", 60)
	s.Evaluate(candles, "R_50", 60)

	zones := s.ActiveZones()
	require.Len(t, zones, 2)
	assert.Equal(t, 0, zones[0].Touched)
	assert.Equal(t, 0, zones[1].Touched)

	// зона R_50 не отвечает за цену R_100
	sig := s.Evaluate(retrace(downBreakout, 100.4, -0.05), "R_75", 60)
	assert.False(t, sig.IsHold())
	assert.Equal(t, "R_75", sig.Zone.Symbol)
}

func TestConfidenceAndDuration(t *testing.T) {
	assert.Equal(t, 1.0, Confidence(5))
	assert.InDelta(t, 0.8, Confidence(10), 1e-9)
	assert.InDelta(t, 0.9, Confidence(8), 1e-9)

	for tf, want := range map[int64]int{30: 5, 60: 5, 120: 15, 300: 15, 600: 60, 900: 60, 3600: 120} {
		got, unit := Duration(tf)
		assert.Equal(t, want, got, "tf=%d", tf)
		assert.Equal(t, "m", unit)
	}
}

func TestFactory(t *testing.T) {
	assert.Equal(t, NameSupplyDemand, New("", Options{}).Name())
	assert.Equal(t, NameSupplyDemand, New("donchian", Options{}).Name())
	assert.Equal(t, NameAlternating, New(NameAlternating, Options{}).Name())
}

func TestAlternating(t *testing.T) {
	c := newClock()
	a := NewAlternating(Options{BaseAmount: decimal.NewFromInt(5), Now: c.now})
	candles := flat(3, 100)

	first := a.Evaluate(candles, "R_10", 60)
	require.Equal(t, models.ActionBuyUp, first.Action)
	assert.True(t, first.Amount.Equal(decimal.NewFromInt(5)))

	assert.True(t, a.Evaluate(candles, "R_10", 60).IsHold())

	c.advance(alternatingGap)
	second := a.Evaluate(candles, "R_10", 60)
	assert.Equal(t, models.ActionBuyDown, second.Action)
	assert.Equal(t, models.ContractPut, second.ContractType)
}
