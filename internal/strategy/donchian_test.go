package strategy

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"deriv_bot/internal/models"
)

// chop: закрытия 100.1/99.9 по очереди, канал [99.8, 100.2].
func chop(n int) []models.Candle {
	out := make([]models.Candle, 0, n)
	for i := 0; i < n; i++ {
		c := 100.1
		if i%2 == 1 {
			c = 99.9
		}
		out = append(out, models.Candle{Open: 100, High: c + 0.1, Low: c - 0.1, Close: c})
	}
	return out
}

func TestDonchian_BreakoutUp(t *testing.T) {
	clk := newClock()
	d := NewDonchian(Options{BaseAmount: decimal.NewFromInt(5), MinSignalGap: time.Minute, Now: clk.now})

	candles := append(chop(60), models.Candle{Open: 100, High: 100.6, Low: 99.9, Close: 100.5})
	sig := d.Evaluate(candles, "R_100", 60)

	require.Equal(t, models.ActionBuyUp, sig.Action)
	assert.Equal(t, models.ContractCall, sig.ContractType)
	assert.Equal(t, "5", sig.Amount.String())
	assert.InDelta(t, 100.2, sig.Zone.Top, 1e-9)
	assert.InDelta(t, 99.8, sig.Zone.Bottom, 1e-9)
	assert.Len(t, d.ActiveZones(), 1)

	// в пределах паузы тот же пробой молчит
	clk.advance(30 * time.Second)
	assert.True(t, d.Evaluate(candles, "R_100", 60).IsHold())

	clk.advance(time.Minute)
	assert.False(t, d.Evaluate(candles, "R_100", 60).IsHold())
}

func TestDonchian_BreakoutDown(t *testing.T) {
	d := NewDonchian(Options{Now: newClock().now})

	candles := append(chop(60), models.Candle{Open: 100, High: 100.1, Low: 99.4, Close: 99.5})
	sig := d.Evaluate(candles, "R_50", 60)

	require.Equal(t, models.ActionBuyDown, sig.Action)
	assert.Equal(t, models.ContractPut, sig.ContractType)
	assert.Equal(t, "10", sig.Amount.String())
}

func TestDonchian_HoldInsideChannel(t *testing.T) {
	d := NewDonchian(Options{Now: newClock().now})

	assert.True(t, d.Evaluate(chop(10), "R_100", 60).IsHold())
	assert.True(t, d.Evaluate(chop(61), "R_100", 60).IsHold())
	assert.Empty(t, d.ActiveZones())
}

func TestFactory_Donchian(t *testing.T) {
	assert.Equal(t, NameDonchian, New(NameDonchian, Options{}).Name())
	assert.Equal(t, NameSupplyDemand, New("nope", Options{}).Name())
}
