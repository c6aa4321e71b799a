package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"deriv_bot/internal/models"
	"deriv_bot/internal/modules/config"
	derivws "deriv_bot/internal/modules/deriv_websocket/service"
	"deriv_bot/internal/runner"
)

func init() { gin.SetMode(gin.TestMode) }

type fakeBots struct {
	startErr  error
	stopErr   error
	tradeErr  error
	started   []string
	startTier models.Tier
	patch     models.ConfigPatch
	order     runner.ForceOrder
}

func (f *fakeBots) Start(_ context.Context, userID int64, tier models.Tier, extra ...string) (*models.BotReport, error) {
	if f.startErr != nil {
		return nil, f.startErr
	}
	f.started = extra
	f.startTier = tier
	return &models.BotReport{UserID: userID, IsRunning: true}, nil
}

func (f *fakeBots) Stop(context.Context, int64) error { return f.stopErr }

func (f *fakeBots) Status(_ context.Context, userID int64) (*models.BotReport, error) {
	return &models.BotReport{UserID: userID, TradesExecuted: 3, WinRate: 66.6}, nil
}

func (f *fakeBots) ActiveBots() []int64 { return []int64{1, 2} }

func (f *fakeBots) Config(_ context.Context, userID int64) (*models.BotConfig, error) {
	return &models.BotConfig{UserID: userID, Symbols: []string{"R_100"}, AmountPerTrade: decimal.NewFromInt(10)}, nil
}

func (f *fakeBots) UpdateConfig(_ context.Context, userID int64, _ models.Tier, p models.ConfigPatch) (*models.BotConfig, []string, error) {
	f.patch = p
	cfg := &models.BotConfig{UserID: userID, Symbols: p.Symbols}
	return cfg, []string{"FOO: unknown symbol"}, nil
}

func (f *fakeBots) ForceTrade(_ context.Context, _ int64, _ models.Tier, o runner.ForceOrder) (*models.Trade, error) {
	f.order = o
	if f.tradeErr != nil {
		return nil, f.tradeErr
	}
	return &models.Trade{ID: "c-1", Symbol: o.Symbol, ContractType: o.ContractType, Amount: o.Amount}, nil
}

type fakeHistory struct{ limit int }

func (h *fakeHistory) Trades(_ context.Context, _ int64, limit int) ([]models.Trade, error) {
	h.limit = limit
	return nil, nil
}

type fakeSymbols struct{}

func (fakeSymbols) Open() []derivws.SymbolInfo {
	return []derivws.SymbolInfo{{Symbol: "R_100", IsOpen: true}}
}

func newTestServer(b *fakeBots, h *fakeHistory) http.Handler {
	users := []config.APIUser{
		{Token: "tok-free", UserID: 1, Tier: "free"},
		{Token: "tok-premium", UserID: 2, Tier: "premium"},
	}
	return NewServer(users, b, h, fakeSymbols{}).Handler()
}

func do(t *testing.T, h http.Handler, method, path, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestAuth(t *testing.T) {
	h := newTestServer(&fakeBots{}, &fakeHistory{})

	assert.Equal(t, http.StatusUnauthorized, do(t, h, http.MethodGet, "/bot/status", "", "").Code)
	assert.Equal(t, http.StatusUnauthorized, do(t, h, http.MethodGet, "/bot/status", "nope", "").Code)
	assert.Equal(t, http.StatusOK, do(t, h, http.MethodGet, "/bot/status", "tok-free", "").Code)
	// символы без авторизации
	assert.Equal(t, http.StatusOK, do(t, h, http.MethodGet, "/symbols", "", "").Code)
}

func TestStart_PassesSymbolsAndTier(t *testing.T) {
	b := &fakeBots{}
	h := newTestServer(b, &fakeHistory{})

	rec := do(t, h, http.MethodPost, "/bot/start", "tok-premium", `{"symbols":["R_50"]}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"R_50"}, b.started)
	assert.Equal(t, models.TierPremium, b.startTier)

	var report models.BotReport
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.Equal(t, int64(2), report.UserID)
	assert.True(t, report.IsRunning)

	// пустое тело тоже ок
	rec = do(t, h, http.MethodPost, "/bot/start", "tok-free", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, b.started)
}

func TestErrorMapping(t *testing.T) {
	cases := []struct {
		err  error
		code int
	}{
		{models.ErrInvalidConfig, http.StatusBadRequest},
		{fmt.Errorf("%w: free tier", models.ErrTierLimitExceeded), http.StatusForbidden},
		{models.ErrAlreadyRunning, http.StatusConflict},
		{fmt.Errorf("quote R_100: %w", models.ErrTimeout), http.StatusGatewayTimeout},
		{&models.RemoteError{Code: "InvalidSymbol", Message: "bad"}, http.StatusBadGateway},
		{models.ErrConnectionLost, http.StatusBadGateway},
		{fmt.Errorf("%w: load config", models.ErrPersistence), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.err.Error(), func(t *testing.T) {
			h := newTestServer(&fakeBots{startErr: tc.err}, &fakeHistory{})
			rec := do(t, h, http.MethodPost, "/bot/start", "tok-free", "")
			assert.Equal(t, tc.code, rec.Code)
		})
	}
}

func TestStop_NotRunning(t *testing.T) {
	h := newTestServer(&fakeBots{stopErr: models.ErrNotRunning}, &fakeHistory{})
	rec := do(t, h, http.MethodPost, "/bot/stop", "tok-free", "")
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "bot not running")
}

func TestSaveConfig_ReturnsWarnings(t *testing.T) {
	b := &fakeBots{}
	h := newTestServer(b, &fakeHistory{})

	rec := do(t, h, http.MethodPut, "/bot/config", "tok-free", `{"symbols":["R_100","FOO"],"amount_per_trade":"5","cycle_interval":60}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"R_100", "FOO"}, b.patch.Symbols)
	require.NotNil(t, b.patch.AmountPerTrade)
	assert.Equal(t, "5", b.patch.AmountPerTrade.String())
	require.NotNil(t, b.patch.CycleInterval)
	assert.Equal(t, 60, *b.patch.CycleInterval)
	assert.Nil(t, b.patch.Timeframe)

	var body struct {
		Warnings []string `json:"warnings"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, []string{"FOO: unknown symbol"}, body.Warnings)

	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodPost, "/bot/config", "tok-free", `{"symbols":`).Code)
}

func TestForceTrade(t *testing.T) {
	b := &fakeBots{}
	h := newTestServer(b, &fakeHistory{})

	rec := do(t, h, http.MethodPost, "/bot/force-trade", "tok-free", `{"symbol":"R_100","contract_type":"PUT","amount":5,"duration":3,"duration_unit":"m"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "R_100", b.order.Symbol)
	assert.Equal(t, models.ContractPut, b.order.ContractType)
	assert.Equal(t, "5", b.order.Amount.String())
	assert.Equal(t, 3, b.order.Duration)

	// без contract_type не доходим до менеджера
	b.order = runner.ForceOrder{}
	rec = do(t, h, http.MethodPost, "/bot/force-trade", "tok-free", `{"symbol":"R_100","amount":5}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, b.order.Symbol)
}

func TestTrades_Limit(t *testing.T) {
	hist := &fakeHistory{}
	h := newTestServer(&fakeBots{}, hist)

	rec := do(t, h, http.MethodGet, "/bot/trades", "tok-free", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, defaultTradesLimit, hist.limit)
	assert.JSONEq(t, `{"trades":[]}`, rec.Body.String())

	do(t, h, http.MethodGet, "/bot/trades?limit=100000", "tok-free", "")
	assert.Equal(t, maxTradesLimit, hist.limit)

	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodGet, "/bot/trades?limit=-1", "tok-free", "").Code)
}

func TestActive(t *testing.T) {
	h := newTestServer(&fakeBots{}, &fakeHistory{})
	rec := do(t, h, http.MethodGet, "/bot/active", "tok-free", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"user_ids":[1,2]}`, rec.Body.String())
}
