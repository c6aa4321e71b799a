package service

import (
	"context"
	"testing"
	"time"

	tgbot "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"deriv_bot/internal/models"
	"deriv_bot/internal/modules/config"
	derivws "deriv_bot/internal/modules/deriv_websocket/service"
	"deriv_bot/internal/runner"
)

type fakeBot struct {
	sent     []tgbot.Chattable
	requests int
}

func (f *fakeBot) Send(c tgbot.Chattable) (tgbot.Message, error) {
	f.sent = append(f.sent, c)
	return tgbot.Message{}, nil
}

func (f *fakeBot) Request(tgbot.Chattable) (*tgbot.APIResponse, error) {
	f.requests++
	return &tgbot.APIResponse{Ok: true}, nil
}

func (f *fakeBot) lastText(t *testing.T) string {
	t.Helper()
	require.NotEmpty(t, f.sent)
	msg, ok := f.sent[len(f.sent)-1].(tgbot.MessageConfig)
	require.True(t, ok)
	return msg.Text
}

type fakeBots struct {
	running  bool
	startErr error
	extra    []string
	tier     models.Tier
	patch    *models.ConfigPatch
	warnings []string
	order    *runner.ForceOrder
}

func (f *fakeBots) Start(_ context.Context, userID int64, tier models.Tier, extra ...string) (*models.BotReport, error) {
	f.extra, f.tier = extra, tier
	if f.startErr != nil {
		return nil, f.startErr
	}
	f.running = true
	return &models.BotReport{UserID: userID, IsRunning: true, Config: &models.BotConfig{Symbols: []string{"R_100"}}}, nil
}

func (f *fakeBots) Stop(context.Context, int64) error {
	if !f.running {
		return models.ErrNotRunning
	}
	f.running = false
	return nil
}

func (f *fakeBots) Status(_ context.Context, userID int64) (*models.BotReport, error) {
	return &models.BotReport{UserID: userID, IsRunning: f.running, WinRate: 50}, nil
}

func (f *fakeBots) Config(_ context.Context, userID int64) (*models.BotConfig, error) {
	return &models.BotConfig{UserID: userID, Symbols: []string{"R_100"}, AmountPerTrade: decimal.NewFromInt(10)}, nil
}

func (f *fakeBots) UpdateConfig(_ context.Context, userID int64, tier models.Tier, p models.ConfigPatch) (*models.BotConfig, []string, error) {
	f.patch, f.tier = &p, tier
	cfg := &models.BotConfig{UserID: userID, Symbols: []string{"R_100"}, AmountPerTrade: decimal.NewFromInt(10)}
	p.Apply(cfg)
	return cfg, f.warnings, nil
}

func (f *fakeBots) ForceTrade(_ context.Context, _ int64, _ models.Tier, o runner.ForceOrder) (*models.Trade, error) {
	f.order = &o
	return &models.Trade{ID: "t1", Symbol: o.Symbol, ContractType: o.ContractType, Amount: o.Amount, Status: models.TradeOpen}, nil
}

type fakeHistory struct{ trades []models.Trade }

func (f *fakeHistory) Trades(context.Context, int64, int) ([]models.Trade, error) {
	return f.trades, nil
}

type fakeSymbols struct{}

func (fakeSymbols) Open() []derivws.SymbolInfo {
	return []derivws.SymbolInfo{{Symbol: "R_100", DisplayName: "Volatility 100 Index", IsOpen: true}}
}

func newTestTelegram(b *fakeBots, h *fakeHistory) (*Telegram, *fakeBot) {
	cfg := &config.Config{}
	cfg.Telegram.DefaultTier = "free"
	cfg.Telegram.Tiers = map[int64]string{7: "premium"}

	tg := NewTelegram(cfg, nil, b, h, fakeSymbols{})
	fb := &fakeBot{}
	tg.bot = fb
	return tg, fb
}

func command(chatID int64, text string) tgbot.Update {
	n := len(text)
	for i, r := range text {
		if r == ' ' {
			n = i
			break
		}
	}
	return tgbot.Update{Message: &tgbot.Message{
		Chat:     &tgbot.Chat{ID: chatID},
		Text:     text,
		Entities: []tgbot.MessageEntity{{Type: "bot_command", Offset: 0, Length: n}},
	}}
}

func text(chatID int64, s string) tgbot.Update {
	return tgbot.Update{Message: &tgbot.Message{Chat: &tgbot.Chat{ID: chatID}, Text: s}}
}

func TestRun_PassesSymbolsAndTier(t *testing.T) {
	b := &fakeBots{}
	tg, fb := newTestTelegram(b, &fakeHistory{})

	tg.handleUpdate(context.Background(), command(7, "/run r_50, 1hz100v"))

	assert.Equal(t, []string{"R_50", "1HZ100V"}, b.extra)
	assert.Equal(t, models.TierPremium, b.tier)
	assert.Contains(t, fb.lastText(t), "Бот запущен")
}

func TestRun_AlreadyRunning(t *testing.T) {
	tg, fb := newTestTelegram(&fakeBots{startErr: models.ErrAlreadyRunning}, &fakeHistory{})

	tg.handleUpdate(context.Background(), command(1, "/run"))

	assert.Contains(t, fb.lastText(t), "бот уже запущен")
}

func TestStop_NotRunning(t *testing.T) {
	tg, fb := newTestTelegram(&fakeBots{}, &fakeHistory{})

	tg.handleUpdate(context.Background(), text(1, btnStop))

	assert.Contains(t, fb.lastText(t), "бот не запущен")
}

func TestAmountCommand(t *testing.T) {
	b := &fakeBots{warnings: []string{"R_100: market closed"}}
	tg, fb := newTestTelegram(b, &fakeHistory{})

	tg.handleUpdate(context.Background(), command(1, "/amount 12,5"))

	require.NotNil(t, b.patch)
	require.NotNil(t, b.patch.AmountPerTrade)
	assert.Equal(t, "12.5", b.patch.AmountPerTrade.String())
	out := fb.lastText(t)
	assert.Contains(t, out, "Сохранено")
	assert.Contains(t, out, "market closed")
}

func TestAmountCommand_Invalid(t *testing.T) {
	b := &fakeBots{}
	tg, fb := newTestTelegram(b, &fakeHistory{})

	tg.handleUpdate(context.Background(), command(1, "/amount -3"))

	assert.Nil(t, b.patch)
	assert.Contains(t, fb.lastText(t), "положительное")
}

func TestSettingsFlow_AwaitAndCancel(t *testing.T) {
	b := &fakeBots{running: true}
	tg, fb := newTestTelegram(b, &fakeHistory{})
	ctx := context.Background()

	tg.handleUpdate(ctx, tgbot.Update{CallbackQuery: &tgbot.CallbackQuery{
		ID:      "cb",
		Data:    "set:" + keyInterval,
		Message: &tgbot.Message{Chat: &tgbot.Chat{ID: 1}},
	}})
	assert.Equal(t, 1, fb.requests)
	key, ok := tg.peekAwait(1)
	require.True(t, ok)
	assert.Equal(t, keyInterval, key)

	// мусор не сбрасывает ожидание
	tg.handleUpdate(ctx, text(1, "abc"))
	_, ok = tg.peekAwait(1)
	assert.True(t, ok)
	assert.Nil(t, b.patch)

	tg.handleUpdate(ctx, text(1, "60"))
	_, ok = tg.peekAwait(1)
	assert.False(t, ok)
	require.NotNil(t, b.patch)
	assert.Equal(t, 60, *b.patch.CycleInterval)
	assert.Contains(t, fb.lastText(t), "после /stop и /run")

	tg.setAwait(1, keySymbols)
	tg.handleUpdate(ctx, text(1, "Отмена"))
	_, ok = tg.peekAwait(1)
	assert.False(t, ok)
}

func TestForce(t *testing.T) {
	b := &fakeBots{}
	tg, fb := newTestTelegram(b, &fakeHistory{})

	tg.handleUpdate(context.Background(), command(1, "/force R_100 put 5 3"))

	require.NotNil(t, b.order)
	assert.Equal(t, models.ContractPut, b.order.ContractType)
	assert.Equal(t, 3, b.order.Duration)
	assert.Equal(t, "m", b.order.DurationUnit)
	assert.Contains(t, fb.lastText(t), "R_100 PUT")

	tg.handleUpdate(context.Background(), command(1, "/force R_100"))
	assert.Contains(t, fb.lastText(t), "Формат")
}

func TestTradesAndSymbols(t *testing.T) {
	closed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	h := &fakeHistory{trades: []models.Trade{{
		Symbol: "R_100", ContractType: models.ContractCall, Amount: decimal.NewFromInt(5),
		Status: models.TradeClosed, OpenedAt: closed, ClosedAt: &closed, PnL: decimal.RequireFromString("4.5"),
	}}}
	tg, fb := newTestTelegram(&fakeBots{}, h)

	tg.handleUpdate(context.Background(), command(1, "/trades"))
	assert.Contains(t, fb.lastText(t), "PnL 4.50")

	tg.handleUpdate(context.Background(), command(1, "/symbols"))
	assert.Contains(t, fb.lastText(t), "Volatility 100 Index")
}

func TestParseSymbols(t *testing.T) {
	assert.Equal(t, []string{"R_100", "R_50"}, parseSymbols(" r_100 ;R_50,, "))
	assert.Empty(t, parseSymbols("  "))
}
