package service

import (
	"context"
	"fmt"

	tgbot "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"deriv_bot/internal/models"
	"deriv_bot/internal/modules/config"
	derivws "deriv_bot/internal/modules/deriv_websocket/service"
	"deriv_bot/internal/runner"
	"deriv_bot/pkg/logger"
)

// Bot — то, что нужно от *tgbot.BotAPI для ответов.
type Bot interface {
	Send(c tgbot.Chattable) (tgbot.Message, error)
	Request(c tgbot.Chattable) (*tgbot.APIResponse, error)
}

// Bots — операции менеджера ботов.
type Bots interface {
	Start(ctx context.Context, userID int64, tier models.Tier, extraSymbols ...string) (*models.BotReport, error)
	Stop(ctx context.Context, userID int64) error
	Status(ctx context.Context, userID int64) (*models.BotReport, error)
	Config(ctx context.Context, userID int64) (*models.BotConfig, error)
	UpdateConfig(ctx context.Context, userID int64, tier models.Tier, patch models.ConfigPatch) (*models.BotConfig, []string, error)
	ForceTrade(ctx context.Context, userID int64, tier models.Tier, o runner.ForceOrder) (*models.Trade, error)
}

type Symbols interface {
	Open() []derivws.SymbolInfo
}

// Telegram — чат-интерфейс: chat id юзера и есть его user id.
type Telegram struct {
	api     *tgbot.BotAPI
	bot     Bot
	cfg     *config.Config
	bots    Bots
	history runner.TradeHistory
	symbols Symbols
	await   *awaitStore
}

func NewTelegram(cfg *config.Config, api *tgbot.BotAPI, bots Bots, history runner.TradeHistory, symbols Symbols) *Telegram {
	t := &Telegram{
		api:     api,
		cfg:     cfg,
		bots:    bots,
		history: history,
		symbols: symbols,
		await:   newAwaitStore(),
	}
	if api != nil {
		t.bot = api
	}
	return t
}

func (t *Telegram) Send(_ context.Context, chatID int64, msg string) (tgbot.Message, error) {
	return t.bot.Send(tgbot.NewMessage(chatID, msg))
}

func (t *Telegram) SendF(ctx context.Context, chatID int64, format string, args ...any) (tgbot.Message, error) {
	return t.Send(ctx, chatID, fmt.Sprintf(format, args...))
}

func (t *Telegram) SendMessage(_ context.Context, message tgbot.MessageConfig) (tgbot.Message, error) {
	return t.bot.Send(message)
}

func (t *Telegram) tier(chatID int64) models.Tier {
	return models.Tier(t.cfg.TierForChat(chatID))
}

// Start — long polling до отмены ctx.
func (t *Telegram) Start(ctx context.Context) {
	if t.api == nil {
		return
	}
	u := tgbot.NewUpdate(0)
	u.Timeout = 30
	u.AllowedUpdates = []string{"message", "callback_query"}

	updates := t.api.GetUpdatesChan(u)
	logger.Info("telegram: polling as @%s", t.api.Self.UserName)
	for {
		select {
		case <-ctx.Done():
			return
		case upd, ok := <-updates:
			if !ok {
				return
			}
			t.handleUpdate(ctx, upd)
		}
	}
}

func (t *Telegram) Stop() {
	if t.api != nil {
		t.api.StopReceivingUpdates()
	}
}
