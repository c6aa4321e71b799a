package notify

import (
	"context"
	"fmt"

	tgbot "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/fx"

	"deriv_bot/internal/modules/config"
	"deriv_bot/internal/runner"
	"deriv_bot/pkg/logger"
)

// Sender — часть *tgbot.BotAPI, которой хватает для уведомлений.
type Sender interface {
	Send(c tgbot.Chattable) (tgbot.Message, error)
}

// Telegram шлёт уведомления в чат юзера: chat id совпадает с user id.
type Telegram struct {
	bot Sender
}

func NewTelegram(bot Sender) *Telegram {
	return &Telegram{bot: bot}
}

func (t *Telegram) Notify(_ context.Context, userID int64, format string, args ...any) {
	if t == nil || t.bot == nil || userID == 0 {
		return
	}
	if _, err := t.bot.Send(tgbot.NewMessage(userID, fmt.Sprintf(format, args...))); err != nil {
		logger.Warn("[NOTIFY] user=%d: telegram send: %v", userID, err)
	}
}

// Stdout — без телеграма всё уходит в лог.
type Stdout struct{}

func NewStdout() *Stdout { return &Stdout{} }

func (s *Stdout) Notify(_ context.Context, userID int64, format string, args ...any) {
	logger.Info("[NOTIFY] user=%d: %s", userID, fmt.Sprintf(format, args...))
}

// NewBotAPI — клиент телеграма, nil если токен не задан.
func NewBotAPI(cfg *config.Config) (*tgbot.BotAPI, error) {
	if cfg.Telegram.Token == "" {
		logger.Info("telegram: token is empty, notifications go to log")
		return nil, nil
	}
	b, err := tgbot.NewBotAPI(cfg.Telegram.Token)
	if err != nil {
		return nil, fmt.Errorf("telegram: %w", err)
	}
	return b, nil
}

// New: если телеграма нет, используем stdout.
func New(bot *tgbot.BotAPI) runner.Notifier {
	if bot == nil {
		return NewStdout()
	}
	return NewTelegram(bot)
}

func Module() fx.Option {
	return fx.Module("notify",
		fx.Provide(
			NewBotAPI,
			New,
		),
	)
}
