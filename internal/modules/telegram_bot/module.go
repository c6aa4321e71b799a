package telegram

import (
	"context"

	tgbot "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/fx"

	bootstrap "deriv_bot/internal/modules/bootstrap/service"
	"deriv_bot/internal/modules/config"
	tg "deriv_bot/internal/modules/telegram_bot/service"
	"deriv_bot/internal/runner"
	"deriv_bot/pkg/logger"
)

func NewTelegram(cfg *config.Config, api *tgbot.BotAPI, m *runner.Manager, history runner.TradeHistory, cat *bootstrap.Catalog) *tg.Telegram {
	return tg.NewTelegram(cfg, api, m, history, cat)
}

func Module() fx.Option {
	return fx.Module("telegram",
		fx.Provide(NewTelegram),
		// Long polling живёт до OnStop
		fx.Invoke(
			func(lc fx.Lifecycle, api *tgbot.BotAPI, t *tg.Telegram) {
				if api == nil {
					logger.Info("telegram: token not set, chat interface disabled")
					return
				}
				ctx, cancel := context.WithCancel(context.Background())
				lc.Append(fx.Hook{
					OnStart: func(context.Context) error {
						go t.Start(ctx)
						return nil
					},
					OnStop: func(context.Context) error {
						cancel()
						t.Stop()
						return nil
					},
				})
			},
		),
	)
}
