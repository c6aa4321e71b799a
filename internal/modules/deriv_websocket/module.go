package deriv_websocket

import (
	"context"

	"go.uber.org/fx"

	"deriv_bot/internal/modules/config"
	"deriv_bot/internal/modules/deriv_websocket/service"
	health "deriv_bot/internal/modules/health/service"
	"deriv_bot/pkg/logger"
)

// Module поднимает соединение с площадкой.
func Module() fx.Option {
	return fx.Module("deriv_websocket",
		fx.Provide(
			func(cfg *config.Config, st *health.State) *service.Client {
				return service.NewClient(cfg, st)
			},
		),
		fx.Invoke(func(lc fx.Lifecycle, c *service.Client) {
			ctx, cancel := context.WithCancel(context.Background())
			done := make(chan struct{})

			lc.Append(fx.Hook{
				OnStart: func(context.Context) error {
					go func() {
						defer close(done)
						if err := c.Run(ctx); err != nil {
							logger.Error("deriv ws: stopped: %v", err)
						}
					}()
					go drainEvents(ctx, c.Channel())
					return nil
				},
				OnStop: func(stopCtx context.Context) error {
					cancel()
					select {
					case <-done:
					case <-stopCtx.Done():
					}
					return nil
				},
			})
		}),
	)
}

// подписок у нас нет, события только логируем
func drainEvents(ctx context.Context, ch *service.Channel) {
	for {
		select {
		case <-ctx.Done():
			return
		case f := <-ch.Events():
			logger.Debug("deriv ws: event %s", f.MsgType)
		}
	}
}
