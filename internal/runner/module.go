package runner

import (
	"context"

	"go.uber.org/fx"

	bootstrap "deriv_bot/internal/modules/bootstrap/service"
	"deriv_bot/internal/modules/config"
	derivws "deriv_bot/internal/modules/deriv_websocket/service"
	health "deriv_bot/internal/modules/health/service"
	"deriv_bot/internal/strategy"
)

func Module() fx.Option {
	return fx.Module("runner",
		fx.Provide(
			func(c *derivws.Client) Venue { return c },
			func(
				cfg *config.Config,
				store Store,
				venue Venue,
				n Notifier,
				f strategy.Factory,
				st *health.State,
				cat *bootstrap.Catalog,
			) *Manager {
				s := SettingsFromConfig(cfg)
				s.Symbols = cat
				return NewManager(s, store, venue, n, f, st, nil)
			},
		),
		fx.Invoke(func(lc fx.Lifecycle, m *Manager) {
			lc.Append(fx.Hook{
				OnStop: func(ctx context.Context) error {
					m.StopAll(ctx)
					return nil
				},
			})
		}),
	)
}
