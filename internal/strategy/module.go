package strategy

import "go.uber.org/fx"

// Factory — как раннер получает стратегию под конкретного бота.
type Factory func(name string, opts Options) Engine

func Module() fx.Option {
	return fx.Module("strategy",
		fx.Provide(
			func() Factory { return New },
		),
	)
}
