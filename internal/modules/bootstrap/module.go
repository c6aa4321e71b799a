package bootstrap

import (
	"context"
	"time"

	"go.uber.org/fx"

	bootstrap "deriv_bot/internal/modules/bootstrap/service"
	"deriv_bot/internal/modules/config"
	derivws "deriv_bot/internal/modules/deriv_websocket/service"
	"deriv_bot/pkg/logger"
)

const (
	warmupRetry = 5 * time.Second
	waitConnect = 500 * time.Millisecond
)

func Module() fx.Option {
	return fx.Module("bootstrap",
		fx.Provide(
			func(cfg *config.Config, c *derivws.Client) *bootstrap.Catalog {
				return bootstrap.NewCatalog(c, cfg.Deriv.SymbolsTTL)
			},
		),
		fx.Invoke(func(lc fx.Lifecycle, cfg *config.Config, c *derivws.Client, cat *bootstrap.Catalog) {
			ctx, cancel := context.WithCancel(context.Background())
			lc.Append(fx.Hook{
				OnStart: func(context.Context) error {
					go warmup(ctx, c, cat, cfg.Deriv.SymbolsTTL)
					return nil
				},
				OnStop: func(context.Context) error {
					cancel()
					return nil
				},
			})
		}),
	)
}

// warmup ждёт сокет, грузит список символов и дальше обновляет его раз в ttl.
func warmup(ctx context.Context, c *derivws.Client, cat *bootstrap.Catalog, ttl time.Duration) {
	for !c.Connected() {
		select {
		case <-ctx.Done():
			return
		case <-time.After(waitConnect):
		}
	}

	for {
		if err := cat.Warmup(ctx); err != nil {
			logger.Warn("[BOOT] active symbols: %v", err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(warmupRetry):
			}
			continue
		}
		logger.Info("[BOOT] active symbols loaded: %d open", len(cat.Open()))
		break
	}

	if ttl <= 0 {
		return
	}
	t := time.NewTicker(ttl)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if err := cat.Warmup(ctx); err != nil {
				logger.Warn("[BOOT] active symbols refresh: %v", err)
			}
		}
	}
}
