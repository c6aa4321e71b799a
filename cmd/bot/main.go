package main

import (
	"context"
	"log"

	"go.uber.org/fx"

	"deriv_bot/internal/modules/bootstrap"
	"deriv_bot/internal/modules/config"
	"deriv_bot/internal/modules/deriv_websocket"
	"deriv_bot/internal/modules/health"
	"deriv_bot/internal/modules/http_api"
	"deriv_bot/internal/modules/storage"
	telegram "deriv_bot/internal/modules/telegram_bot"
	"deriv_bot/internal/notify"
	"deriv_bot/internal/runner"
	"deriv_bot/internal/strategy"
	"deriv_bot/pkg/logger"
	"deriv_bot/pkg/tracing"
)

const serviceName = "deriv_bot"

func main() {
	app := fx.New(
		fx.NopLogger,
		config.Module(),
		fx.Invoke(setupObservability),
		health.Module(),
		deriv_websocket.Module(),
		bootstrap.Module(),
		storage.Module(),
		strategy.Module(),
		notify.Module(),
		runner.Module(),
		http_api.Module(),
		telegram.Module(),
	)
	if err := app.Err(); err != nil {
		log.Fatal(err)
	}
	app.Run()
}

// setupObservability — логгер и jaeger до старта остальных модулей.
func setupObservability(lc fx.Lifecycle, cfg *config.Config) error {
	logger.SetServiceName(serviceName)
	if err := logger.Init(cfg.LogLevel); err != nil {
		return err
	}

	closeTracer := func() {}
	if cfg.Tracing.Host != "" {
		tracing.SetServiceName(serviceName)
		_, closer, err := tracing.InitTracer(tracing.Config{Host: cfg.Tracing.Host, Port: cfg.Tracing.Port})
		if err != nil {
			logger.Warn("tracing disabled: %v", err)
		} else {
			closeTracer = closer
		}
	}

	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			closeTracer()
			logger.Sync()
			return nil
		},
	})
	logger.Info("starting %s", serviceName)
	return nil
}
