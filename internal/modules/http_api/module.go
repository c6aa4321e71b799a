package http_api

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/fx"

	bootstrap "deriv_bot/internal/modules/bootstrap/service"
	"deriv_bot/internal/modules/config"
	"deriv_bot/internal/modules/http_api/service"
	"deriv_bot/internal/runner"
	"deriv_bot/pkg/logger"
)

func NewServer(cfg *config.Config, m *runner.Manager, history runner.TradeHistory, cat *bootstrap.Catalog) *service.Server {
	return service.NewServer(cfg.API.Users, m, history, cat)
}

func RunHTTP(lc fx.Lifecycle, cfg *config.Config, s *service.Server) {
	if cfg.Service.HTTPAddr == "" {
		logger.Info("http api: disabled")
		return
	}
	if cfg.LogLevel != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	srv := &http.Server{
		Addr:              cfg.Service.HTTPAddr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			ln, err := net.Listen("tcp", srv.Addr)
			if err != nil {
				return err
			}
			go func() {
				if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
					logger.Error("http api: %v", err)
				}
			}()
			logger.Info("http api: listening on %s", srv.Addr)
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return srv.Shutdown(ctx)
		},
	})
}

func Module() fx.Option {
	return fx.Module("http_api",
		fx.Provide(NewServer),
		fx.Invoke(RunHTTP),
	)
}
