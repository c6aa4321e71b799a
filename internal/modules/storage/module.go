package storage

import (
	"fmt"
	"strings"

	"go.uber.org/fx"

	"deriv_bot/internal/modules/config"
	"deriv_bot/internal/modules/postgres"
	"deriv_bot/internal/modules/sqlite"
	"deriv_bot/internal/runner"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

type backend interface {
	runner.Store
	runner.TradeHistory
}

// Out — хранилище под контрактами раннера и API.
type Out struct {
	fx.Out

	Store   runner.Store
	History runner.TradeHistory
}

// New выбирает бэкенд по storage.driver.
func New(lc fx.Lifecycle, cfg *config.Config) (Out, error) {
	var (
		b   backend
		err error
	)
	switch strings.ToLower(strings.TrimSpace(cfg.Storage.Driver)) {
	case DriverPostgres, "":
		b, err = postgres.NewStore(lc, cfg)
	case DriverSQLite:
		b, err = sqlite.NewStore(lc, cfg)
	default:
		return Out{}, fmt.Errorf("storage: unknown driver %q", cfg.Storage.Driver)
	}
	if err != nil {
		return Out{}, fmt.Errorf("storage %s: %w", cfg.Storage.Driver, err)
	}
	return Out{Store: b, History: b}, nil
}

func Module() fx.Option {
	return fx.Module("storage",
		fx.Provide(New),
	)
}
