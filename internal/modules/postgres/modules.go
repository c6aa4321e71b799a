package postgres

import (
	"context"
	"fmt"

	"go.uber.org/fx"

	"deriv_bot/internal/modules/config"
	"deriv_bot/internal/modules/postgres/service"
	"deriv_bot/pkg/db"
)

// Open поднимает пул и проверяет соединение.
func Open(ctx context.Context, cfg *config.Config) (*db.PgTxManager, error) {
	poolMaster, err := db.NewPool(ctx, db.PoolConfig{
		DSN:      cfg.DB,
		MaxConns: cfg.Storage.MaxConns,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create poolMaster: %w", err)
	}

	if err = poolMaster.Ping(ctx); err != nil {
		poolMaster.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	return db.NewPgTxManager(poolMaster), nil
}

// NewStore открывает базу, накатывает схему и закрывает пул на остановке.
func NewStore(lc fx.Lifecycle, cfg *config.Config) (*service.Store, error) {
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Storage.ConnectTimeout)
	defer cancel()

	tm, err := Open(ctx, cfg)
	if err != nil {
		return nil, err
	}
	st := service.NewStore(tm)
	if err = st.Migrate(ctx); err != nil {
		tm.Close()
		return nil, err
	}

	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			tm.Close()
			return nil
		},
	})
	return st, nil
}
