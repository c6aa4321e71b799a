package sqlite

import (
	"context"

	"go.uber.org/fx"

	"deriv_bot/internal/modules/config"
	"deriv_bot/internal/modules/sqlite/service"
	"deriv_bot/pkg/logger"
)

// NewStore открывает файл из storage.sqlite_path и накатывает схему.
func NewStore(lc fx.Lifecycle, cfg *config.Config) (*service.Store, error) {
	db, err := service.Open(cfg.Storage.SQLitePath)
	if err != nil {
		return nil, err
	}
	if err := service.Migrate(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	logger.Info("sqlite: %s", cfg.Storage.SQLitePath)

	st := service.NewStore(db)
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			return st.Close()
		},
	})
	return st, nil
}
