package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v2"

	"deriv_bot/internal/modules/config"
	"deriv_bot/internal/modules/postgres"
	pgservice "deriv_bot/internal/modules/postgres/service"
	sqlite "deriv_bot/internal/modules/sqlite/service"
)

// migrate накатывает схему хранилища без запуска бота.
//
//	go run ./cmd/migrate -driver sqlite -path data/deriv_bot.db
//	STORAGE_DRIVER=postgres DATABASE_DSN=... go run ./cmd/migrate
func main() {
	driver := flag.String("driver", "", "postgres | sqlite (по умолчанию из конфига)")
	path := flag.String("path", "", "файл sqlite (по умолчанию из конфига)")
	show := flag.Bool("print", false, "только напечатать настройки хранилища")
	flag.Parse()

	cfg, err := config.NewConfig()
	if err != nil {
		fail(errors.Wrap(err, "load config"))
	}

	// флаги сильнее env и yaml
	flags := viper.New()
	flags.SetDefault("driver", cfg.Storage.Driver)
	flags.SetDefault("path", cfg.Storage.SQLitePath)
	if *driver != "" {
		flags.Set("driver", *driver)
	}
	if *path != "" {
		flags.Set("path", *path)
	}
	cfg.Storage.Driver = flags.GetString("driver")
	cfg.Storage.SQLitePath = flags.GetString("path")

	if *show {
		bs, err := yaml.Marshal(cfg.Storage)
		if err != nil {
			fail(errors.Wrap(err, "marshal storage settings"))
		}
		fmt.Print(string(bs))
		return
	}

	if err := run(cfg); err != nil {
		fail(err)
	}
	fmt.Printf("%s: schema is up to date\n", cfg.Storage.Driver)
}

func run(cfg *config.Config) error {
	switch cfg.Storage.Driver {
	case "", "postgres":
		ctx, cancel := context.WithTimeout(context.Background(), cfg.Storage.ConnectTimeout)
		defer cancel()

		tm, err := postgres.Open(ctx, cfg)
		if err != nil {
			return errors.Wrap(err, "open postgres")
		}
		defer tm.Close()
		return errors.Wrap(pgservice.NewStore(tm).Migrate(ctx), "migrate postgres")
	case "sqlite":
		db, err := sqlite.Open(cfg.Storage.SQLitePath)
		if err != nil {
			return errors.Wrapf(err, "open sqlite %s", cfg.Storage.SQLitePath)
		}
		defer func() { _ = db.Close() }()
		return errors.Wrap(sqlite.Migrate(db), "migrate sqlite")
	}
	return errors.Errorf("unknown storage driver %q", cfg.Storage.Driver)
}

func fail(err error) {
	fmt.Fprintln(os.Stderr, err)
	os.Exit(1)
}
