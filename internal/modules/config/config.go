package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v2"
)

const (
	configFilePathENV = "CONFIG_FILE"
	tokenTelegramENV  = "TELEGRAM_TOKEN"
	databaseDSN       = "DATABASE_DSN"
	storageDriverENV  = "STORAGE_DRIVER"
	derivAppIDENV     = "DERIV_APP_ID"
	derivTokenENV     = "DERIV_API_TOKEN"
	httpAddrENV       = "HTTP_ADDR"
	logLevelENV       = "LOG_LEVEL"

	defaultConfigFile = "values_local.yaml"
)

// Config ...
type Config struct {
	LogLevel string `yaml:"log_level"`

	Telegram struct {
		Token string `yaml:"token"`
		// chat_id -> тариф; кого нет — DefaultTier
		Tiers       map[int64]string `yaml:"tiers"`
		DefaultTier string           `yaml:"default_tier"`
	} `yaml:"telegram"`

	DB      string `yaml:"db_dsn"`
	Storage struct {
		Driver         string        `yaml:"driver"` // postgres | sqlite
		SQLitePath     string        `yaml:"sqlite_path"`
		MaxConns       int32         `yaml:"max_conns"`
		ConnectTimeout time.Duration `yaml:"connect_timeout"`
	} `yaml:"storage"`

	Service struct {
		HTTPAddr   string `yaml:"http_addr"`
		HealthAddr string `yaml:"health_addr"`
	} `yaml:"service"`

	Tracing struct {
		Host string `yaml:"host"`
		Port int    `yaml:"port"`
	} `yaml:"tracing"`

	Deriv struct {
		URL             string        `yaml:"url"`
		AppID           string        `yaml:"app_id"`
		APIToken        string        `yaml:"api_token"`
		Currency        string        `yaml:"currency"`
		CandlesTimeout  time.Duration `yaml:"candles_timeout"`
		ProposalTimeout time.Duration `yaml:"proposal_timeout"`
		BuyTimeout      time.Duration `yaml:"buy_timeout"`
		PingInterval    time.Duration `yaml:"ping_interval"`
		ReconnectDelay  time.Duration `yaml:"reconnect_delay"`
		EventsBuffer    int           `yaml:"events_buffer"`
		SymbolsTTL      time.Duration `yaml:"symbols_ttl"`
	} `yaml:"deriv"`

	// Дефолты бота (создаём юзеру при первом обращении)
	Bot struct {
		AmountPerTrade    float64       `yaml:"amount_per_trade"`
		Timeframe         int64         `yaml:"timeframe"`
		CandleCount       int           `yaml:"candle_count"`
		CycleInterval     int           `yaml:"cycle_interval"`
		MaxTradesPerCycle int           `yaml:"max_trades_per_cycle"`
		DailyTradeLimit   int           `yaml:"daily_trade_limit"`
		MinSignalGap      int           `yaml:"min_signal_gap"`
		Strategy          string        `yaml:"strategy"`
		ZonePolicy        string        `yaml:"zone_policy"`
		SymbolDelay       time.Duration `yaml:"symbol_delay"`
		HoldDuration      time.Duration `yaml:"hold_duration"`
		ClosedRetention   time.Duration `yaml:"closed_retention"`
	} `yaml:"bot"`

	// тариф -> максимальная сумма сделки
	Tiers map[string]float64 `yaml:"tiers"`

	API struct {
		Users []APIUser `yaml:"users"`
	} `yaml:"api"`
}

// APIUser — bearer-токен HTTP API.
type APIUser struct {
	Token  string `yaml:"token"`
	UserID int64  `yaml:"user_id"`
	Tier   string `yaml:"tier"`
}

func defaults() Config {
	var c Config
	c.LogLevel = "info"
	c.Telegram.DefaultTier = "free"
	c.Storage.Driver = "postgres"
	c.Storage.SQLitePath = "deriv_bot.db"
	c.Storage.ConnectTimeout = 10 * time.Second
	c.Service.HTTPAddr = ":9000"
	c.Service.HealthAddr = ":8080"

	c.Deriv.URL = "wss://ws.derivws.com/websockets/v3"
	c.Deriv.AppID = "1089"
	c.Deriv.Currency = "USD"
	c.Deriv.CandlesTimeout = 15 * time.Second
	c.Deriv.ProposalTimeout = 15 * time.Second
	c.Deriv.BuyTimeout = 10 * time.Second
	c.Deriv.PingInterval = 20 * time.Second
	c.Deriv.ReconnectDelay = time.Second
	c.Deriv.EventsBuffer = 256
	c.Deriv.SymbolsTTL = 30 * time.Minute

	c.Bot.AmountPerTrade = 10
	c.Bot.CandleCount = 100
	c.Bot.CycleInterval = 30
	c.Bot.MaxTradesPerCycle = 3
	c.Bot.DailyTradeLimit = 5
	c.Bot.MinSignalGap = 5
	c.Bot.Strategy = "supply_demand"
	c.Bot.ZonePolicy = "breakout"
	c.Bot.SymbolDelay = 2 * time.Second
	c.Bot.HoldDuration = 5 * time.Minute
	c.Bot.ClosedRetention = time.Hour

	c.Tiers = map[string]float64{"free": 10, "premium": 1000}
	return c
}

// NewConfig читает configs/$CONFIG_FILE поверх дефолтов и накатывает env.
func NewConfig() (*Config, error) {
	_ = godotenv.Load()

	env := viper.New()
	env.AutomaticEnv()

	name := env.GetString(configFilePathENV)
	explicit := name != ""
	if !explicit {
		name = defaultConfigFile
	}

	cfg, err := Load(filepath.Join("configs", name))
	if err != nil {
		if explicit || !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
		d := defaults()
		cfg = &d
	}

	applyEnv(cfg, env)
	return cfg, nil
}

// Load — yaml-файл поверх дефолтов, без env.
func Load(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config file: %w", err)
	}
	defer func() {
		_ = file.Close()
	}()

	config := defaults()
	if err := yaml.NewDecoder(file).Decode(&config); err != nil {
		return nil, fmt.Errorf("decode config file: %w", err)
	}
	return &config, nil
}

func applyEnv(cfg *Config, env *viper.Viper) {
	if v := env.GetString(tokenTelegramENV); v != "" {
		cfg.Telegram.Token = v
	}
	if v := env.GetString(databaseDSN); v != "" {
		cfg.DB = v
	}
	if v := env.GetString(storageDriverENV); v != "" {
		cfg.Storage.Driver = v
	}
	if v := env.GetString(derivAppIDENV); v != "" {
		cfg.Deriv.AppID = v
	}
	if v := env.GetString(derivTokenENV); v != "" {
		cfg.Deriv.APIToken = v
	}
	if v := env.GetString(httpAddrENV); v != "" {
		cfg.Service.HTTPAddr = v
	}
	if v := env.GetString(logLevelENV); v != "" {
		cfg.LogLevel = v
	}
}

// TierForChat — тариф телеграм-юзера.
func (c *Config) TierForChat(chatID int64) string {
	if t, ok := c.Telegram.Tiers[chatID]; ok {
		return t
	}
	return c.Telegram.DefaultTier
}
