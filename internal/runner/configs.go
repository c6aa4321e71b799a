package runner

import (
	"context"
	"errors"
	"fmt"

	"deriv_bot/internal/models"
	"deriv_bot/internal/strategy"
)

// SymbolChecker — предупреждения по символам: неизвестен площадке, рынок закрыт.
type SymbolChecker interface {
	Check(ctx context.Context, symbols []string) []string
}

// Config — сохранённый конфиг юзера или дефолты, если его ещё нет.
func (m *Manager) Config(ctx context.Context, userID int64) (*models.BotConfig, error) {
	cfg, err := m.store.GetConfig(ctx, userID)
	switch {
	case errors.Is(err, models.ErrNotFound):
		cfg = m.settings.Defaults(userID)
	case err != nil:
		return nil, fmt.Errorf("%w: load config: %v", models.ErrPersistence, err)
	}
	cfg.UserID = userID
	return cfg, nil
}

// UpdateConfig накладывает patch и сохраняет. Запущенный бот подхватит конфиг после рестарта.
// Незнакомые площадке символы не ошибка: они уходят в warnings.
func (m *Manager) UpdateConfig(ctx context.Context, userID int64, tier models.Tier, patch models.ConfigPatch) (*models.BotConfig, []string, error) {
	if patch.AmountPerTrade != nil && !patch.AmountPerTrade.IsPositive() {
		return nil, nil, fmt.Errorf("%w: amount per trade must be positive", models.ErrInvalidConfig)
	}

	cfg, err := m.Config(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	patch.Apply(cfg)
	cfg.Normalize()

	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	if !m.settings.Limits.Allows(tier, cfg.AmountPerTrade) {
		return nil, nil, fmt.Errorf("%w: %s tier, amount %s", models.ErrTierLimitExceeded, tier, cfg.AmountPerTrade)
	}
	if _, err := strategy.ParseZonePolicy(cfg.ZonePolicy); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", models.ErrInvalidConfig, err)
	}

	var warnings []string
	if m.settings.Symbols != nil {
		warnings = m.settings.Symbols.Check(ctx, cfg.Symbols)
	}

	if err := m.store.SaveConfig(ctx, cfg); err != nil {
		return nil, nil, fmt.Errorf("%w: save config: %v", models.ErrPersistence, err)
	}
	return cfg, warnings, nil
}
