package runner

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"deriv_bot/internal/models"
	"deriv_bot/internal/modules/config"
	"deriv_bot/internal/strategy"
	"deriv_bot/pkg/logger"
)

// Settings — параметры цикла, общие для всех ботов.
type Settings struct {
	SymbolDelay     time.Duration
	HoldDuration    time.Duration
	ClosedRetention time.Duration
	MinCandles      int
	Limits          models.TierLimits
	Defaults        func(userID int64) *models.BotConfig
	Symbols         SymbolChecker
}

func SettingsFromConfig(cfg *config.Config) Settings {
	limits := make(models.TierLimits, len(cfg.Tiers))
	for name, v := range cfg.Tiers {
		limits[models.Tier(name)] = decimal.NewFromFloat(v)
	}
	return Settings{
		SymbolDelay:     cfg.Bot.SymbolDelay,
		HoldDuration:    cfg.Bot.HoldDuration,
		ClosedRetention: cfg.Bot.ClosedRetention,
		Limits:          limits,
		Defaults: func(userID int64) *models.BotConfig {
			return models.NewBotConfigFromDefaults(userID, cfg)
		},
	}
}

func (s *Settings) fill() {
	if s.HoldDuration <= 0 {
		s.HoldDuration = 5 * time.Minute
	}
	if s.ClosedRetention <= 0 {
		s.ClosedRetention = time.Hour
	}
	if s.MinCandles <= 0 {
		s.MinCandles = 20
	}
	if s.SymbolDelay < 0 {
		s.SymbolDelay = 0
	}
	if s.Defaults == nil {
		s.Defaults = func(userID int64) *models.BotConfig { return &models.BotConfig{UserID: userID} }
	}
}

// Manager управляет ботами разных юзеров: не больше одной сессии на юзера.
type Manager struct {
	settings   Settings
	store      Store
	venue      Venue
	exec       *Executor
	notifier   Notifier
	strategies strategy.Factory
	pulse      Pulse
	now        func() time.Time

	mu       sync.Mutex
	sessions map[int64]*userSession
	// остановленные сессии, чей цикл ещё не вышел
	stopping map[int64]*userSession
	closing  bool
	wg       sync.WaitGroup
}

func NewManager(
	settings Settings,
	store Store,
	venue Venue,
	notifier Notifier,
	strategies strategy.Factory,
	pulse Pulse,
	now func() time.Time,
) *Manager {
	settings.fill()
	if now == nil {
		now = time.Now
	}
	if strategies == nil {
		strategies = strategy.New
	}
	return &Manager{
		settings:   settings,
		store:      store,
		venue:      venue,
		exec:       NewExecutor(venue, now),
		notifier:   notifier,
		strategies: strategies,
		pulse:      pulse,
		now:        now,
		sessions:   make(map[int64]*userSession),
		stopping:   make(map[int64]*userSession),
	}
}

// Start запускает бота: сразу один цикл, дальше по таймеру cycle_interval.
// extraSymbols добавляются к сохранённым символам (без дублей).
func (m *Manager) Start(ctx context.Context, userID int64, tier models.Tier, extraSymbols ...string) (*models.BotReport, error) {
	sess := newSession(userID)

	m.mu.Lock()
	if m.closing {
		m.mu.Unlock()
		return nil, models.ErrShuttingDown
	}
	if _, ok := m.sessions[userID]; ok {
		m.mu.Unlock()
		return nil, models.ErrAlreadyRunning
	}
	// занимаем слот до загрузки конфига, чтобы второй Start не прошёл
	m.sessions[userID] = sess
	prev := m.stopping[userID]
	m.wg.Add(1)
	m.mu.Unlock()

	cfg, engine, err := m.prepare(ctx, userID, tier, extraSymbols)
	if err == nil && prev != nil {
		// циклы одного юзера не пересекаются: ждём выхода прежнего
		err = m.awaitStopped(ctx, prev)
	}
	if err != nil {
		m.release(userID, sess)
		m.wg.Done()
		return nil, err
	}

	now := m.now()
	loopCtx, cancel := context.WithCancel(context.Background())

	m.mu.Lock()
	if m.closing {
		m.mu.Unlock()
		cancel()
		m.release(userID, sess)
		m.wg.Done()
		return nil, models.ErrShuttingDown
	}
	sess.start(cfg, engine, cancel, now)
	m.mu.Unlock()

	if err := m.store.MarkRunning(ctx, userID, now); err != nil {
		logger.Error("[BOT] user=%d: %v", userID, fmt.Errorf("%w: mark running: %v", models.ErrPersistence, err))
	}

	logger.Info("[BOT] ▶️ user=%d started: symbols=%v amount=%s every %s",
		userID, cfg.Symbols, cfg.AmountPerTrade, cfg.CycleEvery())

	go m.loop(loopCtx, sess)

	return sess.report(), nil
}

func (m *Manager) awaitStopped(ctx context.Context, prev *userSession) error {
	select {
	case <-prev.done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("%w: previous cycle still running: %v", models.ErrTimeout, ctx.Err())
	}
}

func (m *Manager) release(userID int64, sess *userSession) {
	m.mu.Lock()
	if m.sessions[userID] == sess {
		delete(m.sessions, userID)
	}
	m.mu.Unlock()
}

// forget снимает отметку об остановке, когда цикл сессии вышел.
func (m *Manager) forget(s *userSession) {
	m.mu.Lock()
	if m.stopping[s.userID] == s {
		delete(m.stopping, s.userID)
	}
	m.mu.Unlock()
}

// prepare: зачистка зависшего статуса, конфиг, проверки, стратегия.
func (m *Manager) prepare(ctx context.Context, userID int64, tier models.Tier, extra []string) (*models.BotConfig, strategy.Engine, error) {
	if st, err := m.store.GetStatus(ctx, userID); err == nil && st.IsRunning {
		// процесс перезапускался, а в базе остался is_running
		logger.Warn("[BOT] user=%d: stale running status from %v, resetting", userID, st.StartedAt)
		if err := m.store.MarkStopped(ctx, userID, m.now()); err != nil {
			logger.Error("[BOT] user=%d: %v", userID, fmt.Errorf("%w: reset stale status: %v", models.ErrPersistence, err))
		}
	} else if err != nil && !errors.Is(err, models.ErrNotFound) {
		logger.Warn("[BOT] user=%d: read status: %v", userID, err)
	}

	cfg, err := m.Config(ctx, userID)
	if err != nil {
		return nil, nil, err
	}

	cfg.Symbols = append(append([]string{}, cfg.Symbols...), extra...)
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	if !m.settings.Limits.Allows(tier, cfg.AmountPerTrade) {
		return nil, nil, fmt.Errorf("%w: %s tier, amount %s", models.ErrTierLimitExceeded, tier, cfg.AmountPerTrade)
	}

	policy, err := strategy.ParseZonePolicy(cfg.ZonePolicy)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", models.ErrInvalidConfig, err)
	}
	engine := m.strategies(cfg.Strategy, strategy.Options{
		BaseAmount:   cfg.AmountPerTrade,
		MinSignalGap: time.Duration(cfg.MinSignalGap) * time.Minute,
		Policy:       policy,
		Now:          m.now,
	})
	return cfg, engine, nil
}

// Stop гасит бота. Запросы, уже ушедшие на площадку, дорабатывают сами.
func (m *Manager) Stop(ctx context.Context, userID int64) error {
	m.mu.Lock()
	sess, ok := m.sessions[userID]
	if !ok || !sess.isRunning() {
		m.mu.Unlock()
		return models.ErrNotRunning
	}
	delete(m.sessions, userID)
	m.stopping[userID] = sess
	m.mu.Unlock()

	sess.stop()

	if err := m.store.MarkStopped(ctx, userID, m.now()); err != nil {
		logger.Error("[BOT] user=%d: %v", userID, fmt.Errorf("%w: mark stopped: %v", models.ErrPersistence, err))
	}
	logger.Info("[BOT] ⏹ user=%d stopped", userID)
	return nil
}

// StopAll — на остановке процесса. Новые Start после него отклоняются.
func (m *Manager) StopAll(ctx context.Context) {
	m.mu.Lock()
	m.closing = true
	m.mu.Unlock()

	for _, id := range m.ActiveBots() {
		if err := m.Stop(ctx, id); err != nil && !errors.Is(err, models.ErrNotRunning) {
			logger.Error("[BOT] user=%d: stop: %v", id, err)
		}
	}

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		logger.Warn("[BOT] shutdown: cycles still running")
	}
}

// Status — живые счётчики, либо исторические отметки из базы.
func (m *Manager) Status(ctx context.Context, userID int64) (*models.BotReport, error) {
	m.mu.Lock()
	sess, ok := m.sessions[userID]
	m.mu.Unlock()
	if ok && sess.isRunning() {
		return sess.report(), nil
	}

	r := &models.BotReport{UserID: userID}
	st, err := m.store.GetStatus(ctx, userID)
	switch {
	case errors.Is(err, models.ErrNotFound):
		return r, nil
	case err != nil:
		return nil, fmt.Errorf("%w: read status: %v", models.ErrPersistence, err)
	}
	r.StartedAt = st.StartedAt
	r.StoppedAt = st.StoppedAt
	return r, nil
}

// ActiveBots — юзеры с запущенным ботом.
func (m *Manager) ActiveBots() []int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]int64, 0, len(m.sessions))
	for id, s := range m.sessions {
		if s.isRunning() {
			out = append(out, id)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// ForceTrade — разовая сделка. Если бот запущен, сделка попадает в его учёт.
func (m *Manager) ForceTrade(ctx context.Context, userID int64, tier models.Tier, o ForceOrder) (*models.Trade, error) {
	if !m.settings.Limits.Allows(tier, o.Amount) {
		return nil, fmt.Errorf("%w: %s tier, amount %s", models.ErrTierLimitExceeded, tier, o.Amount)
	}

	trade, err := m.exec.ForceTrade(ctx, userID, o)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	sess, ok := m.sessions[userID]
	m.mu.Unlock()
	if ok && sess.isRunning() {
		sess.addTrade(*trade)
	}
	m.persistTrade(userID, trade)
	return trade, nil
}
