package runner

import (
	"context"
	"fmt"
	"time"

	"deriv_bot/internal/models"
	derivws "deriv_bot/internal/modules/deriv_websocket/service"
	"deriv_bot/pkg/logger"
	"deriv_bot/pkg/tracing"
)

// loop — единственная горутина бота. Пока цикл идёт, тики тикера теряются,
// так что циклы одного юзера не пересекаются.
func (m *Manager) loop(ctx context.Context, s *userSession) {
	defer m.wg.Done()
	defer m.forget(s)
	defer close(s.done)

	m.runCycle(ctx, s)

	t := time.NewTicker(s.cfg.CycleEvery())
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			m.runCycle(ctx, s)
		}
	}
}

func (m *Manager) runCycle(ctx context.Context, s *userSession) {
	if ctx.Err() != nil {
		return
	}

	span, spanCtx := tracing.StartSpan(ctx, "bot.cycle")
	span.SetTag("user_id", s.userID)
	defer span.Finish()

	// stop не рвёт уже отправленные запросы: они живут на своих таймаутах
	callCtx := context.WithoutCancel(spanCtx)

	s.rollDay(m.now())

	cfg := s.cfg
	perCycle := 0
	for i, sym := range cfg.Symbols {
		if ctx.Err() != nil {
			break
		}
		if cfg.MaxTradesPerCycle > 0 && perCycle >= cfg.MaxTradesPerCycle {
			logger.Debug("[CYCLE] user=%d: cycle cap %d reached", s.userID, cfg.MaxTradesPerCycle)
			break
		}
		if cfg.DailyTradeLimit > 0 && s.daily() >= cfg.DailyTradeLimit {
			logger.Debug("[CYCLE] user=%d: daily cap %d reached", s.userID, cfg.DailyTradeLimit)
			break
		}

		traded, err := m.processSymbol(callCtx, s, sym)
		if err != nil {
			logger.Warn("[CYCLE] user=%d %s: %v", s.userID, sym, err)
		}
		if traded {
			perCycle++
		}

		if i < len(cfg.Symbols)-1 && !m.pause(ctx) {
			break
		}
	}

	m.sweep(callCtx, s)

	if m.pulse != nil {
		m.pulse.TouchCycle(m.now())
	}
}

func (m *Manager) pause(ctx context.Context) bool {
	if m.settings.SymbolDelay <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(m.settings.SymbolDelay)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func (m *Manager) processSymbol(ctx context.Context, s *userSession, symbol string) (bool, error) {
	cfg := s.cfg
	tf := derivws.ResolveTimeframe(symbol, cfg.Timeframe)

	count := cfg.CandleCount
	if count < m.settings.MinCandles {
		count = m.settings.MinCandles
	}

	candles, err := m.venue.Candles(ctx, symbol, tf, count)
	if err != nil {
		return false, err
	}
	if len(candles) < m.settings.MinCandles {
		return false, fmt.Errorf("%w: %d candles", models.ErrInsufficientData, len(candles))
	}

	sig := s.engine.Evaluate(candles, symbol, tf)
	if sig.IsHold() {
		return false, nil
	}
	logger.Info("[SIGNAL] user=%d %s %s amount=%s confidence=%.2f zone=[%.4f..%.4f] %s",
		s.userID, symbol, sig.Action, sig.Amount, sig.Confidence, sig.Zone.Bottom, sig.Zone.Top, sig.Zone.Type)

	// Stop мог прийти, пока ждали свечи
	if !s.isRunning() {
		logger.Info("[BOT] user=%d stopped, %s signal dropped", s.userID, symbol)
		return false, nil
	}

	trade, err := m.exec.Execute(ctx, s.userID, sig)
	if err != nil {
		return false, err
	}

	s.addTrade(*trade)
	m.persistTrade(s.userID, trade)
	if m.notifier != nil {
		m.notifier.Notify(ctx, s.userID, "✅ %s %s\nСумма: %s\nВыплата: %s\nКонтракт: %s",
			trade.Symbol, trade.ContractType, trade.Amount.StringFixed(2), trade.Payout.StringFixed(2), trade.ContractID)
	}
	return true, nil
}

// persistTrade пишет сделку в фоне; ошибка только логируется.
// StopAll дожидается записи; после него пишем синхронно.
func (m *Manager) persistTrade(userID int64, trade *models.Trade) {
	t := *trade

	m.mu.Lock()
	if m.closing {
		m.mu.Unlock()
		m.insertTrade(userID, &t)
		return
	}
	m.wg.Add(1)
	m.mu.Unlock()

	go func() {
		defer m.wg.Done()
		m.insertTrade(userID, &t)
	}()
}

func (m *Manager) insertTrade(userID int64, t *models.Trade) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := m.store.InsertTrade(ctx, userID, t); err != nil {
		logger.Error("[TRADE] user=%d %s: %v", userID, t.ID, fmt.Errorf("%w: insert trade: %v", models.ErrPersistence, err))
	}
}

// sweep закрывает просроченные сделки по цене входа.
func (m *Manager) sweep(ctx context.Context, s *userSession) {
	closed := s.expire(m.now(), m.settings.HoldDuration, m.settings.ClosedRetention)
	for i := range closed {
		t := &closed[i]
		if err := m.store.CloseTrade(ctx, s.userID, t); err != nil {
			logger.Error("[TRADE] user=%d %s: %v", s.userID, t.ID, fmt.Errorf("%w: close trade: %v", models.ErrPersistence, err))
		}
		logger.Info("[TRADE] user=%d %s closed at %s", s.userID, t.ID, t.ClosePrice)
		if m.notifier != nil {
			m.notifier.Notify(ctx, s.userID, "⏱ %s %s закрыт по истечении, PnL %s", t.Symbol, t.ContractType, t.PnL.StringFixed(2))
		}
	}
}
