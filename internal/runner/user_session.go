package runner

import (
	"context"
	"sync"
	"time"

	"deriv_bot/internal/models"
	"deriv_bot/internal/strategy"
)

// userSession — состояние запущенного бота. Пишет в него только цикл своего юзера.
type userSession struct {
	userID int64
	cfg    *models.BotConfig
	engine strategy.Engine

	cancel context.CancelFunc
	done   chan struct{}

	mu             sync.Mutex
	running        bool
	startedAt      time.Time
	trades         []models.Trade
	tradesExecuted int
	dailyTrades    int
	lastTradeDate  string
}

func newSession(userID int64) *userSession {
	return &userSession{userID: userID, done: make(chan struct{})}
}

func dateKey(t time.Time) string { return t.Local().Format("2006-01-02") }

func (s *userSession) isRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

func (s *userSession) start(cfg *models.BotConfig, engine strategy.Engine, cancel context.CancelFunc, now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cfg = cfg
	s.engine = engine
	s.cancel = cancel
	s.running = true
	s.startedAt = now
	s.lastTradeDate = dateKey(now)
}

func (s *userSession) stop() {
	s.mu.Lock()
	s.running = false
	cancel := s.cancel
	s.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// rollDay обнуляет дневной счётчик при смене локальной даты.
func (s *userSession) rollDay(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if today := dateKey(now); s.lastTradeDate != today {
		s.dailyTrades = 0
		s.lastTradeDate = today
	}
}

func (s *userSession) daily() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dailyTrades
}

func (s *userSession) addTrade(t models.Trade) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.trades = append(s.trades, t)
	s.tradesExecuted++
	s.dailyTrades++
}

// expire закрывает открытые сделки старше hold и выкидывает закрытые старше retention.
// Возвращает только что закрытые.
func (s *userSession) expire(now time.Time, hold, retention time.Duration) []models.Trade {
	s.mu.Lock()
	defer s.mu.Unlock()

	var closed []models.Trade
	for i := range s.trades {
		t := &s.trades[i]
		if !t.IsOpen() || now.Sub(t.OpenedAt) < hold {
			continue
		}
		at := now
		t.Status = models.TradeClosed
		t.ClosedAt = &at
		t.ClosePrice = t.EntryPrice
		t.PnL = t.ClosePrice.Sub(t.EntryPrice)
		closed = append(closed, *t)
	}

	kept := s.trades[:0]
	for _, t := range s.trades {
		if t.ClosedAt != nil && now.Sub(*t.ClosedAt) > retention {
			continue
		}
		kept = append(kept, t)
	}
	s.trades = kept
	return closed
}

func (s *userSession) report() *models.BotReport {
	s.mu.Lock()
	defer s.mu.Unlock()

	r := &models.BotReport{
		UserID:         s.userID,
		IsRunning:      s.running,
		TradesExecuted: s.tradesExecuted,
		DailyTrades:    s.dailyTrades,
		Config:         s.cfg,
	}
	if !s.startedAt.IsZero() {
		at := s.startedAt
		r.StartedAt = &at
	}

	losses := 0
	for _, t := range s.trades {
		if t.IsOpen() {
			r.ActiveTrades++
			r.OpenTrades = append(r.OpenTrades, t)
			continue
		}
		r.ClosedTrades++
		if t.PnL.IsNegative() {
			losses++
		}
	}
	if s.tradesExecuted > 0 {
		r.WinRate = float64(s.tradesExecuted-losses) / float64(s.tradesExecuted) * 100
	}
	return r
}
