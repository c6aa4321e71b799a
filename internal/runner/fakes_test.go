package runner

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"

	"deriv_bot/internal/models"
	derivws "deriv_bot/internal/modules/deriv_websocket/service"
	"deriv_bot/internal/strategy"
)

type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func newTestClock() *testClock {
	return &testClock{t: time.Date(2026, 3, 2, 12, 0, 0, 0, time.Local)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

type fakeStore struct {
	mu       sync.Mutex
	configs  map[int64]*models.BotConfig
	statuses map[int64]*models.BotStatus
	inserted []models.Trade
	closed   []models.Trade
	calls    []string

	insertDelay time.Duration
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		configs:  map[int64]*models.BotConfig{},
		statuses: map[int64]*models.BotStatus{},
	}
}

func (s *fakeStore) GetConfig(_ context.Context, userID int64) (*models.BotConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.configs[userID]
	if !ok {
		return nil, models.ErrNotFound
	}
	cp := *c
	cp.Symbols = append([]string(nil), c.Symbols...)
	return &cp, nil
}

func (s *fakeStore) SaveConfig(_ context.Context, cfg *models.BotConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *cfg
	s.configs[cfg.UserID] = &cp
	return nil
}

func (s *fakeStore) GetStatus(_ context.Context, userID int64) (*models.BotStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.statuses[userID]
	if !ok {
		return nil, models.ErrNotFound
	}
	cp := *st
	return &cp, nil
}

func (s *fakeStore) MarkRunning(_ context.Context, userID int64, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, "running")
	s.statuses[userID] = &models.BotStatus{UserID: userID, IsRunning: true, StartedAt: &at, UpdatedAt: at}
	return nil
}

func (s *fakeStore) MarkStopped(_ context.Context, userID int64, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, "stopped")
	st, ok := s.statuses[userID]
	if !ok {
		st = &models.BotStatus{UserID: userID}
		s.statuses[userID] = st
	}
	st.IsRunning = false
	st.StoppedAt = &at
	st.UpdatedAt = at
	return nil
}

func (s *fakeStore) InsertTrade(_ context.Context, _ int64, t *models.Trade) error {
	if s.insertDelay > 0 {
		time.Sleep(s.insertDelay)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inserted = append(s.inserted, *t)
	return nil
}

func (s *fakeStore) CloseTrade(_ context.Context, _ int64, t *models.Trade) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = append(s.closed, *t)
	return nil
}

func (s *fakeStore) counts() (inserted, closed int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.inserted), len(s.closed)
}

func (s *fakeStore) callLog() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.calls...)
}

type fakeVenue struct {
	mu        sync.Mutex
	candles   func(symbol string) ([]models.Candle, error)
	proposals []derivws.QuoteRequest
	buys      []string
	fetched   []string

	inFlight    atomic.Int32
	maxInFlight atomic.Int32
	delay       time.Duration
	seq         atomic.Int64
}

func (v *fakeVenue) Candles(_ context.Context, symbol string, _ int64, _ int) ([]models.Candle, error) {
	n := v.inFlight.Add(1)
	defer v.inFlight.Add(-1)
	for {
		m := v.maxInFlight.Load()
		if n <= m || v.maxInFlight.CompareAndSwap(m, n) {
			break
		}
	}
	if v.delay > 0 {
		time.Sleep(v.delay)
	}

	v.mu.Lock()
	v.fetched = append(v.fetched, symbol)
	fn := v.candles
	v.mu.Unlock()

	if fn == nil {
		return flatCandles(30, 100), nil
	}
	return fn(symbol)
}

func (v *fakeVenue) Proposal(_ context.Context, q derivws.QuoteRequest) (*derivws.Quote, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.proposals = append(v.proposals, q)
	return &derivws.Quote{
		ID:       fmt.Sprintf("prop-%d", len(v.proposals)),
		AskPrice: q.Amount,
		Payout:   q.Amount.Mul(decimal.RequireFromString("1.95")),
		Spot:     decimal.RequireFromString("99.65"),
	}, nil
}

func (v *fakeVenue) Buy(_ context.Context, proposalID string, price decimal.Decimal) (*derivws.Purchase, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.buys = append(v.buys, proposalID)
	return &derivws.Purchase{
		ContractID: fmt.Sprintf("%d", 1000+v.seq.Add(1)),
		BuyPrice:   price,
		Payout:     price.Mul(decimal.RequireFromString("1.95")),
	}, nil
}

func (v *fakeVenue) fetchCount() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.fetched)
}

func (v *fakeVenue) tradeCalls() (proposals, buys int) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.proposals), len(v.buys)
}

type fakeNotifier struct {
	mu   sync.Mutex
	msgs []string
}

func (n *fakeNotifier) Notify(_ context.Context, userID int64, format string, args ...any) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.msgs = append(n.msgs, fmt.Sprintf("%d: ", userID)+fmt.Sprintf(format, args...))
}

func (n *fakeNotifier) messages() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.msgs...)
}

// stubEngine отдаёт сигнал из функции, без анализа.
type stubEngine struct {
	signal func(symbol string, tf int64) models.Signal
}

func (e *stubEngine) Evaluate(_ []models.Candle, symbol string, tf int64) models.Signal {
	return e.signal(symbol, tf)
}
func (e *stubEngine) Name() string                  { return "stub" }
func (e *stubEngine) ActiveZones() []models.Zone    { return nil }
func (e *stubEngine) SetMinSignalGap(time.Duration) {}

func holdFactory(string, strategy.Options) strategy.Engine {
	return &stubEngine{signal: func(symbol string, tf int64) models.Signal {
		return models.Hold(symbol, tf, time.Now())
	}}
}

func buyFactory(_ string, opts strategy.Options) strategy.Engine {
	return &stubEngine{signal: func(symbol string, _ int64) models.Signal {
		return models.Signal{
			Action:       models.ActionBuyUp,
			Symbol:       symbol,
			ContractType: models.ContractCall,
			Amount:       opts.BaseAmount,
			Duration:     5,
			DurationUnit: "m",
			Confidence:   1,
		}
	}}
}

func flatCandles(n int, price float64) []models.Candle {
	out := make([]models.Candle, n)
	for i := range out {
		out[i] = models.Candle{Open: price, High: price + 0.5, Low: price - 0.5, Close: price, Epoch: int64(i * 60)}
	}
	return out
}

func testLimits() models.TierLimits {
	return models.TierLimits{
		models.TierFree:    decimal.NewFromInt(10),
		models.TierPremium: decimal.NewFromInt(1000),
	}
}

func newTestManager(store Store, venue Venue, f strategy.Factory, clock *testClock) (*Manager, *fakeNotifier) {
	n := &fakeNotifier{}
	m := NewManager(Settings{Limits: testLimits()}, store, venue, n, f, nil, clock.Now)
	return m, n
}

func saveConfig(store *fakeStore, userID int64, symbols ...string) *models.BotConfig {
	cfg := &models.BotConfig{
		UserID:            userID,
		Symbols:           symbols,
		AmountPerTrade:    decimal.NewFromInt(10),
		CandleCount:       100,
		CycleInterval:     30,
		MaxTradesPerCycle: 3,
		DailyTradeLimit:   5,
	}
	_ = store.SaveConfig(context.Background(), cfg)
	return cfg
}
