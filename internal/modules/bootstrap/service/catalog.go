package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	derivws "deriv_bot/internal/modules/deriv_websocket/service"
)

// SymbolSource — откуда берём active_symbols.
type SymbolSource interface {
	ActiveSymbols(ctx context.Context) ([]derivws.SymbolInfo, error)
}

// Catalog — кэш active_symbols площадки. Нужен для предупреждений при сохранении конфига
// и для списка символов в интерфейсах.
type Catalog struct {
	src SymbolSource
	ttl time.Duration
	now func() time.Time

	mu       sync.RWMutex
	symbols  map[string]derivws.SymbolInfo
	loadedAt time.Time
}

func NewCatalog(src SymbolSource, ttl time.Duration) *Catalog {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &Catalog{src: src, ttl: ttl, now: time.Now}
}

// Warmup перечитывает список с площадки.
func (c *Catalog) Warmup(ctx context.Context) error {
	all, err := c.src.ActiveSymbols(ctx)
	if err != nil {
		return err
	}
	m := make(map[string]derivws.SymbolInfo, len(all))
	for _, s := range all {
		m[s.Symbol] = s
	}

	c.mu.Lock()
	c.symbols = m
	c.loadedAt = c.now()
	c.mu.Unlock()
	return nil
}

func (c *Catalog) stale() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.symbols == nil || c.now().Sub(c.loadedAt) > c.ttl
}

// Loaded — был ли хоть один успешный warmup.
func (c *Catalog) Loaded() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.symbols != nil
}

// Check возвращает предупреждения по символам. Если список не загрузить, предупреждение одно.
func (c *Catalog) Check(ctx context.Context, symbols []string) []string {
	if c.stale() {
		if err := c.Warmup(ctx); err != nil && !c.Loaded() {
			return []string{fmt.Sprintf("symbol list unavailable: %v", err)}
		}
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	var warnings []string
	for _, s := range symbols {
		info, ok := c.symbols[s]
		switch {
		case !ok:
			warnings = append(warnings, fmt.Sprintf("%s: unknown symbol", s))
		case !info.IsOpen:
			warnings = append(warnings, fmt.Sprintf("%s: market closed", s))
		}
	}
	return warnings
}

// Open — открытые символы по алфавиту.
func (c *Catalog) Open() []derivws.SymbolInfo {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]derivws.SymbolInfo, 0, len(c.symbols))
	for _, s := range c.symbols {
		if s.IsOpen {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out
}
