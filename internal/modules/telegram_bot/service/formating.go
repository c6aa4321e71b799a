package service

import (
	"fmt"
	"strings"

	"deriv_bot/internal/models"
	derivws "deriv_bot/internal/modules/deriv_websocket/service"
)

const timeLayout = "2006-01-02 15:04:05"

func formatConfig(c *models.BotConfig) string {
	if c == nil {
		return "Настроек нет"
	}
	tf := "по символу"
	if c.Timeframe > 0 {
		tf = fmt.Sprintf("%d с", c.Timeframe)
	}
	syms := "—"
	if len(c.Symbols) > 0 {
		syms = strings.Join(c.Symbols, ", ")
	}
	policy := c.ZonePolicy
	if policy == "" {
		policy = "breakout"
	}
	return fmt.Sprintf(
		"⚙️ Настройки\n\n"+
			"Символы: %s\n"+
			"Сумма: %s\n"+
			"Таймфрейм: %s\n"+
			"Свечей: %d\n"+
			"Интервал: %d с\n"+
			"Сделок за цикл: %d\n"+
			"Сделок в день: %d\n"+
			"Пауза сигналов: %d мин\n"+
			"Зоны: %s",
		syms,
		c.AmountPerTrade.StringFixed(2),
		tf,
		c.CandleCount,
		c.CycleInterval,
		c.MaxTradesPerCycle,
		c.DailyTradeLimit,
		c.MinSignalGap,
		policy,
	)
}

func formatReport(r *models.BotReport) string {
	var b strings.Builder
	if r.IsRunning {
		b.WriteString("🟢 Бот работает\n")
	} else {
		b.WriteString("⚪️ Бот остановлен\n")
	}
	if r.StartedAt != nil {
		fmt.Fprintf(&b, "Запущен: %s\n", r.StartedAt.Local().Format(timeLayout))
	}
	if !r.IsRunning && r.StoppedAt != nil {
		fmt.Fprintf(&b, "Остановлен: %s\n", r.StoppedAt.Local().Format(timeLayout))
	}
	if r.IsRunning {
		fmt.Fprintf(&b, "\nСделок: %d (сегодня %d)\n", r.TradesExecuted, r.DailyTrades)
		fmt.Fprintf(&b, "Открыто: %d, закрыто: %d\n", r.ActiveTrades, r.ClosedTrades)
		fmt.Fprintf(&b, "Win rate: %.1f%%\n", r.WinRate)
		for _, t := range r.OpenTrades {
			fmt.Fprintf(&b, "• %s %s %s\n", t.Symbol, t.ContractType, t.Amount.StringFixed(2))
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func formatTrade(t *models.Trade) string {
	return fmt.Sprintf("✅ %s %s\nСумма: %s\nВход: %s\nВыплата: %s\nКонтракт: %s",
		t.Symbol, t.ContractType, t.Amount.StringFixed(2), t.EntryPrice.String(), t.Payout.StringFixed(2), t.ContractID)
}

func formatTrades(ts []models.Trade) string {
	if len(ts) == 0 {
		return "📭 Сделок пока нет"
	}
	var b strings.Builder
	b.WriteString("📜 Последние сделки:\n")
	for _, t := range ts {
		fmt.Fprintf(&b, "• %s %s %s %s [%s]", t.OpenedAt.Local().Format(timeLayout), t.Symbol, t.ContractType,
			t.Amount.StringFixed(2), t.Status)
		if !t.IsOpen() {
			fmt.Fprintf(&b, " PnL %s", t.PnL.StringFixed(2))
		}
		b.WriteByte('\n')
	}
	return strings.TrimRight(b.String(), "\n")
}

func formatSymbols(all []derivws.SymbolInfo) string {
	if len(all) == 0 {
		return "Открытых символов нет"
	}
	var b strings.Builder
	b.WriteString("📈 Открытые символы:\n")
	for _, s := range all {
		fmt.Fprintf(&b, "%s — %s\n", s.Symbol, s.DisplayName)
	}
	return strings.TrimRight(b.String(), "\n")
}
