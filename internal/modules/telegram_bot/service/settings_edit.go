package service

import (
	"context"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"deriv_bot/internal/models"
)

const (
	keySymbols  = "symbols"
	keyAmount   = "amount"
	keyInterval = "interval"
	keyPolicy   = "policy"
)

func (t *Telegram) handleSettingsMenu(ctx context.Context, chatID int64) {
	cfg, err := t.bots.Config(ctx, chatID)
	if err != nil {
		_, _ = t.Send(ctx, chatID, "⚠️ Настройки недоступны: "+errText(err))
		return
	}

	kb := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("📈 Символы", "set:"+keySymbols),
			tgbotapi.NewInlineKeyboardButtonData("💵 Сумма", "set:"+keyAmount),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("⏱ Интервал", "set:"+keyInterval),
			tgbotapi.NewInlineKeyboardButtonData("🧭 Зоны", "set:"+keyPolicy),
		),
	)

	msg := tgbotapi.NewMessage(chatID, formatConfig(cfg))
	msg.ReplyMarkup = kb
	_, _ = t.SendMessage(ctx, msg)
}

func (t *Telegram) askValue(ctx context.Context, chatID int64, key string) {
	t.setAwait(chatID, key)

	var hint string
	switch key {
	case keySymbols:
		hint = "Введи символы через запятую, например: R_100, R_50"
	case keyAmount:
		hint = "Введи сумму сделки, например: 10"
	case keyInterval:
		hint = "Введи интервал цикла в секундах, например: 30"
	case keyPolicy:
		hint = "Введи разметку зон: breakout или inverted"
	default:
		hint = "Введи значение"
	}

	_, _ = t.Send(ctx, chatID, "✍️ "+hint+"\n\nОтмена: напиши отмена")
}

func (t *Telegram) handleAwaitValue(ctx context.Context, chatID int64, text, key string) {
	if t.applyValue(ctx, chatID, key, text) {
		t.clearAwait(chatID)
	}
}

// applyValue парсит значение и сохраняет конфиг. false — ввод не распознан, ждём ещё.
func (t *Telegram) applyValue(ctx context.Context, chatID int64, key, text string) bool {
	var patch models.ConfigPatch
	text = strings.TrimSpace(text)

	switch key {
	case keySymbols:
		syms := parseSymbols(text)
		if len(syms) == 0 {
			_, _ = t.Send(ctx, chatID, "❗️Нужен хотя бы один символ, например R_100")
			return false
		}
		patch.Symbols = syms
	case keyAmount:
		v, err := parseAmount(text)
		if err != nil {
			_, _ = t.Send(ctx, chatID, "❗️Нужно положительное число, например 10")
			return false
		}
		patch.AmountPerTrade = &v
	case keyInterval:
		v, err := strconv.Atoi(text)
		if err != nil || v < 5 || v > 3600 {
			_, _ = t.Send(ctx, chatID, "❗️Нужно целое 5..3600")
			return false
		}
		patch.CycleInterval = &v
	case keyPolicy:
		v := strings.ToLower(text)
		patch.ZonePolicy = &v
	default:
		return true
	}

	cfg, warnings, err := t.bots.UpdateConfig(ctx, chatID, t.tier(chatID), patch)
	if err != nil {
		_, _ = t.Send(ctx, chatID, "❌ Не сохранено: "+errText(err))
		return true
	}

	out := "✅ Сохранено\n\n" + formatConfig(cfg)
	if len(warnings) > 0 {
		out += "\n\n⚠️ " + strings.Join(warnings, "\n⚠️ ")
	}
	if report, err := t.bots.Status(ctx, chatID); err == nil && report.IsRunning {
		out += "\n\nБот уже запущен: новые настройки применятся после /stop и /run"
	}
	_, _ = t.Send(ctx, chatID, out)
	return true
}
