package service

import (
	"context"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"deriv_bot/internal/models"
	"deriv_bot/pkg/logger"
)

const (
	btnRun      = "▶️ Запустить бота"
	btnStop     = "⏹ Остановить бота"
	btnSettings = "⚙️ Настройки"
	btnStatus   = "📊 Статус"

	recentTrades = 10
)

func (t *Telegram) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	// 1) Обычные сообщения
	if msg := update.Message; msg != nil && msg.Chat != nil {
		if msg.IsCommand() {
			t.handleCommand(ctx, msg)
			return
		}
		t.handleTextMessage(ctx, msg)
		return
	}

	// 2) Inline-кнопки
	if cb := update.CallbackQuery; cb != nil {
		if cb.Message == nil || cb.Message.Chat == nil {
			return
		}
		t.handleCallback(ctx, cb.Message.Chat.ID, cb)
	}
}

func (t *Telegram) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	args := strings.TrimSpace(msg.CommandArguments())
	t.clearAwait(chatID)

	switch msg.Command() {
	case "start", "help":
		if err := t.handleStart(ctx, chatID); err != nil {
			logger.Error("handleStart error: %v", err)
		}
	case "run":
		t.handleRun(ctx, chatID, parseSymbols(args))
	case "stop":
		t.handleStop(ctx, chatID)
	case "status":
		t.handleStatus(ctx, chatID)
	case "config":
		t.handleSettingsMenu(ctx, chatID)
	case "symbols":
		if args == "" {
			t.handleListSymbols(ctx, chatID)
			return
		}
		t.applyValue(ctx, chatID, keySymbols, args)
	case "amount":
		t.applyValue(ctx, chatID, keyAmount, args)
	case "policy":
		t.applyValue(ctx, chatID, keyPolicy, args)
	case "force":
		t.handleForce(ctx, chatID, args)
	case "trades":
		t.handleTrades(ctx, chatID)
	default:
		_, _ = t.Send(ctx, chatID, "Неизвестная команда. /help — список команд")
	}
}

func (t *Telegram) handleStart(ctx context.Context, chatID int64) error {
	replyKb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnRun),
			tgbotapi.NewKeyboardButton(btnStop),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnSettings),
			tgbotapi.NewKeyboardButton(btnStatus),
		),
	)

	msg := tgbotapi.NewMessage(chatID, helpText(t.tier(chatID)))
	msg.ReplyMarkup = replyKb

	_, err := t.SendMessage(ctx, msg)
	return err
}

func (t *Telegram) handleTextMessage(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	text := strings.TrimSpace(msg.Text)

	// если ждём ввод значения
	if key, ok := t.peekAwait(chatID); ok {
		if strings.EqualFold(text, "отмена") {
			t.clearAwait(chatID)
			t.handleSettingsMenu(ctx, chatID)
			return
		}
		t.handleAwaitValue(ctx, chatID, text, key)
		return
	}

	switch text {
	case btnRun:
		t.handleRun(ctx, chatID, nil)
	case btnStop:
		t.handleStop(ctx, chatID)
	case btnSettings:
		t.handleSettingsMenu(ctx, chatID)
	case btnStatus:
		t.handleStatus(ctx, chatID)
	}
}

func (t *Telegram) handleRun(ctx context.Context, chatID int64, extra []string) {
	report, err := t.bots.Start(ctx, chatID, t.tier(chatID), extra...)
	if err != nil {
		_, _ = t.Send(ctx, chatID, "❌ Не удалось запустить бота: "+errText(err))
		return
	}
	_, _ = t.Send(ctx, chatID, "✅ Бот запущен\n\n"+formatConfig(report.Config))
}

func (t *Telegram) handleStop(ctx context.Context, chatID int64) {
	if err := t.bots.Stop(ctx, chatID); err != nil {
		_, _ = t.Send(ctx, chatID, "⚠️ "+errText(err))
		return
	}
	_, _ = t.Send(ctx, chatID, "🛑 Бот остановлен")
}

func (t *Telegram) handleStatus(ctx context.Context, chatID int64) {
	report, err := t.bots.Status(ctx, chatID)
	if err != nil {
		_, _ = t.Send(ctx, chatID, "⚠️ Статус недоступен: "+errText(err))
		return
	}
	_, _ = t.Send(ctx, chatID, formatReport(report))
}

func (t *Telegram) handleListSymbols(ctx context.Context, chatID int64) {
	if t.symbols == nil {
		_, _ = t.Send(ctx, chatID, "Список символов пока не загружен")
		return
	}
	_, _ = t.Send(ctx, chatID, formatSymbols(t.symbols.Open()))
}

func (t *Telegram) handleForce(ctx context.Context, chatID int64, args string) {
	o, err := parseForce(args)
	if err != nil {
		_, _ = t.Send(ctx, chatID, "Формат: /force R_100 CALL 5 [длительность в минутах]")
		return
	}
	trade, err := t.bots.ForceTrade(ctx, chatID, t.tier(chatID), o)
	if err != nil {
		_, _ = t.Send(ctx, chatID, "❌ Сделка не прошла: "+errText(err))
		return
	}
	_, _ = t.Send(ctx, chatID, formatTrade(trade))
}

func (t *Telegram) handleTrades(ctx context.Context, chatID int64) {
	if t.history == nil {
		return
	}
	trades, err := t.history.Trades(ctx, chatID, recentTrades)
	if err != nil {
		logger.Error("telegram: trades for %d: %v", chatID, err)
		_, _ = t.Send(ctx, chatID, "⚠️ История недоступна")
		return
	}
	_, _ = t.Send(ctx, chatID, formatTrades(trades))
}

func (t *Telegram) handleCallback(ctx context.Context, chatID int64, cb *tgbotapi.CallbackQuery) {
	// отвечаем ТГ, чтобы убрать "часики" на кнопке
	_, _ = t.bot.Request(tgbotapi.NewCallback(cb.ID, ""))

	key, ok := strings.CutPrefix(cb.Data, "set:")
	if !ok {
		return
	}
	switch key {
	case keySymbols, keyAmount, keyInterval, keyPolicy:
		t.askValue(ctx, chatID, key)
	}
}

func helpText(tier models.Tier) string {
	return "Привет! Я торгую зонами спроса/предложения на Deriv.\n\n" +
		"/run [символы] — запустить бота\n" +
		"/stop — остановить\n" +
		"/status — статус и статистика\n" +
		"/config — настройки\n" +
		"/symbols R_100,R_50 — символы (без аргументов — список открытых)\n" +
		"/amount 10 — сумма сделки\n" +
		"/policy breakout|inverted — разметка зон\n" +
		"/force R_100 CALL 5 — разовая сделка\n" +
		"/trades — последние сделки\n\n" +
		"Тариф: " + string(tier)
}
