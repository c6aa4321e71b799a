package service

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"deriv_bot/internal/models"
	"deriv_bot/internal/runner"
)

// parseSymbols: "R_100, r_50 1HZ100V" -> [R_100 R_50 1HZ100V]
func parseSymbols(s string) []string {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ';' || r == ' ' || r == '\n' || r == '\t'
	})
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if f = strings.ToUpper(strings.TrimSpace(f)); f != "" {
			out = append(out, f)
		}
	}
	return out
}

func parseAmount(s string) (decimal.Decimal, error) {
	v, err := decimal.NewFromString(strings.ReplaceAll(strings.TrimSpace(s), ",", "."))
	if err != nil {
		return decimal.Zero, err
	}
	if !v.IsPositive() {
		return decimal.Zero, fmt.Errorf("amount must be positive")
	}
	return v.Round(2), nil
}

// parseForce: "R_100 CALL 5 [минуты]"
func parseForce(args string) (runner.ForceOrder, error) {
	parts := strings.Fields(args)
	if len(parts) < 3 || len(parts) > 4 {
		return runner.ForceOrder{}, fmt.Errorf("want 3 or 4 arguments, got %d", len(parts))
	}
	amount, err := parseAmount(parts[2])
	if err != nil {
		return runner.ForceOrder{}, err
	}
	o := runner.ForceOrder{
		Symbol:       parts[0],
		ContractType: models.ContractType(strings.ToUpper(parts[1])),
		Amount:       amount,
	}
	if len(parts) == 4 {
		if o.Duration, err = strconv.Atoi(parts[3]); err != nil || o.Duration <= 0 {
			return runner.ForceOrder{}, fmt.Errorf("bad duration %q", parts[3])
		}
		o.DurationUnit = "m"
	}
	return o, nil
}

// errText — короткое описание для чата.
func errText(err error) string {
	switch {
	case errors.Is(err, models.ErrAlreadyRunning):
		return "бот уже запущен"
	case errors.Is(err, models.ErrNotRunning):
		return "бот не запущен"
	case errors.Is(err, models.ErrShuttingDown):
		return "сервис перезапускается, попробуйте позже"
	case errors.Is(err, models.ErrTierLimitExceeded):
		return "сумма выше лимита тарифа"
	case errors.Is(err, models.ErrInvalidConfig):
		return "неверные настройки (" + err.Error() + ")"
	case errors.Is(err, models.ErrTimeout):
		return "площадка не ответила вовремя"
	case errors.Is(err, models.ErrConnectionLost):
		return "нет соединения с площадкой"
	case errors.Is(err, models.ErrRemoteRejected):
		return "площадка отклонила запрос (" + err.Error() + ")"
	case errors.Is(err, models.ErrPersistence):
		return "ошибка хранилища, попробуй позже"
	}
	return err.Error()
}
