package service

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"

	"github.com/ivanoskov/kopilka_bot/internal/model"
)

var (
	errInvalidAmount  = errors.New("invalid amount")
	errAmountNotAbove = errors.New("amount must be positive")
	errAmountTooLarge = errors.New("amount is too large")
)

// maxAmountDigits - разрядов в целой части суммы; больше 1e15 float64 уже теряет копейки
const maxAmountDigits = 15

// maxAmountInput отсекает длинные строки до разбора
const maxAmountInput = 40

// maxGoalNameLen ограничивает имя копилки так, чтобы "goal:<имя>"
// укладывался в 64 байта callback data
const maxGoalNameLen = 48

// parseAmount разбирает сумму вида "1500", "1 500", "99,90". Сумма округляется
// до копеек и должна быть > 0 и меньше 1e15.
func parseAmount(text string) (decimal.Decimal, error) {
	s := strings.TrimSpace(text)
	s = strings.ReplaceAll(s, " ", "")
	s = strings.ReplaceAll(s, "\u00a0", "")
	s = strings.ReplaceAll(s, ",", ".")
	if s == "" || len(s) > maxAmountInput {
		return decimal.Zero, errInvalidAmount
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, errInvalidAmount
	}
	if !d.IsPositive() {
		return decimal.Zero, errAmountNotAbove
	}

	// порядок проверяется до Round: для 1e-999999 округление раздуло бы коэффициент
	intDigits := int64(d.NumDigits()) + int64(d.Exponent())
	if intDigits > maxAmountDigits {
		return decimal.Zero, errAmountTooLarge
	}
	if intDigits < -2 {
		return decimal.Zero, errAmountNotAbove
	}
	d = d.Round(2)
	if !d.IsPositive() {
		return decimal.Zero, errAmountNotAbove
	}
	return d, nil
}

// withinAmountLimit - сумма в копилке тоже не должна выходить за maxAmountDigits
func withinAmountLimit(d decimal.Decimal) bool {
	return d.LessThan(decimal.New(1, maxAmountDigits))
}

func validateGoalName(p *model.UserProfile, name string) string {
	switch {
	case name == "":
		return "Название не может быть пустым. Введите название копилки:"
	case len(name) > maxGoalNameLen:
		return fmt.Sprintf("Слишком длинное название (максимум %d байт). Попробуйте короче:", maxGoalNameLen)
	case strings.ContainsAny(name, "\n\r"):
		return "Название должно быть в одну строку. Попробуйте еще раз:"
	}
	if _, exists := p.Goals[name]; exists {
		return "Копилка с таким названием уже есть. Введите другое название:"
	}
	return ""
}

// formatMoney форматирует сумму в валюте пользователя через go-money
func formatMoney(amount decimal.Decimal, currency string) string {
	cur := money.GetCurrency(currency)
	if cur == nil {
		return amount.StringFixed(2) + " " + currency
	}
	factor := decimal.New(1, int32(cur.Fraction))
	minor := amount.Mul(factor).Round(0).IntPart()
	return money.New(minor, cur.Code).Display()
}

func formatFloat(amount float64, currency string) string {
	return formatMoney(decimal.NewFromFloat(amount), currency)
}

// progressBar рисует шкалу из 10 делений
func progressBar(percent float64) string {
	filled := int(percent / 10)
	if filled > 10 {
		filled = 10
	}
	if filled < 0 {
		filled = 0
	}
	return strings.Repeat("🟩", filled) + strings.Repeat("⬜", 10-filled)
}

func formatGoal(name string, g *model.Goal, currency string) string {
	progress := g.Progress()
	return fmt.Sprintf("🐷 %s\n\nНакоплено: %s из %s\n%s %.1f%%",
		name,
		formatFloat(g.Current, currency),
		formatFloat(g.Target, currency),
		progressBar(progress),
		progress,
	)
}
