package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ivanoskov/kopilka_bot/internal/exchange"
	"github.com/ivanoskov/kopilka_bot/internal/model"
	"github.com/ivanoskov/kopilka_bot/internal/security"
)

func (a *Assistant) showCrypto(s *session) {
	p := s.profile
	var buttons [][]Button
	text := "💰 Крипта (Bybit)\n\n"
	if p.ExchangeAPIKey == "" && p.ExchangeAPISecret == "" {
		text += "API-ключи не заданы. Создайте ключ только на чтение и добавьте его."
		buttons = append(buttons, row(button("🔑 Добавить ключи", cbCryptoKeys)))
	} else {
		text += "Ключи сохранены в зашифрованном виде."
		buttons = append(buttons,
			row(button("💼 Баланс", cbCryptoBalance), button("📈 Позиции", cbCryptoPositions)),
			row(button("🔑 Заменить ключи", cbCryptoKeys), button("🗑 Удалить ключи", cbCryptoForget)),
		)
	}
	buttons = append(buttons, backRow(sectionMain))
	s.reply(Reply{Text: text, Buttons: buttons})
}

func (a *Assistant) startCredentials(s *session) {
	s.setState(model.AwaitingCredential{Which: model.CredentialKey})
	s.say("Отправьте API Key. Сообщение с ключом будет удалено из чата.")
}

func (a *Assistant) onCredential(s *session, st model.AwaitingCredential, text string) {
	if text == "" || strings.ContainsAny(text, " \n\t") {
		s.reply(Reply{Text: "Ключ не должен быть пустым или содержать пробелы. Попробуйте еще раз:", DeleteInput: true})
		return
	}

	switch st.Which {
	case model.CredentialKey:
		s.profile.ExchangeAPIKey = text
		s.setState(model.AwaitingCredential{Which: model.CredentialSecret})
		s.reply(Reply{Text: "✅ API Key получен. Теперь отправьте API Secret:", DeleteInput: true})
	case model.CredentialSecret:
		s.profile.ExchangeAPISecret = text
		s.clearState()
		s.reply(Reply{Text: "✅ Ключи сохранены и зашифрованы.", DeleteInput: true})
		a.showCrypto(s)
	}
}

func (a *Assistant) forgetCredentials(s *session) {
	s.profile.ExchangeAPIKey = ""
	s.profile.ExchangeAPISecret = ""
	s.say("🗑 Ключи удалены.")
	a.showCrypto(s)
}

type exchangeQuery func(userID int64, creds exchange.Credentials) followUp

// cryptoQuery проверяет ключи под блокировкой, а сам запрос к бирже
// откладывает до ее снятия. Нерасшифрованные ключи сбрасываются.
func (a *Assistant) cryptoQuery(s *session, query exchangeQuery) {
	p := s.profile
	if p.ExchangeAPIKey == security.DecryptionFailed || p.ExchangeAPISecret == security.DecryptionFailed {
		a.logger.Warn().Int64("user_id", s.userID).Msg("Resetting undecryptable exchange credentials")
		p.ExchangeAPIKey = ""
		p.ExchangeAPISecret = ""
		s.setState(model.AwaitingCredential{Which: model.CredentialKey})
		s.say("⚠️ Сохраненные ключи не удалось расшифровать, они сброшены. Отправьте API Key заново:")
		return
	}

	creds := exchange.Credentials{APIKey: p.ExchangeAPIKey, APISecret: p.ExchangeAPISecret}
	if err := creds.Validate(); err != nil {
		s.reply(Reply{
			Text:    "🔑 Сначала добавьте API-ключи Bybit.",
			Buttons: [][]Button{row(button("🔑 Добавить ключи", cbCryptoKeys)), backRow(sectionCrypto)},
		})
		return
	}
	if a.exchange == nil {
		s.say("Биржа недоступна.")
		return
	}
	s.later(query(s.userID, creds))
}

func (a *Assistant) balanceFollowUp(userID int64, creds exchange.Credentials) followUp {
	return func(ctx context.Context) []Reply {
		balance, err := a.exchange.WalletBalance(ctx, creds)
		if err != nil {
			return a.exchangeFailure(userID, err)
		}

		var sb strings.Builder
		sb.WriteString("💼 Баланс (Unified)\n\n")
		fmt.Fprintf(&sb, "Капитал: %s\n", formatMoney(balance.TotalEquity.Decimal, "USD"))
		fmt.Fprintf(&sb, "Кошелек: %s\n", formatMoney(balance.TotalWalletBalance.Decimal, "USD"))
		fmt.Fprintf(&sb, "Доступно: %s\n", formatMoney(balance.TotalAvailableBalance.Decimal, "USD"))
		fmt.Fprintf(&sb, "Нереализованный PnL: %s\n", formatMoney(balance.TotalPerpUPL.Decimal, "USD"))

		shown := 0
		for _, c := range balance.Coins {
			if c.WalletBalance.IsZero() {
				continue
			}
			if shown == 0 {
				sb.WriteString("\nМонеты:\n")
			}
			fmt.Fprintf(&sb, "• %s: %s (%s)\n", c.Coin, c.WalletBalance.String(), formatMoney(c.USDValue.Decimal, "USD"))
			shown++
		}
		return []Reply{{Text: strings.TrimRight(sb.String(), "\n"), Buttons: [][]Button{backRow(sectionCrypto)}}}
	}
}

func (a *Assistant) positionsFollowUp(userID int64, creds exchange.Credentials) followUp {
	return func(ctx context.Context) []Reply {
		positions, err := a.exchange.Positions(ctx, creds)
		if err != nil {
			return a.exchangeFailure(userID, err)
		}
		if len(positions) == 0 {
			return []Reply{{Text: "📈 Открытых позиций нет.", Buttons: [][]Button{backRow(sectionCrypto)}}}
		}

		var sb strings.Builder
		sb.WriteString("📈 Открытые позиции\n")
		for _, p := range positions {
			fmt.Fprintf(&sb, "\n%s %s x%s\nРазмер: %s\nВход: %s, марк: %s\nPnL: %s\n",
				p.Symbol, p.Side, p.Leverage.String(),
				p.Size.String(),
				p.AvgPrice.String(), p.MarkPrice.String(),
				formatMoney(p.UnrealisedPnl.Decimal, "USD"),
			)
		}
		return []Reply{{Text: strings.TrimRight(sb.String(), "\n"), Buttons: [][]Button{backRow(sectionCrypto)}}}
	}
}

func (a *Assistant) exchangeFailure(userID int64, err error) []Reply {
	a.logger.Error().Err(err).Int64("user_id", userID).Msg("Exchange request failed")

	var apiErr *exchange.APIError
	var statusErr *exchange.StatusError
	text := "❌ Не удалось связаться с биржей. Попробуйте позже."
	switch {
	case errors.Is(err, exchange.ErrInvalidCredentials):
		text = "❌ Ключи недействительны. Добавьте их заново."
	case errors.As(err, &apiErr):
		text = fmt.Sprintf("❌ Биржа отклонила запрос: %s (код %d)", apiErr.Message, apiErr.Code)
	case errors.As(err, &statusErr):
		text = fmt.Sprintf("❌ Биржа ответила ошибкой HTTP %d.", statusErr.StatusCode)
	}
	return []Reply{{Text: text, Buttons: [][]Button{backRow(sectionCrypto)}}}
}
