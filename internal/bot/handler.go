package bot

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/ivanoskov/kopilka_bot/internal/service"
)

func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	// паника в одном обновлении не должна останавливать long polling
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error().Interface("panic", r).Int("update_id", update.UpdateID).Msg("Recovered from panic while handling update")
		}
	}()

	switch {
	case update.CallbackQuery != nil:
		b.handleCallback(ctx, update.CallbackQuery)
	case update.Message != nil && update.Message.From != nil:
		if update.Message.IsCommand() {
			b.handleCommand(ctx, update.Message)
			return
		}
		b.handleMessage(ctx, update.Message)
	}
}

func (b *Bot) handleCommand(ctx context.Context, message *tgbotapi.Message) {
	userID := message.From.ID
	b.logger.Debug().Int64("user_id", userID).Str("command", message.Command()).Msg("Command received")

	var replies []service.Reply
	switch message.Command() {
	case "start":
		replies = b.assistant.Start(ctx, userID)
	case "cancel":
		replies = b.assistant.Cancel(ctx, userID)
	case "help":
		replies = b.assistant.HandleText(ctx, userID, service.LabelHelp)
	default:
		b.sendErrorMessage(message.Chat.ID, "Неизвестная команда. Список команд: /help")
		return
	}
	b.render(message.Chat.ID, message.MessageID, replies)
}

func (b *Bot) handleMessage(ctx context.Context, message *tgbotapi.Message) {
	replies := b.assistant.HandleText(ctx, message.From.ID, message.Text)
	b.render(message.Chat.ID, message.MessageID, replies)
}

func (b *Bot) handleCallback(ctx context.Context, callback *tgbotapi.CallbackQuery) {
	userID := callback.From.ID
	b.logger.Debug().Int64("user_id", userID).Str("callback", callback.Data).Msg("Callback received")

	replies := b.assistant.HandleCallback(ctx, userID, callback.Data)

	// Отвечаем на callback, чтобы убрать loading indicator
	if _, err := b.api.Request(tgbotapi.NewCallback(callback.ID, "")); err != nil {
		b.logger.Warn().Err(err).Int64("user_id", userID).Msg("Failed to answer callback")
	}

	chatID := userID
	if callback.Message != nil && callback.Message.Chat != nil {
		chatID = callback.Message.Chat.ID
	}
	b.render(chatID, 0, replies)
}

// render отправляет ответы по порядку. inputID - сообщение пользователя,
// которое удаляется, если этого просит хотя бы один ответ.
func (b *Bot) render(chatID int64, inputID int, replies []service.Reply) {
	deleted := false
	for _, r := range replies {
		if r.DeleteInput && inputID != 0 && !deleted {
			deleted = true
			if _, err := b.api.Request(tgbotapi.NewDeleteMessage(chatID, inputID)); err != nil {
				b.logger.Warn().Err(err).Int64("chat_id", chatID).Msg("Failed to delete message with credentials")
			}
		}

		if _, err := b.api.Send(b.message(chatID, r)); err != nil {
			b.logger.Error().Err(err).Int64("chat_id", chatID).Msg("Failed to send reply")
		}
	}
}

func (b *Bot) message(chatID int64, r service.Reply) tgbotapi.Chattable {
	var markup interface{}
	switch {
	case len(r.Buttons) > 0:
		markup = inlineKeyboard(r.Buttons)
	case r.MainMenu:
		markup = mainKeyboard()
	}

	if r.Photo != nil {
		photo := tgbotapi.NewPhoto(chatID, tgbotapi.FileBytes{Name: "chart.png", Bytes: r.Photo})
		photo.Caption = r.Text
		photo.ReplyMarkup = markup
		return photo
	}

	msg := tgbotapi.NewMessage(chatID, r.Text)
	msg.ReplyMarkup = markup
	return msg
}

func (b *Bot) sendErrorMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, "❌ "+text)
	if _, err := b.api.Send(msg); err != nil {
		b.logger.Error().Err(err).Int64("chat_id", chatID).Msg("Failed to send error message")
	}
}
