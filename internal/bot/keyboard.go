package bot

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/ivanoskov/kopilka_bot/internal/service"
)

// mainKeyboard - постоянная клавиатура разделов. У сообщения может быть
// только одна разметка, поэтому при inline-кнопках она не переотправляется.
func mainKeyboard() tgbotapi.ReplyKeyboardMarkup {
	rows := make([][]tgbotapi.KeyboardButton, 0, len(service.MainMenuLayout))
	for _, labels := range service.MainMenuLayout {
		buttons := make([]tgbotapi.KeyboardButton, 0, len(labels))
		for _, label := range labels {
			buttons = append(buttons, tgbotapi.NewKeyboardButton(label))
		}
		rows = append(rows, tgbotapi.NewKeyboardButtonRow(buttons...))
	}

	keyboard := tgbotapi.NewReplyKeyboard(rows...)
	keyboard.ResizeKeyboard = true
	return keyboard
}

func inlineKeyboard(buttons [][]service.Button) tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(buttons))
	for _, row := range buttons {
		inline := make([]tgbotapi.InlineKeyboardButton, 0, len(row))
		for _, b := range row {
			inline = append(inline, tgbotapi.NewInlineKeyboardButtonData(b.Text, b.Data))
		}
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(inline...))
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}
