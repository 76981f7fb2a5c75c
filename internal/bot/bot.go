package bot

import (
	"context"
	"encoding/json"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"github.com/ivanoskov/kopilka_bot/internal/service"
)

// Assistant - обработчик событий, не зависящий от Telegram
type Assistant interface {
	Start(ctx context.Context, userID int64) []service.Reply
	Cancel(ctx context.Context, userID int64) []service.Reply
	HandleText(ctx context.Context, userID int64, text string) []service.Reply
	HandleCallback(ctx context.Context, userID int64, data string) []service.Reply
}

type Bot struct {
	api       *tgbotapi.BotAPI
	assistant Assistant
	logger    zerolog.Logger
}

func NewBot(token string, assistant Assistant, logger zerolog.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("connect to telegram: %w", err)
	}
	return NewBotWithAPI(api, assistant, logger), nil
}

// NewBotWithAPI оборачивает уже созданный клиент Bot API
func NewBotWithAPI(api *tgbotapi.BotAPI, assistant Assistant, logger zerolog.Logger) *Bot {
	return &Bot{
		api:       api,
		assistant: assistant,
		logger:    logger.With().Str("component", "bot").Str("username", api.Self.UserName).Logger(),
	}
}

// Start запускает бота в режиме long polling до отмены ctx
func (b *Bot) Start(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)
	b.logger.Info().Msg("Long polling started")

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			b.logger.Info().Msg("Long polling stopped")
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			b.handleUpdate(ctx, update)
		}
	}
}

// HandleWebhook - точка входа для обработки входящих webhook-обновлений
func (b *Bot) HandleWebhook(ctx context.Context, body []byte) error {
	var update tgbotapi.Update
	if err := json.Unmarshal(body, &update); err != nil {
		return fmt.Errorf("decode update: %w", err)
	}

	b.handleUpdate(ctx, update)
	return nil
}

// Notify отправляет сообщение в личный чат пользователя
func (b *Bot) Notify(_ context.Context, userID int64, text string) error {
	if _, err := b.api.Send(tgbotapi.NewMessage(userID, text)); err != nil {
		return fmt.Errorf("send notification: %w", err)
	}
	return nil
}
