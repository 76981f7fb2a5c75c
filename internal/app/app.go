// Package app собирает компоненты бота из конфигурации
package app

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/ivanoskov/kopilka_bot/internal/bot"
	"github.com/ivanoskov/kopilka_bot/internal/charts"
	"github.com/ivanoskov/kopilka_bot/internal/config"
	"github.com/ivanoskov/kopilka_bot/internal/exchange"
	"github.com/ivanoskov/kopilka_bot/internal/repository"
	"github.com/ivanoskov/kopilka_bot/internal/security"
	"github.com/ivanoskov/kopilka_bot/internal/service"
)

type App struct {
	Store     *repository.Store
	Exchange  *exchange.Client
	Assistant *service.Assistant
	Bot       *bot.Bot
}

// New создает хранилище, клиент биржи, сервис и Telegram-бота
func New(cfg *config.Config, logger zerolog.Logger) (*App, error) {
	store, err := NewStore(cfg, logger)
	if err != nil {
		return nil, err
	}

	client, err := exchange.NewClient(cfg.BybitAPIURL, exchange.NewSigner(cfg.BybitRecvWindow), cfg.ExchangeCacheTTL, logger)
	if err != nil {
		return nil, fmt.Errorf("create exchange client: %w", err)
	}

	assistant := service.NewAssistant(store, client, service.Options{
		Currency: cfg.Currency,
		Location: cfg.Location,
		Charts:   charts.NewChartGenerator().GenerateGoalProgress,
	}, logger)

	b, err := bot.NewBot(cfg.TelegramToken, assistant, logger)
	if err != nil {
		client.Close()
		return nil, err
	}

	return &App{Store: store, Exchange: client, Assistant: assistant, Bot: b}, nil
}

// NewStore открывает хранилище выбранного бэкенда с ключом шифрования из конфигурации
func NewStore(cfg *config.Config, logger zerolog.Logger) (*repository.Store, error) {
	cipher, generated := security.NewCipher(cfg.EncryptionKey)
	if generated {
		logger.Warn().Msg("ENCRYPTION_KEY is missing or invalid, using a temporary key: saved exchange keys will not survive a restart")
	}

	var docs repository.Documents
	switch cfg.StorageBackend {
	case config.StorageSupabase:
		sb, err := repository.NewSupabaseDocuments(cfg.SupabaseURL, cfg.SupabaseKey)
		if err != nil {
			return nil, fmt.Errorf("connect to supabase: %w", err)
		}
		docs = sb
	default:
		docs = repository.NewFileDocuments()
	}

	logger.Info().Str("backend", cfg.StorageBackend).Str("profiles", cfg.UserDataFile).Str("states", cfg.UserStatesFile).Msg("Storage configured")
	return repository.NewStore(docs, cipher, cfg.UserDataFile, cfg.UserStatesFile, logger), nil
}

func (a *App) Close() {
	a.Exchange.Close()
}
