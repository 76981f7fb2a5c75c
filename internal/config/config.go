package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Бэкенды хранения данных
const (
	StorageFile     = "file"
	StorageSupabase = "supabase"
)

type Config struct {
	TelegramToken string
	EncryptionKey string

	StorageBackend string
	UserDataFile   string
	UserStatesFile string
	SupabaseURL    string
	SupabaseKey    string

	BybitAPIURL      string
	BybitRecvWindow  string
	ExchangeCacheTTL time.Duration

	ReminderInterval time.Duration
	Timezone         string
	Location         *time.Location
	Currency         string

	LogLevel string
	LogFile  string
}

// LoadConfig читает .env (если он есть) и переменные окружения
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	return FromEnv(os.Getenv)
}

// FromEnv собирает конфигурацию из произвольного источника переменных
func FromEnv(getenv func(string) string) (*Config, error) {
	get := func(key, def string) string {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			return v
		}
		return def
	}

	cfg := &Config{
		TelegramToken:   get("TELEGRAM_TOKEN", ""),
		EncryptionKey:   get("ENCRYPTION_KEY", ""),
		StorageBackend:  strings.ToLower(get("STORAGE_BACKEND", StorageFile)),
		UserDataFile:    get("USER_DATA_FILE", "user_data.json"),
		UserStatesFile:  get("USER_STATES_FILE", "user_states.json"),
		SupabaseURL:     get("SUPABASE_URL", ""),
		SupabaseKey:     get("SUPABASE_KEY", ""),
		BybitAPIURL:     get("BYBIT_API_URL", "https://api.bybit.com"),
		BybitRecvWindow: get("BYBIT_RECV_WINDOW", "10000"),
		Timezone:        get("TIMEZONE", ""),
		Currency:        strings.ToUpper(get("CURRENCY", "RUB")),
		LogLevel:        get("LOG_LEVEL", "info"),
		LogFile:         get("LOG_FILE", ""),
	}

	var err error
	if cfg.ExchangeCacheTTL, err = duration(get("EXCHANGE_CACHE_TTL", "30s")); err != nil {
		return nil, fmt.Errorf("EXCHANGE_CACHE_TTL: %w", err)
	}
	if cfg.ReminderInterval, err = duration(get("REMINDER_INTERVAL", "1m")); err != nil {
		return nil, fmt.Errorf("REMINDER_INTERVAL: %w", err)
	}
	if cfg.ReminderInterval == 0 {
		return nil, fmt.Errorf("REMINDER_INTERVAL must be positive")
	}

	cfg.Location = time.Local
	if cfg.Timezone != "" {
		if cfg.Location, err = time.LoadLocation(cfg.Timezone); err != nil {
			return nil, fmt.Errorf("TIMEZONE: %w", err)
		}
	}

	switch cfg.StorageBackend {
	case StorageFile:
	case StorageSupabase:
		if cfg.SupabaseURL == "" || cfg.SupabaseKey == "" {
			return nil, fmt.Errorf("STORAGE_BACKEND=supabase requires SUPABASE_URL and SUPABASE_KEY")
		}
	default:
		return nil, fmt.Errorf("unknown STORAGE_BACKEND %q", cfg.StorageBackend)
	}

	return cfg, nil
}

func duration(s string) (time.Duration, error) {
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, err
	}
	if d < 0 {
		return 0, fmt.Errorf("negative duration %s", s)
	}
	return d, nil
}

// RequireToken проверяет настройки, без которых бот не запускается
func (c *Config) RequireToken() error {
	if c.TelegramToken == "" {
		return fmt.Errorf("TELEGRAM_TOKEN is not set")
	}
	return nil
}
