package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"

	"github.com/ivanoskov/kopilka_bot/internal/config"
	"github.com/ivanoskov/kopilka_bot/internal/logging"
	"github.com/ivanoskov/kopilka_bot/internal/security"
)

type checkconfigCmd struct{}

func (*checkconfigCmd) Name() string     { return "checkconfig" }
func (*checkconfigCmd) Synopsis() string { return "validate the environment without printing secrets" }
func (*checkconfigCmd) Usage() string {
	return `keytool checkconfig

  Loads .env and the environment the same way the bot does and reports
  which settings are present and valid.
`
}

func (*checkconfigCmd) SetFlags(*flag.FlagSet) {}

func (*checkconfigCmd) Execute(_ context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, "configuration error:", err)
		return subcommands.ExitFailure
	}

	problems := checkConfig(cfg, func(name, status string) {
		fmt.Printf("%-20s %s\n", name, status)
	})
	if problems > 0 {
		fmt.Fprintf(os.Stderr, "%d problem(s) found\n", problems)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

// checkConfig сообщает состояние каждой настройки и возвращает число проблем
func checkConfig(cfg *config.Config, report func(name, status string)) int {
	problems := 0
	fail := func(name, status string) {
		problems++
		report(name, "ERROR: "+status)
	}

	if err := cfg.RequireToken(); err != nil {
		fail("TELEGRAM_TOKEN", "not set")
	} else {
		report("TELEGRAM_TOKEN", "set")
	}

	switch _, err := security.ParseKey(cfg.EncryptionKey); {
	case cfg.EncryptionKey == "":
		fail("ENCRYPTION_KEY", "not set, saved exchange keys would be lost on restart")
	case err != nil:
		fail("ENCRYPTION_KEY", "must be 64 hex characters")
	default:
		report("ENCRYPTION_KEY", "valid")
	}

	report("STORAGE_BACKEND", cfg.StorageBackend)
	if cfg.StorageBackend == config.StorageSupabase {
		report("SUPABASE_URL", cfg.SupabaseURL)
	} else {
		report("USER_DATA_FILE", cfg.UserDataFile)
		report("USER_STATES_FILE", cfg.UserStatesFile)
	}

	report("BYBIT_API_URL", cfg.BybitAPIURL)
	report("BYBIT_RECV_WINDOW", cfg.BybitRecvWindow)
	report("EXCHANGE_CACHE_TTL", cfg.ExchangeCacheTTL.String())
	report("REMINDER_INTERVAL", cfg.ReminderInterval.String())
	report("TIMEZONE", cfg.Location.String())
	report("CURRENCY", cfg.Currency)

	if _, err := logging.ParseLevel(cfg.LogLevel); err != nil {
		fail("LOG_LEVEL", err.Error())
	} else {
		report("LOG_LEVEL", cfg.LogLevel)
	}
	return problems
}
