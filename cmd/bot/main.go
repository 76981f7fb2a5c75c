package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/ivanoskov/kopilka_bot/internal/app"
	"github.com/ivanoskov/kopilka_bot/internal/config"
	"github.com/ivanoskov/kopilka_bot/internal/logging"
	"github.com/ivanoskov/kopilka_bot/internal/reminders"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal(err)
	}

	logger, closeLog, err := logging.New(logging.Options{Level: cfg.LogLevel, File: cfg.LogFile})
	if err != nil {
		log.Fatal(err)
	}
	defer closeLog()

	if err := cfg.RequireToken(); err != nil {
		logger.Fatal().Err(err).Msg("Invalid configuration")
	}

	a, err := app.New(cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to start")
	}
	defer a.Close()

	scheduler := reminders.NewScheduler(a.Store, a.Bot, cfg.ReminderInterval, cfg.Location, logger)
	if err := scheduler.Start(); err != nil {
		logger.Fatal().Err(err).Msg("Failed to start reminder scheduler")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := a.Bot.Start(ctx); err != nil {
		logger.Error().Err(err).Msg("Bot stopped with error")
	}

	if err := scheduler.Stop(); err != nil {
		logger.Warn().Err(err).Msg("Failed to stop reminder scheduler")
	}
	logger.Info().Msg("Shutdown complete")
}
