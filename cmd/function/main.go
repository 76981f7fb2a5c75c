package main

import (
	"context"
	"os"

	"github.com/ivanoskov/kopilka_bot/internal/app"
	"github.com/ivanoskov/kopilka_bot/internal/config"
	"github.com/ivanoskov/kopilka_bot/internal/logging"
)

// Request структура входящего запроса от API Gateway
type Request struct {
	Body string `json:"body"`
}

// Response структура ответа для API Gateway
type Response struct {
	StatusCode int               `json:"statusCode"`
	Body       string            `json:"body"`
	Headers    map[string]string `json:"headers,omitempty"`
}

// Handler обрабатывает одно webhook-обновление. Напоминания в этом режиме
// не рассылаются: для них нужен постоянно работающий cmd/bot.
func Handler(ctx context.Context, request Request) (*Response, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return errorResponse(err)
	}
	if err := cfg.RequireToken(); err != nil {
		return errorResponse(err)
	}

	// файл логов в функции не ведется
	logger, _, err := logging.New(logging.Options{Level: cfg.LogLevel, Console: os.Stdout})
	if err != nil {
		return errorResponse(err)
	}

	a, err := app.New(cfg, logger)
	if err != nil {
		return errorResponse(err)
	}
	defer a.Close()

	if err := a.Bot.HandleWebhook(ctx, []byte(request.Body)); err != nil {
		return errorResponse(err)
	}

	return &Response{
		StatusCode: 200,
		Body:       "",
		Headers: map[string]string{
			"Content-Type": "application/json",
		},
	}, nil
}

func errorResponse(err error) (*Response, error) {
	return &Response{
		StatusCode: 500,
		Body:       err.Error(),
		Headers: map[string]string{
			"Content-Type": "application/json",
		},
	}, nil
}

func main() {
	// Точка входа для локального тестирования
}
