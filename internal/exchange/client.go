// Package exchange - клиент Bybit v5 REST: подпись запросов, баланс и позиции.
package exchange

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dgraph-io/ristretto"
	"github.com/rs/zerolog"
)

// DefaultBaseURL - основной адрес API Bybit
const DefaultBaseURL = "https://api.bybit.com"

const (
	walletBalancePath = "/v5/account/wallet-balance"
	positionListPath  = "/v5/position/list"

	maxErrorBody = 256
)

// Client выполняет подписанные GET-запросы к бирже и ненадолго кэширует ответы,
// чтобы повторные нажатия кнопки не упирались в лимиты API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	signer     *Signer
	cache      *ristretto.Cache
	cacheTTL   time.Duration
	logger     zerolog.Logger
}

// NewClient создает клиента. cacheTTL <= 0 отключает кэш.
func NewClient(baseURL string, signer *Signer, cacheTTL time.Duration, logger zerolog.Logger) (*Client, error) {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if signer == nil {
		signer = NewSigner(DefaultRecvWindow)
	}

	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 10 * time.Second},
		signer:     signer,
		cacheTTL:   cacheTTL,
		logger:     logger.With().Str("component", "exchange").Logger(),
	}

	if cacheTTL > 0 {
		cache, err := ristretto.NewCache(&ristretto.Config{
			NumCounters: 10_000,
			MaxCost:     4 << 20,
			BufferItems: 64,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create response cache: %w", err)
		}
		c.cache = cache
	}
	return c, nil
}

// Close освобождает кэш
func (c *Client) Close() {
	if c.cache != nil {
		c.cache.Close()
	}
}

// WalletBalance возвращает баланс единого торгового аккаунта
func (c *Client) WalletBalance(ctx context.Context, creds Credentials) (*WalletBalance, error) {
	query := url.Values{}
	query.Set("accountType", "UNIFIED")

	var result walletBalanceResult
	if err := c.get(ctx, creds, walletBalancePath, query, &result); err != nil {
		return nil, err
	}
	if len(result.List) == 0 {
		return &WalletBalance{AccountType: "UNIFIED"}, nil
	}
	return &result.List[0], nil
}

// Positions возвращает открытые линейные позиции с ненулевым размером
func (c *Client) Positions(ctx context.Context, creds Credentials) ([]Position, error) {
	query := url.Values{}
	query.Set("category", "linear")
	query.Set("settleCoin", "USDT")

	var result positionListResult
	if err := c.get(ctx, creds, positionListPath, query, &result); err != nil {
		return nil, err
	}

	positions := make([]Position, 0, len(result.List))
	for _, p := range result.List {
		if p.Size.IsZero() {
			continue
		}
		positions = append(positions, p)
	}
	return positions, nil
}

func (c *Client) get(ctx context.Context, creds Credentials, path string, query url.Values, out interface{}) error {
	if err := creds.Validate(); err != nil {
		return err
	}

	cacheKey := creds.APIKey + "|" + path + "?" + query.Encode()
	if c.cache != nil {
		if cached, ok := c.cache.Get(cacheKey); ok {
			return decodeResult(cached.([]byte), out)
		}
	}

	headers, err := c.signer.Headers(creds, http.MethodGet, query, nil)
	if err != nil {
		return err
	}

	endpoint := c.baseURL + path
	if encoded := query.Encode(); encoded != "" {
		endpoint += "?" + encoded
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("error creating request: %w", err)
	}
	req.Header = headers

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("error calling %s: %w", path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("error reading response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		text := string(body)
		if len(text) > maxErrorBody {
			text = text[:maxErrorBody]
		}
		return &StatusError{StatusCode: resp.StatusCode, Body: text}
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return fmt.Errorf("error parsing response: %w", err)
	}
	if env.RetCode != 0 {
		c.logger.Warn().Str("path", path).Int("ret_code", env.RetCode).Str("ret_msg", env.RetMsg).Msg("Exchange rejected request")
		return &APIError{Code: env.RetCode, Message: env.RetMsg}
	}

	if c.cache != nil {
		c.cache.SetWithTTL(cacheKey, []byte(env.Result), int64(len(env.Result)), c.cacheTTL)
		c.cache.Wait()
	}
	return decodeResult(env.Result, out)
}

func decodeResult(raw []byte, out interface{}) error {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("error parsing result: %w", err)
	}
	return nil
}
