package exchange

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"
)

// Amount - числовое поле ответа биржи. Биржа присылает числа строками,
// пустая строка означает ноль.
type Amount struct {
	decimal.Decimal
}

func (a *Amount) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		a.Decimal = decimal.Zero
		return nil
	}

	raw := string(data)
	if len(data) > 0 && data[0] == '"' {
		s, err := strconv.Unquote(raw)
		if err != nil {
			return fmt.Errorf("invalid amount %s: %w", raw, err)
		}
		raw = s
	}
	if raw == "" {
		a.Decimal = decimal.Zero
		return nil
	}

	d, err := decimal.NewFromString(raw)
	if err != nil {
		return fmt.Errorf("invalid amount %q: %w", raw, err)
	}
	a.Decimal = d
	return nil
}

type envelope struct {
	RetCode int             `json:"retCode"`
	RetMsg  string          `json:"retMsg"`
	Result  json.RawMessage `json:"result"`
	Time    int64           `json:"time"`
}

// CoinBalance - баланс одной монеты в едином торговом аккаунте
type CoinBalance struct {
	Coin          string `json:"coin"`
	Equity        Amount `json:"equity"`
	WalletBalance Amount `json:"walletBalance"`
	USDValue      Amount `json:"usdValue"`
	UnrealisedPnl Amount `json:"unrealisedPnl"`
}

// WalletBalance - сводка по аккаунту
type WalletBalance struct {
	AccountType           string        `json:"accountType"`
	TotalEquity           Amount        `json:"totalEquity"`
	TotalWalletBalance    Amount        `json:"totalWalletBalance"`
	TotalAvailableBalance Amount        `json:"totalAvailableBalance"`
	TotalPerpUPL          Amount        `json:"totalPerpUPL"`
	Coins                 []CoinBalance `json:"coin"`
}

// Position - открытая позиция по деривативам
type Position struct {
	Symbol        string `json:"symbol"`
	Side          string `json:"side"`
	Size          Amount `json:"size"`
	AvgPrice      Amount `json:"avgPrice"`
	MarkPrice     Amount `json:"markPrice"`
	PositionValue Amount `json:"positionValue"`
	UnrealisedPnl Amount `json:"unrealisedPnl"`
	Leverage      Amount `json:"leverage"`
}

type walletBalanceResult struct {
	List []WalletBalance `json:"list"`
}

type positionListResult struct {
	Category string     `json:"category"`
	List     []Position `json:"list"`
}

// APIError - ответ биржи с ненулевым retCode
type APIError struct {
	Code    int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("exchange error %d: %s", e.Code, e.Message)
}

// StatusError - ответ с HTTP-статусом вне 2xx
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("exchange HTTP %d: %s", e.StatusCode, e.Body)
}
