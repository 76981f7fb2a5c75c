package exchange

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/ivanoskov/kopilka_bot/internal/security"
)

// ErrInvalidCredentials - ключи пустые или не расшифровались. Запрос на биржу
// в этом случае не отправляется.
var ErrInvalidCredentials = errors.New("exchange credentials are missing or invalid")

// DefaultRecvWindow - окно приема запроса биржей, мс
const DefaultRecvWindow = "10000"

const (
	headerAPIKey     = "X-BAPI-API-KEY"
	headerTimestamp  = "X-BAPI-TIMESTAMP"
	headerSign       = "X-BAPI-SIGN"
	headerRecvWindow = "X-BAPI-RECV-WINDOW"
	headerSignType   = "X-BAPI-SIGN-TYPE"
)

// Credentials - расшифрованные ключи пользователя
type Credentials struct {
	APIKey    string
	APISecret string
}

// Validate отклоняет пустые ключи и ключи-сентинелы DecryptionFailed
func (c Credentials) Validate() error {
	for _, v := range []string{c.APIKey, c.APISecret} {
		if v == "" || v == security.DecryptionFailed {
			return ErrInvalidCredentials
		}
	}
	return nil
}

// CanonicalString собирает строку для подписи:
// timestamp + apiKey + recvWindow + (query для GET | сжатый JSON body для POST).
// Query кодируется url.Values.Encode, то есть с сортировкой по ключу.
func CanonicalString(method, timestamp, apiKey, recvWindow string, query url.Values, body []byte) (string, error) {
	payload := ""
	switch method {
	case http.MethodGet, http.MethodDelete:
		payload = query.Encode()
	default:
		if len(body) > 0 {
			var compact bytes.Buffer
			if err := json.Compact(&compact, body); err != nil {
				return "", fmt.Errorf("invalid request body: %w", err)
			}
			payload = compact.String()
		}
	}
	return timestamp + apiKey + recvWindow + payload, nil
}

// Sign возвращает hex HMAC-SHA256 канонической строки с секретом пользователя
func Sign(creds Credentials, method, timestamp, recvWindow string, query url.Values, body []byte) (string, error) {
	if err := creds.Validate(); err != nil {
		return "", err
	}
	canonical, err := CanonicalString(method, timestamp, creds.APIKey, recvWindow, query, body)
	if err != nil {
		return "", err
	}

	mac := hmac.New(sha256.New, []byte(creds.APISecret))
	mac.Write([]byte(canonical))
	return hex.EncodeToString(mac.Sum(nil)), nil
}

// Signer подписывает запросы текущим временем
type Signer struct {
	RecvWindow string
	Now        func() time.Time
}

// NewSigner создает подписыватель с окном recvWindow (мс). Пустое окно - DefaultRecvWindow.
func NewSigner(recvWindow string) *Signer {
	if recvWindow == "" {
		recvWindow = DefaultRecvWindow
	}
	return &Signer{RecvWindow: recvWindow, Now: time.Now}
}

// Headers возвращает заголовки аутентифицированного запроса.
// Метка времени берется непосредственно перед подписью.
func (s *Signer) Headers(creds Credentials, method string, query url.Values, body []byte) (http.Header, error) {
	timestamp := strconv.FormatInt(s.Now().UnixMilli(), 10)
	signature, err := Sign(creds, method, timestamp, s.RecvWindow, query, body)
	if err != nil {
		return nil, err
	}

	h := make(http.Header)
	h.Set(headerAPIKey, creds.APIKey)
	h.Set(headerTimestamp, timestamp)
	h.Set(headerSign, signature)
	h.Set(headerRecvWindow, s.RecvWindow)
	h.Set(headerSignType, "2")
	h.Set("Content-Type", "application/json")
	return h, nil
}
