// Package security шифрует секреты пользователей (ключи биржи) перед записью на диск.
package security

import (
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"
)

// DecryptionFailed возвращается Decrypt вместо открытого текста, если шифртекст
// не удалось расшифровать текущим ключом. Вызывающий код обязан проверять это значение.
const DecryptionFailed = "__DECRYPTION_FAILED__"

// KeySize - длина ключа в байтах (64 hex-символа в ENCRYPTION_KEY).
const KeySize = chacha20poly1305.KeySize

const tokenVersion byte = 1

var (
	errMalformedToken  = errors.New("malformed ciphertext")
	errUnknownVersion  = errors.New("unknown ciphertext version")
	errInvalidKeyInput = errors.New("encryption key must be 64 hex characters")
)

// Cipher шифрует строки ключом процесса (XChaCha20-Poly1305).
type Cipher struct {
	aead cipher.AEAD
}

// NewCipher создает шифр из hex-ключа. Если ключ пустой или некорректный,
// генерируется случайный ключ на время жизни процесса; второй результат
// сообщает об этом, чтобы вызывающий код мог записать предупреждение.
func NewCipher(hexKey string) (*Cipher, bool) {
	key, err := ParseKey(hexKey)
	generated := false
	if err != nil {
		key = make([]byte, KeySize)
		if _, err := rand.Read(key); err != nil {
			panic(fmt.Sprintf("security: crypto/rand unavailable: %v", err))
		}
		generated = true
	}

	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		// длина ключа проверена выше
		panic(fmt.Sprintf("security: %v", err))
	}
	return &Cipher{aead: aead}, generated
}

// ParseKey декодирует hex-ключ и проверяет его длину.
func ParseKey(hexKey string) ([]byte, error) {
	if hexKey == "" {
		return nil, errInvalidKeyInput
	}
	key, err := hex.DecodeString(hexKey)
	if err != nil || len(key) != KeySize {
		return nil, errInvalidKeyInput
	}
	return key, nil
}

// GenerateKeyHex возвращает новый случайный ключ в виде hex-строки.
func GenerateKeyHex() (string, error) {
	key := make([]byte, KeySize)
	if _, err := rand.Read(key); err != nil {
		return "", fmt.Errorf("failed to generate key: %w", err)
	}
	return hex.EncodeToString(key), nil
}

// Encrypt шифрует строку. Пустая строка остается пустой.
func (c *Cipher) Encrypt(plaintext string) (string, error) {
	if plaintext == "" {
		return "", nil
	}

	nonce := make([]byte, c.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}

	token := append([]byte{tokenVersion}, nonce...)
	token = c.aead.Seal(token, nonce, []byte(plaintext), []byte{tokenVersion})
	return base64.RawURLEncoding.EncodeToString(token), nil
}

// Decrypt расшифровывает строку, полученную из Encrypt. Пустая строка
// остается пустой; при любой ошибке возвращается DecryptionFailed.
func (c *Cipher) Decrypt(ciphertext string) string {
	if ciphertext == "" {
		return ""
	}
	plaintext, err := c.open(ciphertext)
	if err != nil {
		return DecryptionFailed
	}
	return plaintext
}

func (c *Cipher) open(ciphertext string) (string, error) {
	if ciphertext == DecryptionFailed {
		return "", errMalformedToken
	}

	token, err := base64.RawURLEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", errMalformedToken
	}
	if len(token) < 1+c.aead.NonceSize()+c.aead.Overhead() {
		return "", errMalformedToken
	}
	if token[0] != tokenVersion {
		return "", errUnknownVersion
	}

	nonce := token[1 : 1+c.aead.NonceSize()]
	sealed := token[1+c.aead.NonceSize():]
	plaintext, err := c.aead.Open(nil, nonce, sealed, token[:1])
	if err != nil {
		return "", fmt.Errorf("failed to decrypt: %w", err)
	}
	return string(plaintext), nil
}
