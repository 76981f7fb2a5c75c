package repository

import (
	"context"
	"errors"
)

// ErrNoChanges возвращается функцией из Store.Update, если сохранять нечего
var ErrNoChanges = errors.New("no changes")

// Documents - хранилище целых JSON-документов по имени.
// Отсутствие документа не ошибка: Read возвращает nil, nil.
type Documents interface {
	Read(ctx context.Context, name string) ([]byte, error)
	Write(ctx context.Context, name string, data []byte) error
}
