// storage определяет контракт хранилища пар токенов по аккаунтам.
package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/pribylovaa/go-stork-validator/internal/models"
)

var (
	// ErrCorruptState — состояние аккаунта отсутствует или не разбирается.
	// Фатально для аккаунта на старте.
	ErrCorruptState = errors.New("corrupt token state")
	// ErrInvalidToken — access-токен отсутствует или короче models.MinAccessTokenLen.
	// Load возвращает вместе с ошибкой разобранную пару, чтобы её можно было обновить.
	ErrInvalidToken = errors.New("invalid access token")
	// ErrPersistence — не удалось записать пару. Не фатально: пара в памяти остаётся рабочей.
	ErrPersistence = errors.New("token persistence failed")
)

// TokenStore — долговременное хранилище пар токенов.
//
//go:generate mockgen -destination=../../mocks/mock_token_store.go -package=mocks github.com/pribylovaa/go-stork-validator/internal/storage TokenStore
type TokenStore interface {
	// Load читает пару аккаунта.
	// ErrCorruptState — пары нет или она не разбирается;
	// ErrInvalidToken — пара разобрана, но access-токен непригоден (пара возвращается).
	Load(ctx context.Context, accountID string) (models.TokenPair, error)
	// Save целиком и атомарно заменяет пару аккаунта. Ошибки оборачивают ErrPersistence.
	Save(ctx context.Context, accountID string, pair models.TokenPair) error
	// Close освобождает ресурсы хранилища.
	Close() error
}

// CheckPair — общая для всех реализаций проверка формы прочитанной пары.
func CheckPair(op string, pair models.TokenPair) (models.TokenPair, error) {
	if !pair.Usable() {
		return pair, fmt.Errorf("%s: access token length %d < %d: %w",
			op, len(pair.AccessToken), models.MinAccessTokenLen, ErrInvalidToken)
	}

	return pair, nil
}
