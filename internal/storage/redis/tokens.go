// redis реализует storage.TokenStore поверх Redis: одна JSON-строка на аккаунт.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/pribylovaa/go-stork-validator/internal/models"
	"github.com/pribylovaa/go-stork-validator/internal/storage"
	"github.com/redis/go-redis/v9"
)

// DefaultPrefix — префикс ключей, если в конфиге он пустой.
const DefaultPrefix = "stork:tokens:"

type Storage struct {
	rdb    *redis.Client
	prefix string
}

// New создаёт клиент Redis из URL (например, redis://:pass@host:6379/0)
// и проверяет соединение.
func New(ctx context.Context, redisURL, prefix string) (*Storage, error) {
	const op = "storage.redis.New"

	if prefix == "" {
		prefix = DefaultPrefix
	}

	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	rdb := redis.NewClient(opt)

	// Fail-fast на старте.
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &Storage{rdb: rdb, prefix: prefix}, nil
}

func (s *Storage) key(accountID string) string { return s.prefix + accountID }

// Load читает пару аккаунта.
func (s *Storage) Load(ctx context.Context, accountID string) (models.TokenPair, error) {
	const op = "storage.redis.Load"

	raw, err := s.rdb.Get(ctx, s.key(accountID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return models.TokenPair{}, fmt.Errorf("%s: account %q has no tokens: %w", op, accountID, storage.ErrCorruptState)
		}

		return models.TokenPair{}, fmt.Errorf("%s: %v: %w", op, err, storage.ErrCorruptState)
	}

	var pair models.TokenPair
	if err := json.Unmarshal(raw, &pair); err != nil {
		return models.TokenPair{}, fmt.Errorf("%s: parse: %v: %w", op, err, storage.ErrCorruptState)
	}

	return storage.CheckPair(op, pair)
}

// Save заменяет пару одной командой SET без TTL.
func (s *Storage) Save(ctx context.Context, accountID string, pair models.TokenPair) error {
	const op = "storage.redis.Save"

	raw, err := json.Marshal(pair)
	if err != nil {
		return fmt.Errorf("%s: marshal: %v: %w", op, err, storage.ErrPersistence)
	}

	if err := s.rdb.Set(ctx, s.key(accountID), raw, 0).Err(); err != nil {
		return fmt.Errorf("%s: %v: %w", op, err, storage.ErrPersistence)
	}

	return nil
}

// Close закрывает клиент Redis.
func (s *Storage) Close() error { return s.rdb.Close() }

// Проверка на соответствие интерфейсу TokenStore.
var _ storage.TokenStore = (*Storage)(nil)
