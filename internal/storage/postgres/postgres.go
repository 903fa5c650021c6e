// postgres — хранилище пар токенов в таблице account_tokens (pgx/v5).
package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pribylovaa/go-stork-validator/internal/storage"
)

// Нагрузка — одна строка на аккаунт и запись только при обновлении токена.
const (
	maxConns        = 4
	maxConnIdleTime = 5 * time.Minute
	applicationName = "stork-validator"
)

// Storage — TokenStore поверх пула pgx.
type Storage struct {
	db *pgxpool.Pool
}

// New открывает пул и проверяет соединение.
// Если в dbURL задан pool_max_conns, он имеет приоритет.
func New(ctx context.Context, dbURL string) (*Storage, error) {
	const op = "storage.postgres.New"

	cfg, err := pgxpool.ParseConfig(dbURL)
	if err != nil {
		return nil, fmt.Errorf("%s: parse url: %w", op, err)
	}

	if cfg.MaxConns > maxConns && !hasPoolMaxConns(cfg.ConnString()) {
		cfg.MaxConns = maxConns
	}
	cfg.MaxConnIdleTime = maxConnIdleTime
	if _, ok := cfg.ConnConfig.RuntimeParams["application_name"]; !ok {
		cfg.ConnConfig.RuntimeParams["application_name"] = applicationName
	}

	db, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("%s: connect: %w", op, err)
	}

	if err := db.Ping(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("%s: ping: %w", op, err)
	}

	return &Storage{db: db}, nil
}

// Close закрывает пул соединений.
func (s *Storage) Close() error {
	s.db.Close()
	return nil
}

func hasPoolMaxConns(connString string) bool {
	return strings.Contains(connString, "pool_max_conns")
}

var _ storage.TokenStore = (*Storage)(nil)
