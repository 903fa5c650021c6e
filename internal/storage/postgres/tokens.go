package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/pribylovaa/go-stork-validator/internal/models"
	"github.com/pribylovaa/go-stork-validator/internal/storage"
)

// Load читает пару аккаунта из account_tokens.
func (s *Storage) Load(ctx context.Context, accountID string) (models.TokenPair, error) {
	const op = "storage.postgres.Load"

	query := `
        SELECT access_token, id_token, refresh_token
        FROM account_tokens
        WHERE account_id = $1
    `

	var pair models.TokenPair
	err := s.db.QueryRow(ctx, query, accountID).Scan(
		&pair.AccessToken,
		&pair.IDToken,
		&pair.RefreshToken,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.TokenPair{}, fmt.Errorf("%s: account %q has no tokens: %w", op, accountID, storage.ErrCorruptState)
		}

		return models.TokenPair{}, fmt.Errorf("%s: %v: %w", op, err, storage.ErrCorruptState)
	}

	return storage.CheckPair(op, pair)
}

// Save заменяет пару аккаунта одним upsert-запросом.
func (s *Storage) Save(ctx context.Context, accountID string, pair models.TokenPair) error {
	const op = "storage.postgres.Save"

	query := `
        INSERT INTO account_tokens(account_id, access_token, id_token, refresh_token, updated_at)
        VALUES ($1, $2, $3, $4, now())
        ON CONFLICT (account_id) DO UPDATE
        SET access_token  = EXCLUDED.access_token,
            id_token      = EXCLUDED.id_token,
            refresh_token = EXCLUDED.refresh_token,
            updated_at    = EXCLUDED.updated_at
    `

	_, err := s.db.Exec(ctx, query,
		accountID,
		pair.AccessToken,
		pair.IDToken,
		pair.RefreshToken,
	)

	if err != nil {
		return fmt.Errorf("%s: %v: %w", op, err, storage.ErrPersistence)
	}

	return nil
}
