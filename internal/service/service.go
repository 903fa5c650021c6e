// service содержит опрос аккаунтов Stork: сессии токенов, задачи тика,
// диспетчер с общим пулом воркеров и планировщик.
package service

import (
	"context"
	"errors"

	"github.com/pribylovaa/go-stork-validator/internal/clients/httpclient"
	"github.com/pribylovaa/go-stork-validator/internal/models"
)

var (
	// ErrNoAccounts — ни один аккаунт не прошёл загрузку на старте.
	ErrNoAccounts = errors.New("no usable accounts")
	// ErrTaskPanic — задача аккаунта завершилась паникой.
	ErrTaskPanic = errors.New("task panicked")
)

// Refresher обменивает refresh-токен на новую пару.
//
//go:generate mockgen -destination=../../mocks/mock_refresher.go -package=mocks github.com/pribylovaa/go-stork-validator/internal/service Refresher
type Refresher interface {
	Refresh(ctx context.Context, refreshToken string) (models.TokenPair, error)
}

// API — вызовы Stork от имени аккаунта.
//
//go:generate mockgen -destination=../../mocks/mock_api.go -package=mocks github.com/pribylovaa/go-stork-validator/internal/service API
type API interface {
	FetchUserStats(ctx context.Context, auth httpclient.Authenticator) (*models.UserStats, error)
	FetchSignedPrices(ctx context.Context, auth httpclient.Authenticator) ([]models.ValidationRecord, error)
	SubmitValidation(ctx context.Context, auth httpclient.Authenticator, v models.Validation) error
}
