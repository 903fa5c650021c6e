package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pribylovaa/go-stork-validator/internal/clients/auth"
	"github.com/pribylovaa/go-stork-validator/internal/clients/httpclient"
	"github.com/pribylovaa/go-stork-validator/internal/metrics"
	"github.com/pribylovaa/go-stork-validator/internal/models"
	"github.com/pribylovaa/go-stork-validator/internal/storage"
	"github.com/pribylovaa/go-stork-validator/pkg/log"
)

// expirySkew — запас до exp, при котором JWT уже считается просроченным.
const expirySkew = 30 * time.Second

// Session хранит текущую пару аккаунта и сериализует её обновление.
// Одна на аккаунт, общая для всех тиков.
type Session struct {
	accountID string
	store     storage.TokenStore
	refresher Refresher
	metrics   *metrics.Metrics
	now       func() time.Time

	// mu защищает pair и держится на всё время refresh + persist.
	mu   sync.Mutex
	pair models.TokenPair

	running atomic.Bool
}

// NewSession создаёт сессию с парой, прочитанной на старте.
func NewSession(accountID string, pair models.TokenPair, store storage.TokenStore, refresher Refresher, m *metrics.Metrics) *Session {
	return &Session{
		accountID: accountID,
		store:     store,
		refresher: refresher,
		metrics:   m,
		now:       time.Now,
		pair:      pair,
	}
}

// AccountID возвращает идентификатор аккаунта.
func (s *Session) AccountID() string { return s.accountID }

// Pair возвращает копию текущей пары.
func (s *Session) Pair() models.TokenPair {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pair
}

// TryAcquire занимает аккаунт на время тика. false — предыдущий тик аккаунта ещё идёт.
func (s *Session) TryAcquire() bool { return s.running.CompareAndSwap(false, true) }

// Release освобождает аккаунт.
func (s *Session) Release() { s.running.Store(false) }

// Valid сообщает, пригодна ли текущая пара для запросов без обновления.
func (s *Session) Valid() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.validLocked()
}

func (s *Session) validLocked() bool {
	return s.pair.Usable() && !auth.AccessTokenExpired(s.pair.AccessToken, s.now(), expirySkew)
}

// Ensure обновляет пару, если она непригодна. Проверка повторяется под
// блокировкой: параллельный путь мог уже обновить пару. true — обновление было.
func (s *Session) Ensure(ctx context.Context) (bool, error) {
	const op = "service/session/Ensure"

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.validLocked() {
		return false, nil
	}

	log.From(ctx).Info("token_invalid",
		slog.String("op", op),
		slog.Int("access_len", len(s.pair.AccessToken)),
	)

	if err := s.refreshLocked(ctx); err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}

	return true, nil
}

// AccessToken реализует httpclient.Authenticator.
func (s *Session) AccessToken(_ context.Context) (string, error) {
	const op = "service/session/AccessToken"

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.pair.Usable() {
		return "", fmt.Errorf("%s: %w", op, storage.ErrInvalidToken)
	}

	return s.pair.AccessToken, nil
}

// Reauthenticate реализует httpclient.Authenticator: обновляет пару, только если
// rejected всё ещё текущий токен. Иначе возвращает уже обновлённый.
func (s *Session) Reauthenticate(ctx context.Context, rejected string) (string, error) {
	const op = "service/session/Reauthenticate"

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pair.AccessToken != rejected && s.pair.Usable() {
		return s.pair.AccessToken, nil
	}

	if err := s.refreshLocked(ctx); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	return s.pair.AccessToken, nil
}

// refreshLocked: обмен → замена пары → сохранение. Ошибка сохранения
// только логируется, новая пара остаётся в работе. Пустой refresh-токен
// отклоняет сам Refresher; прежняя пара при любой ошибке не меняется.
func (s *Session) refreshLocked(ctx context.Context) error {
	const op = "service/session/refresh"

	lg := log.From(ctx)

	next, err := s.refresher.Refresh(ctx, s.pair.RefreshToken)
	if err != nil {
		s.metrics.TokenRefresh("failed")
		lg.Warn("token_refresh_failed",
			slog.String("op", op),
			slog.String("err", err.Error()),
		)
		return fmt.Errorf("%s: %w", op, err)
	}

	if !next.Usable() {
		s.metrics.TokenRefresh("failed")
		return fmt.Errorf("%s: refreshed access token length %d: %w", op, len(next.AccessToken), storage.ErrInvalidToken)
	}

	rotated := next.RefreshToken != s.pair.RefreshToken
	s.pair = next
	s.metrics.TokenRefresh("ok")
	lg.Info("token_refreshed",
		slog.String("op", op),
		slog.Bool("refresh_rotated", rotated),
	)

	if err := s.store.Save(ctx, s.accountID, next); err != nil {
		lg.Warn("token_persist_failed",
			slog.String("op", op),
			slog.String("err", err.Error()),
		)
	}

	return nil
}

// Проверка на соответствие интерфейсу Authenticator.
var _ httpclient.Authenticator = (*Session)(nil)
