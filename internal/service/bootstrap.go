package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/pribylovaa/go-stork-validator/internal/clients/auth"
	"github.com/pribylovaa/go-stork-validator/internal/clients/httpclient"
	"github.com/pribylovaa/go-stork-validator/internal/clients/stork"
	"github.com/pribylovaa/go-stork-validator/internal/config"
	"github.com/pribylovaa/go-stork-validator/internal/metrics"
	"github.com/pribylovaa/go-stork-validator/internal/models"
	"github.com/pribylovaa/go-stork-validator/internal/pkg/redact"
	"github.com/pribylovaa/go-stork-validator/internal/proxies"
	"github.com/pribylovaa/go-stork-validator/internal/storage"
	"github.com/pribylovaa/go-stork-validator/internal/storage/file"
	"github.com/pribylovaa/go-stork-validator/internal/storage/postgres"
	"github.com/pribylovaa/go-stork-validator/internal/storage/redis"
	"github.com/pribylovaa/go-stork-validator/pkg/log"
)

// OpenStore создаёт хранилище токенов по storage.driver.
func OpenStore(ctx context.Context, cfg *config.Config) (storage.TokenStore, error) {
	const op = "service/bootstrap/OpenStore"

	switch cfg.Storage.Driver {
	case config.DriverPostgres:
		st, err := postgres.New(ctx, cfg.Storage.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		return st, nil
	case config.DriverRedis:
		st, err := redis.New(ctx, cfg.Storage.RedisURL, cfg.Storage.RedisPrefix)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		return st, nil
	case config.DriverFile, "":
		paths := make(map[string]string)
		for _, acc := range cfg.AccountList() {
			if acc.TokenFile != "" {
				paths[acc.ID] = acc.TokenFile
			}
		}
		return file.New(cfg.Storage.TokensDir, paths), nil
	default:
		return nil, fmt.Errorf("%s: unknown storage driver %q", op, cfg.Storage.Driver)
	}
}

// Accounts собирает аккаунты из конфига и назначает прокси из proxies.file.
func Accounts(cfg *config.Config) ([]models.Account, error) {
	const op = "service/bootstrap/Accounts"

	list := cfg.AccountList()
	accounts := make([]models.Account, 0, len(list))

	for _, ac := range list {
		acc := models.Account{ID: ac.ID, TokenFile: ac.TokenFile}
		if ac.Proxy != "" {
			u, err := config.ParseProxyURL(ac.Proxy)
			if err != nil {
				return nil, fmt.Errorf("%s: account %q: %w", op, ac.ID, err)
			}
			acc.Proxy = u
		}
		accounts = append(accounts, acc)
	}

	if cfg.Proxies.File != "" {
		pool, err := proxies.Load(cfg.Proxies.File)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		accounts = proxies.Assign(accounts, pool)
	}

	return accounts, nil
}

// Bootstrap загружает пары всех аккаунтов и собирает раннеры.
//
// Аккаунт исключается, если его состояние отсутствует или повреждено
// (storage.ErrCorruptState). Пара с непригодным access-токеном допускается:
// каждый тик сначала пытается её обновить и не делает запросов с ней.
// ErrNoAccounts — если не осталось ни одного аккаунта.
func Bootstrap(ctx context.Context, cfg *config.Config, store storage.TokenStore, accounts []models.Account, m *metrics.Metrics) ([]*Runner, error) {
	const op = "service/bootstrap/Bootstrap"

	lg := log.From(ctx)

	dedupe := 0
	if cfg.Validation.Submit {
		dedupe = cfg.Validation.DedupeSize
	}

	runners := make([]*Runner, 0, len(accounts))
	for _, acc := range accounts {
		pair, err := store.Load(ctx, acc.ID)
		if err != nil && !errors.Is(err, storage.ErrInvalidToken) {
			lg.Error("account_excluded",
				slog.String("op", op),
				slog.String("account", acc.ID),
				slog.String("err", err.Error()),
			)
			continue
		}
		if err != nil && !pair.CanRefresh() {
			lg.Warn("account_unrefreshable",
				slog.String("op", op),
				slog.String("account", acc.ID),
				slog.String("err", err.Error()),
			)
		}

		client := httpclient.NewHTTPClient(acc.Proxy, cfg.Timeouts.Request)

		apiExec := httpclient.New(client,
			httpclient.Policy{MaxAttempts: cfg.Retry.MaxAttempts, Backoff: cfg.Retry.Backoff},
			httpclient.WithUserAgent(cfg.API.UserAgent),
			httpclient.WithRecorder(m),
		)
		authExec := httpclient.New(client,
			httpclient.Policy{MaxAttempts: 1},
			httpclient.WithUserAgent(cfg.API.UserAgent),
			httpclient.WithOrigin(cfg.API.Origin),
			httpclient.WithRecorder(m),
		)

		session := NewSession(acc.ID, pair, store, auth.New(authExec, cfg.API.AuthURL), m)

		runner, err := NewRunner(acc, session, stork.New(apiExec, cfg.API.BaseURL), m, dedupe)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		runners = append(runners, runner)

		lg.Info("account_loaded",
			slog.String("account", acc.ID),
			slog.String("proxy", redact.ProxyURL(acc.Proxy)),
			slog.String("access_token", redact.Token(pair.AccessToken)),
			slog.Bool("needs_refresh", !session.Valid()),
		)
	}

	if len(runners) == 0 {
		return nil, fmt.Errorf("%s: %w", op, ErrNoAccounts)
	}

	return runners, nil
}
