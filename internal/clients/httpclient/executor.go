// httpclient выполняет запросы к API с ограниченным числом повторов
// и однократным обновлением токенов по 401.
package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pribylovaa/go-stork-validator/pkg/log"
)

const (
	DefaultMaxAttempts = 3
	DefaultBackoff     = 2 * time.Second

	maxBodyBytes  = 4 << 20
	maxErrorBytes = 512
)

// Policy — параметры повторов: фиксированная пауза между попытками.
type Policy struct {
	MaxAttempts int
	Backoff     time.Duration
}

// Authenticator выдаёт bearer-токен аккаунта и обновляет его по 401.
type Authenticator interface {
	// AccessToken возвращает текущий access-токен.
	AccessToken(ctx context.Context) (string, error)
	// Reauthenticate обновляет пару, если rejected всё ещё текущий токен,
	// и возвращает актуальный access-токен.
	Reauthenticate(ctx context.Context, rejected string) (string, error)
}

// Recorder получает исходы запросов. Реализуется метриками.
type Recorder interface {
	ObserveRequest(endpoint, outcome string)
	ObserveRetry(endpoint string)
}

// Исходы запросов для Recorder.
const (
	OutcomeOK           = "ok"
	OutcomeStatus       = "status"
	OutcomeFailed       = "failed"
	OutcomeUnauthorized = "unauthorized"
)

// Request — логический запрос. Body, если не nil, кодируется в JSON.
// Endpoint — короткое имя для логов и метрик.
type Request struct {
	Method   string
	URL      string
	Endpoint string
	Body     any
}

// Response — прочитанный ответ 2xx/3xx.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Option настраивает Executor.
type Option func(*Executor)

// WithUserAgent задаёт User-Agent всех запросов.
func WithUserAgent(ua string) Option { return func(e *Executor) { e.userAgent = ua } }

// WithOrigin задаёт заголовок Origin.
func WithOrigin(origin string) Option { return func(e *Executor) { e.origin = origin } }

// WithRecorder подключает учёт исходов запросов.
func WithRecorder(r Recorder) Option { return func(e *Executor) { e.recorder = r } }

// WithSleep подменяет ожидание между попытками.
func WithSleep(fn func(ctx context.Context, d time.Duration) error) Option {
	return func(e *Executor) { e.sleep = fn }
}

// Executor неизменяем после создания и безопасен для конкурентного использования.
type Executor struct {
	client    *http.Client
	policy    Policy
	userAgent string
	origin    string
	recorder  Recorder
	sleep     func(ctx context.Context, d time.Duration) error
}

// New создаёт исполнитель поверх client. Нулевые поля policy заменяются значениями по умолчанию.
func New(client *http.Client, policy Policy, opts ...Option) *Executor {
	if policy.MaxAttempts < 1 {
		policy.MaxAttempts = DefaultMaxAttempts
	}
	if policy.Backoff < 0 {
		policy.Backoff = DefaultBackoff
	}

	e := &Executor{
		client: client,
		policy: policy,
		sleep:  sleepCtx,
	}
	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Do выполняет запрос. auth может быть nil для неаутентифицированных вызовов.
//
// Транспортные ошибки и 5xx повторяются до policy.MaxAttempts раз с паузой policy.Backoff.
// Прочие 4xx возвращаются сразу как *StatusError. На 401 пара обновляется ровно один раз
// и запрос переотправляется; переотправка не расходует счётчик попыток.
func (e *Executor) Do(ctx context.Context, req Request, auth Authenticator) (*Response, error) {
	const op = "httpclient.Do"

	var payload []byte
	if req.Body != nil {
		b, err := json.Marshal(req.Body)
		if err != nil {
			return nil, fmt.Errorf("%s: %s: marshal body: %w", op, req.Endpoint, err)
		}
		payload = b
	}

	requestID := uuid.NewString()
	logger := log.From(ctx)

	var (
		attempt  int
		reauthed bool
		lastErr  error
	)

	for {
		attempt++

		var token string
		if auth != nil {
			t, err := auth.AccessToken(ctx)
			if err != nil {
				e.observe(req.Endpoint, OutcomeUnauthorized)
				return nil, fmt.Errorf("%s: %s: %w: %w", op, req.Endpoint, ErrUnauthorized, err)
			}
			token = t
		}

		resp, err := e.send(ctx, req, payload, token, requestID)
		switch {
		case err == nil && resp.StatusCode == http.StatusUnauthorized && auth != nil:
			if reauthed {
				e.observe(req.Endpoint, OutcomeUnauthorized)
				return nil, fmt.Errorf("%s: %s: rejected after refresh: %w", op, req.Endpoint, ErrUnauthorized)
			}
			reauthed = true

			logger.Info("request_reauth", "op", op, "endpoint", req.Endpoint, "request_id", requestID)
			if _, err := auth.Reauthenticate(ctx, token); err != nil {
				e.observe(req.Endpoint, OutcomeUnauthorized)
				return nil, fmt.Errorf("%s: %s: %w: %w", op, req.Endpoint, ErrUnauthorized, err)
			}

			attempt--
			continue

		case err == nil && resp.StatusCode < http.StatusBadRequest:
			e.observe(req.Endpoint, OutcomeOK)
			return resp, nil

		case err == nil && resp.StatusCode < http.StatusInternalServerError:
			e.observe(req.Endpoint, OutcomeStatus)
			return nil, fmt.Errorf("%s: %s: %w", op, req.Endpoint, &StatusError{
				StatusCode: resp.StatusCode,
				Body:       truncate(resp.Body),
			})

		case err == nil:
			lastErr = &StatusError{StatusCode: resp.StatusCode, Body: truncate(resp.Body)}

		default:
			lastErr = err
		}

		if attempt >= e.policy.MaxAttempts || ctx.Err() != nil {
			e.observe(req.Endpoint, OutcomeFailed)
			return nil, fmt.Errorf("%s: %s: %w", op, req.Endpoint, &RequestFailedError{Attempts: attempt, LastErr: lastErr})
		}

		logger.Warn("request_retry",
			"op", op,
			"endpoint", req.Endpoint,
			"request_id", requestID,
			"attempt", attempt,
			"max_attempts", e.policy.MaxAttempts,
			"backoff", e.policy.Backoff,
			"err", lastErr,
		)
		if e.recorder != nil {
			e.recorder.ObserveRetry(req.Endpoint)
		}

		if err := e.sleep(ctx, e.policy.Backoff); err != nil {
			e.observe(req.Endpoint, OutcomeFailed)
			return nil, fmt.Errorf("%s: %s: %w", op, req.Endpoint, &RequestFailedError{Attempts: attempt, LastErr: err})
		}
	}
}

// send выполняет одну попытку и полностью читает тело ответа.
func (e *Executor) send(ctx context.Context, req Request, payload []byte, token, requestID string) (*Response, error) {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, req.URL, body)
	if err != nil {
		return nil, err
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("X-Request-Id", requestID)
	if e.userAgent != "" {
		httpReq.Header.Set("User-Agent", e.userAgent)
	}
	if e.origin != "" {
		httpReq.Header.Set("Origin", e.origin)
	}
	if token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := e.client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	return &Response{StatusCode: resp.StatusCode, Header: resp.Header, Body: data}, nil
}

func (e *Executor) observe(endpoint, outcome string) {
	if e.recorder != nil {
		e.recorder.ObserveRequest(endpoint, outcome)
	}
}

func truncate(b []byte) string {
	s := strings.TrimSpace(string(b))
	if len(s) > maxErrorBytes {
		return s[:maxErrorBytes] + "..."
	}

	return s
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
