package httpclient

import (
	"errors"
	"fmt"
)

var (
	// ErrRequestFailed — попытки исчерпаны (транспортные ошибки или 5xx).
	ErrRequestFailed = errors.New("request failed")
	// ErrUnauthorized — 401 после единственного обновления токенов
	// либо само обновление не удалось.
	ErrUnauthorized = errors.New("unauthorized")
)

// StatusError — ответ 4xx (кроме обработанного 401), не повторяется.
// Для 5xx используется как LastErr внутри RequestFailedError.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("unexpected status %d", e.StatusCode)
	}

	return fmt.Sprintf("unexpected status %d: %s", e.StatusCode, e.Body)
}

// RequestFailedError — итог исчерпанных попыток.
type RequestFailedError struct {
	Attempts int
	LastErr  error
}

func (e *RequestFailedError) Error() string {
	return fmt.Sprintf("%s after %d attempt(s): %v", ErrRequestFailed, e.Attempts, e.LastErr)
}

func (e *RequestFailedError) Is(target error) bool { return target == ErrRequestFailed }

func (e *RequestFailedError) Unwrap() error { return e.LastErr }
