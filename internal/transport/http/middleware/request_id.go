package middleware

import (
	"net/http"

	"github.com/google/uuid"
)

// RequestIDHeader — заголовок корреляции запросов.
const RequestIDHeader = "X-Request-Id"

// RequestID берёт X-Request-Id из запроса или генерирует UUID
// и возвращает его в заголовке ответа.
func RequestID() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get(RequestIDHeader)
			if id == "" {
				id = uuid.NewString()
				r.Header.Set(RequestIDHeader, id)
			}
			w.Header().Set(RequestIDHeader, id)

			next.ServeHTTP(w, r)
		})
	}
}
