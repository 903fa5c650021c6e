// http — служебный HTTP-сервер: liveness, readiness и метрики Prometheus.
package http

import (
	"log/slog"
	"net/http"
	"sync/atomic"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/pribylovaa/go-stork-validator/internal/transport/http/middleware"
)

// Readiness — флаг готовности для /healthz. Нулевое значение — не готов.
type Readiness struct {
	ready atomic.Bool
}

func (r *Readiness) Set(ready bool) { r.ready.Store(ready) }

func (r *Readiness) Ready() bool { return r.ready.Load() }

// Options — параметры сборки роутера.
type Options struct {
	Logger    *slog.Logger
	Gatherer  prometheus.Gatherer
	Readiness *Readiness
}

// NewRouter собирает chi-роутер с /livez, /healthz и /metrics.
func NewRouter(opts Options) http.Handler {
	r := chi.NewRouter()

	// Внешний -> внутренний; RequestID до логирования.
	r.Use(
		middleware.Recover(),
		middleware.RequestID(),
		middleware.Logging(opts.Logger),
	)

	gatherer := opts.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}

	r.Get("/livez", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		if opts.Readiness != nil && opts.Readiness.Ready() {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("ok"))
			return
		}
		http.Error(w, "not ready", http.StatusServiceUnavailable)
	})
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	return r
}
