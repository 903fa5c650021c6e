// metrics — счётчики и гистограммы Prometheus для опроса аккаунтов.
// Все методы безопасны для nil-получателя: метрики можно не подключать.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "stork"

type Metrics struct {
	ticksTotal        prometheus.Counter
	tickDuration      prometheus.Histogram
	accountTasksTotal *prometheus.CounterVec
	requestsTotal     *prometheus.CounterVec
	requestRetries    *prometheus.CounterVec
	tokenRefreshTotal *prometheus.CounterVec
	validations       *prometheus.GaugeVec
	submissionsTotal  *prometheus.CounterVec
}

// New создаёт коллекторы и регистрирует их в reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		ticksTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ticks_total",
			Help:      "Total number of scheduler ticks.",
		}),
		tickDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "tick_duration_seconds",
			Help:      "Duration of a scheduler tick across all accounts.",
			Buckets:   prometheus.DefBuckets,
		}),
		accountTasksTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "account_tasks_total",
			Help:      "Total number of per-account tasks by result.",
		}, []string{"result"}),
		requestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_total",
			Help:      "Total number of logical API requests by endpoint and outcome.",
		}, []string{"endpoint", "outcome"}),
		requestRetries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "request_retries_total",
			Help:      "Total number of request retries by endpoint.",
		}, []string{"endpoint"}),
		tokenRefreshTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "token_refresh_total",
			Help:      "Total number of token refresh exchanges by result.",
		}, []string{"result"}),
		validations: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "validations",
			Help:      "Validation counters reported by the API per account.",
		}, []string{"account", "kind"}),
		submissionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "validation_submissions_total",
			Help:      "Total number of validation submissions by result.",
		}, []string{"result"}),
	}

	reg.MustRegister(
		m.ticksTotal,
		m.tickDuration,
		m.accountTasksTotal,
		m.requestsTotal,
		m.requestRetries,
		m.tokenRefreshTotal,
		m.validations,
		m.submissionsTotal,
	)

	return m
}

// TickDone учитывает завершённый тик.
func (m *Metrics) TickDone(d time.Duration) {
	if m == nil {
		return
	}
	m.ticksTotal.Inc()
	m.tickDuration.Observe(d.Seconds())
}

// TaskDone учитывает итог задачи аккаунта (ok, failed, skipped).
func (m *Metrics) TaskDone(result string) {
	if m == nil {
		return
	}
	m.accountTasksTotal.WithLabelValues(result).Inc()
}

func (m *Metrics) ObserveRequest(endpoint, outcome string) {
	if m == nil {
		return
	}
	m.requestsTotal.WithLabelValues(endpoint, outcome).Inc()
}

func (m *Metrics) ObserveRetry(endpoint string) {
	if m == nil {
		return
	}
	m.requestRetries.WithLabelValues(endpoint).Inc()
}

// TokenRefresh учитывает обмен refresh-токена (ok, failed).
func (m *Metrics) TokenRefresh(result string) {
	if m == nil {
		return
	}
	m.tokenRefreshTotal.WithLabelValues(result).Inc()
}

// SetValidations публикует последние счётчики из /me.
func (m *Metrics) SetValidations(account string, valid, invalid int64) {
	if m == nil {
		return
	}
	m.validations.WithLabelValues(account, "valid").Set(float64(valid))
	m.validations.WithLabelValues(account, "invalid").Set(float64(invalid))
}

// Submission учитывает отправку валидации (ok, failed).
func (m *Metrics) Submission(result string) {
	if m == nil {
		return
	}
	m.submissionsTotal.WithLabelValues(result).Inc()
}
