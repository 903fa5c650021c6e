package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/pribylovaa/go-stork-validator/internal/clients/httpclient"
	"github.com/pribylovaa/go-stork-validator/internal/metrics"
	"github.com/pribylovaa/go-stork-validator/internal/models"
	"github.com/pribylovaa/go-stork-validator/internal/pkg/redact"
	"github.com/pribylovaa/go-stork-validator/pkg/log"
)

// State — шаг задачи аккаунта внутри тика.
type State int

const (
	StateIdle State = iota
	StateTokenCheck
	StateRefreshing
	StateFetching
	StateReporting
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateTokenCheck:
		return "token_check"
	case StateRefreshing:
		return "refreshing"
	case StateFetching:
		return "fetching"
	case StateReporting:
		return "reporting"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Итоги задачи для логов и метрик.
const (
	ResultOK      = "ok"
	ResultFailed  = "failed"
	ResultSkipped = "skipped"
)

// TaskResult — итог задачи аккаунта. State — последний достигнутый шаг.
type TaskResult struct {
	AccountID string
	State     State
	Skipped   bool
	Refreshed bool
	Stats     *models.UserStats
	Records   []models.ValidationRecord
	Err       error
	Duration  time.Duration
}

// Result сводит итог к одной метке.
func (r TaskResult) Result() string {
	switch {
	case r.Skipped:
		return ResultSkipped
	case r.Err != nil:
		return ResultFailed
	default:
		return ResultOK
	}
}

// Runner — всё, что нужно для задачи одного аккаунта.
// Собирается один раз на старте и только читается.
type Runner struct {
	Account models.Account
	Session *Session
	API     API

	metrics   *metrics.Metrics
	submitted *lru.Cache[string, struct{}]
}

// NewRunner создаёт раннер. dedupeSize > 0 включает отправку валидаций
// с защитой от повторной отправки последних dedupeSize хэшей.
func NewRunner(acc models.Account, session *Session, api API, m *metrics.Metrics, dedupeSize int) (*Runner, error) {
	const op = "service/task/NewRunner"

	r := &Runner{
		Account: acc,
		Session: session,
		API:     api,
		metrics: m,
	}

	if dedupeSize > 0 {
		cache, err := lru.New[string, struct{}](dedupeSize)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		r.submitted = cache
	}

	return r, nil
}

// Run проходит TokenCheck → (Refreshing) → Fetching → Reporting.
// Ошибки не выходят наружу: они в TaskResult.Err.
func (r *Runner) Run(ctx context.Context) (res TaskResult) {
	const op = "service/task/Run"

	started := time.Now()
	res = TaskResult{AccountID: r.Account.ID, State: StateIdle}
	defer func() { res.Duration = time.Since(started) }()

	lg := log.From(ctx)

	res.State = StateTokenCheck
	if !r.Session.Valid() {
		res.State = StateRefreshing
		refreshed, err := r.Session.Ensure(ctx)
		if err != nil {
			res.Err = err
			return res
		}
		res.Refreshed = refreshed
	}

	res.State = StateFetching
	stats, statsErr := r.API.FetchUserStats(ctx, r.Session)
	if statsErr != nil {
		lg.Warn("user_stats_failed",
			slog.String("op", op),
			slog.String("err", statsErr.Error()),
		)
		// Отказ авторизации после обновления: дальше тот же токен не поможет.
		if errors.Is(statsErr, httpclient.ErrUnauthorized) {
			res.Err = statsErr
			return res
		}
	}

	records, pricesErr := r.API.FetchSignedPrices(ctx, r.Session)
	if pricesErr != nil {
		lg.Warn("signed_prices_failed",
			slog.String("op", op),
			slog.String("err", pricesErr.Error()),
		)
	}

	if statsErr != nil && pricesErr != nil {
		res.Err = errors.Join(statsErr, pricesErr)
		return res
	}

	res.State = StateReporting
	if stats != nil {
		stats.PerAssetResults = records
	}
	res.Stats = stats
	res.Records = records

	r.report(ctx, stats, records, pricesErr == nil)

	if r.submitted != nil && pricesErr == nil {
		r.submit(ctx, records)
	}

	return res
}

// report пишет статистику аккаунта и по строке на актив.
func (r *Runner) report(ctx context.Context, stats *models.UserStats, records []models.ValidationRecord, pricesOK bool) {
	lg := log.From(ctx)

	if stats != nil {
		r.metrics.SetValidations(r.Account.ID, stats.ValidCount, stats.InvalidCount)
		lg.Info("user_stats",
			slog.String("email", redact.Email(stats.Email)),
			slog.Int64("valid", stats.ValidCount),
			slog.Int64("invalid", stats.InvalidCount),
		)
	}

	if !pricesOK {
		return
	}

	if len(records) == 0 {
		lg.Warn("no_validation_data")
		return
	}

	lg.Info("validations_received", slog.Int("count", len(records)))
	for _, rec := range records {
		lg.Info("validation_record",
			slog.String("asset", rec.Asset),
			slog.Float64("price", rec.Price),
			slog.String("msg_hash", rec.MsgHash),
			slog.Time("timestamp", rec.Timestamp),
		)
	}
}

// submit отправляет ещё не отправленные записи. Best-effort: ошибки только в лог.
func (r *Runner) submit(ctx context.Context, records []models.ValidationRecord) {
	const op = "service/task/submit"

	lg := log.From(ctx)

	for _, rec := range records {
		if r.submitted.Contains(rec.MsgHash) {
			continue
		}

		v := models.Validation{MsgHash: rec.MsgHash, Valid: rec.Plausible()}
		if err := r.API.SubmitValidation(ctx, r.Session, v); err != nil {
			r.metrics.Submission(ResultFailed)
			lg.Warn("validation_submit_failed",
				slog.String("op", op),
				slog.String("asset", rec.Asset),
				slog.String("msg_hash", rec.MsgHash),
				slog.String("err", err.Error()),
			)
			continue
		}

		r.submitted.Add(rec.MsgHash, struct{}{})
		r.metrics.Submission(ResultOK)
		lg.Debug("validation_submitted",
			slog.String("asset", rec.Asset),
			slog.String("msg_hash", rec.MsgHash),
			slog.Bool("valid", v.Valid),
		)
	}
}
