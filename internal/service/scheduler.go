package service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pribylovaa/go-stork-validator/internal/metrics"
	"github.com/pribylovaa/go-stork-validator/pkg/log"
)

// TickSummary — итог одного тика.
type TickSummary struct {
	TickID   string
	OK       int
	Failed   int
	Skipped  int
	Duration time.Duration
	Results  []TaskResult
}

// Scheduler запускает тики с фиксированным интервалом.
// Тики могут перекрываться: таймер не ждёт завершения предыдущего тика,
// параллелизм ограничен пулом Dispatcher.
type Scheduler struct {
	interval   time.Duration
	dispatcher *Dispatcher
	runners    []*Runner
	metrics    *metrics.Metrics
}

// NewScheduler создаёт планировщик.
func NewScheduler(interval time.Duration, dispatcher *Dispatcher, runners []*Runner, m *metrics.Metrics) *Scheduler {
	return &Scheduler{
		interval:   interval,
		dispatcher: dispatcher,
		runners:    runners,
		metrics:    m,
	}
}

// Run выполняет первый тик сразу, затем по таймеру до отмены ctx.
// Возвращается после завершения всех начатых тиков.
func (s *Scheduler) Run(ctx context.Context) {
	const op = "service/scheduler/Run"

	lg := log.From(ctx)
	lg.Info("scheduler_start",
		slog.String("op", op),
		slog.Int("accounts", len(s.runners)),
		slog.Duration("interval", s.interval),
	)

	var wg sync.WaitGroup
	start := func() {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.RunTick(ctx)
		}()
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	start()

	for {
		select {
		case <-ctx.Done():
			lg.Info("scheduler_stopping", slog.String("op", op))
			wg.Wait()
			lg.Info("scheduler_stopped", slog.String("op", op))
			return
		case <-ticker.C:
			start()
		}
	}
}

// RunTick — один проход по всем аккаунтам. Сбой аккаунта не влияет на остальные.
func (s *Scheduler) RunTick(ctx context.Context) TickSummary {
	const op = "service/scheduler/RunTick"

	started := time.Now()
	sum := TickSummary{TickID: uuid.NewString()}

	ctx, lg := log.With(ctx, slog.String("tick_id", sum.TickID))
	lg.Info("tick_start",
		slog.String("op", op),
		slog.Int("accounts", len(s.runners)),
	)

	for res := range s.dispatcher.Dispatch(ctx, s.runners) {
		sum.Results = append(sum.Results, res)
		s.metrics.TaskDone(res.Result())

		switch res.Result() {
		case ResultSkipped:
			sum.Skipped++
			lg.Info("task_skipped",
				slog.String("account", res.AccountID),
			)
		case ResultFailed:
			sum.Failed++
			lg.Warn("task_failed",
				slog.String("op", op),
				slog.String("account", res.AccountID),
				slog.String("state", res.State.String()),
				slog.String("err", res.Err.Error()),
			)
		default:
			sum.OK++
		}
	}

	sum.Duration = time.Since(started)
	s.metrics.TickDone(sum.Duration)

	lg.Info("tick_done",
		slog.String("op", op),
		slog.Int("ok", sum.OK),
		slog.Int("failed", sum.Failed),
		slog.Int("skipped", sum.Skipped),
		slog.Duration("dur", sum.Duration),
	)

	return sum
}
