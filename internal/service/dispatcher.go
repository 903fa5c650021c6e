package service

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"

	"github.com/pribylovaa/go-stork-validator/pkg/log"
)

// Dispatcher — общий для всех тиков пул из workers слотов.
type Dispatcher struct {
	sem chan struct{}
}

// NewDispatcher создаёт пул. workers < 1 трактуется как 1.
func NewDispatcher(workers int) *Dispatcher {
	if workers < 1 {
		workers = 1
	}

	return &Dispatcher{sem: make(chan struct{}, workers)}
}

// Dispatch запускает по задаче на раннер и отдаёт ровно один результат на каждый.
// Канал закрывается после всех результатов.
//
// Особенности:
//   - раннер, чей предыдущий тик ещё идёт, пропускается (Skipped);
//   - слоты выдаются в порядке раннеров; ожидание слота прерывается ctx;
//   - сама задача выполняется на context.WithoutCancel(ctx): начатые запросы
//     доходят до ответа или таймаута клиента;
//   - паника в задаче превращается в ErrTaskPanic.
func (d *Dispatcher) Dispatch(ctx context.Context, runners []*Runner) <-chan TaskResult {
	output := make(chan TaskResult, len(runners))

	go func() {
		defer close(output)

		var wg sync.WaitGroup
		defer wg.Wait()

		for _, r := range runners {
			if !r.Session.TryAcquire() {
				output <- TaskResult{AccountID: r.Account.ID, State: StateIdle, Skipped: true}
				continue
			}

			select {
			case <-ctx.Done():
				r.Session.Release()
				output <- TaskResult{AccountID: r.Account.ID, State: StateIdle, Skipped: true, Err: ctx.Err()}
				continue
			case d.sem <- struct{}{}:
			}

			wg.Add(1)
			go func(r *Runner) {
				defer wg.Done()
				defer func() { <-d.sem }()
				defer r.Session.Release()

				output <- d.runOne(context.WithoutCancel(ctx), r)
			}(r)
		}
	}()

	return output
}

func (d *Dispatcher) runOne(ctx context.Context, r *Runner) (res TaskResult) {
	const op = "service/dispatcher/runOne"

	ctx, lg := log.With(ctx, slog.String("account", r.Account.ID))

	defer func() {
		if p := recover(); p != nil {
			lg.Error("task_panic",
				slog.String("op", op),
				slog.Any("panic", p),
				slog.String("stack", string(debug.Stack())),
			)
			res = TaskResult{
				AccountID: r.Account.ID,
				State:     res.State,
				Err:       fmt.Errorf("%s: %w: %v", op, ErrTaskPanic, p),
			}
		}
	}()

	return r.Run(ctx)
}
