package service

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pribylovaa/go-stork-validator/internal/clients/httpclient"
	"github.com/pribylovaa/go-stork-validator/internal/models"
	"github.com/stretchr/testify/require"
)

// gateAPI блокирует FetchUserStats до закрытия release и считает параллельность.
type gateAPI struct {
	release chan struct{}
	started chan string
	id      string

	active  *atomic.Int32
	maxSeen *atomic.Int32
	panics  bool
}

func (g *gateAPI) FetchUserStats(ctx context.Context, _ httpclient.Authenticator) (*models.UserStats, error) {
	if g.panics {
		panic("boom")
	}

	n := g.active.Add(1)
	for {
		m := g.maxSeen.Load()
		if n <= m || g.maxSeen.CompareAndSwap(m, n) {
			break
		}
	}
	if g.started != nil {
		g.started <- g.id
	}

	<-g.release
	g.active.Add(-1)
	return &models.UserStats{}, nil
}

func (g *gateAPI) FetchSignedPrices(context.Context, httpclient.Authenticator) ([]models.ValidationRecord, error) {
	return []models.ValidationRecord{}, nil
}

func (g *gateAPI) SubmitValidation(context.Context, httpclient.Authenticator, models.Validation) error {
	return nil
}

type gate struct {
	release chan struct{}
	started chan string
	active  atomic.Int32
	maxSeen atomic.Int32
}

func newGate() *gate {
	return &gate{release: make(chan struct{}), started: make(chan string, 16)}
}

func (g *gate) runner(t *testing.T, id string) *Runner {
	t.Helper()
	api := &gateAPI{release: g.release, started: g.started, id: id, active: &g.active, maxSeen: &g.maxSeen}
	return newRunner(t, id, NewSession(id, validPair(id), nil, nil, nil), api, 0)
}

func collect(ch <-chan TaskResult) map[string]TaskResult {
	out := make(map[string]TaskResult)
	for r := range ch {
		out[r.AccountID] = r
	}
	return out
}

// TestDispatch_PoolBoundsConcurrency — три аккаунта, два воркера: третий
// стартует только после освобождения слота.
func TestDispatch_PoolBoundsConcurrency(t *testing.T) {
	t.Parallel()

	g := newGate()
	runners := []*Runner{g.runner(t, "a"), g.runner(t, "b"), g.runner(t, "c")}

	out := NewDispatcher(2).Dispatch(context.Background(), runners)

	first := []string{<-g.started, <-g.started}
	require.ElementsMatch(t, []string{"a", "b"}, first)

	select {
	case id := <-g.started:
		t.Fatalf("runner %s started while pool is full", id)
	case <-time.After(50 * time.Millisecond):
	}

	close(g.release)
	require.Equal(t, "c", <-g.started)

	results := collect(out)
	require.Len(t, results, 3)
	for id, r := range results {
		require.NoError(t, r.Err, id)
		require.Equal(t, ResultOK, r.Result(), id)
	}
	require.EqualValues(t, 2, g.maxSeen.Load())
}

// TestDispatch_SkipsBusyAccount — аккаунт с незавершённым тиком пропускается.
func TestDispatch_SkipsBusyAccount(t *testing.T) {
	t.Parallel()

	g := newGate()
	close(g.release)
	busy := g.runner(t, "busy")
	free := g.runner(t, "free")

	require.True(t, busy.Session.TryAcquire())
	defer busy.Session.Release()

	results := collect(NewDispatcher(2).Dispatch(context.Background(), []*Runner{busy, free}))

	require.True(t, results["busy"].Skipped)
	require.Equal(t, ResultSkipped, results["busy"].Result())
	require.Equal(t, ResultOK, results["free"].Result())

	// Гард свободного аккаунта снят после задачи.
	require.True(t, free.Session.TryAcquire())
}

// TestDispatch_PanicIsolated — паника одного аккаунта не задевает остальные и не держит слот.
func TestDispatch_PanicIsolated(t *testing.T) {
	t.Parallel()

	g := newGate()
	close(g.release)

	bad := newRunner(t, "bad", NewSession("bad", validPair("bad"), nil, nil, nil),
		&gateAPI{panics: true, active: &g.active, maxSeen: &g.maxSeen}, 0)
	good := g.runner(t, "good")

	d := NewDispatcher(1)
	results := collect(d.Dispatch(context.Background(), []*Runner{bad, good}))

	require.ErrorIs(t, results["bad"].Err, ErrTaskPanic)
	require.NoError(t, results["good"].Err)

	// Слот и гард освобождены.
	require.True(t, bad.Session.TryAcquire())
	require.Len(t, d.sem, 0)
}

// TestDispatch_CanceledWhileWaitingForSlot — отмена ctx во время ожидания слота.
func TestDispatch_CanceledWhileWaitingForSlot(t *testing.T) {
	t.Parallel()

	g := newGate()
	d := NewDispatcher(1)

	holder := d.Dispatch(context.Background(), []*Runner{g.runner(t, "holder")})
	require.Equal(t, "holder", <-g.started)

	ctx, cancel := context.WithCancel(context.Background())
	waiting := g.runner(t, "waiting")
	out := d.Dispatch(ctx, []*Runner{waiting})

	cancel()
	res := <-out
	require.True(t, res.Skipped)
	require.ErrorIs(t, res.Err, context.Canceled)
	require.True(t, waiting.Session.TryAcquire())

	close(g.release)
	for range holder {
	}
}

// TestDispatch_InFlightSurvivesCancel — начатая задача доходит до конца после отмены.
func TestDispatch_InFlightSurvivesCancel(t *testing.T) {
	t.Parallel()

	g := newGate()
	ctx, cancel := context.WithCancel(context.Background())

	out := NewDispatcher(1).Dispatch(ctx, []*Runner{g.runner(t, "a")})
	<-g.started
	cancel()
	close(g.release)

	res := <-out
	require.NoError(t, res.Err)
	require.Equal(t, ResultOK, res.Result())
}

// TestDispatch_EmptyCloses — без раннеров канал сразу закрывается.
func TestDispatch_EmptyCloses(t *testing.T) {
	t.Parallel()

	require.Empty(t, collect(NewDispatcher(0).Dispatch(context.Background(), nil)))
}
