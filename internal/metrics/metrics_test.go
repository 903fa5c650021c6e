package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Record(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	m := New(reg)

	m.TickDone(150 * time.Millisecond)
	m.TickDone(time.Second)
	m.TaskDone("ok")
	m.TaskDone("ok")
	m.TaskDone("failed")
	m.ObserveRequest("me", "ok")
	m.ObserveRetry("me")
	m.TokenRefresh("ok")
	m.SetValidations("alice", 10, 2)
	m.Submission("failed")

	require.Equal(t, 2.0, testutil.ToFloat64(m.ticksTotal))
	require.Equal(t, 2.0, testutil.ToFloat64(m.accountTasksTotal.WithLabelValues("ok")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.accountTasksTotal.WithLabelValues("failed")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.requestsTotal.WithLabelValues("me", "ok")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.requestRetries.WithLabelValues("me")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.tokenRefreshTotal.WithLabelValues("ok")))
	require.Equal(t, 10.0, testutil.ToFloat64(m.validations.WithLabelValues("alice", "valid")))
	require.Equal(t, 2.0, testutil.ToFloat64(m.validations.WithLabelValues("alice", "invalid")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.submissionsTotal.WithLabelValues("failed")))

	n, err := testutil.GatherAndCount(reg, "stork_tick_duration_seconds")
	require.NoError(t, err)
	require.Equal(t, 1, n)
}

func TestMetrics_NilSafe(t *testing.T) {
	t.Parallel()

	var m *Metrics
	require.NotPanics(t, func() {
		m.TickDone(time.Second)
		m.TaskDone("ok")
		m.ObserveRequest("me", "ok")
		m.ObserveRetry("me")
		m.TokenRefresh("failed")
		m.SetValidations("a", 1, 1)
		m.Submission("ok")
	})
}

func TestNew_DoubleRegisterPanics(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	New(reg)
	require.Panics(t, func() { New(reg) })
}
