package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Collectors(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	m := New(reg)

	m.ObserveCall("GET", "/products/:id/", 200, 10*time.Millisecond)
	m.ObserveCall("GET", "/products/:id/", 200, 20*time.Millisecond)
	m.ObserveCall("POST", "/users/login/", 0, time.Millisecond)

	require.Equal(t, 2.0, testutil.ToFloat64(m.calls.WithLabelValues("GET", "/products/:id/", "200")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.calls.WithLabelValues("POST", "/users/login/", "error")))

	m.Refresh("ok")
	m.Refresh("failed")
	m.Refresh("ok")
	require.Equal(t, 2.0, testutil.ToFloat64(m.refreshes.WithLabelValues("ok")))

	m.Retry("replayed")
	require.Equal(t, 1.0, testutil.ToFloat64(m.retries.WithLabelValues("replayed")))

	known := []string{"unauthenticated", "restoring", "authenticated"}
	m.SessionState("restoring", known...)
	m.SessionState("authenticated", known...)
	require.Equal(t, 1.0, testutil.ToFloat64(m.sessionState.WithLabelValues("authenticated")))
	require.Equal(t, 0.0, testutil.ToFloat64(m.sessionState.WithLabelValues("restoring")))

	n, err := testutil.GatherAndCount(reg)
	require.NoError(t, err)
	require.Greater(t, n, 0)
}

func TestMetrics_NilSafe(t *testing.T) {
	t.Parallel()

	var m *Metrics
	require.NotPanics(t, func() {
		m.ObserveCall("GET", "/", 200, time.Millisecond)
		m.Refresh("ok")
		m.Retry("replayed")
		m.SessionState("authenticated")
	})
}
