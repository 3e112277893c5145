// metrics — Prometheus-коллекторы BFF-процесса.
//
// Все методы безопасны для nil-получателя: компоненты, которым метрики не
// переданы, просто ничего не пишут.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "pricepilot"

// Metrics агрегирует коллекторы исходящих вызовов, обновлений токена,
// повторов и состояния сессии.
type Metrics struct {
	calls        *prometheus.CounterVec
	callDuration *prometheus.HistogramVec
	refreshes    *prometheus.CounterVec
	retries      *prometheus.CounterVec
	sessionState *prometheus.GaugeVec
}

// New регистрирует коллекторы в reg (обычно prometheus.DefaultRegisterer).
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		calls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "api",
			Name:      "calls_total",
			Help:      "Outbound calls to the pricing API by method, route and status.",
		}, []string{"method", "route", "status"}),
		callDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "api",
			Name:      "call_duration_seconds",
			Help:      "Outbound call latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		refreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "refreshes_total",
			Help:      "Remote token refresh attempts by result.",
		}, []string{"result"}),
		retries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "api",
			Name:      "retries_total",
			Help:      "Calls replayed after a 401, by outcome.",
		}, []string{"outcome"}),
		sessionState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "state",
			Help:      "1 for the current session state, 0 otherwise.",
		}, []string{"state"}),
	}

	if reg != nil {
		reg.MustRegister(m.calls, m.callDuration, m.refreshes, m.retries, m.sessionState)
	}

	return m
}

// ObserveCall — один исходящий вызов. status=0 — ответ не получен.
func (m *Metrics) ObserveCall(method, route string, status int, dur time.Duration) {
	if m == nil {
		return
	}

	code := "error"
	if status > 0 {
		code = strconv.Itoa(status)
	}

	m.calls.WithLabelValues(method, route, code).Inc()
	m.callDuration.WithLabelValues(method, route).Observe(dur.Seconds())
}

// Refresh — результат удалённого обновления токена: ok | failed | stale.
func (m *Metrics) Refresh(result string) {
	if m == nil {
		return
	}

	m.refreshes.WithLabelValues(result).Inc()
}

// Retry — исход повтора после 401: replayed | refresh_failed.
func (m *Metrics) Retry(outcome string) {
	if m == nil {
		return
	}

	m.retries.WithLabelValues(outcome).Inc()
}

// SessionState выставляет 1 текущему состоянию и 0 остальным из known.
func (m *Metrics) SessionState(current string, known ...string) {
	if m == nil {
		return
	}

	for _, s := range known {
		m.sessionState.WithLabelValues(s).Set(0)
	}
	m.sessionState.WithLabelValues(current).Set(1)
}
