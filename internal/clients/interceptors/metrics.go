package interceptors

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/Tuhin-SnapD/pricepilot/internal/clients"
	"github.com/Tuhin-SnapD/pricepilot/internal/metrics"
)

// Metrics считает исходящие вызовы и их длительность.
// Числовые сегменты пути сворачиваются в ":id", чтобы не плодить метки.
func Metrics(m *metrics.Metrics) clients.Interceptor {
	return func(ctx context.Context, call *clients.Call, next clients.Invoker) (*http.Response, error) {
		start := time.Now()
		resp, err := next(ctx, call)

		status := 0
		if resp != nil {
			status = resp.StatusCode
		}
		m.ObserveCall(call.Method, Route(call.Path), status, time.Since(start))

		return resp, err
	}
}

// Route нормализует путь для меток: /products/42/ → /products/:id/.
func Route(path string) string {
	parts := strings.Split(path, "/")
	for i, p := range parts {
		if p != "" && isDigits(p) {
			parts[i] = ":id"
		}
	}

	return strings.Join(parts, "/")
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}

	return true
}
