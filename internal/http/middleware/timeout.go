package middleware

import (
	"context"
	"net/http"
	"time"
)

// Timeout ограничивает запрос бюджетом d. Более ранний дедлайн родителя
// сохраняется (context.WithTimeout берёт минимум); d<=0 — без ограничения.
func Timeout(d time.Duration) Middleware {
	if d <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), d)
			defer cancel()
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
