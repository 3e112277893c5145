package interceptors

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/Tuhin-SnapD/pricepilot/internal/clients"
	"github.com/Tuhin-SnapD/pricepilot/internal/pkg/log"
	"github.com/google/uuid"
)

// Logging — логирование исходящих вызовов.
// Поведение:
//   - берёт X-Request-Id из вызова/контекста (или генерирует UUID и добавляет);
//   - прокладывает обогащённый логгер (request_id, method, path) в контекст;
//   - пишет одну финальную запись: msg="http_call", status, dur, retried.
//
// Не логирует тела и заголовок Authorization.
func Logging(base *slog.Logger) clients.Interceptor {
	if base == nil {
		base = slog.Default()
	}

	return func(ctx context.Context, call *clients.Call, next clients.Invoker) (*http.Response, error) {
		start := time.Now()

		rid := call.Header.Get("X-Request-Id")
		if rid == "" {
			rid = RequestIDFrom(ctx)
		}
		if rid == "" {
			rid = uuid.NewString()
		}
		if call.Header.Get("X-Request-Id") == "" {
			call = call.Clone()
			if call.Header == nil {
				call.Header = make(http.Header)
			}
			call.Header.Set("X-Request-Id", rid)
		}

		l := base.With(
			slog.String("request_id", rid),
			slog.String("method", call.Method),
			slog.String("path", call.Path),
		)
		ctx = log.Into(ctx, l)

		resp, err := next(ctx, call)

		attrs := []slog.Attr{
			slog.Duration("dur", time.Since(start)),
			slog.Bool("retried", call.Retried),
		}
		lvl := slog.LevelInfo
		switch {
		case err != nil:
			lvl = slog.LevelWarn
			attrs = append(attrs, slog.String("err", err.Error()))
		case resp != nil:
			attrs = append(attrs, slog.Int("status", resp.StatusCode))
			if resp.StatusCode >= 500 {
				lvl = slog.LevelWarn
			}
		}

		l.LogAttrs(ctx, lvl, "http_call", attrs...)

		return resp, err
	}
}
