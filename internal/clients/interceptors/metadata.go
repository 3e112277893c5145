// interceptors — звенья цепочки исходящих вызовов clients.Client.
package interceptors

import (
	"context"
	"net/http"

	"github.com/Tuhin-SnapD/pricepilot/internal/clients"
)

type CtxKey string

// CtxRequestID — ключ контекста, под которым локальный HTTP-слой кладёт
// request id входящего запроса.
const CtxRequestID CtxKey = "request_id"

// WithRequestID кладёт request id в контекст.
func WithRequestID(ctx context.Context, rid string) context.Context {
	return context.WithValue(ctx, CtxRequestID, rid)
}

// RequestIDFrom достаёт request id из контекста ("" если нет).
func RequestIDFrom(ctx context.Context) string {
	rid, _ := ctx.Value(CtxRequestID).(string)
	return rid
}

// WithMetadata добавляет в исходящий вызов заголовки:
//   - X-Request-Id (если есть в контексте и не задан в вызове),
//   - User-Agent (если передан параметром).
func WithMetadata(userAgent string) clients.Interceptor {
	return func(ctx context.Context, call *clients.Call, next clients.Invoker) (*http.Response, error) {
		rid := RequestIDFrom(ctx)
		if rid == "" && userAgent == "" {
			return next(ctx, call)
		}

		out := call.Clone()
		if out.Header == nil {
			out.Header = make(http.Header)
		}
		if rid != "" && out.Header.Get("X-Request-Id") == "" {
			out.Header.Set("X-Request-Id", rid)
		}
		if userAgent != "" {
			out.Header.Set("User-Agent", userAgent)
		}

		return next(ctx, out)
	}
}
