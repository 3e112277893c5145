package interceptors

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/Tuhin-SnapD/pricepilot/internal/clients"
)

// WithTimeout навешивает таймаут d на исходящий вызов, если у контекста ещё
// нет дедлайна. Существующий дедлайн не переопределяется.
//
// Контракт:
//  1. d <= 0 — контекст не меняется;
//  2. у ctx уже есть deadline — оставляет как есть;
//  3. иначе — context.WithTimeout(ctx, d); cancel вызывается при закрытии
//     тела ответа (или сразу, если ответа нет), чтобы тело можно было
//     дочитать после возврата из цепочки.
func WithTimeout(d time.Duration) clients.Interceptor {
	return func(ctx context.Context, call *clients.Call, next clients.Invoker) (*http.Response, error) {
		if d <= 0 {
			return next(ctx, call)
		}
		if _, ok := ctx.Deadline(); ok {
			return next(ctx, call)
		}

		cctx, cancel := context.WithTimeout(ctx, d)

		resp, err := next(cctx, call)
		if err != nil || resp == nil || resp.Body == nil {
			cancel()
			return resp, err
		}

		resp.Body = &cancelBody{ReadCloser: resp.Body, cancel: cancel}
		return resp, nil
	}
}

type cancelBody struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (b *cancelBody) Close() error {
	err := b.ReadCloser.Close()
	b.cancel()
	return err
}
