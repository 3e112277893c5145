package interceptors

import (
	"context"
	"io"
	"log/slog"
	"net/http"

	"github.com/Tuhin-SnapD/pricepilot/internal/clients"
	"github.com/Tuhin-SnapD/pricepilot/internal/metrics"
	"github.com/Tuhin-SnapD/pricepilot/internal/pkg/log"
)

// Refresher — тот, кто умеет получить новый access-токен.
// Реализуется session.Manager; при неудаче он сам выполняет logout.
type Refresher interface {
	Refresh(ctx context.Context) (string, error)
}

// RetryAfterRefresh — повтор вызова после 401.
//
// Поведение для ответа 401 на вызов без Retried и без NoRefresh:
//  1. делается копия вызова с Retried=true (исходный вызов не мутируется);
//  2. вызывается Refresher.Refresh;
//  3. успех — копия отправляется ровно один раз с новым токеном, вызывающий
//     видит только её результат;
//  4. неудача — вызывающий получает исходный ответ 401.
//
// Все остальные ответы и ошибки проходят без изменений.
func RetryAfterRefresh(r Refresher, m *metrics.Metrics) clients.Interceptor {
	return func(ctx context.Context, call *clients.Call, next clients.Invoker) (*http.Response, error) {
		resp, err := next(ctx, call)
		if err != nil || resp == nil || resp.StatusCode != http.StatusUnauthorized {
			return resp, err
		}
		if call.Retried || call.NoRefresh {
			return resp, nil
		}

		retry := call.Clone()
		retry.Retried = true

		access, rerr := r.Refresh(ctx)
		if rerr != nil {
			log.From(ctx).Info("retry_refresh_failed",
				slog.String("call", call.String()),
				slog.String("err", rerr.Error()),
			)
			m.Retry("refresh_failed")
			return resp, nil
		}

		// Исходный 401 вызывающему уже не нужен.
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
		_ = resp.Body.Close()

		retry.Token = access
		m.Retry("replayed")

		return next(ctx, retry)
	}
}
