package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/Tuhin-SnapD/pricepilot/internal/clients"
	"github.com/Tuhin-SnapD/pricepilot/internal/models"
	"github.com/Tuhin-SnapD/pricepilot/internal/pkg/log"
)

// refreshBudget ограничивает общий удалённый вызов обновления: он
// отвязан от отмены отдельного ожидающего.
const refreshBudget = 30 * time.Second

// errSessionChanged — пока шёл запрос, сессию завершили или начали заново.
var errSessionChanged = errors.New("session changed during refresh")

// Refresh получает новый access-токен по сохранённому refresh-токену.
//
//   - refresh-токена нет — ErrNoRefreshToken, удалённого вызова нет;
//   - успех — новая пара сохраняется (refresh остаётся прежним, если сервер
//     его не ротировал), возвращается новый access;
//   - неудача — Logout и *RefreshFailedError;
//   - пока шёл запрос, был Logout или новый Login — ответ отбрасывается,
//     *RefreshFailedError, хранилище не трогается.
//
// Параллельные вызовы схлопываются в один удалённый запрос; каждый
// ожидающий при этом уважает собственный ctx.
func (m *Manager) Refresh(ctx context.Context) (string, error) {
	ch := m.refreshGroup.DoChan("refresh", func() (any, error) {
		shared, cancel := context.WithTimeout(context.WithoutCancel(ctx), refreshBudget)
		defer cancel()

		return m.refresh(shared)
	})

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	}
}

func (m *Manager) refresh(ctx context.Context) (string, error) {
	const op = "session.Refresh"

	ctx = log.With(ctx, slog.String("op", op))
	lg := log.From(ctx)

	gen := m.generation()
	pair := m.loadPair(ctx)
	if pair.Refresh == "" {
		lg.Info("refresh_skipped_no_token")
		return "", fmt.Errorf("%s: %w", op, ErrNoRefreshToken)
	}

	call, err := clients.NewCall(http.MethodPost, pathRefresh, models.RefreshRequest{Refresh: pair.Refresh})
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	call.NoRefresh = true

	var resp models.RefreshResponse
	err = m.api.DoJSON(ctx, call, &resp)
	if err == nil && resp.Access == "" {
		err = errors.New("empty access token in response")
	}
	if err != nil {
		m.metrics.Refresh("failed")
		lg.Warn("refresh_failed", slog.String("err", err.Error()))
		m.logoutIf(ctx, gen)
		return "", &RefreshFailedError{Err: err}
	}

	next := models.TokenPair{Access: resp.Access, Refresh: pair.Refresh}
	if resp.Refresh != "" {
		next.Refresh = resp.Refresh
	}
	if !m.savePairIf(ctx, gen, next) {
		m.metrics.Refresh("stale")
		lg.Info("refresh_discarded_session_changed")
		return "", &RefreshFailedError{Err: errSessionChanged}
	}

	m.metrics.Refresh("ok")
	lg.Info("refresh_ok", slog.Bool("rotated", resp.Refresh != ""))

	return resp.Access, nil
}
