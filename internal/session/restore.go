package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/Tuhin-SnapD/pricepilot/internal/clients"
	"github.com/Tuhin-SnapD/pricepilot/internal/models"
	"github.com/Tuhin-SnapD/pricepilot/internal/pkg/log"
)

var errMalformedProfile = errors.New("malformed profile")

// Restore восстанавливает сессию по сохранённым токенам при старте процесса.
//
// Переходы:
//   - access-токена нет → Unauthenticated;
//   - профиль получен → Authenticated;
//   - профиль 401 → RefreshingSilently → Refresh → повторный профиль →
//     Authenticated; любая неудача на этом пути → Logout;
//   - профиль упал иначе → Logout.
//
// Если за время восстановления сессию сменили (Login или Logout), итог
// Restore не публикуется. Ошибки не возвращаются, только логируются.
func (m *Manager) Restore(ctx context.Context) Snapshot {
	const op = "session.Restore"

	ctx = log.With(ctx, slog.String("op", op))
	lg := log.From(ctx)

	gen := m.generation()
	m.setState(Restoring)

	pair := m.loadPair(ctx)
	if pair.Access == "" {
		m.commitIf(gen, Unauthenticated, nil)
		lg.Info("restore_no_session")
		return m.Snapshot()
	}

	user, err := m.fetchProfile(ctx, "")
	if err == nil {
		m.commitIf(gen, Authenticated, user)
		lg.Info("restore_ok", slog.String("username", user.Username))
		return m.Snapshot()
	}

	se, ok := clients.AsStatus(err)
	if !ok || !se.Unauthorized() {
		lg.Warn("restore_profile_failed", slog.String("err", err.Error()))
		m.logoutIf(ctx, gen)
		return m.Snapshot()
	}

	m.setState(RefreshingSilently)

	if _, err := m.Refresh(ctx); err != nil {
		lg.Info("restore_refresh_failed", slog.String("err", err.Error()))
		// Для ErrNoRefreshToken Refresh не выходит сам.
		m.logoutIf(ctx, gen)
		return m.Snapshot()
	}

	user, err = m.fetchProfile(ctx, "")
	if err != nil {
		lg.Warn("restore_profile_after_refresh_failed", slog.String("err", err.Error()))
		m.logoutIf(ctx, gen)
		return m.Snapshot()
	}

	m.commitIf(gen, Authenticated, user)
	lg.Info("restore_ok", slog.String("username", user.Username), slog.Bool("refreshed", true))

	return m.Snapshot()
}

// fetchProfile — GET /users/me/ без авто-обновления. token != "" подменяет
// токен из хранилища.
func (m *Manager) fetchProfile(ctx context.Context, token string) (*models.User, error) {
	const op = "session.fetchProfile"

	call := &clients.Call{
		Method:    http.MethodGet,
		Path:      pathProfile,
		NoRefresh: true,
		Token:     token,
	}

	var raw json.RawMessage
	if err := m.api.DoJSON(ctx, call, &raw); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	user, err := decodeProfile(raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return user, nil
}

// decodeProfile понимает и {success, data: user}, и «голый» user. Объект
// профиля целиком сохраняется в User.Profile.
func decodeProfile(raw json.RawMessage) (*models.User, error) {
	if len(raw) == 0 {
		return nil, errMalformedProfile
	}

	var env struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(raw, &env); err == nil && env.Success && len(env.Data) > 0 {
		raw = env.Data
	}

	var u models.User
	if err := json.Unmarshal(raw, &u); err != nil {
		return nil, fmt.Errorf("%w: %v", errMalformedProfile, err)
	}
	if u.Username == "" {
		return nil, errMalformedProfile
	}
	u.Profile = append(json.RawMessage(nil), raw...)

	return &u, nil
}
