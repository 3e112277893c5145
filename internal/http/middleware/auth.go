package middleware

import (
	"log/slog"
	"net/http"

	apierrors "github.com/Tuhin-SnapD/pricepilot/internal/errors"
	"github.com/Tuhin-SnapD/pricepilot/internal/models"
	"github.com/Tuhin-SnapD/pricepilot/internal/pkg/log"
	"github.com/Tuhin-SnapD/pricepilot/internal/session"
)

// SessionView — опубликованное состояние сессии (session.Manager).
type SessionView interface {
	Snapshot() session.Snapshot
}

// RequireAuth пропускает запрос, только если в сессии есть пользователь.
// Иначе — 401/unauthenticated.
func RequireAuth(s SessionView) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !s.Snapshot().IsAuthenticated() {
				apierrors.WriteError(w, r, apierrors.ErrUnauthenticated)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireRole — ролевой гейт: без пользователя 401, с чужой ролью 403.
func RequireRole(s SessionView, roles ...models.Role) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			snap := s.Snapshot()
			if !snap.IsAuthenticated() {
				apierrors.WriteError(w, r, apierrors.ErrUnauthenticated)
				return
			}

			if !snap.User.HasRole(roles...) {
				log.From(r.Context()).Info("role_denied",
					slog.String("path", r.URL.Path),
					slog.String("role", string(snap.User.Role)),
				)
				apierrors.WriteError(w, r, apierrors.ErrPermissionDenied)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
