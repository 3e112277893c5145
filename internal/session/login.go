package session

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/Tuhin-SnapD/pricepilot/internal/clients"
	"github.com/Tuhin-SnapD/pricepilot/internal/models"
	"github.com/Tuhin-SnapD/pricepilot/internal/pkg/log"
	"github.com/Tuhin-SnapD/pricepilot/internal/pkg/redact"
)

const networkMessage = "network error"

// Login выполняет вход и переводит сессию в Authenticated.
//
// Ответ обязан содержать оба токена. Профиль берётся из ответа; если его
// нет — из /users/me/; если и это не удалось — подставляется минимальный
// профиль {username, DefaultRole}. При любой ошибке возвращается
// *AuthenticationError, хранилище и состояние не меняются.
func (m *Manager) Login(ctx context.Context, username, password string) (*models.User, error) {
	const op = "session.Login"

	ctx = log.With(ctx, slog.String("op", op), slog.String("username", username))
	lg := log.From(ctx)

	call, err := clients.NewCall(http.MethodPost, pathLogin, models.LoginRequest{
		Username: username,
		Password: password,
	})
	if err != nil {
		return nil, &AuthenticationError{Err: err}
	}
	call.NoRefresh = true

	var resp models.LoginResponse
	if err := m.api.DoJSON(ctx, call, &resp); err != nil {
		lg.Info("login_failed", slog.String("err", err.Error()))
		return nil, authError(err)
	}

	if resp.Access == "" || resp.Refresh == "" {
		lg.Warn("login_missing_tokens",
			slog.Bool("has_access", resp.Access != ""),
			slog.Bool("has_refresh", resp.Refresh != ""),
		)
		return nil, &AuthenticationError{Message: "missing tokens in response"}
	}

	user, err := decodeProfile(resp.User)
	if err != nil {
		u, err := m.fetchProfile(ctx, resp.Access)
		if err != nil {
			lg.Warn("login_profile_degraded", slog.String("err", err.Error()))
			u = &models.User{Username: username, Role: models.DefaultRole}
		}
		user = u
	}

	m.begin(ctx, models.TokenPair{Access: resp.Access, Refresh: resp.Refresh}, user)
	lg.Info("login_ok",
		slog.String("role", string(user.Role)),
		slog.String("access", redact.TokenTail(resp.Access)),
	)

	return user.Clone(), nil
}

func authError(err error) *AuthenticationError {
	if errors.Is(err, clients.ErrNetwork) {
		return &AuthenticationError{Message: networkMessage, Err: err}
	}

	if se, ok := clients.AsStatus(err); ok {
		return &AuthenticationError{Message: se.Message(), Err: err}
	}

	return &AuthenticationError{Err: err}
}

// Register регистрирует пользователя. Сессию не меняет: после успеха
// вызывающий отдельно делает Login.
func (m *Manager) Register(ctx context.Context, username, email, password string, role models.Role) error {
	const op = "session.Register"

	ctx = log.With(ctx, slog.String("op", op), slog.String("username", username))
	lg := log.From(ctx)

	call, err := clients.NewCall(http.MethodPost, pathRegister, models.RegisterRequest{
		Username: username,
		Email:    email,
		Password: password,
		Role:     role,
	})
	if err != nil {
		return &RegistrationError{Message: ErrRegistration.Error(), Err: err}
	}
	call.NoRefresh = true

	if err := m.api.DoJSON(ctx, call, nil); err != nil {
		lg.Info("register_failed",
			slog.String("email", redact.Email(email)),
			slog.String("err", err.Error()),
		)
		return registrationError(err)
	}

	lg.Info("register_ok", slog.String("email", redact.Email(email)))

	return nil
}

func registrationError(err error) *RegistrationError {
	if errors.Is(err, clients.ErrNetwork) {
		return &RegistrationError{Message: networkMessage, Err: err}
	}

	se, ok := clients.AsStatus(err)
	if !ok {
		return &RegistrationError{Message: ErrRegistration.Error(), Err: err}
	}

	fallback := se.Message()
	if fallback == "" {
		fallback = ErrRegistration.Error()
	}
	fields := se.FieldErrors()

	return &RegistrationError{
		Message: registrationMessage(fields, fallback),
		Fields:  fields,
		Err:     err,
	}
}
