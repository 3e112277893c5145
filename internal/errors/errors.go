// errors стандартизирует ответы об ошибках локального HTTP-слоя.
// На вход принимает ошибку сессии, клиента ценового API или формы,
// на выход даёт HTTP-статус и безопасное сообщение для UI.
//
// Порядок проверок важен: сетевая ошибка внутри логина — это 503, а не 401.
package errors

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"net/http"

	"github.com/Tuhin-SnapD/pricepilot/internal/catalog"
	"github.com/Tuhin-SnapD/pricepilot/internal/clients"
	"github.com/Tuhin-SnapD/pricepilot/internal/forms"
	"github.com/Tuhin-SnapD/pricepilot/internal/session"
)

// Нестандартный код часто используемый для "клиент закрыл соединение".
const StatusClientClosedRequest = 499

var (
	// ErrUnauthenticated — локальная сессия не аутентифицирована.
	ErrUnauthenticated = stderrors.New("unauthenticated")
	// ErrPermissionDenied — роль пользователя не допущена к маршруту.
	ErrPermissionDenied = stderrors.New("permission denied")
	// ErrInvalidArgument — битый путь/запрос (id, JSON).
	ErrInvalidArgument = stderrors.New("invalid argument")
	// ErrSessionRestoring — сессия ещё поднимается из хранилища, вход рано.
	ErrSessionRestoring = stderrors.New("session is restoring")
)

// APIError — единый формат для UI.
// Fields заполняется для ошибок форм и регистрации.
type APIError struct {
	Code      string              `json:"code"`
	Message   string              `json:"message"`
	RequestID string              `json:"request_id,omitempty"`
	Fields    map[string][]string `json:"fields,omitempty"`
}

// ErrorResponse — корневой объект в ответе.
type ErrorResponse struct {
	Error APIError `json:"error"`
}

func resp(code, msg string) ErrorResponse {
	return ErrorResponse{Error: APIError{Code: code, Message: msg}}
}

// ToHTTP конвертирует ошибку в HTTP-статус и ответ для UI.
//   - err == nil — программная ошибка вызова: 500/internal.
//   - сетевая ошибка — 503 (504, если истёк дедлайн).
//   - ошибки сессии — 401, регистрации — 400 с полями.
//   - ответ ценового API — 400/403/404 как есть, 401 → 401, 5xx → 502.
func ToHTTP(err error) (int, ErrorResponse) {
	if err == nil {
		return http.StatusInternalServerError, resp("internal", "internal error")
	}

	var (
		ve  forms.ValidationError
		reg *session.RegistrationError
		ae  *session.AuthenticationError
		se  *clients.StatusError
	)

	switch {
	case stderrors.Is(err, clients.ErrNetwork):
		if stderrors.Is(err, context.DeadlineExceeded) {
			return http.StatusGatewayTimeout, resp("deadline_exceeded", "pricing api timed out")
		}
		if stderrors.Is(err, context.Canceled) {
			return StatusClientClosedRequest, resp("canceled", "canceled")
		}
		return http.StatusServiceUnavailable, resp("unavailable", "pricing api unavailable")

	case stderrors.As(err, &ve):
		r := resp("invalid_argument", "validation failed")
		r.Error.Fields = ve.Fields()
		return http.StatusBadRequest, r

	case stderrors.As(err, &reg):
		r := resp("registration_failed", reg.Message)
		r.Error.Fields = reg.Fields
		return http.StatusBadRequest, r

	case stderrors.As(err, &ae):
		msg := ae.Message
		if msg == "" {
			msg = "authentication failed"
		}
		return http.StatusUnauthorized, resp("unauthenticated", msg)

	case stderrors.Is(err, session.ErrNoRefreshToken),
		stderrors.Is(err, session.ErrRefreshFailed),
		stderrors.Is(err, ErrUnauthenticated):
		return http.StatusUnauthorized, resp("unauthenticated", "unauthenticated")

	case stderrors.Is(err, ErrSessionRestoring):
		return http.StatusServiceUnavailable, resp("unavailable", ErrSessionRestoring.Error())

	case stderrors.Is(err, ErrPermissionDenied):
		return http.StatusForbidden, resp("permission_denied", "permission denied")

	case stderrors.Is(err, ErrInvalidArgument):
		return http.StatusBadRequest, resp("invalid_argument", err.Error())

	case stderrors.Is(err, catalog.ErrUnknownSortKey):
		return http.StatusBadRequest, resp("invalid_argument", catalog.ErrUnknownSortKey.Error())

	case stderrors.As(err, &se):
		return fromStatus(se)

	case stderrors.Is(err, context.Canceled):
		return StatusClientClosedRequest, resp("canceled", "canceled")

	case stderrors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, resp("deadline_exceeded", "deadline exceeded")

	default:
		return http.StatusInternalServerError, resp("internal", "internal error")
	}
}

// fromStatus — ответ ценового API: клиентские коды отдаём как есть
// вместе с сообщением сервера, серверные прячем за 502.
func fromStatus(se *clients.StatusError) (int, ErrorResponse) {
	msg := se.Message()

	switch se.StatusCode {
	case http.StatusBadRequest:
		if msg == "" {
			msg = "invalid argument"
		}
		r := resp("invalid_argument", msg)
		if f := se.FieldErrors(); len(f) > 0 {
			r.Error.Fields = f
		}
		return http.StatusBadRequest, r
	case http.StatusUnauthorized:
		return http.StatusUnauthorized, resp("unauthenticated", "unauthenticated")
	case http.StatusForbidden:
		if msg == "" {
			msg = "permission denied"
		}
		return http.StatusForbidden, resp("permission_denied", msg)
	case http.StatusNotFound:
		if msg == "" {
			msg = "not found"
		}
		return http.StatusNotFound, resp("not_found", msg)
	}

	if se.StatusCode >= 500 {
		return http.StatusBadGateway, resp("upstream_error", "pricing api error")
	}

	return http.StatusInternalServerError, resp("internal", "internal error")
}

// WriteError — хелпер для HTTP-хендлеров.
// Пишет статус/тело, добавляет request_id из заголовка, если он есть.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	status, resp := ToHTTP(err)

	if rid := r.Header.Get("X-Request-Id"); rid != "" {
		resp.Error.RequestID = rid
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}
