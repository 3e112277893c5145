// handlers — REST-эндпойнты локального BFF: сессия, товары, аналитика.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/Tuhin-SnapD/pricepilot/internal/api"
	apierrors "github.com/Tuhin-SnapD/pricepilot/internal/errors"
	"github.com/Tuhin-SnapD/pricepilot/internal/forms"
	"github.com/Tuhin-SnapD/pricepilot/internal/models"
	"github.com/Tuhin-SnapD/pricepilot/internal/session"
	"github.com/go-chi/chi/v5"
)

// Session — то, что хендлерам нужно от session.Manager.
type Session interface {
	Login(ctx context.Context, username, password string) (*models.User, error)
	Register(ctx context.Context, username, email, password string, role models.Role) error
	Logout(ctx context.Context)
	Snapshot() session.Snapshot
	Subscribe() (<-chan session.Snapshot, func())
}

// Handlers агрегирует зависимости.
type Handlers struct {
	Session Session
	API     *api.Client
	ws      wsOptions
}

// Option — функциональная опция хендлеров.
type Option func(*Handlers)

// WithAllowedOrigins — origin'ы браузера, которым разрешён websocket.
func WithAllowedOrigins(origins []string) Option {
	return func(h *Handlers) { h.ws.patterns = originPatterns(origins) }
}

// WithDone — сигнал остановки процесса для долгоживущих websocket-соединений.
func WithDone(done <-chan struct{}) Option {
	return func(h *Handlers) { h.ws.done = done }
}

func New(s Session, c *api.Client, opts ...Option) *Handlers {
	h := &Handlers{Session: s, API: c, ws: defaultWSOptions()}
	for _, o := range opts {
		o(h)
	}

	return h
}

// writeJSON — единый ответ JSON с нужным Content-Type.
// Ошибки выводим через apierrors.WriteError.
func writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(value)
}

// maxBodyBytes — предел тела запроса от UI.
const maxBodyBytes = 1 << 20

// decodeForm — строгий JSON-декодер плюс проверка формы.
func decodeForm(w http.ResponseWriter, r *http.Request, form any) error {
	if err := decodeBody(w, r, form); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return fmt.Errorf("%w: request body too large", apierrors.ErrInvalidArgument)
		}
		return fmt.Errorf("%w: malformed json body", apierrors.ErrInvalidArgument)
	}

	return forms.Validate(form)
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: product id", apierrors.ErrInvalidArgument)
	}

	return id, nil
}
