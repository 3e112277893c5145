package handlers

import (
	"net/http"

	apierrors "github.com/Tuhin-SnapD/pricepilot/internal/errors"
	"github.com/Tuhin-SnapD/pricepilot/internal/forms"
	"github.com/Tuhin-SnapD/pricepilot/internal/models"
	"github.com/Tuhin-SnapD/pricepilot/internal/session"
)

type loginResponse struct {
	User  *models.User  `json:"user"`
	State session.State `json:"state"`
}

type registerResponse struct {
	Username string      `json:"username"`
	Role     models.Role `json:"role"`
}

// Login отклоняется, пока идёт восстановление: его итог затёр бы новый вход.
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	switch h.Session.Snapshot().State {
	case session.Restoring, session.RefreshingSilently:
		apierrors.WriteError(w, r, apierrors.ErrSessionRestoring)
		return
	}

	var in forms.Login
	if err := decodeForm(w, r, &in); err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	user, err := h.Session.Login(r.Context(), in.Username, in.Password)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, loginResponse{User: user, State: h.Session.Snapshot().State})
}

// Register не создаёт сессию: UI после 201 отправляет пользователя на вход.
func (h *Handlers) Register(w http.ResponseWriter, r *http.Request) {
	var in forms.Register
	if err := decodeForm(w, r, &in); err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	if err := h.Session.Register(r.Context(), in.Username, in.Email, in.Password, in.Role); err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, registerResponse{Username: in.Username, Role: in.Role})
}

func (h *Handlers) Logout(w http.ResponseWriter, r *http.Request) {
	h.Session.Logout(r.Context())
	w.WriteHeader(http.StatusNoContent)
}

// CurrentSession — текущий опубликованный снимок.
func (h *Handlers) CurrentSession(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.Session.Snapshot())
}
