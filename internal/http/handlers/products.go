package handlers

import (
	"net/http"
	"strconv"

	"github.com/Tuhin-SnapD/pricepilot/internal/api"
	"github.com/Tuhin-SnapD/pricepilot/internal/catalog"
	apierrors "github.com/Tuhin-SnapD/pricepilot/internal/errors"
	"github.com/Tuhin-SnapD/pricepilot/internal/forms"
	"github.com/Tuhin-SnapD/pricepilot/internal/models"
)

type listResponse struct {
	Count int              `json:"count"`
	Data  []models.Product `json:"data"`
}

// ListProducts: ?name=&category=&sort=&desc=true.
// Имя фильтрует и сервер, категорию сервер сравнивает с учётом регистра,
// поэтому она применяется только локально.
func (h *Handlers) ListProducts(w http.ResponseWriter, r *http.Request) {
	qs := r.URL.Query()
	q := catalog.Query{
		Name:     qs.Get("name"),
		Category: qs.Get("category"),
		SortBy:   qs.Get("sort"),
	}
	if v := qs.Get("desc"); v != "" {
		desc, err := strconv.ParseBool(v)
		if err != nil {
			apierrors.WriteError(w, r, apierrors.ErrInvalidArgument)
			return
		}
		q.Desc = desc
	}

	items, err := h.API.ListProducts(r.Context(), api.ProductFilter{Name: q.Name})
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	out, err := catalog.Apply(items, q)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, listResponse{Count: len(out), Data: out})
}

func (h *Handlers) GetProduct(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	p, err := h.API.GetProduct(r.Context(), id)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, p)
}

func (h *Handlers) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var in forms.Product
	if err := decodeForm(w, r, &in); err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	p, err := h.API.CreateProduct(r.Context(), in.Input())
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, p)
}

func (h *Handlers) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	var in forms.Product
	if err := decodeForm(w, r, &in); err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	p, err := h.API.UpdateProduct(r.Context(), id, in.Input())
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, p)
}

func (h *Handlers) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	if err := h.API.DeleteProduct(r.Context(), id); err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
