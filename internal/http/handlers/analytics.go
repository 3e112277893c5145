package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	apierrors "github.com/Tuhin-SnapD/pricepilot/internal/errors"
	"github.com/Tuhin-SnapD/pricepilot/internal/forms"
)

// Аналитика проксируется как есть: BFF не разбирает ответы.

func (h *Handlers) passthrough(fetch func(ctx context.Context) (json.RawMessage, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		raw, err := fetch(r.Context())
		if err != nil {
			apierrors.WriteError(w, r, err)
			return
		}

		writeJSON(w, http.StatusOK, raw)
	}
}

func (h *Handlers) DemandForecast() http.HandlerFunc {
	return h.passthrough(h.API.DemandForecast)
}

func (h *Handlers) OptimizePricing() http.HandlerFunc {
	return h.passthrough(h.API.OptimizePricing)
}

func (h *Handlers) ElasticityHeatmap() http.HandlerFunc {
	return h.passthrough(h.API.ElasticityHeatmap)
}

func (h *Handlers) InventoryAnalysis() http.HandlerFunc {
	return h.passthrough(h.API.InventoryAnalysis)
}

func (h *Handlers) OptimizationDashboard() http.HandlerFunc {
	return h.passthrough(h.API.OptimizationDashboard)
}

// AdvancedForecast: ?product_id= обязателен.
func (h *Handlers) AdvancedForecast(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.URL.Query().Get("product_id"), 10, 64)
	if err != nil || id <= 0 {
		apierrors.WriteError(w, r, fmt.Errorf("%w: product_id", apierrors.ErrInvalidArgument))
		return
	}

	h.passthrough(func(ctx context.Context) (json.RawMessage, error) {
		return h.API.AdvancedForecast(ctx, id)
	})(w, r)
}

func (h *Handlers) MLOptimize(w http.ResponseWriter, r *http.Request) {
	var in forms.MLOptimize
	if err := decodeForm(w, r, &in); err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	h.passthrough(func(ctx context.Context) (json.RawMessage, error) {
		return h.API.MLOptimize(ctx, in.Request())
	})(w, r)
}

func (h *Handlers) ABTest(w http.ResponseWriter, r *http.Request) {
	var in forms.ABTest
	if err := decodeForm(w, r, &in); err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	h.passthrough(func(ctx context.Context) (json.RawMessage, error) {
		return h.API.ABTest(ctx, in.Request())
	})(w, r)
}

func (h *Handlers) BatchOptimize(w http.ResponseWriter, r *http.Request) {
	var in forms.BatchOptimize
	if err := decodeForm(w, r, &in); err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	h.passthrough(func(ctx context.Context) (json.RawMessage, error) {
		return h.API.BatchOptimize(ctx, in.Request())
	})(w, r)
}
