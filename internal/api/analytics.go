package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/Tuhin-SnapD/pricepilot/internal/models"
)

// Аналитика считается на сервере; ответы отдаются как есть.

func (c *Client) DemandForecast(ctx context.Context) (json.RawMessage, error) {
	return c.raw(ctx, "api.DemandForecast", "/products/forecast/", nil)
}

func (c *Client) AdvancedForecast(ctx context.Context, productID int64) (json.RawMessage, error) {
	q := url.Values{"product_id": {strconv.FormatInt(productID, 10)}}
	return c.raw(ctx, "api.AdvancedForecast", "/products/advanced-forecast/", q)
}

func (c *Client) OptimizePricing(ctx context.Context) (json.RawMessage, error) {
	return c.raw(ctx, "api.OptimizePricing", "/products/optimize/", nil)
}

func (c *Client) ElasticityHeatmap(ctx context.Context) (json.RawMessage, error) {
	return c.raw(ctx, "api.ElasticityHeatmap", "/products/elasticity-heatmap/", nil)
}

func (c *Client) InventoryAnalysis(ctx context.Context) (json.RawMessage, error) {
	return c.raw(ctx, "api.InventoryAnalysis", "/products/inventory-analysis/", nil)
}

func (c *Client) OptimizationDashboard(ctx context.Context) (json.RawMessage, error) {
	return c.raw(ctx, "api.OptimizationDashboard", "/products/optimization-dashboard/", nil)
}

func (c *Client) MLOptimize(ctx context.Context, req models.MLOptimizeRequest) (json.RawMessage, error) {
	return c.post(ctx, "api.MLOptimize", "/products/ml-optimize/", req)
}

func (c *Client) ABTest(ctx context.Context, req models.ABTestRequest) (json.RawMessage, error) {
	return c.post(ctx, "api.ABTest", "/products/ab-testing/", req)
}

func (c *Client) BatchOptimize(ctx context.Context, req models.BatchOptimizeRequest) (json.RawMessage, error) {
	return c.post(ctx, "api.BatchOptimize", "/products/batch-optimize/", req)
}

func (c *Client) raw(ctx context.Context, op, path string, q url.Values) (json.RawMessage, error) {
	var out json.RawMessage
	if err := c.get(ctx, path, q, &out); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return out, nil
}

func (c *Client) post(ctx context.Context, op, path string, in any) (json.RawMessage, error) {
	var out json.RawMessage
	if err := c.send(ctx, http.MethodPost, path, in, &out); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return out, nil
}
