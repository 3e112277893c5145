// api — типизированный клиент удалённого /products/* API поверх clients.Client.
//
// Ответы сервера бывают двух форм: конверт {success, data[, count]} и
// «голое» значение. decode понимает обе. Аналитические ответы не
// разбираются и отдаются как json.RawMessage.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/Tuhin-SnapD/pricepilot/internal/clients"
	"github.com/Tuhin-SnapD/pricepilot/internal/models"
)

// Doer — clients.Client.
type Doer interface {
	DoJSON(ctx context.Context, call *clients.Call, out any) error
}

// Client — клиент ценового API.
type Client struct {
	d Doer
}

func New(d Doer) *Client { return &Client{d: d} }

// ProductFilter — серверная фильтрация списка.
type ProductFilter struct {
	Name     string
	Category string
}

func (f ProductFilter) query() url.Values {
	q := url.Values{}
	if f.Name != "" {
		q.Set("name", f.Name)
	}
	if f.Category != "" {
		q.Set("category", f.Category)
	}

	return q
}

func (c *Client) ListProducts(ctx context.Context, f ProductFilter) ([]models.Product, error) {
	const op = "api.ListProducts"

	var out []models.Product
	if err := c.get(ctx, "/products/", f.query(), &out); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return out, nil
}

func (c *Client) GetProduct(ctx context.Context, id int64) (*models.Product, error) {
	const op = "api.GetProduct"

	var p models.Product
	if err := c.get(ctx, productPath(id), nil, &p); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &p, nil
}

func (c *Client) CreateProduct(ctx context.Context, in models.ProductInput) (*models.Product, error) {
	const op = "api.CreateProduct"

	var p models.Product
	if err := c.send(ctx, http.MethodPost, "/products/", in, &p); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &p, nil
}

func (c *Client) UpdateProduct(ctx context.Context, id int64, in models.ProductInput) (*models.Product, error) {
	const op = "api.UpdateProduct"

	var p models.Product
	if err := c.send(ctx, http.MethodPut, productPath(id), in, &p); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &p, nil
}

func (c *Client) DeleteProduct(ctx context.Context, id int64) error {
	const op = "api.DeleteProduct"

	if err := c.d.DoJSON(ctx, &clients.Call{Method: http.MethodDelete, Path: productPath(id)}, nil); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func productPath(id int64) string { return "/products/" + strconv.FormatInt(id, 10) + "/" }

// get — GET с распаковкой конверта.
func (c *Client) get(ctx context.Context, path string, q url.Values, out any) error {
	var raw json.RawMessage
	if err := c.d.DoJSON(ctx, &clients.Call{Method: http.MethodGet, Path: path, Query: q}, &raw); err != nil {
		return err
	}

	return decode(raw, out)
}

// send — POST/PUT с JSON-телом и распаковкой конверта.
func (c *Client) send(ctx context.Context, method, path string, in, out any) error {
	call, err := clients.NewCall(method, path, in)
	if err != nil {
		return err
	}

	var raw json.RawMessage
	if err := c.d.DoJSON(ctx, call, &raw); err != nil {
		return err
	}
	if out == nil {
		return nil
	}

	return decode(raw, out)
}

// decode снимает конверт {success, data}, если он есть.
func decode(raw json.RawMessage, out any) error {
	if len(raw) == 0 {
		return nil
	}

	var env struct {
		Success *bool           `json:"success"`
		Data    json.RawMessage `json:"data"`
	}
	if raw[0] == '{' {
		if err := json.Unmarshal(raw, &env); err == nil && env.Success != nil && len(env.Data) > 0 {
			raw = env.Data
		}
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode: %w", err)
	}

	return nil
}
