// clients — единая точка исходящих вызовов к удалённому API PricePilot.
//
// Основные аспекты:
//   - каждый вызов проходит явную упорядоченную цепочку интерсепторов
//     (порядок регистрации = порядок снаружи внутрь);
//   - самый внутренний шаг перед транспортом — подстановка
//     Authorization: Bearer <access> из хранилища токенов, поэтому повторная
//     отправка вызова всегда получает актуальный токен;
//   - сам клиент ничего не повторяет: повтор после обновления токена —
//     задача интерсептора (см. interceptors.RetryAfterRefresh).
package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/Tuhin-SnapD/pricepilot/internal/models"
	"github.com/Tuhin-SnapD/pricepilot/internal/pkg/log"
)

// maxErrorBody — сколько байт тела не-2xx ответа читаем в StatusError.
const maxErrorBody = 64 << 10

// Invoker отправляет вызов дальше по цепочке.
type Invoker func(ctx context.Context, call *Call) (*http.Response, error)

// Interceptor — звено цепочки. Может изменить копию вызова, ответ,
// или отправить вызов повторно через next.
type Interceptor func(ctx context.Context, call *Call, next Invoker) (*http.Response, error)

// TokenSource — то, откуда клиент берёт текущий access-токен.
// tokenstore.Store удовлетворяет этому интерфейсу.
type TokenSource interface {
	Load(ctx context.Context) (models.TokenPair, bool, error)
}

// Client — HTTP-клиент удалённого API.
type Client struct {
	base   string
	hc     *http.Client
	tokens TokenSource

	mu    sync.RWMutex
	chain []Interceptor
}

// Option — функциональная опция клиента.
type Option func(*Client)

// WithHTTPClient подменяет транспортный *http.Client (по умолчанию http.DefaultClient).
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.hc = hc
		}
	}
}

// WithInterceptors регистрирует интерсепторы при создании.
func WithInterceptors(ics ...Interceptor) Option {
	return func(c *Client) { c.chain = append(c.chain, ics...) }
}

// New создаёт клиент. baseURL — корень API, например http://localhost:8000/api.
func New(baseURL string, tokens TokenSource, opts ...Option) (*Client, error) {
	const op = "clients.New"

	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("%s: unsupported scheme %q", op, u.Scheme)
	}

	c := &Client{
		base:   strings.TrimRight(u.String(), "/"),
		hc:     http.DefaultClient,
		tokens: tokens,
	}
	for _, o := range opts {
		o(c)
	}

	return c, nil
}

// Use добавляет интерсепторы в конец цепочки (внутрь относительно уже
// зарегистрированных). Безопасен для вызова после старта.
func (c *Client) Use(ics ...Interceptor) {
	c.mu.Lock()
	c.chain = append(c.chain, ics...)
	c.mu.Unlock()
}

// Do отправляет вызов через цепочку и возвращает сырой ответ.
// Тело ответа закрывает вызывающий.
func (c *Client) Do(ctx context.Context, call *Call) (*http.Response, error) {
	c.mu.RLock()
	chain := append([]Interceptor(nil), c.chain...)
	c.mu.RUnlock()

	next := c.send
	for i := len(chain) - 1; i >= 0; i-- {
		ic, inner := chain[i], next
		next = func(ctx context.Context, call *Call) (*http.Response, error) {
			return ic(ctx, call, inner)
		}
	}

	return next(ctx, call)
}

// DoJSON отправляет вызов и декодирует 2xx-ответ в out (если out != nil).
// Не-2xx → *StatusError, ответ не получен → *NetworkError.
func (c *Client) DoJSON(ctx context.Context, call *Call, out any) error {
	resp, err := c.Do(ctx, call)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &StatusError{Call: call.String(), StatusCode: resp.StatusCode, Body: body}
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	if raw, ok := out.(*json.RawMessage); ok {
		b, err := io.ReadAll(resp.Body)
		if err != nil {
			return &NetworkError{Call: call.String(), Err: err}
		}
		*raw = b
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("%s: decode response: %w", call, err)
	}

	return nil
}

// send — самый внутренний шаг: сборка http.Request, bearer, транспорт.
func (c *Client) send(ctx context.Context, call *Call) (*http.Response, error) {
	target := c.base + call.Path
	if len(call.Query) > 0 {
		target += "?" + call.Query.Encode()
	}

	var body io.Reader
	if call.Body != nil {
		body = bytes.NewReader(call.Body)
	}

	req, err := http.NewRequestWithContext(ctx, call.Method, target, body)
	if err != nil {
		return nil, fmt.Errorf("%s: build request: %w", call, err)
	}

	for k, v := range call.Header {
		req.Header[k] = append([]string(nil), v...)
	}
	if call.Body != nil && req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if req.Header.Get("Accept") == "" {
		req.Header.Set("Accept", "application/json")
	}

	if tok := c.accessToken(ctx, call); tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, &NetworkError{Call: call.String(), Err: err}
	}

	return resp, nil
}

func (c *Client) accessToken(ctx context.Context, call *Call) string {
	if call.Token != "" {
		return call.Token
	}
	if c.tokens == nil {
		return ""
	}

	pair, ok, err := c.tokens.Load(ctx)
	if err != nil {
		// Хранилище недоступно — отправляем без токена, сервер ответит 401.
		log.From(ctx).Warn("token_load_failed",
			slog.String("call", call.String()),
			slog.String("err", err.Error()),
		)
		return ""
	}
	if !ok {
		return ""
	}

	return pair.Access
}
