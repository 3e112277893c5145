package clients

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
)

// Call — описание одного логического запроса к удалённому API.
//
// Тело хранится байтами, чтобы вызов можно было безопасно отправить повторно.
// Интерсепторы не мутируют чужой Call: для изменений делается Clone().
type Call struct {
	Method string
	// Path — путь относительно base URL, например "/users/me/".
	Path   string
	Query  url.Values
	Body   []byte
	Header http.Header

	// Retried — вызов уже повторялся после обновления токена.
	Retried bool
	// NoRefresh — 401 на этот вызов не запускает обновление токена
	// (логин, регистрация, сам refresh, восстановление профиля).
	NoRefresh bool
	// Token — явный access-токен; если задан, хранилище не читается.
	Token string
}

// NewCall собирает вызов; in кодируется в JSON, если не nil.
func NewCall(method, path string, in any) (*Call, error) {
	c := &Call{Method: method, Path: path}
	if in == nil {
		return c, nil
	}

	body, err := json.Marshal(in)
	if err != nil {
		return nil, fmt.Errorf("clients.NewCall: %w", err)
	}
	c.Body = body

	return c, nil
}

// Clone возвращает независимую копию вызова.
func (c *Call) Clone() *Call {
	cp := *c
	if c.Query != nil {
		cp.Query = make(url.Values, len(c.Query))
		for k, v := range c.Query {
			cp.Query[k] = append([]string(nil), v...)
		}
	}
	if c.Header != nil {
		cp.Header = c.Header.Clone()
	}
	if c.Body != nil {
		cp.Body = append([]byte(nil), c.Body...)
	}

	return &cp
}

// String — "METHOD /path" для логов и ошибок.
func (c *Call) String() string { return c.Method + " " + c.Path }
