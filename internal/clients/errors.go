package clients

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
)

// ErrNetwork — ответ от сервера не получен (соединение, DNS, таймаут).
var ErrNetwork = errors.New("network error")

// NetworkError — транспортная ошибка конкретного вызова.
type NetworkError struct {
	Call string
	Err  error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Call, ErrNetwork, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

func (e *NetworkError) Is(target error) bool { return target == ErrNetwork }

// StatusError — сервер ответил не-2xx.
type StatusError struct {
	Call       string
	StatusCode int
	Body       []byte
}

func (e *StatusError) Error() string {
	msg := e.Message()
	if msg == "" {
		msg = http.StatusText(e.StatusCode)
	}

	return fmt.Sprintf("%s: status %d: %s", e.Call, e.StatusCode, msg)
}

// Unauthorized — 401 от сервера.
func (e *StatusError) Unauthorized() bool { return e.StatusCode == http.StatusUnauthorized }

// Message возвращает человекочитаемое сообщение сервера.
// Порядок: detail, error, message, non_field_errors, первая ошибка поля.
func (e *StatusError) Message() string {
	obj, ok := e.object()
	if !ok {
		// Тело-строка: "Invalid token".
		var str string
		if json.Unmarshal(e.Body, &str) == nil {
			return str
		}
		return ""
	}

	for _, k := range []string{"detail", "error", "message"} {
		if s := asString(obj[k]); s != "" {
			return s
		}
	}

	if v, ok := obj["non_field_errors"]; ok {
		if list := asStrings(v); len(list) > 0 {
			return strings.Join(list, ", ")
		}
	}

	fields := e.FieldErrors()
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if len(fields[k]) > 0 {
			return k + ": " + strings.Join(fields[k], ", ")
		}
	}

	return ""
}

// FieldErrors — ошибки валидации по полям ({"email": ["..."]}).
func (e *StatusError) FieldErrors() map[string][]string {
	obj, ok := e.object()
	if !ok {
		return nil
	}

	out := make(map[string][]string)
	for k, v := range obj {
		switch k {
		case "detail", "error", "message", "success", "code":
			continue
		}
		if list := asStrings(v); len(list) > 0 {
			out[k] = list
		}
	}

	if len(out) == 0 {
		return nil
	}

	return out
}

func (e *StatusError) object() (map[string]json.RawMessage, bool) {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(e.Body, &obj); err != nil {
		return nil, false
	}

	return obj, true
}

func asString(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}

	// {"error": {"message": "..."}}
	var nested struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(raw, &nested); err == nil {
		return nested.Message
	}

	return ""
}

func asStrings(raw json.RawMessage) []string {
	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		return list
	}

	if s := asString(raw); s != "" {
		return []string{s}
	}

	return nil
}

// AsStatus — удобная распаковка StatusError.
func AsStatus(err error) (*StatusError, bool) {
	var se *StatusError
	if errors.As(err, &se) {
		return se, true
	}

	return nil, false
}
