package session

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// ErrAuthentication — неверные учётные данные или ответ логина без токенов.
	// Транспорт: HTTP 401.
	ErrAuthentication = errors.New("authentication failed")

	// ErrRegistration — сервер отклонил регистрацию. Транспорт: HTTP 400.
	ErrRegistration = errors.New("registration failed")

	// ErrNoRefreshToken — обновление запрошено, а refresh-токена нет.
	// Удалённый вызов не делается, logout не выполняется. Транспорт: HTTP 401.
	ErrNoRefreshToken = errors.New("no refresh token")

	// ErrRefreshFailed — сервер отклонил refresh-токен (или недоступен).
	// Сессия к этому моменту уже сброшена. Транспорт: HTTP 401.
	ErrRefreshFailed = errors.New("token refresh failed")
)

// AuthenticationError — неудачный логин. Message — сообщение сервера, если было.
type AuthenticationError struct {
	Message string
	Err     error
}

func (e *AuthenticationError) Error() string {
	if e.Message == "" {
		return ErrAuthentication.Error()
	}

	return fmt.Sprintf("%s: %s", ErrAuthentication, e.Message)
}

func (e *AuthenticationError) Unwrap() error        { return e.Err }
func (e *AuthenticationError) Is(target error) bool { return target == ErrAuthentication }

// RegistrationError — неудачная регистрация с сообщениями по полям
// (username, email, password, role, non_field_errors).
type RegistrationError struct {
	Message string
	Fields  map[string][]string
	Err     error
}

func (e *RegistrationError) Error() string {
	return fmt.Sprintf("%s: %s", ErrRegistration, e.Message)
}

func (e *RegistrationError) Unwrap() error        { return e.Err }
func (e *RegistrationError) Is(target error) bool { return target == ErrRegistration }

// Field — сообщения для конкретного поля, склеенные через ", ".
func (e *RegistrationError) Field(name string) string {
	return strings.Join(e.Fields[name], ", ")
}

// RefreshFailedError — обновление токена не удалось.
type RefreshFailedError struct {
	Err error
}

func (e *RefreshFailedError) Error() string {
	if e.Err == nil {
		return ErrRefreshFailed.Error()
	}

	return fmt.Sprintf("%s: %v", ErrRefreshFailed, e.Err)
}

func (e *RefreshFailedError) Unwrap() error        { return e.Err }
func (e *RefreshFailedError) Is(target error) bool { return target == ErrRefreshFailed }

// registrationFields — порядок, в котором поле попадает в общее сообщение.
var registrationFields = []string{"username", "email", "password", "role", "non_field_errors"}

// registrationMessage строит сообщение «Username: ...» по первому полю с ошибкой.
func registrationMessage(fields map[string][]string, fallback string) string {
	for _, f := range registrationFields {
		msgs := fields[f]
		if len(msgs) == 0 {
			continue
		}
		if f == "non_field_errors" {
			return strings.Join(msgs, ", ")
		}

		return strings.ToUpper(f[:1]) + f[1:] + ": " + strings.Join(msgs, ", ")
	}

	// Прочие поля — в алфавитном порядке.
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

	return fallback
}
