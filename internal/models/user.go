package models

import "encoding/json"

// Role — роль пользователя на стороне ценового API.
type Role string

const (
	RoleBuyer    Role = "buyer"
	RoleSupplier Role = "supplier"
	RoleAdmin    Role = "admin"
)

// DefaultRole подставляется в деградированный профиль, когда после успешного
// входа не удалось получить /users/me/. Выбрана роль с минимальными правами.
const DefaultRole = RoleBuyer

// Valid сообщает, входит ли роль в известный набор.
func (r Role) Valid() bool {
	switch r {
	case RoleBuyer, RoleSupplier, RoleAdmin:
		return true
	default:
		return false
	}
}

// User — локальное представление текущего пользователя (Session User).
// Profile — профиль с сервера целиком; сессия его не разбирает, UI получает
// как есть.
type User struct {
	ID       int64           `json:"id,omitempty"`
	Username string          `json:"username"`
	Email    string          `json:"email,omitempty"`
	Role     Role            `json:"role"`
	Profile  json.RawMessage `json:"profile,omitempty"`
}

// Clone возвращает независимую копию (nil-безопасно).
func (u *User) Clone() *User {
	if u == nil {
		return nil
	}

	cp := *u
	if u.Profile != nil {
		cp.Profile = append(json.RawMessage(nil), u.Profile...)
	}
	return &cp
}

// HasRole проверяет, что роль пользователя входит в allowed.
func (u *User) HasRole(allowed ...Role) bool {
	if u == nil {
		return false
	}

	for _, r := range allowed {
		if u.Role == r {
			return true
		}
	}

	return false
}
