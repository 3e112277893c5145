// Модели запросов/ответов удалённого /users/* API.
package models

import "encoding/json"

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResponse покрывает оба формата ответа логина:
// кастомный {success, access, refresh, user} и стандартный JWT {access, refresh}.
// User остаётся сырым: профиль разбирает сессия.
type LoginResponse struct {
	Success bool            `json:"success,omitempty"`
	Access  string          `json:"access"`
	Refresh string          `json:"refresh"`
	User    json.RawMessage `json:"user,omitempty"`
}

type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     Role   `json:"role"`
}

type RefreshRequest struct {
	Refresh string `json:"refresh"`
}

// RefreshResponse — refresh присутствует только при ротации на сервере.
type RefreshResponse struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh,omitempty"`
}
