package session

import "github.com/Tuhin-SnapD/pricepilot/internal/models"

// State — состояние сессии.
type State int

const (
	Unauthenticated State = iota
	Restoring
	Authenticated
	RefreshingSilently
)

func (s State) String() string {
	switch s {
	case Unauthenticated:
		return "unauthenticated"
	case Restoring:
		return "restoring"
	case Authenticated:
		return "authenticated"
	case RefreshingSilently:
		return "refreshing_silently"
	default:
		return "unknown"
	}
}

// MarshalText — состояние уходит в JSON строкой.
func (s State) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

var allStates = []string{
	Unauthenticated.String(),
	Restoring.String(),
	Authenticated.String(),
	RefreshingSilently.String(),
}

// Snapshot — неизменяемый снимок опубликованного состояния сессии.
type Snapshot struct {
	State State        `json:"state"`
	User  *models.User `json:"user"`
}

// IsAuthenticated — пользователь присутствует.
func (s Snapshot) IsAuthenticated() bool { return s.User != nil }
