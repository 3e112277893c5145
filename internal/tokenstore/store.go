// tokenstore хранит единственную активную пару токенов клиента
// (access_token/refresh_token) между запусками процесса.
//
// Основные аспекты:
//   - Save перезаписывает пару целиком, формат токенов не проверяется;
//   - Load возвращает ok=false, если пара ни разу не сохранялась или очищена;
//   - Clear идемпотентен;
//   - все реализации безопасны для конкурентного использования.
package tokenstore

import (
	"context"
	"errors"

	"github.com/Tuhin-SnapD/pricepilot/internal/models"
)

const (
	// KeyAccess / KeyRefresh — фиксированные ключи хранилища.
	KeyAccess  = "access_token"
	KeyRefresh = "refresh_token"
)

// ErrUnknownDriver — в конфиге указан неподдерживаемый драйвер хранилища.
var ErrUnknownDriver = errors.New("unknown token store driver")

// Store задаёт контракт хранилища пары токенов.
type Store interface {
	// Save перезаписывает сохранённую пару.
	Save(ctx context.Context, pair models.TokenPair) error
	// Load возвращает сохранённую пару и признак её наличия.
	Load(ctx context.Context) (models.TokenPair, bool, error)
	// Clear удаляет оба токена.
	Clear(ctx context.Context) error
	// Close освобождает ресурсы backend'а.
	Close() error
}
