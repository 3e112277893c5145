package tokenstore

import (
	"context"
	"fmt"

	"github.com/Tuhin-SnapD/pricepilot/internal/config"
)

// Open создаёт хранилище по секции tokens конфига.
func Open(ctx context.Context, cfg config.TokensConfig) (Store, error) {
	switch cfg.Driver {
	case "", "memory":
		return NewMemory(), nil
	case "file":
		return NewFile(cfg.FilePath)
	case "redis":
		return NewRedis(ctx, cfg.RedisURL, cfg.RedisPrefix)
	default:
		return nil, fmt.Errorf("tokenstore.Open: %w: %q", ErrUnknownDriver, cfg.Driver)
	}
}
