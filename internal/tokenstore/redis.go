package tokenstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/Tuhin-SnapD/pricepilot/internal/models"
	"github.com/redis/go-redis/v9"
)

// DefaultRedisPrefix — префикс ключей по умолчанию.
const DefaultRedisPrefix = "pricepilot:session:"

// Redis хранит токены двумя строковыми ключами <prefix>access_token и
// <prefix>refresh_token. Save пишет оба ключа в одном MULTI/EXEC.
type Redis struct {
	rdb    *redis.Client
	prefix string
}

// NewRedis создаёт клиент Redis из URL (например, redis://:pass@host:6379/0)
// и проверяет соединение. Пустой prefix заменяется на DefaultRedisPrefix.
func NewRedis(ctx context.Context, redisURL, prefix string) (*Redis, error) {
	const op = "tokenstore.NewRedis"

	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	rdb := redis.NewClient(opt)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return NewRedisFromClient(rdb, prefix), nil
}

// NewRedisFromClient оборачивает готовый клиент.
func NewRedisFromClient(rdb *redis.Client, prefix string) *Redis {
	if prefix == "" {
		prefix = DefaultRedisPrefix
	}

	return &Redis{rdb: rdb, prefix: prefix}
}

func (r *Redis) key(name string) string { return r.prefix + name }

func (r *Redis) Save(ctx context.Context, pair models.TokenPair) error {
	const op = "tokenstore.Redis.Save"

	pipe := r.rdb.TxPipeline()
	pipe.Set(ctx, r.key(KeyAccess), pair.Access, 0)
	pipe.Set(ctx, r.key(KeyRefresh), pair.Refresh, 0)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (r *Redis) Load(ctx context.Context) (models.TokenPair, bool, error) {
	const op = "tokenstore.Redis.Load"

	vals, err := r.rdb.MGet(ctx, r.key(KeyAccess), r.key(KeyRefresh)).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return models.TokenPair{}, false, fmt.Errorf("%s: %w", op, err)
	}

	var pair models.TokenPair
	if len(vals) == 2 {
		pair.Access, _ = vals[0].(string)
		pair.Refresh, _ = vals[1].(string)
	}

	return pair, !pair.Empty(), nil
}

func (r *Redis) Clear(ctx context.Context) error {
	const op = "tokenstore.Redis.Clear"

	if err := r.rdb.Del(ctx, r.key(KeyAccess), r.key(KeyRefresh)).Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (r *Redis) Close() error { return r.rdb.Close() }
