package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "stakeboard:" // stakeboard:{key}

// Redis stores values under prefixed keys with no expiry.
type Redis struct {
	Client *redis.Client
}

func NewRedis(ctx context.Context, opts *redis.Options) (Redis, error) {
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return Redis{}, fmt.Errorf("ping redis %s: %w", opts.Addr, err)
	}
	return Redis{Client: client}, nil
}

func (r Redis) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := r.Client.Get(ctx, redisKeyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get %s: %w", key, err)
	}
	return data, nil
}

func (r Redis) Set(ctx context.Context, key string, value []byte) error {
	if err := r.Client.Set(ctx, redisKeyPrefix+key, value, 0).Err(); err != nil {
		return fmt.Errorf("failed to set %s: %w", key, err)
	}
	return nil
}

func (r Redis) Delete(ctx context.Context, key string) error {
	if err := r.Client.Del(ctx, redisKeyPrefix+key).Err(); err != nil {
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}
	return nil
}

func (r Redis) Close() error {
	return r.Client.Close()
}
