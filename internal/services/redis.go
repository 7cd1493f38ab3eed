package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisProvider is a key-prefixed Redis cache
type RedisProvider struct {
	BaseProvider
	client *redis.Client
	prefix string
}

// NewRedisProvider connects to Redis. All keys are namespaced under prefix.
func NewRedisProvider(ctx context.Context, address, password string, db int, prefix string) (*RedisProvider, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisProvider{
		BaseProvider: BaseProvider{serviceType: "redis"},
		client:       client,
		prefix:       prefix,
	}, nil
}

// Get returns the cached value for key. A miss is not an error.
func (p *RedisProvider) Get(ctx context.Context, key string) ([]byte, bool, error) {
	val, err := p.client.Get(ctx, p.prefix+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to get %s: %w", key, err)
	}
	return val, true, nil
}

// Set stores value under key for ttl
func (p *RedisProvider) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := p.client.Set(ctx, p.prefix+key, value, ttl).Err(); err != nil {
		return fmt.Errorf("failed to set %s: %w", key, err)
	}
	return nil
}

// Invalidate removes every key under the provider prefix that starts with
// keyPrefix
func (p *RedisProvider) Invalidate(ctx context.Context, keyPrefix string) error {
	pattern := fmt.Sprintf("%s%s*", p.prefix, keyPrefix)
	var cursor uint64
	var keysDeleted int

	for {
		keys, nextCursor, err := p.client.Scan(ctx, cursor, pattern, 100).Result()
		if err != nil {
			return fmt.Errorf("failed to scan keys: %w", err)
		}

		if len(keys) > 0 {
			if err := p.client.Del(ctx, keys...).Err(); err != nil {
				slog.Warn("failed to delete some keys", "error", err)
			}
			keysDeleted += len(keys)
		}

		cursor = nextCursor
		if cursor == 0 {
			break
		}
	}

	slog.Debug("redis keys invalidated", "pattern", pattern, "keys_deleted", keysDeleted)
	return nil
}

// HealthCheck verifies Redis connectivity
func (p *RedisProvider) HealthCheck(ctx context.Context) error {
	return p.client.Ping(ctx).Err()
}

// Close closes the Redis connection
func (p *RedisProvider) Close() error {
	return p.client.Close()
}
