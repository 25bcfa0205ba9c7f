package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	redisPrefix     = "pcp:cache:"
	redisDepsPrefix = "pcp:deps:"
	defaultRedisTTL = 10 * time.Minute
)

// Redis shares entries between instances. Each dependency is a set of entry keys.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedis connects to the given redis:// URL and pings it.
func NewRedis(ctx context.Context, url string, ttl time.Duration) (*Redis, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}

	client := redis.NewClient(opts)

	err = client.Ping(ctx).Err()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return NewRedisWithClient(client, ttl), nil
}

// NewRedisWithClient wraps an existing client. A ttl <= 0 uses ten minutes.
func NewRedisWithClient(client *redis.Client, ttl time.Duration) *Redis {
	if ttl <= 0 {
		ttl = defaultRedisTTL
	}

	return &Redis{client: client, ttl: ttl}
}

func (r *Redis) Get(ctx context.Context, key string, dst any) (bool, error) {
	body, err := r.client.Get(ctx, redisPrefix+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}

		return false, fmt.Errorf("failed to read cache entry %s: %w", key, err)
	}

	err = json.Unmarshal(body, dst)
	if err != nil {
		return false, fmt.Errorf("failed to decode cache entry %s: %w", key, err)
	}

	return true, nil
}

func (r *Redis) Set(ctx context.Context, key string, value any, deps []string) error {
	body, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode cache entry %s: %w", key, err)
	}

	pipe := r.client.TxPipeline()
	pipe.Set(ctx, redisPrefix+key, body, r.ttl)

	for _, dep := range deps {
		pipe.SAdd(ctx, redisDepsPrefix+dep, redisPrefix+key)
		pipe.Expire(ctx, redisDepsPrefix+dep, r.ttl)
	}

	_, err = pipe.Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to store cache entry %s: %w", key, err)
	}

	return nil
}

func (r *Redis) Invalidate(ctx context.Context, scopeID string) error {
	depKey := redisDepsPrefix + scopeID

	keys, err := r.client.SMembers(ctx, depKey).Result()
	if err != nil {
		return fmt.Errorf("failed to read dependents of %s: %w", scopeID, err)
	}

	err = r.client.Del(ctx, append(keys, depKey)...).Err()
	if err != nil {
		return fmt.Errorf("failed to invalidate %s: %w", scopeID, err)
	}

	return nil
}

// Close closes the underlying client.
func (r *Redis) Close() error {
	return r.client.Close()
}
