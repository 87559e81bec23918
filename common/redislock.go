package common

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrLocked is returned by Acquire when another holder owns the key.
var ErrLocked = errors.New("lock already held")

// RedisLockConfig configures the Redis connection and key namespace.
type RedisLockConfig struct {
	Addr     string // e.g. localhost:6379
	Password string
	DB       int
	Prefix   string // prepended to every lock key, e.g. "digest:lock:"
}

// RedisLock is a minimal single-instance lock built on SET NX.
type RedisLock struct {
	client *redis.Client
	prefix string
}

// unlockScript deletes the key only when it still holds our token.
var unlockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// NewRedisLock creates a RedisLock and verifies connectivity.
func NewRedisLock(cfg RedisLockConfig) (*RedisLock, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.Addr, err)
	}

	return &RedisLock{client: client, prefix: cfg.Prefix}, nil
}

// Acquire takes the lock for key for at most ttl. The returned release func
// gives it back early; it is safe to call after the ttl has expired.
func (r *RedisLock) Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error) {
	fullKey := r.prefix + key
	token := uuid.NewString()

	ok, err := r.client.SetNX(ctx, fullKey, token, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("acquire %s: %w", fullKey, err)
	}
	if !ok {
		return nil, ErrLocked
	}

	release := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = unlockScript.Run(ctx, r.client, []string{fullKey}, token).Err()
	}
	return release, nil
}

// Close closes the underlying Redis client
func (r *RedisLock) Close() error {
	return r.client.Close()
}
