package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis is a shared backend for deployments that run several annotator
// processes. Entries are stored as JSON under "oncoannot:{provider}:{key}"
// and expire in Redis after the provider TTL.
type Redis struct {
	rdb    *redis.Client
	prefix string
}

// NewRedis creates a Redis backend.
func NewRedis(addr, password string, db int) *Redis {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return &Redis{rdb: rdb, prefix: "oncoannot"}
}

func (r *Redis) key(provider, key string) string {
	return r.prefix + ":" + provider + ":" + key
}

// Init is a no-op; Redis needs no schema.
func (r *Redis) Init(context.Context) error { return nil }

// Load returns the entry for (provider, key).
func (r *Redis) Load(ctx context.Context, provider, key string) (Entry, bool, error) {
	raw, err := r.rdb.Get(ctx, r.key(provider, key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, fmt.Errorf("redis get: %w", err)
	}
	var e Entry
	if err := json.Unmarshal(raw, &e); err != nil {
		return Entry{}, false, fmt.Errorf("decode redis entry: %w", err)
	}
	return e, true, nil
}

// Save writes e with ttl as the Redis expiration. A zero ttl means no
// expiration.
func (r *Redis) Save(ctx context.Context, e Entry, ttl time.Duration) error {
	raw, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encode redis entry: %w", err)
	}
	if err := r.rdb.Set(ctx, r.key(e.Provider, e.Key), raw, ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Ping checks the Redis connection.
func (r *Redis) Ping(ctx context.Context) error {
	return r.rdb.Ping(ctx).Err()
}

// Close closes the underlying Redis client.
func (r *Redis) Close() error {
	return r.rdb.Close()
}
