// Package cache is the explicit cache component replacing the process-global
// maps of earlier iterations: constructed from config, injected where needed,
// and trivially isolated in tests.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultTTL keeps cached roles fresh enough that a revoked admin loses
// access within minutes even if invalidation is missed.
const DefaultTTL = 5 * time.Minute

type Config struct {
	Addr     string
	Password string
	DB       int
	// TTL applies to every Set; zero means entries never expire.
	TTL time.Duration
}

type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// New connects to Redis and fails fast if it is unreachable.
func New(cfg Config) (*Cache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &Cache{client: client, ttl: cfg.TTL}, nil
}

// NewWithClient wraps an existing client; tests pair this with miniredis.
func NewWithClient(client *redis.Client, ttl time.Duration) *Cache {
	return &Cache{client: client, ttl: ttl}
}

func (c *Cache) Get(ctx context.Context, key string) (string, bool, error) {
	val, err := c.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("cache get %s: %w", key, err)
	}
	return val, true, nil
}

func (c *Cache) Set(ctx context.Context, key, value string) error {
	if err := c.client.Set(ctx, key, value, c.ttl).Err(); err != nil {
		return fmt.Errorf("cache set %s: %w", key, err)
	}
	return nil
}

func (c *Cache) Invalidate(ctx context.Context, key string) error {
	if err := c.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("cache invalidate %s: %w", key, err)
	}
	return nil
}

// Increment bumps a fixed-window counter, setting the window's expiry on
// first increment. Used by the rate limit middleware.
func (c *Cache) Increment(ctx context.Context, key string, window time.Duration) (int64, error) {
	pipe := c.client.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.ExpireNX(ctx, key, window)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("cache increment %s: %w", key, err)
	}
	return incr.Val(), nil
}

func (c *Cache) Close() error {
	return c.client.Close()
}
