// Package cache wraps Redis for the deposit flow's advisory verify lock. The
// lock only collapses duplicate provider calls when the server-to-server
// callback and the browser return race; correctness never depends on it, the
// database idempotency gate does that.
package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

type Cache struct {
	client *redis.Client
}

// New returns nil when addr is empty; all methods are nil-safe so callers can
// run without Redis.
func New(addr, password string) *Cache {
	if addr == "" {
		return nil
	}
	return &Cache{client: redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
	})}
}

func (c *Cache) Ping(ctx context.Context) error {
	if c == nil {
		return nil
	}
	return c.client.Ping(ctx).Err()
}

// AcquireLock takes a best-effort lock on key. Returns true when there is no
// Redis configured or Redis is unreachable: losing the lock must never block
// verification.
func (c *Cache) AcquireLock(ctx context.Context, namespace, key string, ttl time.Duration) bool {
	if c == nil {
		return true
	}
	ok, err := c.client.SetNX(ctx, namespace+":"+key, "1", ttl).Result()
	if err != nil {
		return true
	}
	return ok
}

func (c *Cache) ReleaseLock(ctx context.Context, namespace, key string) {
	if c == nil {
		return
	}
	_ = c.client.Del(ctx, namespace+":"+key).Err()
}

func (c *Cache) Set(ctx context.Context, namespace, key, value string, ttl time.Duration) error {
	if c == nil {
		return nil
	}
	return c.client.Set(ctx, namespace+":"+key, value, ttl).Err()
}

func (c *Cache) Get(ctx context.Context, namespace, key string) (string, error) {
	if c == nil {
		return "", redis.Nil
	}
	return c.client.Get(ctx, namespace+":"+key).Result()
}

func (c *Cache) Close() error {
	if c == nil {
		return nil
	}
	return c.client.Close()
}
