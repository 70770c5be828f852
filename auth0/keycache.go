package auth0

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrCacheMiss is returned by a KeySetCache that holds no document
var ErrCacheMiss = errors.New("key set not cached")

// KeySetCache is a shared store for the raw JWKS document, letting several
// replicas reuse one fetch.
type KeySetCache interface {
	Get(ctx context.Context, jwksURL string) ([]byte, error)
	Set(ctx context.Context, jwksURL string, doc []byte, ttl time.Duration) error
}

// RedisKeySetCache implements KeySetCache on redis
type RedisKeySetCache struct {
	client redis.Cmdable
	prefix string
}

// NewRedisKeySetCache creates a cache storing documents under "<prefix>:jwks:<url>"
func NewRedisKeySetCache(client redis.Cmdable, prefix string) *RedisKeySetCache {
	return &RedisKeySetCache{client: client, prefix: prefix}
}

func (c *RedisKeySetCache) key(jwksURL string) string {
	return fmt.Sprintf("%s:jwks:%s", c.prefix, jwksURL)
}

// Get returns the cached document or ErrCacheMiss
func (c *RedisKeySetCache) Get(ctx context.Context, jwksURL string) ([]byte, error) {
	doc, err := c.client.Get(ctx, c.key(jwksURL)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrCacheMiss
		}
		return nil, fmt.Errorf("redis get: %w", err)
	}
	return doc, nil
}

// Set stores the document with an expiry
func (c *RedisKeySetCache) Set(ctx context.Context, jwksURL string, doc []byte, ttl time.Duration) error {
	if err := c.client.Set(ctx, c.key(jwksURL), doc, ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}
