// Package cache provides a Redis-backed JSON cache. The query path uses it
// to memoize embeddings of repeated natural-language queries.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/whattherepo/whattherepo/internal/logging"
)

// DefaultTTL bounds staleness of cached query embeddings.
const DefaultTTL = 15 * time.Minute

// Client wraps a Redis connection with JSON serialization.
type Client struct {
	rdb    *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

// NewClient connects to Redis and verifies connectivity. A nil client is a
// valid cache (all misses), so callers may run without Redis configured.
func NewClient(ctx context.Context, addr, password string, db int, ttl time.Duration) (*Client, error) {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return &Client{
		rdb:    rdb,
		ttl:    ttl,
		logger: logging.Component("cache"),
	}, nil
}

// Get unmarshals the cached value for key into target. found is false on
// a miss or when the client is nil.
func (c *Client) Get(ctx context.Context, key string, target any) (bool, error) {
	if c == nil {
		return false, nil
	}
	val, err := c.rdb.Get(ctx, key).Result()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("redis get %s: %w", key, err)
	}
	if err := json.Unmarshal([]byte(val), target); err != nil {
		return false, fmt.Errorf("unmarshal cached value for %s: %w", key, err)
	}
	return true, nil
}

// Set stores value under key with the default TTL.
func (c *Client) Set(ctx context.Context, key string, value any) error {
	if c == nil {
		return nil
	}
	return c.SetWithTTL(ctx, key, value, c.ttl)
}

// SetWithTTL stores value under key with an explicit TTL.
func (c *Client) SetWithTTL(ctx context.Context, key string, value any, ttl time.Duration) error {
	if c == nil {
		return nil
	}
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal value for %s: %w", key, err)
	}
	if err := c.rdb.Set(ctx, key, data, ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

// Close releases the Redis connection.
func (c *Client) Close() error {
	if c == nil {
		return nil
	}
	return c.rdb.Close()
}

// EmbeddingKey builds the cache key for a query embedding.
func EmbeddingKey(model, text string) string {
	sum := sha256.Sum256([]byte(text))
	return fmt.Sprintf("wtr:embed:%s:%s", model, hex.EncodeToString(sum[:16]))
}
