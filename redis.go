package folio

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/eringen/folio/content"
)

// RedisCache is a SharedCache storing entry lists as JSON in Redis.
type RedisCache struct {
	client    *redis.Client
	ttl       time.Duration
	namespace string
}

// NewRedisCache connects lazily to the Redis server at rawURL
// (redis://[:password@]host:port/db). Keys are scoped by namespace,
// usually the CMS space and environment.
func NewRedisCache(rawURL string, ttl time.Duration, namespace string) (*RedisCache, error) {
	opts, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("folio: redis url: %w", err)
	}
	return NewRedisCacheFromClient(redis.NewClient(opts), ttl, namespace), nil
}

// NewRedisCacheFromClient wraps an existing client.
func NewRedisCacheFromClient(client *redis.Client, ttl time.Duration, namespace string) *RedisCache {
	return &RedisCache{client: client, ttl: ttl, namespace: namespace}
}

func (r *RedisCache) key(contentType string) string {
	return "folio:entries:" + r.namespace + ":" + contentType
}

// Get returns the cached entries of a content type.
func (r *RedisCache) Get(ctx context.Context, contentType string) ([]content.Entry, bool, error) {
	data, err := r.client.Get(ctx, r.key(contentType)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("folio: redis get: %w", err)
	}
	var entries []content.Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, false, fmt.Errorf("folio: redis decode %s: %w", contentType, err)
	}
	return entries, true, nil
}

// Set stores the entries of a content type for the cache TTL.
func (r *RedisCache) Set(ctx context.Context, contentType string, entries []content.Entry) error {
	data, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("folio: redis encode %s: %w", contentType, err)
	}
	if err := r.client.Set(ctx, r.key(contentType), data, r.ttl).Err(); err != nil {
		return fmt.Errorf("folio: redis set: %w", err)
	}
	return nil
}

// Delete removes the cached entries of a content type.
func (r *RedisCache) Delete(ctx context.Context, contentType string) error {
	if err := r.client.Del(ctx, r.key(contentType)).Err(); err != nil {
		return fmt.Errorf("folio: redis del: %w", err)
	}
	return nil
}

// Ping checks connectivity.
func (r *RedisCache) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Close closes the client.
func (r *RedisCache) Close() error {
	return r.client.Close()
}
