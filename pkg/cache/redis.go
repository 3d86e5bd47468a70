package cache

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisCache stores entries in Redis so several serve instances can share
// rendered programs. Keys are stored under an optional namespace prefix and
// expiry is delegated to Redis.
type RedisCache struct {
	client    redis.UniversalClient
	namespace string
}

// RedisOptions configures NewRedisCache.
type RedisOptions struct {
	Addr      string // host:port
	Password  string
	DB        int
	Namespace string // prepended to every key, e.g. "isomill:"
}

// NewRedisCache connects to Redis and verifies the connection with PING.
func NewRedisCache(ctx context.Context, opts RedisOptions) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("%w: ping %s: %v", ErrUnavailable, opts.Addr, err)
	}
	return NewRedisCacheFromClient(client, opts.Namespace), nil
}

// NewRedisCacheFromClient wraps an existing client.
func NewRedisCacheFromClient(client redis.UniversalClient, namespace string) *RedisCache {
	return &RedisCache{client: client, namespace: namespace}
}

// Get retrieves a value. Transient connection failures are retried.
func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var data []byte
	hit := false
	err := RetryWithBackoff(ctx, func() error {
		b, err := c.client.Get(ctx, c.namespace+key).Bytes()
		switch {
		case errors.Is(err, redis.Nil):
			return nil
		case err != nil:
			return classify(err)
		}
		data, hit = b, true
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return data, hit, nil
}

// Set stores a value. A zero ttl keeps the key until it is deleted.
func (c *RedisCache) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	return RetryWithBackoff(ctx, func() error {
		return classify(c.client.Set(ctx, c.namespace+key, data, ttl).Err())
	})
}

// Delete removes a value.
func (c *RedisCache) Delete(ctx context.Context, key string) error {
	return RetryWithBackoff(ctx, func() error {
		return classify(c.client.Del(ctx, c.namespace+key).Err())
	})
}

// Close closes the underlying client.
func (c *RedisCache) Close() error {
	return c.client.Close()
}

// classify marks network errors as retryable.
func classify(err error) error {
	if err == nil {
		return nil
	}
	var ne net.Error
	if errors.As(err, &ne) {
		return Retryable(fmt.Errorf("%w: %v", ErrUnavailable, err))
	}
	return err
}

var _ Cache = (*RedisCache)(nil)
