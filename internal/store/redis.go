package store

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore handles Redis operations for replay protection and rate limiting.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore creates a new Redis store.
func NewRedisStore(ctx context.Context, redisURL string) (*RedisStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(opts)

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return &RedisStore{client: client}, nil
}

// Client exposes the underlying client for the rate limiter.
func (s *RedisStore) Client() *redis.Client {
	return s.client
}

// Close closes the Redis connection.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

// Ping checks the Redis connection.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func nonceKey(caller, nonce string) string {
	return fmt.Sprintf("nonce:%s:%s", caller, nonce)
}

// IsNonceUsed checks if a nonce has been used.
func (s *RedisStore) IsNonceUsed(ctx context.Context, caller, nonce string) bool {
	exists, _ := s.client.Exists(ctx, nonceKey(caller, nonce)).Result()
	return exists > 0
}

// MarkNonceUsed marks a nonce as used with a TTL.
func (s *RedisStore) MarkNonceUsed(ctx context.Context, caller, nonce string, ttl time.Duration) {
	s.client.Set(ctx, nonceKey(caller, nonce), "1", ttl)
}

func contractCacheKey() string {
	return "ledger:contract"
}

// CacheContract keeps the serialized contract configuration for cheap reads.
func (s *RedisStore) CacheContract(ctx context.Context, data []byte, ttl time.Duration) error {
	return s.client.Set(ctx, contractCacheKey(), data, ttl).Err()
}

// CachedContract returns the cached configuration, or nil on a miss.
func (s *RedisStore) CachedContract(ctx context.Context) ([]byte, error) {
	data, err := s.client.Get(ctx, contractCacheKey()).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	return data, err
}

// InvalidateContract drops the cached configuration after an owner call.
func (s *RedisStore) InvalidateContract(ctx context.Context) {
	s.client.Del(ctx, contractCacheKey())
}
