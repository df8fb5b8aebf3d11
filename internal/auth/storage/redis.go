package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Phantom-bronze/UserModule/internal/common/config"
)

const defaultUsedTokenPrefix = "auth:used-token:"

// RedisTokenStore implements TokenStore using Redis, sharing consumed
// token ids across instances. Expiry is delegated to Redis TTLs.
type RedisTokenStore struct {
	client *redis.Client
	prefix string
}

// NewRedisTokenStore creates a new Redis token store instance
func NewRedisTokenStore(cfg *config.RedisStoreConfig) (*RedisTokenStore, error) {
	prefix := cfg.Prefix
	if prefix == "" {
		prefix = defaultUsedTokenPrefix
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Username: cfg.Username,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	// Test connection
	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisTokenStore{client: client, prefix: prefix}, nil
}

// MarkUsed records the token id until its ttl elapses.
func (s *RedisTokenStore) MarkUsed(ctx context.Context, jti string, ttl time.Duration) error {
	return s.client.Set(ctx, s.prefix+jti, "1", ttl).Err()
}

// IsUsed reports whether the token id has been consumed.
func (s *RedisTokenStore) IsUsed(ctx context.Context, jti string) (bool, error) {
	n, err := s.client.Exists(ctx, s.prefix+jti).Result()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// Close closes the Redis connection.
func (s *RedisTokenStore) Close() error {
	return s.client.Close()
}
