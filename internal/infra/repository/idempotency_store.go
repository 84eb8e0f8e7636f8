package repository

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/namecoder1/calensync-bot/internal/domain"
)

type idempotencyStore struct {
	client *redis.Client
}

func NewIdempotencyStore(client *redis.Client) domain.IdempotencyStore {
	return &idempotencyStore{
		client: client,
	}
}

// SetIfAbsent issues SET NX with an expiry, which Redis applies atomically.
func (s *idempotencyStore) SetIfAbsent(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	return s.client.SetNX(ctx, key, value, ttl).Result()
}

func (s *idempotencyStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return s.client.Set(ctx, key, value, ttl).Err()
}

func (s *idempotencyStore) Delete(ctx context.Context, key string) error {
	return s.client.Del(ctx, key).Err()
}
