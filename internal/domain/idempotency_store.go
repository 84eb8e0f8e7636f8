package domain

import (
	"context"
	"time"
)

//go:generate mockgen -source=idempotency_store.go -destination=idempotency_store_mock.go -package=domain

// IdempotencyStore is a shared key/value store with an atomic set-if-absent.
type IdempotencyStore interface {
	SetIfAbsent(ctx context.Context, key, value string, ttl time.Duration) (bool, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}
