package repository

import (
	"context"
	"time"
)

// StateStore holds short-lived session state (refresh-token JTIs).
// Implementations: Redis (production, shared across instances) or in-memory (single instance).
type StateStore interface {
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Get(ctx context.Context, key string) ([]byte, error)
	// Take returns the value and deletes the key in one step; nil when absent or expired.
	Take(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
}
