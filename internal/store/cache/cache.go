package cache

import (
	"context"
	"errors"
	"time"
)

// ErrMiss is returned when a key is absent or expired.
var ErrMiss = errors.New("cache miss")

// CacheService is a small read-through cache used for hot, redactable reads
// (the model configuration list). Implementations marshal values to JSON.
type CacheService interface {
	// Get unmarshals the cached value into dest, or returns ErrMiss.
	Get(ctx context.Context, key string, dest interface{}) error

	// Set stores a value with a TTL.
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error

	// Delete removes a key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error
}
