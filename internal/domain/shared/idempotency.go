package shared

import (
	"context"
	"time"
)

// IdempotencyStore remembers request keys that were already processed.
// Used to reject replayed transaction submissions.
type IdempotencyStore interface {
	// MarkProcessed returns true if the key was newly marked, false if it was seen before
	MarkProcessed(ctx context.Context, key string, ttl time.Duration) (bool, error)

	IsProcessed(ctx context.Context, key string) (bool, error)

	// Release forgets a key so a failed request can be retried with it
	Release(ctx context.Context, key string) error

	Close() error
}

// DefaultIdempotencyTTL is how long an idempotency key is remembered
const DefaultIdempotencyTTL = 24 * time.Hour
