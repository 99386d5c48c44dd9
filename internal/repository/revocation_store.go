package repository

import (
	"context"
	"time"
)

// RevocationStore defines the interface for token tombstones and per-user
// invalidation watermarks shared by all server instances
type RevocationStore interface {
	// Revoke writes an idempotent tombstone for the token id, expiring
	// with the token's remaining validity
	Revoke(ctx context.Context, tokenID string, remainingTTL time.Duration) error
	// IsRevoked checks whether a tombstone exists for the token id
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
	// InvalidateAllForUser moves the user's watermark to at. The write is
	// monotonic: it never moves an existing watermark backward.
	InvalidateAllForUser(ctx context.Context, subjectID string, at time.Time) error
	// WatermarkFor returns the user's watermark and whether one exists
	WatermarkFor(ctx context.Context, subjectID string) (time.Time, bool, error)
}
