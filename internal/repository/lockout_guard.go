package repository

import (
	"context"
	"time"
)

// LockState represents the lockout state after a recorded failure
type LockState struct {
	Attempts int64
	Locked   bool
	Until    time.Time
}

// LockoutGuard defines the interface for brute-force lockout counters.
// Counters live in the shared store so the threshold holds across
// server instances.
type LockoutGuard interface {
	// RecordFailure increments the failure counter and locks the subject
	// when it reaches the configured threshold
	RecordFailure(ctx context.Context, subjectID string) (*LockState, error)
	// RecordSuccess resets the counter and clears any lock
	RecordSuccess(ctx context.Context, subjectID string) error
	// IsLocked reports whether the subject is locked and until when
	IsLocked(ctx context.Context, subjectID string) (bool, time.Time, error)
}
