package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	pkgredis "github.com/prohmpiriya/auth-service/pkg/redis"
	"github.com/prohmpiriya/auth-service/pkg/telemetry"
)

const (
	lockoutAttemptsKeyPrefix = "auth:lockout:attempts:"
	lockoutUntilKeyPrefix    = "auth:lockout:until:"
)

// RedisLockoutGuard implements LockoutGuard using Redis. The failure
// counter uses INCR so the threshold holds across instances; two
// concurrent failures may both cross it, which over-locks by at most one
// attempt and is accepted.
type RedisLockoutGuard struct {
	client          *pkgredis.Client
	maxAttempts     int64
	lockoutDuration time.Duration
}

// NewRedisLockoutGuard creates a new RedisLockoutGuard
func NewRedisLockoutGuard(client *pkgredis.Client, maxAttempts int64, lockoutDuration time.Duration) *RedisLockoutGuard {
	return &RedisLockoutGuard{
		client:          client,
		maxAttempts:     maxAttempts,
		lockoutDuration: lockoutDuration,
	}
}

// RecordFailure increments the failure counter inside a sliding window and
// writes the locked-until deadline once the counter reaches the threshold
func (g *RedisLockoutGuard) RecordFailure(ctx context.Context, subjectID string) (*LockState, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.redis.lockout.record_failure")
	defer span.End()

	span.SetAttributes(attribute.String("subject_id", subjectID))

	attemptsKey := lockoutAttemptsKeyPrefix + subjectID
	count, err := g.client.Incr(ctx, attemptsKey).Result()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("failed to increment failure counter: %w", err)
	}

	// Each failure restarts the counting window.
	if err := g.client.Expire(ctx, attemptsKey, g.lockoutDuration).Err(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("failed to set failure counter expiry: %w", err)
	}

	state := &LockState{Attempts: count}
	span.SetAttributes(attribute.Int64("attempts", count))

	if count >= g.maxAttempts {
		until := time.Now().Add(g.lockoutDuration)
		if err := g.client.Set(ctx, lockoutUntilKeyPrefix+subjectID, until.Unix(), g.lockoutDuration).Err(); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, fmt.Errorf("failed to write lockout deadline: %w", err)
		}
		state.Locked = true
		state.Until = until
		span.SetAttributes(attribute.Bool("locked", true))
	}

	span.SetStatus(codes.Ok, "")
	return state, nil
}

// RecordSuccess resets the counter and clears any lock
func (g *RedisLockoutGuard) RecordSuccess(ctx context.Context, subjectID string) error {
	ctx, span := telemetry.StartSpan(ctx, "repo.redis.lockout.record_success")
	defer span.End()

	span.SetAttributes(attribute.String("subject_id", subjectID))

	err := g.client.Del(ctx,
		lockoutAttemptsKeyPrefix+subjectID,
		lockoutUntilKeyPrefix+subjectID,
	).Err()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("failed to clear lockout state: %w", err)
	}

	span.SetStatus(codes.Ok, "")
	return nil
}

// IsLocked reports whether the subject is locked. The deadline key's Redis
// TTL is the lazy expiry: once it lapses the lock is gone without any
// sweeper running.
func (g *RedisLockoutGuard) IsLocked(ctx context.Context, subjectID string) (bool, time.Time, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.redis.lockout.is_locked")
	defer span.End()

	span.SetAttributes(attribute.String("subject_id", subjectID))

	val, err := g.client.Get(ctx, lockoutUntilKeyPrefix+subjectID).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			span.SetStatus(codes.Ok, "")
			return false, time.Time{}, nil
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return false, time.Time{}, fmt.Errorf("failed to read lockout deadline: %w", err)
	}

	sec, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return false, time.Time{}, fmt.Errorf("failed to parse lockout deadline %q: %w", val, err)
	}

	span.SetAttributes(attribute.Bool("locked", true))
	span.SetStatus(codes.Ok, "")
	return true, time.Unix(sec, 0), nil
}
