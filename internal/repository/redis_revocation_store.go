package repository

import (
	"context"
	_ "embed"
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

//go:embed scripts/watermark_max.lua
var watermarkMaxScript string

// Script name for caching
const scriptWatermarkMax = "watermark_max"

const (
	revokedKeyPrefix   = "auth:revoked:"
	watermarkKeyPrefix = "auth:watermark:"
)

// RedisRevocationStore implements RevocationStore using Redis. Tombstones
// and watermarks are visible to every instance sharing the store as soon
// as the write returns.
type RedisRevocationStore struct {
	client       *pkgredis.Client
	watermarkTTL time.Duration
}

// NewRedisRevocationStore creates a new RedisRevocationStore. The
// watermark TTL must be at least the refresh token TTL so a watermark
// never expires before the tokens it invalidates.
func NewRedisRevocationStore(client *pkgredis.Client, watermarkTTL time.Duration) *RedisRevocationStore {
	return &RedisRevocationStore{
		client:       client,
		watermarkTTL: watermarkTTL,
	}
}

// LoadScripts loads the watermark Lua script into Redis
func (r *RedisRevocationStore) LoadScripts(ctx context.Context) error {
	if _, err := r.client.LoadScript(ctx, scriptWatermarkMax, watermarkMaxScript); err != nil {
		return fmt.Errorf("failed to load script %s: %w", scriptWatermarkMax, err)
	}
	return nil
}

// Revoke writes a tombstone for the token id with the token's remaining
// validity as TTL. A plain SET makes concurrent duplicates no-ops.
func (r *RedisRevocationStore) Revoke(ctx context.Context, tokenID string, remainingTTL time.Duration) error {
	ctx, span := telemetry.StartSpan(ctx, "repo.redis.revocation.revoke")
	defer span.End()

	span.SetAttributes(attribute.String("token_id", tokenID))

	// An already-expired token needs no tombstone; verification fails on
	// expiry regardless.
	if remainingTTL <= 0 {
		span.SetStatus(codes.Ok, "")
		return nil
	}

	if err := r.client.Set(ctx, revokedKeyPrefix+tokenID, 1, remainingTTL).Err(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("failed to write revocation tombstone: %w", err)
	}

	span.SetStatus(codes.Ok, "")
	return nil
}

// IsRevoked checks whether a tombstone exists for the token id
func (r *RedisRevocationStore) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.redis.revocation.is_revoked")
	defer span.End()

	span.SetAttributes(attribute.String("token_id", tokenID))

	n, err := r.client.Exists(ctx, revokedKeyPrefix+tokenID).Result()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return false, fmt.Errorf("failed to check revocation tombstone: %w", err)
	}

	span.SetAttributes(attribute.Bool("revoked", n > 0))
	span.SetStatus(codes.Ok, "")
	return n > 0, nil
}

// InvalidateAllForUser moves the user's watermark to at. The Lua script
// takes the max of the current and proposed values server-side, so an
// out-of-order write from a slow instance never moves it backward.
func (r *RedisRevocationStore) InvalidateAllForUser(ctx context.Context, subjectID string, at time.Time) error {
	ctx, span := telemetry.StartSpan(ctx, "repo.redis.revocation.invalidate_all")
	defer span.End()

	span.SetAttributes(attribute.String("subject_id", subjectID))

	keys := []string{watermarkKeyPrefix + subjectID}
	args := []interface{}{at.Unix(), int64(r.watermarkTTL.Seconds())}

	result := r.client.EvalWithFallback(ctx, scriptWatermarkMax, watermarkMaxScript, keys, args...)
	if result.Err() != nil {
		span.RecordError(result.Err())
		span.SetStatus(codes.Error, result.Err().Error())
		return fmt.Errorf("failed to execute %s script: %w", scriptWatermarkMax, result.Err())
	}

	span.SetStatus(codes.Ok, "")
	return nil
}

// WatermarkFor returns the user's invalidation watermark and whether one
// exists
func (r *RedisRevocationStore) WatermarkFor(ctx context.Context, subjectID string) (time.Time, bool, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.redis.revocation.watermark_for")
	defer span.End()

	span.SetAttributes(attribute.String("subject_id", subjectID))

	val, err := r.client.Get(ctx, watermarkKeyPrefix+subjectID).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			span.SetStatus(codes.Ok, "")
			return time.Time{}, false, nil
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return time.Time{}, false, fmt.Errorf("failed to read watermark: %w", err)
	}

	sec, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return time.Time{}, false, fmt.Errorf("failed to parse watermark %q: %w", val, err)
	}

	span.SetStatus(codes.Ok, "")
	return time.Unix(sec, 0), true, nil
}
