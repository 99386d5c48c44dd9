package repository

import (
	"context"
	"os"
	"testing"
	"time"

	pkgredis "github.com/prohmpiriya/auth-service/pkg/redis"
)

// skipIfNoIntegration skips the test if INTEGRATION_TEST env var is not set
func skipIfNoIntegration(t *testing.T) {
	if os.Getenv("INTEGRATION_TEST") != "true" {
		t.Skip("Skipping integration test. Set INTEGRATION_TEST=true to run")
	}
}

// getRedisClient creates a Redis client for testing
func getRedisClient(t *testing.T) *pkgredis.Client {
	host := os.Getenv("TEST_REDIS_HOST")
	if host == "" {
		host = "localhost"
	}

	password := os.Getenv("TEST_REDIS_PASSWORD")

	cfg := &pkgredis.Config{
		Host:          host,
		Port:          6379,
		Password:      password,
		DB:            15, // Use DB 15 for testing
		PoolSize:      10,
		MinIdleConns:  2,
		DialTimeout:   5 * time.Second,
		ReadTimeout:   3 * time.Second,
		WriteTimeout:  3 * time.Second,
		MaxRetries:    3,
		RetryInterval: time.Second,
	}

	ctx := context.Background()
	client, err := pkgredis.NewClient(ctx, cfg)
	if err != nil {
		t.Fatalf("Failed to create Redis client: %v", err)
	}

	// Flush test database
	if err := client.Client().FlushDB(ctx).Err(); err != nil {
		t.Fatalf("Failed to flush test database: %v", err)
	}

	return client
}

func TestRedisRevocationStore_Revoke(t *testing.T) {
	skipIfNoIntegration(t)

	ctx := context.Background()
	client := getRedisClient(t)
	defer client.Close()

	store := NewRedisRevocationStore(client, 168*time.Hour)
	if err := store.LoadScripts(ctx); err != nil {
		t.Fatalf("LoadScripts() error = %v", err)
	}

	t.Run("revoked immediately after revoke", func(t *testing.T) {
		if err := store.Revoke(ctx, "token-1", time.Minute); err != nil {
			t.Fatalf("Revoke() error = %v", err)
		}

		revoked, err := store.IsRevoked(ctx, "token-1")
		if err != nil {
			t.Fatalf("IsRevoked() error = %v", err)
		}
		if !revoked {
			t.Error("IsRevoked() = false, want true immediately after Revoke()")
		}
	})

	t.Run("unknown token is not revoked", func(t *testing.T) {
		revoked, err := store.IsRevoked(ctx, "never-revoked")
		if err != nil {
			t.Fatalf("IsRevoked() error = %v", err)
		}
		if revoked {
			t.Error("IsRevoked() = true for a token that was never revoked")
		}
	})

	t.Run("double revoke is idempotent", func(t *testing.T) {
		if err := store.Revoke(ctx, "token-2", time.Minute); err != nil {
			t.Fatalf("first Revoke() error = %v", err)
		}
		if err := store.Revoke(ctx, "token-2", time.Minute); err != nil {
			t.Errorf("second Revoke() error = %v, want nil", err)
		}

		revoked, err := store.IsRevoked(ctx, "token-2")
		if err != nil {
			t.Fatalf("IsRevoked() error = %v", err)
		}
		if !revoked {
			t.Error("IsRevoked() = false after double Revoke()")
		}
	})

	t.Run("tombstone expires with the token", func(t *testing.T) {
		if err := store.Revoke(ctx, "token-3", time.Second); err != nil {
			t.Fatalf("Revoke() error = %v", err)
		}

		time.Sleep(1200 * time.Millisecond)

		revoked, err := store.IsRevoked(ctx, "token-3")
		if err != nil {
			t.Fatalf("IsRevoked() error = %v", err)
		}
		if revoked {
			t.Error("IsRevoked() = true after tombstone TTL elapsed")
		}
	})

	t.Run("expired token needs no tombstone", func(t *testing.T) {
		if err := store.Revoke(ctx, "token-4", -time.Minute); err != nil {
			t.Errorf("Revoke() with non-positive TTL error = %v, want nil", err)
		}

		revoked, err := store.IsRevoked(ctx, "token-4")
		if err != nil {
			t.Fatalf("IsRevoked() error = %v", err)
		}
		if revoked {
			t.Error("IsRevoked() = true, no tombstone should have been written")
		}
	})
}

func TestRedisRevocationStore_Watermark(t *testing.T) {
	skipIfNoIntegration(t)

	ctx := context.Background()
	client := getRedisClient(t)
	defer client.Close()

	store := NewRedisRevocationStore(client, 168*time.Hour)
	if err := store.LoadScripts(ctx); err != nil {
		t.Fatalf("LoadScripts() error = %v", err)
	}

	t.Run("absent watermark", func(t *testing.T) {
		_, exists, err := store.WatermarkFor(ctx, "user-none")
		if err != nil {
			t.Fatalf("WatermarkFor() error = %v", err)
		}
		if exists {
			t.Error("WatermarkFor() exists = true for user without watermark")
		}
	})

	t.Run("write and read back", func(t *testing.T) {
		at := time.Now()
		if err := store.InvalidateAllForUser(ctx, "user-1", at); err != nil {
			t.Fatalf("InvalidateAllForUser() error = %v", err)
		}

		wm, exists, err := store.WatermarkFor(ctx, "user-1")
		if err != nil {
			t.Fatalf("WatermarkFor() error = %v", err)
		}
		if !exists {
			t.Fatal("WatermarkFor() exists = false after InvalidateAllForUser()")
		}
		if wm.Unix() != at.Unix() {
			t.Errorf("WatermarkFor() = %v, want %v", wm.Unix(), at.Unix())
		}
	})

	t.Run("watermark never moves backward", func(t *testing.T) {
		later := time.Now()
		earlier := later.Add(-time.Hour)

		if err := store.InvalidateAllForUser(ctx, "user-2", later); err != nil {
			t.Fatalf("InvalidateAllForUser() error = %v", err)
		}
		if err := store.InvalidateAllForUser(ctx, "user-2", earlier); err != nil {
			t.Fatalf("InvalidateAllForUser() error = %v", err)
		}

		wm, exists, err := store.WatermarkFor(ctx, "user-2")
		if err != nil {
			t.Fatalf("WatermarkFor() error = %v", err)
		}
		if !exists {
			t.Fatal("WatermarkFor() exists = false")
		}
		if wm.Unix() != later.Unix() {
			t.Errorf("WatermarkFor() = %v, want the later value %v", wm.Unix(), later.Unix())
		}
	})

	t.Run("watermark moves forward", func(t *testing.T) {
		first := time.Now().Add(-time.Hour)
		second := time.Now()

		if err := store.InvalidateAllForUser(ctx, "user-3", first); err != nil {
			t.Fatalf("InvalidateAllForUser() error = %v", err)
		}
		if err := store.InvalidateAllForUser(ctx, "user-3", second); err != nil {
			t.Fatalf("InvalidateAllForUser() error = %v", err)
		}

		wm, _, err := store.WatermarkFor(ctx, "user-3")
		if err != nil {
			t.Fatalf("WatermarkFor() error = %v", err)
		}
		if wm.Unix() != second.Unix() {
			t.Errorf("WatermarkFor() = %v, want %v", wm.Unix(), second.Unix())
		}
	})

	t.Run("script fallback without preload", func(t *testing.T) {
		// A store that never called LoadScripts still works via EVAL.
		fresh := NewRedisRevocationStore(client, 168*time.Hour)
		at := time.Now()
		if err := fresh.InvalidateAllForUser(ctx, "user-4", at); err != nil {
			t.Fatalf("InvalidateAllForUser() without LoadScripts error = %v", err)
		}

		wm, exists, err := fresh.WatermarkFor(ctx, "user-4")
		if err != nil {
			t.Fatalf("WatermarkFor() error = %v", err)
		}
		if !exists || wm.Unix() != at.Unix() {
			t.Errorf("WatermarkFor() = (%v, %v), want (%v, true)", wm.Unix(), exists, at.Unix())
		}
	})
}
