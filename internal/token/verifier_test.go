package token

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/prohmpiriya/auth-service/internal/domain"
)

// mockRevocationChecker is a map-backed revocation store
type mockRevocationChecker struct {
	revoked      map[string]bool
	watermarks   map[string]time.Time
	revokedErr   error
	watermarkErr error
}

func newMockRevocationChecker() *mockRevocationChecker {
	return &mockRevocationChecker{
		revoked:    make(map[string]bool),
		watermarks: make(map[string]time.Time),
	}
}

func (s *mockRevocationChecker) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	if s.revokedErr != nil {
		return false, s.revokedErr
	}
	return s.revoked[tokenID], nil
}

func (s *mockRevocationChecker) WatermarkFor(ctx context.Context, subjectID string) (time.Time, bool, error) {
	if s.watermarkErr != nil {
		return time.Time{}, false, s.watermarkErr
	}
	wm, ok := s.watermarks[subjectID]
	return wm, ok, nil
}

func TestVerifier_VerifyAccess(t *testing.T) {
	m := newTestManager(t)
	user := testUser()

	t.Run("valid token", func(t *testing.T) {
		store := newMockRevocationChecker()
		v := NewVerifier(m, store, false, zap.NewNop())

		pair, err := m.Issue(user)
		if err != nil {
			t.Fatalf("Issue() error = %v", err)
		}

		claims, err := v.VerifyAccess(context.Background(), pair.AccessToken)
		if err != nil {
			t.Fatalf("VerifyAccess() error = %v", err)
		}
		if claims.SubjectID != user.ID {
			t.Errorf("VerifyAccess() SubjectID = %v, want %v", claims.SubjectID, user.ID)
		}
		if claims.Role != domain.RoleUser {
			t.Errorf("VerifyAccess() Role = %v, want %v", claims.Role, domain.RoleUser)
		}
	})

	t.Run("revoked token", func(t *testing.T) {
		store := newMockRevocationChecker()
		v := NewVerifier(m, store, false, zap.NewNop())

		pair, err := m.Issue(user)
		if err != nil {
			t.Fatalf("Issue() error = %v", err)
		}
		claims, err := m.Parse(pair.AccessToken, domain.TokenKindAccess)
		if err != nil {
			t.Fatalf("Parse() error = %v", err)
		}
		store.revoked[claims.TokenID] = true

		if _, err := v.VerifyAccess(context.Background(), pair.AccessToken); !errors.Is(err, domain.ErrTokenRevoked) {
			t.Errorf("VerifyAccess() error = %v, want %v", err, domain.ErrTokenRevoked)
		}
	})

	t.Run("revocation is checked before signature", func(t *testing.T) {
		// A malformed token cannot pass signature verification, so a
		// revoked verdict proves the store lookup ran first.
		store := newMockRevocationChecker()
		v := NewVerifier(m, store, false, zap.NewNop())

		raw := "garbage-token-without-structure"
		sum := sha256.Sum256([]byte(raw))
		store.revoked[hex.EncodeToString(sum[:])] = true

		if _, err := v.VerifyAccess(context.Background(), raw); !errors.Is(err, domain.ErrTokenRevoked) {
			t.Errorf("VerifyAccess() error = %v, want %v", err, domain.ErrTokenRevoked)
		}
	})

	t.Run("refresh token rejected as access", func(t *testing.T) {
		store := newMockRevocationChecker()
		v := NewVerifier(m, store, false, zap.NewNop())

		pair, err := m.Issue(user)
		if err != nil {
			t.Fatalf("Issue() error = %v", err)
		}
		if _, err := v.VerifyAccess(context.Background(), pair.RefreshToken); !errors.Is(err, domain.ErrTokenInvalid) {
			t.Errorf("VerifyAccess() error = %v, want %v", err, domain.ErrTokenInvalid)
		}
		if _, err := v.VerifyRefresh(context.Background(), pair.RefreshToken); err != nil {
			t.Errorf("VerifyRefresh() error = %v", err)
		}
	})
}

func TestVerifier_Watermark(t *testing.T) {
	m := newTestManager(t)
	user := testUser()

	issue := func(t *testing.T) (string, *domain.Claims) {
		t.Helper()
		pair, err := m.Issue(user)
		if err != nil {
			t.Fatalf("Issue() error = %v", err)
		}
		claims, err := m.Parse(pair.AccessToken, domain.TokenKindAccess)
		if err != nil {
			t.Fatalf("Parse() error = %v", err)
		}
		return pair.AccessToken, claims
	}

	t.Run("issued before watermark is invalidated", func(t *testing.T) {
		store := newMockRevocationChecker()
		v := NewVerifier(m, store, false, zap.NewNop())

		raw, claims := issue(t)
		store.watermarks[user.ID] = claims.IssuedAt.Add(time.Minute)

		if _, err := v.VerifyAccess(context.Background(), raw); !errors.Is(err, domain.ErrTokenInvalidatedByUser) {
			t.Errorf("VerifyAccess() error = %v, want %v", err, domain.ErrTokenInvalidatedByUser)
		}
	})

	t.Run("issued after watermark remains valid", func(t *testing.T) {
		store := newMockRevocationChecker()
		v := NewVerifier(m, store, false, zap.NewNop())

		raw, claims := issue(t)
		store.watermarks[user.ID] = claims.IssuedAt.Add(-time.Minute)

		if _, err := v.VerifyAccess(context.Background(), raw); err != nil {
			t.Errorf("VerifyAccess() error = %v", err)
		}
	})

	t.Run("issued exactly at watermark remains valid", func(t *testing.T) {
		// Strictly-before comparison: equal timestamps pass.
		store := newMockRevocationChecker()
		v := NewVerifier(m, store, false, zap.NewNop())

		raw, claims := issue(t)
		store.watermarks[user.ID] = claims.IssuedAt

		if _, err := v.VerifyAccess(context.Background(), raw); err != nil {
			t.Errorf("VerifyAccess() error = %v", err)
		}
	})
}

func TestVerifier_StoreAvailabilityPolicy(t *testing.T) {
	m := newTestManager(t)
	user := testUser()
	storeErr := errors.New("redis: connection refused")

	pair, err := m.Issue(user)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	t.Run("fail closed maps revocation outage to store unavailable", func(t *testing.T) {
		store := newMockRevocationChecker()
		store.revokedErr = storeErr
		v := NewVerifier(m, store, false, zap.NewNop())

		if _, err := v.VerifyAccess(context.Background(), pair.AccessToken); !errors.Is(err, domain.ErrStoreUnavailable) {
			t.Errorf("VerifyAccess() error = %v, want %v", err, domain.ErrStoreUnavailable)
		}
	})

	t.Run("fail open treats token as not revoked", func(t *testing.T) {
		store := newMockRevocationChecker()
		store.revokedErr = storeErr
		v := NewVerifier(m, store, true, zap.NewNop())

		claims, err := v.VerifyAccess(context.Background(), pair.AccessToken)
		if err != nil {
			t.Fatalf("VerifyAccess() error = %v", err)
		}
		if claims.SubjectID != user.ID {
			t.Errorf("VerifyAccess() SubjectID = %v, want %v", claims.SubjectID, user.ID)
		}
	})

	t.Run("fail closed maps watermark outage to store unavailable", func(t *testing.T) {
		store := newMockRevocationChecker()
		store.watermarkErr = storeErr
		v := NewVerifier(m, store, false, zap.NewNop())

		if _, err := v.VerifyAccess(context.Background(), pair.AccessToken); !errors.Is(err, domain.ErrStoreUnavailable) {
			t.Errorf("VerifyAccess() error = %v, want %v", err, domain.ErrStoreUnavailable)
		}
	})

	t.Run("fail open treats watermark as absent", func(t *testing.T) {
		store := newMockRevocationChecker()
		store.watermarkErr = storeErr
		v := NewVerifier(m, store, true, zap.NewNop())

		if _, err := v.VerifyAccess(context.Background(), pair.AccessToken); err != nil {
			t.Errorf("VerifyAccess() error = %v", err)
		}
	})

	t.Run("fail open still rejects bad signatures", func(t *testing.T) {
		store := newMockRevocationChecker()
		store.revokedErr = storeErr
		v := NewVerifier(m, store, true, zap.NewNop())

		if _, err := v.VerifyAccess(context.Background(), "garbage"); !errors.Is(err, domain.ErrTokenInvalid) {
			t.Errorf("VerifyAccess() error = %v, want %v", err, domain.ErrTokenInvalid)
		}
	})
}

func TestRevocationKey(t *testing.T) {
	m := newTestManager(t)

	t.Run("uses jti when present", func(t *testing.T) {
		pair, err := m.Issue(testUser())
		if err != nil {
			t.Fatalf("Issue() error = %v", err)
		}
		claims, err := m.Parse(pair.AccessToken, domain.TokenKindAccess)
		if err != nil {
			t.Fatalf("Parse() error = %v", err)
		}
		if got := RevocationKey(pair.AccessToken); got != claims.TokenID {
			t.Errorf("RevocationKey() = %v, want jti %v", got, claims.TokenID)
		}
	})

	t.Run("falls back to digest for malformed tokens", func(t *testing.T) {
		raw := "malformed"
		sum := sha256.Sum256([]byte(raw))
		want := hex.EncodeToString(sum[:])
		if got := RevocationKey(raw); got != want {
			t.Errorf("RevocationKey() = %v, want %v", got, want)
		}
	})

	t.Run("digest is stable", func(t *testing.T) {
		if RevocationKey("abc") != RevocationKey("abc") {
			t.Error("RevocationKey() should be deterministic")
		}
	})
}
