package token

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/prohmpiriya/auth-service/internal/domain"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	m, err := NewManager(Config{
		AccessSecret:  "test-access-secret",
		RefreshSecret: "test-refresh-secret",
		AccessTTL:     15 * time.Minute,
		RefreshTTL:    168 * time.Hour,
		Issuer:        "auth-service",
		Audience:      "api",
	})
	if err != nil {
		t.Fatalf("NewManager() error = %v", err)
	}
	return m
}

func testUser() *domain.User {
	return &domain.User{
		ID:        "u1",
		Email:     "u1@example.com",
		Role:      domain.RoleUser,
		IsActive:  true,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
}

// signTestToken builds a token with full control over claims, for expiry
// and registered-claim edge cases that Issue never produces
func signTestToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("SignedString() error = %v", err)
	}
	return raw
}

func baseClaims(kind domain.TokenKind, iat, exp time.Time) jwt.MapClaims {
	return jwt.MapClaims{
		"sub":        "u1",
		"email":      "u1@example.com",
		"role":       "user",
		"jti":        uuid.New().String(),
		"token_kind": string(kind),
		"iss":        "auth-service",
		"aud":        "api",
		"iat":        iat.Unix(),
		"exp":        exp.Unix(),
	}
}

func TestNewManager_ConfigErrors(t *testing.T) {
	valid := Config{
		AccessSecret:  "a",
		RefreshSecret: "r",
		AccessTTL:     time.Minute,
		RefreshTTL:    time.Hour,
		Issuer:        "auth-service",
		Audience:      "api",
	}

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"missing access secret", func(c *Config) { c.AccessSecret = "" }},
		{"missing refresh secret", func(c *Config) { c.RefreshSecret = "" }},
		{"zero access TTL", func(c *Config) { c.AccessTTL = 0 }},
		{"negative refresh TTL", func(c *Config) { c.RefreshTTL = -time.Minute }},
		{"missing issuer", func(c *Config) { c.Issuer = "" }},
		{"missing audience", func(c *Config) { c.Audience = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid
			tt.mutate(&cfg)
			if _, err := NewManager(cfg); err == nil {
				t.Error("NewManager() expected error, got nil")
			}
		})
	}

	t.Run("valid config", func(t *testing.T) {
		if _, err := NewManager(valid); err != nil {
			t.Errorf("NewManager() error = %v", err)
		}
	})
}

func TestManager_IssueAndParse(t *testing.T) {
	m := newTestManager(t)
	user := testUser()

	pair, err := m.Issue(user)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}
	if pair.AccessToken == "" {
		t.Error("Issue() AccessToken is empty")
	}
	if pair.RefreshToken == "" {
		t.Error("Issue() RefreshToken is empty")
	}
	if pair.ExpiresIn != int64((15 * time.Minute).Seconds()) {
		t.Errorf("Issue() ExpiresIn = %d, want %d", pair.ExpiresIn, int64((15*time.Minute).Seconds()))
	}

	t.Run("access token round-trip", func(t *testing.T) {
		claims, err := m.Parse(pair.AccessToken, domain.TokenKindAccess)
		if err != nil {
			t.Fatalf("Parse() error = %v", err)
		}
		if claims.SubjectID != user.ID {
			t.Errorf("Parse() SubjectID = %v, want %v", claims.SubjectID, user.ID)
		}
		if claims.Email != user.Email {
			t.Errorf("Parse() Email = %v, want %v", claims.Email, user.Email)
		}
		if claims.Role != domain.RoleUser {
			t.Errorf("Parse() Role = %v, want %v", claims.Role, domain.RoleUser)
		}
		if claims.Kind != domain.TokenKindAccess {
			t.Errorf("Parse() Kind = %v, want %v", claims.Kind, domain.TokenKindAccess)
		}
		if claims.TokenID == "" {
			t.Error("Parse() TokenID is empty")
		}
	})

	t.Run("refresh token round-trip", func(t *testing.T) {
		claims, err := m.Parse(pair.RefreshToken, domain.TokenKindRefresh)
		if err != nil {
			t.Fatalf("Parse() error = %v", err)
		}
		if claims.Kind != domain.TokenKindRefresh {
			t.Errorf("Parse() Kind = %v, want %v", claims.Kind, domain.TokenKindRefresh)
		}
		if claims.ExpiresAt.Sub(claims.IssuedAt) != 168*time.Hour {
			t.Errorf("refresh lifetime = %v, want %v", claims.ExpiresAt.Sub(claims.IssuedAt), 168*time.Hour)
		}
	})

	t.Run("tokens carry distinct ids", func(t *testing.T) {
		access, _ := m.Parse(pair.AccessToken, domain.TokenKindAccess)
		refresh, _ := m.Parse(pair.RefreshToken, domain.TokenKindRefresh)
		if access.TokenID == refresh.TokenID {
			t.Error("access and refresh tokens should carry distinct jti values")
		}
	})
}

func TestManager_Parse_KindMismatch(t *testing.T) {
	m := newTestManager(t)
	pair, err := m.Issue(testUser())
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	t.Run("refresh token where access required", func(t *testing.T) {
		if _, err := m.Parse(pair.RefreshToken, domain.TokenKindAccess); !errors.Is(err, domain.ErrTokenInvalid) {
			t.Errorf("Parse() error = %v, want %v", err, domain.ErrTokenInvalid)
		}
	})

	t.Run("access token where refresh required", func(t *testing.T) {
		if _, err := m.Parse(pair.AccessToken, domain.TokenKindRefresh); !errors.Is(err, domain.ErrTokenInvalid) {
			t.Errorf("Parse() error = %v, want %v", err, domain.ErrTokenInvalid)
		}
	})

	t.Run("kind claim rejected under shared secret", func(t *testing.T) {
		// Single shared secret: the secret no longer discriminates, only
		// the token_kind claim does.
		shared, err := NewManager(Config{
			AccessSecret:  "shared-secret",
			RefreshSecret: "shared-secret",
			AccessTTL:     15 * time.Minute,
			RefreshTTL:    168 * time.Hour,
			Issuer:        "auth-service",
			Audience:      "api",
		})
		if err != nil {
			t.Fatalf("NewManager() error = %v", err)
		}
		pair, err := shared.Issue(testUser())
		if err != nil {
			t.Fatalf("Issue() error = %v", err)
		}
		if _, err := shared.Parse(pair.RefreshToken, domain.TokenKindAccess); !errors.Is(err, domain.ErrTokenInvalid) {
			t.Errorf("Parse() error = %v, want %v", err, domain.ErrTokenInvalid)
		}
		if _, err := shared.Parse(pair.AccessToken, domain.TokenKindAccess); err != nil {
			t.Errorf("Parse() matching kind error = %v", err)
		}
	})
}

func TestManager_Parse_Rejections(t *testing.T) {
	m := newTestManager(t)
	now := time.Now()

	tests := []struct {
		name    string
		raw     string
		wantErr error
	}{
		{
			name:    "malformed token",
			raw:     "not-a-token",
			wantErr: domain.ErrTokenInvalid,
		},
		{
			name: "expired token",
			raw: signTestToken(t, "test-access-secret",
				baseClaims(domain.TokenKindAccess, now.Add(-time.Hour), now.Add(-30*time.Minute))),
			wantErr: domain.ErrTokenExpired,
		},
		{
			name: "wrong signature",
			raw: signTestToken(t, "some-other-secret",
				baseClaims(domain.TokenKindAccess, now, now.Add(time.Hour))),
			wantErr: domain.ErrTokenInvalid,
		},
		{
			name: "wrong issuer",
			raw: signTestToken(t, "test-access-secret", jwt.MapClaims{
				"sub": "u1", "token_kind": "access", "iss": "someone-else", "aud": "api",
				"iat": now.Unix(), "exp": now.Add(time.Hour).Unix(),
			}),
			wantErr: domain.ErrTokenInvalid,
		},
		{
			name: "wrong audience",
			raw: signTestToken(t, "test-access-secret", jwt.MapClaims{
				"sub": "u1", "token_kind": "access", "iss": "auth-service", "aud": "other-api",
				"iat": now.Unix(), "exp": now.Add(time.Hour).Unix(),
			}),
			wantErr: domain.ErrTokenInvalid,
		},
		{
			name: "missing subject",
			raw: signTestToken(t, "test-access-secret", jwt.MapClaims{
				"token_kind": "access", "iss": "auth-service", "aud": "api",
				"iat": now.Unix(), "exp": now.Add(time.Hour).Unix(),
			}),
			wantErr: domain.ErrTokenInvalid,
		},
		{
			name: "missing expiry",
			raw: signTestToken(t, "test-access-secret", jwt.MapClaims{
				"sub": "u1", "token_kind": "access", "iss": "auth-service", "aud": "api",
				"iat": now.Unix(),
			}),
			wantErr: domain.ErrTokenInvalid,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := m.Parse(tt.raw, domain.TokenKindAccess); !errors.Is(err, tt.wantErr) {
				t.Errorf("Parse() error = %v, want %v", err, tt.wantErr)
			}
		})
	}

	t.Run("tampered token", func(t *testing.T) {
		pair, err := m.Issue(testUser())
		if err != nil {
			t.Fatalf("Issue() error = %v", err)
		}
		// Flip a character inside the signature segment
		i := strings.LastIndex(pair.AccessToken, ".") + 5
		flip := byte('X')
		if pair.AccessToken[i] == 'X' {
			flip = 'Y'
		}
		tampered := pair.AccessToken[:i] + string(flip) + pair.AccessToken[i+1:]
		if _, err := m.Parse(tampered, domain.TokenKindAccess); !errors.Is(err, domain.ErrTokenInvalid) {
			t.Errorf("Parse() error = %v, want %v", err, domain.ErrTokenInvalid)
		}
	})
}
