package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/prohmpiriya/auth-service/internal/domain"
)

// Config contains signing configuration for the token manager
type Config struct {
	AccessSecret  string
	RefreshSecret string
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	Issuer        string
	Audience      string
}

// Manager issues and parses signed token pairs. Issuance is pure token
// construction: no store access, no side effects.
type Manager struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
	issuer        string
	audience      string
}

// NewManager creates a token manager. Missing signing configuration is a
// startup error, never a per-call error.
func NewManager(cfg Config) (*Manager, error) {
	if cfg.AccessSecret == "" {
		return nil, errors.New("access token secret is required")
	}
	if cfg.RefreshSecret == "" {
		return nil, errors.New("refresh token secret is required")
	}
	if cfg.AccessTTL <= 0 {
		return nil, errors.New("access token TTL must be positive")
	}
	if cfg.RefreshTTL <= 0 {
		return nil, errors.New("refresh token TTL must be positive")
	}
	if cfg.Issuer == "" {
		return nil, errors.New("token issuer is required")
	}
	if cfg.Audience == "" {
		return nil, errors.New("token audience is required")
	}

	return &Manager{
		accessSecret:  []byte(cfg.AccessSecret),
		refreshSecret: []byte(cfg.RefreshSecret),
		accessTTL:     cfg.AccessTTL,
		refreshTTL:    cfg.RefreshTTL,
		issuer:        cfg.Issuer,
		audience:      cfg.Audience,
	}, nil
}

// Issue builds a signed access/refresh token pair for the user
func (m *Manager) Issue(user *domain.User) (*domain.TokenPair, error) {
	now := time.Now()

	accessToken, err := m.sign(user, domain.TokenKindAccess, now, m.accessTTL, m.accessSecret)
	if err != nil {
		return nil, fmt.Errorf("failed to sign access token: %w", err)
	}

	refreshToken, err := m.sign(user, domain.TokenKindRefresh, now, m.refreshTTL, m.refreshSecret)
	if err != nil {
		return nil, fmt.Errorf("failed to sign refresh token: %w", err)
	}

	return &domain.TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    int64(m.accessTTL.Seconds()),
	}, nil
}

// Parse verifies the token's signature and registered claims against the
// secret for the requested kind and returns the embedded claims. Tokens of
// the wrong kind are rejected even when both kinds share a secret.
func (m *Manager) Parse(raw string, kind domain.TokenKind) (*domain.Claims, error) {
	token, err := jwt.Parse(raw, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, domain.ErrTokenInvalid
		}
		return m.secretFor(kind), nil
	},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithIssuer(m.issuer),
		jwt.WithAudience(m.audience),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, domain.ErrTokenExpired
		}
		return nil, domain.ErrTokenInvalid
	}
	if !token.Valid {
		return nil, domain.ErrTokenInvalid
	}

	mapClaims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, domain.ErrTokenInvalid
	}

	return claimsFrom(mapClaims, kind)
}

func (m *Manager) sign(user *domain.User, kind domain.TokenKind, now time.Time, ttl time.Duration, secret []byte) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":        user.ID,
		"email":      user.Email,
		"role":       string(user.Role),
		"jti":        uuid.New().String(),
		"token_kind": string(kind),
		"iss":        m.issuer,
		"aud":        m.audience,
		"iat":        now.Unix(),
		"exp":        now.Add(ttl).Unix(),
	})
	return token.SignedString(secret)
}

func (m *Manager) secretFor(kind domain.TokenKind) []byte {
	if kind == domain.TokenKindRefresh {
		return m.refreshSecret
	}
	return m.accessSecret
}

// claimsFrom maps verified jwt claims to domain claims, enforcing the
// token_kind discriminator
func claimsFrom(mapClaims jwt.MapClaims, kind domain.TokenKind) (*domain.Claims, error) {
	sub, err := mapClaims.GetSubject()
	if err != nil || sub == "" {
		return nil, domain.ErrTokenInvalid
	}

	claimedKind, _ := mapClaims["token_kind"].(string)
	if claimedKind != string(kind) {
		return nil, domain.ErrTokenInvalid
	}

	iat, err := mapClaims.GetIssuedAt()
	if err != nil || iat == nil {
		return nil, domain.ErrTokenInvalid
	}
	exp, err := mapClaims.GetExpirationTime()
	if err != nil || exp == nil {
		return nil, domain.ErrTokenInvalid
	}

	email, _ := mapClaims["email"].(string)
	role, _ := mapClaims["role"].(string)
	jti, _ := mapClaims["jti"].(string)

	return &domain.Claims{
		SubjectID: sub,
		Email:     email,
		Role:      domain.Role(role),
		TokenID:   jti,
		Kind:      kind,
		IssuedAt:  iat.Time,
		ExpiresAt: exp.Time,
	}, nil
}
