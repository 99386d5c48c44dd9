package domain

import (
	"time"
)

// TokenKind discriminates access tokens from refresh tokens. The kind is
// embedded as a claim so a refresh token is rejected where an access token
// is required even when both are signed with the same secret.
type TokenKind string

const (
	TokenKindAccess  TokenKind = "access"
	TokenKindRefresh TokenKind = "refresh"
)

// Claims represents the verified contents of a signed token
type Claims struct {
	SubjectID string    `json:"sub"`
	Email     string    `json:"email"`
	Role      Role      `json:"role"`
	TokenID   string    `json:"jti"`
	Kind      TokenKind `json:"token_kind"`
	IssuedAt  time.Time `json:"iat"`
	ExpiresAt time.Time `json:"exp"`
}
