package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/prohmpiriya/auth-service/internal/domain"
	pkgmiddleware "github.com/prohmpiriya/auth-service/pkg/middleware"
	"github.com/prohmpiriya/auth-service/pkg/response"
)

// contextKeyIdentity is the gin context key carrying the resolved identity
const contextKeyIdentity = "auth_identity"

// DefaultCookieName is the cookie consulted when the Authorization header
// carries no bearer token
const DefaultCookieName = "access_token"

// Config controls where the auth middlewares look for a token
type Config struct {
	// CookieName is the cookie consulted after the Authorization header
	CookieName string
	// AllowQueryToken enables the `token` query parameter as the last
	// extraction source. Query strings leak into access logs; production
	// configuration validation keeps this off.
	AllowQueryToken bool
}

// DefaultConfig returns the extraction defaults
func DefaultConfig() *Config {
	return &Config{CookieName: DefaultCookieName}
}

// TokenVerifier is the verification surface the middlewares need
type TokenVerifier interface {
	VerifyAccess(ctx context.Context, raw string) (*domain.Claims, error)
}

// ExtractToken pulls a token off the request: Authorization bearer header
// first, then the configured cookie, then the `token` query parameter when
// enabled. First match wins; an unusable source falls through to the next.
func ExtractToken(c *gin.Context, cfg *Config) string {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	const bearerPrefix = "Bearer "
	if header := c.GetHeader("Authorization"); strings.HasPrefix(header, bearerPrefix) {
		if raw := strings.TrimSpace(header[len(bearerPrefix):]); raw != "" {
			return raw
		}
	}
	if cfg.CookieName != "" {
		if raw, err := c.Cookie(cfg.CookieName); err == nil && raw != "" {
			return raw
		}
	}
	if cfg.AllowQueryToken {
		if raw := c.Query("token"); raw != "" {
			return raw
		}
	}
	return ""
}

// RequireAuth rejects requests without a verifiable access token and stores
// the resolved identity on the context
func RequireAuth(verifier TokenVerifier, cfg *Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := ExtractToken(c, cfg)
		if raw == "" {
			response.Error(c, http.StatusUnauthorized, "UNAUTHENTICATED", "Authentication required", "")
			c.Abort()
			return
		}

		claims, err := verifier.VerifyAccess(c.Request.Context(), raw)
		if err != nil {
			abortVerification(c, err)
			return
		}

		setIdentity(c, domain.IdentityFromClaims(claims))
		c.Next()
	}
}

// OptionalAuth resolves an identity when a valid token is presented and
// continues anonymously otherwise. Verification errors never surface here;
// a revoked or expired token is simply an anonymous caller.
func OptionalAuth(verifier TokenVerifier, cfg *Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := ExtractToken(c, cfg)
		if raw == "" {
			setIdentity(c, domain.Anonymous())
			c.Next()
			return
		}

		claims, err := verifier.VerifyAccess(c.Request.Context(), raw)
		if err != nil {
			setIdentity(c, domain.Anonymous())
			c.Next()
			return
		}

		setIdentity(c, domain.IdentityFromClaims(claims))
		c.Next()
	}
}

// IdentityFromContext returns the identity resolved by RequireAuth or
// OptionalAuth, or the anonymous identity when neither ran
func IdentityFromContext(c *gin.Context) domain.Identity {
	v, exists := c.Get(contextKeyIdentity)
	if !exists {
		return domain.Anonymous()
	}
	identity, ok := v.(domain.Identity)
	if !ok {
		return domain.Anonymous()
	}
	return identity
}

func setIdentity(c *gin.Context, identity domain.Identity) {
	c.Set(contextKeyIdentity, identity)
	if identity.Authenticated {
		c.Set(pkgmiddleware.ContextKeyUserID, identity.SubjectID)
		c.Set(pkgmiddleware.ContextKeyEmail, identity.Email)
		c.Set(pkgmiddleware.ContextKeyRole, string(identity.Role))
	}
}

func abortVerification(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrStoreUnavailable):
		response.Error(c, http.StatusServiceUnavailable, "STORE_UNAVAILABLE", "Authentication is temporarily unavailable", "")
	case errors.Is(err, domain.ErrTokenExpired):
		response.Error(c, http.StatusUnauthorized, "TOKEN_EXPIRED", "Access token has expired", "")
	case errors.Is(err, domain.ErrTokenRevoked):
		response.Error(c, http.StatusUnauthorized, "TOKEN_REVOKED", "Access token has been revoked", "")
	case errors.Is(err, domain.ErrTokenInvalidatedByUser):
		response.Error(c, http.StatusUnauthorized, "TOKEN_INVALIDATED", "Access token was invalidated by a session reset", "")
	default:
		response.Error(c, http.StatusUnauthorized, "INVALID_TOKEN", "Invalid access token", "")
	}
	c.Abort()
}
