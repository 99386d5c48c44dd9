package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/prohmpiriya/auth-service/internal/domain"
	"github.com/prohmpiriya/auth-service/pkg/response"
)

// writeServiceError translates domain errors to the HTTP envelope.
// Every authentication failure maps to 401 regardless of cause; a locked
// account additionally carries its deadline in the details field.
func writeServiceError(c *gin.Context, err error) {
	var locked *domain.LockedError
	if errors.As(err, &locked) {
		response.Error(c, http.StatusUnauthorized, "ACCOUNT_LOCKED",
			"Account temporarily locked after repeated login failures",
			"locked until "+locked.Until.UTC().Format(time.RFC3339))
		return
	}

	switch {
	case errors.Is(err, domain.ErrAccountLocked):
		response.Error(c, http.StatusUnauthorized, "ACCOUNT_LOCKED",
			"Account temporarily locked after repeated login failures", "")
	case errors.Is(err, domain.ErrInvalidCredentials):
		response.Error(c, http.StatusUnauthorized, "INVALID_CREDENTIALS",
			"Invalid email or password", "")
	case errors.Is(err, domain.ErrAccountInactive):
		response.Error(c, http.StatusUnauthorized, "ACCOUNT_INACTIVE",
			"Account is deactivated", "")
	case errors.Is(err, domain.ErrTokenExpired):
		response.Error(c, http.StatusUnauthorized, "TOKEN_EXPIRED",
			"Token has expired", "")
	case errors.Is(err, domain.ErrTokenRevoked):
		response.Error(c, http.StatusUnauthorized, "TOKEN_REVOKED",
			"Token has been revoked", "")
	case errors.Is(err, domain.ErrTokenInvalidatedByUser):
		response.Error(c, http.StatusUnauthorized, "TOKEN_INVALIDATED",
			"Token was invalidated by a session reset", "")
	case errors.Is(err, domain.ErrTokenInvalid):
		response.Error(c, http.StatusUnauthorized, "INVALID_TOKEN",
			"Invalid token", "")
	case errors.Is(err, domain.ErrUnauthenticated):
		response.Error(c, http.StatusUnauthorized, "UNAUTHENTICATED",
			"Authentication required", "")
	case errors.Is(err, domain.ErrForbidden):
		response.Error(c, http.StatusForbidden, "FORBIDDEN",
			"Insufficient permissions", "")
	case errors.Is(err, domain.ErrUserAlreadyExists):
		response.Error(c, http.StatusConflict, "USER_EXISTS",
			"User with this email already exists", "")
	case errors.Is(err, domain.ErrUserNotFound):
		response.NotFound(c, "User not found")
	case errors.Is(err, domain.ErrStoreUnavailable):
		response.Error(c, http.StatusServiceUnavailable, "STORE_UNAVAILABLE",
			"Authentication store is temporarily unavailable", "")
	default:
		response.InternalError(c, err)
	}
}
