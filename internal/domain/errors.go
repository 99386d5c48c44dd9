package domain

import (
	"errors"
	"fmt"
	"time"
)

// Domain errors
var (
	// Token errors
	ErrTokenInvalid           = errors.New("token is invalid")
	ErrTokenExpired           = errors.New("token has expired")
	ErrTokenRevoked           = errors.New("token has been revoked")
	ErrTokenInvalidatedByUser = errors.New("token invalidated by user session reset")

	// Account errors
	ErrAccountLocked   = errors.New("account is locked")
	ErrAccountInactive = errors.New("account is inactive")

	// Credential errors
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrUserAlreadyExists  = errors.New("user with this email already exists")
	ErrUserNotFound       = errors.New("user not found")

	// Access errors
	ErrUnauthenticated = errors.New("authentication required")
	ErrForbidden       = errors.New("insufficient permissions")

	// Infrastructure errors
	ErrStoreUnavailable = errors.New("revocation store unavailable")
)

// LockedError carries the lockout deadline. It matches ErrAccountLocked
// under errors.Is so callers can branch without losing the deadline.
type LockedError struct {
	Until time.Time
}

func (e *LockedError) Error() string {
	return fmt.Sprintf("account is locked until %s", e.Until.UTC().Format(time.RFC3339))
}

func (e *LockedError) Unwrap() error {
	return ErrAccountLocked
}

// NewLockedError creates a LockedError with the given deadline
func NewLockedError(until time.Time) *LockedError {
	return &LockedError{Until: until}
}

// IsAuthenticationError checks if the error is an authentication-kind error
// (mapped to 401 at the API boundary)
func IsAuthenticationError(err error) bool {
	return errors.Is(err, ErrTokenInvalid) ||
		errors.Is(err, ErrTokenExpired) ||
		errors.Is(err, ErrTokenRevoked) ||
		errors.Is(err, ErrTokenInvalidatedByUser) ||
		errors.Is(err, ErrAccountLocked) ||
		errors.Is(err, ErrAccountInactive) ||
		errors.Is(err, ErrInvalidCredentials) ||
		errors.Is(err, ErrUnauthenticated)
}

// IsTokenError checks if the error concerns the presented token itself
func IsTokenError(err error) bool {
	return errors.Is(err, ErrTokenInvalid) ||
		errors.Is(err, ErrTokenExpired) ||
		errors.Is(err, ErrTokenRevoked) ||
		errors.Is(err, ErrTokenInvalidatedByUser)
}
