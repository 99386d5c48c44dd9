package domain

// Identity is the resolved caller of a request. Anonymous is a value, not an
// error: optional-auth paths resolve to it instead of failing the request.
type Identity struct {
	SubjectID     string `json:"subject_id"`
	Email         string `json:"email"`
	Role          Role   `json:"role"`
	Authenticated bool   `json:"authenticated"`
}

// Anonymous returns the identity of an unauthenticated caller
func Anonymous() Identity {
	return Identity{Authenticated: false}
}

// IdentityFromClaims builds an authenticated identity from verified claims
func IdentityFromClaims(claims *Claims) Identity {
	return Identity{
		SubjectID:     claims.SubjectID,
		Email:         claims.Email,
		Role:          claims.Role,
		Authenticated: true,
	}
}

// IsAnonymous reports whether the identity carries no verified subject
func (i Identity) IsAnonymous() bool {
	return !i.Authenticated
}
