package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/prohmpiriya/auth-service/internal/domain"
	"github.com/prohmpiriya/auth-service/pkg/response"
)

// RequireRole rejects callers whose verified role is not in the allow-list.
// Runs after RequireAuth; an unauthenticated caller gets 401, a wrong role 403.
func RequireRole(roles ...domain.Role) gin.HandlerFunc {
	allowed := make(map[domain.Role]struct{}, len(roles))
	for _, role := range roles {
		allowed[role] = struct{}{}
	}

	return func(c *gin.Context) {
		identity := IdentityFromContext(c)
		if !identity.Authenticated {
			response.Error(c, http.StatusUnauthorized, "UNAUTHENTICATED", "Authentication required", "")
			c.Abort()
			return
		}
		if _, ok := allowed[identity.Role]; !ok {
			response.Error(c, http.StatusForbidden, "FORBIDDEN", "Insufficient permissions", "")
			c.Abort()
			return
		}
		c.Next()
	}
}

// RequireOwnerOrAdmin rejects callers who neither own the resource named by
// the route parameter nor hold the admin role
func RequireOwnerOrAdmin(ownerParam string) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity := IdentityFromContext(c)
		if !identity.Authenticated {
			response.Error(c, http.StatusUnauthorized, "UNAUTHENTICATED", "Authentication required", "")
			c.Abort()
			return
		}
		if !CanAccessOwner(identity, c.Param(ownerParam)) {
			response.Error(c, http.StatusForbidden, "FORBIDDEN", "Insufficient permissions", "")
			c.Abort()
			return
		}
		c.Next()
	}
}

// CanAccessOwner reports whether the identity may act on the owner's
// resources: the owner themselves, or any admin
func CanAccessOwner(identity domain.Identity, ownerID string) bool {
	if !identity.Authenticated {
		return false
	}
	if identity.Role == domain.RoleAdmin {
		return true
	}
	return ownerID != "" && identity.SubjectID == ownerID
}
