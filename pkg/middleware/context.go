package middleware

import "github.com/gin-gonic/gin"

const (
	// ContextKeyUserID is the gin context key carrying the authenticated user id
	ContextKeyUserID = "user_id"
	// ContextKeyEmail is the gin context key carrying the authenticated email
	ContextKeyEmail = "email"
	// ContextKeyRole is the gin context key carrying the authenticated role
	ContextKeyRole = "role"
)

// GetUserID extracts the authenticated user id from gin context
func GetUserID(c *gin.Context) (string, bool) {
	v, exists := c.Get(ContextKeyUserID)
	if !exists {
		return "", false
	}
	id, ok := v.(string)
	return id, ok
}

// GetUserRole extracts the authenticated role from gin context
func GetUserRole(c *gin.Context) (string, bool) {
	v, exists := c.Get(ContextKeyRole)
	if !exists {
		return "", false
	}
	role, ok := v.(string)
	return role, ok
}
