package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/prohmpiriya/auth-service/internal/dto"
	"github.com/prohmpiriya/auth-service/internal/service"
	"github.com/prohmpiriya/auth-service/pkg/response"
)

// UserHandler handles user lookup and administrative session control
type UserHandler struct {
	authService service.AuthService
}

// NewUserHandler creates a new user handler
func NewUserHandler(authService service.AuthService) *UserHandler {
	return &UserHandler{authService: authService}
}

// GetUser handles GET /api/v1/users/:id. Route-level authorization
// restricts access to the owner or an admin.
func (h *UserHandler) GetUser(c *gin.Context) {
	user, err := h.authService.GetUser(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeServiceError(c, err)
		return
	}

	response.Success(c, dto.NewUserResponse(user))
}

// ForceLogout handles DELETE /api/v1/admin/users/:id/sessions. Every token
// the target user holds stops verifying from this moment on.
func (h *UserHandler) ForceLogout(c *gin.Context) {
	subjectID := c.Param("id")

	if _, err := h.authService.GetUser(c.Request.Context(), subjectID); err != nil {
		writeServiceError(c, err)
		return
	}

	if err := h.authService.LogoutAll(c.Request.Context(), subjectID); err != nil {
		writeServiceError(c, err)
		return
	}

	response.Success(c, gin.H{"message": "All sessions invalidated", "subject_id": subjectID})
}
