package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/prohmpiriya/auth-service/internal/dto"
	"github.com/prohmpiriya/auth-service/internal/middleware"
	"github.com/prohmpiriya/auth-service/internal/service"
	"github.com/prohmpiriya/auth-service/pkg/response"
)

// AuthHandler handles authentication endpoints
type AuthHandler struct {
	authService service.AuthService
	extraction  *middleware.Config
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(authService service.AuthService, extraction *middleware.Config) *AuthHandler {
	if extraction == nil {
		extraction = middleware.DefaultConfig()
	}
	return &AuthHandler{
		authService: authService,
		extraction:  extraction,
	}
}

// Register handles POST /api/v1/auth/register
func (h *AuthHandler) Register(c *gin.Context) {
	var req dto.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid request body", err.Error())
		return
	}

	if ok, msg := req.ValidateEmail(); !ok {
		response.Error(c, http.StatusBadRequest, "INVALID_EMAIL", msg, "")
		return
	}

	if ok, msg := req.ValidatePassword(); !ok {
		response.Error(c, http.StatusBadRequest, "WEAK_PASSWORD", msg, "")
		return
	}

	result, err := h.authService.Register(c.Request.Context(), &req)
	if err != nil {
		writeServiceError(c, err)
		return
	}

	response.Created(c, result)
}

// Login handles POST /api/v1/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid request body", err.Error())
		return
	}

	result, err := h.authService.Login(c.Request.Context(), &req)
	if err != nil {
		writeServiceError(c, err)
		return
	}

	response.Success(c, result)
}

// Refresh handles POST /api/v1/auth/refresh
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req dto.RefreshTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid request body", err.Error())
		return
	}

	result, err := h.authService.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		writeServiceError(c, err)
		return
	}

	response.Success(c, result)
}

// Logout handles POST /api/v1/auth/logout. The access token comes from the
// request itself, the refresh token from the optional body; both get revoked.
func (h *AuthHandler) Logout(c *gin.Context) {
	var req dto.LogoutRequest
	// Body is optional; without it only the access token is revoked.
	_ = c.ShouldBindJSON(&req)

	accessToken := middleware.ExtractToken(c, h.extraction)

	if err := h.authService.Logout(c.Request.Context(), accessToken, req.RefreshToken); err != nil {
		writeServiceError(c, err)
		return
	}

	response.Success(c, gin.H{"message": "Logged out successfully"})
}

// LogoutAll handles POST /api/v1/auth/logout-all
func (h *AuthHandler) LogoutAll(c *gin.Context) {
	identity := middleware.IdentityFromContext(c)
	if !identity.Authenticated {
		response.Error(c, http.StatusUnauthorized, "UNAUTHENTICATED", "Authentication required", "")
		return
	}

	if err := h.authService.LogoutAll(c.Request.Context(), identity.SubjectID); err != nil {
		writeServiceError(c, err)
		return
	}

	response.Success(c, gin.H{"message": "All sessions invalidated"})
}

// Me handles GET /api/v1/auth/me
func (h *AuthHandler) Me(c *gin.Context) {
	identity := middleware.IdentityFromContext(c)
	if !identity.Authenticated {
		response.Error(c, http.StatusUnauthorized, "UNAUTHENTICATED", "Authentication required", "")
		return
	}

	user, err := h.authService.GetUser(c.Request.Context(), identity.SubjectID)
	if err != nil {
		writeServiceError(c, err)
		return
	}

	response.Success(c, dto.NewUserResponse(user))
}

// Validate handles GET /api/v1/auth/validate. Other services call this to
// verify a token they were handed.
func (h *AuthHandler) Validate(c *gin.Context) {
	raw := middleware.ExtractToken(c, h.extraction)
	if raw == "" {
		response.Error(c, http.StatusUnauthorized, "UNAUTHENTICATED", "Authentication required", "")
		return
	}

	claims, err := h.authService.VerifyAccess(c.Request.Context(), raw)
	if err != nil {
		writeServiceError(c, err)
		return
	}

	response.Success(c, dto.ValidateResponse{
		Valid:     true,
		SubjectID: claims.SubjectID,
		Email:     claims.Email,
		Role:      string(claims.Role),
		ExpiresAt: claims.ExpiresAt.UTC().Format(time.RFC3339),
	})
}
