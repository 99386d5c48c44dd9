package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/prohmpiriya/auth-service/internal/domain"
	"github.com/prohmpiriya/auth-service/internal/middleware"
	"github.com/prohmpiriya/auth-service/internal/ws"
	"github.com/prohmpiriya/auth-service/pkg/response"
)

// WSHandler upgrades HTTP requests into hub-managed notification
// connections. The token is verified once, before the upgrade; the
// resulting identity sticks for the life of the connection.
type WSHandler struct {
	hub         *ws.Hub
	verifier    middleware.TokenVerifier
	extraction  *middleware.Config
	requireAuth bool
	upgrader    websocket.Upgrader
	logger      *zap.Logger
}

// NewWSHandler creates a new websocket handler
func NewWSHandler(hub *ws.Hub, verifier middleware.TokenVerifier, extraction *middleware.Config, requireAuth bool, logger *zap.Logger) *WSHandler {
	if extraction == nil {
		extraction = middleware.DefaultConfig()
	}
	return &WSHandler{
		hub:         hub,
		verifier:    verifier,
		extraction:  extraction,
		requireAuth: requireAuth,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// Origin checks belong to the gateway in front of this service.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		logger: logger,
	}
}

// Serve handles GET /ws
func (h *WSHandler) Serve(c *gin.Context) {
	identity := domain.Anonymous()

	raw := middleware.ExtractToken(c, h.extraction)
	switch {
	case raw == "":
		if h.requireAuth {
			response.Error(c, http.StatusUnauthorized, "UNAUTHENTICATED", "Authentication required", "")
			return
		}
	default:
		claims, err := h.verifier.VerifyAccess(c.Request.Context(), raw)
		if err != nil {
			if h.requireAuth {
				writeServiceError(c, err)
				return
			}
			// Optional mode treats a bad token like no token.
		} else {
			identity = domain.IdentityFromClaims(claims)
		}
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error to the client.
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	client := ws.NewClient(h.hub, conn, identity, h.logger)
	client.Start()

	if welcome, err := ws.NewEnvelope(ws.MsgTypeConnected, gin.H{
		"subject_id":    identity.SubjectID,
		"authenticated": identity.Authenticated,
	}); err == nil {
		client.Send(welcome)
	}
}
