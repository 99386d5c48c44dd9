package di

import (
	"go.uber.org/zap"

	"github.com/prohmpiriya/auth-service/internal/events"
	"github.com/prohmpiriya/auth-service/internal/handler"
	"github.com/prohmpiriya/auth-service/internal/middleware"
	"github.com/prohmpiriya/auth-service/internal/repository"
	"github.com/prohmpiriya/auth-service/internal/service"
	"github.com/prohmpiriya/auth-service/internal/token"
	"github.com/prohmpiriya/auth-service/internal/ws"
	"github.com/prohmpiriya/auth-service/pkg/database"
	"github.com/prohmpiriya/auth-service/pkg/redis"
)

// Container holds all dependencies for the auth service
type Container struct {
	// Infrastructure
	DB    *database.PostgresDB
	Redis *redis.Client
	Hub   *ws.Hub

	// Repositories
	UserRepo        repository.UserRepository
	RevocationStore repository.RevocationStore
	LockoutGuard    repository.LockoutGuard

	// Token plumbing
	TokenManager  *token.Manager
	TokenVerifier *token.Verifier

	// Services
	AuthService service.AuthService

	// Handlers
	HealthHandler *handler.HealthHandler
	AuthHandler   *handler.AuthHandler
	UserHandler   *handler.UserHandler
	WSHandler     *handler.WSHandler
}

// ContainerConfig contains configuration for building the container
type ContainerConfig struct {
	DB              *database.PostgresDB
	Redis           *redis.Client
	Hub             *ws.Hub
	UserRepo        repository.UserRepository
	RevocationStore repository.RevocationStore
	LockoutGuard    repository.LockoutGuard
	TokenManager    *token.Manager
	Publisher       events.Publisher
	ServiceConfig   *service.AuthServiceConfig
	Extraction      *middleware.Config
	FailOpen        bool
	WSRequireAuth   bool
	Logger          *zap.Logger
}

// NewContainer creates a new dependency injection container
func NewContainer(cfg *ContainerConfig) *Container {
	c := &Container{
		DB:              cfg.DB,
		Redis:           cfg.Redis,
		Hub:             cfg.Hub,
		UserRepo:        cfg.UserRepo,
		RevocationStore: cfg.RevocationStore,
		LockoutGuard:    cfg.LockoutGuard,
		TokenManager:    cfg.TokenManager,
	}

	c.TokenVerifier = token.NewVerifier(cfg.TokenManager, cfg.RevocationStore, cfg.FailOpen, cfg.Logger)

	// Live connections learn about revocations through the same publisher
	// path the broker does.
	publisher := cfg.Publisher
	if cfg.Hub != nil {
		publisher = events.NewMultiPublisher(cfg.Publisher, events.NewHubNotifier(cfg.Hub))
	}

	// Initialize services
	c.AuthService = service.NewAuthService(
		c.UserRepo,
		c.RevocationStore,
		c.LockoutGuard,
		c.TokenManager,
		c.TokenVerifier,
		publisher,
		cfg.ServiceConfig,
		cfg.Logger,
	)

	// Initialize handlers
	c.HealthHandler = handler.NewHealthHandler(c.DB, c.Redis)
	c.AuthHandler = handler.NewAuthHandler(c.AuthService, cfg.Extraction)
	c.UserHandler = handler.NewUserHandler(c.AuthService)
	c.WSHandler = handler.NewWSHandler(c.Hub, c.AuthService, cfg.Extraction, cfg.WSRequireAuth, cfg.Logger)

	return c
}
