package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/prohmpiriya/auth-service/internal/di"
	"github.com/prohmpiriya/auth-service/internal/domain"
	"github.com/prohmpiriya/auth-service/internal/events"
	"github.com/prohmpiriya/auth-service/internal/middleware"
	"github.com/prohmpiriya/auth-service/internal/repository"
	"github.com/prohmpiriya/auth-service/internal/service"
	"github.com/prohmpiriya/auth-service/internal/token"
	"github.com/prohmpiriya/auth-service/internal/ws"
	"github.com/prohmpiriya/auth-service/pkg/config"
	"github.com/prohmpiriya/auth-service/pkg/database"
	"github.com/prohmpiriya/auth-service/pkg/logger"
	pkgmiddleware "github.com/prohmpiriya/auth-service/pkg/middleware"
	pkgredis "github.com/prohmpiriya/auth-service/pkg/redis"
	"github.com/prohmpiriya/auth-service/pkg/telemetry"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logger
	logLevel := "info"
	if cfg.App.Debug {
		logLevel = "debug"
	}
	if err := logger.Init(&logger.Config{
		Level:       logLevel,
		ServiceName: "auth-service",
		Development: cfg.IsDevelopment(),
	}); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	appLog := logger.Get()
	appLog.Info("Starting Auth Service...")

	ctx := context.Background()

	// Initialize OpenTelemetry
	telemetryCfg := &telemetry.Config{
		Enabled:        cfg.OTel.Enabled,
		ServiceName:    cfg.OTel.ServiceName,
		ServiceVersion: cfg.App.Version,
		Environment:    cfg.App.Environment,
		CollectorAddr:  cfg.OTel.CollectorAddr,
		SampleRatio:    cfg.OTel.SampleRatio,
	}
	if _, err := telemetry.Init(ctx, telemetryCfg); err != nil {
		appLog.Warn(fmt.Sprintf("Failed to initialize telemetry: %v", err))
	} else if telemetryCfg.Enabled {
		appLog.Info(fmt.Sprintf("Telemetry initialized (collector: %s)", telemetryCfg.CollectorAddr))
	}
	defer telemetry.Shutdown(ctx)

	// Initialize database connection (credential store)
	dbCfg := &database.PostgresConfig{
		Host:            cfg.Database.Host,
		Port:            cfg.Database.Port,
		User:            cfg.Database.User,
		Password:        cfg.Database.Password,
		Database:        cfg.Database.DBName,
		SSLMode:         cfg.Database.SSLMode,
		MaxConns:        int32(cfg.Database.MaxOpenConns),
		MinConns:        int32(cfg.Database.MaxIdleConns),
		MaxConnLifetime: cfg.Database.ConnMaxLifetime,
		MaxConnIdleTime: cfg.Database.ConnMaxIdleTime,
		ConnectTimeout:  5 * time.Second,
		MaxRetries:      3,
		RetryInterval:   time.Second,
		EnableTracing:   cfg.OTel.Enabled,
		ServiceName:     "auth-service",
	}
	db, err := database.NewPostgres(ctx, dbCfg)
	if err != nil {
		appLog.Fatal(fmt.Sprintf("Database connection failed: %v", err))
	}
	defer db.Close()
	appLog.Info(fmt.Sprintf("Database connected (pool: min=%d, max=%d)", dbCfg.MinConns, dbCfg.MaxConns))

	// Initialize Redis (revocation store, lockout counters, idempotency records)
	redisCfg := &pkgredis.Config{
		Host:          cfg.Redis.Host,
		Port:          cfg.Redis.Port,
		Password:      cfg.Redis.Password,
		DB:            cfg.Redis.DB,
		PoolSize:      cfg.Redis.PoolSize,
		MinIdleConns:  cfg.Redis.MinIdleConns,
		DialTimeout:   cfg.Redis.DialTimeout,
		ReadTimeout:   cfg.Redis.ReadTimeout,
		WriteTimeout:  cfg.Redis.WriteTimeout,
		MaxRetries:    3,
		RetryInterval: time.Second,
	}
	redisClient, err := pkgredis.NewClient(ctx, redisCfg)
	if err != nil {
		appLog.Fatal(fmt.Sprintf("Redis connection failed: %v", err))
	}
	defer redisClient.Close()
	appLog.Info(fmt.Sprintf("Redis connected (pool: %d, minIdle: %d)", redisCfg.PoolSize, redisCfg.MinIdleConns))

	// Initialize Kafka event publisher
	var publisher events.Publisher
	if cfg.Kafka.Enabled {
		publisher, err = events.NewKafkaPublisher(ctx, &events.KafkaPublisherConfig{
			Brokers:     cfg.Kafka.Brokers,
			Topic:       cfg.Kafka.Topic,
			ServiceName: "auth-service",
			ClientID:    cfg.Kafka.ClientID,
		})
		if err != nil {
			appLog.Warn(fmt.Sprintf("Kafka connection failed, using no-op publisher: %v", err))
			publisher = events.NewNoOpPublisher()
		} else {
			appLog.Info("Kafka event publisher connected")
		}
	} else {
		publisher = events.NewNoOpPublisher()
	}
	defer publisher.Close()

	// Initialize repositories
	userRepo := repository.NewPostgresUserRepository(db.Pool())
	revocationStore := repository.NewRedisRevocationStore(redisClient, cfg.JWT.RefreshTokenTTL)
	lockoutGuard := repository.NewRedisLockoutGuard(redisClient, int64(cfg.Auth.MaxLoginAttempts), cfg.Auth.LockoutDuration)

	// Pre-load Lua scripts into Redis
	if err := revocationStore.LoadScripts(ctx); err != nil {
		appLog.Warn(fmt.Sprintf("Failed to pre-load Lua scripts: %v", err))
	} else {
		appLog.Info("Lua scripts pre-loaded into Redis")
	}

	// Initialize token manager
	tokenManager, err := token.NewManager(token.Config{
		AccessSecret:  cfg.JWT.ResolvedAccessSecret(),
		RefreshSecret: cfg.JWT.ResolvedRefreshSecret(),
		AccessTTL:     cfg.JWT.AccessTokenTTL,
		RefreshTTL:    cfg.JWT.RefreshTokenTTL,
		Issuer:        cfg.JWT.Issuer,
		Audience:      cfg.JWT.Audience,
	})
	if err != nil {
		appLog.Fatal(fmt.Sprintf("Token manager init failed: %v", err))
	}

	// Start the notification hub
	hub := ws.NewHub(appLog)
	go hub.Run()
	defer hub.Close()

	extraction := &middleware.Config{
		CookieName:      cfg.Auth.TokenCookieName,
		AllowQueryToken: cfg.Auth.AllowQueryToken,
	}

	// Build dependency injection container
	container := di.NewContainer(&di.ContainerConfig{
		DB:              db,
		Redis:           redisClient,
		Hub:             hub,
		UserRepo:        userRepo,
		RevocationStore: revocationStore,
		LockoutGuard:    lockoutGuard,
		TokenManager:    tokenManager,
		Publisher:       publisher,
		ServiceConfig:   &service.AuthServiceConfig{BcryptCost: cfg.Auth.BcryptCost},
		Extraction:      extraction,
		FailOpen:        cfg.Auth.FailOpen(),
		WSRequireAuth:   cfg.WS.RequireAuth,
		Logger:          appLog,
	})

	// Setup Gin
	if cfg.IsDevelopment() {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())

	// Add OpenTelemetry tracing middleware if enabled
	if cfg.OTel.Enabled {
		router.Use(telemetry.TracingMiddleware("auth-service"))
	}

	requireAuth := middleware.RequireAuth(container.AuthService, extraction)

	// Health check endpoints
	router.GET("/health", container.HealthHandler.Health)
	router.GET("/health/ready", container.HealthHandler.Ready)

	// WebSocket notification channel
	router.GET("/ws", container.WSHandler.Serve)

	// API routes
	v1 := router.Group("/api/v1")
	{
		auth := v1.Group("/auth")
		{
			// Public endpoints
			auth.POST("/register", container.AuthHandler.Register)
			auth.POST("/login", container.AuthHandler.Login)
			auth.POST("/refresh", refreshIdempotency(redisClient), container.AuthHandler.Refresh)

			// Internal endpoint for token verification (used by other services)
			auth.GET("/validate", container.AuthHandler.Validate)

			// Protected endpoints (require authentication)
			protected := auth.Group("")
			protected.Use(requireAuth)
			{
				protected.POST("/logout", container.AuthHandler.Logout)
				protected.POST("/logout-all", container.AuthHandler.LogoutAll)
				protected.GET("/me", container.AuthHandler.Me)
			}
		}

		users := v1.Group("/users")
		users.Use(requireAuth)
		{
			users.GET("/:id", middleware.RequireOwnerOrAdmin("id"), container.UserHandler.GetUser)
		}

		// Administrative session control
		admin := v1.Group("/admin")
		admin.Use(requireAuth, middleware.RequireRole(domain.RoleAdmin))
		{
			admin.DELETE("/users/:id/sessions", container.UserHandler.ForceLogout)
		}
	}

	// Create HTTP server
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
		ReadHeaderTimeout: 2 * time.Second,
	}

	// Start server in goroutine
	go func() {
		appLog.Info(fmt.Sprintf("Auth Service listening on %s", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLog.Fatal(fmt.Sprintf("Failed to start server: %v", err))
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	appLog.Info("Shutting down server...")

	// Give outstanding requests 30 seconds to complete
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLog.Fatal(fmt.Sprintf("Server forced to shutdown: %v", err))
	}

	appLog.Info("Server exited gracefully")
}

// refreshIdempotency replays the cached token pair when a client retries a
// refresh whose first attempt already rotated the token. Clients opt in by
// sending X-Idempotency-Key; without the header the request passes through.
func refreshIdempotency(redisClient *pkgredis.Client) gin.HandlerFunc {
	idem := pkgmiddleware.IdempotencyMiddleware(pkgmiddleware.DefaultIdempotencyConfig(redisClient.Client()))
	return func(c *gin.Context) {
		if c.GetHeader(pkgmiddleware.IdempotencyKeyHeader) == "" {
			c.Next()
			return
		}
		idem(c)
	}
}
