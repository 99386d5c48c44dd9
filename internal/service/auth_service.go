package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/prohmpiriya/auth-service/internal/domain"
	"github.com/prohmpiriya/auth-service/internal/dto"
	"github.com/prohmpiriya/auth-service/internal/events"
	"github.com/prohmpiriya/auth-service/internal/repository"
	"github.com/prohmpiriya/auth-service/internal/token"
	"github.com/prohmpiriya/auth-service/pkg/telemetry"
)

// AuthServiceConfig holds configuration for AuthService
type AuthServiceConfig struct {
	BcryptCost int
}

// AuthService defines the interface for authentication and token
// lifecycle operations
type AuthService interface {
	// Register registers a new user and issues a token pair
	Register(ctx context.Context, req *dto.RegisterRequest) (*dto.AuthResponse, error)
	// Login authenticates a user, enforcing the lockout guard
	Login(ctx context.Context, req *dto.LoginRequest) (*dto.AuthResponse, error)
	// Refresh rotates a refresh token into a fresh pair
	Refresh(ctx context.Context, refreshToken string) (*dto.AuthResponse, error)
	// Logout revokes the presented tokens
	Logout(ctx context.Context, accessToken, refreshToken string) error
	// LogoutAll invalidates every token issued to the subject so far
	LogoutAll(ctx context.Context, subjectID string) error
	// VerifyAccess verifies an access token and returns claims
	VerifyAccess(ctx context.Context, raw string) (*domain.Claims, error)
	// VerifyRefresh verifies a refresh token and returns claims
	VerifyRefresh(ctx context.Context, raw string) (*domain.Claims, error)
	// GetUser retrieves user by ID
	GetUser(ctx context.Context, id string) (*domain.User, error)
}

// authService implements AuthService
type authService struct {
	userRepo        repository.UserRepository
	revocationStore repository.RevocationStore
	lockoutGuard    repository.LockoutGuard
	tokens          *token.Manager
	verifier        *token.Verifier
	publisher       events.Publisher
	config          *AuthServiceConfig
	logger          *zap.Logger
}

// NewAuthService creates a new AuthService
func NewAuthService(
	userRepo repository.UserRepository,
	revocationStore repository.RevocationStore,
	lockoutGuard repository.LockoutGuard,
	tokens *token.Manager,
	verifier *token.Verifier,
	publisher events.Publisher,
	config *AuthServiceConfig,
	logger *zap.Logger,
) AuthService {
	if config == nil {
		config = &AuthServiceConfig{}
	}
	if config.BcryptCost == 0 {
		config.BcryptCost = bcrypt.DefaultCost
	}
	return &authService{
		userRepo:        userRepo,
		revocationStore: revocationStore,
		lockoutGuard:    lockoutGuard,
		tokens:          tokens,
		verifier:        verifier,
		publisher:       publisher,
		config:          config,
		logger:          logger,
	}
}

// Register registers a new user and issues a token pair
func (s *authService) Register(ctx context.Context, req *dto.RegisterRequest) (*dto.AuthResponse, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.auth.register")
	defer span.End()

	span.SetAttributes(attribute.String("email", req.Email))

	// Check if user already exists
	exists, err := s.userRepo.ExistsByEmail(ctx, req.Email)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	if exists {
		span.SetStatus(codes.Error, "user already exists")
		return nil, domain.ErrUserAlreadyExists
	}

	// Hash password
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.config.BcryptCost)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	// Create user
	now := time.Now()
	user := &domain.User{
		ID:           uuid.New().String(),
		Email:        req.Email,
		PasswordHash: string(hashedPassword),
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Role:         domain.RoleUser,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	pair, err := s.tokens.Issue(user)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	if err := s.publisher.PublishUserRegistered(ctx, user); err != nil {
		s.logger.Error("failed to publish user registered event",
			zap.String("user_id", user.ID),
			zap.Error(err),
		)
	}

	span.SetAttributes(attribute.String("user_id", user.ID))
	span.SetStatus(codes.Ok, "")

	return s.toAuthResponse(user, pair), nil
}

// Login authenticates a user. The lockout check runs before any
// credential comparison so a locked account is rejected without touching
// the password hash.
func (s *authService) Login(ctx context.Context, req *dto.LoginRequest) (*dto.AuthResponse, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.auth.login")
	defer span.End()

	span.SetAttributes(attribute.String("email", req.Email))

	user, err := s.userRepo.GetByEmail(ctx, req.Email)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	if user == nil {
		span.SetStatus(codes.Error, "invalid credentials")
		return nil, domain.ErrInvalidCredentials
	}

	locked, until, err := s.lockoutGuard.IsLocked(ctx, user.ID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.logger.Error("lockout check failed", zap.String("user_id", user.ID), zap.Error(err))
		return nil, domain.ErrStoreUnavailable
	}
	if locked {
		span.SetStatus(codes.Error, "account locked")
		return nil, domain.NewLockedError(until)
	}

	if !user.IsActive {
		span.SetStatus(codes.Error, "account inactive")
		return nil, domain.ErrAccountInactive
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		if lockErr := s.recordLoginFailure(ctx, user.ID); lockErr != nil {
			span.SetStatus(codes.Error, "account locked")
			return nil, lockErr
		}
		span.SetStatus(codes.Error, "invalid credentials")
		return nil, domain.ErrInvalidCredentials
	}

	if err := s.lockoutGuard.RecordSuccess(ctx, user.ID); err != nil {
		// A stale counter only risks locking earlier than needed, which
		// is the safe direction.
		s.logger.Error("failed to reset lockout state", zap.String("user_id", user.ID), zap.Error(err))
	}

	pair, err := s.tokens.Issue(user)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	if err := s.publisher.PublishUserLoggedIn(ctx, user); err != nil {
		s.logger.Error("failed to publish user logged in event",
			zap.String("user_id", user.ID),
			zap.Error(err),
		)
	}

	span.SetAttributes(attribute.String("user_id", user.ID))
	span.SetStatus(codes.Ok, "")

	return s.toAuthResponse(user, pair), nil
}

// Refresh rotates a refresh token: the presented token is revoked and a
// fresh pair issued
func (s *authService) Refresh(ctx context.Context, refreshToken string) (*dto.AuthResponse, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.auth.refresh")
	defer span.End()

	claims, err := s.verifier.VerifyRefresh(ctx, refreshToken)
	if err != nil {
		span.SetStatus(codes.Error, "refresh token rejected")
		return nil, err
	}

	user, err := s.userRepo.GetByID(ctx, claims.SubjectID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	if user == nil {
		span.SetStatus(codes.Error, "user not found")
		return nil, domain.ErrUserNotFound
	}
	if !user.IsActive {
		span.SetStatus(codes.Error, "account inactive")
		return nil, domain.ErrAccountInactive
	}

	// Rotation: the presented token must die with this call, otherwise
	// two refresh tokens stay live for the subject.
	if err := s.revocationStore.Revoke(ctx, revocationKeyFor(claims, refreshToken), time.Until(claims.ExpiresAt)); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.logger.Error("failed to revoke rotated refresh token",
			zap.String("user_id", user.ID),
			zap.Error(err),
		)
		return nil, domain.ErrStoreUnavailable
	}

	pair, err := s.tokens.Issue(user)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetAttributes(attribute.String("user_id", user.ID))
	span.SetStatus(codes.Ok, "")

	return s.toAuthResponse(user, pair), nil
}

// Logout revokes the presented tokens with their remaining validity as
// tombstone TTL. Tokens that no longer verify are skipped: logging out
// twice, or with an expired token, is not an error.
func (s *authService) Logout(ctx context.Context, accessToken, refreshToken string) error {
	ctx, span := telemetry.StartSpan(ctx, "service.auth.logout")
	defer span.End()

	for _, t := range []struct {
		raw  string
		kind domain.TokenKind
	}{
		{accessToken, domain.TokenKindAccess},
		{refreshToken, domain.TokenKindRefresh},
	} {
		if t.raw == "" {
			continue
		}
		claims, err := s.tokens.Parse(t.raw, t.kind)
		if err != nil {
			continue
		}

		if err := s.revocationStore.Revoke(ctx, revocationKeyFor(claims, t.raw), time.Until(claims.ExpiresAt)); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return domain.ErrStoreUnavailable
		}

		if err := s.publisher.PublishTokenRevoked(ctx, claims.SubjectID, claims.TokenID); err != nil {
			s.logger.Error("failed to publish token revoked event",
				zap.String("subject_id", claims.SubjectID),
				zap.Error(err),
			)
		}
	}

	span.SetStatus(codes.Ok, "")
	return nil
}

// LogoutAll moves the subject's invalidation watermark so every token
// issued before now fails verification
func (s *authService) LogoutAll(ctx context.Context, subjectID string) error {
	ctx, span := telemetry.StartSpan(ctx, "service.auth.logout_all")
	defer span.End()

	span.SetAttributes(attribute.String("subject_id", subjectID))

	at := time.Now()
	if err := s.revocationStore.InvalidateAllForUser(ctx, subjectID, at); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return domain.ErrStoreUnavailable
	}

	if err := s.publisher.PublishSessionsInvalidated(ctx, subjectID, at); err != nil {
		s.logger.Error("failed to publish sessions invalidated event",
			zap.String("subject_id", subjectID),
			zap.Error(err),
		)
	}

	span.SetStatus(codes.Ok, "")
	return nil
}

// VerifyAccess verifies an access token and returns claims
func (s *authService) VerifyAccess(ctx context.Context, raw string) (*domain.Claims, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.auth.verify_access")
	defer span.End()

	claims, err := s.verifier.VerifyAccess(ctx, raw)
	if err != nil {
		span.SetStatus(codes.Error, "access token rejected")
		return nil, err
	}

	span.SetAttributes(attribute.String("subject_id", claims.SubjectID))
	span.SetStatus(codes.Ok, "")
	return claims, nil
}

// VerifyRefresh verifies a refresh token and returns claims
func (s *authService) VerifyRefresh(ctx context.Context, raw string) (*domain.Claims, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.auth.verify_refresh")
	defer span.End()

	claims, err := s.verifier.VerifyRefresh(ctx, raw)
	if err != nil {
		span.SetStatus(codes.Error, "refresh token rejected")
		return nil, err
	}

	span.SetAttributes(attribute.String("subject_id", claims.SubjectID))
	span.SetStatus(codes.Ok, "")
	return claims, nil
}

// GetUser retrieves user by ID
func (s *authService) GetUser(ctx context.Context, id string) (*domain.User, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.auth.get_user")
	defer span.End()

	span.SetAttributes(attribute.String("user_id", id))

	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	if user == nil {
		span.SetStatus(codes.Error, "user not found")
		return nil, domain.ErrUserNotFound
	}

	span.SetStatus(codes.Ok, "")
	return user, nil
}

// recordLoginFailure increments the failure counter. When this failure
// locks the account it publishes the lockout event and returns the lock
// error so the caller can surface the retry deadline right away.
func (s *authService) recordLoginFailure(ctx context.Context, userID string) error {
	state, err := s.lockoutGuard.RecordFailure(ctx, userID)
	if err != nil {
		// The attempt is rejected either way; a lost increment only
		// delays the lock.
		s.logger.Error("failed to record login failure", zap.String("user_id", userID), zap.Error(err))
		return nil
	}
	if !state.Locked {
		return nil
	}

	s.logger.Warn("account locked after repeated login failures",
		zap.String("user_id", userID),
		zap.Int64("attempts", state.Attempts),
		zap.Time("until", state.Until),
	)
	if err := s.publisher.PublishLoginLocked(ctx, userID, state.Until); err != nil {
		s.logger.Error("failed to publish login locked event",
			zap.String("user_id", userID),
			zap.Error(err),
		)
	}
	return domain.NewLockedError(state.Until)
}

func (s *authService) toAuthResponse(user *domain.User, pair *domain.TokenPair) *dto.AuthResponse {
	return &dto.AuthResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		ExpiresIn:    pair.ExpiresIn,
		User:         dto.NewUserResponse(user),
	}
}

// revocationKeyFor prefers the verified jti and falls back to the raw
// token digest for tokens carrying no id
func revocationKeyFor(claims *domain.Claims, raw string) string {
	if claims.TokenID != "" {
		return claims.TokenID
	}
	return token.RevocationKey(raw)
}
