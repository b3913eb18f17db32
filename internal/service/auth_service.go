package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/substring/auth-backend/internal/domain"
	"github.com/substring/auth-backend/internal/dto"
	"github.com/substring/auth-backend/internal/events"
	"github.com/substring/auth-backend/internal/hash"
	"github.com/substring/auth-backend/internal/repository"
	"github.com/substring/auth-backend/internal/token"
	"go.uber.org/zap"
)

var (
	ErrEmailTaken   = errors.New("email already taken")
	ErrWeakPassword = errors.New("password too weak")
	// ErrInvalidCredentials is returned for unknown email and wrong
	// password alike; callers cannot tell which.
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountDisabled    = errors.New("account disabled")
	ErrUserNotFound       = errors.New("user not found")
	ErrForbidden          = errors.New("insufficient role")
)

// AuthServiceConfig holds configuration for AuthService
type AuthServiceConfig struct {
	// DefaultRole is assigned to newly registered users
	DefaultRole string
}

// AuthService composes the credential store, hasher, codec and refresh
// manager into the register / login / refresh / logout flows.
type AuthService interface {
	// Register registers a new user with the default role
	Register(ctx context.Context, req *dto.RegisterRequest) (*domain.User, error)
	// Login authenticates a user and issues a token pair
	Login(ctx context.Context, req *dto.LoginRequest) (*dto.TokenResponse, error)
	// Refresh rotates the presented refresh token and re-mints an access token
	Refresh(ctx context.Context, refreshToken string) (*dto.TokenResponse, error)
	// Logout revokes the presented refresh token; idempotent
	Logout(ctx context.Context, refreshToken string) error
	// LogoutAll revokes every refresh token of a user
	LogoutAll(ctx context.Context, userID string) error
	// GetUser retrieves a user by ID
	GetUser(ctx context.Context, id string) (*domain.User, error)
	// GetUserByEmail retrieves a user by email
	GetUserByEmail(ctx context.Context, email string) (*domain.User, error)
	// ListUsers retrieves all users
	ListUsers(ctx context.Context) ([]*domain.User, error)
	// UpdateUser updates a user's profile fields
	UpdateUser(ctx context.Context, id string, req *dto.UpdateUserRequest) (*domain.User, error)
	// DeleteUser deletes a user and revokes their tokens
	DeleteUser(ctx context.Context, id string) error
}

type authService struct {
	users     repository.UserRepository
	roles     repository.RoleRepository
	hasher    hash.Hasher
	codec     *token.Codec
	refresh   *token.Manager
	publisher events.Publisher
	config    *AuthServiceConfig
	log       *zap.Logger
}

// NewAuthService creates a new AuthService
func NewAuthService(
	users repository.UserRepository,
	roles repository.RoleRepository,
	hasher hash.Hasher,
	codec *token.Codec,
	refresh *token.Manager,
	publisher events.Publisher,
	config *AuthServiceConfig,
	log *zap.Logger,
) AuthService {
	if config.DefaultRole == "" {
		config.DefaultRole = domain.RoleGuest
	}
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &authService{
		users:     users,
		roles:     roles,
		hasher:    hasher,
		codec:     codec,
		refresh:   refresh,
		publisher: publisher,
		config:    config,
		log:       log,
	}
}

// Register registers a new user with the default role
func (s *authService) Register(ctx context.Context, req *dto.RegisterRequest) (*domain.User, error) {
	if ok, _ := req.ValidatePassword(); !ok {
		return nil, ErrWeakPassword
	}

	exists, err := s.users.ExistsByEmail(ctx, req.Email)
	if err != nil {
		return nil, fmt.Errorf("check email: %w", err)
	}
	if exists {
		return nil, ErrEmailTaken
	}

	hashed, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	role, err := s.roles.GetByName(ctx, s.config.DefaultRole)
	if err != nil {
		return nil, fmt.Errorf("lookup default role: %w", err)
	}
	if role == nil {
		return nil, fmt.Errorf("default role %q not seeded", s.config.DefaultRole)
	}

	now := time.Now()
	user := &domain.User{
		ID:           uuid.New().String(),
		Email:        domain.NormalizeEmail(req.Email),
		PasswordHash: hashed,
		Name:         req.Name,
		Roles:        []domain.Role{*role},
		Enabled:      true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.users.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}

	s.publish(ctx, events.TopicUserRegistered, &events.Event{
		EventType: "user.registered",
		UserID:    user.ID,
		Email:     user.Email,
		Timestamp: now,
	})

	s.log.Info("user registered", zap.String("user_id", user.ID))
	return user, nil
}

// Login authenticates a user and issues a token pair
func (s *authService) Login(ctx context.Context, req *dto.LoginRequest) (*dto.TokenResponse, error) {
	user, err := s.users.GetByEmail(ctx, req.Email)
	if err != nil {
		return nil, fmt.Errorf("lookup user: %w", err)
	}
	if user == nil || !s.hasher.Verify(req.Password, user.PasswordHash) {
		return nil, ErrInvalidCredentials
	}
	if !user.Enabled {
		return nil, ErrAccountDisabled
	}

	pair, err := s.issuePair(ctx, user)
	if err != nil {
		return nil, err
	}

	s.publish(ctx, events.TopicUserLogin, &events.Event{
		EventType: "user.login",
		UserID:    user.ID,
		Timestamp: time.Now(),
	})

	return pair, nil
}

// Refresh rotates the presented refresh token and re-mints an access
// token from the stored user, so role changes and disabled accounts take
// effect here. The password is never re-verified.
func (s *authService) Refresh(ctx context.Context, refreshToken string) (*dto.TokenResponse, error) {
	newToken, row, err := s.refresh.Rotate(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, token.ErrTokenReused) {
			s.reportReuse(ctx, refreshToken)
		}
		return nil, err
	}

	user, err := s.users.GetByID(ctx, row.UserID)
	if err != nil {
		return nil, fmt.Errorf("lookup user: %w", err)
	}
	if user == nil {
		return nil, token.ErrTokenNotFound
	}
	if !user.Enabled {
		return nil, ErrAccountDisabled
	}

	access, err := s.codec.IssueAccessToken(user.ID, user.RoleNames())
	if err != nil {
		return nil, fmt.Errorf("issue access token: %w", err)
	}

	return &dto.TokenResponse{
		AccessToken:  access,
		RefreshToken: newToken,
		ExpiresIn:    int64(s.codec.AccessTokenTTL().Seconds()),
		TokenType:    "Bearer",
		User:         dto.NewUserResponse(user),
	}, nil
}

// Logout revokes the presented refresh token. Idempotent: revoking an
// already revoked or unknown token succeeds.
func (s *authService) Logout(ctx context.Context, refreshToken string) error {
	jti, _, err := s.codec.ParseRefreshToken(refreshToken)
	if err != nil {
		return err
	}
	return s.refresh.Revoke(ctx, jti)
}

// LogoutAll revokes every refresh token of a user
func (s *authService) LogoutAll(ctx context.Context, userID string) error {
	return s.refresh.RevokeAllForUser(ctx, userID)
}

// GetUser retrieves a user by ID
func (s *authService) GetUser(ctx context.Context, id string) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	return user, nil
}

// GetUserByEmail retrieves a user by email
func (s *authService) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	return user, nil
}

// ListUsers retrieves all users
func (s *authService) ListUsers(ctx context.Context) ([]*domain.User, error) {
	return s.users.List(ctx)
}

// UpdateUser updates a user's profile fields. Disabling an account also
// revokes its refresh tokens.
func (s *authService) UpdateUser(ctx context.Context, id string, req *dto.UpdateUserRequest) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}

	user.Name = req.Name
	if req.Enabled != nil {
		user.Enabled = *req.Enabled
	}
	user.UpdatedAt = time.Now()

	if err := s.users.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("update user: %w", err)
	}

	if !user.Enabled {
		if err := s.refresh.RevokeAllForUser(ctx, user.ID); err != nil {
			return nil, fmt.Errorf("revoke tokens of disabled user: %w", err)
		}
	}
	return user, nil
}

// DeleteUser deletes a user and revokes their tokens
func (s *authService) DeleteUser(ctx context.Context, id string) error {
	if err := s.refresh.RevokeAllForUser(ctx, id); err != nil {
		return fmt.Errorf("revoke tokens: %w", err)
	}
	return s.users.Delete(ctx, id)
}

func (s *authService) issuePair(ctx context.Context, user *domain.User) (*dto.TokenResponse, error) {
	access, err := s.codec.IssueAccessToken(user.ID, user.RoleNames())
	if err != nil {
		return nil, fmt.Errorf("issue access token: %w", err)
	}

	refreshToken, _, err := s.refresh.Issue(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("issue refresh token: %w", err)
	}

	return &dto.TokenResponse{
		AccessToken:  access,
		RefreshToken: refreshToken,
		ExpiresIn:    int64(s.codec.AccessTokenTTL().Seconds()),
		TokenType:    "Bearer",
		User:         dto.NewUserResponse(user),
	}, nil
}

// reportReuse publishes the security event for a replayed refresh token.
// The token signature already verified or Rotate could not have flagged
// reuse, so the subject claim is trustworthy.
func (s *authService) reportReuse(ctx context.Context, presented string) {
	jti, userID, err := s.codec.ParseRefreshToken(presented)
	if err != nil {
		return
	}
	s.log.Warn("refresh token reuse detected, all user sessions revoked",
		zap.String("user_id", userID),
		zap.String("jti", jti),
	)
	s.publish(ctx, events.TopicTokenReuse, &events.Event{
		EventType: "token.reuse_detected",
		UserID:    userID,
		JTI:       jti,
		Timestamp: time.Now(),
	})
}

// publish sends an audit event; failures are logged, never surfaced.
func (s *authService) publish(ctx context.Context, topic string, event *events.Event) {
	if err := s.publisher.Publish(ctx, topic, event); err != nil {
		s.log.Warn("failed to publish audit event",
			zap.String("topic", topic),
			zap.Error(err),
		)
	}
}
