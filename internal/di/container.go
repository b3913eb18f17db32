package di

import (
	"time"

	"go.uber.org/zap"

	"github.com/substring/auth-backend/internal/events"
	"github.com/substring/auth-backend/internal/handler"
	"github.com/substring/auth-backend/internal/hash"
	"github.com/substring/auth-backend/internal/repository"
	"github.com/substring/auth-backend/internal/service"
	"github.com/substring/auth-backend/internal/token"
	"github.com/substring/auth-backend/pkg/database"
	pkgredis "github.com/substring/auth-backend/pkg/redis"
)

// Container holds all dependencies for the auth service
type Container struct {
	// Infrastructure
	DB    *database.PostgresDB
	Redis *pkgredis.Client

	// Repositories
	UserRepo  repository.UserRepository
	RoleRepo  repository.RoleRepository
	TokenRepo repository.RefreshTokenRepository

	// Token layer
	Codec   *token.Codec
	Refresh *token.Manager

	// Services
	AuthService service.AuthService

	// Handlers
	HealthHandler *handler.HealthHandler
	AuthHandler   *handler.AuthHandler
	UserHandler   *handler.UserHandler
}

// ContainerConfig contains configuration for building the container
type ContainerConfig struct {
	DB              *database.PostgresDB
	Redis           *pkgredis.Client
	Publisher       events.Publisher
	Logger          *zap.Logger
	JWTSecret       string
	JWTIssuer       string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
	Leeway          time.Duration
	DefaultRole     string
	BcryptCost      int
}

// NewContainer creates a new dependency injection container
func NewContainer(cfg *ContainerConfig) *Container {
	c := &Container{
		DB:    cfg.DB,
		Redis: cfg.Redis,
	}

	pool := cfg.DB.Pool()
	c.UserRepo = repository.NewPostgresUserRepository(pool)
	c.RoleRepo = repository.NewPostgresRoleRepository(pool)
	c.TokenRepo = repository.NewPostgresRefreshTokenRepository(pool)

	c.Codec = token.NewCodec(&token.CodecConfig{
		Secret:         cfg.JWTSecret,
		Issuer:         cfg.JWTIssuer,
		AccessTokenTTL: cfg.AccessTokenTTL,
		Leeway:         cfg.Leeway,
	})
	c.Refresh = token.NewManager(c.Codec, c.TokenRepo, cfg.RefreshTokenTTL)

	hasher := hash.NewBcrypt(cfg.BcryptCost)

	c.AuthService = service.NewAuthService(
		c.UserRepo,
		c.RoleRepo,
		hasher,
		c.Codec,
		c.Refresh,
		cfg.Publisher,
		&service.AuthServiceConfig{DefaultRole: cfg.DefaultRole},
		cfg.Logger,
	)

	c.HealthHandler = handler.NewHealthHandler(c.DB)
	c.AuthHandler = handler.NewAuthHandler(c.AuthService)
	c.UserHandler = handler.NewUserHandler(c.AuthService)

	return c
}
