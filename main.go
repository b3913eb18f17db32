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

	"github.com/substring/auth-backend/internal/bootstrap"
	"github.com/substring/auth-backend/internal/di"
	"github.com/substring/auth-backend/internal/domain"
	"github.com/substring/auth-backend/internal/events"
	"github.com/substring/auth-backend/internal/middleware"
	"github.com/substring/auth-backend/pkg/config"
	"github.com/substring/auth-backend/pkg/database"
	"github.com/substring/auth-backend/pkg/logger"
	pkgredis "github.com/substring/auth-backend/pkg/redis"
	"github.com/substring/auth-backend/pkg/telemetry"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logger
	level := "info"
	if cfg.App.Debug {
		level = "debug"
	}
	appLog, err := logger.Init(logger.Config{
		Level:       level,
		Development: cfg.IsDevelopment(),
		App:         cfg.App.Name,
		Environment: cfg.App.Environment,
		Version:     cfg.App.Version,
	})
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	appLog.Info("Starting auth backend...")

	ctx := context.Background()

	// Initialize tracing
	_, err = telemetry.Init(ctx, &telemetry.Config{
		Enabled:        cfg.OTel.Enabled,
		ServiceName:    cfg.OTel.ServiceName,
		ServiceVersion: cfg.App.Version,
		Environment:    cfg.App.Environment,
		CollectorAddr:  cfg.OTel.CollectorAddr,
		SampleRatio:    cfg.OTel.SampleRatio,
	})
	if err != nil {
		appLog.Fatal(fmt.Sprintf("Failed to initialize telemetry: %v", err))
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := telemetry.Shutdown(shutdownCtx); err != nil {
			appLog.Warn(fmt.Sprintf("Telemetry shutdown failed: %v", err))
		}
	}()

	// Initialize database connection
	db, err := database.NewPostgres(ctx, database.FromAppConfig(cfg))
	if err != nil {
		appLog.Fatal(fmt.Sprintf("Database connection failed: %v", err))
	}
	defer db.Close()
	appLog.Info(fmt.Sprintf("Database connected (pool: min=%d, max=%d)", cfg.Database.MinConns, cfg.Database.MaxConns))

	// Initialize Redis connection (rate limiting); degraded but
	// functional without it
	var redisClient *pkgredis.Client
	if cfg.Redis.Enabled {
		redisClient, err = pkgredis.NewClient(ctx, &pkgredis.Config{
			Host:         cfg.Redis.Host,
			Port:         cfg.Redis.Port,
			Password:     cfg.Redis.Password,
			DB:           cfg.Redis.DB,
			PoolSize:     cfg.Redis.PoolSize,
			MinIdleConns: cfg.Redis.MinIdleConns,
			DialTimeout:  cfg.Redis.DialTimeout,
			ReadTimeout:  cfg.Redis.ReadTimeout,
			WriteTimeout: cfg.Redis.WriteTimeout,
		})
		if err != nil {
			appLog.Warn(fmt.Sprintf("Redis connection failed, rate limiting disabled: %v", err))
			redisClient = nil
		} else {
			defer redisClient.Close()
			appLog.Info("Redis connected")
		}
	}

	// Initialize Kafka audit publisher
	var publisher events.Publisher
	if cfg.Kafka.Enabled {
		kafkaPub, err := events.NewKafkaPublisher(ctx, &events.KafkaPublisherConfig{
			Brokers:  cfg.Kafka.Brokers,
			ClientID: cfg.Kafka.ClientID,
		})
		if err != nil {
			appLog.Warn(fmt.Sprintf("Kafka connection failed, audit events disabled: %v", err))
		} else {
			publisher = kafkaPub
			defer kafkaPub.Close()
			appLog.Info("Kafka audit publisher connected")
		}
	}
	if publisher == nil {
		publisher = events.NopPublisher{}
	}

	// Build dependency injection container
	container := di.NewContainer(&di.ContainerConfig{
		DB:              db,
		Redis:           redisClient,
		Publisher:       publisher,
		Logger:          appLog,
		JWTSecret:       cfg.JWT.Secret,
		JWTIssuer:       cfg.JWT.Issuer,
		AccessTokenTTL:  cfg.JWT.AccessTokenTTL,
		RefreshTokenTTL: cfg.JWT.RefreshTokenTTL,
		Leeway:          cfg.JWT.Leeway,
		DefaultRole:     cfg.Auth.DefaultRole,
		BcryptCost:      cfg.Auth.BcryptCost,
	})

	// Seed the closed role set before serving traffic
	if err := bootstrap.SeedRoles(ctx, container.RoleRepo, appLog); err != nil {
		appLog.Fatal(fmt.Sprintf("Role seeding failed: %v", err))
	}

	// Setup Gin
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	if cfg.OTel.Enabled {
		router.Use(telemetry.TracingMiddleware(cfg.OTel.ServiceName))
	}

	// Health check endpoints
	router.GET("/health", container.HealthHandler.Health)
	router.GET("/ready", container.HealthHandler.Ready)

	v1 := router.Group("/api/v1")
	{
		auth := v1.Group("/auth")
		{
			// Credential endpoints are rate limited per client IP
			limited := auth.Group("")
			limited.Use(middleware.RateLimit(redisClient, middleware.DefaultRateLimitConfig(), appLog))
			limited.POST("/register", container.AuthHandler.Register)
			limited.POST("/login", container.AuthHandler.Login)
			limited.POST("/refresh", container.AuthHandler.Refresh)

			auth.POST("/logout", container.AuthHandler.Logout)

			authed := auth.Group("")
			authed.Use(middleware.Auth(container.Codec))
			authed.POST("/logout-all", container.AuthHandler.LogoutAll)
			authed.GET("/me", container.AuthHandler.Me)
		}

		users := v1.Group("/users")
		users.Use(middleware.Auth(container.Codec))
		{
			users.GET("", middleware.RequireRole(domain.RoleAdmin), container.UserHandler.List)
			users.GET("/email/:email", middleware.RequireRole(domain.RoleAdmin), container.UserHandler.GetByEmail)
			users.GET("/:id", middleware.RequireRole(domain.RoleAdmin), container.UserHandler.Get)
			users.PUT("/:id", container.UserHandler.Update)
			users.DELETE("/:id", middleware.RequireRole(domain.RoleAdmin), container.UserHandler.Delete)
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
		MaxHeaderBytes:    1 << 20, // 1MB
	}

	// Start server in goroutine
	go func() {
		appLog.Info(fmt.Sprintf("Auth backend listening on %s", addr))
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
