package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/duynhne/catalog-service/config"
	database "github.com/duynhne/catalog-service/internal/core"
	"github.com/duynhne/catalog-service/internal/core/domain"
	"github.com/duynhne/catalog-service/internal/core/objectstore"
	"github.com/duynhne/catalog-service/internal/core/ratelimit"
	"github.com/duynhne/catalog-service/internal/core/repository"
	"github.com/duynhne/catalog-service/internal/core/token"
	"github.com/duynhne/catalog-service/internal/logger"
	logicv1 "github.com/duynhne/catalog-service/internal/logic/v1"
	v1 "github.com/duynhne/catalog-service/internal/web/v1"
	"github.com/duynhne/catalog-service/middleware"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Configuration load failed: " + err.Error())
	}
	if err := cfg.Validate(); err != nil {
		panic("Configuration validation failed: " + err.Error())
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)

	log.Info().
		Str("service", cfg.Service.Name).
		Str("version", cfg.Service.Version).
		Str("env", cfg.Service.Env).
		Str("port", cfg.Service.Port).
		Msg("Service starting")

	// Initialize OpenTelemetry tracing
	var tp interface{ Shutdown(context.Context) error }
	if cfg.Tracing.Enabled {
		provider, err := middleware.InitTracing(cfg)
		if err != nil {
			log.Warn().Err(err).Msg("Failed to initialize tracing")
		} else {
			tp = provider
			log.Info().
				Str("endpoint", cfg.Tracing.Endpoint).
				Float64("sample_rate", cfg.Tracing.SampleRate).
				Msg("Tracing initialized")
		}
	} else {
		log.Info().Msg("Tracing disabled (TRACING_ENABLED=false)")
	}

	// Initialize Pyroscope profiling
	if cfg.Profiling.Enabled {
		if err := middleware.InitProfiling(cfg); err != nil {
			log.Warn().Err(err).Msg("Failed to initialize profiling")
		} else {
			log.Info().
				Str("endpoint", cfg.Profiling.Endpoint).
				Msg("Profiling initialized")
			defer middleware.StopProfiling()
		}
	} else {
		log.Info().Msg("Profiling disabled (PROFILING_ENABLED=false)")
	}

	startCtx, cancelStart := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelStart()

	// Initialize database connection pool (pgx)
	pool, err := database.Connect(startCtx, cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer pool.Close()
	log.Info().Msg("Database connection pool established")

	if cfg.Database.AutoMigrate {
		if err := database.Migrate(pool); err != nil {
			log.Fatal().Err(err).Msg("Failed to apply migrations")
		}
		log.Info().Msg("Database migrations applied")
	}

	// Login throttle (optional)
	var throttle domain.LoginThrottle
	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisClient, err = ratelimit.NewClient(startCtx, cfg.Redis)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to redis")
		}
		throttle = ratelimit.NewRedisLoginThrottle(redisClient, cfg.Auth.LoginMaxAttempts, cfg.Auth.LoginAttemptWindow)
		log.Info().
			Str("addr", cfg.Redis.Addr).
			Int("max_attempts", cfg.Auth.LoginMaxAttempts).
			Dur("window", cfg.Auth.LoginAttemptWindow).
			Msg("Login throttle enabled")
	} else {
		log.Info().Msg("Login throttle disabled (REDIS_ENABLED=false)")
	}

	// Avatar storage (optional)
	var avatarStore domain.AvatarStore
	if cfg.Storage.Enabled {
		store, err := objectstore.New(startCtx, cfg.Storage)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to object storage")
		}
		avatarStore = store
		log.Info().Str("bucket", cfg.Storage.Bucket).Msg("Avatar storage enabled")
	} else {
		log.Info().Msg("Avatar storage disabled (S3_ENABLED=false)")
	}

	codec, err := token.NewCodec(cfg.Auth.JWTSecret, cfg.Auth.Issuer)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create token codec")
	}
	issuer, err := token.NewIssuer(codec, cfg.Auth.AccessTokenTTL, cfg.Auth.RefreshTokenTTL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create token issuer")
	}

	users := repository.NewUserRepository(pool)
	auth, err := logicv1.NewAuthService(users, codec, issuer, logicv1.AuthOptions{
		BcryptCost:          cfg.Auth.BcryptCost,
		RotateRefreshTokens: cfg.Auth.RotateRefreshTokens,
		Throttle:            throttle,
		Avatars:             avatarStore,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create auth service")
	}

	services := v1.Services{
		Sessions:  logicv1.NewSessionVerifier(codec, issuer, users, cfg.Auth.RotateRefreshTokens),
		Auth:      auth,
		Favorites: logicv1.NewFavoriteService(repository.NewFavoriteRepository(pool)),
		History:   logicv1.NewHistoryService(repository.NewHistoryRepository(pool)),
		Reviews:   logicv1.NewReviewService(repository.NewReviewRepository(pool)),
	}
	if avatarStore != nil {
		services.Avatars = logicv1.NewAvatarService(users, avatarStore, cfg.Storage.AvatarMaxBytes, cfg.Storage.AvatarContentTypes)
	}
	handler := v1.NewHandler(services)

	if cfg.Service.Env != "local" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())

	var isShuttingDown atomic.Bool

	// Tracing middleware
	r.Use(middleware.TracingMiddleware(cfg.Service.Name))

	// Logging middleware
	r.Use(middleware.LoggingMiddleware())

	// Prometheus middleware
	r.Use(middleware.PrometheusMiddleware())

	// Health check
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Readiness check
	// Returns 503 once shutdown has started, to drain traffic before HTTP shutdown.
	r.GET("/ready", func(c *gin.Context) {
		if isShuttingDown.Load() {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "shutting_down"})
			return
		}
		if err := pool.Ping(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "database_unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Metrics endpoint
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// API v1
	handler.RegisterRoutes(r.Group("/api/v1"))

	// Create HTTP server
	srv := &http.Server{
		Addr:              ":" + cfg.Service.Port,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.Info().Str("port", cfg.Service.Port).Msg("Starting catalog service")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	// Wait for shutdown signal
	<-ctx.Done()
	log.Info().Msg("Shutdown signal received")

	// Fail readiness first and wait for propagation.
	isShuttingDown.Store(true)
	drainDelay := cfg.GetReadinessDrainDelayDuration()
	if drainDelay > 0 {
		log.Info().Dur("delay", drainDelay).Msg("Readiness drain delay started")
		time.Sleep(drainDelay)
		log.Info().Dur("delay", drainDelay).Msg("Readiness drain delay completed")
	}

	// Shutdown context with configurable timeout
	shutdownTimeout := cfg.GetShutdownTimeoutDuration()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	log.Info().Dur("timeout", shutdownTimeout).Msg("Shutting down server...")

	// 1. Shutdown HTTP server
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	} else {
		log.Info().Msg("HTTP server shutdown complete")
	}

	// 2. Close redis and database connections
	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			log.Error().Err(err).Msg("Redis close error")
		}
	}
	pool.Close()
	log.Info().Msg("Database pool closed")

	// 3. Shutdown tracer
	if tp != nil {
		if err := tp.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Tracer shutdown error")
		} else {
			log.Info().Msg("Tracer shutdown complete")
		}
	}

	log.Info().Msg("Graceful shutdown complete")
}
