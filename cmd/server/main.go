package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/denzelpenzel/activation/internal/api"
	"github.com/denzelpenzel/activation/internal/config"
	"github.com/denzelpenzel/activation/internal/graphql"
	"github.com/denzelpenzel/activation/internal/logger"
	"github.com/denzelpenzel/activation/internal/services"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// newRedisClient connects to Redis when REDIS_URL is set. The returned
// client is nil otherwise.
func newRedisClient(cfg *config.Config, logger *zap.Logger) (redis.UniversalClient, func()) {
	if cfg.Redis.URL == "" {
		return nil, func() {}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := services.NewRedisClient(ctx, cfg.Redis.URL)
	if err != nil {
		logger.Fatal("Failed to connect to Redis", zap.Error(err))
	}

	return client, func() {
		if err := client.Close(); err != nil {
			logger.Warn("Failed to close Redis client", zap.Error(err))
		}
	}
}

func newSubmitGuard(cfg *config.Config, client redis.UniversalClient, logger *zap.Logger) services.SubmitGuard {
	if client == nil {
		logger.Info("Using in-memory submit guard and rate limiter")
		return services.NewMemoryGuard(cfg.Activation.SubmitLockTTL)
	}

	logger.Info("Using Redis submit guard and rate limiter")
	return services.NewRedisGuard(client, cfg.Activation.SubmitLockTTL, logger)
}

func main() {

	// Initialize logger
	zapLogger, err := logger.NewLogger()
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer zapLogger.Sync()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		zapLogger.Fatal("Failed to load configuration", zap.Error(err))
	}

	// Upstream GraphQL API
	gqlClient := graphql.NewClient(
		cfg.Upstream.GraphQLURL,
		graphql.NewHTTPClient(cfg.Upstream.Timeout),
		zapLogger.Named("graphql"),
	)

	redisClient, closeRedis := newRedisClient(cfg, zapLogger)
	defer closeRedis()

	guard := newSubmitGuard(cfg, redisClient, zapLogger)
	limiter := api.NewRateLimiter(cfg.Security.RateLimitPerMinute, redisClient)

	// Initialize services
	activationService := services.NewActivationService(gqlClient, cfg.Upstream.Timeout, zapLogger)
	flowService := services.NewFlowService(activationService, guard, cfg.Activation.SuccessPath, zapLogger)
	sessionService := services.NewSessionService(cfg.Flow.Secret, cfg.Flow.TTL, zapLogger)

	server, err := api.NewServer(cfg, zapLogger, flowService, sessionService, limiter)
	if err != nil {
		zapLogger.Fatal("Failed to initialize server", zap.Error(err))
	}

	// Start server in goroutine
	go func() {
		zapLogger.Info("Upstream API configured",
			zap.String("graphql_url", cfg.Upstream.GraphQLURL),
			zap.Duration("timeout", cfg.Upstream.Timeout))

		if err := server.Start(); err != nil {
			zapLogger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zapLogger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		zapLogger.Error("Server forced to shutdown", zap.Error(err))
	}

	zapLogger.Info("Server exited")
}
