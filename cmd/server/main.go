package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Rrens/invitation-agent/internal/api"
	"github.com/Rrens/invitation-agent/internal/config"
	"github.com/Rrens/invitation-agent/internal/logging"
	"github.com/Rrens/invitation-agent/internal/repository/redis"
	"github.com/Rrens/invitation-agent/internal/security"
	"github.com/Rrens/invitation-agent/internal/service"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

func main() {
	// Load .env file - try multiple locations
	for _, p := range []string{".env", "../.env", "../../.env"} {
		if err := godotenv.Load(p); err == nil {
			fmt.Printf("Loaded .env from: %s\n", p)
			break
		}
	}

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logCloser, err := logging.Setup(cfg.Logging, cfg.App.Environment)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to set up logging")
	}
	defer logCloser.Close()

	warnings, err := cfg.Validate()
	for _, w := range warnings {
		log.Warn().Msg(w)
	}
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	log.Info().
		Str("app", cfg.App.Name).
		Str("host", cfg.Server.Host).
		Int("port", cfg.Server.Port).
		Str("database", cfg.Database.Driver).
		Msg("Starting invitation agent server")

	ctx := context.Background()

	// Initialize database
	st, err := openStores(ctx, cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open database")
	}
	defer st.close()

	// Initialize Redis
	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisClient, err = redis.NewClient(cfg.Redis)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to Redis")
		}
		defer redisClient.Close()
	}

	llmRouter := newLLMRouter(cfg.LLM)

	msgClient, closeMessaging := dialMessaging(ctx, cfg.Messaging, redisClient)
	defer closeMessaging()

	runner, err := newRunner(cfg, llmRouter, msgClient)
	if err != nil {
		// The server still answers auth and session routes; chat returns 503.
		log.Error().Err(err).Msg("Agent runner not available")
	}

	jwtManager := security.NewJWTManager(cfg.Auth.JWTSecret, cfg.Auth.Issuer, cfg.Auth.AccessTokenTTL)
	authService := service.NewAuthService(st.users, security.NewPasswordHasher(cfg.Auth.BcryptCost), jwtManager)

	deps := api.Dependencies{
		JWTManager:     jwtManager,
		AuthService:    authService,
		SessionService: service.NewSessionService(cfg.App.Name, st.sessions),
		LLMRouter:      llmRouter,
		Timeout:        cfg.Server.MiddlewareTimeout,
	}

	var locker service.Locker
	if redisClient != nil {
		locker = redis.NewSessionLocker(redisClient, cfg.Server.MiddlewareTimeout+30*time.Second)
		deps.RateLimiter = redis.NewRateLimiter(
			redisClient,
			cfg.Security.RateLimit.RequestsPerMinute,
			cfg.Security.RateLimit.Burst,
		)
		deps.ContactCache = redis.NewContactCache(redisClient)
	}

	var chatRunner service.Runner
	if runner != nil {
		chatRunner = runner
	}
	deps.ChatService = service.NewChatService(st.sessions, st.users, chatRunner, locker, service.ChatOptions{
		AppName:      cfg.App.Name,
		HistoryLimit: cfg.Agent.HistoryLimit,
	})

	// Create HTTP server
	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      api.NewRouter(deps),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start server in goroutine
	go func() {
		log.Info().Msgf("Server listening on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server stopped")
}
