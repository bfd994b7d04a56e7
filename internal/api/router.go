package api

import (
	"net/http"
	"time"

	"github.com/Rrens/invitation-agent/internal/api/handler"
	customMiddleware "github.com/Rrens/invitation-agent/internal/api/middleware"
	"github.com/Rrens/invitation-agent/internal/llm"
	"github.com/Rrens/invitation-agent/internal/security"
	"github.com/Rrens/invitation-agent/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// Dependencies is everything the HTTP layer needs. RateLimiter and
// ContactCache are nil when Redis is disabled.
type Dependencies struct {
	JWTManager     *security.JWTManager
	AuthService    *service.AuthService
	ChatService    *service.ChatService
	SessionService *service.SessionService
	LLMRouter      *llm.Router
	RateLimiter    customMiddleware.RateLimiter
	ContactCache   handler.CacheFlusher
	Timeout        time.Duration
}

// NewRouter creates and configures the HTTP router
func NewRouter(deps Dependencies) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(customMiddleware.Logger)
	r.Use(middleware.Recoverer)
	if deps.Timeout > 0 {
		r.Use(middleware.Timeout(deps.Timeout))
	}

	// CORS
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	authHandler := handler.NewAuthHandler(deps.AuthService)
	chatHandler := handler.NewChatHandler(deps.ChatService)
	sessionHandler := handler.NewSessionHandler(deps.SessionService)

	authMiddleware := customMiddleware.NewAuthMiddleware(deps.JWTManager)

	// Public routes
	r.Get("/health", handler.HealthCheck)
	r.Get("/ready", handler.ReadyCheck(deps.SessionService))

	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", authHandler.Register)
		r.Post("/login", authHandler.Login)

		r.With(authMiddleware.Authenticate).Get("/me", authHandler.Me)
	})

	// Protected routes
	r.Group(func(r chi.Router) {
		r.Use(authMiddleware.Authenticate)
		if deps.RateLimiter != nil {
			r.Use(customMiddleware.NewRateLimitMiddleware(deps.RateLimiter).Limit)
		}

		r.Post("/chat", chatHandler.Chat)

		r.Route("/sessions", func(r chi.Router) {
			r.Get("/", sessionHandler.List)
			r.Get("/{sessionID}/history", sessionHandler.GetHistory)
			r.Delete("/{sessionID}", sessionHandler.Delete)
		})

		if deps.LLMRouter != nil {
			r.Get("/llm-providers", handler.ListLLMProviders(deps.LLMRouter))
		}
		r.Post("/cache/flush", handler.FlushCache(deps.ContactCache))
	})

	return r
}
