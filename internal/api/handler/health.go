package handler

import (
	"context"
	"net/http"

	"github.com/Rrens/invitation-agent/internal/api/response"
	"github.com/Rrens/invitation-agent/internal/llm"
	"github.com/rs/zerolog/log"
)

// Pinger is anything the readiness probe can check
type Pinger interface {
	Ping(ctx context.Context) error
}

// CacheFlusher drops every cached entry and reports how many keys went
type CacheFlusher interface {
	FlushAll(ctx context.Context) (int64, error)
}

// HealthCheck returns a simple health check response
func HealthCheck(w http.ResponseWriter, r *http.Request) {
	response.OK(w, map[string]string{
		"status": "healthy",
	})
}

// ReadyCheck returns readiness status including store connectivity
func ReadyCheck(store Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := store.Ping(r.Context()); err != nil {
			log.Warn().Err(err).Msg("Readiness check failed")
			response.ServiceUnavailable(w, "database not ready")
			return
		}

		response.OK(w, map[string]string{
			"status": "ready",
		})
	}
}

// ListLLMProviders returns the registered LLM providers
func ListLLMProviders(router *llm.Router) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		response.OK(w, map[string]any{
			"providers":        router.GetProvidersInfo(),
			"default_provider": router.DefaultProvider(),
		})
	}
}

// FlushCache clears cached contact lookups. Without a cache there is nothing
// to flush.
func FlushCache(cache CacheFlusher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if cache == nil {
			response.OK(w, map[string]any{
				"message":      "cache disabled",
				"keys_deleted": 0,
			})
			return
		}

		deleted, err := cache.FlushAll(r.Context())
		if err != nil {
			response.InternalError(w, err)
			return
		}

		response.OK(w, map[string]any{
			"message":      "cache flushed successfully",
			"keys_deleted": deleted,
		})
	}
}
