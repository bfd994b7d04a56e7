package handler

import (
	"net/http"

	"github.com/Rrens/invitation-agent/internal/api/middleware"
	"github.com/Rrens/invitation-agent/internal/api/response"
	"github.com/Rrens/invitation-agent/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

type SessionHandler struct {
	sessionService *service.SessionService
}

func NewSessionHandler(sessionService *service.SessionService) *SessionHandler {
	return &SessionHandler{sessionService: sessionService}
}

// List returns the caller's sessions
func (h *SessionHandler) List(w http.ResponseWriter, r *http.Request) {
	username, ok := middleware.GetUsername(r.Context())
	if !ok {
		response.Unauthorized(w, "Not authenticated")
		return
	}

	sessions, err := h.sessionService.List(r.Context(), username)
	if err != nil {
		writeError(w, err)
		return
	}

	response.OK(w, map[string]any{"sessions": sessions})
}

// GetHistory returns history for a specific session
func (h *SessionHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	username, ok := middleware.GetUsername(r.Context())
	if !ok {
		response.Unauthorized(w, "Not authenticated")
		return
	}

	// A malformed id cannot name a session the caller owns.
	sessionID, err := uuid.Parse(chi.URLParam(r, "sessionID"))
	if err != nil {
		writeError(w, service.ErrSessionNotFound)
		return
	}

	messages, err := h.sessionService.History(r.Context(), username, sessionID)
	if err != nil {
		writeError(w, err)
		return
	}

	response.OK(w, map[string]any{
		"session_id": sessionID,
		"messages":   messages,
	})
}

// Delete deletes a session
func (h *SessionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	username, ok := middleware.GetUsername(r.Context())
	if !ok {
		response.Unauthorized(w, "Not authenticated")
		return
	}

	sessionID, err := uuid.Parse(chi.URLParam(r, "sessionID"))
	if err != nil {
		writeError(w, service.ErrSessionNotFound)
		return
	}

	if err := h.sessionService.Delete(r.Context(), username, sessionID); err != nil {
		writeError(w, err)
		return
	}

	response.OK(w, map[string]string{"message": "Session deleted successfully"})
}
