package domain

import "github.com/google/uuid"

// ChatRequest is one user message. SessionID is optional; an unknown or
// malformed id starts a new session.
type ChatRequest struct {
	Message   string `json:"message" validate:"required"`
	SessionID string `json:"session_id,omitempty"`
}

// ChatResponse is the agent's reply
type ChatResponse struct {
	Response  string    `json:"response"`
	SessionID uuid.UUID `json:"session_id"`
}
