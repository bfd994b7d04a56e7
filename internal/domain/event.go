package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Content roles as stored in the event log.
const (
	RoleUser  = "user"
	RoleModel = "model"
	RoleTool  = "tool"
)

// AuthorUser marks events written on behalf of the human.
const AuthorUser = "user"

// Event is one append-only entry of a session's log
type Event struct {
	ID        uuid.UUID `json:"id"`
	SessionID uuid.UUID `json:"session_id"`
	Author    string    `json:"author"`
	Content   Content   `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// Content is a role plus ordered parts
type Content struct {
	Role  string `json:"role"`
	Parts []Part `json:"parts"`
}

// Part holds exactly one of text, a function call or a function response.
type Part struct {
	Text             string            `json:"text,omitempty"`
	FunctionCall     *FunctionCall     `json:"function_call,omitempty"`
	FunctionResponse *FunctionResponse `json:"function_response,omitempty"`
}

type FunctionCall struct {
	ID   string         `json:"id,omitempty"`
	Name string         `json:"name"`
	Args map[string]any `json:"args,omitempty"`
}

type FunctionResponse struct {
	ID       string         `json:"id,omitempty"`
	Name     string         `json:"name"`
	Response map[string]any `json:"response,omitempty"`
}

// Text joins the non-blank text parts of the event.
func (e Event) Text() string {
	var texts []string
	for _, p := range e.Content.Parts {
		if strings.TrimSpace(p.Text) != "" {
			texts = append(texts, strings.TrimSpace(p.Text))
		}
	}
	return strings.Join(texts, "\n")
}

// HasFunctionParts reports whether the event carries tool traffic.
func (e Event) HasFunctionParts() bool {
	for _, p := range e.Content.Parts {
		if p.FunctionCall != nil || p.FunctionResponse != nil {
			return true
		}
	}
	return false
}

// HistoryMessage is a user-facing transcript line
type HistoryMessage struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// SessionSummary is a row of the session list
type SessionSummary struct {
	SessionID uuid.UUID `json:"session_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Preview   *string   `json:"preview"`
}
