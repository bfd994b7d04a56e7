package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Rrens/invitation-agent/internal/agent"
	"github.com/Rrens/invitation-agent/internal/domain"
	"github.com/Rrens/invitation-agent/internal/invitation"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// ErrSessionNotFound covers both missing sessions and sessions owned by
// someone else.
var ErrSessionNotFound = errors.New("session not found or access denied")

// SessionService lists, replays and deletes a user's sessions
type SessionService struct {
	appName  string
	sessions domain.SessionRepository
}

// NewSessionService creates a new session service
func NewSessionService(appName string, sessions domain.SessionRepository) *SessionService {
	return &SessionService{appName: appName, sessions: sessions}
}

// List returns the user's sessions, most recently updated first.
func (s *SessionService) List(ctx context.Context, username string) ([]domain.SessionSummary, error) {
	sessions, err := s.sessions.ListByUser(ctx, s.appName, username)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}

	summaries := make([]domain.SessionSummary, 0, len(sessions))
	for _, session := range sessions {
		summaries = append(summaries, domain.SessionSummary{
			SessionID: session.ID,
			CreatedAt: session.CreatedAt,
			UpdatedAt: session.UpdatedAt,
			Preview:   preview(session),
		})
	}
	return summaries, nil
}

// preview is the agenda name, or nil when unset or unreadable.
func preview(session domain.Session) *string {
	state, err := invitation.Decode(session.State)
	if err != nil {
		log.Warn().Err(err).Str("session_id", session.ID.String()).Msg("Unreadable session state")
		return nil
	}
	name := strings.TrimSpace(state.InvitationInfo.AgendaName)
	if name == "" {
		return nil
	}
	return &name
}

// History returns the user-facing transcript of a session.
func (s *SessionService) History(ctx context.Context, username string, id uuid.UUID) ([]domain.HistoryMessage, error) {
	session, err := s.sessions.Get(ctx, s.key(username, id))
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	if session == nil {
		return nil, ErrSessionNotFound
	}

	events, err := s.sessions.ListEvents(ctx, id, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	return agent.History(events), nil
}

// Delete removes a session the user owns.
func (s *SessionService) Delete(ctx context.Context, username string, id uuid.UUID) error {
	deleted, err := s.sessions.Delete(ctx, s.key(username, id))
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	if !deleted {
		return ErrSessionNotFound
	}
	log.Info().Str("session_id", id.String()).Str("username", username).Msg("Session deleted")
	return nil
}

// Ping checks the session store.
func (s *SessionService) Ping(ctx context.Context) error {
	return s.sessions.Ping(ctx)
}

func (s *SessionService) key(username string, id uuid.UUID) domain.SessionKey {
	return domain.SessionKey{AppName: s.appName, UserID: username, ID: id}
}
