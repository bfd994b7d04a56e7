package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Rrens/invitation-agent/internal/agent"
	"github.com/Rrens/invitation-agent/internal/domain"
	"github.com/Rrens/invitation-agent/internal/invitation"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

var (
	ErrServiceUnavailable = errors.New("chat service is not initialized")
	ErrEmptyMessage       = errors.New("message must not be empty")
)

// noResponse is returned when the agent produced no text.
const noResponse = "No response from agent"

// Runner executes one conversation turn.
type Runner interface {
	Run(ctx context.Context, in agent.TurnInput) (*agent.TurnOutput, error)
}

// ChatOptions tunes a ChatService.
type ChatOptions struct {
	AppName      string
	HistoryLimit int
	LockWait     time.Duration
}

// ChatService routes user messages to the agent runner and persists each turn.
type ChatService struct {
	opts     ChatOptions
	sessions domain.SessionRepository
	users    domain.UserRepository
	runner   Runner
	locker   Locker
}

// NewChatService creates a new chat service. A nil runner makes every chat
// fail with ErrServiceUnavailable.
func NewChatService(
	sessions domain.SessionRepository,
	users domain.UserRepository,
	runner Runner,
	locker Locker,
	opts ChatOptions,
) *ChatService {
	if locker == nil {
		locker = NewLocalLocker()
	}
	if opts.LockWait <= 0 {
		opts.LockWait = 30 * time.Second
	}
	return &ChatService{
		opts:     opts,
		sessions: sessions,
		users:    users,
		runner:   runner,
		locker:   locker,
	}
}

// Ready reports whether the service can take messages.
func (s *ChatService) Ready() bool {
	return s.runner != nil
}

// Chat runs one turn for username. The session is resumed when the request
// names one the user owns; otherwise a new one is created.
func (s *ChatService) Chat(ctx context.Context, username string, req domain.ChatRequest) (*domain.ChatResponse, error) {
	if s.runner == nil {
		return nil, ErrServiceUnavailable
	}
	message := strings.TrimSpace(req.Message)
	if message == "" {
		return nil, ErrEmptyMessage
	}

	session, err := s.resolveSession(ctx, username, req.SessionID)
	if err != nil {
		return nil, err
	}
	key := domain.SessionKey{AppName: s.opts.AppName, UserID: username, ID: session.ID}

	lockCtx, cancel := context.WithTimeout(ctx, s.opts.LockWait)
	release, err := s.locker.Lock(lockCtx, session.ID.String())
	timedOut := lockCtx.Err() != nil
	cancel()
	if err != nil {
		if timedOut {
			return nil, fmt.Errorf("%w: %v", ErrSessionBusy, err)
		}
		return nil, fmt.Errorf("failed to lock session: %w", err)
	}
	defer release()

	// Reload under the lock so the turn starts from the latest saved state.
	session, err = s.sessions.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	if session == nil {
		return nil, ErrSessionNotFound
	}

	state, err := invitation.Decode(session.State)
	if err != nil {
		return nil, fmt.Errorf("failed to decode session %s: %w", session.ID, err)
	}

	history, err := s.sessions.ListEvents(ctx, session.ID, s.opts.HistoryLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to load history: %w", err)
	}

	out, err := s.runner.Run(ctx, agent.TurnInput{
		SessionID: session.ID,
		State:     &state,
		History:   history,
		Message:   message,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to run agent: %w", err)
	}

	data, err := state.Encode()
	if err != nil {
		return nil, err
	}
	session.State = data

	if err := s.sessions.SaveTurn(ctx, session, out.Events); err != nil {
		return nil, fmt.Errorf("failed to save turn: %w", err)
	}

	log.Info().
		Str("session_id", session.ID.String()).
		Str("username", username).
		Str("agent", out.Agent).
		Str("stage", string(state.Workflow.Stage)).
		Int("events", len(out.Events)).
		Msg("Chat turn completed")

	reply := out.Reply
	if reply == "" {
		reply = noResponse
	}
	return &domain.ChatResponse{Response: reply, SessionID: session.ID}, nil
}

func (s *ChatService) resolveSession(ctx context.Context, username, rawID string) (*domain.Session, error) {
	if rawID = strings.TrimSpace(rawID); rawID != "" {
		id, err := uuid.Parse(rawID)
		if err == nil {
			session, err := s.sessions.Get(ctx, domain.SessionKey{AppName: s.opts.AppName, UserID: username, ID: id})
			if err != nil {
				return nil, fmt.Errorf("failed to get session: %w", err)
			}
			if session != nil {
				return session, nil
			}
		}
		log.Warn().Str("session_id", rawID).Str("username", username).Msg("Session not found, creating new")
	}
	return s.createSession(ctx, username)
}

func (s *ChatService) createSession(ctx context.Context, username string) (*domain.Session, error) {
	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	uc := invitation.UserContext{Username: username, FullName: username}
	if user != nil {
		uc.FullName = user.FullName
		uc.UserID = user.ID.String()
	}

	data, err := invitation.NewState(uc).Encode()
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	session := &domain.Session{
		ID:        uuid.New(),
		AppName:   s.opts.AppName,
		UserID:    username,
		State:     data,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	log.Info().Str("session_id", session.ID.String()).Str("username", username).Msg("Created session")
	return session, nil
}
