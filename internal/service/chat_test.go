package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Rrens/invitation-agent/internal/agent"
	"github.com/Rrens/invitation-agent/internal/domain"
	"github.com/Rrens/invitation-agent/internal/invitation"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const testApp = "invitation_agent"

func storedSession(t *testing.T, username string) *domain.Session {
	t.Helper()
	data, err := invitation.NewState(invitation.UserContext{Username: username, FullName: "Alice"}).Encode()
	require.NoError(t, err)
	return &domain.Session{ID: uuid.New(), AppName: testApp, UserID: username, State: data, Version: 3}
}

func modelEvent(text string) domain.Event {
	return domain.Event{
		ID:      uuid.New(),
		Author:  invitation.RootAgent,
		Content: domain.Content{Role: domain.RoleModel, Parts: []domain.Part{{Text: text}}},
	}
}

func TestChatService_NotReady(t *testing.T) {
	svc := NewChatService(new(MockSessionRepository), new(MockUserRepository), nil, nil, ChatOptions{AppName: testApp})
	assert.False(t, svc.Ready())

	_, err := svc.Chat(context.Background(), "alice", domain.ChatRequest{Message: "hi"})
	assert.ErrorIs(t, err, ErrServiceUnavailable)
}

func TestChatService_EmptyMessage(t *testing.T) {
	svc := NewChatService(new(MockSessionRepository), new(MockUserRepository), new(MockRunner), nil, ChatOptions{AppName: testApp})

	_, err := svc.Chat(context.Background(), "alice", domain.ChatRequest{Message: "   "})
	assert.ErrorIs(t, err, ErrEmptyMessage)
}

func TestChatService_NewSession(t *testing.T) {
	ctx := context.Background()
	sessions := new(MockSessionRepository)
	users := new(MockUserRepository)
	runner := new(MockRunner)

	userID := uuid.New()
	users.On("GetByUsername", ctx, "alice").Return(&domain.User{ID: userID, Username: "alice", FullName: "Alice Doe"}, nil)

	var created *domain.Session
	sessions.On("Create", ctx, mock.AnythingOfType("*domain.Session")).
		Run(func(args mock.Arguments) { created = args.Get(1).(*domain.Session) }).
		Return(nil)
	sessions.On("Get", ctx, mock.AnythingOfType("domain.SessionKey")).
		Return(func(_ context.Context, _ domain.SessionKey) *domain.Session { return created }, nil)
	sessions.On("ListEvents", ctx, mock.AnythingOfType("uuid.UUID"), 50).Return([]domain.Event{}, nil)

	events := []domain.Event{modelEvent("Hi Alice, what is the event?")}
	runner.On("Run", ctx, mock.MatchedBy(func(in agent.TurnInput) bool {
		return in.Message == "hello" &&
			in.State.UserContext.FullName == "Alice Doe" &&
			in.State.UserContext.UserID == userID.String()
	})).Run(func(args mock.Arguments) {
		in := args.Get(1).(agent.TurnInput)
		name := "Launch"
		in.State.UpdateInvitation(invitation.InvitationPatch{AgendaName: &name})
	}).Return(&agent.TurnOutput{Reply: "Hi Alice, what is the event?", Agent: invitation.RootAgent, Events: events}, nil)

	var saved *domain.Session
	sessions.On("SaveTurn", ctx, mock.AnythingOfType("*domain.Session"), events).
		Run(func(args mock.Arguments) { saved = args.Get(1).(*domain.Session) }).
		Return(nil)

	svc := NewChatService(sessions, users, runner, nil, ChatOptions{AppName: testApp, HistoryLimit: 50})
	resp, err := svc.Chat(ctx, "alice", domain.ChatRequest{Message: " hello "})
	require.NoError(t, err)

	assert.Equal(t, "Hi Alice, what is the event?", resp.Response)
	assert.Equal(t, created.ID, resp.SessionID)
	assert.Equal(t, "alice", created.UserID)
	assert.Equal(t, testApp, created.AppName)

	require.NotNil(t, saved)
	state, err := invitation.Decode(saved.State)
	require.NoError(t, err)
	assert.Equal(t, "Launch", state.InvitationInfo.AgendaName)

	sessions.AssertExpectations(t)
	runner.AssertExpectations(t)
}

func TestChatService_ResumesOwnedSession(t *testing.T) {
	ctx := context.Background()
	sessions := new(MockSessionRepository)
	users := new(MockUserRepository)
	runner := new(MockRunner)

	existing := storedSession(t, "alice")
	key := domain.SessionKey{AppName: testApp, UserID: "alice", ID: existing.ID}
	history := []domain.Event{modelEvent("earlier")}

	sessions.On("Get", ctx, key).Return(existing, nil)
	sessions.On("ListEvents", ctx, existing.ID, 0).Return(history, nil)
	runner.On("Run", ctx, mock.MatchedBy(func(in agent.TurnInput) bool {
		return in.SessionID == existing.ID && len(in.History) == 1
	})).Return(&agent.TurnOutput{Reply: "ok", Events: []domain.Event{modelEvent("ok")}}, nil)
	sessions.On("SaveTurn", ctx, existing, mock.Anything).Return(nil)

	svc := NewChatService(sessions, users, runner, nil, ChatOptions{AppName: testApp})
	resp, err := svc.Chat(ctx, "alice", domain.ChatRequest{Message: "next", SessionID: existing.ID.String()})
	require.NoError(t, err)

	assert.Equal(t, existing.ID, resp.SessionID)
	users.AssertNotCalled(t, "GetByUsername", mock.Anything, mock.Anything)
	sessions.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestChatService_ForeignSessionStartsNew(t *testing.T) {
	ctx := context.Background()
	sessions := new(MockSessionRepository)
	users := new(MockUserRepository)
	runner := new(MockRunner)

	foreign := uuid.New()
	users.On("GetByUsername", ctx, "mallory").Return(nil, nil)

	var created *domain.Session
	sessions.On("Get", ctx, domain.SessionKey{AppName: testApp, UserID: "mallory", ID: foreign}).Return(nil, nil).Once()
	sessions.On("Create", ctx, mock.AnythingOfType("*domain.Session")).
		Run(func(args mock.Arguments) { created = args.Get(1).(*domain.Session) }).
		Return(nil)
	sessions.On("Get", ctx, mock.AnythingOfType("domain.SessionKey")).
		Return(func(_ context.Context, _ domain.SessionKey) *domain.Session { return created }, nil)
	sessions.On("ListEvents", ctx, mock.Anything, 0).Return([]domain.Event{}, nil)
	runner.On("Run", ctx, mock.MatchedBy(func(in agent.TurnInput) bool {
		return in.State.UserContext.FullName == "mallory"
	})).Return(&agent.TurnOutput{}, nil)
	sessions.On("SaveTurn", ctx, mock.Anything, mock.Anything).Return(nil)

	svc := NewChatService(sessions, users, runner, nil, ChatOptions{AppName: testApp})
	resp, err := svc.Chat(ctx, "mallory", domain.ChatRequest{Message: "hi", SessionID: foreign.String()})
	require.NoError(t, err)

	assert.NotEqual(t, foreign, resp.SessionID)
	assert.Equal(t, noResponse, resp.Response)
}

func TestChatService_RunnerErrorDoesNotSave(t *testing.T) {
	ctx := context.Background()
	sessions := new(MockSessionRepository)
	runner := new(MockRunner)

	existing := storedSession(t, "alice")
	sessions.On("Get", ctx, mock.Anything).Return(existing, nil)
	sessions.On("ListEvents", ctx, existing.ID, 0).Return([]domain.Event{}, nil)
	runner.On("Run", ctx, mock.Anything).Return(nil, errors.New("provider down"))

	svc := NewChatService(sessions, new(MockUserRepository), runner, nil, ChatOptions{AppName: testApp})
	_, err := svc.Chat(ctx, "alice", domain.ChatRequest{Message: "hi", SessionID: existing.ID.String()})
	require.Error(t, err)
	sessions.AssertNotCalled(t, "SaveTurn", mock.Anything, mock.Anything, mock.Anything)
}

func TestChatService_VersionConflict(t *testing.T) {
	ctx := context.Background()
	sessions := new(MockSessionRepository)
	runner := new(MockRunner)

	existing := storedSession(t, "alice")
	sessions.On("Get", ctx, mock.Anything).Return(existing, nil)
	sessions.On("ListEvents", ctx, existing.ID, 0).Return([]domain.Event{}, nil)
	runner.On("Run", ctx, mock.Anything).Return(&agent.TurnOutput{Reply: "ok"}, nil)
	sessions.On("SaveTurn", ctx, existing, mock.Anything).Return(domain.ErrVersionConflict)

	svc := NewChatService(sessions, new(MockUserRepository), runner, nil, ChatOptions{AppName: testApp})
	_, err := svc.Chat(ctx, "alice", domain.ChatRequest{Message: "hi", SessionID: existing.ID.String()})
	assert.ErrorIs(t, err, domain.ErrVersionConflict)
}

func TestChatService_SessionBusy(t *testing.T) {
	ctx := context.Background()
	sessions := new(MockSessionRepository)
	existing := storedSession(t, "alice")
	sessions.On("Get", ctx, mock.Anything).Return(existing, nil)

	locker := NewLocalLocker()
	release, err := locker.Lock(ctx, existing.ID.String())
	require.NoError(t, err)
	defer release()

	svc := NewChatService(sessions, new(MockUserRepository), new(MockRunner), locker,
		ChatOptions{AppName: testApp, LockWait: 20 * time.Millisecond})
	_, err = svc.Chat(ctx, "alice", domain.ChatRequest{Message: "hi", SessionID: existing.ID.String()})
	assert.ErrorIs(t, err, ErrSessionBusy)
}
