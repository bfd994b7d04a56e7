package service

import (
	"context"

	"github.com/Rrens/invitation-agent/internal/agent"
	"github.com/Rrens/invitation-agent/internal/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// MockUserRepository mocks the UserRepository interface
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Create(ctx context.Context, user *domain.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockUserRepository) ExistsByUsernameOrEmail(ctx context.Context, username, email string) (bool, error) {
	args := m.Called(ctx, username, email)
	return args.Bool(0), args.Error(1)
}

// MockSessionRepository mocks the SessionRepository interface
type MockSessionRepository struct {
	mock.Mock
}

func (m *MockSessionRepository) Create(ctx context.Context, session *domain.Session) error {
	args := m.Called(ctx, session)
	return args.Error(0)
}

func (m *MockSessionRepository) Get(ctx context.Context, key domain.SessionKey) (*domain.Session, error) {
	args := m.Called(ctx, key)
	if fn, ok := args.Get(0).(func(context.Context, domain.SessionKey) *domain.Session); ok {
		return fn(ctx, key), args.Error(1)
	}
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Session), args.Error(1)
}

func (m *MockSessionRepository) ListByUser(ctx context.Context, appName, userID string) ([]domain.Session, error) {
	args := m.Called(ctx, appName, userID)
	return args.Get(0).([]domain.Session), args.Error(1)
}

func (m *MockSessionRepository) SaveTurn(ctx context.Context, session *domain.Session, events []domain.Event) error {
	args := m.Called(ctx, session, events)
	return args.Error(0)
}

func (m *MockSessionRepository) Delete(ctx context.Context, key domain.SessionKey) (bool, error) {
	args := m.Called(ctx, key)
	return args.Bool(0), args.Error(1)
}

func (m *MockSessionRepository) ListEvents(ctx context.Context, sessionID uuid.UUID, limit int) ([]domain.Event, error) {
	args := m.Called(ctx, sessionID, limit)
	return args.Get(0).([]domain.Event), args.Error(1)
}

func (m *MockSessionRepository) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// MockRunner mocks the agent runner
type MockRunner struct {
	mock.Mock
}

func (m *MockRunner) Run(ctx context.Context, in agent.TurnInput) (*agent.TurnOutput, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*agent.TurnOutput), args.Error(1)
}
