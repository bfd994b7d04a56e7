package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/Rrens/invitation-agent/internal/domain"
	"github.com/Rrens/invitation-agent/internal/security"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newAuthService(repo *MockUserRepository) *AuthService {
	return NewAuthService(
		repo,
		security.NewPasswordHasher(4),
		security.NewJWTManager("test-secret", "invitation-agent", 30*time.Minute),
	)
}

func TestAuthService_Register(t *testing.T) {
	ctx := context.Background()
	input := domain.UserCreate{Username: "alice", FullName: "Alice", Email: "alice@example.com", Password: "secret1"}

	t.Run("success", func(t *testing.T) {
		repo := new(MockUserRepository)
		repo.On("ExistsByUsernameOrEmail", ctx, "alice", "alice@example.com").Return(false, nil)
		repo.On("Create", ctx, mock.AnythingOfType("*domain.User")).Return(nil)

		user, err := newAuthService(repo).Register(ctx, input)
		require.NoError(t, err)
		assert.Equal(t, "alice", user.Username)
		assert.NotEqual(t, "secret1", user.HashedPassword)
		assert.NotEmpty(t, user.ID)
		repo.AssertExpectations(t)
	})

	t.Run("duplicate", func(t *testing.T) {
		repo := new(MockUserRepository)
		repo.On("ExistsByUsernameOrEmail", ctx, "alice", "alice@example.com").Return(true, nil)

		_, err := newAuthService(repo).Register(ctx, input)
		assert.ErrorIs(t, err, ErrDuplicateUser)
		repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("duplicate on insert", func(t *testing.T) {
		repo := new(MockUserRepository)
		repo.On("ExistsByUsernameOrEmail", ctx, "alice", "alice@example.com").Return(false, nil)
		repo.On("Create", ctx, mock.AnythingOfType("*domain.User")).
			Return(fmt.Errorf("failed to create user: %w", domain.ErrDuplicate))

		_, err := newAuthService(repo).Register(ctx, input)
		assert.ErrorIs(t, err, ErrDuplicateUser)
	})
}

func TestAuthService_Login(t *testing.T) {
	ctx := context.Background()
	hasher := security.NewPasswordHasher(4)
	hash, err := hasher.Hash("secret1")
	require.NoError(t, err)
	stored := &domain.User{Username: "alice", HashedPassword: hash}

	repo := new(MockUserRepository)
	repo.On("GetByUsername", ctx, "alice").Return(stored, nil)
	repo.On("GetByUsername", ctx, "ALICE").Return(nil, nil)
	svc := newAuthService(repo)

	t.Run("success", func(t *testing.T) {
		token, err := svc.Login(ctx, domain.UserLogin{Username: "alice", Password: "secret1"})
		require.NoError(t, err)
		assert.Equal(t, "bearer", token.TokenType)
		assert.Equal(t, int64(1800), token.ExpiresIn)

		username, err := svc.jwtManager.ValidateAccessToken(token.AccessToken)
		require.NoError(t, err)
		assert.Equal(t, "alice", username)
	})

	t.Run("wrong password", func(t *testing.T) {
		_, err := svc.Login(ctx, domain.UserLogin{Username: "alice", Password: "nope"})
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("usernames are case sensitive", func(t *testing.T) {
		_, err := svc.Login(ctx, domain.UserLogin{Username: "ALICE", Password: "secret1"})
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})
}

func TestAuthService_Me(t *testing.T) {
	ctx := context.Background()
	repo := new(MockUserRepository)
	repo.On("GetByUsername", ctx, "alice").Return(&domain.User{Username: "alice"}, nil)
	repo.On("GetByUsername", ctx, "ghost").Return(nil, nil)
	svc := newAuthService(repo)

	user, err := svc.Me(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "alice", user.Username)

	_, err = svc.Me(ctx, "ghost")
	assert.ErrorIs(t, err, ErrUserNotFound)
}
