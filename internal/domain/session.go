package domain

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrVersionConflict is returned when a session was saved by another turn
	// after it was loaded.
	ErrVersionConflict = errors.New("session was modified concurrently")
	// ErrDuplicate is returned when a unique constraint rejects an insert.
	ErrDuplicate = errors.New("duplicate record")
)

// Session is a durable conversation context owned by one user. State holds the
// encoded invitation state blob.
type Session struct {
	ID        uuid.UUID `json:"id"`
	AppName   string    `json:"app_name"`
	UserID    string    `json:"user_id"`
	State     []byte    `json:"-"`
	Version   int64     `json:"version"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SessionKey addresses a session the way the store scopes it.
type SessionKey struct {
	AppName string
	UserID  string
	ID      uuid.UUID
}

// SessionRepository defines the interface for session storage. Get and Delete
// only match sessions owned by key.UserID.
type SessionRepository interface {
	Create(ctx context.Context, session *Session) error
	Get(ctx context.Context, key SessionKey) (*Session, error)
	ListByUser(ctx context.Context, appName, userID string) ([]Session, error)
	// SaveTurn writes the new state and appends events in one transaction.
	// It fails with ErrVersionConflict unless the stored version equals
	// session.Version, and bumps session.Version on success.
	SaveTurn(ctx context.Context, session *Session, events []Event) error
	Delete(ctx context.Context, key SessionKey) (bool, error)
	ListEvents(ctx context.Context, sessionID uuid.UUID, limit int) ([]Event, error)
	Ping(ctx context.Context) error
}
