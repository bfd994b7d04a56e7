package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Rrens/invitation-agent/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// SessionRepository implements domain.SessionRepository
type SessionRepository struct {
	pool *pgxpool.Pool
}

// NewSessionRepository creates a new session repository
func NewSessionRepository(pool *pgxpool.Pool) *SessionRepository {
	return &SessionRepository{pool: pool}
}

func (r *SessionRepository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

func (r *SessionRepository) Create(ctx context.Context, session *domain.Session) error {
	query := `
		INSERT INTO sessions (id, app_name, user_id, state, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := r.pool.Exec(ctx, query,
		session.ID,
		session.AppName,
		session.UserID,
		session.State,
		session.Version,
		session.CreatedAt,
		session.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create session: %w", mapError(err))
	}
	return nil
}

func (r *SessionRepository) Get(ctx context.Context, key domain.SessionKey) (*domain.Session, error) {
	query := `
		SELECT id, app_name, user_id, state, version, created_at, updated_at
		FROM sessions
		WHERE id = $1 AND app_name = $2 AND user_id = $3
	`
	var s domain.Session
	err := r.pool.QueryRow(ctx, query, key.ID, key.AppName, key.UserID).Scan(
		&s.ID,
		&s.AppName,
		&s.UserID,
		&s.State,
		&s.Version,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	return &s, nil
}

func (r *SessionRepository) ListByUser(ctx context.Context, appName, userID string) ([]domain.Session, error) {
	query := `
		SELECT id, app_name, user_id, state, version, created_at, updated_at
		FROM sessions
		WHERE app_name = $1 AND user_id = $2
		ORDER BY updated_at DESC
	`
	rows, err := r.pool.Query(ctx, query, appName, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []domain.Session
	for rows.Next() {
		var s domain.Session
		if err := rows.Scan(
			&s.ID,
			&s.AppName,
			&s.UserID,
			&s.State,
			&s.Version,
			&s.CreatedAt,
			&s.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		sessions = append(sessions, s)
	}

	return sessions, rows.Err()
}

func (r *SessionRepository) SaveTurn(ctx context.Context, session *domain.Session, events []domain.Event) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	now := time.Now().UTC()
	tag, err := tx.Exec(ctx, `
		UPDATE sessions
		SET state = $1, version = version + 1, updated_at = $2
		WHERE id = $3 AND version = $4
	`, session.State, now, session.ID, session.Version)
	if err != nil {
		return fmt.Errorf("failed to update session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrVersionConflict
	}

	for _, e := range events {
		content, err := json.Marshal(e.Content)
		if err != nil {
			return fmt.Errorf("failed to marshal event content: %w", err)
		}
		_, err = tx.Exec(ctx, `
			INSERT INTO events (id, session_id, author, role, content, timestamp)
			VALUES ($1, $2, $3, $4, $5, $6)
		`, e.ID, session.ID, e.Author, e.Content.Role, content, e.Timestamp)
		if err != nil {
			return fmt.Errorf("failed to append event: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit turn: %w", err)
	}

	session.Version++
	session.UpdatedAt = now
	return nil
}

func (r *SessionRepository) Delete(ctx context.Context, key domain.SessionKey) (bool, error) {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM sessions WHERE id = $1 AND app_name = $2 AND user_id = $3`,
		key.ID, key.AppName, key.UserID,
	)
	if err != nil {
		return false, fmt.Errorf("failed to delete session: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// ListEvents returns the session's events oldest first. A positive limit
// keeps only the most recent ones.
func (r *SessionRepository) ListEvents(ctx context.Context, sessionID uuid.UUID, limit int) ([]domain.Event, error) {
	query := `
		SELECT id, session_id, author, content, timestamp FROM (
			SELECT seq, id, session_id, author, content, timestamp
			FROM events
			WHERE session_id = $1
			ORDER BY seq DESC
			LIMIT $2
		) recent
		ORDER BY seq ASC
	`
	var limitArg any
	if limit > 0 {
		limitArg = limit
	}

	rows, err := r.pool.Query(ctx, query, sessionID, limitArg)
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	defer rows.Close()

	var events []domain.Event
	for rows.Next() {
		var (
			e       domain.Event
			content []byte
		)
		if err := rows.Scan(&e.ID, &e.SessionID, &e.Author, &content, &e.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		if err := json.Unmarshal(content, &e.Content); err != nil {
			return nil, fmt.Errorf("failed to unmarshal event content: %w", err)
		}
		events = append(events, e)
	}

	return events, rows.Err()
}
