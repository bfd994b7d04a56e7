package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Rrens/invitation-agent/internal/domain"
	"github.com/google/uuid"
)

// SessionRepository implements domain.SessionRepository
type SessionRepository struct {
	db *sql.DB
}

func (r *SessionRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *SessionRepository) Create(ctx context.Context, session *domain.Session) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO sessions (id, app_name, user_id, state, version, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		session.ID,
		session.AppName,
		session.UserID,
		string(session.State),
		session.Version,
		toMillis(session.CreatedAt),
		toMillis(session.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to create session: %w", mapError(err))
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (*domain.Session, error) {
	var (
		s                    domain.Session
		state                string
		createdAt, updatedAt int64
	)
	if err := row.Scan(&s.ID, &s.AppName, &s.UserID, &state, &s.Version, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	s.State = []byte(state)
	s.CreatedAt = fromMillis(createdAt)
	s.UpdatedAt = fromMillis(updatedAt)
	return &s, nil
}

func (r *SessionRepository) Get(ctx context.Context, key domain.SessionKey) (*domain.Session, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, app_name, user_id, state, version, created_at, updated_at
		FROM sessions
		WHERE id = ? AND app_name = ? AND user_id = ?
	`, key.ID, key.AppName, key.UserID)

	s, err := scanSession(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	return s, nil
}

func (r *SessionRepository) ListByUser(ctx context.Context, appName, userID string) ([]domain.Session, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, app_name, user_id, state, version, created_at, updated_at
		FROM sessions
		WHERE app_name = ? AND user_id = ?
		ORDER BY updated_at DESC, created_at DESC
	`, appName, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []domain.Session
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		sessions = append(sessions, *s)
	}
	return sessions, rows.Err()
}

func (r *SessionRepository) SaveTurn(ctx context.Context, session *domain.Session, events []domain.Event) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	res, err := tx.ExecContext(ctx, `
		UPDATE sessions
		SET state = ?, version = version + 1, updated_at = ?
		WHERE id = ? AND version = ?
	`, string(session.State), toMillis(now), session.ID, session.Version)
	if err != nil {
		return fmt.Errorf("failed to update session: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update session: %w", err)
	}
	if affected == 0 {
		return domain.ErrVersionConflict
	}

	for _, e := range events {
		content, err := json.Marshal(e.Content)
		if err != nil {
			return fmt.Errorf("failed to marshal event content: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO events (id, session_id, author, role, content, timestamp)
			VALUES (?, ?, ?, ?, ?, ?)
		`, e.ID, session.ID, e.Author, e.Content.Role, string(content), toMillis(e.Timestamp)); err != nil {
			return fmt.Errorf("failed to append event: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit turn: %w", err)
	}

	session.Version++
	session.UpdatedAt = fromMillis(toMillis(now))
	return nil
}

func (r *SessionRepository) Delete(ctx context.Context, key domain.SessionKey) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM sessions WHERE id = ? AND app_name = ? AND user_id = ?`,
		key.ID, key.AppName, key.UserID,
	)
	if err != nil {
		return false, fmt.Errorf("failed to delete session: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to delete session: %w", err)
	}
	return affected > 0, nil
}

// ListEvents returns the session's events oldest first. A positive limit
// keeps only the most recent ones.
func (r *SessionRepository) ListEvents(ctx context.Context, sessionID uuid.UUID, limit int) ([]domain.Event, error) {
	if limit <= 0 {
		limit = -1
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, session_id, author, content, timestamp FROM (
			SELECT seq, id, session_id, author, content, timestamp
			FROM events
			WHERE session_id = ?
			ORDER BY seq DESC
			LIMIT ?
		)
		ORDER BY seq ASC
	`, sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	defer rows.Close()

	var events []domain.Event
	for rows.Next() {
		var (
			e         domain.Event
			content   string
			timestamp int64
		)
		if err := rows.Scan(&e.ID, &e.SessionID, &e.Author, &content, &timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		if err := json.Unmarshal([]byte(content), &e.Content); err != nil {
			return nil, fmt.Errorf("failed to unmarshal event content: %w", err)
		}
		e.Timestamp = fromMillis(timestamp)
		events = append(events, e)
	}
	return events, rows.Err()
}
