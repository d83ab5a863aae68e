package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/kozaktomas/face-login/internal/web/middleware"
)

// SessionRepository persists login sessions so they survive a restart.
type SessionRepository struct {
	pool *Pool
}

// NewSessionRepository creates a session repository on pool.
func NewSessionRepository(pool *Pool) *SessionRepository {
	return &SessionRepository{pool: pool}
}

// Save upserts a session.
func (r *SessionRepository) Save(ctx context.Context, id, identity string, createdAt, expiresAt time.Time) error {
	if _, err := r.pool.Exec(ctx, `
		INSERT INTO sessions (id, identity, created_at, expires_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET
			identity = EXCLUDED.identity,
			expires_at = EXCLUDED.expires_at
	`, id, identity, createdAt.UTC(), expiresAt.UTC()); err != nil {
		return fmt.Errorf("save session %s: %w", id, err)
	}
	return nil
}

// Get returns the unexpired session with id, or nil when there is none.
func (r *SessionRepository) Get(ctx context.Context, id string) (*middleware.StoredSession, error) {
	var s middleware.StoredSession
	err := r.pool.QueryRow(ctx, `
		SELECT id, identity, created_at, expires_at
		FROM sessions
		WHERE id = $1 AND expires_at > NOW()
	`, id).Scan(&s.ID, &s.Identity, &s.CreatedAt, &s.ExpiresAt)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, nil
	case err != nil:
		return nil, fmt.Errorf("get session: %w", err)
	}
	return &s, nil
}

// Delete removes a session. Deleting an unknown id is not an error.
func (r *SessionRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.pool.Exec(ctx, "DELETE FROM sessions WHERE id = $1", id); err != nil {
		return fmt.Errorf("delete session %s: %w", id, err)
	}
	return nil
}

// DeleteExpired purges expired sessions and reports how many were removed.
func (r *SessionRepository) DeleteExpired(ctx context.Context) (int64, error) {
	result, err := r.pool.Exec(ctx, "DELETE FROM sessions WHERE expires_at <= NOW()")
	if err != nil {
		return 0, fmt.Errorf("delete expired sessions: %w", err)
	}
	return result.RowsAffected()
}
