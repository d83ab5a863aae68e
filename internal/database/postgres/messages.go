package postgres

import (
	"context"
	"fmt"

	"github.com/kozaktomas/face-login/internal/constants"
	"github.com/kozaktomas/face-login/internal/database"
)

// MessageRepository provides PostgreSQL-backed message board storage
type MessageRepository struct {
	pool *Pool
}

// NewMessageRepository creates a new PostgreSQL message repository
func NewMessageRepository(pool *Pool) *MessageRepository {
	return &MessageRepository{pool: pool}
}

// PostMessage stores a message
func (r *MessageRepository) PostMessage(ctx context.Context, msg database.Message) error {
	query := `INSERT INTO messages (id, name, text, created_at) VALUES ($1, $2, $3, $4)`

	_, err := r.pool.Exec(ctx, query, msg.ID.String(), msg.Name, msg.Text, msg.CreatedAt)
	if err != nil {
		return fmt.Errorf("post message: %w", err)
	}
	return nil
}

// RecentMessages returns up to limit messages, newest first.
// A non-positive limit returns the board limit.
func (r *MessageRepository) RecentMessages(ctx context.Context, limit int) ([]database.Message, error) {
	if limit <= 0 || limit > constants.MessageBoardLimit {
		limit = constants.MessageBoardLimit
	}

	rows, err := r.pool.Query(ctx, `
		SELECT id, name, text, created_at
		FROM messages
		ORDER BY created_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("recent messages: %w", err)
	}
	defer rows.Close()

	var messages []database.Message
	for rows.Next() {
		var m database.Message
		var id string
		if err := rows.Scan(&id, &m.Name, &m.Text, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		if err := m.ID.UnmarshalText([]byte(id)); err != nil {
			return nil, fmt.Errorf("parse message id %q: %w", id, err)
		}
		messages = append(messages, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate messages: %w", err)
	}
	return messages, nil
}
