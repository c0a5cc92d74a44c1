package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/desertthunder/beatbuddy/internal/models"
	"github.com/desertthunder/beatbuddy/internal/shared"
)

// ConversationRepository persists [models.Conversation] rows.
//
// Deleting a conversation cascades to its messages and playlist entries.
type ConversationRepository struct {
	db *sql.DB
}

// NewConversationRepository creates a new [ConversationRepository] with the given database connection
func NewConversationRepository(db *sql.DB) *ConversationRepository {
	return &ConversationRepository{db: db}
}

// Create inserts a conversation and sets its ID and start time.
func (r *ConversationRepository) Create(ctx context.Context, c *models.Conversation) error {
	if err := c.Validate(); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrInvalidInput, err)
	}
	if c.StartedAt.IsZero() {
		c.StartedAt = time.Now().UTC()
	}

	result, err := r.db.ExecContext(ctx,
		"INSERT INTO conversations (user_id, title, started_at) VALUES (?, ?, ?)",
		c.UserID, strings.TrimSpace(c.Title), c.StartedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert conversation: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read conversation id: %w", err)
	}
	c.ID = id
	return nil
}

// Get retrieves a conversation by ID.
func (r *ConversationRepository) Get(ctx context.Context, id int64) (*models.Conversation, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT id, user_id, title, started_at FROM conversations WHERE id = ?", id,
	)

	c, err := scanConversation(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: conversation %d", shared.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query conversation: %w", err)
	}
	return c, nil
}

// GetOwned retrieves a conversation and checks that userID owns it.
//
// Missing conversations return [shared.ErrNotFound]; conversations owned by someone else return [shared.ErrForbidden].
func (r *ConversationRepository) GetOwned(ctx context.Context, id, userID int64) (*models.Conversation, error) {
	c, err := r.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if c.UserID != userID {
		return nil, shared.ErrForbidden
	}
	return c, nil
}

// ListByUser returns the user's conversations, newest first.
func (r *ConversationRepository) ListByUser(ctx context.Context, userID int64) ([]models.Conversation, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, title, started_at
		FROM conversations
		WHERE user_id = ?
		ORDER BY started_at DESC, id DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query conversations: %w", err)
	}
	defer rows.Close()

	conversations := []models.Conversation{}
	for rows.Next() {
		var c models.Conversation
		if err := rows.Scan(&c.ID, &c.UserID, &c.Title, &c.StartedAt); err != nil {
			return nil, fmt.Errorf("failed to scan conversation: %w", err)
		}
		conversations = append(conversations, c)
	}
	return conversations, rows.Err()
}

// Rename sets a conversation's title.
func (r *ConversationRepository) Rename(ctx context.Context, id int64, title string) error {
	result, err := r.db.ExecContext(ctx, "UPDATE conversations SET title = ? WHERE id = ?", strings.TrimSpace(title), id)
	if err != nil {
		return fmt.Errorf("failed to rename conversation: %w", err)
	}
	return requireRows(result, fmt.Errorf("%w: conversation %d", shared.ErrNotFound, id))
}

// Delete removes a conversation along with its messages and playlist.
func (r *ConversationRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM conversations WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete conversation: %w", err)
	}
	return requireRows(result, fmt.Errorf("%w: conversation %d", shared.ErrNotFound, id))
}

// DeleteAllByUser removes every conversation the user owns and reports how many were removed.
func (r *ConversationRepository) DeleteAllByUser(ctx context.Context, userID int64) (int64, error) {
	result, err := r.db.ExecContext(ctx, "DELETE FROM conversations WHERE user_id = ?", userID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete conversations: %w", err)
	}
	return result.RowsAffected()
}

func scanConversation(row *sql.Row) (*models.Conversation, error) {
	var c models.Conversation
	if err := row.Scan(&c.ID, &c.UserID, &c.Title, &c.StartedAt); err != nil {
		return nil, err
	}
	return &c, nil
}
