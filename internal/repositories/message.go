package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/desertthunder/beatbuddy/internal/models"
	"github.com/desertthunder/beatbuddy/internal/shared"
)

// MessageRepository persists the append-only chat history.
type MessageRepository struct {
	db *sql.DB
}

// NewMessageRepository creates a new [MessageRepository] with the given database connection
func NewMessageRepository(db *sql.DB) *MessageRepository {
	return &MessageRepository{db: db}
}

// List returns a conversation's messages ordered by timestamp, ties broken by insertion order.
func (r *MessageRepository) List(ctx context.Context, conversationID int64) ([]models.Message, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, conversation_id, sender, content, created_at
		FROM messages
		WHERE conversation_id = ?
		ORDER BY created_at ASC, id ASC
	`, conversationID)
	if err != nil {
		return nil, fmt.Errorf("failed to query messages: %w", err)
	}
	defer rows.Close()

	messages := []models.Message{}
	for rows.Next() {
		var (
			m      models.Message
			sender string
		)
		if err := rows.Scan(&m.ID, &m.ConversationID, &sender, &m.Content, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		m.Sender = models.Sender(sender)
		messages = append(messages, m)
	}
	return messages, rows.Err()
}

// Append inserts a single message.
func (r *MessageRepository) Append(ctx context.Context, m *models.Message) error {
	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		return insertMessage(ctx, tx, m)
	})
}

// AppendTurn persists a user message and the bot's reply in one transaction.
func (r *MessageRepository) AppendTurn(ctx context.Context, conversationID int64, userText, reply string) ([]models.Message, error) {
	now := time.Now().UTC()
	turn := []models.Message{
		{ConversationID: conversationID, Sender: models.SenderUser, Content: userText, CreatedAt: now},
		{ConversationID: conversationID, Sender: models.SenderBot, Content: reply, CreatedAt: now},
	}

	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		for i := range turn {
			if err := insertMessage(ctx, tx, &turn[i]); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return turn, nil
}

func insertMessage(ctx context.Context, tx *sql.Tx, m *models.Message) error {
	if err := m.Validate(); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrInvalidInput, err)
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}

	result, err := tx.ExecContext(ctx,
		"INSERT INTO messages (conversation_id, sender, content, created_at) VALUES (?, ?, ?, ?)",
		m.ConversationID, string(m.Sender), m.Content, m.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert message: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read message id: %w", err)
	}
	m.ID = id
	return nil
}
