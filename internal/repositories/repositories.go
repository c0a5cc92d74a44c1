// package repositories provides the SQLite persistence layer (the playlist store).
package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/mattn/go-sqlite3"
)

// Store groups the repositories that share one database handle.
type Store struct {
	Users         *UserRepository
	Sessions      *SessionRepository
	Conversations *ConversationRepository
	Messages      *MessageRepository
	Playlists     *PlaylistRepository
	Tracks        *TrackMatchRepository
}

// NewStore creates every repository over db.
func NewStore(db *sql.DB) *Store {
	return &Store{
		Users:         NewUserRepository(db),
		Sessions:      NewSessionRepository(db),
		Conversations: NewConversationRepository(db),
		Messages:      NewMessageRepository(db),
		Playlists:     NewPlaylistRepository(db),
		Tracks:        NewTrackMatchRepository(db),
	}
}

// withTx runs fn inside a transaction, committing only when fn succeeds.
func withTx(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// requireRows maps a zero-row write to err.
func requireRows(result sql.Result, err error) error {
	rows, rerr := result.RowsAffected()
	if rerr != nil {
		return fmt.Errorf("failed to get affected rows: %w", rerr)
	}
	if rows == 0 {
		return err
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	return errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
}
