package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/desertthunder/beatbuddy/internal/models"
	"github.com/desertthunder/beatbuddy/internal/shared"
	"github.com/samber/lo"
)

const playlistColumns = "id, conversation_id, song_title, artist, album, image_url, added_at"

// PlaylistRepository persists the songs attached to each conversation.
//
// (title, artist) uniqueness within a conversation is a pre-check ([PlaylistRepository.Exists]),
// not a constraint; concurrent adds may still insert duplicates.
type PlaylistRepository struct {
	db *sql.DB
}

// NewPlaylistRepository creates a new PlaylistRepository with the given database connection
func NewPlaylistRepository(db *sql.DB) *PlaylistRepository {
	return &PlaylistRepository{db: db}
}

// Add inserts an entry, preserving title and artist casing as submitted.
func (r *PlaylistRepository) Add(ctx context.Context, entry *models.PlaylistEntry) error {
	if err := entry.Validate(); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrInvalidInput, err)
	}
	if entry.AddedAt.IsZero() {
		entry.AddedAt = time.Now().UTC()
	}

	result, err := r.db.ExecContext(ctx, `
		INSERT INTO playlist_entries (conversation_id, song_title, artist, album, image_url, added_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`,
		entry.ConversationID,
		strings.TrimSpace(entry.Title),
		strings.TrimSpace(entry.Artist),
		entry.Album,
		entry.ImageURL,
		entry.AddedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert playlist entry: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read playlist entry id: %w", err)
	}
	entry.ID = id
	return nil
}

// Get retrieves one entry of a conversation's playlist.
func (r *PlaylistRepository) Get(ctx context.Context, conversationID, id int64) (*models.PlaylistEntry, error) {
	query := "SELECT " + playlistColumns + " FROM playlist_entries WHERE conversation_id = ? AND id = ?"

	entry, err := r.scanOne(r.db.QueryRowContext(ctx, query, conversationID, id))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: song %d", shared.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query playlist entry: %w", err)
	}
	return entry, nil
}

// List returns the whole playlist in insertion order.
func (r *PlaylistRepository) List(ctx context.Context, conversationID int64) ([]models.PlaylistEntry, error) {
	query := "SELECT " + playlistColumns + " FROM playlist_entries WHERE conversation_id = ? ORDER BY id ASC"
	return r.query(ctx, query, conversationID)
}

// Recent returns the k most recently added entries, oldest first.
func (r *PlaylistRepository) Recent(ctx context.Context, conversationID int64, k int) ([]models.PlaylistEntry, error) {
	if k <= 0 {
		return []models.PlaylistEntry{}, nil
	}

	query := "SELECT " + playlistColumns + " FROM playlist_entries WHERE conversation_id = ? ORDER BY id DESC LIMIT ?"
	entries, err := r.query(ctx, query, conversationID, k)
	if err != nil {
		return nil, err
	}
	return lo.Reverse(entries), nil
}

// Exists reports whether a song with the same case-insensitive title and artist is already in the playlist.
//
// Matching uses [shared.NormalizeTrackKey] so non-ASCII letters fold the same way as in suggestions.
func (r *PlaylistRepository) Exists(ctx context.Context, conversationID int64, title, artist string) (bool, error) {
	ids, err := matchingEntries(ctx, r.db, conversationID, title, artist)
	if err != nil {
		return false, fmt.Errorf("failed to check playlist entry: %w", err)
	}
	return len(ids) > 0, nil
}

// Delete removes one entry from a conversation's playlist.
func (r *PlaylistRepository) Delete(ctx context.Context, conversationID, id int64) error {
	result, err := r.db.ExecContext(ctx,
		"DELETE FROM playlist_entries WHERE conversation_id = ? AND id = ?", conversationID, id,
	)
	if err != nil {
		return fmt.Errorf("failed to delete playlist entry: %w", err)
	}
	return requireRows(result, fmt.Errorf("%w: song %d", shared.ErrNotFound, id))
}

// DeleteBySong removes entries matching title and artist case-insensitively and reports how many were removed.
func (r *PlaylistRepository) DeleteBySong(ctx context.Context, conversationID int64, title, artist string) (int64, error) {
	var removed int64
	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		ids, err := matchingEntries(ctx, tx, conversationID, title, artist)
		if err != nil {
			return err
		}
		for _, id := range ids {
			result, err := tx.ExecContext(ctx,
				"DELETE FROM playlist_entries WHERE conversation_id = ? AND id = ?", conversationID, id,
			)
			if err != nil {
				return err
			}
			n, err := result.RowsAffected()
			if err != nil {
				return err
			}
			removed += n
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to delete playlist entry: %w", err)
	}
	return removed, nil
}

type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// matchingEntries returns the ids of entries whose normalized (title, artist) key equals the given song's.
// SQLite's lower() only folds ASCII, so the comparison happens here.
func matchingEntries(ctx context.Context, q queryer, conversationID int64, title, artist string) ([]int64, error) {
	rows, err := q.QueryContext(ctx,
		"SELECT id, song_title, artist FROM playlist_entries WHERE conversation_id = ?", conversationID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	key := shared.NormalizeTrackKey(title, artist)
	ids := []int64{}
	for rows.Next() {
		var (
			id            int64
			songTitle, by string
		)
		if err := rows.Scan(&id, &songTitle, &by); err != nil {
			return nil, err
		}
		if shared.NormalizeTrackKey(songTitle, by) == key {
			ids = append(ids, id)
		}
	}
	return ids, rows.Err()
}

// Count returns the number of songs in the playlist.
func (r *PlaylistRepository) Count(ctx context.Context, conversationID int64) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM playlist_entries WHERE conversation_id = ?", conversationID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count playlist entries: %w", err)
	}
	return count, nil
}

func (r *PlaylistRepository) query(ctx context.Context, query string, args ...any) ([]models.PlaylistEntry, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query playlist: %w", err)
	}
	defer rows.Close()

	entries := []models.PlaylistEntry{}
	for rows.Next() {
		entry, err := r.scanRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan playlist entry: %w", err)
		}
		entries = append(entries, *entry)
	}
	return entries, rows.Err()
}

func (r *PlaylistRepository) scanOne(row *sql.Row) (*models.PlaylistEntry, error) {
	var e models.PlaylistEntry
	if err := row.Scan(&e.ID, &e.ConversationID, &e.Title, &e.Artist, &e.Album, &e.ImageURL, &e.AddedAt); err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *PlaylistRepository) scanRow(rows *sql.Rows) (*models.PlaylistEntry, error) {
	var e models.PlaylistEntry
	if err := rows.Scan(&e.ID, &e.ConversationID, &e.Title, &e.Artist, &e.Album, &e.ImageURL, &e.AddedAt); err != nil {
		return nil, err
	}
	return &e, nil
}
