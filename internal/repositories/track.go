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

// TrackMatchRepository remembers which remote track each song resolved to.
//
// Rows are keyed by service and [shared.NormalizeTrackKey], so lookups ignore case and
// surrounding whitespace.
type TrackMatchRepository struct {
	db *sql.DB
}

// NewTrackMatchRepository creates a new TrackMatchRepository with the given database connection
func NewTrackMatchRepository(db *sql.DB) *TrackMatchRepository {
	return &TrackMatchRepository{db: db}
}

// Put stores a match, replacing any earlier match for the same song on the same service.
func (r *TrackMatchRepository) Put(ctx context.Context, m *models.TrackMatch) error {
	if err := m.Validate(); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrInvalidInput, err)
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO track_matches (service, match_key, title, artist, uri, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (service, match_key) DO UPDATE SET uri = excluded.uri, created_at = excluded.created_at
	`,
		m.Service,
		shared.NormalizeTrackKey(m.Title, m.Artist),
		strings.TrimSpace(m.Title),
		strings.TrimSpace(m.Artist),
		m.URI,
		m.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to store track match: %w", err)
	}
	return r.db.QueryRowContext(ctx,
		"SELECT id FROM track_matches WHERE service = ? AND match_key = ?",
		m.Service, shared.NormalizeTrackKey(m.Title, m.Artist),
	).Scan(&m.ID)
}

// Get returns the stored match for a song, or [shared.ErrNotFound].
func (r *TrackMatchRepository) Get(ctx context.Context, service, title, artist string) (*models.TrackMatch, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, service, title, artist, uri, created_at
		FROM track_matches
		WHERE service = ? AND match_key = ?
	`, service, shared.NormalizeTrackKey(title, artist))

	var m models.TrackMatch
	err := row.Scan(&m.ID, &m.Service, &m.Title, &m.Artist, &m.URI, &m.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s match for %s - %s", shared.ErrNotFound, service, title, artist)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query track match: %w", err)
	}
	return &m, nil
}

// Delete forgets a song's match, e.g. after the remote track disappeared.
func (r *TrackMatchRepository) Delete(ctx context.Context, service, title, artist string) error {
	result, err := r.db.ExecContext(ctx,
		"DELETE FROM track_matches WHERE service = ? AND match_key = ?",
		service, shared.NormalizeTrackKey(title, artist),
	)
	if err != nil {
		return fmt.Errorf("failed to delete track match: %w", err)
	}
	return requireRows(result, fmt.Errorf("%w: %s match for %s - %s", shared.ErrNotFound, service, title, artist))
}

// Count returns how many matches are stored for service.
func (r *TrackMatchRepository) Count(ctx context.Context, service string) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM track_matches WHERE service = ?", service,
	).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count track matches: %w", err)
	}
	return n, nil
}
