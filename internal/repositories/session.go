package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/desertthunder/beatbuddy/internal/models"
	"github.com/desertthunder/beatbuddy/internal/shared"
)

// SessionRepository persists server-side login sessions keyed by an opaque token.
type SessionRepository struct {
	db  *sql.DB
	now func() time.Time
}

// NewSessionRepository creates a new [SessionRepository] with the given database connection
func NewSessionRepository(db *sql.DB) *SessionRepository {
	return &SessionRepository{db: db, now: time.Now}
}

// Create starts a session for userID that expires after ttl.
func (r *SessionRepository) Create(ctx context.Context, userID int64, ttl time.Duration) (*models.Session, error) {
	now := r.now().UTC()
	session := &models.Session{
		Token:     shared.GenerateID(),
		UserID:    userID,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}

	_, err := r.db.ExecContext(ctx,
		"INSERT INTO sessions (token, user_id, created_at, expires_at) VALUES (?, ?, ?, ?)",
		session.Token, session.UserID, session.CreatedAt, session.ExpiresAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert session: %w", err)
	}
	return session, nil
}

// Get returns a live session. Missing and expired sessions return [shared.ErrUnauthorized].
func (r *SessionRepository) Get(ctx context.Context, token string) (*models.Session, error) {
	var (
		session models.Session
		state   sql.NullString
	)

	err := r.db.QueryRowContext(ctx,
		"SELECT token, user_id, oauth_state, created_at, expires_at FROM sessions WHERE token = ?", token,
	).Scan(&session.Token, &session.UserID, &state, &session.CreatedAt, &session.ExpiresAt)
	if err == sql.ErrNoRows {
		return nil, shared.ErrUnauthorized
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query session: %w", err)
	}

	if r.now().After(session.ExpiresAt) {
		return nil, shared.ErrUnauthorized
	}

	session.OAuthState = state.String
	return &session, nil
}

// Delete ends a session. Deleting an unknown token is not an error.
func (r *SessionRepository) Delete(ctx context.Context, token string) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM sessions WHERE token = ?", token); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// SetOAuthState records the state parameter of a pending Spotify authorization.
func (r *SessionRepository) SetOAuthState(ctx context.Context, token, state string) error {
	result, err := r.db.ExecContext(ctx, "UPDATE sessions SET oauth_state = ? WHERE token = ?", state, token)
	if err != nil {
		return fmt.Errorf("failed to store oauth state: %w", err)
	}
	return requireRows(result, shared.ErrUnauthorized)
}

// ConsumeOAuthState checks state against the pending value and clears it on a match so it cannot be replayed.
func (r *SessionRepository) ConsumeOAuthState(ctx context.Context, token, state string) error {
	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		var pending sql.NullString
		err := tx.QueryRowContext(ctx, "SELECT oauth_state FROM sessions WHERE token = ?", token).Scan(&pending)
		if err == sql.ErrNoRows {
			return shared.ErrUnauthorized
		}
		if err != nil {
			return fmt.Errorf("failed to query oauth state: %w", err)
		}

		if _, err := tx.ExecContext(ctx, "UPDATE sessions SET oauth_state = NULL WHERE token = ?", token); err != nil {
			return fmt.Errorf("failed to clear oauth state: %w", err)
		}

		if !pending.Valid || pending.String == "" || pending.String != state {
			return shared.ErrInvalidState
		}
		return nil
	})
}

// PurgeExpired removes sessions that expired before now and reports how many were removed.
func (r *SessionRepository) PurgeExpired(ctx context.Context) (int64, error) {
	result, err := r.db.ExecContext(ctx, "DELETE FROM sessions WHERE expires_at < ?", r.now().UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to purge sessions: %w", err)
	}
	return result.RowsAffected()
}
