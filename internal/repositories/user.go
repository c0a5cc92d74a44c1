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

// UserRepository persists [models.User] accounts, their Spotify tokens and genre preferences.
type UserRepository struct {
	db *sql.DB
}

// NewUserRepository creates a new [UserRepository] with the given database connection
func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create inserts a new user and its genres in one transaction.
// A taken username returns [shared.ErrUsernameTaken].
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	if err := user.Validate(); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrInvalidInput, err)
	}

	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}

	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx,
			`INSERT INTO users (username, password_hash, created_at) VALUES (?, ?, ?)`,
			strings.TrimSpace(user.Username), user.PasswordHash, user.CreatedAt,
		)
		if isUniqueViolation(err) {
			return shared.ErrUsernameTaken
		}
		if err != nil {
			return fmt.Errorf("failed to insert user: %w", err)
		}

		id, err := result.LastInsertId()
		if err != nil {
			return fmt.Errorf("failed to read user id: %w", err)
		}
		if err := writeGenres(ctx, tx, id, user.Genres); err != nil {
			return err
		}
		user.ID = id
		return nil
	})
}

// Get retrieves a user by ID along with preferred genres.
func (r *UserRepository) Get(ctx context.Context, id int64) (*models.User, error) {
	return r.getBy(ctx, "id = ?", id)
}

// GetByUsername retrieves a user by exact username.
func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	return r.getBy(ctx, "username = ?", strings.TrimSpace(username))
}

func (r *UserRepository) getBy(ctx context.Context, where string, arg any) (*models.User, error) {
	query := `
		SELECT id, username, password_hash, spotify_access_token, spotify_refresh_token, spotify_token_expiry, created_at
		FROM users
		WHERE ` + where

	user, err := scanUser(r.db.QueryRowContext(ctx, query, arg))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: user", shared.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query user: %w", err)
	}

	genres, err := r.Genres(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	user.Genres = genres
	return user, nil
}

// UpdateSpotifyToken stores the user's current Spotify token pair. Last writer wins.
func (r *UserRepository) UpdateSpotifyToken(ctx context.Context, userID int64, token models.SpotifyToken) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE users
		SET spotify_access_token = ?, spotify_refresh_token = ?, spotify_token_expiry = ?
		WHERE id = ?
	`, token.AccessToken, token.RefreshToken, token.Expiry.UTC(), userID)
	if err != nil {
		return fmt.Errorf("failed to update spotify token: %w", err)
	}
	return requireRows(result, fmt.Errorf("%w: user %d", shared.ErrNotFound, userID))
}

// SpotifyToken returns the stored token, or [shared.ErrSpotifyNotConnected] when none is stored.
func (r *UserRepository) SpotifyToken(ctx context.Context, userID int64) (*models.SpotifyToken, error) {
	user, err := r.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.Spotify == nil {
		return nil, shared.ErrSpotifyNotConnected
	}
	return user.Spotify, nil
}

// SetGenres replaces the user's preferred genres, keeping order and dropping case-insensitive duplicates.
func (r *UserRepository) SetGenres(ctx context.Context, userID int64, genres []string) error {
	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "DELETE FROM user_genres WHERE user_id = ?", userID); err != nil {
			return fmt.Errorf("failed to clear genres: %w", err)
		}
		return writeGenres(ctx, tx, userID, genres)
	})
}

func writeGenres(ctx context.Context, tx *sql.Tx, userID int64, genres []string) error {
	cleaned := lo.Filter(lo.Map(genres, func(g string, _ int) string {
		return strings.TrimSpace(g)
	}), func(g string, _ int) bool { return g != "" })
	cleaned = lo.UniqBy(cleaned, strings.ToLower)

	for i, g := range cleaned {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO user_genres (user_id, genre, position) VALUES (?, ?, ?)", userID, g, i,
		); err != nil {
			return fmt.Errorf("failed to insert genre %q: %w", g, err)
		}
	}
	return nil
}

// Genres returns the user's preferred genres in the order they were set.
func (r *UserRepository) Genres(ctx context.Context, userID int64) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT genre FROM user_genres WHERE user_id = ? ORDER BY position, genre", userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query genres: %w", err)
	}
	defer rows.Close()

	genres := []string{}
	for rows.Next() {
		var g string
		if err := rows.Scan(&g); err != nil {
			return nil, fmt.Errorf("failed to scan genre: %w", err)
		}
		genres = append(genres, g)
	}
	return genres, rows.Err()
}

func scanUser(row *sql.Row) (*models.User, error) {
	var (
		user    models.User
		access  sql.NullString
		refresh sql.NullString
		expiry  sql.NullTime
	)

	if err := row.Scan(&user.ID, &user.Username, &user.PasswordHash, &access, &refresh, &expiry, &user.CreatedAt); err != nil {
		return nil, err
	}

	if access.Valid && access.String != "" {
		user.Spotify = &models.SpotifyToken{
			AccessToken:  access.String,
			RefreshToken: refresh.String,
			Expiry:       expiry.Time,
		}
	}
	return &user, nil
}
