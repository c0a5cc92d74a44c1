// package tasks implements the multi-step operations behind chat functions and HTTP routes.
//
// SuggestionEngine walks metadata lookups to build de-duplicated song lists, ExportEngine
// pushes a stored playlist to Spotify, and Showcase assembles the login-page chart.
package tasks

import (
	"context"

	"github.com/desertthunder/beatbuddy/internal/models"
	"github.com/desertthunder/beatbuddy/internal/shared"
)

// PlaylistLister reads a conversation's playlist in insertion order.
type PlaylistLister interface {
	List(ctx context.Context, conversationID int64) ([]models.PlaylistEntry, error)
}

// GenreLister reads a user's preferred genres, favourite first.
type GenreLister interface {
	Genres(ctx context.Context, userID int64) ([]string, error)
}

// TokenStore loads and persists a user's Spotify token pair.
type TokenStore interface {
	SpotifyToken(ctx context.Context, userID int64) (*models.SpotifyToken, error)
	UpdateSpotifyToken(ctx context.Context, userID int64, token models.SpotifyToken) error
}

// TrackCache remembers which remote track a song resolved to so re-exports skip the search.
type TrackCache interface {
	LookupTrack(ctx context.Context, title, artist string) (uri string, ok bool, err error)
	CacheTrack(ctx context.Context, title, artist, uri string) error
}

// sendProgress sends a progress update through the channel without blocking.
// Uses select with default to ensure progress reporting never blocks execution.
func sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}

// seenSet tracks (title, artist) pairs case-insensitively.
type seenSet map[string]struct{}

// add records the pair and reports whether it was new.
func (s seenSet) add(title, artist string) bool {
	key := shared.NormalizeTrackKey(title, artist)
	if _, ok := s[key]; ok {
		return false
	}
	s[key] = struct{}{}
	return true
}

func seenFromPlaylist(entries []models.PlaylistEntry) seenSet {
	s := seenSet{}
	for _, e := range entries {
		s.add(e.Title, e.Artist)
	}
	return s
}
