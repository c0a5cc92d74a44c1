package tasks

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/beatbuddy/internal/models"
	"github.com/desertthunder/beatbuddy/internal/services"
	"github.com/desertthunder/beatbuddy/internal/shared"
	"golang.org/x/oauth2"
)

const exportDescription = "Created with BeatBuddy"

// SpotifyConnector builds an authenticated client from a stored token.
type SpotifyConnector interface {
	Client(ctx context.Context, token *oauth2.Token, onRefresh func(*oauth2.Token)) (*services.SpotifyClient, error)
}

// ExportEngine exports stored playlists to Spotify on behalf of a user.
type ExportEngine struct {
	spotify   SpotifyConnector
	tokens    TokenStore
	playlists PlaylistLister
	cache     TrackCache
	logger    *log.Logger
	now       func() time.Time

	mu    sync.Mutex
	locks map[int64]*sync.Mutex
}

// NewExportEngine creates an export engine.
func NewExportEngine(spotify SpotifyConnector, tokens TokenStore, playlists PlaylistLister, logger *log.Logger) *ExportEngine {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &ExportEngine{
		spotify:   spotify,
		tokens:    tokens,
		playlists: playlists,
		logger:    shared.WithLogger(logger, "component", "export"),
		now:       time.Now,
		locks:     map[int64]*sync.Mutex{},
	}
}

// WithTrackCache makes searches consult and fill cache.
func (e *ExportEngine) WithTrackCache(cache TrackCache) *ExportEngine {
	e.cache = cache
	return e
}

func (e *ExportEngine) userLock(userID int64) *sync.Mutex {
	e.mu.Lock()
	defer e.mu.Unlock()

	l, ok := e.locks[userID]
	if !ok {
		l = &sync.Mutex{}
		e.locks[userID] = l
	}
	return l
}

// ClientForUser returns a Spotify client for the user's stored token.
//
// An expired access token is refreshed and the new pair persisted before returning. Load,
// refresh and persist are serialized per user so concurrent requests refresh once.
// A failed refresh leaves the stored token untouched.
func (e *ExportEngine) ClientForUser(ctx context.Context, userID int64) (*services.SpotifyClient, error) {
	lock := e.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	stored, err := e.tokens.SpotifyToken(ctx, userID)
	if err != nil {
		return nil, err
	}

	token := &oauth2.Token{
		AccessToken:  stored.AccessToken,
		RefreshToken: stored.RefreshToken,
		TokenType:    "Bearer",
		Expiry:       stored.Expiry,
	}

	var persistErr error
	client, err := e.spotify.Client(ctx, token, func(fresh *oauth2.Token) {
		refresh := fresh.RefreshToken
		if refresh == "" {
			refresh = stored.RefreshToken
		}
		updated := models.SpotifyToken{AccessToken: fresh.AccessToken, RefreshToken: refresh, Expiry: fresh.Expiry}
		if err := e.tokens.UpdateSpotifyToken(ctx, userID, updated); err != nil {
			e.logger.Error("failed to persist refreshed token", "user", userID, "error", err)
			persistErr = err
			return
		}
		e.logger.Debug("spotify token refreshed", "user", userID, "expiry", fresh.Expiry)
	})
	if err != nil {
		return nil, err
	}
	if persistErr != nil {
		return nil, fmt.Errorf("failed to persist refreshed token: %w", persistErr)
	}
	return client, nil
}

// PlaylistName is the name given to exported playlists.
func PlaylistName(now time.Time) string {
	return "BeatBuddy Playlist - " + now.Format("2006-01-02")
}

// ExportPlaylist creates a private Spotify playlist from a conversation's playlist.
//
// Each entry is searched as "track:<title> artist:<artist>" and the first hit is kept,
// unless the track cache already knows it;
// unmatched entries are reported in the result and skipped. An empty playlist fails with
// [shared.ErrEmptyPlaylist] before anything is created remotely; zero matches fail with
// [shared.ErrNoTracksFound].
func (e *ExportEngine) ExportPlaylist(ctx context.Context, userID, conversationID int64, progress chan<- ProgressUpdate) (*models.ExportResult, error) {
	sendProgress(progress, connectUpdate())
	client, err := e.ClientForUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	entries, err := e.playlists.List(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, shared.ErrEmptyPlaylist
	}
	sendProgress(progress, loadPlaylistUpdate(len(entries)))

	me, err := client.CurrentUser(ctx)
	if err != nil {
		return nil, err
	}

	name := PlaylistName(e.now())
	sendProgress(progress, createPlaylistUpdate(name))
	playlist, err := client.CreatePlaylist(ctx, me.ID, name, exportDescription, false)
	if err != nil {
		return nil, err
	}

	result := &models.ExportResult{
		PlaylistID:  playlist.ID,
		Name:        playlist.Name,
		URL:         playlist.ExternalURLs.Spotify,
		Unmatched:   []string{},
		TotalTracks: len(entries),
	}

	uris := make([]string, 0, len(entries))
	for i := range entries {
		entry := &entries[i]
		sendProgress(progress, searchTracksUpdate(i+1, len(entries), entry))

		uri, err := e.matchTrack(ctx, client, entry)
		if err != nil {
			return nil, err
		}
		if uri == "" {
			e.logger.Warn("track not found on spotify", "title", entry.Title, "artist", entry.Artist)
			result.Unmatched = append(result.Unmatched, entry.Title+" - "+entry.Artist)
			sendProgress(progress, unmatchedTrackUpdate(i+1, len(entries), entry))
			continue
		}
		uris = append(uris, uri)
	}

	if len(uris) == 0 {
		return nil, shared.ErrNoTracksFound
	}

	sendProgress(progress, addTracksUpdate(len(uris)))
	if err := client.AddTracks(ctx, playlist.ID, uris); err != nil {
		return nil, err
	}

	result.Added = len(uris)
	e.logger.Info("playlist exported", "user", userID, "conversation", conversationID, "added", result.Added, "url", result.URL)
	sendProgress(progress, exportCompletedUpdate(result))
	return result, nil
}

// matchTrack resolves an entry to a track URI, or "" when Spotify has no match.
// Only cancellation is returned as an error; search and cache failures are logged.
func (e *ExportEngine) matchTrack(ctx context.Context, client *services.SpotifyClient, entry *models.PlaylistEntry) (string, error) {
	if e.cache != nil {
		uri, ok, err := e.cache.LookupTrack(ctx, entry.Title, entry.Artist)
		if err != nil {
			e.logger.Warn("track cache lookup failed", "title", entry.Title, "artist", entry.Artist, "error", err)
		}
		if ok {
			return uri, nil
		}
	}

	query := fmt.Sprintf("track:%s artist:%s", entry.Title, entry.Artist)
	tracks, err := client.SearchTrack(ctx, query, 1)
	if err != nil {
		if errors.Is(err, context.Canceled) || ctx.Err() != nil {
			return "", err
		}
		e.logger.Warn("spotify search failed", "title", entry.Title, "artist", entry.Artist, "error", err)
	}
	if len(tracks) == 0 {
		return "", nil
	}

	uri := tracks[0].URI
	if e.cache != nil {
		if err := e.cache.CacheTrack(ctx, entry.Title, entry.Artist, uri); err != nil {
			e.logger.Warn("failed to cache track match", "title", entry.Title, "error", err)
		}
	}
	return uri, nil
}
