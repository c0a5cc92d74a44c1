package chat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/desertthunder/beatbuddy/internal/models"
	"github.com/desertthunder/beatbuddy/internal/services"
	"github.com/desertthunder/beatbuddy/internal/shared"
	"github.com/desertthunder/beatbuddy/internal/tasks"
)

const (
	defaultLookupLimit = 5
	defaultBuildLimit  = 10
)

// PlaylistStore is the slice of the playlist repository the commands mutate.
type PlaylistStore interface {
	Add(ctx context.Context, entry *models.PlaylistEntry) error
	List(ctx context.Context, conversationID int64) ([]models.PlaylistEntry, error)
	Recent(ctx context.Context, conversationID int64, k int) ([]models.PlaylistEntry, error)
	Exists(ctx context.Context, conversationID int64, title, artist string) (bool, error)
	DeleteBySong(ctx context.Context, conversationID int64, title, artist string) (int64, error)
}

// Suggester builds candidate song lists.
type Suggester interface {
	BuildGenrePlaylist(ctx context.Context, genre string, n int) ([]models.Suggestion, error)
	BuildFromPreferences(ctx context.Context, userID int64, limit int) ([]models.Suggestion, error)
	BuildOnCurrentPlaylist(ctx context.Context, conversationID int64, limit int) ([]models.Suggestion, error)
	SuggestForConversation(ctx context.Context, conversationID int64, n int) ([]models.Suggestion, error)
}

// Exporter copies a conversation's playlist to Spotify.
type Exporter interface {
	ExportPlaylist(ctx context.Context, userID, conversationID int64, progress chan<- tasks.ProgressUpdate) (*models.ExportResult, error)
}

// Dependencies are the components the commands dispatch to. Exporter may be nil
// when Spotify is not configured.
type Dependencies struct {
	Metadata    services.MetadataProvider
	Playlists   PlaylistStore
	Suggestions Suggester
	Exporter    Exporter
}

// Status is the result of a playlist mutation as the model sees it.
type Status struct {
	Status string `json:"status"`
	Error  bool   `json:"error,omitempty"`
}

// SuggestionResult carries built songs and, when the build fell short, why.
type SuggestionResult struct {
	Songs   []models.Suggestion `json:"songs"`
	Message string              `json:"message,omitempty"`
}

// ExportStatus is the result of createPlaylist.
type ExportStatus struct {
	Status string               `json:"status"`
	Error  bool                 `json:"error,omitempty"`
	Export *models.ExportResult `json:"export,omitempty"`
}

type songArgs struct {
	SongTitle string `json:"songTitle"`
	Artist    string `json:"artist"`
	Limit     int    `json:"limit"`
}

type albumArgs struct {
	AlbumTitle string `json:"albumTitle"`
	Artist     string `json:"artist"`
	Limit      int    `json:"limit"`
}

type tagArgs struct {
	Tag   string `json:"tag"`
	Genre string `json:"genre"`
	Limit int    `json:"limit"`
}

// NewCommandRegistry registers every function the chat model may call.
func NewCommandRegistry(deps Dependencies) (*Registry, error) {
	h := &handlers{deps: deps}
	r := NewRegistry()

	commands := []Command{
		{
			Name:        "searchTrack",
			Description: "Search for tracks by title and return matching songs with their artists",
			Parameters: object(map[string]any{
				"songTitle": str("The title of the song to search for"),
				"limit":     limit("The number of results to return (default is 5)"),
			}, "songTitle"),
			Handler: h.searchTrack,
		},
		{
			Name:        "getTrackInfo",
			Description: "Get detailed information about a track: album, release date and top tags",
			Parameters: object(map[string]any{
				"artist":    str("The artist of the song"),
				"songTitle": str("The title of the song"),
			}, "artist", "songTitle"),
			Handler: h.getTrackInfo,
		},
		{
			Name:        "getRelatedTracks",
			Description: "Find tracks similar to a given song",
			Parameters: object(map[string]any{
				"artist":    str("The artist of the song"),
				"songTitle": str("The title of the song"),
				"limit":     limit("The number of similar tracks to return (default is 5)"),
			}, "artist", "songTitle"),
			Handler: h.getRelatedTracks,
		},
		{
			Name:        "getAlbumInfo",
			Description: "Get detailed information about an album",
			Parameters: object(map[string]any{
				"artist":     str("The artist of the album"),
				"albumTitle": str("The title of the album"),
			}, "artist", "albumTitle"),
			Handler: h.getAlbumInfo,
		},
		{
			Name:        "searchAlbum",
			Description: "Search for albums by title",
			Parameters: object(map[string]any{
				"albumTitle": str("The title of the album to search for"),
				"limit":      limit("The number of results to return (default is 5)"),
			}, "albumTitle"),
			Handler: h.searchAlbum,
		},
		{
			Name:        "getTagsTopTracks",
			Description: "Return the top tracks for a tag or genre",
			Parameters: object(map[string]any{
				"tag":   str("The tag or genre"),
				"limit": limit("The number of tracks to return (default is 5)"),
			}, "tag"),
			Handler: h.getTagsTopTracks,
		},
		{
			Name:        "getTagsTopArtists",
			Description: "Return the top artists for a tag or genre",
			Parameters: object(map[string]any{
				"tag":   str("The tag or genre"),
				"limit": limit("The number of artists to return (default is 5)"),
			}, "tag"),
			Handler: h.getTagsTopArtists,
		},
		{
			Name:        "getChartTopArtists",
			Description: "Search and return the name of the current top charting artists",
			Parameters: object(map[string]any{
				"limit": limit("The number of artists to return (default is 5)"),
			}),
			Handler: h.getChartTopArtists,
		},
		{
			Name:        "getChartTopTags",
			Description: "Search and return the name of the current top genres",
			Parameters: object(map[string]any{
				"limit": limit("The number of genres to return (default is 5)"),
			}),
			Handler: h.getChartTopTags,
		},
		{
			Name:        "getChartTopTracks",
			Description: "Search and return the name of the current top charting tracks",
			Parameters: object(map[string]any{
				"limit": limit("The number of tracks to return (default is 5)"),
			}),
			Handler: h.getChartTopTracks,
		},
		{
			Name:        "addToPlaylist",
			Description: "Add a song to the user's playlist",
			Parameters: object(map[string]any{
				"songTitle": str("The title of the song to add"),
				"artist":    str("The artist of the song"),
			}, "songTitle", "artist"),
			Handler: h.addToPlaylist,
		},
		{
			Name:        "deleteFromPlaylist",
			Description: "Remove a song from the user's playlist",
			Parameters: object(map[string]any{
				"songTitle": str("The title of the song to remove"),
				"artist":    str("The artist of the song"),
			}, "songTitle", "artist"),
			Handler: h.deleteFromPlaylist,
		},
		{
			Name:        "printPlaylist",
			Description: "Return the songs currently in the user's playlist",
			Parameters:  object(nil),
			Handler:     h.printPlaylist,
		},
		{
			Name:        "createPlaylist",
			Description: "Export the user's playlist to their Spotify account",
			Parameters:  object(nil),
			Handler:     h.createPlaylist,
		},
		{
			Name:        "buildSuggestedGenrePlaylist",
			Description: "Build a suggested playlist if the user provides a genre to build their playlist on",
			Parameters: object(map[string]any{
				"genre": map[string]any{"type": "string", "description": "The genre to base the suggested playlist on"},
				"limit": limit("The number of songs to include in the suggested playlist (default is 10)"),
			}),
			Handler: h.buildSuggestedGenrePlaylist,
		},
		{
			Name:        "buildDatabasePlaylist",
			Description: "Build a playlist from the user's preferred genres when they do not name a genre or ask to build on their current playlist",
			Parameters: object(map[string]any{
				"limit": limit("The number of songs to include in the suggested playlist (default is 10)"),
			}),
			Handler: h.buildDatabasePlaylist,
		},
		{
			Name:        "buildOnCurrentPlaylist",
			Description: "Build a playlist when the user did not provide a genre but wants to build on their current playlist",
			Parameters: object(map[string]any{
				"limit": limit("The number of songs to include in the suggested playlist (default is 10)"),
			}),
			Handler: h.buildOnCurrentPlaylist,
		},
		{
			Name:        "suggestForPlaylist",
			Description: "Suggest songs similar to the ones already in the user's playlist",
			Parameters: object(map[string]any{
				"limit": limit("The number of songs to suggest (default is 5)"),
			}),
			Handler: h.suggestForPlaylist,
		},
	}

	for _, cmd := range commands {
		if err := r.Register(cmd); err != nil {
			return nil, err
		}
	}
	return r, nil
}

type handlers struct {
	deps Dependencies
}

func decode(raw json.RawMessage, v any) error {
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrInvalidArgument, err)
	}
	return nil
}

// orDefault treats zero and negative limits as absent.
func orDefault(n, def int) int {
	if n <= 0 {
		return def
	}
	return n
}

func (h *handlers) searchTrack(ctx context.Context, _ Call, raw json.RawMessage) (any, error) {
	var args songArgs
	if err := decode(raw, &args); err != nil {
		return nil, err
	}
	return h.deps.Metadata.SearchTrack(ctx, args.SongTitle, orDefault(args.Limit, defaultLookupLimit))
}

func (h *handlers) getTrackInfo(ctx context.Context, _ Call, raw json.RawMessage) (any, error) {
	var args songArgs
	if err := decode(raw, &args); err != nil {
		return nil, err
	}
	return h.deps.Metadata.TrackInfo(ctx, args.Artist, args.SongTitle)
}

func (h *handlers) getRelatedTracks(ctx context.Context, _ Call, raw json.RawMessage) (any, error) {
	var args songArgs
	if err := decode(raw, &args); err != nil {
		return nil, err
	}
	return h.deps.Metadata.RelatedTracks(ctx, args.Artist, args.SongTitle, orDefault(args.Limit, defaultLookupLimit))
}

func (h *handlers) getAlbumInfo(ctx context.Context, _ Call, raw json.RawMessage) (any, error) {
	var args albumArgs
	if err := decode(raw, &args); err != nil {
		return nil, err
	}
	return h.deps.Metadata.AlbumInfo(ctx, args.Artist, args.AlbumTitle)
}

func (h *handlers) searchAlbum(ctx context.Context, _ Call, raw json.RawMessage) (any, error) {
	var args albumArgs
	if err := decode(raw, &args); err != nil {
		return nil, err
	}
	return h.deps.Metadata.SearchAlbum(ctx, args.AlbumTitle, orDefault(args.Limit, defaultLookupLimit))
}

func (h *handlers) getTagsTopTracks(ctx context.Context, _ Call, raw json.RawMessage) (any, error) {
	var args tagArgs
	if err := decode(raw, &args); err != nil {
		return nil, err
	}
	return h.deps.Metadata.TagTopTracks(ctx, args.Tag, orDefault(args.Limit, defaultLookupLimit))
}

func (h *handlers) getTagsTopArtists(ctx context.Context, _ Call, raw json.RawMessage) (any, error) {
	var args tagArgs
	if err := decode(raw, &args); err != nil {
		return nil, err
	}
	return h.deps.Metadata.TagTopArtists(ctx, args.Tag, orDefault(args.Limit, defaultLookupLimit))
}

func (h *handlers) getChartTopArtists(ctx context.Context, _ Call, raw json.RawMessage) (any, error) {
	var args tagArgs
	if err := decode(raw, &args); err != nil {
		return nil, err
	}
	return h.deps.Metadata.ChartTopArtists(ctx, orDefault(args.Limit, defaultLookupLimit))
}

func (h *handlers) getChartTopTags(ctx context.Context, _ Call, raw json.RawMessage) (any, error) {
	var args tagArgs
	if err := decode(raw, &args); err != nil {
		return nil, err
	}
	return h.deps.Metadata.ChartTopTags(ctx, orDefault(args.Limit, defaultLookupLimit))
}

func (h *handlers) getChartTopTracks(ctx context.Context, _ Call, raw json.RawMessage) (any, error) {
	var args tagArgs
	if err := decode(raw, &args); err != nil {
		return nil, err
	}
	return h.deps.Metadata.ChartTopTracks(ctx, orDefault(args.Limit, defaultLookupLimit))
}

// addToPlaylist stores the song as the user named it, with album and artwork from a lookup.
func (h *handlers) addToPlaylist(ctx context.Context, call Call, raw json.RawMessage) (any, error) {
	var args songArgs
	if err := decode(raw, &args); err != nil {
		return nil, err
	}

	exists, err := h.deps.Playlists.Exists(ctx, call.ConversationID, args.SongTitle, args.Artist)
	if err != nil {
		return nil, err
	}
	if exists {
		return Status{Status: "Song is already in the playlist."}, nil
	}

	info, err := h.deps.Metadata.TrackInfo(ctx, args.Artist, args.SongTitle)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return Status{Status: "Song not found.", Error: true}, nil
	}

	entry := &models.PlaylistEntry{
		ConversationID: call.ConversationID,
		Title:          strings.TrimSpace(args.SongTitle),
		Artist:         strings.TrimSpace(args.Artist),
		Album:          info.Album,
		ImageURL:       info.ImageURL,
	}
	if err := h.deps.Playlists.Add(ctx, entry); err != nil {
		return nil, err
	}
	return Status{Status: "Song added to playlist successfully."}, nil
}

func (h *handlers) deleteFromPlaylist(ctx context.Context, call Call, raw json.RawMessage) (any, error) {
	var args songArgs
	if err := decode(raw, &args); err != nil {
		return nil, err
	}

	removed, err := h.deps.Playlists.DeleteBySong(ctx, call.ConversationID, args.SongTitle, args.Artist)
	if err != nil {
		return nil, err
	}
	if removed == 0 {
		return Status{Status: "Song is not in playlist.", Error: true}, nil
	}
	return Status{Status: "Song removed from playlist."}, nil
}

func (h *handlers) printPlaylist(ctx context.Context, call Call, _ json.RawMessage) (any, error) {
	return h.deps.Playlists.List(ctx, call.ConversationID)
}

// createPlaylist reports expected export failures to the model instead of failing the turn.
func (h *handlers) createPlaylist(ctx context.Context, call Call, _ json.RawMessage) (any, error) {
	if h.deps.Exporter == nil {
		return ExportStatus{Status: "Spotify export is not configured.", Error: true}, nil
	}

	result, err := h.deps.Exporter.ExportPlaylist(ctx, call.UserID, call.ConversationID, nil)
	switch {
	case errors.Is(err, shared.ErrEmptyPlaylist):
		return ExportStatus{Status: "The playlist is empty. Add some songs before exporting.", Error: true}, nil
	case errors.Is(err, shared.ErrNoTracksFound):
		return ExportStatus{Status: "No tracks found on Spotify to add to the playlist.", Error: true}, nil
	case errors.Is(err, shared.ErrSpotifyNotConnected):
		return ExportStatus{Status: "Spotify is not connected. Connect your account first.", Error: true}, nil
	case errors.Is(err, shared.ErrRefreshFailed):
		return ExportStatus{Status: "The Spotify session expired. Reconnect your account.", Error: true}, nil
	case err != nil:
		return nil, err
	}
	return ExportStatus{Status: "Playlist created: " + result.URL, Export: result}, nil
}

func (h *handlers) buildSuggestedGenrePlaylist(ctx context.Context, _ Call, raw json.RawMessage) (any, error) {
	var args tagArgs
	if err := decode(raw, &args); err != nil {
		return nil, err
	}
	if strings.TrimSpace(args.Genre) == "" {
		return SuggestionResult{Songs: []models.Suggestion{}, Message: "No genre given."}, nil
	}
	return suggestionResult(h.deps.Suggestions.BuildGenrePlaylist(ctx, args.Genre, orDefault(args.Limit, defaultBuildLimit)))
}

func (h *handlers) buildDatabasePlaylist(ctx context.Context, call Call, raw json.RawMessage) (any, error) {
	var args tagArgs
	if err := decode(raw, &args); err != nil {
		return nil, err
	}
	return suggestionResult(h.deps.Suggestions.BuildFromPreferences(ctx, call.UserID, orDefault(args.Limit, defaultBuildLimit)))
}

func (h *handlers) buildOnCurrentPlaylist(ctx context.Context, call Call, raw json.RawMessage) (any, error) {
	var args tagArgs
	if err := decode(raw, &args); err != nil {
		return nil, err
	}
	return suggestionResult(h.deps.Suggestions.BuildOnCurrentPlaylist(ctx, call.ConversationID, orDefault(args.Limit, defaultBuildLimit)))
}

func (h *handlers) suggestForPlaylist(ctx context.Context, call Call, raw json.RawMessage) (any, error) {
	var args tagArgs
	if err := decode(raw, &args); err != nil {
		return nil, err
	}
	return suggestionResult(h.deps.Suggestions.SuggestForConversation(ctx, call.ConversationID, orDefault(args.Limit, defaultLookupLimit)))
}

// suggestionResult keeps partial builds: running out of candidates is not a failed turn.
func suggestionResult(songs []models.Suggestion, err error) (any, error) {
	var insufficient *shared.InsufficientCandidatesError
	if errors.As(err, &insufficient) {
		return SuggestionResult{Songs: songs, Message: insufficient.Error()}, nil
	}
	if err != nil {
		return nil, err
	}
	if songs == nil {
		songs = []models.Suggestion{}
	}
	return SuggestionResult{Songs: songs}, nil
}
