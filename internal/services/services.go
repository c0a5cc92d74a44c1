// package services defines interfaces for the third-party HTTP APIs BeatBuddy talks to
//
// Last.fm (metadata), OpenAI (chat completions), Spotify (OAuth & export)
package services

import (
	"context"

	"github.com/desertthunder/beatbuddy/internal/models"
)

// MetadataProvider is the music metadata source behind the chat functions and suggestion builders.
//
// List lookups treat a negative limit as [DefaultLimit] and a zero limit as "return nothing".
type MetadataProvider interface {
	// TrackInfo looks up one track by artist and title.
	TrackInfo(ctx context.Context, artist, title string) (models.Record, error)

	// TrackArtwork returns the extralarge album image URL of a track.
	TrackArtwork(ctx context.Context, artist, title string) (string, error)

	// SearchTrack finds tracks whose title matches.
	SearchTrack(ctx context.Context, title string, limit int) ([]models.Record, error)

	// RelatedTracks returns tracks similar to the given one.
	RelatedTracks(ctx context.Context, artist, title string, limit int) ([]models.Record, error)

	// AlbumInfo looks up one album by artist and name.
	AlbumInfo(ctx context.Context, artist, album string) (models.Record, error)

	// SearchAlbum finds albums whose name matches.
	SearchAlbum(ctx context.Context, album string, limit int) ([]models.Record, error)

	// TagTopTracks returns the top tracks for a tag.
	TagTopTracks(ctx context.Context, tag string, limit int) ([]models.Record, error)

	// TagTopArtists returns the top artists for a tag.
	TagTopArtists(ctx context.Context, tag string, limit int) ([]models.Record, error)

	// ChartTopArtists returns the global artist chart.
	ChartTopArtists(ctx context.Context, limit int) ([]models.Record, error)

	// ChartTopTags returns the global tag chart as names.
	ChartTopTags(ctx context.Context, limit int) ([]string, error)

	// ChartTopTracks returns the global track chart.
	ChartTopTracks(ctx context.Context, limit int) ([]models.Record, error)

	// ChartTopTracksPage returns one page of the global track chart.
	ChartTopTracksPage(ctx context.Context, limit, page int) ([]models.Record, error)

	// Name returns the display name of the provider (e.g., "Last.fm")
	Name() string
}

var (
	_ MetadataProvider = (*LastFMService)(nil)
	_ ChatModel        = (*OpenAIService)(nil)
)
