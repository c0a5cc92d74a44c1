package chat

import (
	"context"
	"testing"

	"github.com/desertthunder/beatbuddy/internal/models"
	"github.com/desertthunder/beatbuddy/internal/shared"
	th "github.com/desertthunder/beatbuddy/internal/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookupCommands(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.metadata.Searches = []models.Record{th.Track("Creep", "Radiohead"), th.Track("Creep", "TLC")}
	f.metadata.Tracks[shared.NormalizeTrackKey("Creep", "Radiohead")] = th.Track("Creep", "Radiohead", "alternative")

	t.Run("searchTrack defaults the limit", func(t *testing.T) {
		result, err := f.registry.Dispatch(ctx, f.call(), "searchTrack", `{"songTitle":"Creep"}`)
		require.NoError(t, err)
		assert.Len(t, result, 2)
		assert.Contains(t, f.metadata.Calls, "SearchTrack:Creep,5")
	})

	t.Run("zero limit uses the default", func(t *testing.T) {
		_, err := f.registry.Dispatch(ctx, f.call(), "getChartTopTracks", `{"limit":0}`)
		require.NoError(t, err)
		assert.Contains(t, f.metadata.Calls, "ChartTopTracksPage:5,1")
	})

	t.Run("getTrackInfo", func(t *testing.T) {
		result, err := f.registry.Dispatch(ctx, f.call(), "getTrackInfo", `{"artist":"Radiohead","songTitle":"Creep"}`)
		require.NoError(t, err)
		rec := result.(models.Record)
		assert.Equal(t, []string{"alternative"}, rec.TopTags)
	})

	t.Run("provider failures fail the call", func(t *testing.T) {
		f.metadata.Err = shared.NewProviderError("lastfm", 500, "boom", nil)
		defer func() { f.metadata.Err = nil }()

		_, err := f.registry.Dispatch(ctx, f.call(), "getChartTopTags", `{}`)
		var providerErr *shared.ProviderError
		assert.ErrorAs(t, err, &providerErr)
	})
}

func TestPlaylistCommands(t *testing.T) {
	ctx := context.Background()

	t.Run("addToPlaylist stores the song with looked up details", func(t *testing.T) {
		f := newFixture(t)
		rec := th.Track("Creep", "Radiohead")
		rec.Album = "Pablo Honey"
		rec.ImageURL = "https://img.example/pablo.png"
		f.metadata.Tracks[shared.NormalizeTrackKey("creep", "radiohead")] = rec

		result, err := f.registry.Dispatch(ctx, f.call(), "addToPlaylist", `{"songTitle":"creep","artist":"radiohead"}`)
		require.NoError(t, err)
		assert.Equal(t, Status{Status: "Song added to playlist successfully."}, result)

		entries, err := f.store.Playlists.List(ctx, f.conv.ID)
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, "creep", entries[0].Title, "casing is preserved as submitted")
		assert.Equal(t, "Pablo Honey", entries[0].Album)
		assert.Equal(t, "https://img.example/pablo.png", entries[0].ImageURL)
	})

	t.Run("addToPlaylist rejects case-insensitive duplicates", func(t *testing.T) {
		f := newFixture(t)
		f.addEntry(t, "Creep", "Radiohead")

		result, err := f.registry.Dispatch(ctx, f.call(), "addToPlaylist", `{"songTitle":"CREEP","artist":"radiohead"}`)
		require.NoError(t, err)
		assert.Equal(t, Status{Status: "Song is already in the playlist."}, result)
		assert.Zero(t, f.metadata.CallCount("TrackInfo"))

		count, err := f.store.Playlists.Count(ctx, f.conv.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, count)
	})

	t.Run("addToPlaylist reports unknown songs", func(t *testing.T) {
		f := newFixture(t)

		result, err := f.registry.Dispatch(ctx, f.call(), "addToPlaylist", `{"songTitle":"Nope","artist":"Nobody"}`)
		require.NoError(t, err)
		assert.Equal(t, Status{Status: "Song not found.", Error: true}, result)
	})

	t.Run("deleteFromPlaylist", func(t *testing.T) {
		f := newFixture(t)
		f.addEntry(t, "Creep", "Radiohead")

		result, err := f.registry.Dispatch(ctx, f.call(), "deleteFromPlaylist", `{"songTitle":"creep","artist":"RADIOHEAD"}`)
		require.NoError(t, err)
		assert.Equal(t, Status{Status: "Song removed from playlist."}, result)

		result, err = f.registry.Dispatch(ctx, f.call(), "deleteFromPlaylist", `{"songTitle":"creep","artist":"RADIOHEAD"}`)
		require.NoError(t, err)
		assert.Equal(t, Status{Status: "Song is not in playlist.", Error: true}, result)
	})

	t.Run("printPlaylist", func(t *testing.T) {
		f := newFixture(t)
		f.addEntry(t, "Creep", "Radiohead")
		f.addEntry(t, "Karma Police", "Radiohead")

		result, err := f.registry.Dispatch(ctx, f.call(), "printPlaylist", `{}`)
		require.NoError(t, err)
		entries := result.([]models.PlaylistEntry)
		require.Len(t, entries, 2)
		assert.Equal(t, "Karma Police", entries[1].Title)
	})
}

func TestCreatePlaylistCommand(t *testing.T) {
	ctx := context.Background()

	t.Run("success", func(t *testing.T) {
		f := newFixture(t)
		f.exporter.result = &models.ExportResult{URL: "https://open.spotify.com/playlist/abc", Added: 2}

		result, err := f.registry.Dispatch(ctx, f.call(), "createPlaylist", `{}`)
		require.NoError(t, err)
		status := result.(ExportStatus)
		assert.False(t, status.Error)
		assert.Contains(t, status.Status, "https://open.spotify.com/playlist/abc")
		assert.Equal(t, 1, f.exporter.calls)
	})

	tests := []struct {
		name string
		err  error
		want string
	}{
		{"empty playlist", shared.ErrEmptyPlaylist, "The playlist is empty. Add some songs before exporting."},
		{"no matches", shared.ErrNoTracksFound, "No tracks found on Spotify to add to the playlist."},
		{"not connected", shared.ErrSpotifyNotConnected, "Spotify is not connected. Connect your account first."},
		{"refresh failed", shared.ErrRefreshFailed, "The Spotify session expired. Reconnect your account."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.exporter.err = tt.err

			result, err := f.registry.Dispatch(ctx, f.call(), "createPlaylist", `{}`)
			require.NoError(t, err)
			assert.Equal(t, ExportStatus{Status: tt.want, Error: true}, result)
		})
	}

	t.Run("upstream failure fails the call", func(t *testing.T) {
		f := newFixture(t)
		f.exporter.err = shared.NewProviderError("spotify", 502, "bad gateway", nil)

		_, err := f.registry.Dispatch(ctx, f.call(), "createPlaylist", `{}`)
		assert.Error(t, err)
	})

	t.Run("not configured", func(t *testing.T) {
		r, err := NewCommandRegistry(Dependencies{Metadata: &th.MockMetadata{}})
		require.NoError(t, err)

		result, err := r.Dispatch(ctx, Call{ConversationID: 1, UserID: 1}, "createPlaylist", `{}`)
		require.NoError(t, err)
		assert.True(t, result.(ExportStatus).Error)
	})
}

func TestSuggestionCommands(t *testing.T) {
	ctx := context.Background()

	seedRock := func(f *fixture) {
		f.metadata.TagArtists["rock"] = []models.Record{th.Artist("Queen")}
		f.metadata.Related[shared.NormalizeTrackKey("Queen", "Queen")] = []models.Record{
			th.Track("Bohemian Rhapsody", "Queen"),
		}
	}

	t.Run("buildSuggestedGenrePlaylist returns partial results", func(t *testing.T) {
		f := newFixture(t)
		seedRock(f)

		result, err := f.registry.Dispatch(ctx, f.call(), "buildSuggestedGenrePlaylist", `{"genre":"rock","limit":3}`)
		require.NoError(t, err)
		res := result.(SuggestionResult)
		require.Len(t, res.Songs, 1)
		assert.Equal(t, "Bohemian Rhapsody", res.Songs[0].Title)
		assert.NotEmpty(t, res.Message)
	})

	t.Run("buildSuggestedGenrePlaylist without a genre", func(t *testing.T) {
		f := newFixture(t)

		result, err := f.registry.Dispatch(ctx, f.call(), "buildSuggestedGenrePlaylist", `{}`)
		require.NoError(t, err)
		assert.Empty(t, result.(SuggestionResult).Songs)
		assert.Zero(t, f.metadata.CallCount("TagTopArtists"))
	})

	t.Run("buildDatabasePlaylist uses the preferred genre", func(t *testing.T) {
		f := newFixture(t)
		seedRock(f)
		require.NoError(t, f.store.Users.SetGenres(ctx, f.user.ID, []string{"rock", "jazz"}))

		result, err := f.registry.Dispatch(ctx, f.call(), "buildDatabasePlaylist", `{"limit":1}`)
		require.NoError(t, err)
		res := result.(SuggestionResult)
		require.Len(t, res.Songs, 1)
		assert.Equal(t, "rock", res.Songs[0].Genre)
	})

	t.Run("buildDatabasePlaylist without preferences", func(t *testing.T) {
		f := newFixture(t)

		result, err := f.registry.Dispatch(ctx, f.call(), "buildDatabasePlaylist", `{}`)
		require.NoError(t, err)
		assert.Equal(t, SuggestionResult{Songs: []models.Suggestion{}}, result)
	})

	t.Run("suggestForPlaylist skips songs already in the playlist", func(t *testing.T) {
		f := newFixture(t)
		f.addEntry(t, "Creep", "Radiohead")
		f.addEntry(t, "Karma Police", "Radiohead")
		f.metadata.Related[shared.NormalizeTrackKey("Creep", "Radiohead")] = []models.Record{
			th.Track("karma police", "radiohead"),
			th.Track("No Surprises", "Radiohead"),
		}

		result, err := f.registry.Dispatch(ctx, f.call(), "suggestForPlaylist", `{"limit":5}`)
		require.NoError(t, err)
		res := result.(SuggestionResult)
		require.Len(t, res.Songs, 1)
		assert.Equal(t, "No Surprises", res.Songs[0].Title)
	})
}
