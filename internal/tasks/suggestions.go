package tasks

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/beatbuddy/internal/models"
	"github.com/desertthunder/beatbuddy/internal/services"
	"github.com/desertthunder/beatbuddy/internal/shared"
)

const (
	// DefaultSuggestionCount is used when a caller passes a negative count.
	DefaultSuggestionCount = 10

	// DefaultAttemptsPerSong bounds the random walk: a build of n songs gives up after n*attempts picks.
	DefaultAttemptsPerSong = 10
)

// SuggestionOptions configures a [SuggestionEngine].
type SuggestionOptions struct {
	AttemptsPerSong int
	Rand            *rand.Rand
	Logger          *log.Logger
}

// SuggestionEngine builds candidate song lists from a genre seed or an existing playlist.
//
// Every list it returns is free of case-insensitive (title, artist) duplicates.
type SuggestionEngine struct {
	metadata  services.MetadataProvider
	playlists PlaylistLister
	genres    GenreLister
	attempts  int
	rand      *rand.Rand
	logger    *log.Logger
}

// NewSuggestionEngine creates a suggestion engine.
func NewSuggestionEngine(metadata services.MetadataProvider, playlists PlaylistLister, genres GenreLister, opts SuggestionOptions) *SuggestionEngine {
	if opts.AttemptsPerSong <= 0 {
		opts.AttemptsPerSong = DefaultAttemptsPerSong
	}
	if opts.Rand == nil {
		opts.Rand = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}

	return &SuggestionEngine{
		metadata:  metadata,
		playlists: playlists,
		genres:    genres,
		attempts:  opts.AttemptsPerSong,
		rand:      opts.Rand,
		logger:    shared.WithLogger(opts.Logger, "component", "suggestions"),
	}
}

func suggestionCount(n int) int {
	if n < 0 {
		return DefaultSuggestionCount
	}
	return n
}

// BuildGenrePlaylist collects n unique songs for a genre.
//
// Each pick takes a random top artist of the genre, asks for tracks related to that
// artist (the artist name doubles as the seed title) and keeps one at random.
// When the attempt budget runs out the partial list is returned together with an
// [shared.InsufficientCandidatesError].
func (e *SuggestionEngine) BuildGenrePlaylist(ctx context.Context, genre string, n int) ([]models.Suggestion, error) {
	genre = strings.TrimSpace(genre)
	if genre == "" {
		return nil, fmt.Errorf("%w: genre", shared.ErrMissingArgument)
	}
	return e.fillFromGenre(ctx, genre, suggestionCount(n), seenSet{})
}

func (e *SuggestionEngine) fillFromGenre(ctx context.Context, genre string, n int, seen seenSet) ([]models.Suggestion, error) {
	songs := []models.Suggestion{}
	if n == 0 {
		return songs, nil
	}

	artists, err := e.metadata.TagTopArtists(ctx, genre, services.DefaultLimit)
	if err != nil {
		return songs, err
	}
	if len(artists) == 0 {
		return songs, &shared.InsufficientCandidatesError{Genre: genre, Wanted: n}
	}

	budget := n * e.attempts
	for attempt := 0; len(songs) < n && attempt < budget; attempt++ {
		if err := ctx.Err(); err != nil {
			return songs, err
		}

		artist := artists[e.rand.IntN(len(artists))].Artist
		related, err := e.metadata.RelatedTracks(ctx, artist, artist, services.DefaultLimit)
		if err != nil {
			return songs, err
		}
		if len(related) == 0 {
			continue
		}

		track := related[e.rand.IntN(len(related))]
		if track.Title == models.Unknown || track.Artist == models.Unknown {
			continue
		}
		if !seen.add(track.Title, track.Artist) {
			continue
		}
		songs = append(songs, models.Suggestion{Title: track.Title, Artist: track.Artist, Genre: genre})
	}

	if len(songs) < n {
		e.logger.Warn("suggestion budget exhausted", "genre", genre, "wanted", n, "found", len(songs))
		return songs, &shared.InsufficientCandidatesError{Genre: genre, Wanted: n, Found: len(songs)}
	}
	return songs, nil
}

// BuildFromPreferences builds a genre playlist from the user's favourite genre.
// A user without preferences gets an empty list.
func (e *SuggestionEngine) BuildFromPreferences(ctx context.Context, userID int64, limit int) ([]models.Suggestion, error) {
	genres, err := e.genres.Genres(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(genres) == 0 {
		e.logger.Debug("no preferred genres", "user", userID)
		return []models.Suggestion{}, nil
	}
	return e.BuildGenrePlaylist(ctx, genres[0], limit)
}

// BuildOnCurrentPlaylist suggests one song per playlist entry, seeded by the entry's first tag.
//
// Entries without tags, or whose lookup fails, are skipped. Songs already in the playlist
// are never suggested.
func (e *SuggestionEngine) BuildOnCurrentPlaylist(ctx context.Context, conversationID int64, limit int) ([]models.Suggestion, error) {
	limit = suggestionCount(limit)

	entries, err := e.playlists.List(ctx, conversationID)
	if err != nil {
		return nil, err
	}

	seen := seenFromPlaylist(entries)
	songs := []models.Suggestion{}

	for _, entry := range entries {
		if len(songs) >= limit {
			break
		}

		info, err := e.metadata.TrackInfo(ctx, entry.Artist, entry.Title)
		if err != nil {
			if ctx.Err() != nil {
				return songs, ctx.Err()
			}
			e.logger.Warn("skipping entry, lookup failed", "title", entry.Title, "artist", entry.Artist, "error", err)
			continue
		}
		if len(info.TopTags) == 0 {
			continue
		}

		picked, err := e.fillFromGenre(ctx, info.TopTags[0], 1, seen)
		var insufficient *shared.InsufficientCandidatesError
		switch {
		case errors.As(err, &insufficient):
			continue
		case err != nil:
			return songs, err
		}
		songs = append(songs, picked...)
	}

	return songs, nil
}

// SuggestForConversation walks related tracks of each playlist entry and returns the
// first n that are neither in the playlist nor already collected.
func (e *SuggestionEngine) SuggestForConversation(ctx context.Context, conversationID int64, n int) ([]models.Suggestion, error) {
	n = suggestionCount(n)
	songs := []models.Suggestion{}
	if n == 0 {
		return songs, nil
	}

	entries, err := e.playlists.List(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	seen := seenFromPlaylist(entries)

	for _, entry := range entries {
		related, err := e.metadata.RelatedTracks(ctx, entry.Artist, entry.Title, max(n, services.DefaultLimit))
		if err != nil {
			return songs, err
		}

		for _, track := range related {
			if track.Title == models.Unknown || !seen.add(track.Title, track.Artist) {
				continue
			}
			songs = append(songs, models.Suggestion{Title: track.Title, Artist: track.Artist})
			if len(songs) == n {
				return songs, nil
			}
		}
	}

	return songs, nil
}
