// Last.fm implementation of [MetadataProvider]
//
// API reference: https://www.last.fm/api
package services

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/beatbuddy/internal/models"
	"github.com/desertthunder/beatbuddy/internal/shared"
	"github.com/go-resty/resty/v2"
	"github.com/tidwall/gjson"
	"golang.org/x/time/rate"
)

const (
	lastFMBaseURL = "http://ws.audioscrobbler.com/2.0/"
	lastFMName    = "lastfm"

	// DefaultLimit is used for list lookups when the caller does not supply one.
	DefaultLimit = 5
)

// LastFMOptions configures a [LastFMService].
type LastFMOptions struct {
	APIKey            string
	BaseURL           string
	Timeout           time.Duration
	RetryCount        int
	RequestsPerSecond float64
	Logger            *log.Logger
}

// LastFMService queries the Last.fm web service and normalizes its responses into [models.Record].
//
// Every lookup is read-only, so transient failures are retried a bounded number of times.
type LastFMService struct {
	client  *resty.Client
	apiKey  string
	limiter *rate.Limiter
	logger  *log.Logger
}

// NewLastFMService creates a Last.fm client.
func NewLastFMService(opts LastFMOptions) (*LastFMService, error) {
	if opts.APIKey == "" {
		return nil, shared.ErrMissingCredentials
	}
	if opts.BaseURL == "" {
		opts.BaseURL = lastFMBaseURL
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.RetryCount < 0 {
		opts.RetryCount = 0
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}

	client := resty.New().
		SetBaseURL(opts.BaseURL).
		SetTimeout(opts.Timeout).
		SetRetryCount(opts.RetryCount).
		SetRetryWaitTime(250*time.Millisecond).
		SetRetryMaxWaitTime(2*time.Second).
		SetHeader("Accept", "application/json").
		SetHeader("User-Agent", "beatbuddy/1.0").
		AddRetryCondition(func(resp *resty.Response, err error) bool {
			if err != nil {
				return !errors.Is(err, context.Canceled)
			}
			return resp.StatusCode() == http.StatusTooManyRequests || resp.StatusCode() >= 500
		})

	limit := rate.Inf
	if opts.RequestsPerSecond > 0 {
		limit = rate.Limit(opts.RequestsPerSecond)
	}

	return &LastFMService{
		client:  client,
		apiKey:  opts.APIKey,
		limiter: rate.NewLimiter(limit, 1),
		logger:  shared.WithLogger(opts.Logger, "service", lastFMName),
	}, nil
}

func (s *LastFMService) Name() string {
	return "Last.fm"
}

// call performs one API method and returns the parsed body.
//
// Last.fm reports most failures as HTTP 200 with an "error" field; both forms become a [shared.ProviderError].
func (s *LastFMService) call(ctx context.Context, method string, params map[string]string) (gjson.Result, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return gjson.Result{}, shared.NewProviderError(lastFMName, 0, "rate limiter", err)
	}

	s.logger.Debug("calling last.fm", "method", method, "params", params)

	resp, err := s.client.R().
		SetContext(ctx).
		SetQueryParams(params).
		SetQueryParam("method", method).
		SetQueryParam("api_key", s.apiKey).
		SetQueryParam("format", "json").
		Get("")
	if err != nil {
		return gjson.Result{}, shared.NewProviderError(lastFMName, 0, method, err)
	}

	body := resp.Body()
	if !gjson.ValidBytes(body) {
		return gjson.Result{}, shared.NewProviderError(lastFMName, resp.StatusCode(), method+": malformed response", nil)
	}

	data := gjson.ParseBytes(body)
	if code := data.Get("error"); code.Exists() {
		return gjson.Result{}, shared.NewProviderError(lastFMName, resp.StatusCode(), data.Get("message").String(), nil)
	}
	if resp.IsError() {
		return gjson.Result{}, shared.NewProviderError(lastFMName, resp.StatusCode(), method, nil)
	}

	return data, nil
}

// list performs a list lookup. A zero limit returns an empty slice without calling the API.
func (s *LastFMService) list(ctx context.Context, method, path string, limit int, params map[string]string, normalize func(gjson.Result) models.Record) ([]models.Record, error) {
	if limit == 0 {
		return []models.Record{}, nil
	}
	if limit < 0 {
		limit = DefaultLimit
	}
	params["limit"] = strconv.Itoa(limit)

	data, err := s.call(ctx, method, params)
	if err != nil {
		return nil, err
	}

	records := []models.Record{}
	forEachItem(data.Get(path), func(item gjson.Result) {
		if len(records) < limit {
			records = append(records, normalize(item))
		}
	})
	return records, nil
}

// TrackInfo looks up a track, including its extralarge album artwork.
func (s *LastFMService) TrackInfo(ctx context.Context, artist, title string) (models.Record, error) {
	data, err := s.call(ctx, "track.getInfo", map[string]string{
		"artist":      artist,
		"track":       title,
		"autocorrect": "1",
	})
	if err != nil {
		return models.Record{}, err
	}
	return NormalizeTrack(data), nil
}

// TrackArtwork returns the extralarge album image of a track, or [models.NoImage].
func (s *LastFMService) TrackArtwork(ctx context.Context, artist, title string) (string, error) {
	rec, err := s.TrackInfo(ctx, artist, title)
	if err != nil {
		return models.NoImage, err
	}
	return rec.ImageURL, nil
}

// SearchTrack finds tracks by title.
func (s *LastFMService) SearchTrack(ctx context.Context, title string, limit int) ([]models.Record, error) {
	return s.list(ctx, "track.search", "results.trackmatches.track", limit,
		map[string]string{"track": title}, NormalizeTrack)
}

// RelatedTracks returns tracks similar to the given one.
func (s *LastFMService) RelatedTracks(ctx context.Context, artist, title string, limit int) ([]models.Record, error) {
	return s.list(ctx, "track.getSimilar", "similartracks.track", limit,
		map[string]string{"artist": artist, "track": title, "autocorrect": "1"}, NormalizeTrack)
}

// AlbumInfo looks up an album.
func (s *LastFMService) AlbumInfo(ctx context.Context, artist, album string) (models.Record, error) {
	data, err := s.call(ctx, "album.getInfo", map[string]string{
		"artist":      artist,
		"album":       album,
		"autocorrect": "1",
	})
	if err != nil {
		return models.Record{}, err
	}
	return NormalizeAlbum(data), nil
}

// SearchAlbum finds albums by title.
func (s *LastFMService) SearchAlbum(ctx context.Context, album string, limit int) ([]models.Record, error) {
	return s.list(ctx, "album.search", "results.albummatches.album", limit,
		map[string]string{"album": album}, NormalizeAlbum)
}

// TagTopTracks returns the most popular tracks for a tag (genre).
func (s *LastFMService) TagTopTracks(ctx context.Context, tag string, limit int) ([]models.Record, error) {
	return s.list(ctx, "tag.getTopTracks", "tracks.track", limit,
		map[string]string{"tag": tag}, NormalizeTrack)
}

// TagTopArtists returns the most popular artists for a tag (genre).
func (s *LastFMService) TagTopArtists(ctx context.Context, tag string, limit int) ([]models.Record, error) {
	return s.list(ctx, "tag.getTopArtists", "topartists.artist", limit,
		map[string]string{"tag": tag}, NormalizeArtist)
}

// ChartTopArtists returns the global artist chart.
func (s *LastFMService) ChartTopArtists(ctx context.Context, limit int) ([]models.Record, error) {
	return s.list(ctx, "chart.getTopArtists", "artists.artist", limit, map[string]string{}, NormalizeArtist)
}

// ChartTopTags returns the names of the most used tags.
func (s *LastFMService) ChartTopTags(ctx context.Context, limit int) ([]string, error) {
	records, err := s.list(ctx, "chart.getTopTags", "tags.tag", limit, map[string]string{}, normalizeTag)
	if err != nil {
		return nil, err
	}

	names := make([]string, len(records))
	for i, r := range records {
		names[i] = r.Title
	}
	return names, nil
}

// ChartTopTracks returns the global track chart.
func (s *LastFMService) ChartTopTracks(ctx context.Context, limit int) ([]models.Record, error) {
	return s.ChartTopTracksPage(ctx, limit, 1)
}

// ChartTopTracksPage returns one page of the global track chart.
func (s *LastFMService) ChartTopTracksPage(ctx context.Context, limit, page int) ([]models.Record, error) {
	if page < 1 {
		page = 1
	}
	return s.list(ctx, "chart.getTopTracks", "tracks.track", limit,
		map[string]string{"page": strconv.Itoa(page)}, NormalizeTrack)
}
