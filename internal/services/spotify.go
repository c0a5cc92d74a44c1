// Spotify Web API client used for OAuth and playlist export
//
// Spotify API response types based on https://developer.spotify.com/documentation/web-api/reference/
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/desertthunder/beatbuddy/internal/shared"
	"github.com/samber/lo"
	"golang.org/x/oauth2"
)

const (
	spotifyAuthURL  = "https://accounts.spotify.com/authorize"
	spotifyTokenURL = "https://accounts.spotify.com/api/token"
	spotifyBaseURL  = "https://api.spotify.com/v1"
	spotifyName     = "spotify"

	// spotifyMaxBatch is the most URIs the add-items endpoint accepts per request.
	spotifyMaxBatch = 100
)

// SpotifyScopes are the permissions requested when a user connects their account.
var SpotifyScopes = []string{"playlist-modify-public", "playlist-modify-private"}

// SpotifyUser represents a Spotify user profile.
type SpotifyUser struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
}

type externalURLs struct {
	Spotify string `json:"spotify"`
}

// SpotifyArtist represents a Spotify artist.
type SpotifyArtist struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// SpotifyTrack represents a Spotify track.
type SpotifyTrack struct {
	ID      string          `json:"id"`
	Name    string          `json:"name"`
	Artists []SpotifyArtist `json:"artists"`
	URI     string          `json:"uri"`
}

// SpotifyPlaylist represents a Spotify playlist.
type SpotifyPlaylist struct {
	ID           string       `json:"id"`
	Name         string       `json:"name"`
	Description  string       `json:"description"`
	Public       bool         `json:"public"`
	URI          string       `json:"uri"`
	ExternalURLs externalURLs `json:"external_urls"`
}

type searchResponse struct {
	Tracks struct {
		Items []SpotifyTrack `json:"items"`
	} `json:"tracks"`
}

// SpotifyOptions configures a [SpotifyService].
type SpotifyOptions struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string
	AuthURL      string
	TokenURL     string
	APIBaseURL   string
	Timeout      time.Duration
}

// SpotifyService holds the OAuth configuration and creates per-user API clients.
type SpotifyService struct {
	config  *oauth2.Config
	baseURL string
	timeout time.Duration
}

// NewSpotifyService creates a new Spotify service with the given OAuth2 credentials.
func NewSpotifyService(opts SpotifyOptions) (*SpotifyService, error) {
	if opts.ClientID == "" {
		return nil, fmt.Errorf("%w: missing spotify client_id", shared.ErrMissingCredentials)
	}
	if opts.ClientSecret == "" {
		return nil, fmt.Errorf("%w: missing spotify client_secret", shared.ErrMissingCredentials)
	}

	opts.AuthURL = lo.Ternary(opts.AuthURL == "", spotifyAuthURL, opts.AuthURL)
	opts.TokenURL = lo.Ternary(opts.TokenURL == "", spotifyTokenURL, opts.TokenURL)
	opts.APIBaseURL = lo.Ternary(opts.APIBaseURL == "", spotifyBaseURL, opts.APIBaseURL)
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}

	config := &oauth2.Config{
		ClientID:     opts.ClientID,
		ClientSecret: opts.ClientSecret,
		RedirectURL:  opts.RedirectURI,
		Scopes:       SpotifyScopes,
		Endpoint: oauth2.Endpoint{
			AuthURL:   opts.AuthURL,
			TokenURL:  opts.TokenURL,
			AuthStyle: oauth2.AuthStyleInHeader,
		},
	}

	return &SpotifyService{
		config:  config,
		baseURL: strings.TrimRight(opts.APIBaseURL, "/"),
		timeout: opts.Timeout,
	}, nil
}

func (s *SpotifyService) Name() string {
	return "Spotify"
}

// AuthURL returns the authorization URL the user is redirected to.
func (s *SpotifyService) AuthURL(state string) string {
	return s.config.AuthCodeURL(state, oauth2.AccessTypeOffline)
}

// Exchange trades an authorization code for a token pair.
func (s *SpotifyService) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	token, err := s.config.Exchange(ctx, code)
	if err != nil {
		return nil, shared.NewProviderError(spotifyName, 0, "failed to exchange auth code", err)
	}
	return token, nil
}

// Client returns an API client for a stored token.
//
// The token is resolved eagerly: an expired access token is refreshed before Client returns,
// and onRefresh receives the new token so the caller can persist it. Refresh failures
// wrap [shared.ErrRefreshFailed].
func (s *SpotifyService) Client(ctx context.Context, token *oauth2.Token, onRefresh func(*oauth2.Token)) (*SpotifyClient, error) {
	if token == nil || token.AccessToken == "" {
		return nil, shared.ErrSpotifyNotConnected
	}

	source := &refreshableTokenSource{
		source:   s.config.TokenSource(ctx, token),
		callback: onRefresh,
		last:     token.AccessToken,
	}

	if _, err := source.Token(); err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrRefreshFailed, shared.NewProviderError(spotifyName, 0, "token refresh", err))
	}

	httpClient := oauth2.NewClient(ctx, source)
	httpClient.Timeout = s.timeout

	return &SpotifyClient{httpClient: httpClient, baseURL: s.baseURL}, nil
}

// refreshableTokenSource wraps an [oauth2.TokenSource] and reports new tokens to callback.
type refreshableTokenSource struct {
	mu       sync.Mutex
	source   oauth2.TokenSource
	callback func(*oauth2.Token)
	last     string
}

func (r *refreshableTokenSource) Token() (*oauth2.Token, error) {
	token, err := r.source.Token()
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	changed := token.AccessToken != r.last
	r.last = token.AccessToken
	r.mu.Unlock()

	if changed && r.callback != nil {
		r.callback(token)
	}
	return token, nil
}

// SpotifyClient performs authenticated Web API calls for one user.
type SpotifyClient struct {
	httpClient *http.Client
	baseURL    string
}

// doRequest performs an authenticated request, JSON-encoding body and decoding into result.
func (c *SpotifyClient) doRequest(ctx context.Context, method, endpoint string, body, result any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return shared.NewProviderError(spotifyName, 0, method+" "+endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr struct {
			Error struct {
				Message string `json:"message"`
			} `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&apiErr)
		return shared.NewProviderError(spotifyName, resp.StatusCode, apiErr.Error.Message, nil)
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return shared.NewProviderError(spotifyName, resp.StatusCode, "failed to decode response", err)
		}
	}
	return nil
}

// CurrentUser retrieves the profile of the token's owner.
func (c *SpotifyClient) CurrentUser(ctx context.Context) (*SpotifyUser, error) {
	var user SpotifyUser
	if err := c.doRequest(ctx, http.MethodGet, "/me", nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// CreatePlaylist creates a playlist owned by userID.
func (c *SpotifyClient) CreatePlaylist(ctx context.Context, userID, name, description string, public bool) (*SpotifyPlaylist, error) {
	body := map[string]any{
		"name":        name,
		"description": description,
		"public":      public,
	}

	var playlist SpotifyPlaylist
	endpoint := fmt.Sprintf("/users/%s/playlists", url.PathEscape(userID))
	if err := c.doRequest(ctx, http.MethodPost, endpoint, body, &playlist); err != nil {
		return nil, err
	}
	return &playlist, nil
}

// SearchTrack searches the catalog with a Spotify query string such as "track:X artist:Y".
func (c *SpotifyClient) SearchTrack(ctx context.Context, query string, limit int) ([]SpotifyTrack, error) {
	if limit <= 0 {
		limit = 1
	}

	params := url.Values{}
	params.Set("q", query)
	params.Set("type", "track")
	params.Set("limit", fmt.Sprint(limit))

	var response searchResponse
	if err := c.doRequest(ctx, http.MethodGet, "/search?"+params.Encode(), nil, &response); err != nil {
		return nil, err
	}
	return response.Tracks.Items, nil
}

// AddTracks appends track URIs to a playlist, batching at the API's per-request maximum.
func (c *SpotifyClient) AddTracks(ctx context.Context, playlistID string, uris []string) error {
	endpoint := fmt.Sprintf("/playlists/%s/tracks", url.PathEscape(playlistID))
	for _, batch := range lo.Chunk(uris, spotifyMaxBatch) {
		if err := c.doRequest(ctx, http.MethodPost, endpoint, map[string]any{"uris": batch}, nil); err != nil {
			return err
		}
	}
	return nil
}
