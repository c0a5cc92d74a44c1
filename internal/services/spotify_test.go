package services

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/desertthunder/beatbuddy/internal/shared"
	"golang.org/x/oauth2"
)

func newTestSpotify(t *testing.T, handler http.Handler) *SpotifyService {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	srv, err := NewSpotifyService(SpotifyOptions{
		ClientID:     "test_client_id",
		ClientSecret: "test_client_secret",
		RedirectURI:  "http://127.0.0.1:3000/auth/spotify/callback",
		AuthURL:      server.URL + "/authorize",
		TokenURL:     server.URL + "/api/token",
		APIBaseURL:   server.URL + "/v1/",
		Timeout:      2 * time.Second,
	})
	if err != nil {
		t.Fatalf("failed to create service: %v", err)
	}
	return srv
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestSpotifyService(t *testing.T) {
	t.Run("NewSpotifyService", func(t *testing.T) {
		t.Run("With Valid Credentials", func(t *testing.T) {
			srv, err := NewSpotifyService(SpotifyOptions{ClientID: "id", ClientSecret: "secret"})
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if srv.Name() != "Spotify" {
				t.Errorf("expected service name 'Spotify', got %s", srv.Name())
			}
			if srv.baseURL != spotifyBaseURL {
				t.Errorf("expected default base URL, got %s", srv.baseURL)
			}
		})

		t.Run("Missing Client ID", func(t *testing.T) {
			_, err := NewSpotifyService(SpotifyOptions{ClientSecret: "secret"})
			if !errors.Is(err, shared.ErrMissingCredentials) {
				t.Errorf("expected ErrMissingCredentials, got %v", err)
			}
		})

		t.Run("Missing Client Secret", func(t *testing.T) {
			_, err := NewSpotifyService(SpotifyOptions{ClientID: "id"})
			if !errors.Is(err, shared.ErrMissingCredentials) {
				t.Errorf("expected ErrMissingCredentials, got %v", err)
			}
		})
	})

	t.Run("AuthURL", func(t *testing.T) {
		srv, err := NewSpotifyService(SpotifyOptions{ClientID: "test_client_id", ClientSecret: "secret"})
		if err != nil {
			t.Fatalf("failed to create service: %v", err)
		}

		authURL := srv.AuthURL("test_state")
		for _, want := range []string{"accounts.spotify.com", "test_client_id", "test_state", "playlist-modify-private"} {
			if !strings.Contains(authURL, want) {
				t.Errorf("auth URL %q should contain %q", authURL, want)
			}
		}
	})

	t.Run("Exchange", func(t *testing.T) {
		mux := http.NewServeMux()
		mux.HandleFunc("/api/token", func(w http.ResponseWriter, r *http.Request) {
			_ = r.ParseForm()
			if r.Form.Get("code") != "good" {
				writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid_grant"})
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{
				"access_token":  "access",
				"refresh_token": "refresh",
				"token_type":    "Bearer",
				"expires_in":    3600,
			})
		})
		srv := newTestSpotify(t, mux)

		t.Run("valid code", func(t *testing.T) {
			token, err := srv.Exchange(context.Background(), "good")
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if token.AccessToken != "access" || token.RefreshToken != "refresh" {
				t.Errorf("unexpected token: %+v", token)
			}
		})

		t.Run("invalid code", func(t *testing.T) {
			_, err := srv.Exchange(context.Background(), "bad")
			var perr *shared.ProviderError
			if !errors.As(err, &perr) {
				t.Fatalf("expected ProviderError, got %v", err)
			}
		})
	})

	t.Run("Client", func(t *testing.T) {
		t.Run("not connected", func(t *testing.T) {
			srv := newTestSpotify(t, http.NewServeMux())
			_, err := srv.Client(context.Background(), nil, nil)
			if !errors.Is(err, shared.ErrSpotifyNotConnected) {
				t.Errorf("expected ErrSpotifyNotConnected, got %v", err)
			}
		})

		t.Run("refreshes expired token and reports it", func(t *testing.T) {
			mux := http.NewServeMux()
			mux.HandleFunc("/api/token", func(w http.ResponseWriter, r *http.Request) {
				_ = r.ParseForm()
				if r.Form.Get("grant_type") != "refresh_token" {
					t.Errorf("expected refresh grant, got %q", r.Form.Get("grant_type"))
				}
				writeJSON(w, http.StatusOK, map[string]any{
					"access_token": "fresh",
					"token_type":   "Bearer",
					"expires_in":   3600,
				})
			})
			mux.HandleFunc("/v1/me", func(w http.ResponseWriter, r *http.Request) {
				if got := r.Header.Get("Authorization"); got != "Bearer fresh" {
					t.Errorf("expected refreshed bearer token, got %q", got)
				}
				writeJSON(w, http.StatusOK, map[string]string{"id": "user-1", "display_name": "Test"})
			})
			srv := newTestSpotify(t, mux)

			var refreshed *oauth2.Token
			stale := &oauth2.Token{
				AccessToken:  "stale",
				RefreshToken: "refresh",
				Expiry:       time.Now().Add(-time.Hour),
			}
			client, err := srv.Client(context.Background(), stale, func(tok *oauth2.Token) { refreshed = tok })
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if refreshed == nil || refreshed.AccessToken != "fresh" {
				t.Fatalf("expected refresh callback with new token, got %+v", refreshed)
			}

			user, err := client.CurrentUser(context.Background())
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if user.ID != "user-1" {
				t.Errorf("expected user-1, got %s", user.ID)
			}
		})

		t.Run("refresh failure", func(t *testing.T) {
			mux := http.NewServeMux()
			mux.HandleFunc("/api/token", func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid_grant"})
			})
			srv := newTestSpotify(t, mux)

			stale := &oauth2.Token{AccessToken: "stale", RefreshToken: "revoked", Expiry: time.Now().Add(-time.Hour)}
			_, err := srv.Client(context.Background(), stale, nil)
			if !errors.Is(err, shared.ErrRefreshFailed) {
				t.Errorf("expected ErrRefreshFailed, got %v", err)
			}
		})
	})

	t.Run("SpotifyClient", func(t *testing.T) {
		var (
			mu      sync.Mutex
			batches [][]string
		)

		mux := http.NewServeMux()
		mux.HandleFunc("/v1/users/user-1/playlists", func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				t.Errorf("expected POST, got %s", r.Method)
			}
			var body map[string]any
			_ = json.NewDecoder(r.Body).Decode(&body)
			if body["public"] != false {
				t.Errorf("expected private playlist, got %v", body["public"])
			}
			writeJSON(w, http.StatusCreated, map[string]any{
				"id":            "pl-1",
				"name":          body["name"],
				"external_urls": map[string]string{"spotify": "https://open.spotify.com/playlist/pl-1"},
			})
		})
		mux.HandleFunc("/v1/search", func(w http.ResponseWriter, r *http.Request) {
			q := r.URL.Query()
			if q.Get("type") != "track" || q.Get("limit") != "1" {
				t.Errorf("unexpected search params: %v", q)
			}
			if strings.Contains(q.Get("q"), "missing") {
				writeJSON(w, http.StatusOK, map[string]any{"tracks": map[string]any{"items": []any{}}})
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"tracks": map[string]any{"items": []any{
				map[string]any{"id": "t1", "name": "Song", "uri": "spotify:track:t1"},
			}}})
		})
		mux.HandleFunc("/v1/playlists/pl-1/tracks", func(w http.ResponseWriter, r *http.Request) {
			var body struct {
				URIs []string `json:"uris"`
			}
			_ = json.NewDecoder(r.Body).Decode(&body)
			mu.Lock()
			batches = append(batches, body.URIs)
			mu.Unlock()
			writeJSON(w, http.StatusCreated, map[string]string{"snapshot_id": "s"})
		})
		mux.HandleFunc("/v1/playlists/broken/tracks", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusForbidden, map[string]any{"error": map[string]any{"status": 403, "message": "Insufficient client scope"}})
		})

		srv := newTestSpotify(t, mux)
		client, err := srv.Client(context.Background(), &oauth2.Token{AccessToken: "valid", Expiry: time.Now().Add(time.Hour)}, nil)
		if err != nil {
			t.Fatalf("failed to create client: %v", err)
		}
		ctx := context.Background()

		t.Run("CreatePlaylist", func(t *testing.T) {
			playlist, err := client.CreatePlaylist(ctx, "user-1", "BeatBuddy Playlist", "desc", false)
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if playlist.ID != "pl-1" || playlist.ExternalURLs.Spotify == "" {
				t.Errorf("unexpected playlist: %+v", playlist)
			}
		})

		t.Run("SearchTrack", func(t *testing.T) {
			tracks, err := client.SearchTrack(ctx, "track:Song artist:Band", 1)
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if len(tracks) != 1 || tracks[0].URI != "spotify:track:t1" {
				t.Errorf("unexpected tracks: %+v", tracks)
			}

			none, err := client.SearchTrack(ctx, "track:missing", 0)
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if len(none) != 0 {
				t.Errorf("expected no tracks, got %d", len(none))
			}
		})

		t.Run("AddTracks batches", func(t *testing.T) {
			uris := make([]string, 250)
			for i := range uris {
				uris[i] = "spotify:track:x"
			}
			if err := client.AddTracks(ctx, "pl-1", uris); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if len(batches) != 3 {
				t.Fatalf("expected 3 batches, got %d", len(batches))
			}
			if len(batches[0]) != 100 || len(batches[2]) != 50 {
				t.Errorf("unexpected batch sizes: %d, %d", len(batches[0]), len(batches[2]))
			}
		})

		t.Run("API error", func(t *testing.T) {
			err := client.AddTracks(ctx, "broken", []string{"spotify:track:x"})
			var perr *shared.ProviderError
			if !errors.As(err, &perr) {
				t.Fatalf("expected ProviderError, got %v", err)
			}
			if perr.Status != http.StatusForbidden {
				t.Errorf("expected 403, got %d", perr.Status)
			}
			if perr.Message != "Insufficient client scope" {
				t.Errorf("expected API message, got %q", perr.Message)
			}
		})
	})

	t.Run("refreshableTokenSource", func(t *testing.T) {
		t.Run("calls callback on first token fetch", func(t *testing.T) {
			var captured *oauth2.Token
			source := &refreshableTokenSource{
				source:   &mockTokenSource{token: &oauth2.Token{AccessToken: "test_token"}},
				callback: func(token *oauth2.Token) { captured = token },
			}

			token, err := source.Token()
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if captured == nil || captured.AccessToken != "test_token" {
				t.Errorf("expected captured token to be 'test_token', got %+v", captured)
			}
			if token.AccessToken != "test_token" {
				t.Errorf("expected returned token to be 'test_token', got %s", token.AccessToken)
			}
		})

		t.Run("skips callback for the token it started with", func(t *testing.T) {
			source := &refreshableTokenSource{
				source:   &mockTokenSource{token: &oauth2.Token{AccessToken: "stored"}},
				callback: func(*oauth2.Token) { t.Error("callback should not be called") },
				last:     "stored",
			}
			if _, err := source.Token(); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
		})

		t.Run("calls callback when token changes", func(t *testing.T) {
			callCount := 0
			mockSource := &mockTokenSource{token: &oauth2.Token{AccessToken: "token1"}}
			source := &refreshableTokenSource{
				source:   mockSource,
				callback: func(*oauth2.Token) { callCount++ },
			}

			_, _ = source.Token()
			_, _ = source.Token()
			mockSource.token = &oauth2.Token{AccessToken: "token2"}
			token2, _ := source.Token()

			if callCount != 2 {
				t.Errorf("expected callback called twice, got %d", callCount)
			}
			if token2.AccessToken != "token2" {
				t.Errorf("expected new token, got %s", token2.AccessToken)
			}
		})

		t.Run("handles nil callback gracefully", func(t *testing.T) {
			source := &refreshableTokenSource{source: &mockTokenSource{token: &oauth2.Token{AccessToken: "test_token"}}}

			token, err := source.Token()
			if err != nil {
				t.Fatalf("expected no error with nil callback, got %v", err)
			}
			if token.AccessToken != "test_token" {
				t.Error("expected token to be returned despite nil callback")
			}
		})

		t.Run("propagates source errors", func(t *testing.T) {
			source := &refreshableTokenSource{
				source:   &mockTokenSource{err: errors.New("token source error")},
				callback: func(*oauth2.Token) { t.Error("callback should not be called on error") },
			}

			token, err := source.Token()
			if err == nil || !strings.Contains(err.Error(), "token source error") {
				t.Errorf("expected source error, got %v", err)
			}
			if token != nil {
				t.Error("expected nil token on error")
			}
		})
	})
}

// mockTokenSource implements [oauth2.TokenSource] for testing
type mockTokenSource struct {
	token *oauth2.Token
	err   error
}

func (m *mockTokenSource) Token() (*oauth2.Token, error) {
	return m.token, m.err
}
