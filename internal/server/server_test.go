package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/desertthunder/beatbuddy/internal/chat"
	"github.com/desertthunder/beatbuddy/internal/models"
	"github.com/desertthunder/beatbuddy/internal/repositories"
	"github.com/desertthunder/beatbuddy/internal/tasks"
	th "github.com/desertthunder/beatbuddy/internal/testing"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

type fakeAuth struct {
	exchanged []string
	err       error
}

func (f *fakeAuth) AuthURL(state string) string {
	return "https://accounts.example/authorize?state=" + state
}

func (f *fakeAuth) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	f.exchanged = append(f.exchanged, code)
	if f.err != nil {
		return nil, f.err
	}
	return &oauth2.Token{AccessToken: "access-" + code, RefreshToken: "refresh", Expiry: time.Now().Add(time.Hour)}, nil
}

type fakeExporter struct {
	result *models.ExportResult
	err    error
}

func (f *fakeExporter) ExportPlaylist(ctx context.Context, userID, conversationID int64, progress chan<- tasks.ProgressUpdate) (*models.ExportResult, error) {
	return f.result, f.err
}

type fakeSuggestions struct {
	songs []models.Suggestion
	limit int
}

func (f *fakeSuggestions) SuggestForConversation(ctx context.Context, conversationID int64, n int) ([]models.Suggestion, error) {
	f.limit = n
	return f.songs[:min(n, len(f.songs))], nil
}

type fakeCharts struct {
	tracks []models.ChartTrack
	err    error
}

func (f *fakeCharts) ChartTracks(ctx context.Context, limit int) ([]models.ChartTrack, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.tracks[:min(limit, len(f.tracks))], nil
}

type testServer struct {
	srv         *Server
	store       *repositories.Store
	model       *th.ScriptedChatModel
	metadata    *th.MockMetadata
	auth        *fakeAuth
	exporter    *fakeExporter
	suggestions *fakeSuggestions
	charts      *fakeCharts
}

func newTestServer(t *testing.T, opts Options) *testServer {
	t.Helper()
	store := repositories.NewStore(th.SetupTestDB(t))
	metadata := &th.MockMetadata{Tracks: map[string]models.Record{}}
	model := &th.ScriptedChatModel{}

	registry, err := chat.NewCommandRegistry(chat.Dependencies{Metadata: metadata, Playlists: store.Playlists})
	require.NoError(t, err)
	orchestrator := chat.NewOrchestrator(model, registry, chat.Stores{
		Conversations: store.Conversations,
		Messages:      store.Messages,
		Playlists:     store.Playlists,
		Genres:        store.Users,
	}, chat.OrchestratorOptions{})

	ts := &testServer{
		store:       store,
		model:       model,
		metadata:    metadata,
		auth:        &fakeAuth{},
		exporter:    &fakeExporter{},
		suggestions: &fakeSuggestions{},
		charts:      &fakeCharts{},
	}
	ts.srv = New(Dependencies{
		Store:       store,
		Chat:        orchestrator,
		Suggestions: ts.suggestions,
		Charts:      ts.charts,
		Metadata:    metadata,
		Spotify:     ts.auth,
		Exporter:    ts.exporter,
	}, opts)
	return ts
}

func (ts *testServer) do(t *testing.T, method, path string, body any, cookie *http.Cookie) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		data, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if cookie != nil {
		req.AddCookie(cookie)
	}

	rec := httptest.NewRecorder()
	ts.srv.Handler().ServeHTTP(rec, req)
	return rec
}

// signup creates a user and returns their session cookie.
func (ts *testServer) signup(t *testing.T, username string) (*http.Cookie, int64) {
	t.Helper()
	rec := ts.do(t, http.MethodPost, "/signup", map[string]string{"username": username, "password": "pw123"}, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var body struct {
		User userResponse `json:"user"`
	}
	decode(t, rec, &body)
	return sessionCookie(t, rec), body.User.ID
}

func (ts *testServer) createConversation(t *testing.T, cookie *http.Cookie) int64 {
	t.Helper()
	rec := ts.do(t, http.MethodPost, "/conversations", map[string]string{"title": "Road trip"}, cookie)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var conv models.Conversation
	decode(t, rec, &conv)
	return conv.ID
}

func sessionCookie(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == SessionCookie && c.Value != "" {
			return c
		}
	}
	t.Fatalf("no %s cookie in response", SessionCookie)
	return nil
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v), rec.Body.String())
}

func errorBody(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Error string `json:"error"`
	}
	decode(t, rec, &body)
	return body.Error
}
