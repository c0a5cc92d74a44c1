package server

import (
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuth(t *testing.T) {
	t.Run("signup then login", func(t *testing.T) {
		ts := newTestServer(t, Options{})

		rec := ts.do(t, http.MethodPost, "/signup", map[string]string{"username": "alice", "password": "pw123"}, nil)
		require.Equal(t, http.StatusCreated, rec.Code)
		cookie := sessionCookie(t, rec)
		assert.True(t, cookie.HttpOnly)

		rec = ts.do(t, http.MethodPost, "/login", map[string]string{"username": "alice", "password": "pw123"}, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		loginCookie := sessionCookie(t, rec)
		assert.NotEqual(t, cookie.Value, loginCookie.Value, "each login starts a new session")

		rec = ts.do(t, http.MethodGet, "/user", nil, loginCookie)
		require.Equal(t, http.StatusOK, rec.Code)
		var user userResponse
		decode(t, rec, &user)
		assert.Equal(t, "alice", user.Username)
		assert.False(t, user.SpotifyConnected)
	})

	t.Run("duplicate username", func(t *testing.T) {
		ts := newTestServer(t, Options{})
		ts.signup(t, "alice")

		rec := ts.do(t, http.MethodPost, "/signup", map[string]string{"username": "alice", "password": "other"}, nil)
		assert.Equal(t, http.StatusConflict, rec.Code)
		assert.Equal(t, "Username already exists", errorBody(t, rec))
	})

	t.Run("signup validation", func(t *testing.T) {
		ts := newTestServer(t, Options{})

		rec := ts.do(t, http.MethodPost, "/signup", map[string]string{"username": "alice"}, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)

		rec = ts.do(t, http.MethodPost, "/signup", map[string]string{"username": "  ", "password": "pw"}, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)

		rec = ts.do(t, http.MethodPost, "/signup", map[string]string{"username": "alice", "password": strings.Repeat("x", 80)}, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "Password must be at most 72 bytes", errorBody(t, rec))
		assert.Empty(t, rec.Result().Cookies())

		rec = ts.do(t, http.MethodPost, "/signup", map[string]string{"username": "alice", "password": "pw123"}, nil)
		assert.Equal(t, http.StatusCreated, rec.Code, "a rejected signup leaves the username free")
	})

	t.Run("login failures are plain text", func(t *testing.T) {
		ts := newTestServer(t, Options{})
		ts.signup(t, "alice")

		rec := ts.do(t, http.MethodPost, "/login", map[string]string{"username": "alice", "password": "wrong"}, nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, "Invalid username or password", rec.Body.String())
		assert.Empty(t, rec.Result().Cookies())

		rec = ts.do(t, http.MethodPost, "/login", map[string]string{"username": "bob", "password": "pw123"}, nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, "Invalid username or password", rec.Body.String())
	})

	t.Run("session required", func(t *testing.T) {
		ts := newTestServer(t, Options{})

		rec := ts.do(t, http.MethodGet, "/conversations", nil, nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)

		rec = ts.do(t, http.MethodGet, "/conversations", nil, &http.Cookie{Name: SessionCookie, Value: "forged"})
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("logout ends the session", func(t *testing.T) {
		ts := newTestServer(t, Options{})
		cookie, _ := ts.signup(t, "alice")

		rec := ts.do(t, http.MethodPost, "/logout", nil, cookie)
		require.Equal(t, http.StatusOK, rec.Code)

		rec = ts.do(t, http.MethodGet, "/user", nil, cookie)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("genres", func(t *testing.T) {
		ts := newTestServer(t, Options{})
		cookie, _ := ts.signup(t, "alice")

		rec := ts.do(t, http.MethodPut, "/user/genres", map[string]any{"genres": []string{"rock", " Jazz ", "ROCK"}}, cookie)
		require.Equal(t, http.StatusOK, rec.Code)

		var body struct {
			Genres []string `json:"genres"`
		}
		decode(t, rec, &body)
		assert.Equal(t, []string{"rock", "Jazz"}, body.Genres)

		rec = ts.do(t, http.MethodPut, "/user/genres", `{"genres": "rock"}`, cookie)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("health", func(t *testing.T) {
		ts := newTestServer(t, Options{})
		rec := ts.do(t, http.MethodGet, "/health", nil, nil)
		assert.Equal(t, http.StatusOK, rec.Code)
	})
}
