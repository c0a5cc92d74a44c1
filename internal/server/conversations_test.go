package server

import (
	"context"
	"fmt"
	"net/http"
	"testing"

	"github.com/desertthunder/beatbuddy/internal/models"
	"github.com/desertthunder/beatbuddy/internal/services"
	"github.com/desertthunder/beatbuddy/internal/shared"
	th "github.com/desertthunder/beatbuddy/internal/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConversations(t *testing.T) {
	t.Run("create list delete", func(t *testing.T) {
		ts := newTestServer(t, Options{})
		cookie, _ := ts.signup(t, "alice")

		first := ts.createConversation(t, cookie)
		second := ts.createConversation(t, cookie)

		rec := ts.do(t, http.MethodGet, "/conversations", nil, cookie)
		require.Equal(t, http.StatusOK, rec.Code)
		var convs []models.Conversation
		decode(t, rec, &convs)
		require.Len(t, convs, 2)

		rec = ts.do(t, http.MethodDelete, fmt.Sprintf("/conversations/%d", first), nil, cookie)
		require.Equal(t, http.StatusOK, rec.Code)

		rec = ts.do(t, http.MethodGet, fmt.Sprintf("/conversations/%d/messages", first), nil, cookie)
		assert.Equal(t, http.StatusNotFound, rec.Code)

		rec = ts.do(t, http.MethodDelete, "/conversations", nil, cookie)
		require.Equal(t, http.StatusOK, rec.Code)
		var body struct {
			Deleted int64 `json:"deleted"`
		}
		decode(t, rec, &body)
		assert.Equal(t, int64(1), body.Deleted)

		rec = ts.do(t, http.MethodGet, fmt.Sprintf("/conversations/%d/playlist", second), nil, cookie)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("create without a body", func(t *testing.T) {
		ts := newTestServer(t, Options{})
		cookie, _ := ts.signup(t, "alice")

		rec := ts.do(t, http.MethodPost, "/conversations", nil, cookie)
		assert.Equal(t, http.StatusCreated, rec.Code)
	})

	t.Run("rename", func(t *testing.T) {
		ts := newTestServer(t, Options{})
		cookie, _ := ts.signup(t, "alice")
		conv := ts.createConversation(t, cookie)
		path := fmt.Sprintf("/conversations/%d", conv)

		rec := ts.do(t, http.MethodPatch, path, map[string]string{"title": "  Road trip "}, cookie)
		require.Equal(t, http.StatusOK, rec.Code)
		var got models.Conversation
		decode(t, rec, &got)
		assert.Equal(t, "Road trip", got.Title)

		rec = ts.do(t, http.MethodPatch, path, map[string]string{"title": " "}, cookie)
		assert.Equal(t, http.StatusBadRequest, rec.Code)

		bob, _ := ts.signup(t, "bob")
		rec = ts.do(t, http.MethodPatch, path, map[string]string{"title": "mine"}, bob)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("ownership", func(t *testing.T) {
		ts := newTestServer(t, Options{})
		alice, _ := ts.signup(t, "alice")
		bob, _ := ts.signup(t, "bob")
		conv := ts.createConversation(t, alice)

		paths := []struct {
			method string
			path   string
		}{
			{http.MethodGet, fmt.Sprintf("/conversations/%d/messages", conv)},
			{http.MethodGet, fmt.Sprintf("/conversations/%d/playlist", conv)},
			{http.MethodDelete, fmt.Sprintf("/conversations/%d", conv)},
			{http.MethodGet, fmt.Sprintf("/conversations/%d/suggestions", conv)},
		}
		for _, p := range paths {
			rec := ts.do(t, p.method, p.path, nil, bob)
			assert.Equal(t, http.StatusForbidden, rec.Code, p.path)
		}

		rec := ts.do(t, http.MethodPost, "/api/messageGPT", map[string]any{"userInput": "hi", "conversationId": conv}, bob)
		assert.Equal(t, http.StatusForbidden, rec.Code)
		assert.Empty(t, ts.model.Requests)
	})

	t.Run("invalid id", func(t *testing.T) {
		ts := newTestServer(t, Options{})
		cookie, _ := ts.signup(t, "alice")

		rec := ts.do(t, http.MethodGet, "/conversations/abc/messages", nil, cookie)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestMessageGPT(t *testing.T) {
	t.Run("turn persists user and bot messages", func(t *testing.T) {
		ts := newTestServer(t, Options{})
		cookie, _ := ts.signup(t, "alice")
		conv := ts.createConversation(t, cookie)
		ts.model.Replies = []*services.Completion{th.Reply("Try Back in Black by AC/DC.")}

		rec := ts.do(t, http.MethodPost, "/api/messageGPT", map[string]any{
			"userInput":      "recommend a rock song",
			"conversationId": conv,
		}, cookie)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var body struct {
			Success  bool   `json:"success"`
			Response string `json:"response"`
		}
		decode(t, rec, &body)
		assert.True(t, body.Success)
		assert.NotEmpty(t, body.Response)

		rec = ts.do(t, http.MethodGet, fmt.Sprintf("/conversations/%d/messages", conv), nil, cookie)
		require.Equal(t, http.StatusOK, rec.Code)
		var messages []models.Message
		decode(t, rec, &messages)
		require.Len(t, messages, 2)
		assert.Equal(t, models.SenderUser, messages[0].Sender)
		assert.Equal(t, "recommend a rock song", messages[0].Content)
		assert.Equal(t, models.SenderBot, messages[1].Sender)
	})

	t.Run("missing conversation id", func(t *testing.T) {
		ts := newTestServer(t, Options{})
		cookie, _ := ts.signup(t, "alice")

		rec := ts.do(t, http.MethodPost, "/api/messageGPT", map[string]any{"userInput": "hi"}, cookie)
		require.Equal(t, http.StatusBadRequest, rec.Code)

		var body struct {
			Success bool   `json:"success"`
			Error   string `json:"error"`
		}
		decode(t, rec, &body)
		assert.False(t, body.Success)
		assert.Equal(t, "Missing conversationId.", body.Error)
	})

	t.Run("model failure is a generic 500", func(t *testing.T) {
		ts := newTestServer(t, Options{})
		cookie, _ := ts.signup(t, "alice")
		conv := ts.createConversation(t, cookie)
		ts.model.Err = shared.NewProviderError("openai", 429, "rate limited", nil)

		rec := ts.do(t, http.MethodPost, "/api/messageGPT", map[string]any{"userInput": "hi", "conversationId": conv}, cookie)
		require.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.Equal(t, "Failed to generate response.", errorBody(t, rec))

		messages, err := ts.store.Messages.List(context.Background(), conv)
		require.NoError(t, err)
		assert.Empty(t, messages)
	})

	t.Run("unknown function is a 500", func(t *testing.T) {
		ts := newTestServer(t, Options{})
		cookie, _ := ts.signup(t, "alice")
		conv := ts.createConversation(t, cookie)
		ts.model.Replies = []*services.Completion{th.CallTool("c1", "launchRocket", `{}`)}

		rec := ts.do(t, http.MethodPost, "/api/messageGPT", map[string]any{"userInput": "hi", "conversationId": conv}, cookie)
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})

	t.Run("legacy messages endpoint", func(t *testing.T) {
		ts := newTestServer(t, Options{})
		cookie, _ := ts.signup(t, "alice")
		conv := ts.createConversation(t, cookie)
		ts.model.Replies = []*services.Completion{th.Reply("hello there")}

		rec := ts.do(t, http.MethodPost, fmt.Sprintf("/conversations/%d/messages", conv), map[string]string{"content": "hi"}, cookie)
		require.Equal(t, http.StatusOK, rec.Code)
		var body struct {
			Output string `json:"output"`
		}
		decode(t, rec, &body)
		assert.Equal(t, "hello there", body.Output)

		rec = ts.do(t, http.MethodPost, fmt.Sprintf("/conversations/%d/messages", conv), map[string]string{"content": ""}, cookie)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}
