package services

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/desertthunder/beatbuddy/internal/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestOpenAI(t *testing.T, handler http.HandlerFunc) *OpenAIService {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	srv, err := NewOpenAIService(OpenAIOptions{
		APIKey:      "sk-test",
		BaseURL:     server.URL + "/v1/",
		Model:       "gpt-4o-mini",
		MaxTokens:   250,
		Temperature: 0.7,
	})
	require.NoError(t, err)
	return srv
}

func TestNewOpenAIService(t *testing.T) {
	_, err := NewOpenAIService(OpenAIOptions{})
	assert.ErrorIs(t, err, shared.ErrMissingCredentials)

	srv, err := NewOpenAIService(OpenAIOptions{APIKey: "sk-test"})
	require.NoError(t, err)
	assert.Equal(t, "gpt-4o-mini", srv.model)
	assert.Equal(t, 250, srv.maxTokens)
	assert.Equal(t, "OpenAI", srv.Name())
}

func TestOpenAIBuildParams(t *testing.T) {
	srv, err := NewOpenAIService(OpenAIOptions{APIKey: "sk-test", Model: "gpt-4o-mini", MaxTokens: 100, Temperature: 0.5})
	require.NoError(t, err)

	t.Run("without tools", func(t *testing.T) {
		params := srv.buildParams(CompletionRequest{
			Messages: []ChatMessage{
				{Role: RoleSystem, Content: "be helpful"},
				{Role: RoleUser, Content: "hi"},
			},
		})
		assert.Len(t, params.Messages, 2)
		assert.Empty(t, params.Tools)
		assert.Equal(t, int64(100), params.MaxTokens.Value)
		assert.InDelta(t, 0.5, params.Temperature.Value, 1e-9)
	})

	t.Run("with tools and a tool round", func(t *testing.T) {
		params := srv.buildParams(CompletionRequest{
			Messages: []ChatMessage{
				{Role: RoleUser, Content: "add a song"},
				{Role: RoleAssistant, ToolCalls: []ToolCall{{ID: "call_1", Name: "addToPlaylist", Arguments: `{"songTitle":"X","artist":"Y"}`}}},
				{Role: RoleTool, ToolCallID: "call_1", Content: `{"ok":true}`},
			},
			Tools: []ToolDefinition{{
				Name:        "addToPlaylist",
				Description: "Add a song",
				Parameters:  map[string]any{"type": "object"},
			}},
		})
		require.Len(t, params.Messages, 3)
		require.NotNil(t, params.Messages[1].OfAssistant)
		assert.Equal(t, "call_1", params.Messages[1].OfAssistant.ToolCalls[0].ID)
		require.NotNil(t, params.Messages[2].OfTool)
		assert.Equal(t, "call_1", params.Messages[2].OfTool.ToolCallID)
		require.Len(t, params.Tools, 1)
		assert.Equal(t, "addToPlaylist", params.Tools[0].Function.Name)
		assert.Equal(t, "auto", params.ToolChoice.OfAuto.Value)
	})
}

func TestOpenAIComplete(t *testing.T) {
	ctx := context.Background()

	t.Run("content reply", func(t *testing.T) {
		srv := newTestOpenAI(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/v1/chat/completions", r.URL.Path)
			assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))

			var body map[string]any
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "gpt-4o-mini", body["model"])

			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{
				"id": "chatcmpl-1",
				"object": "chat.completion",
				"created": 1,
				"model": "gpt-4o-mini",
				"choices": [{
					"index": 0,
					"finish_reason": "stop",
					"message": {"role": "assistant", "content": "Try some jazz."}
				}]
			}`))
		})

		completion, err := srv.Complete(ctx, CompletionRequest{Messages: []ChatMessage{{Role: RoleUser, Content: "hi"}}})
		require.NoError(t, err)
		assert.Equal(t, "Try some jazz.", completion.Content)
		assert.Equal(t, "stop", completion.FinishReason)
		assert.Empty(t, completion.ToolCalls)
	})

	t.Run("tool call reply", func(t *testing.T) {
		srv := newTestOpenAI(t, func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{
				"id": "chatcmpl-2",
				"object": "chat.completion",
				"created": 1,
				"model": "gpt-4o-mini",
				"choices": [{
					"index": 0,
					"finish_reason": "tool_calls",
					"message": {
						"role": "assistant",
						"content": null,
						"tool_calls": [{
							"id": "call_9",
							"type": "function",
							"function": {"name": "printPlaylist", "arguments": "{}"}
						}]
					}
				}]
			}`))
		})

		completion, err := srv.Complete(ctx, CompletionRequest{Messages: []ChatMessage{{Role: RoleUser, Content: "show"}}})
		require.NoError(t, err)
		require.Len(t, completion.ToolCalls, 1)
		assert.Equal(t, ToolCall{ID: "call_9", Name: "printPlaylist", Arguments: "{}"}, completion.ToolCalls[0])
	})

	t.Run("api error", func(t *testing.T) {
		srv := newTestOpenAI(t, func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error": {"message": "bad key", "type": "invalid_request_error"}}`))
		})

		_, err := srv.Complete(ctx, CompletionRequest{Messages: []ChatMessage{{Role: RoleUser, Content: "hi"}}})
		var perr *shared.ProviderError
		require.True(t, errors.As(err, &perr))
		assert.Equal(t, http.StatusUnauthorized, perr.Status)
	})
}
