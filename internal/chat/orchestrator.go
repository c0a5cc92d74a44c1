package chat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/beatbuddy/internal/formatter"
	"github.com/desertthunder/beatbuddy/internal/models"
	"github.com/desertthunder/beatbuddy/internal/services"
	"github.com/desertthunder/beatbuddy/internal/shared"
)

const (
	// DefaultPlaylistContext is how many recent playlist entries the system prompt embeds.
	DefaultPlaylistContext = 10

	persona = "You are Beat Buddy, a music recommender. Guide the user and make playlists based on their inputs and suggestions."

	formatting = `Formatting rules:
- When listing songs, use a numbered list with one "Title by Artist" per line.
- Keep replies short and conversational.
- Only claim a song was added or removed when a function result says so.`
)

// ConversationStore resolves conversations for their owner.
type ConversationStore interface {
	GetOwned(ctx context.Context, id, userID int64) (*models.Conversation, error)
}

// MessageStore reads and appends chat history.
type MessageStore interface {
	List(ctx context.Context, conversationID int64) ([]models.Message, error)
	AppendTurn(ctx context.Context, conversationID int64, userText, reply string) ([]models.Message, error)
}

// GenreStore reads a user's preferred genres.
type GenreStore interface {
	Genres(ctx context.Context, userID int64) ([]string, error)
}

// Stores are the persistence dependencies of an [Orchestrator].
type Stores struct {
	Conversations ConversationStore
	Messages      MessageStore
	Playlists     PlaylistStore
	Genres        GenreStore
}

// OrchestratorOptions configures an [Orchestrator].
type OrchestratorOptions struct {
	PlaylistContext int
	Logger          *log.Logger
}

// Orchestrator runs one chat turn: prompt assembly, function dispatch and persistence.
type Orchestrator struct {
	model    services.ChatModel
	registry *Registry
	stores   Stores
	recent   int
	logger   *log.Logger
}

// NewOrchestrator creates an orchestrator over model and the registered commands.
func NewOrchestrator(model services.ChatModel, registry *Registry, stores Stores, opts OrchestratorOptions) *Orchestrator {
	if opts.PlaylistContext <= 0 {
		opts.PlaylistContext = DefaultPlaylistContext
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	return &Orchestrator{
		model:    model,
		registry: registry,
		stores:   stores,
		recent:   opts.PlaylistContext,
		logger:   shared.WithLogger(opts.Logger, "component", "chat"),
	}
}

// HandleUserMessage answers text in the conversation and returns the assistant's reply.
//
// The model may request functions on its first completion; each is dispatched and its
// result fed back for one follow-up completion without tools. Exactly two messages (the
// user's text and the reply) are persisted, and only once a reply exists. A request for an
// unregistered function fails the turn with [shared.UnimplementedFunctionError].
func (o *Orchestrator) HandleUserMessage(ctx context.Context, conversationID, userID int64, text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", fmt.Errorf("%w: message is empty", shared.ErrInvalidInput)
	}

	if _, err := o.stores.Conversations.GetOwned(ctx, conversationID, userID); err != nil {
		return "", err
	}

	prompt, err := o.systemPrompt(ctx, conversationID, userID)
	if err != nil {
		return "", err
	}

	history, err := o.stores.Messages.List(ctx, conversationID)
	if err != nil {
		return "", err
	}

	messages := make([]services.ChatMessage, 0, len(history)+2)
	messages = append(messages, services.ChatMessage{Role: services.RoleSystem, Content: prompt})
	messages = append(messages, historyMessages(history)...)
	messages = append(messages, services.ChatMessage{Role: services.RoleUser, Content: text})

	first, err := o.model.Complete(ctx, services.CompletionRequest{
		Messages: messages,
		Tools:    o.registry.Definitions(),
	})
	if err != nil {
		return "", err
	}

	reply := first.Content
	if len(first.ToolCalls) > 0 {
		call := Call{ConversationID: conversationID, UserID: userID}
		messages = append(messages, services.ChatMessage{
			Role:      services.RoleAssistant,
			Content:   first.Content,
			ToolCalls: first.ToolCalls,
		})

		for _, tc := range first.ToolCalls {
			content, err := o.dispatch(ctx, call, tc)
			if err != nil {
				return "", err
			}
			messages = append(messages, services.ChatMessage{
				Role:       services.RoleTool,
				Content:    content,
				ToolCallID: tc.ID,
			})
		}

		final, err := o.model.Complete(ctx, services.CompletionRequest{Messages: messages})
		if err != nil {
			return "", err
		}
		reply = final.Content
	}

	reply = strings.TrimSpace(reply)
	if reply == "" {
		return "", shared.NewProviderError("chat model", 0, "empty reply", nil)
	}

	if _, err := o.stores.Messages.AppendTurn(ctx, conversationID, text, reply); err != nil {
		return "", err
	}

	o.logger.Debug("turn completed", "conversation", conversationID, "functions", len(first.ToolCalls))
	return reply, nil
}

// dispatch runs one tool call and serializes its result. Invalid arguments become an
// error result so the model can correct itself.
func (o *Orchestrator) dispatch(ctx context.Context, call Call, tc services.ToolCall) (string, error) {
	o.logger.Info("function call", "name", tc.Name, "conversation", call.ConversationID)

	result, err := o.registry.Dispatch(ctx, call, tc.Name, tc.Arguments)
	if errors.Is(err, shared.ErrInvalidArgument) {
		o.logger.Warn("rejected function arguments", "name", tc.Name, "error", err)
		result = map[string]any{"error": true, "status": err.Error()}
	} else if err != nil {
		o.logger.Error("function call failed", "name", tc.Name, "error", err)
		return "", err
	}

	data, err := json.Marshal(result)
	if err != nil {
		return "", fmt.Errorf("failed to encode %s result: %w", tc.Name, err)
	}
	return string(data), nil
}

func (o *Orchestrator) systemPrompt(ctx context.Context, conversationID, userID int64) (string, error) {
	recent, err := o.stores.Playlists.Recent(ctx, conversationID, o.recent)
	if err != nil {
		return "", err
	}
	genres, err := o.stores.Genres.Genres(ctx, userID)
	if err != nil {
		return "", err
	}
	return SystemPrompt(recent, genres), nil
}

// SystemPrompt assembles the persona, the recent playlist and the user's genres.
func SystemPrompt(recent []models.PlaylistEntry, genres []string) string {
	var sb strings.Builder
	sb.WriteString(persona)
	sb.WriteString("\n\n")

	if len(recent) == 0 {
		sb.WriteString("The user's playlist is empty.\n\n")
	} else {
		sb.WriteString("The user's current playlist (most recent songs):\n")
		sb.WriteString(formatter.NumberedList(recent))
		sb.WriteString("\n\n")
	}

	if len(genres) > 0 {
		sb.WriteString("The user's preferred genres: " + strings.Join(genres, ", ") + "\n\n")
	}

	sb.WriteString(formatting)
	return sb.String()
}

func historyMessages(history []models.Message) []services.ChatMessage {
	out := make([]services.ChatMessage, 0, len(history))
	for _, m := range history {
		switch m.Sender {
		case models.SenderUser:
			out = append(out, services.ChatMessage{Role: services.RoleUser, Content: m.Content})
		case models.SenderBot:
			out = append(out, services.ChatMessage{Role: services.RoleAssistant, Content: m.Content})
		}
	}
	return out
}
