package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/beatbuddy/internal/shared"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

const openAIName = "openai"

// Role is the author of a [ChatMessage] as the model sees it.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// ChatMessage is one message sent to the chat model.
type ChatMessage struct {
	Role       Role
	Content    string
	ToolCalls  []ToolCall // set on assistant messages that requested functions
	ToolCallID string     // set on tool results
}

// ToolCall is a function invocation requested by the model.
type ToolCall struct {
	ID        string
	Name      string
	Arguments string // raw JSON
}

// ToolDefinition describes a callable function and its JSON schema.
type ToolDefinition struct {
	Name        string
	Description string
	Parameters  map[string]any
}

// CompletionRequest is one call to the chat model. Tools may be empty.
type CompletionRequest struct {
	Messages []ChatMessage
	Tools    []ToolDefinition
}

// Completion is the model's answer: either content or tool calls.
type Completion struct {
	Content      string
	ToolCalls    []ToolCall
	FinishReason string
}

// ChatModel produces completions with optional function calling.
type ChatModel interface {
	Complete(ctx context.Context, req CompletionRequest) (*Completion, error)
}

// OpenAIOptions configures an [OpenAIService].
type OpenAIOptions struct {
	APIKey      string
	BaseURL     string
	Model       string
	MaxTokens   int
	Temperature float64
	Timeout     time.Duration
	MaxRetries  int
}

// OpenAIService implements [ChatModel] with the OpenAI chat completions API.
type OpenAIService struct {
	client      openai.Client
	model       string
	maxTokens   int
	temperature float64
}

// NewOpenAIService creates a chat model client.
func NewOpenAIService(opts OpenAIOptions, extra ...option.RequestOption) (*OpenAIService, error) {
	if opts.APIKey == "" {
		return nil, fmt.Errorf("%w: missing openai api key", shared.ErrMissingCredentials)
	}
	if opts.Model == "" {
		opts.Model = string(openai.ChatModelGPT4oMini)
	}
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = 250
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}

	reqOpts := []option.RequestOption{
		option.WithAPIKey(opts.APIKey),
		option.WithRequestTimeout(opts.Timeout),
		option.WithMaxRetries(opts.MaxRetries),
	}
	if opts.BaseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(opts.BaseURL))
	}
	reqOpts = append(reqOpts, extra...)

	return &OpenAIService{
		client:      openai.NewClient(reqOpts...),
		model:       opts.Model,
		maxTokens:   opts.MaxTokens,
		temperature: opts.Temperature,
	}, nil
}

func (s *OpenAIService) Name() string {
	return "OpenAI"
}

// Complete sends the conversation to the model. Tool selection is automatic when tools are given.
func (s *OpenAIService) Complete(ctx context.Context, req CompletionRequest) (*Completion, error) {
	resp, err := s.client.Chat.Completions.New(ctx, s.buildParams(req))
	if err != nil {
		var apiErr *openai.Error
		if errors.As(err, &apiErr) {
			return nil, shared.NewProviderError(openAIName, apiErr.StatusCode, apiErr.Message, err)
		}
		return nil, shared.NewProviderError(openAIName, 0, "chat completion", err)
	}

	if len(resp.Choices) == 0 {
		return nil, shared.NewProviderError(openAIName, 0, "no choices returned", nil)
	}

	choice := resp.Choices[0]
	completion := &Completion{
		Content:      choice.Message.Content,
		FinishReason: choice.FinishReason,
	}
	for _, tc := range choice.Message.ToolCalls {
		completion.ToolCalls = append(completion.ToolCalls, ToolCall{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: tc.Function.Arguments,
		})
	}
	return completion, nil
}

func (s *OpenAIService) buildParams(req CompletionRequest) openai.ChatCompletionNewParams {
	params := openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(s.model),
		Messages:    toOpenAIMessages(req.Messages),
		MaxTokens:   openai.Int(int64(s.maxTokens)),
		Temperature: openai.Float(s.temperature),
	}

	if len(req.Tools) > 0 {
		for _, tool := range req.Tools {
			params.Tools = append(params.Tools, openai.ChatCompletionToolParam{
				Function: openai.FunctionDefinitionParam{
					Name:        tool.Name,
					Description: openai.String(tool.Description),
					Parameters:  openai.FunctionParameters(tool.Parameters),
				},
			})
		}
		params.ToolChoice = openai.ChatCompletionToolChoiceOptionUnionParam{
			OfAuto: openai.String("auto"),
		}
	}

	return params
}

func toOpenAIMessages(messages []ChatMessage) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case RoleSystem:
			out = append(out, openai.SystemMessage(m.Content))
		case RoleUser:
			out = append(out, openai.UserMessage(m.Content))
		case RoleTool:
			out = append(out, openai.ToolMessage(m.Content, m.ToolCallID))
		case RoleAssistant:
			if len(m.ToolCalls) == 0 {
				out = append(out, openai.AssistantMessage(m.Content))
				continue
			}

			assistant := openai.ChatCompletionAssistantMessageParam{}
			if m.Content != "" {
				assistant.Content.OfString = openai.String(m.Content)
			}
			for _, tc := range m.ToolCalls {
				assistant.ToolCalls = append(assistant.ToolCalls, openai.ChatCompletionMessageToolCallParam{
					ID: tc.ID,
					Function: openai.ChatCompletionMessageToolCallFunctionParam{
						Name:      tc.Name,
						Arguments: tc.Arguments,
					},
				})
			}
			out = append(out, openai.ChatCompletionMessageParamUnion{OfAssistant: &assistant})
		}
	}
	return out
}
