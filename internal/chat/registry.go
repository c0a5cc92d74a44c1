package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/desertthunder/beatbuddy/internal/services"
	"github.com/desertthunder/beatbuddy/internal/shared"
	"github.com/xeipuuv/gojsonschema"
)

// Call identifies the conversation a function runs for.
type Call struct {
	ConversationID int64
	UserID         int64
}

// Handler runs one function with arguments that already passed schema validation.
type Handler func(ctx context.Context, call Call, args json.RawMessage) (any, error)

// Command is a function the model may call.
type Command struct {
	Name        string
	Description string
	Parameters  map[string]any // JSON schema of the arguments object
	Handler     Handler

	schema *gojsonschema.Schema
}

// Registry maps function names to commands.
type Registry struct {
	commands map[string]*Command
	order    []string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{commands: map[string]*Command{}}
}

// Register compiles the command's schema and adds it. Names must be unique.
func (r *Registry) Register(cmd Command) error {
	if cmd.Name == "" || cmd.Handler == nil {
		return fmt.Errorf("%w: command needs a name and handler", shared.ErrInvalidInput)
	}
	if _, ok := r.commands[cmd.Name]; ok {
		return fmt.Errorf("%w: command %q already registered", shared.ErrInvalidInput, cmd.Name)
	}
	if cmd.Parameters == nil {
		cmd.Parameters = object(nil)
	}

	schema, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(cmd.Parameters))
	if err != nil {
		return fmt.Errorf("invalid schema for %q: %w", cmd.Name, err)
	}
	cmd.schema = schema

	r.commands[cmd.Name] = &cmd
	r.order = append(r.order, cmd.Name)
	return nil
}

// Names returns the registered function names in registration order.
func (r *Registry) Names() []string {
	return append([]string{}, r.order...)
}

// Definitions describes every command for the chat model.
func (r *Registry) Definitions() []services.ToolDefinition {
	defs := make([]services.ToolDefinition, 0, len(r.order))
	for _, name := range r.order {
		cmd := r.commands[name]
		defs = append(defs, services.ToolDefinition{
			Name:        cmd.Name,
			Description: cmd.Description,
			Parameters:  cmd.Parameters,
		})
	}
	return defs
}

// Dispatch validates raw arguments and runs the named command.
//
// An unknown name returns [shared.UnimplementedFunctionError]. Arguments that are not
// JSON or do not match the schema return an error wrapping [shared.ErrInvalidArgument].
func (r *Registry) Dispatch(ctx context.Context, call Call, name, raw string) (any, error) {
	cmd, ok := r.commands[name]
	if !ok {
		return nil, &shared.UnimplementedFunctionError{Name: name}
	}

	if strings.TrimSpace(raw) == "" {
		raw = "{}"
	}
	if err := validateArguments(cmd.schema, raw); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", shared.ErrInvalidArgument, name, err)
	}

	return cmd.Handler(ctx, call, json.RawMessage(raw))
}

func validateArguments(schema *gojsonschema.Schema, raw string) error {
	result, err := schema.Validate(gojsonschema.NewStringLoader(raw))
	if err != nil {
		return fmt.Errorf("malformed arguments: %w", err)
	}

	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			msgs = append(msgs, desc.String())
		}
		return fmt.Errorf("%s", strings.Join(msgs, "; "))
	}
	return nil
}

// object builds a JSON schema for an arguments object.
func object(props map[string]any, required ...string) map[string]any {
	if props == nil {
		props = map[string]any{}
	}
	schema := map[string]any{
		"type":       "object",
		"properties": props,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

func str(description string) map[string]any {
	return map[string]any{"type": "string", "description": description, "minLength": 1}
}

func limit(description string) map[string]any {
	return map[string]any{"type": "integer", "description": description, "minimum": 0, "maximum": 50}
}
