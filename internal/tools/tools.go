// Package tools defines the tool surface exposed to the model: static
// descriptors (name, description, JSON parameter schema) paired with
// handlers, and an ordered registry that dispatches calls by name.
//
// Handlers return only a string. A lookup that fails is still a result;
// the text tells the model what went wrong and the run continues.
package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/invopop/jsonschema"
)

// Handler executes one tool call.
type Handler func(ctx context.Context, args map[string]any) string

// Tool is a named capability the model may call.
type Tool struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
	Handler     Handler        `json:"-"`
}

// New builds a Tool whose parameter schema is reflected from the input
// type T. Call arguments are decoded into a T before fn runs; arguments
// that do not fit T are reported as the tool result.
func New[T any](name, description string, fn func(ctx context.Context, in T) string) *Tool {
	return &Tool{
		Name:        name,
		Description: description,
		Parameters:  Schema[T](),
		Handler: func(ctx context.Context, args map[string]any) string {
			var in T
			if err := decodeArgs(args, &in); err != nil {
				return fmt.Sprintf("invalid arguments for %s: %v", name, err)
			}
			return fn(ctx, in)
		},
	}
}

// Schema reflects the JSON schema of T's fields into the plain map form
// providers expect under "parameters". Field names come from json tags;
// fields without omitempty are required. Descriptions come from the
// jsonschema tag, e.g. `jsonschema:"description=Ticker symbol"`.
func Schema[T any]() map[string]any {
	r := &jsonschema.Reflector{
		DoNotReference: true,
		ExpandedStruct: true,
	}
	s := r.Reflect(new(T))

	b, err := json.Marshal(s)
	if err != nil {
		panic(fmt.Sprintf("tools: marshal schema for %T: %v", *new(T), err))
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		panic(fmt.Sprintf("tools: unmarshal schema for %T: %v", *new(T), err))
	}
	delete(m, "$schema")
	delete(m, "$id")
	return m
}

func decodeArgs(args map[string]any, dst any) error {
	if args == nil {
		args = map[string]any{}
	}
	b, err := json.Marshal(args)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, dst)
}

// Registry holds available tools in registration order.
type Registry struct {
	tools  map[string]*Tool
	order  []string
	logger *slog.Logger
}

// NewRegistry creates an empty tool registry.
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		tools:  make(map[string]*Tool),
		logger: logger,
	}
}

// Register adds a tool. Registering a name twice replaces the earlier
// tool but keeps its position.
func (r *Registry) Register(t *Tool) {
	if _, exists := r.tools[t.Name]; !exists {
		r.order = append(r.order, t.Name)
	}
	r.tools[t.Name] = t
}

// Get retrieves a tool by name.
func (r *Registry) Get(name string) *Tool {
	return r.tools[name]
}

// All returns the registered tools in registration order.
func (r *Registry) All() []*Tool {
	out := make([]*Tool, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.tools[name])
	}
	return out
}

// List returns all tools in the OpenAI function-calling format.
func (r *Registry) List() []map[string]any {
	result := make([]map[string]any, 0, len(r.order))
	for _, t := range r.All() {
		result = append(result, map[string]any{
			"type": "function",
			"function": map[string]any{
				"name":        t.Name,
				"description": t.Description,
				"parameters":  t.Parameters,
			},
		})
	}
	return result
}

// Execute runs a tool by name with JSON-encoded arguments and returns its
// text result. Unknown tools and malformed arguments are reported as text
// too, so a confused model cannot abort a run.
func (r *Registry) Execute(ctx context.Context, name string, argsJSON string) string {
	tool := r.tools[name]
	if tool == nil {
		err := &ErrToolUnavailable{ToolName: name}
		r.logger.Warn("model requested unknown tool", "tool", name)
		return err.Error()
	}

	var args map[string]any
	if argsJSON != "" {
		if err := json.Unmarshal([]byte(argsJSON), &args); err != nil {
			return fmt.Sprintf("invalid arguments for %s: %v", name, err)
		}
	}

	start := time.Now()
	out := tool.Handler(ctx, args)
	r.logger.Debug("tool executed",
		"tool", name,
		"run_id", RunIDFromContext(ctx),
		"elapsed", time.Since(start).Round(time.Millisecond),
		"result_len", len(out),
	)
	return out
}
