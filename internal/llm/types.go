package llm

import "strings"

// Message roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// Message is one entry of the conversation history.
type Message struct {
	Role      string     `json:"role"`
	Content   string     `json:"content"`
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`

	// ToolCallID and Name identify the call a RoleTool message answers.
	ToolCallID string `json:"tool_call_id,omitempty"`
	Name       string `json:"name,omitempty"`
}

// ToolCall is a request from the model to run one tool.
type ToolCall struct {
	ID       string       `json:"id,omitempty"`
	Function FunctionCall `json:"function"`
}

// FunctionCall names the tool and carries its JSON-encoded arguments.
type FunctionCall struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// ToolDef describes a tool the model may call.
type ToolDef struct {
	Name        string
	Description string
	Parameters  map[string]any // JSON schema object
}

// Request is one chat turn.
type Request struct {
	Model       string
	System      string
	Messages    []Message
	Tools       []ToolDef
	Temperature float32
	MaxTokens   int

	// DisableTools keeps tool descriptors in the request but forbids
	// the model from calling them, forcing a text answer.
	DisableTools bool
}

// Response is the unified reply from any provider.
type Response struct {
	Model   string
	Message Message

	InputTokens  int
	OutputTokens int
	StopReason   string
}

// ToolResultMessage builds the history entry answering call.
func ToolResultMessage(call ToolCall, content string) Message {
	return Message{
		Role:       RoleTool,
		Content:    content,
		ToolCallID: call.ID,
		Name:       call.Function.Name,
	}
}

// schemaRequired returns the "required" list of a JSON schema object,
// accepting both []string and the []any produced by JSON decoding.
func schemaRequired(schema map[string]any) []string {
	switch v := schema["required"].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

// joinText concatenates non-empty text fragments.
func joinText(parts []string) string {
	return strings.TrimSpace(strings.Join(parts, ""))
}
