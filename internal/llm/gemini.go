package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"google.golang.org/genai"

	"github.com/nugget/stratagem/internal/config"
)

// GeminiClient talks to the Gemini API.
type GeminiClient struct {
	client *genai.Client
	logger *slog.Logger
}

// NewGemini creates a Gemini client. An empty baseURL uses the public API.
func NewGemini(ctx context.Context, apiKey, baseURL string, logger *slog.Logger) (*GeminiClient, error) {
	if logger == nil {
		logger = slog.Default()
	}
	cfg := &genai.ClientConfig{
		APIKey:     apiKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: newHTTPClient(),
	}
	if baseURL != "" {
		cfg.HTTPOptions = genai.HTTPOptions{BaseURL: baseURL}
	}
	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("gemini: create client: %w", err)
	}
	return &GeminiClient{
		client: client,
		logger: logger.With("provider", "gemini"),
	}, nil
}

func (c *GeminiClient) Provider() string { return "gemini" }

// Chat sends one GenerateContent request.
func (c *GeminiClient) Chat(ctx context.Context, req *Request) (*Response, error) {
	contents, err := toGeminiContents(req.Messages)
	if err != nil {
		return nil, fmt.Errorf("gemini: %w", err)
	}

	gcfg := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(req.Temperature),
		Tools:       toGeminiTools(req.Tools),
	}
	if req.MaxTokens > 0 {
		gcfg.MaxOutputTokens = int32(req.MaxTokens)
	}
	if req.System != "" {
		gcfg.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: req.System}}}
	}
	if req.DisableTools && len(gcfg.Tools) > 0 {
		gcfg.ToolConfig = &genai.ToolConfig{
			FunctionCallingConfig: &genai.FunctionCallingConfig{Mode: genai.FunctionCallingConfigModeNone},
		}
	}

	c.logger.Debug("preparing request",
		"model", req.Model,
		"contents", len(contents),
		"tools_disabled", req.DisableTools,
	)

	resp, err := c.client.Models.GenerateContent(ctx, req.Model, contents, gcfg)
	if err != nil {
		return nil, fmt.Errorf("gemini: %w", err)
	}
	out, stop, err := fromGeminiResponse(resp)
	if err != nil {
		return nil, fmt.Errorf("gemini: %w", err)
	}

	var in, outTok int
	if resp.UsageMetadata != nil {
		in = int(resp.UsageMetadata.PromptTokenCount)
		outTok = int(resp.UsageMetadata.CandidatesTokenCount)
	}

	c.logger.Debug("response received",
		"model", req.Model,
		"finish_reason", stop,
		"tool_calls", len(out.ToolCalls),
		"input_tokens", in,
		"output_tokens", outTok,
	)
	c.logger.Log(ctx, config.LevelTrace, "response content", "content", out.Content)

	return &Response{
		Model:        req.Model,
		Message:      out,
		InputTokens:  in,
		OutputTokens: outTok,
		StopReason:   stop,
	}, nil
}

// fromGeminiResponse extracts the first candidate. Function calls
// without an ID get a positional one so tool results can refer back.
func fromGeminiResponse(resp *genai.GenerateContentResponse) (Message, string, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return Message{}, "", errors.New("response has no candidates")
	}
	cand := resp.Candidates[0]

	out := Message{Role: RoleAssistant}
	var text []string
	for _, p := range cand.Content.Parts {
		if p == nil {
			continue
		}
		if p.FunctionCall != nil {
			args, err := json.Marshal(p.FunctionCall.Args)
			if err != nil {
				return Message{}, "", fmt.Errorf("encode call arguments: %w", err)
			}
			if p.FunctionCall.Args == nil {
				args = []byte("{}")
			}
			id := p.FunctionCall.ID
			if id == "" {
				id = fmt.Sprintf("call_%d", len(out.ToolCalls))
			}
			out.ToolCalls = append(out.ToolCalls, ToolCall{
				ID:       id,
				Function: FunctionCall{Name: p.FunctionCall.Name, Arguments: string(args)},
			})
			continue
		}
		if p.Text != "" {
			text = append(text, p.Text)
		}
	}
	out.Content = joinText(text)
	return out, string(cand.FinishReason), nil
}

// toGeminiContents converts history. Tool results become function
// responses in a user turn, keyed by tool name.
func toGeminiContents(msgs []Message) ([]*genai.Content, error) {
	var out []*genai.Content
	var pending []*genai.Part

	flush := func() {
		if len(pending) > 0 {
			out = append(out, &genai.Content{Role: "user", Parts: pending})
			pending = nil
		}
	}

	for _, m := range msgs {
		switch m.Role {
		case RoleTool:
			pending = append(pending, &genai.Part{FunctionResponse: &genai.FunctionResponse{
				ID:       m.ToolCallID,
				Name:     m.Name,
				Response: map[string]any{"output": m.Content},
			}})
		case RoleAssistant:
			flush()
			var parts []*genai.Part
			if m.Content != "" {
				parts = append(parts, &genai.Part{Text: m.Content})
			}
			for _, tc := range m.ToolCalls {
				args := map[string]any{}
				if tc.Function.Arguments != "" {
					if err := json.Unmarshal([]byte(tc.Function.Arguments), &args); err != nil {
						return nil, fmt.Errorf("decode arguments for %s: %w", tc.Function.Name, err)
					}
				}
				parts = append(parts, &genai.Part{FunctionCall: &genai.FunctionCall{
					ID:   tc.ID,
					Name: tc.Function.Name,
					Args: args,
				}})
			}
			out = append(out, &genai.Content{Role: "model", Parts: parts})
		default:
			flush()
			out = append(out, &genai.Content{Role: "user", Parts: []*genai.Part{{Text: m.Content}}})
		}
	}
	flush()
	return out, nil
}

func toGeminiTools(defs []ToolDef) []*genai.Tool {
	if len(defs) == 0 {
		return nil
	}
	decls := make([]*genai.FunctionDeclaration, 0, len(defs))
	for _, d := range defs {
		decls = append(decls, &genai.FunctionDeclaration{
			Name:        d.Name,
			Description: d.Description,
			Parameters:  toGeminiSchema(d.Parameters),
		})
	}
	return []*genai.Tool{{FunctionDeclarations: decls}}
}

// toGeminiSchema converts a JSON schema map into the subset Gemini
// understands.
func toGeminiSchema(m map[string]any) *genai.Schema {
	if m == nil {
		return nil
	}
	s := &genai.Schema{}
	if t, ok := m["type"].(string); ok {
		s.Type = genai.Type(strings.ToUpper(t))
	}
	if d, ok := m["description"].(string); ok {
		s.Description = d
	}
	if props, ok := m["properties"].(map[string]any); ok {
		s.Properties = make(map[string]*genai.Schema, len(props))
		for name, raw := range props {
			if pm, ok := raw.(map[string]any); ok {
				s.Properties[name] = toGeminiSchema(pm)
			}
		}
	}
	if items, ok := m["items"].(map[string]any); ok {
		s.Items = toGeminiSchema(items)
	}
	switch e := m["enum"].(type) {
	case []string:
		s.Enum = e
	case []any:
		for _, v := range e {
			if str, ok := v.(string); ok {
				s.Enum = append(s.Enum, str)
			}
		}
	}
	s.Required = schemaRequired(m)
	return s
}
