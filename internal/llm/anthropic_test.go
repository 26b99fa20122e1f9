package llm

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestAnthropicChat(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/messages" {
			t.Errorf("path = %q, want /v1/messages", r.URL.Path)
		}
		if key := r.Header.Get("X-Api-Key"); key != "sk-ant-test" {
			t.Errorf("x-api-key = %q", key)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{
			"id": "msg_1",
			"type": "message",
			"role": "assistant",
			"model": "claude-3-5-haiku-latest",
			"stop_reason": "tool_use",
			"content": [
				{"type": "text", "text": "Checking the market."},
				{"type": "tool_use", "id": "toolu_1", "name": "get_stock_info", "input": {"ticker": "NVDA"}}
			],
			"usage": {"input_tokens": 50, "output_tokens": 7}
		}`)
	}))
	defer srv.Close()

	c := NewAnthropic("sk-ant-test", srv.URL, discardLogger())
	if c.Provider() != "anthropic" {
		t.Errorf("Provider() = %q", c.Provider())
	}

	resp, err := c.Chat(context.Background(), &Request{
		Model:    "claude-3-5-haiku-latest",
		System:   "You are Stratagem.",
		Messages: []Message{{Role: RoleUser, Content: "analyze Nvidia"}},
		Tools: []ToolDef{{
			Name:        "get_stock_info",
			Description: "quotes",
			Parameters: map[string]any{
				"type":       "object",
				"properties": map[string]any{"ticker": map[string]any{"type": "string"}},
				"required":   []any{"ticker"},
			},
		}},
		DisableTools: true,
	})
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}

	if got["max_tokens"] != float64(4096) {
		t.Errorf("max_tokens = %v, want default 4096", got["max_tokens"])
	}
	system := got["system"].([]any)
	if system[0].(map[string]any)["text"] != "You are Stratagem." {
		t.Errorf("system = %v", system)
	}
	choice, _ := got["tool_choice"].(map[string]any)
	if choice["type"] != "none" {
		t.Errorf("tool_choice = %v, want type none", got["tool_choice"])
	}

	if resp.Message.Content != "Checking the market." {
		t.Errorf("Content = %q", resp.Message.Content)
	}
	if len(resp.Message.ToolCalls) != 1 {
		t.Fatalf("tool calls = %d, want 1", len(resp.Message.ToolCalls))
	}
	var args map[string]any
	if err := json.Unmarshal([]byte(resp.Message.ToolCalls[0].Function.Arguments), &args); err != nil {
		t.Fatalf("arguments not JSON: %v", err)
	}
	if args["ticker"] != "NVDA" {
		t.Errorf("ticker = %v", args["ticker"])
	}
	if resp.InputTokens != 50 || resp.OutputTokens != 7 {
		t.Errorf("tokens = %d/%d", resp.InputTokens, resp.OutputTokens)
	}
}

func TestToAnthropicMessages_GroupsToolResults(t *testing.T) {
	a := ToolCall{ID: "toolu_a", Function: FunctionCall{Name: "web_search", Arguments: `{"query":"x"}`}}
	b := ToolCall{ID: "toolu_b", Function: FunctionCall{Name: "get_stock_info", Arguments: `{"ticker":"X"}`}}

	msgs := toAnthropicMessages([]Message{
		{Role: RoleUser, Content: "go"},
		{Role: RoleAssistant, ToolCalls: []ToolCall{a, b}},
		ToolResultMessage(a, "results"),
		ToolResultMessage(b, "quote"),
	})

	if len(msgs) != 3 {
		t.Fatalf("len = %d, want 3 (user, assistant, grouped tool results)", len(msgs))
	}
	if msgs[2].Role != "user" {
		t.Errorf("tool results role = %q, want user", msgs[2].Role)
	}
	if n := len(msgs[2].Content); n != 2 {
		t.Errorf("grouped results = %d blocks, want 2", n)
	}
	if n := len(msgs[1].Content); n != 2 {
		t.Errorf("assistant blocks = %d, want 2 tool_use", n)
	}
}
