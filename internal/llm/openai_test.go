package llm

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestOpenAIChat_ToolCalls(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("path = %q, want /chat/completions", r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer sk-test" {
			t.Errorf("Authorization = %q", auth)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{
			"id": "chatcmpl-1",
			"model": "gpt-4o-mini",
			"choices": [{
				"index": 0,
				"finish_reason": "tool_calls",
				"message": {
					"role": "assistant",
					"content": "",
					"tool_calls": [{
						"id": "call_1",
						"type": "function",
						"function": {"name": "web_search", "arguments": "{\"query\":\"Nvidia news\"}"}
					}]
				}
			}],
			"usage": {"prompt_tokens": 120, "completion_tokens": 15, "total_tokens": 135}
		}`)
	}))
	defer srv.Close()

	c := NewOpenAI("sk-test", srv.URL, discardLogger())
	if c.Provider() != "openai" {
		t.Errorf("Provider() = %q", c.Provider())
	}

	resp, err := c.Chat(context.Background(), &Request{
		Model:       "gpt-4o-mini",
		System:      "You are Stratagem.",
		Messages:    []Message{{Role: RoleUser, Content: "Execute comprehensive analysis on Nvidia."}},
		Temperature: 0.1,
		Tools: []ToolDef{{
			Name:        "web_search",
			Description: "search",
			Parameters: map[string]any{
				"type":       "object",
				"properties": map[string]any{"query": map[string]any{"type": "string"}},
				"required":   []string{"query"},
			},
		}},
	})
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}

	msgs := got["messages"].([]any)
	if len(msgs) != 2 {
		t.Fatalf("sent %d messages, want 2 (system + user)", len(msgs))
	}
	if role := msgs[0].(map[string]any)["role"]; role != "system" {
		t.Errorf("first message role = %v, want system", role)
	}
	if _, ok := got["tool_choice"]; ok {
		t.Errorf("tool_choice set without DisableTools: %v", got["tool_choice"])
	}

	if len(resp.Message.ToolCalls) != 1 {
		t.Fatalf("tool calls = %d, want 1", len(resp.Message.ToolCalls))
	}
	tc := resp.Message.ToolCalls[0]
	if tc.ID != "call_1" || tc.Function.Name != "web_search" || tc.Function.Arguments != `{"query":"Nvidia news"}` {
		t.Errorf("tool call = %+v", tc)
	}
	if resp.InputTokens != 120 || resp.OutputTokens != 15 {
		t.Errorf("tokens = %d/%d, want 120/15", resp.InputTokens, resp.OutputTokens)
	}
	if resp.StopReason != "tool_calls" {
		t.Errorf("StopReason = %q", resp.StopReason)
	}
}

func TestOpenAIChat_DisableTools(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&got)
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"model":"gpt-4o-mini","choices":[{"finish_reason":"stop","message":{"role":"assistant","content":"## Strategic Verdict\nBuy."}}]}`)
	}))
	defer srv.Close()

	c := NewOpenAI("sk-test", srv.URL, discardLogger())
	resp, err := c.Chat(context.Background(), &Request{
		Model:        "gpt-4o-mini",
		Messages:     []Message{{Role: RoleUser, Content: "go"}},
		Tools:        []ToolDef{{Name: "web_search", Parameters: map[string]any{"type": "object"}}},
		DisableTools: true,
	})
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if got["tool_choice"] != "none" {
		t.Errorf("tool_choice = %v, want none", got["tool_choice"])
	}
	if _, ok := got["tools"]; !ok {
		t.Error("tools should still be sent when disabled")
	}
	if resp.Message.Content != "## Strategic Verdict\nBuy." {
		t.Errorf("Content = %q", resp.Message.Content)
	}
}

func TestOpenAIChat_Error(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		io.WriteString(w, `{"error":{"message":"Incorrect API key provided","type":"invalid_request_error"}}`)
	}))
	defer srv.Close()

	c := NewOpenAI("bad", srv.URL, discardLogger())
	_, err := c.Chat(context.Background(), &Request{Model: "gpt-4o-mini", Messages: []Message{{Role: RoleUser, Content: "hi"}}})
	if err == nil {
		t.Fatal("expected error for 401")
	}
}

func TestToOpenAIMessages_ToolRoundTrip(t *testing.T) {
	call := ToolCall{ID: "call_9", Function: FunctionCall{Name: "get_stock_info", Arguments: `{"ticker":"NVDA"}`}}
	msgs := toOpenAIMessages("", []Message{
		{Role: RoleUser, Content: "analyze"},
		{Role: RoleAssistant, ToolCalls: []ToolCall{call}},
		ToolResultMessage(call, "Current Price: $100"),
	})

	if len(msgs) != 3 {
		t.Fatalf("len = %d, want 3", len(msgs))
	}
	if msgs[1].ToolCalls[0].ID != "call_9" || msgs[1].ToolCalls[0].Type != "function" {
		t.Errorf("assistant tool call = %+v", msgs[1].ToolCalls[0])
	}
	if msgs[2].Role != "tool" || msgs[2].ToolCallID != "call_9" {
		t.Errorf("tool message = %+v", msgs[2])
	}
}
