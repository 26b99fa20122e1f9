package tools

import (
	"context"
	"strings"
	"testing"
)

type echoInput struct {
	Text  string `json:"text" jsonschema:"description=Text to echo back"`
	Times int    `json:"times,omitempty"`
}

func echoTool() *Tool {
	return New("echo", "Echo text.", func(ctx context.Context, in echoInput) string {
		n := in.Times
		if n == 0 {
			n = 1
		}
		return strings.Repeat(in.Text, n)
	})
}

func TestSchema(t *testing.T) {
	s := Schema[echoInput]()

	if s["type"] != "object" {
		t.Errorf("type = %v, want object", s["type"])
	}
	if _, ok := s["$schema"]; ok {
		t.Error("$schema should be stripped")
	}

	props, ok := s["properties"].(map[string]any)
	if !ok {
		t.Fatalf("properties missing: %v", s)
	}
	text, ok := props["text"].(map[string]any)
	if !ok {
		t.Fatalf("text property missing: %v", props)
	}
	if text["type"] != "string" {
		t.Errorf("text.type = %v", text["type"])
	}
	if text["description"] != "Text to echo back" {
		t.Errorf("text.description = %v", text["description"])
	}

	req, _ := s["required"].([]any)
	if len(req) != 1 || req[0] != "text" {
		t.Errorf("required = %v, want [text]", req)
	}
}

func TestRegistry_OrderAndList(t *testing.T) {
	r := NewRegistry(nil)
	for _, name := range []string{"web_search", "get_stock_info", "scrape_web_page"} {
		r.Register(&Tool{Name: name, Handler: func(context.Context, map[string]any) string { return "" }})
	}
	// Re-registering keeps position.
	r.Register(&Tool{Name: "web_search", Description: "replaced"})

	var names []string
	for _, tool := range r.All() {
		names = append(names, tool.Name)
	}
	if got := strings.Join(names, ","); got != "web_search,get_stock_info,scrape_web_page" {
		t.Errorf("order = %s", got)
	}
	if r.Get("web_search").Description != "replaced" {
		t.Error("re-register did not replace tool")
	}

	list := r.List()
	if len(list) != 3 {
		t.Fatalf("List() len = %d", len(list))
	}
	fn := list[0]["function"].(map[string]any)
	if list[0]["type"] != "function" || fn["name"] != "web_search" {
		t.Errorf("List()[0] = %v", list[0])
	}
}

func TestRegistry_Execute(t *testing.T) {
	r := NewRegistry(nil)
	r.Register(echoTool())

	tests := []struct {
		name string
		tool string
		args string
		want string
	}{
		{"decodes args", "echo", `{"text":"ab","times":2}`, "abab"},
		{"empty args", "echo", "", ""},
		{"unknown tool", "launch_rockets", `{}`, `tool "launch_rockets" is not available in this context`},
		{"malformed json", "echo", `{"text":`, "invalid arguments for echo:"},
		{"wrong type", "echo", `{"text":42}`, "invalid arguments for echo:"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := r.Execute(context.Background(), tt.tool, tt.args)
			if !strings.HasPrefix(got, tt.want) {
				t.Errorf("Execute(%s, %s) = %q, want prefix %q", tt.tool, tt.args, got, tt.want)
			}
		})
	}
}

func TestNotify(t *testing.T) {
	// No notifier: no panic.
	Notify(context.Background(), "web_search", "q", "msg")

	var got []Event
	ctx := WithNotifier(context.Background(), NotifierFunc(func(e Event) { got = append(got, e) }))
	ctx = WithRunID(ctx, "run-1")
	Notify(ctx, "web_search", "nvidia earnings", "Searching the web: nvidia earnings...")

	if len(got) != 1 {
		t.Fatalf("got %d events, want 1", len(got))
	}
	e := got[0]
	if e.RunID != "run-1" || e.Tool != "web_search" || e.Argument != "nvidia earnings" {
		t.Errorf("event = %+v", e)
	}
	if e.Time.IsZero() {
		t.Error("event time not set")
	}
}
