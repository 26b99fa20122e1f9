package search

import (
	"context"
	"fmt"

	"github.com/nugget/stratagem/internal/tools"
)

// ToolName is the name the model uses to call web search.
const ToolName = "web_search"

// ToolDescription is shown to the model.
const ToolDescription = "Useful for finding latest news, leaks, or product announcements."

// FailurePrefix starts every failed search result.
const FailurePrefix = "Search failed: "

// Input is the argument schema of the web_search tool.
type Input struct {
	Query string `json:"query" jsonschema:"description=The search query."`
}

// Tool wraps the Manager as the web_search tool. Every call is one
// provider request at the given depth; failures are returned as text
// starting with [FailurePrefix].
func Tool(mgr *Manager, depth string) *tools.Tool {
	return tools.New(ToolName, ToolDescription, func(ctx context.Context, in Input) string {
		tools.Notify(ctx, ToolName, in.Query, fmt.Sprintf("🌍 Searching the web: %s...", in.Query))

		results, err := mgr.Search(ctx, in.Query, Options{Depth: depth})
		if err != nil {
			return FailurePrefix + err.Error()
		}
		return JoinContents(results)
	})
}
