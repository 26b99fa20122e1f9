package fetch

import (
	"context"
	"fmt"

	"github.com/nugget/stratagem/internal/tools"
)

// ToolName is the name the model uses to read a web page.
const ToolName = "scrape_web_page"

// ToolDescription is shown to the model.
const ToolDescription = "Useful for reading specific website pages to get detailed text."

// FailurePrefix starts every failed extraction result.
const FailurePrefix = "Error scraping: "

// Input is the argument schema of the scrape_web_page tool.
type Input struct {
	URL string `json:"url" jsonschema:"description=Full URL of the page to read."`
}

// Tool exposes f as the scrape_web_page tool. Failures are returned as
// text starting with [FailurePrefix].
func Tool(f *Fetcher) *tools.Tool {
	return tools.New(ToolName, ToolDescription, func(ctx context.Context, in Input) string {
		tools.Notify(ctx, ToolName, in.URL, fmt.Sprintf("👀 Analyzing website: %s...", in.URL))

		page, err := f.Fetch(ctx, in.URL)
		if err != nil {
			return FailurePrefix + err.Error()
		}
		return page.Text
	})
}
