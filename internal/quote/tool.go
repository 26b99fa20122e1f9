package quote

import (
	"context"
	"fmt"

	"github.com/nugget/stratagem/internal/tools"
)

// ToolName is the name the model uses to look up a quote.
const ToolName = "get_stock_info"

// ToolDescription is shown to the model.
const ToolDescription = "Useful for getting live stock prices and financial ratios."

// FailurePrefix starts every failed lookup result.
const FailurePrefix = "Stock fetch failed: "

// Input is the argument schema of the get_stock_info tool.
type Input struct {
	Ticker string `json:"ticker" jsonschema:"description=Stock ticker symbol, e.g. NVDA."`
}

// Tool exposes src as the get_stock_info tool. One snapshot is fetched per
// call; failures are returned as text starting with [FailurePrefix].
func Tool(src Source) *tools.Tool {
	return tools.New(ToolName, ToolDescription, func(ctx context.Context, in Input) string {
		tools.Notify(ctx, ToolName, in.Ticker, fmt.Sprintf("📈 Reading market data: %s...", in.Ticker))

		snap, err := src.Snapshot(ctx, in.Ticker)
		if err != nil {
			return FailurePrefix + err.Error()
		}
		return snap.Format()
	})
}
