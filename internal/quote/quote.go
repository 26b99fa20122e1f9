// Package quote looks up market data snapshots for a ticker symbol and
// renders them in the fixed four-line form the agent reads.
package quote

import (
	"context"
	"fmt"
	"strings"
)

// NotAvailable stands in for any field the provider did not return.
const NotAvailable = "N/A"

// Snapshot is the subset of a quote the agent sees. Empty fields were
// absent from the provider response.
type Snapshot struct {
	Symbol           string
	CurrentPrice     string
	MarketCap        string
	FiftyTwoWeekHigh string
	Recommendation   string
}

// Format renders the snapshot as four lines, in fixed order, with
// [NotAvailable] for missing fields.
func (s Snapshot) Format() string {
	return fmt.Sprintf("Current Price: $%s\nMarket Cap: $%s\n52 Week High: $%s\nRecommendation: %s",
		orNA(s.CurrentPrice),
		orNA(s.MarketCap),
		orNA(s.FiftyTwoWeekHigh),
		orNA(s.Recommendation),
	)
}

func orNA(v string) string {
	if v == "" {
		return NotAvailable
	}
	return v
}

// Source fetches one snapshot per call.
type Source interface {
	Snapshot(ctx context.Context, ticker string) (Snapshot, error)
}

// NormalizeTicker trims and upper-cases a ticker symbol.
func NormalizeTicker(ticker string) string {
	return strings.ToUpper(strings.TrimSpace(ticker))
}
