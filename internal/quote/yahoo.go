package quote

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/tidwall/gjson"

	"github.com/nugget/stratagem/internal/httpkit"
)

const (
	// DefaultCookieURL hands out the session cookie the crumb is bound to.
	DefaultCookieURL = "https://fc.yahoo.com"

	// Yahoo rejects requests without a browser-like agent.
	yahooUserAgent = "Mozilla/5.0"

	summaryModules = "price,summaryDetail,financialData"
)

// ErrNotFound is returned for symbols Yahoo does not know.
var ErrNotFound = errors.New("quote not found")

// Yahoo fetches snapshots from the Yahoo Finance quoteSummary API.
// A crumb is obtained on first use and cached until Yahoo rejects it.
type Yahoo struct {
	baseURL    string
	cookieURL  string
	httpClient *http.Client
	logger     *slog.Logger

	mu    sync.Mutex
	crumb string
}

// NewYahoo creates a Yahoo Finance source rooted at baseURL
// (normally https://query2.finance.yahoo.com).
func NewYahoo(baseURL string, logger *slog.Logger) *Yahoo {
	if logger == nil {
		logger = slog.Default()
	}
	return &Yahoo{
		baseURL:   strings.TrimRight(baseURL, "/"),
		cookieURL: DefaultCookieURL,
		httpClient: httpkit.NewClient(
			httpkit.WithTimeout(20*time.Second),
			httpkit.WithUserAgent(yahooUserAgent),
			httpkit.WithCookieJar(),
		),
		logger: logger,
	}
}

// Snapshot fetches the current quote summary for ticker.
func (y *Yahoo) Snapshot(ctx context.Context, ticker string) (Snapshot, error) {
	symbol := NormalizeTicker(ticker)
	if symbol == "" {
		return Snapshot{}, errors.New("ticker is required")
	}

	crumb, err := y.getCrumb(ctx)
	if err != nil {
		return Snapshot{}, err
	}

	params := url.Values{
		"modules": {summaryModules},
		"crumb":   {crumb},
	}
	reqURL := fmt.Sprintf("%s/v10/finance/quoteSummary/%s?%s", y.baseURL, url.PathEscape(symbol), params.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return Snapshot{}, fmt.Errorf("yahoo: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := y.httpClient.Do(req)
	if err != nil {
		return Snapshot{}, fmt.Errorf("yahoo: request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return Snapshot{}, fmt.Errorf("yahoo: read response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		y.resetCrumb()
		return Snapshot{}, fmt.Errorf("yahoo: %w", &httpkit.StatusError{StatusCode: resp.StatusCode, Body: string(body)})
	case resp.StatusCode == http.StatusNotFound:
		return Snapshot{}, fmt.Errorf("%w for symbol: %s", ErrNotFound, symbol)
	case resp.StatusCode != http.StatusOK:
		return Snapshot{}, fmt.Errorf("yahoo: %w", &httpkit.StatusError{StatusCode: resp.StatusCode, Body: string(body)})
	}

	return parseSummary(symbol, body)
}

// parseSummary extracts snapshot fields from a quoteSummary response body.
func parseSummary(symbol string, body []byte) (Snapshot, error) {
	if !gjson.ValidBytes(body) {
		return Snapshot{}, errors.New("yahoo: malformed response")
	}
	doc := gjson.ParseBytes(body)

	if desc := doc.Get("quoteSummary.error.description"); desc.Exists() {
		return Snapshot{}, fmt.Errorf("yahoo: %s", desc.String())
	}
	res := doc.Get("quoteSummary.result.0")
	if !res.Exists() {
		return Snapshot{}, fmt.Errorf("%w for symbol: %s", ErrNotFound, symbol)
	}

	return Snapshot{
		Symbol:           symbol,
		CurrentPrice:     field(res, "financialData.currentPrice.raw", "price.regularMarketPrice.raw"),
		MarketCap:        field(res, "price.marketCap.raw", "summaryDetail.marketCap.raw"),
		FiftyTwoWeekHigh: field(res, "summaryDetail.fiftyTwoWeekHigh.raw"),
		Recommendation:   field(res, "financialData.recommendationKey"),
	}, nil
}

// field returns the first path that exists, rendered as text. Numbers keep
// their JSON form.
func field(res gjson.Result, paths ...string) string {
	for _, p := range paths {
		v := res.Get(p)
		if !v.Exists() || v.Type == gjson.Null {
			continue
		}
		if v.Type == gjson.Number {
			return v.Raw
		}
		return v.String()
	}
	return ""
}

func (y *Yahoo) getCrumb(ctx context.Context) (string, error) {
	y.mu.Lock()
	defer y.mu.Unlock()
	if y.crumb != "" {
		return y.crumb, nil
	}

	// The cookie endpoint answers 404 but still sets the session cookie.
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, y.cookieURL, nil)
	if err != nil {
		return "", fmt.Errorf("yahoo: build cookie request: %w", err)
	}
	resp, err := y.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("yahoo: cookie request failed: %w", err)
	}
	httpkit.DrainAndClose(resp.Body, 64<<10)

	req, err = http.NewRequestWithContext(ctx, http.MethodGet, y.baseURL+"/v1/test/getcrumb", nil)
	if err != nil {
		return "", fmt.Errorf("yahoo: build crumb request: %w", err)
	}
	resp, err = y.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("yahoo: crumb request failed: %w", err)
	}
	if err := httpkit.CheckStatus(resp); err != nil {
		return "", fmt.Errorf("yahoo: crumb: %w", err)
	}
	defer resp.Body.Close()

	b, err := io.ReadAll(io.LimitReader(resp.Body, 256))
	if err != nil {
		return "", fmt.Errorf("yahoo: read crumb: %w", err)
	}
	crumb := strings.TrimSpace(string(b))
	if crumb == "" {
		return "", errors.New("yahoo: empty crumb")
	}

	y.logger.Debug("obtained yahoo crumb")
	y.crumb = crumb
	return crumb, nil
}

func (y *Yahoo) resetCrumb() {
	y.mu.Lock()
	y.crumb = ""
	y.mu.Unlock()
}
