// Package fetch downloads web pages and reduces them to plain text for
// the agent to read.
package fetch

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/nugget/stratagem/internal/httpkit"
)

// DefaultTimeout bounds a whole page fetch, including the body.
const DefaultTimeout = 10 * time.Second

// DefaultMaxBytes is the maximum response body size read (5 MB).
const DefaultMaxBytes int64 = 5 * 1024 * 1024

// DefaultMaxChars is the character limit for extracted text.
const DefaultMaxChars = 5000

// UserAgent is sent with every page request. Many sites refuse requests
// without a browser-like agent.
const UserAgent = "Mozilla/5.0"

// Page holds the text extracted from one URL.
type Page struct {
	URL        string `json:"url"`
	StatusCode int    `json:"status_code"`
	Text       string `json:"text"`
	Truncated  bool   `json:"truncated,omitempty"`
}

// Fetcher downloads and extracts text from web pages.
type Fetcher struct {
	client   *http.Client
	maxBytes int64
	maxChars int
}

// New creates a Fetcher with default settings.
func New() *Fetcher {
	return &Fetcher{
		client: httpkit.NewClient(
			httpkit.WithTimeout(DefaultTimeout),
			httpkit.WithUserAgent(UserAgent),
		),
		maxBytes: DefaultMaxBytes,
		maxChars: DefaultMaxChars,
	}
}

// Fetch downloads rawURL and extracts its text. The body is extracted
// whatever the response status; only transport and parse failures are
// errors.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*Page, error) {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return nil, fmt.Errorf("url is required")
	}
	if !strings.HasPrefix(rawURL, "http://") && !strings.HasPrefix(rawURL, "https://") {
		rawURL = "https://" + rawURL
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("invalid url: %w", err)
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml,text/plain;q=0.9,*/*;q=0.8")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	text, err := ExtractText(bytes.NewReader(body), resp.Header.Get("Content-Type"))
	if err != nil {
		return nil, err
	}

	page := &Page{
		URL:        rawURL,
		StatusCode: resp.StatusCode,
		Text:       text,
	}
	if cut := truncateUTF8(text, f.maxChars); len(cut) < len(text) {
		page.Text = cut
		page.Truncated = true
	}
	return page, nil
}

// truncateUTF8 truncates s to at most maxChars runes without splitting a
// multi-byte character.
func truncateUTF8(s string, maxChars int) string {
	if len(s) <= maxChars {
		return s
	}
	count := 0
	for i := range s {
		if count >= maxChars {
			return s[:i]
		}
		count++
	}
	return s
}
