// Package llm is the boundary to hosted language models. A [Client] sends
// one chat turn (instruction, history, tool descriptors) and returns the
// model's reply, which is either text or a list of tool calls.
package llm

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/nugget/stratagem/internal/config"
	"github.com/nugget/stratagem/internal/httpkit"
)

// Client is the interface that all model providers implement.
type Client interface {
	// Chat sends one request and returns the model's reply.
	Chat(ctx context.Context, req *Request) (*Response, error)

	// Provider returns the provider identifier (e.g., "openai").
	Provider() string
}

// New builds the client for the configured provider.
func New(ctx context.Context, cfg config.ModelConfig, logger *slog.Logger) (Client, error) {
	if logger == nil {
		logger = slog.Default()
	}
	switch cfg.Provider {
	case config.ProviderOpenAI, "":
		return NewOpenAI(cfg.APIKey, cfg.BaseURL, logger), nil
	case config.ProviderAnthropic:
		return NewAnthropic(cfg.APIKey, cfg.BaseURL, logger), nil
	case config.ProviderGemini:
		c, err := NewGemini(ctx, cfg.APIKey, cfg.BaseURL, logger)
		if err != nil {
			return nil, err
		}
		return c, nil
	default:
		return nil, fmt.Errorf("unknown model provider %q", cfg.Provider)
	}
}

// newHTTPClient returns the outbound client shared by provider SDKs.
// Model replies can take a long time before headers arrive, so the
// response header timeout is widened and the overall bound is left to
// the caller's context.
func newHTTPClient() *http.Client {
	t := httpkit.NewTransport()
	t.ResponseHeaderTimeout = 120 * time.Second
	return httpkit.NewClient(
		httpkit.WithTimeout(0),
		httpkit.WithTransport(t),
	)
}
