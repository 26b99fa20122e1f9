package tools

import "context"

type contextKey string

const (
	runIDKey    contextKey = "run_id"
	notifierKey contextKey = "notifier"
)

// WithRunID adds the run ID to the context.
func WithRunID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, runIDKey, id)
}

// RunIDFromContext extracts the run ID from the context. Returns "" if
// not set.
func RunIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(runIDKey).(string)
	return id
}

// WithNotifier attaches a progress notifier to the context. A nil notifier
// returns ctx unchanged.
func WithNotifier(ctx context.Context, n Notifier) context.Context {
	if n == nil {
		return ctx
	}
	return context.WithValue(ctx, notifierKey, n)
}

// NotifierFromContext returns the progress notifier, or nil.
func NotifierFromContext(ctx context.Context) Notifier {
	n, _ := ctx.Value(notifierKey).(Notifier)
	return n
}
