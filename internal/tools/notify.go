package tools

import (
	"context"
	"time"
)

// Event is a progress notice emitted when a tool starts work.
type Event struct {
	RunID    string    `json:"run_id,omitempty"`
	Tool     string    `json:"tool"`
	Argument string    `json:"argument"`
	Message  string    `json:"message"`
	Time     time.Time `json:"time"`
}

// Notifier receives progress events. Implementations must not block.
type Notifier interface {
	Notify(Event)
}

// NotifierFunc adapts a function to the Notifier interface.
type NotifierFunc func(Event)

// Notify calls f(e).
func (f NotifierFunc) Notify(e Event) { f(e) }

// Notify sends a progress event to the notifier carried by ctx, if any.
func Notify(ctx context.Context, tool, argument, message string) {
	n := NotifierFromContext(ctx)
	if n == nil {
		return
	}
	n.Notify(Event{
		RunID:    RunIDFromContext(ctx),
		Tool:     tool,
		Argument: argument,
		Message:  message,
		Time:     time.Now(),
	})
}
