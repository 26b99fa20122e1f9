package tools

import "fmt"

// ErrToolUnavailable describes a call to a tool that is not registered.
// [Registry.Execute] renders it as the tool result.
type ErrToolUnavailable struct {
	ToolName string
}

func (e *ErrToolUnavailable) Error() string {
	return fmt.Sprintf("tool %q is not available in this context", e.ToolName)
}
