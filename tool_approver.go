package outreach

import (
	"fmt"
	"log/slog"
)

// Approver decides whether a tool call may run. A refusal is reported to
// the model as the call's result.
type Approver func(toolName string, toolArgs map[string]interface{}) (bool, error)

// ToolRefusedError is the tool result for a call the Approver refused.
type ToolRefusedError struct {
	Name string
}

func (e *ToolRefusedError) Error() string {
	return fmt.Sprintf("tool %q was not approved", e.Name)
}

// ApproveAll approves every tool call.
func ApproveAll(toolName string, toolArgs map[string]interface{}) (bool, error) {
	slog.Debug("auto-approving tool", "tool", toolName)
	return true, nil
}

// ApproveOnly approves the named tools and refuses the rest.
func ApproveOnly(names ...string) Approver {
	allowed := make(map[string]bool, len(names))
	for _, n := range names {
		allowed[n] = true
	}
	return func(toolName string, toolArgs map[string]interface{}) (bool, error) {
		return allowed[toolName], nil
	}
}
