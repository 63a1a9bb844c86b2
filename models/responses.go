package models

// ChatResponse is the single assistant message a backend returns.
type ChatResponse struct {
	Content   string           `json:"content"`
	ToolCalls []ToolInvocation `json:"tool_calls,omitempty"`
}

func (r ChatResponse) HasToolCalls() bool {
	return len(r.ToolCalls) > 0
}
