package models

// ChatRequest is the provider-neutral request sent to a chat backend.
type ChatRequest struct {
	Messages   []Message             `json:"messages"`
	Tools      []FunctionDeclaration `json:"tools,omitempty"`
	ToolChoice string                `json:"tool_choice,omitempty"` // "auto" when tools are present
	MaxTokens  int                   `json:"max_tokens,omitempty"`
	// JSON asks the backend for a JSON-only answer where it supports that.
	JSON bool `json:"-"`
}
