package models

import (
	"encoding/json"
	"fmt"
)

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// ToolInvocation is a model-authored request to run one named tool.
// Args is always the decoded mapping, whatever shape the backend used on the
// wire, so a stored history never depends on which backend produced it.
type ToolInvocation struct {
	ID   string                 `json:"id"`
	Name string                 `json:"name"`
	Args map[string]interface{} `json:"args"`
}

// Message is one entry of a conversation. Assistant messages may carry tool
// calls; tool messages carry ToolCallID, Name and the JSON-encoded result in
// Content.
type Message struct {
	Role       string           `json:"role"`
	Content    string           `json:"content,omitempty"`
	ToolCalls  []ToolInvocation `json:"tool_calls,omitempty"`
	ToolCallID string           `json:"tool_call_id,omitempty"`
	Name       string           `json:"name,omitempty"`
}

func SystemMessage(content string) Message {
	return Message{Role: RoleSystem, Content: content}
}

func UserMessage(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

// AssistantToolCall echoes a single invocation back into the history.
func AssistantToolCall(call ToolInvocation) Message {
	return Message{Role: RoleAssistant, ToolCalls: []ToolInvocation{call}}
}

// ToolResult builds the tool message answering call. result is JSON-encoded;
// values that cannot be encoded are reported as an error payload instead.
func ToolResult(call ToolInvocation, result interface{}) Message {
	content, err := json.Marshal(result)
	if err != nil {
		content, _ = json.Marshal(map[string]string{"error": fmt.Sprintf("failed to encode result: %v", err)})
	}
	return Message{
		Role:       RoleTool,
		Content:    string(content),
		ToolCallID: call.ID,
		Name:       call.Name,
	}
}

// CloneMessages returns a deep-enough copy of msgs for handing history to a
// caller without sharing the backing arrays.
func CloneMessages(msgs []Message) []Message {
	out := make([]Message, len(msgs))
	for i, m := range msgs {
		out[i] = m
		if m.ToolCalls != nil {
			out[i].ToolCalls = append([]ToolInvocation(nil), m.ToolCalls...)
		}
	}
	return out
}
