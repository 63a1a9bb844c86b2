package stores

import (
	"log/slog"

	"github.com/kindtohomeless/outreach/models"
)

// SanitizeHistory makes caller-supplied history safe to send to a chat
// backend. It guarantees:
// - history starts at the first user message (leading system messages are kept)
// - every tool message answers a tool call made earlier in the history
// - every tool call kept has a matching tool message after it
//
// Assistant messages left with neither content nor tool calls are dropped.
func SanitizeHistory(msgs []models.Message) []models.Message {
	if len(msgs) == 0 {
		return []models.Message{}
	}

	trimmed := trimToFirstUserMessage(msgs)
	if dropped := len(msgs) - len(trimmed); dropped > 0 {
		slog.Debug("history sanitizer skipped leading messages", "count", dropped)
	}

	answered, orphans := pairToolCalls(trimmed)

	result := make([]models.Message, 0, len(trimmed))
	for i, msg := range trimmed {
		switch msg.Role {
		case models.RoleTool:
			if orphans[i] {
				slog.Debug("history sanitizer removed orphaned tool message", "index", i, "tool_call_id", msg.ToolCallID)
				continue
			}
			result = append(result, msg)
		case models.RoleAssistant:
			if len(msg.ToolCalls) == 0 {
				result = append(result, msg)
				continue
			}
			kept := make([]models.ToolInvocation, 0, len(msg.ToolCalls))
			for _, call := range msg.ToolCalls {
				if answered[callKey(call.ID, call.Name)] {
					kept = append(kept, call)
				}
			}
			if len(kept) < len(msg.ToolCalls) {
				slog.Debug("history sanitizer removed unanswered tool calls", "index", i, "count", len(msg.ToolCalls)-len(kept))
			}
			if len(kept) == 0 && msg.Content == "" {
				continue
			}
			msg.ToolCalls = kept
			result = append(result, msg)
		default:
			result = append(result, msg)
		}
	}
	return result
}

// trimToFirstUserMessage drops assistant and tool messages that precede the
// first user message. Without a user message only system messages survive.
func trimToFirstUserMessage(msgs []models.Message) []models.Message {
	out := []models.Message{}
	seenUser := false
	for _, msg := range msgs {
		if !seenUser {
			switch msg.Role {
			case models.RoleSystem:
				out = append(out, msg)
				continue
			case models.RoleUser:
				seenUser = true
			default:
				continue
			}
		}
		out = append(out, msg)
	}
	return out
}

// pairToolCalls matches tool messages to earlier tool calls in order. It
// returns the keys of answered calls and the indexes of orphaned tool
// messages.
func pairToolCalls(msgs []models.Message) (map[string]bool, map[int]bool) {
	pending := map[string]int{}
	answered := map[string]bool{}
	orphans := map[int]bool{}
	for i, msg := range msgs {
		switch msg.Role {
		case models.RoleAssistant:
			for _, call := range msg.ToolCalls {
				pending[callKey(call.ID, call.Name)]++
			}
		case models.RoleTool:
			key := callKey(msg.ToolCallID, msg.Name)
			if pending[key] == 0 {
				orphans[i] = true
				continue
			}
			pending[key]--
			answered[key] = true
		}
	}
	return answered, orphans
}

// callKey identifies a call by id, or by tool name when the backend sent no
// id.
func callKey(id, name string) string {
	if id != "" {
		return "id:" + id
	}
	return "name:" + name
}

// DetectCorruptedHistory lists the problems SanitizeHistory would repair.
// An empty slice means the history is clean.
func DetectCorruptedHistory(msgs []models.Message) []string {
	issues := []string{}
	if len(msgs) == 0 {
		return issues
	}

	for _, msg := range msgs {
		if msg.Role == models.RoleSystem {
			continue
		}
		if msg.Role == models.RoleTool {
			issues = append(issues, "history starts with a tool message")
		}
		if msg.Role == models.RoleAssistant && len(msg.ToolCalls) > 0 {
			issues = append(issues, "history starts with a tool call")
		}
		break
	}

	pending := map[string]int{}
	for _, msg := range msgs {
		switch msg.Role {
		case models.RoleAssistant:
			for _, call := range msg.ToolCalls {
				pending[callKey(call.ID, call.Name)]++
			}
		case models.RoleTool:
			key := callKey(msg.ToolCallID, msg.Name)
			if pending[key] == 0 {
				issues = append(issues, "tool message without a preceding tool call")
				continue
			}
			pending[key]--
		}
	}
	for _, n := range pending {
		if n > 0 {
			issues = append(issues, "tool call without a tool message")
			break
		}
	}
	return issues
}
