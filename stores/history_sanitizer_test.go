package stores

import (
	"testing"

	"github.com/kindtohomeless/outreach/models"
)

func call(id, name string) models.Message {
	return models.AssistantToolCall(models.ToolInvocation{ID: id, Name: name})
}

func reply(id, name string) models.Message {
	return models.Message{Role: models.RoleTool, ToolCallID: id, Name: name, Content: `{"ok":true}`}
}

func assistant(text string) models.Message {
	return models.Message{Role: models.RoleAssistant, Content: text}
}

func roles(msgs []models.Message) []string {
	out := make([]string, len(msgs))
	for i, m := range msgs {
		out[i] = m.Role
	}
	return out
}

func TestSanitizeHistory_EmptyHistory(t *testing.T) {
	result := SanitizeHistory(nil)
	if result == nil || len(result) != 0 {
		t.Errorf("Expected empty non-nil result, got %v", result)
	}
}

func TestSanitizeHistory_ValidHistory(t *testing.T) {
	msgs := []models.Message{
		models.SystemMessage("be brief"),
		models.UserMessage("find shelters"),
		call("c1", "get_html"),
		reply("c1", "get_html"),
		assistant("found two"),
		models.UserMessage("thanks"),
	}
	result := SanitizeHistory(msgs)
	if len(result) != 6 {
		t.Errorf("Expected 6 messages, got %d", len(result))
	}
	if issues := DetectCorruptedHistory(msgs); len(issues) != 0 {
		t.Errorf("Expected clean history, got %v", issues)
	}
}

func TestSanitizeHistory_TruncatedMidToolCycle(t *testing.T) {
	msgs := []models.Message{
		call("c1", "get_html"),
		reply("c1", "get_html"),
		assistant("done"),
		models.UserMessage("next question"),
		assistant("answer"),
	}
	result := SanitizeHistory(msgs)
	if len(result) != 2 {
		t.Fatalf("Expected 2 messages, got %d (%v)", len(result), roles(result))
	}
	if result[0].Role != models.RoleUser {
		t.Errorf("Expected first message to be user, got %s", result[0].Role)
	}
}

func TestSanitizeHistory_OrphanedToolMessage(t *testing.T) {
	msgs := []models.Message{
		models.UserMessage("hi"),
		reply("ghost", "get_html"),
		assistant("hello"),
	}
	result := SanitizeHistory(msgs)
	if len(result) != 2 {
		t.Fatalf("Expected orphan removed, got %v", roles(result))
	}
	for _, m := range result {
		if m.Role == models.RoleTool {
			t.Errorf("Orphaned tool message survived")
		}
	}
}

func TestSanitizeHistory_UnansweredCallRemoved(t *testing.T) {
	msgs := []models.Message{
		models.UserMessage("hi"),
		call("c1", "get_html"),
		models.UserMessage("are you there?"),
		call("c2", "crawl_once"),
	}
	result := SanitizeHistory(msgs)
	if len(result) != 2 {
		t.Fatalf("Expected both unanswered calls removed, got %v", roles(result))
	}
}

func TestSanitizeHistory_PartiallyAnsweredCalls(t *testing.T) {
	msgs := []models.Message{
		models.UserMessage("hi"),
		{Role: models.RoleAssistant, ToolCalls: []models.ToolInvocation{{ID: "a", Name: "get_html"}, {ID: "b", Name: "crawl_once"}}},
		reply("a", "get_html"),
	}
	result := SanitizeHistory(msgs)
	if len(result) != 3 {
		t.Fatalf("Expected 3 messages, got %v", roles(result))
	}
	if got := result[1].ToolCalls; len(got) != 1 || got[0].ID != "a" {
		t.Errorf("Expected only call a to remain, got %v", got)
	}
}

func TestSanitizeHistory_CallsWithoutIDsMatchByName(t *testing.T) {
	msgs := []models.Message{
		models.UserMessage("hi"),
		call("", "get_html"),
		reply("", "get_html"),
	}
	result := SanitizeHistory(msgs)
	if len(result) != 3 {
		t.Errorf("Expected id-less cycle kept, got %v", roles(result))
	}
}

func TestSanitizeHistory_NoUserMessage(t *testing.T) {
	msgs := []models.Message{
		models.SystemMessage("rules"),
		assistant("orphan answer"),
	}
	result := SanitizeHistory(msgs)
	if len(result) != 1 || result[0].Role != models.RoleSystem {
		t.Errorf("Expected only the system message, got %v", roles(result))
	}
}

func TestDetectCorruptedHistory(t *testing.T) {
	msgs := []models.Message{
		reply("x", "get_html"),
		models.UserMessage("hi"),
		call("c1", "get_html"),
	}
	issues := DetectCorruptedHistory(msgs)
	want := map[string]bool{
		"history starts with a tool message":         true,
		"tool message without a preceding tool call": true,
		"tool call without a tool message":           true,
	}
	if len(issues) != len(want) {
		t.Fatalf("Expected %d issues, got %v", len(want), issues)
	}
	for _, issue := range issues {
		if !want[issue] {
			t.Errorf("Unexpected issue %q", issue)
		}
	}
}
