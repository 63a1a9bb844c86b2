package gemini

import (
	"testing"

	"github.com/kindtohomeless/outreach/models"
	"google.golang.org/genai"
)

func TestConvertMessagesSplitsSystem(t *testing.T) {
	call := models.ToolInvocation{ID: "c1", Name: "get_html", Args: map[string]any{"url": "https://example.org"}}
	contents, system := ConvertMessages([]models.Message{
		models.SystemMessage("be brief"),
		models.UserMessage("hello"),
		models.AssistantToolCall(call),
		models.ToolResult(call, "<html></html>"),
	})
	if system != "be brief" {
		t.Errorf("expected system instruction, got %q", system)
	}
	if len(contents) != 3 {
		t.Fatalf("expected 3 contents, got %d", len(contents))
	}
	if contents[1].Role != "model" || contents[1].Parts[0].FunctionCall.Name != "get_html" {
		t.Errorf("unexpected model content %+v", contents[1])
	}
	resp := contents[2].Parts[0].FunctionResponse
	if resp == nil || resp.Name != "get_html" || resp.Response["result"] != "<html></html>" {
		t.Errorf("unexpected function response %+v", resp)
	}
}

func TestConvertResponseCollectsCalls(t *testing.T) {
	out := convertResponse(&genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []*genai.Part{
				{Text: "checking"},
				{FunctionCall: &genai.FunctionCall{Name: "web_search", Args: map[string]any{"query": "food bank"}}},
			}},
		}},
	})
	if out.Content != "checking" {
		t.Errorf("expected text, got %q", out.Content)
	}
	if len(out.ToolCalls) != 1 || out.ToolCalls[0].Name != "web_search" || out.ToolCalls[0].ID == "" {
		t.Errorf("unexpected calls %+v", out.ToolCalls)
	}
}

func TestConvertResponseEmpty(t *testing.T) {
	out := convertResponse(&genai.GenerateContentResponse{})
	if out.Content != "" || out.HasToolCalls() {
		t.Errorf("expected empty response, got %+v", out)
	}
}
