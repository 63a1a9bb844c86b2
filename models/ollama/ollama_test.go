package ollama

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/kindtohomeless/outreach/models"
)

func TestChatAcceptsDecodedArguments(t *testing.T) {
	var captured map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &captured)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{
			"model": "llama3.1",
			"message": {
				"role": "assistant",
				"content": "",
				"tool_calls": [{"function": {"name": "crawl_once", "arguments": {"url": "https://example.org", "terms": ["shelter"]}}}]
			},
			"done": true
		}`)
	}))
	defer srv.Close()

	m, err := New("llama3.1", srv.URL, srv.Client())
	if err != nil {
		t.Fatal(err)
	}
	resp, err := m.Chat(context.Background(), models.ChatRequest{
		Messages: []models.Message{models.SystemMessage("sys"), models.UserMessage("go")},
		Tools: []models.FunctionDeclaration{{
			Name:       "crawl_once",
			Parameters: models.Parameters{Type: "object", Properties: map[string]interface{}{"url": map[string]interface{}{"type": "string"}}},
		}},
		MaxTokens: 128,
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(resp.ToolCalls) != 1 {
		t.Fatalf("expected one tool call, got %d", len(resp.ToolCalls))
	}
	call := resp.ToolCalls[0]
	if call.Name != "crawl_once" || call.Args["url"] != "https://example.org" {
		t.Errorf("unexpected call %+v", call)
	}
	if !strings.HasPrefix(call.ID, "call_") {
		t.Errorf("expected synthesized id, got %q", call.ID)
	}
	if captured["stream"] != false {
		t.Errorf("expected stream false, got %v", captured["stream"])
	}
	if tools, _ := captured["tools"].([]interface{}); len(tools) != 1 {
		t.Errorf("expected tools to be sent, got %v", captured["tools"])
	}
}

func TestChatReturnsContent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"model": "m", "message": {"role": "assistant", "content": "food_bank, shelter"}, "done": true}`)
	}))
	defer srv.Close()

	m, err := New("m", srv.URL, srv.Client())
	if err != nil {
		t.Fatal(err)
	}
	resp, err := m.Chat(context.Background(), models.ChatRequest{Messages: []models.Message{models.UserMessage("hungry")}})
	if err != nil {
		t.Fatal(err)
	}
	if resp.Content != "food_bank, shelter" || resp.HasToolCalls() {
		t.Errorf("unexpected response %+v", resp)
	}
}

type recordingTransport struct {
	host string
}

func (rt *recordingTransport) RoundTrip(r *http.Request) (*http.Response, error) {
	rt.host = r.URL.Host
	return &http.Response{
		StatusCode: http.StatusOK,
		Header:     http.Header{"Content-Type": {"application/json"}},
		Body:       io.NopCloser(strings.NewReader(`{"model": "m", "message": {"role": "assistant", "content": "ok"}, "done": true}`)),
		Request:    r,
	}, nil
}

func TestNewDefaultsToOllamaPort(t *testing.T) {
	rt := &recordingTransport{}
	m, err := New("", "", &http.Client{Transport: rt})
	if err != nil {
		t.Fatal(err)
	}
	if m.Model != DefaultModel {
		t.Errorf("expected model %q, got %q", DefaultModel, m.Model)
	}
	if _, err := m.Chat(context.Background(), models.ChatRequest{Messages: []models.Message{models.UserMessage("hi")}}); err != nil {
		t.Fatal(err)
	}
	if rt.host != "127.0.0.1:11434" {
		t.Errorf("expected default host 127.0.0.1:11434, got %q", rt.host)
	}
}
