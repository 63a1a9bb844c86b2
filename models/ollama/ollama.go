// Package ollama adapts an Ollama server's /api/chat endpoint to
// models.ChatModel.
package ollama

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/kindtohomeless/outreach/models"
	ollama "github.com/ollama/ollama/api"
)

const (
	DefaultHost  = "http://127.0.0.1:11434"
	DefaultModel = "llama3.1"
)

// Ollama_Model implements models.ChatModel against an Ollama server.
type Ollama_Model struct {
	Model   string
	Options map[string]interface{} // Passed through as Ollama model options
	Logger  *slog.Logger

	client *ollama.Client
}

// New creates a model for the Ollama server at host.
func New(model, host string, httpClient *http.Client) (*Ollama_Model, error) {
	if model == "" {
		model = DefaultModel
	}
	if host == "" {
		host = DefaultHost
	}
	u, err := url.Parse(host)
	if err != nil {
		return nil, fmt.Errorf("invalid ollama host %q: %w", host, err)
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 120 * time.Second}
	}
	return &Ollama_Model{
		Model:  model,
		Logger: slog.Default(),
		client: ollama.NewClient(u, httpClient),
	}, nil
}

var _ models.ChatModel = (*Ollama_Model)(nil)

// Chat implements models.ChatModel with stream disabled; the callback still
// accumulates in case the server splits the answer.
func (m *Ollama_Model) Chat(ctx context.Context, request models.ChatRequest) (models.ChatResponse, error) {
	messages, err := ConvertMessages(request.Messages)
	if err != nil {
		return models.ChatResponse{}, err
	}

	stream := false
	req := &ollama.ChatRequest{
		Model:    m.Model,
		Messages: messages,
		Stream:   &stream,
		Options:  m.options(request.MaxTokens),
	}
	if len(request.Tools) > 0 {
		tools, err := ConvertToOllamaTools(request.Tools)
		if err != nil {
			return models.ChatResponse{}, err
		}
		req.Tools = tools
	}
	if request.JSON {
		req.Format = json.RawMessage(`"json"`)
	}

	var (
		content strings.Builder
		calls   []models.ToolInvocation
	)
	err = m.client.Chat(ctx, req, func(resp ollama.ChatResponse) error {
		content.WriteString(resp.Message.Content)
		for _, tc := range resp.Message.ToolCalls {
			args, err := models.DecodeArguments(tc.Function.Arguments)
			if err != nil {
				m.logger().Warn("failed to decode tool call arguments", "tool", tc.Function.Name, "err", err)
				args = map[string]interface{}{}
			}
			calls = append(calls, models.ToolInvocation{
				// Ollama does not correlate calls by id; synthesize one.
				ID:   "call_" + uuid.NewString(),
				Name: tc.Function.Name,
				Args: args,
			})
		}
		return nil
	})
	if err != nil {
		return models.ChatResponse{}, fmt.Errorf("ollama chat request failed: %w", err)
	}
	return models.ChatResponse{Content: content.String(), ToolCalls: calls}, nil
}

func (m *Ollama_Model) options(maxTokens int) map[string]interface{} {
	opts := make(map[string]interface{}, len(m.Options)+1)
	for k, v := range m.Options {
		opts[k] = v
	}
	if maxTokens > 0 {
		opts["num_predict"] = maxTokens
	}
	return opts
}

func (m *Ollama_Model) logger() *slog.Logger {
	if m.Logger == nil {
		return slog.Default()
	}
	return m.Logger
}

// wire shapes mirror the /api/chat JSON; converting through them keeps this
// adapter independent of the SDK's Go field layout.
type wireMessage struct {
	Role      string         `json:"role"`
	Content   string         `json:"content"`
	ToolCalls []wireToolCall `json:"tool_calls,omitempty"`
	ToolName  string         `json:"tool_name,omitempty"`
}

type wireToolCall struct {
	Function wireFunction `json:"function"`
}

type wireFunction struct {
	Name      string                 `json:"name"`
	Arguments map[string]interface{} `json:"arguments"`
}

type wireTool struct {
	Type     string       `json:"type"`
	Function wireToolSpec `json:"function"`
}

type wireToolSpec struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	Parameters  map[string]interface{} `json:"parameters"`
}

// ConvertMessages maps the neutral history to Ollama messages. Tool results
// are correlated by tool name, which is all the Ollama API carries.
func ConvertMessages(msgs []models.Message) ([]ollama.Message, error) {
	wire := make([]wireMessage, 0, len(msgs))
	for _, msg := range msgs {
		w := wireMessage{Role: msg.Role, Content: msg.Content}
		if msg.Role == models.RoleTool {
			w.ToolName = msg.Name
		}
		for _, call := range msg.ToolCalls {
			args := call.Args
			if args == nil {
				args = map[string]interface{}{}
			}
			w.ToolCalls = append(w.ToolCalls, wireToolCall{Function: wireFunction{Name: call.Name, Arguments: args}})
		}
		wire = append(wire, w)
	}
	var out []ollama.Message
	if err := roundTrip(wire, &out); err != nil {
		return nil, fmt.Errorf("failed to convert messages: %w", err)
	}
	return out, nil
}

// ConvertToOllamaTools converts declarations to Ollama tool definitions
func ConvertToOllamaTools(fds []models.FunctionDeclaration) (ollama.Tools, error) {
	wire := make([]wireTool, len(fds))
	for i, fd := range fds {
		wire[i] = wireTool{
			Type: "function",
			Function: wireToolSpec{
				Name:        fd.Name,
				Description: fd.Description,
				Parameters:  fd.Parameters.Schema(),
			},
		}
	}
	var tools ollama.Tools
	if err := roundTrip(wire, &tools); err != nil {
		return nil, fmt.Errorf("failed to convert tools: %w", err)
	}
	return tools, nil
}

func roundTrip(in, out interface{}) error {
	b, err := json.Marshal(in)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, out)
}
