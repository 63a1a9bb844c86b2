// Package openai adapts OpenAI-compatible chat completion servers (OpenAI,
// vLLM, llama.cpp server) to models.ChatModel.
package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/kindtohomeless/outreach/models"
	goopenai "github.com/sashabaranov/go-openai"
)

const (
	DefaultBaseURL = "http://localhost:8000/v1"
	DefaultModel   = "nvidia/Llama-3_3-Nemotron-Super-49B-v1_5"
)

// OpenAI_Model implements models.ChatModel over the /chat/completions API.
type OpenAI_Model struct {
	Model       string   // Model identifier served by the backend
	Temperature *float32 // Optional sampling temperature
	Logger      *slog.Logger

	client *goopenai.Client
}

// New creates a model bound to baseURL. An empty apiKey is allowed for local
// servers that do not check it.
func New(model, baseURL, apiKey string, httpClient *http.Client) *OpenAI_Model {
	if model == "" {
		model = DefaultModel
	}
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	cfg := goopenai.DefaultConfig(apiKey)
	cfg.BaseURL = baseURL
	if httpClient != nil {
		cfg.HTTPClient = httpClient
	}
	return &OpenAI_Model{
		Model:  model,
		Logger: slog.Default(),
		client: goopenai.NewClientWithConfig(cfg),
	}
}

var _ models.ChatModel = (*OpenAI_Model)(nil)

// Chat implements models.ChatModel
func (m *OpenAI_Model) Chat(ctx context.Context, request models.ChatRequest) (models.ChatResponse, error) {
	req := goopenai.ChatCompletionRequest{
		Model:     m.Model,
		Messages:  ConvertMessages(request.Messages),
		MaxTokens: request.MaxTokens,
	}
	if len(request.Tools) > 0 {
		req.Tools = ConvertToOpenAITools(request.Tools)
		choice := request.ToolChoice
		if choice == "" {
			choice = "auto"
		}
		req.ToolChoice = choice
	}
	if request.JSON {
		req.ResponseFormat = &goopenai.ChatCompletionResponseFormat{
			Type: goopenai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}
	if m.Temperature != nil {
		req.Temperature = *m.Temperature
	}

	resp, err := m.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return models.ChatResponse{}, fmt.Errorf("chat completion request failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return models.ChatResponse{}, &models.MalformedResponseError{
			Source: "chat backend",
			Err:    errors.New("response carried no choices"),
		}
	}
	return m.convertResponse(resp.Choices[0].Message), nil
}

// convertResponse converts the first choice to the standard ChatResponse
func (m *OpenAI_Model) convertResponse(msg goopenai.ChatCompletionMessage) models.ChatResponse {
	out := models.ChatResponse{Content: msg.Content}
	for _, tc := range msg.ToolCalls {
		args, err := models.DecodeArguments(tc.Function.Arguments)
		if err != nil {
			m.logger().Warn("failed to decode tool call arguments", "tool", tc.Function.Name, "err", err)
			args = map[string]interface{}{}
		}
		id := tc.ID
		if id == "" {
			id = "call_" + uuid.NewString()
		}
		out.ToolCalls = append(out.ToolCalls, models.ToolInvocation{
			ID:   id,
			Name: tc.Function.Name,
			Args: args,
		})
	}
	return out
}

func (m *OpenAI_Model) logger() *slog.Logger {
	if m.Logger == nil {
		return slog.Default()
	}
	return m.Logger
}

// ConvertMessages maps the neutral history onto chat completion messages.
// Arguments are re-encoded as JSON strings, the only form the API accepts.
func ConvertMessages(msgs []models.Message) []goopenai.ChatCompletionMessage {
	out := make([]goopenai.ChatCompletionMessage, 0, len(msgs))
	for _, msg := range msgs {
		m := goopenai.ChatCompletionMessage{
			Role:    msg.Role,
			Content: msg.Content,
		}
		switch msg.Role {
		case models.RoleTool:
			m.ToolCallID = msg.ToolCallID
			m.Name = msg.Name
		case models.RoleAssistant:
			for _, call := range msg.ToolCalls {
				argsBytes, _ := json.Marshal(call.Args)
				m.ToolCalls = append(m.ToolCalls, goopenai.ToolCall{
					ID:   call.ID,
					Type: goopenai.ToolTypeFunction,
					Function: goopenai.FunctionCall{
						Name:      call.Name,
						Arguments: string(argsBytes),
					},
				})
			}
		}
		out = append(out, m)
	}
	return out
}

// ConvertToOpenAITools converts declarations to the tools array
func ConvertToOpenAITools(fds []models.FunctionDeclaration) []goopenai.Tool {
	tools := make([]goopenai.Tool, len(fds))
	for i, fd := range fds {
		tools[i] = goopenai.Tool{
			Type: goopenai.ToolTypeFunction,
			Function: &goopenai.FunctionDefinition{
				Name:        fd.Name,
				Description: fd.Description,
				Parameters:  fd.Parameters.Schema(),
			},
		}
	}
	return tools
}
