// Package gemini adapts the Gemini API to models.ChatModel.
package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/kindtohomeless/outreach/models"
	"google.golang.org/genai"
)

const DefaultModel = "gemini-2.0-flash"

type Gemini_Model struct {
	Model  string
	client *genai.Client
}

// New creates a Gemini model using apiKey; an empty key lets the SDK read
// GEMINI_API_KEY / GOOGLE_API_KEY from the environment.
func New(ctx context.Context, model, apiKey string) (*Gemini_Model, error) {
	if model == "" {
		model = DefaultModel
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return &Gemini_Model{Model: model, client: client}, nil
}

var _ models.ChatModel = (*Gemini_Model)(nil)

func (g *Gemini_Model) Chat(ctx context.Context, request models.ChatRequest) (models.ChatResponse, error) {
	contents, system := ConvertMessages(request.Messages)
	if len(contents) == 0 {
		return models.ChatResponse{}, fmt.Errorf("cannot create Gemini request with no messages")
	}

	config := &genai.GenerateContentConfig{}
	if system != "" {
		config.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: system}}}
	}
	if request.MaxTokens > 0 {
		config.MaxOutputTokens = int32(request.MaxTokens)
	}
	if request.JSON {
		config.ResponseMIMEType = "application/json"
	}
	if len(request.Tools) > 0 {
		config.Tools = []*genai.Tool{{FunctionDeclarations: ConvertToGeminiTools(request.Tools)}}
	}

	result, err := g.client.Models.GenerateContent(ctx, g.Model, contents, config)
	if err != nil {
		return models.ChatResponse{}, fmt.Errorf("gemini request failed: %w", err)
	}
	return convertResponse(result), nil
}

func convertResponse(result *genai.GenerateContentResponse) models.ChatResponse {
	var out models.ChatResponse
	if result == nil || len(result.Candidates) == 0 || result.Candidates[0].Content == nil {
		return out
	}
	var text strings.Builder
	for _, part := range result.Candidates[0].Content.Parts {
		if part == nil {
			continue
		}
		if part.Text != "" && !part.Thought {
			text.WriteString(part.Text)
		}
		if part.FunctionCall != nil {
			id := part.FunctionCall.ID
			if id == "" {
				id = "call_" + uuid.NewString()
			}
			args := part.FunctionCall.Args
			if args == nil {
				args = map[string]any{}
			}
			out.ToolCalls = append(out.ToolCalls, models.ToolInvocation{
				ID:   id,
				Name: part.FunctionCall.Name,
				Args: args,
			})
		}
	}
	out.Content = text.String()
	return out
}

// ConvertMessages splits the history into Gemini contents and the system
// instruction. Gemini has no tool role: results travel as user-authored
// function responses.
func ConvertMessages(msgs []models.Message) ([]*genai.Content, string) {
	var (
		contents []*genai.Content
		system   []string
	)
	for _, msg := range msgs {
		switch msg.Role {
		case models.RoleSystem:
			system = append(system, msg.Content)
		case models.RoleUser:
			contents = append(contents, &genai.Content{Role: "user", Parts: []*genai.Part{{Text: msg.Content}}})
		case models.RoleAssistant:
			c := &genai.Content{Role: "model"}
			if msg.Content != "" {
				c.Parts = append(c.Parts, &genai.Part{Text: msg.Content})
			}
			for _, call := range msg.ToolCalls {
				c.Parts = append(c.Parts, &genai.Part{FunctionCall: &genai.FunctionCall{
					ID:   call.ID,
					Name: call.Name,
					Args: call.Args,
				}})
			}
			if len(c.Parts) > 0 {
				contents = append(contents, c)
			}
		case models.RoleTool:
			contents = append(contents, &genai.Content{Role: "user", Parts: []*genai.Part{{
				FunctionResponse: &genai.FunctionResponse{
					ID:       msg.ToolCallID,
					Name:     msg.Name,
					Response: responsePayload(msg.Content),
				},
			}}})
		}
	}
	return contents, strings.Join(system, "\n\n")
}

// responsePayload decodes a tool message body; Gemini requires an object so
// anything else is wrapped under "result".
func responsePayload(content string) map[string]any {
	var v any
	if err := json.Unmarshal([]byte(content), &v); err != nil {
		return map[string]any{"result": content}
	}
	if obj, ok := v.(map[string]any); ok {
		return obj
	}
	return map[string]any{"result": v}
}

// ConvertToGeminiTools converts declarations to Gemini function declarations
func ConvertToGeminiTools(fds []models.FunctionDeclaration) []*genai.FunctionDeclaration {
	decls := make([]*genai.FunctionDeclaration, len(fds))
	for i, fd := range fds {
		decls[i] = &genai.FunctionDeclaration{
			Name:                 fd.Name,
			Description:          fd.Description,
			ParametersJsonSchema: fd.Parameters.Schema(),
		}
	}
	return decls
}
