// Package modeltest provides a deterministic chat model for tests.
package modeltest

import (
	"context"
	"fmt"
	"sync"

	"github.com/kindtohomeless/outreach/models"
)

// Response configures one model turn in a scripted sequence.
type Response struct {
	Response models.ChatResponse
	Err      error
}

// ScriptedModel replays its responses in order and records every request.
// When Repeat is set the last response is replayed forever.
type ScriptedModel struct {
	mu        sync.Mutex
	index     int
	responses []Response
	requests  []models.ChatRequest
	Repeat    bool
}

func NewScriptedModel(responses ...Response) *ScriptedModel {
	cloned := make([]Response, len(responses))
	copy(cloned, responses)
	return &ScriptedModel{responses: cloned}
}

// Text is a shorthand for a final-answer turn.
func Text(content string) Response {
	return Response{Response: models.ChatResponse{Content: content}}
}

// Calls is a shorthand for a tool-call turn.
func Calls(calls ...models.ToolInvocation) Response {
	return Response{Response: models.ChatResponse{ToolCalls: calls}}
}

var _ models.ChatModel = (*ScriptedModel)(nil)

func (m *ScriptedModel) Chat(_ context.Context, request models.ChatRequest) (models.ChatResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	req := request
	req.Messages = models.CloneMessages(request.Messages)
	m.requests = append(m.requests, req)

	if m.index >= len(m.responses) {
		if !m.Repeat || len(m.responses) == 0 {
			return models.ChatResponse{}, fmt.Errorf("script exhausted at step %d", m.index+1)
		}
		m.index = len(m.responses) - 1
	}
	current := m.responses[m.index]
	m.index++
	if current.Err != nil {
		return models.ChatResponse{}, current.Err
	}
	return current.Response, nil
}

// Requests returns every request received so far.
func (m *ScriptedModel) Requests() []models.ChatRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.ChatRequest(nil), m.requests...)
}

// CallCount returns how many times Chat was invoked.
func (m *ScriptedModel) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.requests)
}
