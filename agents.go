// Package outreach runs the web-scraping agent: a bounded tool-use loop
// between a chat backend and the scraping toolset.
package outreach

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/kindtohomeless/outreach/common_tools"
	"github.com/kindtohomeless/outreach/models"
	"github.com/kindtohomeless/outreach/stores"
)

// Run statuses.
const (
	StatusAnswered  = "answered"
	StatusExhausted = "exhausted"
)

// RunResult is the outcome of one agent run. Answer holds the decoded JSON
// answer when Structured is set, the raw text otherwise, or the exhausted
// payload.
type RunResult struct {
	RunID      string           `json:"run_id"`
	Status     string           `json:"status"`
	Answer     interface{}      `json:"answer"`
	Text       string           `json:"text"`
	Structured bool             `json:"structured"`
	Rounds     int              `json:"rounds"`
	Messages   []models.Message `json:"messages,omitempty"`
}

// ExhaustedPayload is the answer of a run that hit the round cap while the
// model was still calling tools.
type ExhaustedPayload struct {
	Status           string   `json:"status"`
	Detail           string   `json:"detail"`
	PendingToolCalls []string `json:"pending_tool_calls"`
}

type Agent struct {
	model    models.ChatModel
	registry *common_tools.Registry
	config   *AgentConfig
}

// NewAgent binds a chat backend to a tool registry. A nil cfg uses
// NewAgentConfig defaults.
func NewAgent(model models.ChatModel, registry *common_tools.Registry, cfg *AgentConfig) *Agent {
	if cfg == nil {
		cfg = NewAgentConfig()
	}
	if registry == nil {
		registry = common_tools.MustRegistry()
	}
	return &Agent{model: model, registry: registry, config: cfg}
}

// Tools returns the declarations sent to the model.
func (agent *Agent) Tools() []models.FunctionDeclaration {
	return agent.registry.Declarations()
}

// Run answers query, letting the model call tools for at most MaxRounds
// round-trips. history is sanitized before use. Tool failures are reported
// to the model as tool results; only a chat backend failure ends the run
// with an error.
func (agent *Agent) Run(ctx context.Context, query string, history ...models.Message) (RunResult, error) {
	cfg := agent.config
	result := RunResult{RunID: uuid.NewString()}
	log := cfg.Logger.With("run_id", result.RunID)

	if issues := stores.DetectCorruptedHistory(history); len(issues) > 0 {
		log.Warn("repairing supplied history", "issues", strings.Join(issues, "; "))
	}
	clean := stores.SanitizeHistory(history)

	messages := make([]models.Message, 0, len(clean)+2)
	if len(clean) == 0 || clean[0].Role != models.RoleSystem {
		messages = append(messages, models.SystemMessage(cfg.SystemPrompt))
	}
	messages = append(messages, clean...)
	messages = append(messages, models.UserMessage(query))

	tools := agent.registry.Declarations()
	toolChoice := ""
	if len(tools) > 0 {
		toolChoice = cfg.ToolChoice
	}

	var lastCalls []string
	for round := 1; round <= cfg.MaxRounds; round++ {
		result.Rounds = round
		cfg.Observer.RoundStarted(result.RunID, round)

		resp, err := agent.model.Chat(ctx, models.ChatRequest{
			Messages:   messages,
			Tools:      tools,
			ToolChoice: toolChoice,
			MaxTokens:  cfg.MaxTokens,
		})
		if err != nil {
			result.Messages = messages
			cfg.Observer.RunFinished(result.RunID, "failed", round)
			return result, fmt.Errorf("chat backend failed in round %d: %w", round, err)
		}

		if !resp.HasToolCalls() {
			result.Status = StatusAnswered
			result.Text = resp.Content
			result.Answer, result.Structured = decodeAnswer(resp.Content)
			messages = append(messages, models.Message{Role: models.RoleAssistant, Content: resp.Content})
			result.Messages = messages
			log.Info("agent answered", "rounds", round, "structured", result.Structured)
			cfg.Observer.RunFinished(result.RunID, result.Status, round)
			return result, nil
		}

		lastCalls = lastCalls[:0]
		for _, call := range resp.ToolCalls {
			lastCalls = append(lastCalls, call.Name)
			messages = append(messages,
				models.AssistantToolCall(call),
				agent.executeTool(ctx, log, result.RunID, round, call),
			)
		}
	}

	payload := ExhaustedPayload{
		Status:           StatusExhausted,
		Detail:           fmt.Sprintf("stopped after %d tool rounds", cfg.MaxRounds),
		PendingToolCalls: append([]string{}, lastCalls...),
	}
	text, _ := json.Marshal(payload)
	result.Status = StatusExhausted
	result.Answer = payload
	result.Text = string(text)
	result.Structured = true
	result.Messages = messages
	log.Warn("agent stopped at round cap", "rounds", cfg.MaxRounds, "pending", payload.PendingToolCalls)
	cfg.Observer.RunFinished(result.RunID, result.Status, cfg.MaxRounds)
	return result, nil
}

// executeTool approves and dispatches one call and returns the tool message
// answering it. Failures become an {"error": ...} result.
func (agent *Agent) executeTool(ctx context.Context, log *slog.Logger, runID string, round int, call models.ToolInvocation) models.Message {
	if call.Args == nil {
		call.Args = map[string]interface{}{}
	}
	start := time.Now()
	var (
		out interface{}
		err error
	)
	approved, approveErr := agent.config.Approver(call.Name, call.Args)
	switch {
	case approveErr != nil:
		err = fmt.Errorf("approval failed for %s: %w", call.Name, approveErr)
	case !approved:
		err = &ToolRefusedError{Name: call.Name}
	default:
		out, err = agent.registry.Dispatch(ctx, call.Name, call.Args)
	}
	elapsed := time.Since(start)
	agent.config.Observer.ToolCompleted(runID, round, call, out, err, elapsed)

	if err != nil {
		log.Warn("tool call failed", "tool", call.Name, "round", round, "error", err)
		return models.ToolResult(call, map[string]string{"error": err.Error()})
	}
	log.Debug("tool call finished", "tool", call.Name, "round", round, "elapsed", elapsed)
	return models.ToolResult(call, out)
}

// decodeAnswer returns the JSON value of content when it parses, or content
// itself.
func decodeAnswer(content string) (interface{}, bool) {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return content, false
	}
	var v interface{}
	if err := json.Unmarshal([]byte(trimmed), &v); err != nil {
		return content, false
	}
	return v, true
}

// WithObserver returns a copy of the agent that also notifies o. The
// configured observer keeps receiving events.
func (agent *Agent) WithObserver(o Observer) *Agent {
	cfg := *agent.config
	cfg.Observer = Observers(agent.config.Observer, o)
	return &Agent{model: agent.model, registry: agent.registry, config: &cfg}
}
