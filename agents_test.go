package outreach

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/kindtohomeless/outreach/common_tools"
	"github.com/kindtohomeless/outreach/models"
	"github.com/kindtohomeless/outreach/models/modeltest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type lookupParams struct {
	Term string `json:"term"`
}

func lookupTool(calls *int) common_tools.Tool {
	return common_tools.Tool{
		Declaration: models.FunctionDeclaration{
			Name:        "lookup",
			Description: "Look up a term.",
			Parameters: models.Parameters{
				Type: "object",
				Properties: map[string]interface{}{
					"term": map[string]interface{}{"type": "string"},
				},
				Required: []string{"term"},
			},
		},
		Handler: common_tools.Bind(nil, func(ctx context.Context, p lookupParams) (interface{}, error) {
			*calls++
			if p.Term == "boom" {
				return nil, errors.New("lookup exploded")
			}
			return map[string]string{"term": p.Term, "hit": "yes"}, nil
		}),
	}
}

func invoke(id, name string, args map[string]interface{}) models.ToolInvocation {
	return models.ToolInvocation{ID: id, Name: name, Args: args}
}

func toolMessages(msgs []models.Message) []models.Message {
	var out []models.Message
	for _, m := range msgs {
		if m.Role == models.RoleTool {
			out = append(out, m)
		}
	}
	return out
}

func TestRunAnswersAfterToolRounds(t *testing.T) {
	var calls int
	model := modeltest.NewScriptedModel(
		modeltest.Calls(invoke("c1", "lookup", map[string]interface{}{"term": "shelter"})),
		modeltest.Calls(invoke("c2", "lookup", map[string]interface{}{"term": "meals"})),
		modeltest.Text("Shelter and meals found."),
	)
	agent := NewAgent(model, common_tools.MustRegistry(lookupTool(&calls)), nil)

	res, err := agent.Run(context.Background(), "find shelter")
	require.NoError(t, err)
	assert.Equal(t, StatusAnswered, res.Status)
	assert.Equal(t, 3, res.Rounds)
	assert.Equal(t, "Shelter and meals found.", res.Answer)
	assert.False(t, res.Structured)
	assert.Equal(t, 2, calls)

	tools := toolMessages(res.Messages)
	require.Len(t, tools, 2)
	assert.Equal(t, "c1", tools[0].ToolCallID)
	assert.JSONEq(t, `{"term":"shelter","hit":"yes"}`, tools[0].Content)

	// The third request carries both completed cycles.
	reqs := model.Requests()
	require.Len(t, reqs, 3)
	assert.Len(t, reqs[2].Messages, 2+4)
	assert.Equal(t, "auto", reqs[0].ToolChoice)
	assert.Equal(t, 512, reqs[0].MaxTokens)
	assert.Equal(t, DefaultSystemPrompt, reqs[0].Messages[0].Content)
	require.Len(t, reqs[0].Tools, 1)
}

func TestRunDecodesStructuredAnswer(t *testing.T) {
	model := modeltest.NewScriptedModel(modeltest.Text(`{"shelters": ["Hope House"]}`))
	agent := NewAgent(model, common_tools.MustRegistry(), nil)

	res, err := agent.Run(context.Background(), "list shelters")
	require.NoError(t, err)
	assert.True(t, res.Structured)
	assert.Equal(t, map[string]interface{}{"shelters": []interface{}{"Hope House"}}, res.Answer)
	assert.Equal(t, 1, res.Rounds)
	assert.Empty(t, model.Requests()[0].ToolChoice)
}

func TestRunExhaustsAfterMaxRounds(t *testing.T) {
	var calls int
	model := modeltest.NewScriptedModel(modeltest.Calls(
		invoke("c", "lookup", map[string]interface{}{"term": "again"}),
		invoke("d", "crawl_more", nil),
	))
	model.Repeat = true
	agent := NewAgent(model, common_tools.MustRegistry(lookupTool(&calls)), nil)

	res, err := agent.Run(context.Background(), "loop forever")
	require.NoError(t, err)
	assert.Equal(t, StatusExhausted, res.Status)
	assert.Equal(t, DefaultMaxRounds, res.Rounds)
	assert.Equal(t, DefaultMaxRounds, model.CallCount())
	assert.Equal(t, DefaultMaxRounds, calls)

	payload, ok := res.Answer.(ExhaustedPayload)
	require.True(t, ok)
	assert.Equal(t, "stopped after 4 tool rounds", payload.Detail)
	assert.Equal(t, []string{"lookup", "crawl_more"}, payload.PendingToolCalls)
	assert.JSONEq(t, `{"status":"exhausted","detail":"stopped after 4 tool rounds","pending_tool_calls":["lookup","crawl_more"]}`, res.Text)
	assert.Len(t, toolMessages(res.Messages), 2*DefaultMaxRounds)
}

func TestRunReportsToolFailuresToModel(t *testing.T) {
	var calls int
	model := modeltest.NewScriptedModel(
		modeltest.Calls(
			invoke("a", "missing_tool", nil),
			invoke("b", "lookup", map[string]interface{}{"term": "boom"}),
			invoke("c", "lookup", map[string]interface{}{}),
			invoke("d", "lookup", map[string]interface{}{"term": "ok"}),
		),
		modeltest.Text("done"),
	)
	agent := NewAgent(model, common_tools.MustRegistry(lookupTool(&calls)), nil)

	res, err := agent.Run(context.Background(), "try everything")
	require.NoError(t, err)
	assert.Equal(t, StatusAnswered, res.Status)

	tools := toolMessages(res.Messages)
	require.Len(t, tools, 4)
	assert.Contains(t, tools[0].Content, `unknown tool \"missing_tool\"`)
	assert.Contains(t, tools[1].Content, "lookup exploded")
	assert.Contains(t, tools[2].Content, "is required")
	assert.JSONEq(t, `{"term":"ok","hit":"yes"}`, tools[3].Content)
	assert.Equal(t, 2, calls)
}

func TestRunBackendErrorIsReturned(t *testing.T) {
	model := modeltest.NewScriptedModel(modeltest.Response{Err: errors.New("connection refused")})
	agent := NewAgent(model, common_tools.MustRegistry(), nil)

	_, err := agent.Run(context.Background(), "hello")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "round 1")
	assert.Equal(t, 1, model.CallCount())
}

func TestRunApproverRefusal(t *testing.T) {
	var calls int
	model := modeltest.NewScriptedModel(
		modeltest.Calls(invoke("c1", "lookup", map[string]interface{}{"term": "x"})),
		modeltest.Text("ok"),
	)
	cfg := NewAgentConfig().WithApprover(ApproveOnly("get_html"))
	agent := NewAgent(model, common_tools.MustRegistry(lookupTool(&calls)), cfg)

	res, err := agent.Run(context.Background(), "q")
	require.NoError(t, err)
	assert.Equal(t, 0, calls)
	assert.Contains(t, toolMessages(res.Messages)[0].Content, "was not approved")
}

func TestRunSanitizesHistory(t *testing.T) {
	model := modeltest.NewScriptedModel(modeltest.Text("hi again"))
	agent := NewAgent(model, common_tools.MustRegistry(), NewAgentConfig().WithSystemPrompt("custom"))

	history := []models.Message{
		{Role: models.RoleTool, ToolCallID: "orphan", Name: "lookup", Content: "{}"},
		models.UserMessage("earlier question"),
		{Role: models.RoleAssistant, Content: "earlier answer"},
	}
	_, err := agent.Run(context.Background(), "new question", history...)
	require.NoError(t, err)

	sent := model.Requests()[0].Messages
	require.Len(t, sent, 4)
	assert.Equal(t, "custom", sent[0].Content)
	assert.Equal(t, "earlier question", sent[1].Content)
	assert.Equal(t, "new question", sent[3].Content)
}

type recordingObserver struct {
	mu     sync.Mutex
	events []string
}

func (r *recordingObserver) add(e string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recordingObserver) RoundStarted(runID string, round int) { r.add("round") }
func (r *recordingObserver) ToolCompleted(runID string, round int, call models.ToolInvocation, result interface{}, err error, elapsed time.Duration) {
	if err != nil {
		r.add("tool-error:" + call.Name)
		return
	}
	r.add("tool:" + call.Name)
}
func (r *recordingObserver) RunFinished(runID, status string, rounds int) { r.add("finished:" + status) }

func TestRunNotifiesObservers(t *testing.T) {
	var calls int
	model := modeltest.NewScriptedModel(
		modeltest.Calls(invoke("c1", "lookup", map[string]interface{}{"term": "x"}), invoke("c2", "nope", nil)),
		modeltest.Text("ok"),
	)
	base := &recordingObserver{}
	extra := &recordingObserver{}
	agent := NewAgent(model, common_tools.MustRegistry(lookupTool(&calls)), NewAgentConfig().WithObserver(base))

	_, err := agent.WithObserver(extra).Run(context.Background(), "q")
	require.NoError(t, err)

	want := []string{"round", "tool:lookup", "tool-error:nope", "round", "finished:answered"}
	assert.Equal(t, want, base.events)
	assert.Equal(t, want, extra.events)
}

func TestRunCustomRoundCap(t *testing.T) {
	var calls int
	model := modeltest.NewScriptedModel(modeltest.Calls(invoke("c", "lookup", map[string]interface{}{"term": "x"})))
	model.Repeat = true
	agent := NewAgent(model, common_tools.MustRegistry(lookupTool(&calls)), NewAgentConfig().WithMaxRounds(2))

	res, err := agent.Run(context.Background(), "q")
	require.NoError(t, err)
	assert.Equal(t, StatusExhausted, res.Status)
	assert.True(t, strings.Contains(res.Text, "stopped after 2 tool rounds"))
}
