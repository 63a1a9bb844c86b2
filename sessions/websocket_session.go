package sessions

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/kindtohomeless/outreach/models"
)

// Serve reads queries until the client disconnects or ctx ends. Queries run
// one at a time in arrival order.
func (as *AgentSession) Serve(ctx context.Context) error {
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		var msg ClientMessage
		if err := as.Writer.Conn.ReadJSON(&msg); err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				as.Logger.Debug("client closed session")
				return nil
			}
			return err
		}
		if err := as.RunInteraction(ctx, msg); err != nil {
			var agentErr *AgentError
			if errors.As(err, &agentErr) && !agentErr.Fatal {
				continue
			}
			return err
		}
	}
}

// RunInteraction runs one query, streaming round and tool events, then the
// result and a done marker.
func (as *AgentSession) RunInteraction(ctx context.Context, msg ClientMessage) error {
	if msg.Type != "" && msg.Type != "query" {
		return as.sendError("unsupported message type: "+msg.Type, false)
	}
	if strings.TrimSpace(msg.Query) == "" {
		return as.sendError("query cannot be empty", false)
	}

	as.Writer.StartTime = time.Now()
	result, err := as.Agent.WithObserver(as).Run(ctx, msg.Query, msg.History...)
	if err != nil {
		as.Logger.Warn("agent run failed", "error", err)
		return as.sendError("agent run failed: "+err.Error(), false)
	}
	result.Messages = nil
	if err := as.Writer.WriteResponse(ResultMessage{Type: TypeResult, Result: result}); err != nil {
		return &AgentError{Message: "error writing result", Fatal: true}
	}
	return as.Writer.WriteDone()
}

func (as *AgentSession) sendError(message string, fatal bool) error {
	if err := as.Writer.WriteError(message); err != nil {
		return &AgentError{Message: "error writing to client", Fatal: true}
	}
	return &AgentError{Message: message, Fatal: fatal}
}

// RoundStarted implements outreach.Observer.
func (as *AgentSession) RoundStarted(runID string, round int) {
	if err := as.Writer.WriteResponse(RoundMessage{Type: TypeRound, RunID: runID, Round: round}); err != nil {
		as.Logger.Debug("error writing round event", "error", err)
	}
}

// ToolCompleted implements outreach.Observer.
func (as *AgentSession) ToolCompleted(runID string, round int, call models.ToolInvocation, result interface{}, err error, elapsed time.Duration) {
	msg := ToolResultMessage{
		Type:       TypeToolResult,
		RunID:      runID,
		Round:      round,
		Tool:       call.Name,
		ToolCallID: call.ID,
		OK:         err == nil,
		Result:     result,
		ElapsedMS:  elapsed.Milliseconds(),
	}
	if err != nil {
		msg.Error = err.Error()
	}
	if writeErr := as.Writer.WriteResponse(msg); writeErr != nil {
		as.Logger.Debug("error writing tool event", "error", writeErr)
	}
}

// RunFinished implements outreach.Observer.
func (as *AgentSession) RunFinished(runID, status string, rounds int) {
	as.Logger.Debug("run finished", "run_id", runID, "status", status, "rounds", rounds)
}
