package stores

import (
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/kindtohomeless/outreach/models"
)

// TraceObserver writes one ExecutionTrace per completed tool call. It
// satisfies the agent's Observer interface.
type TraceObserver struct {
	store  TraceStore
	logger *slog.Logger
}

func NewTraceObserver(store TraceStore, logger *slog.Logger) *TraceObserver {
	if logger == nil {
		logger = slog.Default()
	}
	return &TraceObserver{store: store, logger: logger}
}

func (o *TraceObserver) RoundStarted(runID string, round int) {}

func (o *TraceObserver) ToolCompleted(runID string, round int, call models.ToolInvocation, result interface{}, err error, elapsed time.Duration) {
	trace := &ExecutionTrace{
		RunID:      runID,
		ToolCallID: call.ID,
		TraceID:    uuid.NewString(),
		Round:      round,
		Tool:       call.Name,
		Status:     TraceStatusOK,
		Args:       call.Args,
		Timestamp:  time.Now().UnixMilli(),
		DurationMS: elapsed.Milliseconds(),
	}
	if err != nil {
		trace.Status = TraceStatusError
		trace.Error = err.Error()
	} else if data, mErr := json.Marshal(result); mErr == nil {
		trace.Result = data
	}
	if saveErr := o.store.SaveTrace(trace); saveErr != nil {
		o.logger.Warn("failed to save execution trace", "run_id", runID, "tool", call.Name, "error", saveErr)
	}
}

func (o *TraceObserver) RunFinished(runID, status string, rounds int) {
	o.logger.Debug("agent run finished", "run_id", runID, "status", status, "rounds", rounds)
}
