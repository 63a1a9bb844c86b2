package sessions

import (
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/kindtohomeless/outreach"
	"github.com/kindtohomeless/outreach/models"
)

// Message types written to the client.
const (
	TypeRound      = "round"
	TypeToolResult = "tool_result"
	TypeResult     = "result"
	TypeError      = "error"
	TypeDone       = "done"
)

// ClientMessage is a request read from the client.
type ClientMessage struct {
	Type    string           `json:"type"` // "query"
	Query   string           `json:"query"`
	History []models.Message `json:"history,omitempty"`
}

// RoundMessage announces a model round-trip.
type RoundMessage struct {
	Type  string `json:"type"`
	RunID string `json:"run_id"`
	Round int    `json:"round"`
}

// ToolResultMessage reports one finished tool call.
type ToolResultMessage struct {
	Type       string      `json:"type"`
	RunID      string      `json:"run_id"`
	Round      int         `json:"round"`
	Tool       string      `json:"tool"`
	ToolCallID string      `json:"tool_call_id"`
	OK         bool        `json:"ok"`
	Error      string      `json:"error,omitempty"`
	Result     interface{} `json:"result,omitempty"`
	ElapsedMS  int64       `json:"elapsed_ms"`
}

// ResultMessage carries the final run result.
type ResultMessage struct {
	Type   string             `json:"type"`
	Result outreach.RunResult `json:"result"`
}

// AgentError represents errors that can occur during a session
type AgentError struct {
	Message string
	Fatal   bool
}

func (e *AgentError) Error() string {
	return e.Message
}

// WebSocketWriter serializes writes to one connection.
type WebSocketWriter struct {
	Conn      *websocket.Conn
	Logger    *slog.Logger
	StartTime time.Time
	firstSent bool
	mu        sync.Mutex
}

func (w *WebSocketWriter) WriteResponse(resp interface{}) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.firstSent && !w.StartTime.IsZero() {
		w.Logger.Debug("first message sent", "after", time.Since(w.StartTime))
		w.firstSent = true
	}
	return w.Conn.WriteJSON(resp)
}

func (w *WebSocketWriter) WriteError(message string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.Conn.WriteJSON(map[string]string{"type": TypeError, "error": message})
}

func (w *WebSocketWriter) WriteDone() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.Conn.WriteJSON(map[string]string{"type": TypeDone})
}

// AgentSession runs agent queries received over a websocket and streams
// their progress back.
type AgentSession struct {
	Agent     *outreach.Agent
	SessionID string
	Writer    *WebSocketWriter
	Logger    *slog.Logger
}
