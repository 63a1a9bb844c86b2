package sessions

import (
	"log/slog"

	"github.com/gorilla/websocket"
	"github.com/kindtohomeless/outreach"
)

// NewAgentSession creates a new WebSocket agent session
func NewAgentSession(sessionID string, conn *websocket.Conn, agent *outreach.Agent, logger *slog.Logger) *AgentSession {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("session_id", sessionID)
	writer := &WebSocketWriter{
		Conn:   conn,
		Logger: logger,
	}

	return &AgentSession{
		Agent:     agent,
		SessionID: sessionID,
		Writer:    writer,
		Logger:    logger,
	}
}
