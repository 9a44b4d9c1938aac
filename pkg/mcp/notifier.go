package mcp

import (
	"context"
	"errors"

	"github.com/mark3labs/mcp-go/server"
)

// Notifier pushes notifications to a connected MCP client session.
type Notifier interface {
	Notify(ctx context.Context, sessionID string, payload map[string]any) error
}

// SessionNotifier implements Notifier using MCP server push.
type SessionNotifier struct {
	mcpServer *server.MCPServer
}

// NewSessionNotifier creates a notifier that pushes through mcpServer.
func NewSessionNotifier(mcpServer *server.MCPServer) *SessionNotifier {
	return &SessionNotifier{mcpServer: mcpServer}
}

// Notify sends a notifications/message to the session.
// Best-effort: returns nil if the session is gone.
func (n *SessionNotifier) Notify(_ context.Context, sessionID string, payload map[string]any) error {
	err := n.mcpServer.SendNotificationToSpecificClient(sessionID, "notifications/message", payload)
	if errors.Is(err, server.ErrSessionNotFound) {
		return nil
	}
	return err
}
