package mcpuse

import (
	"context"

	"github.com/mcp-use/mcp-use-go/connectors"
)

// Session groups a connection to one MCP server with the server info
// obtained during initialization.
type Session struct {
	connector  connectors.Connector
	serverInfo *connectors.InitializeResult
}

// NewSession wraps an existing connector. The session starts disconnected;
// call Connect (or let the owning Client do it).
func NewSession(c connectors.Connector) *Session {
	return &Session{connector: c}
}

// Connect establishes the connection and performs the MCP initialize
// handshake. Calling Connect on a live session is a no-op.
func (s *Session) Connect(ctx context.Context) error {
	if err := s.connector.Connect(ctx); err != nil {
		return err
	}
	info, err := s.connector.Initialize(ctx)
	if err != nil {
		// Leave no half-open connection behind.
		_ = s.connector.Disconnect(ctx)
		return err
	}
	s.serverInfo = info
	return nil
}

// Disconnect closes the connection.
func (s *Session) Disconnect(ctx context.Context) error {
	s.serverInfo = nil
	return s.connector.Disconnect(ctx)
}

// IsConnected reports whether the underlying connection is alive.
func (s *Session) IsConnected() bool {
	return s.connector.IsConnected()
}

// Connector returns the session's connector.
func (s *Session) Connector() connectors.Connector {
	return s.connector
}

// ServerInfo returns the initialize result, or nil before Connect.
func (s *Session) ServerInfo() *connectors.InitializeResult {
	return s.serverInfo
}
