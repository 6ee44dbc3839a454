package mcpuse

import (
	"io"
	"log/slog"
)

// Version is reported to MCP servers in the initialize handshake.
const Version = "1.0.0"

// NopLogger returns a logger that discards all output.
// Use this when you want silent operation with no logging overhead.
func NopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
