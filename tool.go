package mcpuse

import (
	"context"
	"encoding/json"
)

// Tool is an executable tool offered to a model. Tools are usually produced
// by the adapters package from the tools an MCP server exposes, but can
// also be constructed directly for local functionality.
type Tool struct {
	Name        string
	Description string
	InputSchema json.RawMessage
	Handler     func(ctx context.Context, input json.RawMessage) (string, error)
}
