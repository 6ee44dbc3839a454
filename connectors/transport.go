package connectors

import (
	"context"
	"encoding/json"
)

// Transport sends JSON-RPC messages to an MCP server.
//
// Implementations must be safe for concurrent use unless documented otherwise.
type Transport interface {
	// Call sends a JSON-RPC request and returns the matching response.
	Call(ctx context.Context, req json.RawMessage) (json.RawMessage, error)
	// Notify sends a JSON-RPC notification (no response expected).
	Notify(ctx context.Context, msg json.RawMessage) error
	Close() error
}

// aliveTransport is implemented by transports that can report whether the
// underlying connection is still usable. Transports that do not implement it
// are assumed alive until closed (e.g. per-request HTTP).
type aliveTransport interface {
	Alive() bool
}

// protocolAware is implemented by transports that echo the negotiated MCP
// protocol version on subsequent requests.
type protocolAware interface {
	SetProtocolVersion(v string)
}
