package connectors

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrNotConnected is returned by operations that require a live connection.
var ErrNotConnected = errors.New("connectors: not connected")

// ErrNotInitialized is returned when cached server state is read before the
// initialize handshake has completed.
var ErrNotInitialized = errors.New("connectors: not initialized")

// RPCError is a JSON-RPC error returned by the server.
type RPCError struct {
	Code    int64
	Message string
	Data    []byte
}

func (e *RPCError) Error() string {
	if e == nil {
		return ""
	}
	if e.Message != "" {
		return fmt.Sprintf("mcp rpc error %d: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("mcp rpc error %d", e.Code)
}

// HTTPStatusError is returned by HTTP-based connectors when the server returns
// a non-2xx response.
type HTTPStatusError struct {
	Method     string
	URL        string
	StatusCode int
	Body       []byte

	Headers         map[string][]string
	SessionID       string
	ProtocolVersion string
}

func (e *HTTPStatusError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("mcp http %s %s: status %d: %s", e.Method, e.URL, e.StatusCode, string(e.Body))
}

// ConnectorError wraps client-side failures (transport, parsing, lifecycle).
type ConnectorError struct {
	Op     string // e.g. "connect", "initialize", "request"
	Method string // JSON-RPC method if applicable
	Cause  error
}

func (e *ConnectorError) Error() string {
	if e == nil {
		return ""
	}
	if e.Method != "" {
		return fmt.Sprintf("mcp %s (%s): %v", e.Op, e.Method, e.Cause)
	}
	return fmt.Sprintf("mcp %s: %v", e.Op, e.Cause)
}

func (e *ConnectorError) Unwrap() error { return e.Cause }

// CallToolError wraps failures returned while calling an MCP tool.
type CallToolError struct {
	ToolName string
	Cause    error
}

func (e *CallToolError) Error() string {
	if e == nil {
		return ""
	}
	if e.Cause != nil {
		return fmt.Sprintf("mcp call tool %q: %v", e.ToolName, e.Cause)
	}
	return fmt.Sprintf("mcp call tool %q", e.ToolName)
}

func (e *CallToolError) Unwrap() error { return e.Cause }

// httpStatus extracts the HTTP status code from an HTTPStatusError anywhere
// in err's chain, or 0 when there is none.
func httpStatus(err error) int {
	var e *HTTPStatusError
	if errors.As(err, &e) {
		return e.StatusCode
	}
	return 0
}

// IsRPCError reports whether err wraps a JSON-RPC error from the server.
func IsRPCError(err error) bool {
	var e *RPCError
	return errors.As(err, &e)
}

// IsHTTPStatusError reports whether err wraps a non-2xx HTTP response.
func IsHTTPStatusError(err error) bool {
	return httpStatus(err) != 0
}

// IsInitError reports whether err came from the initialize handshake.
func IsInitError(err error) bool {
	var e *ConnectorError
	return errors.As(err, &e) && e.Op == "initialize"
}

// IsCallToolError reports whether err came from a tools/call request.
func IsCallToolError(err error) bool {
	var e *CallToolError
	if errors.As(err, &e) {
		return true
	}
	var ce *ConnectorError
	return errors.As(err, &ce) && ce.Method == "tools/call"
}

// IsAuthError reports whether err is an HTTP 401 or 403 response.
func IsAuthError(err error) bool {
	s := httpStatus(err)
	return s == http.StatusUnauthorized || s == http.StatusForbidden
}

// IsRateLimited reports whether err is an HTTP 429 response.
func IsRateLimited(err error) bool {
	return httpStatus(err) == http.StatusTooManyRequests
}

// IsServerError reports whether err is an HTTP 5xx response.
func IsServerError(err error) bool {
	s := httpStatus(err)
	return s >= 500 && s <= 599
}
