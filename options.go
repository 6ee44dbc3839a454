package mcpuse

import (
	"log/slog"
	"net/http"
)

type clientOptions struct {
	logger        *slog.Logger
	httpClient    *http.Client
	autoReconnect bool
	clientName    string
	clientVersion string
}

// ClientOption configures a Client.
type ClientOption func(*clientOptions)

func newClientOptions(opts []ClientOption) clientOptions {
	o := clientOptions{
		autoReconnect: true,
		clientName:    "mcp-use",
		clientVersion: Version,
	}
	for _, fn := range opts {
		fn(&o)
	}
	if o.logger == nil {
		o.logger = NopLogger()
	}
	return o
}

// WithLogger sets the logger used by the client and its connectors.
// The client is silent by default.
func WithLogger(l *slog.Logger) ClientOption {
	return func(o *clientOptions) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithHTTPClient overrides the HTTP client used for HTTP-based servers.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(o *clientOptions) { o.httpClient = client }
}

// WithAutoReconnect controls whether lost connections are re-established
// automatically. Enabled by default.
func WithAutoReconnect(v bool) ClientOption {
	return func(o *clientOptions) { o.autoReconnect = v }
}

// WithClientInfo overrides the client identity sent to servers during the
// MCP initialize handshake.
func WithClientInfo(name, version string) ClientOption {
	return func(o *clientOptions) {
		o.clientName = name
		o.clientVersion = version
	}
}
