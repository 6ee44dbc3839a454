package connectors

import (
	"io"
	"log/slog"
	"net/http"
)

type config struct {
	logger        *slog.Logger
	autoReconnect bool
	clientInfo    ClientInfo

	env        map[string]string
	headers    map[string]string
	authToken  string
	oauth      AuthProvider
	httpClient *http.Client
}

// Option configures a connector at construction time.
type Option func(*config)

func newConfig(opts []Option) *config {
	cfg := &config{
		autoReconnect: true,
		clientInfo:    ClientInfo{Name: "mcp-use", Version: "1.0"},
	}
	for _, o := range opts {
		o(cfg)
	}
	if cfg.logger == nil {
		cfg.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return cfg
}

// WithLogger sets the logger used for connection lifecycle and request
// debug output. Connectors are silent by default.
func WithLogger(l *slog.Logger) Option {
	return func(c *config) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithAutoReconnect controls whether operations re-establish a lost
// connection automatically. Enabled by default.
func WithAutoReconnect(v bool) Option {
	return func(c *config) { c.autoReconnect = v }
}

// WithClientInfo overrides the client identity sent during initialization.
func WithClientInfo(name, version string) Option {
	return func(c *config) { c.clientInfo = ClientInfo{Name: name, Version: version} }
}

// WithEnv sets environment variables for stdio server subprocesses.
func WithEnv(env map[string]string) Option {
	return func(c *config) { c.env = env }
}

// WithHeaders sets static headers for HTTP and WebSocket connectors.
func WithHeaders(h map[string]string) Option {
	return func(c *config) { c.headers = h }
}

// WithAuthToken sets a static bearer token for HTTP-based connectors.
func WithAuthToken(token string) Option {
	return func(c *config) { c.authToken = token }
}

// WithAuthProvider sets a dynamic Authorization header source (e.g. OAuth)
// for HTTP-based connectors.
func WithAuthProvider(p AuthProvider) Option {
	return func(c *config) { c.oauth = p }
}

// WithHTTPClient overrides the HTTP client used by HTTP-based connectors.
func WithHTTPClient(client *http.Client) Option {
	return func(c *config) { c.httpClient = client }
}
