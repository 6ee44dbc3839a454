package mcpuse

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/mcp-use/mcp-use-go/connectors"
)

// ErrServerNotFound is returned when a named server is not configured.
var ErrServerNotFound = errors.New("mcpuse: server not found in config")

// ErrSessionNotFound is returned when no session exists for a named server.
var ErrSessionNotFound = errors.New("mcpuse: no session exists for server")

// Client manages configuration and sessions for one or more MCP servers.
//
// A Client is safe for concurrent use.
type Client struct {
	opts clientOptions

	mu       sync.Mutex
	config   Config
	sessions map[string]*Session
}

// NewClient creates a client with an empty configuration. Add servers with
// AddServer, or use FromConfig / FromConfigFile.
func NewClient(opts ...ClientOption) *Client {
	return &Client{
		opts:     newClientOptions(opts),
		config:   Config{MCPServers: map[string]ServerConfig{}},
		sessions: map[string]*Session{},
	}
}

// FromConfig creates a client from an in-memory configuration.
func FromConfig(cfg Config, opts ...ClientOption) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	c := NewClient(opts...)
	for name, s := range cfg.MCPServers {
		c.config.MCPServers[name] = s
	}
	return c, nil
}

// FromConfigFile creates a client from a JSON mcpServers file.
func FromConfigFile(path string, opts ...ClientOption) (*Client, error) {
	cfg, err := LoadConfig(path)
	if err != nil {
		return nil, err
	}
	return FromConfig(cfg, opts...)
}

// AddServer adds or replaces a server configuration. A live session for a
// replaced server keeps running until closed.
func (c *Client) AddServer(name string, server ServerConfig) error {
	if err := server.Validate(); err != nil {
		return fmt.Errorf("mcpuse: server %q: %w", name, err)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.config.MCPServers[name] = server
	return nil
}

// RemoveServer removes a server from the configuration and closes its
// session if one exists.
func (c *Client) RemoveServer(ctx context.Context, name string) error {
	c.mu.Lock()
	sess := c.sessions[name]
	delete(c.sessions, name)
	delete(c.config.MCPServers, name)
	c.mu.Unlock()

	if sess != nil {
		return sess.Disconnect(ctx)
	}
	return nil
}

// ServerNames returns the configured server names, sorted.
func (c *Client) ServerNames() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	names := make([]string, 0, len(c.config.MCPServers))
	for name := range c.config.MCPServers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Config returns a copy of the current configuration.
func (c *Client) Config() Config {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := Config{MCPServers: make(map[string]ServerConfig, len(c.config.MCPServers))}
	for name, s := range c.config.MCPServers {
		out.MCPServers[name] = s
	}
	return out
}

// SaveConfig writes the current configuration to path.
func (c *Client) SaveConfig(path string) error {
	return c.Config().Save(path)
}

// CreateSession connects and initializes a session for the named server.
// An existing live session is returned as-is.
func (c *Client) CreateSession(ctx context.Context, name string) (*Session, error) {
	c.mu.Lock()
	server, ok := c.config.MCPServers[name]
	if !ok {
		c.mu.Unlock()
		return nil, fmt.Errorf("%w: %q", ErrServerNotFound, name)
	}
	if sess := c.sessions[name]; sess != nil && sess.IsConnected() {
		c.mu.Unlock()
		return sess, nil
	}
	c.mu.Unlock()

	conn, err := server.connector(c.opts.connectorOptions())
	if err != nil {
		return nil, fmt.Errorf("mcpuse: server %q: %w", name, err)
	}
	sess := NewSession(conn)
	if err := sess.Connect(ctx); err != nil {
		return nil, fmt.Errorf("mcpuse: connect to server %q: %w", name, err)
	}

	c.opts.logger.Debug("session created", "server", name)
	c.mu.Lock()
	c.sessions[name] = sess
	c.mu.Unlock()
	return sess, nil
}

// CreateAllSessions connects to every configured server concurrently. On
// failure, only the sessions this call opened are closed and the first error
// is returned; sessions that already existed keep running.
func (c *Client) CreateAllSessions(ctx context.Context) (map[string]*Session, error) {
	names := c.ServerNames()

	c.mu.Lock()
	existing := make(map[string]bool, len(c.sessions))
	for name := range c.sessions {
		existing[name] = true
	}
	c.mu.Unlock()

	g, gctx := errgroup.WithContext(ctx)
	for _, name := range names {
		name := name
		g.Go(func() error {
			_, err := c.CreateSession(gctx, name)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		for _, name := range names {
			if !existing[name] {
				_ = c.CloseSession(ctx, name)
			}
		}
		return nil, err
	}
	return c.Sessions(), nil
}

// GetSession returns the session for the named server.
func (c *Client) GetSession(name string) (*Session, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	sess, ok := c.sessions[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrSessionNotFound, name)
	}
	return sess, nil
}

// Sessions returns a copy of the current session map.
func (c *Client) Sessions() map[string]*Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]*Session, len(c.sessions))
	for name, sess := range c.sessions {
		out[name] = sess
	}
	return out
}

// CloseSession disconnects and removes the session for the named server.
// Closing a server without a session is a no-op.
func (c *Client) CloseSession(ctx context.Context, name string) error {
	c.mu.Lock()
	sess := c.sessions[name]
	delete(c.sessions, name)
	c.mu.Unlock()

	if sess == nil {
		c.opts.logger.Debug("no session to close", "server", name)
		return nil
	}
	if err := sess.Disconnect(ctx); err != nil {
		return fmt.Errorf("mcpuse: close session %q: %w", name, err)
	}
	return nil
}

// CloseAllSessions disconnects every session. All sessions are closed even
// when some fail; the errors are joined.
func (c *Client) CloseAllSessions(ctx context.Context) error {
	c.mu.Lock()
	sessions := c.sessions
	c.sessions = map[string]*Session{}
	c.mu.Unlock()

	var errs []error
	for name, sess := range sessions {
		if err := sess.Disconnect(ctx); err != nil {
			errs = append(errs, fmt.Errorf("mcpuse: close session %q: %w", name, err))
		}
	}
	return errors.Join(errs...)
}

// connectorOptions maps client options to connector construction options.
func (o clientOptions) connectorOptions() []connectors.Option {
	opts := []connectors.Option{
		connectors.WithLogger(o.logger),
		connectors.WithAutoReconnect(o.autoReconnect),
		connectors.WithClientInfo(o.clientName, o.clientVersion),
	}
	if o.httpClient != nil {
		opts = append(opts, connectors.WithHTTPClient(o.httpClient))
	}
	return opts
}
