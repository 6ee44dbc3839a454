package mcpuse

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/mcp-use/mcp-use-go/connectors"
)

// ServerConfig declares how to reach one MCP server. Exactly one of
// Command (stdio), URL (streamable HTTP) or WSURL (websocket) must be set.
// The JSON shape matches the common "mcpServers" configuration files.
type ServerConfig struct {
	// Stdio servers.
	Command string            `json:"command,omitempty"`
	Args    []string          `json:"args,omitempty"`
	Env     map[string]string `json:"env,omitempty"`

	// HTTP servers.
	URL       string `json:"url,omitempty"`
	AuthToken string `json:"authToken,omitempty"`

	// WebSocket servers.
	WSURL string `json:"ws_url,omitempty"`

	// Headers apply to HTTP and websocket servers.
	Headers map[string]string `json:"headers,omitempty"`

	// OAuth enables the client credentials grant for HTTP and websocket
	// servers; tokens are minted lazily and attached as Authorization
	// headers.
	OAuth *connectors.OAuthConfig `json:"oauth,omitempty"`
}

// Validate checks that the entry declares exactly one transport.
func (s ServerConfig) Validate() error {
	n := 0
	if s.Command != "" {
		n++
	}
	if s.URL != "" {
		n++
	}
	if s.WSURL != "" {
		n++
	}
	if n == 0 {
		return fmt.Errorf("server config requires one of command, url or ws_url")
	}
	if n > 1 {
		return fmt.Errorf("server config must declare exactly one of command, url or ws_url")
	}
	if s.OAuth != nil {
		if s.Command != "" {
			return fmt.Errorf("server config: oauth applies only to url or ws_url servers")
		}
		if err := s.OAuth.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Config is the top-level "mcpServers" document.
type Config struct {
	MCPServers map[string]ServerConfig `json:"mcpServers"`
}

// Validate checks every server entry.
func (c Config) Validate() error {
	for name, s := range c.MCPServers {
		if err := s.Validate(); err != nil {
			return fmt.Errorf("server %q: %w", name, err)
		}
	}
	return nil
}

// ParseConfig parses a JSON mcpServers document. ${VAR} references in string
// values are expanded from the process environment.
func ParseConfig(data []byte) (Config, error) {
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	for name, s := range cfg.MCPServers {
		cfg.MCPServers[name] = expandServerConfig(s)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadConfig reads and parses a JSON mcpServers file.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}
	return ParseConfig(data)
}

// Save writes the configuration as indented JSON.
func (c Config) Save(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o600)
}

func expandServerConfig(s ServerConfig) ServerConfig {
	s.Command = os.ExpandEnv(s.Command)
	for i, a := range s.Args {
		s.Args[i] = os.ExpandEnv(a)
	}
	for k, v := range s.Env {
		s.Env[k] = os.ExpandEnv(v)
	}
	s.URL = os.ExpandEnv(s.URL)
	s.WSURL = os.ExpandEnv(s.WSURL)
	s.AuthToken = os.ExpandEnv(s.AuthToken)
	for k, v := range s.Headers {
		s.Headers[k] = os.ExpandEnv(v)
	}
	if s.OAuth != nil {
		oauth := *s.OAuth
		oauth.TokenURL = os.ExpandEnv(oauth.TokenURL)
		oauth.ClientID = os.ExpandEnv(oauth.ClientID)
		oauth.ClientSecret = os.ExpandEnv(oauth.ClientSecret)
		s.OAuth = &oauth
	}
	return s
}

// connector builds the Connector for one server entry.
func (s ServerConfig) connector(opts []connectors.Option) (connectors.Connector, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	switch {
	case s.Command != "":
		if len(s.Env) > 0 {
			opts = append(opts, connectors.WithEnv(s.Env))
		}
		return connectors.NewStdio(s.Command, s.Args, opts...), nil
	case s.URL != "":
		if len(s.Headers) > 0 {
			opts = append(opts, connectors.WithHeaders(s.Headers))
		}
		if s.AuthToken != "" {
			opts = append(opts, connectors.WithAuthToken(s.AuthToken))
		}
		if s.OAuth != nil {
			opts = append(opts, connectors.WithAuthProvider(connectors.NewOAuthClientCredentials(*s.OAuth, nil)))
		}
		return connectors.NewHTTP(s.URL, opts...), nil
	default:
		if len(s.Headers) > 0 {
			opts = append(opts, connectors.WithHeaders(s.Headers))
		}
		if s.OAuth != nil {
			opts = append(opts, connectors.WithAuthProvider(connectors.NewOAuthClientCredentials(*s.OAuth, nil)))
		}
		return connectors.NewWebSocket(s.WSURL, opts...), nil
	}
}
