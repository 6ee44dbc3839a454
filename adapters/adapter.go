package adapters

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"

	mcpuse "github.com/mcp-use/mcp-use-go"
	"github.com/mcp-use/mcp-use-go/connectors"
	"github.com/mcp-use/mcp-use-go/internal/schema"
)

// Adapter converts the MCP tools exposed by connectors into executable
// mcpuse.Tool values. Conversions are cached per connector instance, so two
// connectors that happen to share a public identifier (same command or url,
// different env) keep separate tool sets.
type Adapter struct {
	logger     *slog.Logger
	disallowed map[string]bool
	validate   bool

	mu    sync.Mutex
	cache map[connectors.Connector][]mcpuse.Tool
}

// Option configures an Adapter.
type Option func(*Adapter)

// WithDisallowedTools hides the named tools from the model.
func WithDisallowedTools(names ...string) Option {
	return func(a *Adapter) {
		for _, n := range names {
			a.disallowed[n] = true
		}
	}
}

// WithSchemaValidation validates tool arguments against the tool's input
// schema before sending them to the server. Disabled by default; most
// servers validate on their side.
func WithSchemaValidation(v bool) Option {
	return func(a *Adapter) { a.validate = v }
}

// WithLogger sets the adapter's logger.
func WithLogger(l *slog.Logger) Option {
	return func(a *Adapter) {
		if l != nil {
			a.logger = l
		}
	}
}

// New creates an Adapter.
func New(opts ...Option) *Adapter {
	a := &Adapter{
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
		disallowed: map[string]bool{},
		cache:      map[connectors.Connector][]mcpuse.Tool{},
	}
	for _, o := range opts {
		o(a)
	}
	return a
}

// ConvertTool wraps one MCP tool as an executable mcpuse.Tool bound to conn.
func (a *Adapter) ConvertTool(conn connectors.Connector, t connectors.Tool) mcpuse.Tool {
	name := t.Name
	inputSchema := t.InputSchema
	validate := a.validate
	return mcpuse.Tool{
		Name:        name,
		Description: t.Description,
		InputSchema: inputSchema,
		Handler: func(ctx context.Context, input json.RawMessage) (string, error) {
			if validate {
				if err := schema.Validate(inputSchema, input); err != nil {
					return "", fmt.Errorf("adapters: invalid arguments for tool %q: %w", name, err)
				}
			}
			var args map[string]any
			if len(input) > 0 {
				if err := json.Unmarshal(input, &args); err != nil {
					return "", fmt.Errorf("adapters: parse arguments for tool %q: %w", name, err)
				}
			}
			result, err := conn.CallTool(ctx, name, args)
			if err != nil {
				return "", err
			}
			text := flattenResult(result)
			if result.IsError {
				return "", fmt.Errorf("adapters: tool %q reported an error: %s", name, text)
			}
			return text, nil
		},
	}
}

// flattenResult turns a tool result into model-consumable text: a single
// text part becomes plain text, anything else is JSON-encoded.
func flattenResult(result *connectors.CallToolResult) string {
	if text := result.Text(); text != "" {
		return text
	}
	b, err := json.Marshal(result.Content)
	if err != nil {
		return ""
	}
	return string(b)
}

// CreateToolsFromConnector converts all tools of one initialized connector,
// applying the disallowed-tools filter.
func (a *Adapter) CreateToolsFromConnector(ctx context.Context, conn connectors.Connector) ([]mcpuse.Tool, error) {
	_ = ctx

	a.mu.Lock()
	if cached, ok := a.cache[conn]; ok {
		a.mu.Unlock()
		return cached, nil
	}
	a.mu.Unlock()

	mcpTools, err := conn.Tools()
	if err != nil {
		return nil, err
	}
	tools := make([]mcpuse.Tool, 0, len(mcpTools))
	for _, t := range mcpTools {
		if a.disallowed[t.Name] {
			a.logger.Debug("skipping disallowed tool", "tool", t.Name)
			continue
		}
		tools = append(tools, a.ConvertTool(conn, t))
	}

	a.mu.Lock()
	a.cache[conn] = tools
	a.mu.Unlock()
	a.logger.Debug("converted MCP tools", "server", conn.PublicIdentifier(), "tools", len(tools))
	return tools, nil
}

// CreateTools converts the tools of every configured server of client,
// creating sessions first when none exist. Server order is deterministic.
func (a *Adapter) CreateTools(ctx context.Context, client *mcpuse.Client) ([]mcpuse.Tool, error) {
	sessions := client.Sessions()
	if len(sessions) == 0 {
		var err error
		sessions, err = client.CreateAllSessions(ctx)
		if err != nil {
			return nil, err
		}
	}

	names := make([]string, 0, len(sessions))
	for name := range sessions {
		names = append(names, name)
	}
	sort.Strings(names)

	var tools []mcpuse.Tool
	for _, name := range names {
		connTools, err := a.CreateToolsFromConnector(ctx, sessions[name].Connector())
		if err != nil {
			return nil, fmt.Errorf("adapters: tools for server %q: %w", name, err)
		}
		tools = append(tools, connTools...)
	}
	return tools, nil
}
