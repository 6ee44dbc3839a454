package agents

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"

	mcpuse "github.com/mcp-use/mcp-use-go"
	"github.com/mcp-use/mcp-use-go/adapters"
)

// ServerManager exposes MCP servers to the model one at a time. The model
// gets a small set of management tools to list, activate and search
// servers; the active server's tools are added alongside them.
type ServerManager struct {
	client  *mcpuse.Client
	adapter *adapters.Adapter
	logger  *slog.Logger

	mu           sync.Mutex
	activeServer string
	serverTools  map[string][]Tool
}

func newServerManager(client *mcpuse.Client, adapter *adapters.Adapter, logger *slog.Logger) *ServerManager {
	return &ServerManager{
		client:      client,
		adapter:     adapter,
		logger:      logger,
		serverTools: map[string][]Tool{},
	}
}

// ActiveServer returns the name of the currently active server, or "".
func (m *ServerManager) ActiveServer() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.activeServer
}

// Tools returns the management tools plus, when a server is active, that
// server's tools.
func (m *ServerManager) Tools() []Tool {
	tools := m.managementTools()
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.activeServer != "" {
		tools = append(tools, m.serverTools[m.activeServer]...)
	}
	return tools
}

func (m *ServerManager) managementTools() []Tool {
	noArgs := json.RawMessage(`{"type":"object","properties":{}}`)
	serverArg := json.RawMessage(`{"type":"object","properties":{"server_name":{"type":"string","description":"Name of the MCP server"}},"required":["server_name"]}`)
	queryArg := json.RawMessage(`{"type":"object","properties":{"query":{"type":"string","description":"Text to match against tool names and descriptions"}},"required":["query"]}`)

	return []Tool{
		{
			Name:        "list_mcp_servers",
			Description: "List the configured MCP servers. Connect to one before using its tools.",
			InputSchema: noArgs,
			Handler:     m.listServers,
		},
		{
			Name:        "connect_to_mcp_server",
			Description: "Connect to an MCP server and make its tools available.",
			InputSchema: serverArg,
			Handler:     m.connectToServer,
		},
		{
			Name:        "get_active_mcp_server",
			Description: "Get the currently active MCP server.",
			InputSchema: noArgs,
			Handler:     m.getActiveServer,
		},
		{
			Name:        "disconnect_from_mcp_server",
			Description: "Deactivate the currently active MCP server.",
			InputSchema: noArgs,
			Handler:     m.disconnectFromServer,
		},
		{
			Name:        "search_mcp_tools",
			Description: "Search all MCP servers for tools matching a query. Use this to find which server provides a capability.",
			InputSchema: queryArg,
			Handler:     m.searchTools,
		},
	}
}

func (m *ServerManager) listServers(ctx context.Context, _ json.RawMessage) (string, error) {
	_ = ctx
	names := m.client.ServerNames()
	if len(names) == 0 {
		return "No MCP servers are configured.", nil
	}
	sessions := m.client.Sessions()
	active := m.ActiveServer()

	var b strings.Builder
	b.WriteString("Configured MCP servers:\n")
	for _, name := range names {
		state := "disconnected"
		if sess, ok := sessions[name]; ok && sess.IsConnected() {
			state = "connected"
		}
		if name == active {
			state += ", active"
		}
		fmt.Fprintf(&b, "- %s (%s)\n", name, state)
	}
	return strings.TrimRight(b.String(), "\n"), nil
}

func (m *ServerManager) connectToServer(ctx context.Context, input json.RawMessage) (string, error) {
	var args struct {
		ServerName string `json:"server_name"`
	}
	if err := json.Unmarshal(input, &args); err != nil || args.ServerName == "" {
		return "", fmt.Errorf("agents: server_name is required")
	}
	name := args.ServerName

	if m.ActiveServer() == name {
		return fmt.Sprintf("Already connected to MCP server %q.", name), nil
	}

	tools, err := m.toolsForServer(ctx, name)
	if err != nil {
		return "", err
	}

	m.mu.Lock()
	m.activeServer = name
	m.mu.Unlock()
	m.logger.Debug("activated MCP server", "server", name, "tools", len(tools))

	names := make([]string, 0, len(tools))
	for _, t := range tools {
		names = append(names, t.Name)
	}
	return fmt.Sprintf("Connected to MCP server %q. %d tools are now available: %s",
		name, len(tools), strings.Join(names, ", ")), nil
}

func (m *ServerManager) getActiveServer(ctx context.Context, _ json.RawMessage) (string, error) {
	_ = ctx
	if active := m.ActiveServer(); active != "" {
		return fmt.Sprintf("The active MCP server is %q.", active), nil
	}
	return "No MCP server is currently active. Use connect_to_mcp_server to activate one.", nil
}

func (m *ServerManager) disconnectFromServer(ctx context.Context, _ json.RawMessage) (string, error) {
	_ = ctx
	m.mu.Lock()
	active := m.activeServer
	m.activeServer = ""
	m.mu.Unlock()
	if active == "" {
		return "No MCP server was active.", nil
	}
	return fmt.Sprintf("Deactivated MCP server %q.", active), nil
}

func (m *ServerManager) searchTools(ctx context.Context, input json.RawMessage) (string, error) {
	var args struct {
		Query string `json:"query"`
	}
	if err := json.Unmarshal(input, &args); err != nil || args.Query == "" {
		return "", fmt.Errorf("agents: query is required")
	}
	query := strings.ToLower(args.Query)

	names := m.client.ServerNames()
	sort.Strings(names)

	var b strings.Builder
	matches := 0
	for _, name := range names {
		tools, err := m.toolsForServer(ctx, name)
		if err != nil {
			m.logger.Warn("skipping server during tool search", "server", name, "err", err)
			continue
		}
		for _, t := range tools {
			if !strings.Contains(strings.ToLower(t.Name), query) &&
				!strings.Contains(strings.ToLower(t.Description), query) {
				continue
			}
			matches++
			fmt.Fprintf(&b, "- %s (server %q): %s\n", t.Name, name, strings.TrimSpace(t.Description))
		}
	}
	if matches == 0 {
		return fmt.Sprintf("No tools matching %q were found.", args.Query), nil
	}
	return fmt.Sprintf("Found %d matching tools:\n%s", matches, strings.TrimRight(b.String(), "\n")), nil
}

// toolsForServer connects to the named server on demand and returns its
// converted tools, cached per server.
func (m *ServerManager) toolsForServer(ctx context.Context, name string) ([]Tool, error) {
	m.mu.Lock()
	if tools, ok := m.serverTools[name]; ok {
		m.mu.Unlock()
		return tools, nil
	}
	m.mu.Unlock()

	sess, err := m.client.CreateSession(ctx, name)
	if err != nil {
		return nil, err
	}
	tools, err := m.adapter.CreateToolsFromConnector(ctx, sess.Connector())
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.serverTools[name] = tools
	m.mu.Unlock()
	return tools, nil
}
