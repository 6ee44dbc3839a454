package connectors

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

// Connector is a client connection to one MCP server.
//
// A Connector is created disconnected. Connect establishes the transport,
// Initialize performs the MCP handshake and caches the server's tools,
// resources and prompts. Operations that hit the server re-establish the
// connection automatically when it was lost, unless auto-reconnect is
// disabled.
type Connector interface {
	Connect(ctx context.Context) error
	Disconnect(ctx context.Context) error
	Initialize(ctx context.Context) (*InitializeResult, error)
	IsConnected() bool

	// PublicIdentifier names the server endpoint (command line or URL).
	PublicIdentifier() string

	// Cached server state, populated by Initialize.
	Tools() ([]Tool, error)
	Resources() ([]Resource, error)
	Prompts() ([]Prompt, error)

	CallTool(ctx context.Context, name string, arguments map[string]any) (*CallToolResult, error)
	ListTools(ctx context.Context) ([]Tool, error)
	ListResources(ctx context.Context) ([]Resource, error)
	ReadResource(ctx context.Context, uri string) (*ReadResourceResult, error)
	ListPrompts(ctx context.Context) ([]Prompt, error)
	GetPrompt(ctx context.Context, name string, arguments map[string]string) (*GetPromptResult, error)

	// Request sends a raw JSON-RPC request and returns the raw result.
	Request(ctx context.Context, method string, params any) (json.RawMessage, error)
}

// base carries the transport-independent connector behavior. Concrete
// connectors embed it and provide dial and identifier.
type base struct {
	dial       func(ctx context.Context) (Transport, error)
	identifier string

	logger        *slog.Logger
	autoReconnect bool
	clientInfo    ClientInfo

	mu          sync.Mutex
	tr          Transport
	nextID      int64
	initialized bool
	tools       []Tool
	resources   []Resource
	prompts     []Prompt
}

func newBase(identifier string, dial func(ctx context.Context) (Transport, error), cfg *config) *base {
	return &base{
		dial:          dial,
		identifier:    identifier,
		logger:        cfg.logger,
		autoReconnect: cfg.autoReconnect,
		clientInfo:    cfg.clientInfo,
	}
}

func (b *base) PublicIdentifier() string { return b.identifier }

func (b *base) Connect(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.connectLocked(ctx)
}

func (b *base) connectLocked(ctx context.Context) error {
	if b.tr != nil && transportAlive(b.tr) {
		b.logger.Debug("already connected to MCP server", "server", b.identifier)
		return nil
	}
	if b.tr != nil {
		_ = b.tr.Close()
		b.tr = nil
	}
	b.logger.Debug("connecting to MCP server", "server", b.identifier)
	tr, err := b.dial(ctx)
	if err != nil {
		return &ConnectorError{Op: "connect", Cause: err}
	}
	b.tr = tr
	return nil
}

func (b *base) Disconnect(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.tr == nil {
		b.logger.Debug("not connected to MCP server", "server", b.identifier)
		return nil
	}
	b.logger.Debug("disconnecting from MCP server", "server", b.identifier)
	err := b.tr.Close()
	b.tr = nil
	b.initialized = false
	b.tools = nil
	b.resources = nil
	b.prompts = nil
	if err != nil {
		return &ConnectorError{Op: "disconnect", Cause: err}
	}
	return nil
}

func (b *base) IsConnected() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.tr != nil && transportAlive(b.tr)
}

func (b *base) transport() Transport {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.tr
}

func transportAlive(tr Transport) bool {
	if a, ok := tr.(aliveTransport); ok {
		return a.Alive()
	}
	return true
}

// Initialize performs the MCP initialize handshake and caches tools,
// resources and prompts according to the server's declared capabilities.
func (b *base) Initialize(ctx context.Context) (*InitializeResult, error) {
	b.mu.Lock()
	tr := b.tr
	b.mu.Unlock()
	if tr == nil {
		return nil, &ConnectorError{Op: "initialize", Cause: ErrNotConnected}
	}

	b.logger.Debug("initializing MCP session", "server", b.identifier)

	var result InitializeResult
	if err := b.rpc(ctx, "initialize", initializeParams{
		ProtocolVersion: protocolVersion,
		Capabilities:    map[string]any{},
		ClientInfo:      b.clientInfo,
	}, &result); err != nil {
		return nil, &ConnectorError{Op: "initialize", Method: "initialize", Cause: err}
	}
	if pa, ok := tr.(protocolAware); ok && result.ProtocolVersion != "" {
		pa.SetProtocolVersion(result.ProtocolVersion)
	}
	if err := b.notify(ctx, "notifications/initialized", nil); err != nil {
		return nil, &ConnectorError{Op: "initialize", Method: "notifications/initialized", Cause: err}
	}

	tools := []Tool{}
	resources := []Resource{}
	prompts := []Prompt{}
	if _, ok := result.Capabilities["tools"]; ok {
		ts, err := b.listTools(ctx)
		if err != nil {
			return nil, &ConnectorError{Op: "initialize", Method: "tools/list", Cause: err}
		}
		tools = ts
	}
	if _, ok := result.Capabilities["resources"]; ok {
		rs, err := b.listResources(ctx)
		if err != nil {
			return nil, &ConnectorError{Op: "initialize", Method: "resources/list", Cause: err}
		}
		resources = rs
	}
	if _, ok := result.Capabilities["prompts"]; ok {
		ps, err := b.listPrompts(ctx)
		if err != nil {
			return nil, &ConnectorError{Op: "initialize", Method: "prompts/list", Cause: err}
		}
		prompts = ps
	}

	b.mu.Lock()
	b.initialized = true
	b.tools = tools
	b.resources = resources
	b.prompts = prompts
	b.mu.Unlock()

	b.logger.Debug("MCP session initialized",
		"server", b.identifier,
		"tools", len(tools),
		"resources", len(resources),
		"prompts", len(prompts))

	return &result, nil
}

func (b *base) Tools() ([]Tool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.initialized {
		return nil, ErrNotInitialized
	}
	return b.tools, nil
}

func (b *base) Resources() ([]Resource, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.initialized {
		return nil, ErrNotInitialized
	}
	return b.resources, nil
}

func (b *base) Prompts() ([]Prompt, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.initialized {
		return nil, ErrNotInitialized
	}
	return b.prompts, nil
}

// ensureConnected reconnects (and re-initializes) once when the connection
// was lost and auto-reconnect is enabled.
func (b *base) ensureConnected(ctx context.Context) error {
	b.mu.Lock()
	tr := b.tr
	b.mu.Unlock()
	if tr == nil {
		return ErrNotConnected
	}
	if transportAlive(tr) {
		return nil
	}
	if !b.autoReconnect {
		return fmt.Errorf("connectors: connection to MCP server lost and auto-reconnect is disabled: %w", ErrNotConnected)
	}

	b.logger.Debug("connection lost, reconnecting", "server", b.identifier)
	b.mu.Lock()
	err := b.connectLocked(ctx)
	b.mu.Unlock()
	if err != nil {
		return fmt.Errorf("connectors: reconnect failed: %w", err)
	}
	if _, err := b.Initialize(ctx); err != nil {
		return fmt.Errorf("connectors: reconnect failed: %w", err)
	}
	b.logger.Debug("reconnection successful", "server", b.identifier)
	return nil
}

// CallTool calls an MCP tool, reconnecting first if the connection was lost.
func (b *base) CallTool(ctx context.Context, name string, arguments map[string]any) (*CallToolResult, error) {
	if err := b.ensureConnected(ctx); err != nil {
		return nil, &CallToolError{ToolName: name, Cause: err}
	}
	b.logger.Debug("calling tool", "server", b.identifier, "tool", name)
	var result CallToolResult
	if err := b.rpc(ctx, "tools/call", callToolParams{Name: name, Arguments: arguments}, &result); err != nil {
		if !b.IsConnected() {
			return nil, &CallToolError{ToolName: name, Cause: fmt.Errorf("connection lost: %w", err)}
		}
		return nil, &CallToolError{ToolName: name, Cause: err}
	}
	return &result, nil
}

func (b *base) ListTools(ctx context.Context) ([]Tool, error) {
	if err := b.ensureConnected(ctx); err != nil {
		return nil, err
	}
	return b.listTools(ctx)
}

func (b *base) listTools(ctx context.Context) ([]Tool, error) {
	var result toolListResult
	if err := b.rpc(ctx, "tools/list", nil, &result); err != nil {
		var re *RPCError
		if errors.As(err, &re) {
			b.logger.Error("error listing tools", "server", b.identifier, "err", err)
			return []Tool{}, nil
		}
		return nil, err
	}
	return result.Tools, nil
}

func (b *base) ListResources(ctx context.Context) ([]Resource, error) {
	if err := b.ensureConnected(ctx); err != nil {
		return nil, err
	}
	return b.listResources(ctx)
}

func (b *base) listResources(ctx context.Context) ([]Resource, error) {
	var result resourcesListResult
	if err := b.rpc(ctx, "resources/list", nil, &result); err != nil {
		var re *RPCError
		if errors.As(err, &re) {
			b.logger.Error("error listing resources", "server", b.identifier, "err", err)
			return []Resource{}, nil
		}
		return nil, err
	}
	return result.Resources, nil
}

func (b *base) ReadResource(ctx context.Context, uri string) (*ReadResourceResult, error) {
	if err := b.ensureConnected(ctx); err != nil {
		return nil, err
	}
	b.logger.Debug("reading resource", "server", b.identifier, "uri", uri)
	var result ReadResourceResult
	if err := b.rpc(ctx, "resources/read", readResourceParams{URI: uri}, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (b *base) ListPrompts(ctx context.Context) ([]Prompt, error) {
	if err := b.ensureConnected(ctx); err != nil {
		return nil, err
	}
	return b.listPrompts(ctx)
}

func (b *base) listPrompts(ctx context.Context) ([]Prompt, error) {
	var result promptsListResult
	if err := b.rpc(ctx, "prompts/list", nil, &result); err != nil {
		var re *RPCError
		if errors.As(err, &re) {
			b.logger.Error("error listing prompts", "server", b.identifier, "err", err)
			return []Prompt{}, nil
		}
		return nil, err
	}
	return result.Prompts, nil
}

func (b *base) GetPrompt(ctx context.Context, name string, arguments map[string]string) (*GetPromptResult, error) {
	if err := b.ensureConnected(ctx); err != nil {
		return nil, err
	}
	b.logger.Debug("getting prompt", "server", b.identifier, "prompt", name)
	var result GetPromptResult
	if err := b.rpc(ctx, "prompts/get", getPromptParams{Name: name, Arguments: arguments}, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Request sends a raw JSON-RPC request and returns the raw result payload.
func (b *base) Request(ctx context.Context, method string, params any) (json.RawMessage, error) {
	if err := b.ensureConnected(ctx); err != nil {
		return nil, err
	}
	b.logger.Debug("sending raw request", "server", b.identifier, "method", method)
	var raw json.RawMessage
	if err := b.rpc(ctx, method, params, &raw); err != nil {
		return nil, err
	}
	return raw, nil
}

func (b *base) rpc(ctx context.Context, method string, params any, out any) error {
	b.mu.Lock()
	tr := b.tr
	b.nextID++
	id := b.nextID
	b.mu.Unlock()
	if tr == nil {
		return ErrNotConnected
	}

	req := rpcRequest{JSONRPC: "2.0", ID: &id, Method: method, Params: params}
	raw, err := json.Marshal(req)
	if err != nil {
		return err
	}
	rawResp, err := tr.Call(ctx, raw)
	if err != nil {
		return err
	}
	var resp rpcResponse
	if err := json.Unmarshal(rawResp, &resp); err != nil {
		return &ConnectorError{Op: "request", Method: method, Cause: err}
	}
	if resp.Error != nil {
		return &RPCError{Code: resp.Error.Code, Message: resp.Error.Message, Data: resp.Error.Data}
	}
	if out == nil {
		return nil
	}
	if len(resp.Result) == 0 {
		return &ConnectorError{Op: "request", Method: method, Cause: fmt.Errorf("empty result")}
	}
	return json.Unmarshal(resp.Result, out)
}

func (b *base) notify(ctx context.Context, method string, params any) error {
	b.mu.Lock()
	tr := b.tr
	b.mu.Unlock()
	if tr == nil {
		return ErrNotConnected
	}
	msg := rpcRequest{JSONRPC: "2.0", Method: method, Params: params}
	raw, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return tr.Notify(ctx, raw)
}
