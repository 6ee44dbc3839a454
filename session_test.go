package mcpuse

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcp-use/mcp-use-go/connectors"
)

// fakeConnector is an in-memory connectors.Connector for session and client
// tests.
type fakeConnector struct {
	identifier string
	connectErr error
	initErr    error

	connected   bool
	initialized bool
	disconnects int

	tools []connectors.Tool
}

var _ connectors.Connector = (*fakeConnector)(nil)

func (f *fakeConnector) Connect(ctx context.Context) error {
	if f.connectErr != nil {
		return f.connectErr
	}
	f.connected = true
	return nil
}

func (f *fakeConnector) Disconnect(ctx context.Context) error {
	f.connected = false
	f.initialized = false
	f.disconnects++
	return nil
}

func (f *fakeConnector) Initialize(ctx context.Context) (*connectors.InitializeResult, error) {
	if f.initErr != nil {
		return nil, f.initErr
	}
	f.initialized = true
	return &connectors.InitializeResult{
		ProtocolVersion: "2025-03-26",
		ServerInfo:      connectors.ServerInfo{Name: "fake", Version: "0.1"},
	}, nil
}

func (f *fakeConnector) IsConnected() bool { return f.connected }

func (f *fakeConnector) PublicIdentifier() string { return f.identifier }

func (f *fakeConnector) Tools() ([]connectors.Tool, error) {
	if !f.initialized {
		return nil, connectors.ErrNotInitialized
	}
	return f.tools, nil
}

func (f *fakeConnector) Resources() ([]connectors.Resource, error) {
	if !f.initialized {
		return nil, connectors.ErrNotInitialized
	}
	return []connectors.Resource{}, nil
}

func (f *fakeConnector) Prompts() ([]connectors.Prompt, error) {
	if !f.initialized {
		return nil, connectors.ErrNotInitialized
	}
	return []connectors.Prompt{}, nil
}

func (f *fakeConnector) CallTool(ctx context.Context, name string, arguments map[string]any) (*connectors.CallToolResult, error) {
	return &connectors.CallToolResult{}, nil
}

func (f *fakeConnector) ListTools(ctx context.Context) ([]connectors.Tool, error) {
	return f.tools, nil
}

func (f *fakeConnector) ListResources(ctx context.Context) ([]connectors.Resource, error) {
	return []connectors.Resource{}, nil
}

func (f *fakeConnector) ReadResource(ctx context.Context, uri string) (*connectors.ReadResourceResult, error) {
	return &connectors.ReadResourceResult{}, nil
}

func (f *fakeConnector) ListPrompts(ctx context.Context) ([]connectors.Prompt, error) {
	return []connectors.Prompt{}, nil
}

func (f *fakeConnector) GetPrompt(ctx context.Context, name string, arguments map[string]string) (*connectors.GetPromptResult, error) {
	return &connectors.GetPromptResult{}, nil
}

func (f *fakeConnector) Request(ctx context.Context, method string, params any) (json.RawMessage, error) {
	return json.RawMessage(`{}`), nil
}

func TestSessionConnect(t *testing.T) {
	conn := &fakeConnector{identifier: "fake"}
	sess := NewSession(conn)

	assert.Nil(t, sess.ServerInfo())
	require.NoError(t, sess.Connect(context.Background()))
	assert.True(t, sess.IsConnected())
	require.NotNil(t, sess.ServerInfo())
	assert.Equal(t, "fake", sess.ServerInfo().ServerInfo.Name)

	require.NoError(t, sess.Disconnect(context.Background()))
	assert.False(t, sess.IsConnected())
	assert.Nil(t, sess.ServerInfo())
}

func TestSessionConnectCleansUpOnInitFailure(t *testing.T) {
	conn := &fakeConnector{initErr: errors.New("handshake refused")}
	sess := NewSession(conn)

	err := sess.Connect(context.Background())
	require.Error(t, err)
	assert.False(t, conn.connected)
	assert.Equal(t, 1, conn.disconnects)
	assert.Nil(t, sess.ServerInfo())
}

func TestSessionConnectError(t *testing.T) {
	conn := &fakeConnector{connectErr: errors.New("dial failed")}
	sess := NewSession(conn)

	err := sess.Connect(context.Background())
	require.Error(t, err)
	assert.Equal(t, 0, conn.disconnects)
}
