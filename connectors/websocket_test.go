package connectors

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newWSTestServer runs an MCP server speaking JSON-RPC over websocket frames.
func newWSTestServer(t *testing.T) string {
	t.Helper()
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer ws.Close()
		for {
			_, msg, err := ws.ReadMessage()
			if err != nil {
				return
			}
			var req rpcRequest
			if json.Unmarshal(msg, &req) != nil || req.ID == nil {
				continue
			}
			var result any
			switch req.Method {
			case "initialize":
				result = InitializeResult{
					ProtocolVersion: "2025-03-26",
					Capabilities:    map[string]any{"tools": map[string]any{}},
					ServerInfo:      ServerInfo{Name: "ws-fake"},
				}
			case "tools/list":
				result = toolListResult{Tools: []Tool{{Name: "notify", Description: "Send a notification"}}}
			case "tools/call":
				result = CallToolResult{Content: []ToolContentPart{{
					Type: "text",
					Raw:  mustJSON(map[string]any{"type": "text", "text": "sent"}),
				}}}
			default:
				result = map[string]any{}
			}
			resp := mustJSON(rpcResponse{JSONRPC: "2.0", ID: *req.ID, Result: mustJSON(result)})
			if ws.WriteMessage(websocket.TextMessage, resp) != nil {
				return
			}
		}
	}))
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestWebSocketConnectorLifecycle(t *testing.T) {
	wsURL := newWSTestServer(t)
	conn := NewWebSocket(wsURL)

	ctx := context.Background()
	require.NoError(t, conn.Connect(ctx))
	info, err := conn.Initialize(ctx)
	require.NoError(t, err)
	assert.Equal(t, "ws-fake", info.ServerInfo.Name)

	tools, err := conn.Tools()
	require.NoError(t, err)
	require.Len(t, tools, 1)
	assert.Equal(t, "notify", tools[0].Name)

	result, err := conn.CallTool(ctx, "notify", map[string]any{"text": "hi"})
	require.NoError(t, err)
	assert.Equal(t, "sent", result.Text())

	require.NoError(t, conn.Disconnect(ctx))
	assert.False(t, conn.IsConnected())
}

func TestWebSocketConnectorDialFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "no websocket here", http.StatusForbidden)
	}))
	defer srv.Close()

	conn := NewWebSocket("ws" + strings.TrimPrefix(srv.URL, "http"))
	err := conn.Connect(context.Background())
	require.Error(t, err)

	var se *HTTPStatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusForbidden, se.StatusCode)
}
