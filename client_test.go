package mcpuse

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestMCPServer runs a minimal MCP server over streamable HTTP.
func newTestMCPServer(t *testing.T) (*httptest.Server, *atomic.Int64) {
	t.Helper()
	var initializes atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodDelete {
			w.WriteHeader(http.StatusOK)
			return
		}
		var req struct {
			ID     *int64 `json:"id"`
			Method string `json:"method"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		if req.ID == nil {
			w.WriteHeader(http.StatusAccepted)
			return
		}

		var result any
		switch req.Method {
		case "initialize":
			initializes.Add(1)
			w.Header().Set("Mcp-Session-Id", "sess-1")
			result = map[string]any{
				"protocolVersion": "2025-03-26",
				"capabilities":    map[string]any{"tools": map[string]any{}},
				"serverInfo":      map[string]any{"name": "test-server", "version": "0.1"},
			}
		case "tools/list":
			result = map[string]any{"tools": []map[string]any{{"name": "echo", "description": "Echo input"}}}
		case "tools/call":
			result = map[string]any{"content": []map[string]any{{"type": "text", "text": "ok"}}}
		default:
			result = map[string]any{}
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"jsonrpc": "2.0", "id": *req.ID, "result": result})
	}))
	t.Cleanup(srv.Close)
	return srv, &initializes
}

func TestClientServerConfigManagement(t *testing.T) {
	c := NewClient()
	require.NoError(t, c.AddServer("beta", ServerConfig{URL: "https://b.example.com/mcp"}))
	require.NoError(t, c.AddServer("alpha", ServerConfig{Command: "mcp-alpha"}))

	assert.Equal(t, []string{"alpha", "beta"}, c.ServerNames())

	err := c.AddServer("bad", ServerConfig{})
	require.Error(t, err)
	assert.Equal(t, []string{"alpha", "beta"}, c.ServerNames())

	require.NoError(t, c.RemoveServer(context.Background(), "alpha"))
	assert.Equal(t, []string{"beta"}, c.ServerNames())

	// Config returns a copy; mutating it does not touch the client.
	cfg := c.Config()
	delete(cfg.MCPServers, "beta")
	assert.Equal(t, []string{"beta"}, c.ServerNames())
}

func TestClientSaveConfig(t *testing.T) {
	c := NewClient()
	require.NoError(t, c.AddServer("files", ServerConfig{Command: "mcp-files"}))

	path := filepath.Join(t.TempDir(), "mcp.json")
	require.NoError(t, c.SaveConfig(path))

	reloaded, err := FromConfigFile(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"files"}, reloaded.ServerNames())
}

func TestClientCreateSession(t *testing.T) {
	srv, initializes := newTestMCPServer(t)
	c, err := FromConfig(Config{MCPServers: map[string]ServerConfig{
		"test": {URL: srv.URL},
	}})
	require.NoError(t, err)

	ctx := context.Background()
	sess, err := c.CreateSession(ctx, "test")
	require.NoError(t, err)
	assert.True(t, sess.IsConnected())
	assert.Equal(t, "test-server", sess.ServerInfo().ServerInfo.Name)

	tools, err := sess.Connector().Tools()
	require.NoError(t, err)
	require.Len(t, tools, 1)
	assert.Equal(t, "echo", tools[0].Name)

	// A live session is reused, not re-created.
	again, err := c.CreateSession(ctx, "test")
	require.NoError(t, err)
	assert.Same(t, sess, again)
	assert.EqualValues(t, 1, initializes.Load())

	require.NoError(t, c.CloseSession(ctx, "test"))
	_, err = c.GetSession("test")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestClientCreateSessionUnknownServer(t *testing.T) {
	c := NewClient()
	_, err := c.CreateSession(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrServerNotFound)
}

func TestClientCreateAllSessions(t *testing.T) {
	srv, _ := newTestMCPServer(t)
	c, err := FromConfig(Config{MCPServers: map[string]ServerConfig{
		"one": {URL: srv.URL},
		"two": {URL: srv.URL},
	}})
	require.NoError(t, err)

	ctx := context.Background()
	sessions, err := c.CreateAllSessions(ctx)
	require.NoError(t, err)
	require.Len(t, sessions, 2)
	for _, sess := range sessions {
		assert.True(t, sess.IsConnected())
	}

	require.NoError(t, c.CloseAllSessions(ctx))
	assert.Empty(t, c.Sessions())
}

func TestClientCreateAllSessionsFailureClosesOpened(t *testing.T) {
	srv, _ := newTestMCPServer(t)
	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusServiceUnavailable)
	}))
	defer bad.Close()

	c, err := FromConfig(Config{MCPServers: map[string]ServerConfig{
		"good": {URL: srv.URL},
		"bad":  {URL: bad.URL},
	}})
	require.NoError(t, err)

	_, err = c.CreateAllSessions(context.Background())
	require.Error(t, err)
	assert.Empty(t, c.Sessions())
}

func TestClientCreateAllSessionsFailureKeepsExistingSessions(t *testing.T) {
	srv, _ := newTestMCPServer(t)
	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusServiceUnavailable)
	}))
	defer bad.Close()

	c, err := FromConfig(Config{MCPServers: map[string]ServerConfig{
		"good": {URL: srv.URL},
	}})
	require.NoError(t, err)

	ctx := context.Background()
	sess, err := c.CreateSession(ctx, "good")
	require.NoError(t, err)

	require.NoError(t, c.AddServer("bad", ServerConfig{URL: bad.URL}))
	_, err = c.CreateAllSessions(ctx)
	require.Error(t, err)

	// The session that predates the call keeps running.
	kept, err := c.GetSession("good")
	require.NoError(t, err)
	assert.Same(t, sess, kept)
	assert.True(t, kept.IsConnected())
	_, err = c.GetSession("bad")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestClientCreateSessionWithOAuth(t *testing.T) {
	idp := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "client_credentials", r.PostForm.Get("grant_type"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"minted","token_type":"Bearer","expires_in":3600}`))
	}))
	defer idp.Close()

	inner, _ := newTestMCPServer(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer minted" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		inner.Config.Handler.ServeHTTP(w, r)
	}))
	defer srv.Close()

	cfg, err := ParseConfig([]byte(`{
		"mcpServers": {
			"secure": {
				"url": "` + srv.URL + `",
				"oauth": {
					"token_url": "` + idp.URL + `",
					"client_id": "cid",
					"client_secret": "secret"
				}
			}
		}
	}`))
	require.NoError(t, err)

	c, err := FromConfig(cfg)
	require.NoError(t, err)
	sess, err := c.CreateSession(context.Background(), "secure")
	require.NoError(t, err)
	assert.True(t, sess.IsConnected())
	require.NoError(t, c.CloseAllSessions(context.Background()))
}

func TestClientCloseSessionWithoutSession(t *testing.T) {
	c := NewClient()
	require.NoError(t, c.CloseSession(context.Background(), "absent"))
}
