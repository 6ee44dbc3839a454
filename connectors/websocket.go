package connectors

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// WebSocketConnector talks to a remote MCP server over a websocket. Each
// JSON-RPC message is one websocket text frame.
type WebSocketConnector struct {
	*base
	url string
}

// NewWebSocket creates a connector for an MCP server at a ws:// or wss:// url.
func NewWebSocket(url string, opts ...Option) *WebSocketConnector {
	cfg := newConfig(opts)
	c := &WebSocketConnector{url: url}
	c.base = newBase(url, func(ctx context.Context) (Transport, error) {
		if url == "" {
			return nil, fmt.Errorf("connectors: websocket url is required")
		}
		header := http.Header{}
		for k, v := range cfg.headers {
			if v != "" {
				header.Set(k, v)
			}
		}
		if cfg.authToken != "" && header.Get("Authorization") == "" {
			header.Set("Authorization", "Bearer "+cfg.authToken)
		}
		if cfg.oauth != nil && header.Get("Authorization") == "" {
			v, err := cfg.oauth.AuthorizationHeader(ctx)
			if err != nil {
				return nil, err
			}
			if v != "" {
				header.Set("Authorization", v)
			}
		}
		conn, resp, err := websocket.DefaultDialer.DialContext(ctx, url, header)
		if err != nil {
			if resp != nil {
				return nil, &HTTPStatusError{
					Method:     http.MethodGet,
					URL:        url,
					StatusCode: resp.StatusCode,
					Headers:    resp.Header.Clone(),
				}
			}
			return nil, err
		}
		t := &wsTransport{
			conn:    conn,
			pending: map[int64]chan rpcResponse{},
			closed:  make(chan struct{}),
		}
		go t.readLoop()
		return t, nil
	}, cfg)
	return c
}

type wsTransport struct {
	conn *websocket.Conn

	mu      sync.Mutex
	pending map[int64]chan rpcResponse

	writeMu sync.Mutex

	closed chan struct{}
	once   sync.Once
}

func (t *wsTransport) readLoop() {
	for {
		_, msg, err := t.conn.ReadMessage()
		if err != nil {
			t.failAll(err)
			return
		}
		var resp rpcResponse
		if err := json.Unmarshal(msg, &resp); err != nil {
			// Notifications and server requests are not correlated; skip.
			continue
		}
		t.mu.Lock()
		ch := t.pending[resp.ID]
		if ch != nil {
			delete(t.pending, resp.ID)
		}
		t.mu.Unlock()
		if ch != nil {
			ch <- resp
			close(ch)
		}
	}
}

func (t *wsTransport) failAll(err error) {
	t.once.Do(func() {
		close(t.closed)
	})
	t.mu.Lock()
	defer t.mu.Unlock()
	for id, ch := range t.pending {
		delete(t.pending, id)
		ch <- rpcResponse{JSONRPC: "2.0", ID: id, Error: &rpcError{Code: -32000, Message: err.Error()}}
		close(ch)
	}
}

func (t *wsTransport) Alive() bool {
	select {
	case <-t.closed:
		return false
	default:
		return true
	}
}

func (t *wsTransport) Call(ctx context.Context, req json.RawMessage) (json.RawMessage, error) {
	var parsed rpcRequest
	if err := json.Unmarshal(req, &parsed); err != nil {
		return nil, err
	}
	if parsed.ID == nil {
		return nil, fmt.Errorf("connectors: websocket request requires an id")
	}

	ch := make(chan rpcResponse, 1)
	t.mu.Lock()
	t.pending[*parsed.ID] = ch
	t.mu.Unlock()

	if err := t.write(req); err != nil {
		t.mu.Lock()
		delete(t.pending, *parsed.ID)
		t.mu.Unlock()
		return nil, err
	}

	select {
	case <-ctx.Done():
		t.mu.Lock()
		delete(t.pending, *parsed.ID)
		t.mu.Unlock()
		return nil, ctx.Err()
	case <-t.closed:
		return nil, fmt.Errorf("connectors: websocket transport closed")
	case resp := <-ch:
		b, _ := json.Marshal(resp)
		return b, nil
	}
}

func (t *wsTransport) Notify(ctx context.Context, msg json.RawMessage) error {
	_ = ctx
	return t.write(msg)
}

func (t *wsTransport) write(msg json.RawMessage) error {
	t.writeMu.Lock()
	defer t.writeMu.Unlock()
	return t.conn.WriteMessage(websocket.TextMessage, msg)
}

func (t *wsTransport) Close() error {
	t.once.Do(func() {
		close(t.closed)
	})
	_ = t.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
	return t.conn.Close()
}
