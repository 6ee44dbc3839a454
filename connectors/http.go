package connectors

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/mcp-use/mcp-use-go/internal/sse"
)

// AuthProvider supplies (and refreshes) an Authorization header value for
// HTTP-based connectors, e.g. an OAuth bearer token.
type AuthProvider interface {
	AuthorizationHeader(ctx context.Context) (string, error)
}

// HTTPConnector talks to a remote MCP server over the streamable HTTP
// transport. Requests are POSTed as JSON-RPC; the server may answer with a
// plain JSON body or an SSE stream.
type HTTPConnector struct {
	*base
	url string
}

// NewHTTP creates a connector for an MCP server at url.
func NewHTTP(url string, opts ...Option) *HTTPConnector {
	cfg := newConfig(opts)
	c := &HTTPConnector{url: url}
	c.base = newBase(url, func(ctx context.Context) (Transport, error) {
		if url == "" {
			return nil, fmt.Errorf("connectors: http url is required")
		}
		return &httpTransport{
			url:          url,
			headers:      cfg.headers,
			authToken:    cfg.authToken,
			authProvider: cfg.oauth,
			client:       cfg.httpClient,
		}, nil
	}, cfg)
	return c
}

// Events opens the server-to-client event stream (HTTP GET with an SSE
// response) and invokes fn for every JSON-RPC message the server pushes.
// It blocks until the stream ends or ctx is cancelled. The connector must
// be connected first.
func (c *HTTPConnector) Events(ctx context.Context, fn func(msg json.RawMessage)) error {
	ht, ok := c.transport().(*httpTransport)
	if !ok {
		return &ConnectorError{Op: "events", Cause: ErrNotConnected}
	}

	body, err := ht.OpenSSEStream(ctx)
	if err != nil {
		return &ConnectorError{Op: "events", Cause: err}
	}
	defer body.Close()

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			body.Close()
		case <-done:
		}
	}()

	dec := sse.NewDecoder(body)
	for dec.Next() {
		data := dec.Data()
		if len(data) == 0 {
			continue
		}
		fn(append(json.RawMessage(nil), data...))
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return dec.Err()
}

type httpTransport struct {
	url          string
	headers      map[string]string
	authToken    string
	authProvider AuthProvider

	// client defaults to a 60s timeout client when nil.
	client *http.Client

	mu sync.Mutex

	// protocolVersion is sent via MCP-Protocol-Version header after initialization.
	protocolVersion string
	// sessionID is sent via Mcp-Session-Id header after initialization when provided by server.
	sessionID string
}

func (t *httpTransport) SetProtocolVersion(v string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.protocolVersion = v
}

func (t *httpTransport) SessionID() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.sessionID
}

func (t *httpTransport) httpClient() *http.Client {
	if t.client != nil {
		return t.client
	}
	return &http.Client{Timeout: 60 * time.Second}
}

func (t *httpTransport) setHeaders(ctx context.Context, r *http.Request) error {
	t.mu.Lock()
	if t.protocolVersion != "" {
		r.Header.Set("MCP-Protocol-Version", t.protocolVersion)
	}
	if t.sessionID != "" {
		r.Header.Set("Mcp-Session-Id", t.sessionID)
	}
	t.mu.Unlock()

	for k, v := range t.headers {
		if v != "" {
			r.Header.Set(k, v)
		}
	}
	if t.authToken != "" && r.Header.Get("Authorization") == "" {
		r.Header.Set("Authorization", "Bearer "+t.authToken)
	}
	if t.authProvider != nil && r.Header.Get("Authorization") == "" {
		v, err := t.authProvider.AuthorizationHeader(ctx)
		if err != nil {
			return err
		}
		if v != "" {
			r.Header.Set("Authorization", v)
		}
	}
	return nil
}

func (t *httpTransport) statusError(method string, status int, body []byte, headers http.Header) *HTTPStatusError {
	t.mu.Lock()
	sid := t.sessionID
	pv := t.protocolVersion
	t.mu.Unlock()
	return &HTTPStatusError{
		Method:          method,
		URL:             t.url,
		StatusCode:      status,
		Body:            body,
		Headers:         headers.Clone(),
		SessionID:       sid,
		ProtocolVersion: pv,
	}
}

func (t *httpTransport) Call(ctx context.Context, req json.RawMessage) (json.RawMessage, error) {
	r, err := http.NewRequestWithContext(ctx, http.MethodPost, t.url, bytes.NewReader(req))
	if err != nil {
		return nil, err
	}
	r.Header.Set("Content-Type", "application/json")
	// Streamable HTTP requires clients advertise both response types.
	r.Header.Set("Accept", "application/json, text/event-stream")
	if err := t.setHeaders(ctx, r); err != nil {
		return nil, err
	}

	resp, err := t.httpClient().Do(r)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	// Capture session ID header if present.
	if sid := resp.Header.Get("Mcp-Session-Id"); sid != "" {
		t.mu.Lock()
		t.sessionID = sid
		t.mu.Unlock()
	}

	ct := resp.Header.Get("Content-Type")
	if strings.HasPrefix(ct, "text/event-stream") {
		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			b, _ := io.ReadAll(resp.Body)
			return nil, t.statusError(http.MethodPost, resp.StatusCode, b, resp.Header)
		}
		return t.readSSEResponse(resp.Body, req)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	// 202 Accepted is valid for notifications/responses.
	if resp.StatusCode == http.StatusAccepted && len(body) == 0 {
		return json.RawMessage(`{"jsonrpc":"2.0","id":0,"result":{}}`), nil
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, t.statusError(http.MethodPost, resp.StatusCode, body, resp.Header)
	}

	if len(body) == 0 {
		return nil, fmt.Errorf("connectors: empty response body")
	}
	out := append(json.RawMessage(nil), body...)
	return out, nil
}

func (t *httpTransport) Notify(ctx context.Context, msg json.RawMessage) error {
	r, err := http.NewRequestWithContext(ctx, http.MethodPost, t.url, bytes.NewReader(msg))
	if err != nil {
		return err
	}
	r.Header.Set("Content-Type", "application/json")
	r.Header.Set("Accept", "application/json, text/event-stream")
	if err := t.setHeaders(ctx, r); err != nil {
		return err
	}

	resp, err := t.httpClient().Do(r)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if sid := resp.Header.Get("Mcp-Session-Id"); sid != "" {
		t.mu.Lock()
		t.sessionID = sid
		t.mu.Unlock()
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return t.statusError(http.MethodPost, resp.StatusCode, nil, resp.Header)
	}
	return nil
}

// Close attempts to terminate the session if supported by the server.
func (t *httpTransport) Close() error {
	t.mu.Lock()
	sid := t.sessionID
	pv := t.protocolVersion
	t.mu.Unlock()

	if sid == "" || t.url == "" {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	r, err := http.NewRequestWithContext(ctx, http.MethodDelete, t.url, nil)
	if err != nil {
		return nil
	}
	r.Header.Set("Accept", "application/json")
	if pv != "" {
		r.Header.Set("MCP-Protocol-Version", pv)
	}
	r.Header.Set("Mcp-Session-Id", sid)
	for k, v := range t.headers {
		if v != "" {
			r.Header.Set(k, v)
		}
	}
	if t.authToken != "" && r.Header.Get("Authorization") == "" {
		r.Header.Set("Authorization", "Bearer "+t.authToken)
	}
	if t.authProvider != nil && r.Header.Get("Authorization") == "" {
		v, err := t.authProvider.AuthorizationHeader(ctx)
		if err == nil && v != "" {
			r.Header.Set("Authorization", v)
		}
	}

	resp, err := t.httpClient().Do(r)
	if err != nil {
		return nil
	}
	defer resp.Body.Close()
	// 405 is allowed by spec (server may not support explicit termination).
	return nil
}

// OpenSSEStream opens a server-to-client event stream using HTTP GET.
// This is part of MCP streamable HTTP transport.
func (t *httpTransport) OpenSSEStream(ctx context.Context) (io.ReadCloser, error) {
	client := t.client
	if client == nil {
		client = &http.Client{Timeout: 0} // let ctx control lifetime
	}

	r, err := http.NewRequestWithContext(ctx, http.MethodGet, t.url, nil)
	if err != nil {
		return nil, err
	}
	r.Header.Set("Accept", "text/event-stream")
	if err := t.setHeaders(ctx, r); err != nil {
		return nil, err
	}

	resp, err := client.Do(r)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		return nil, t.statusError(http.MethodGet, resp.StatusCode, b, resp.Header)
	}
	ct := resp.Header.Get("Content-Type")
	if !strings.HasPrefix(ct, "text/event-stream") {
		b, _ := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		return nil, t.statusError(http.MethodGet, resp.StatusCode, b, resp.Header)
	}

	if sid := resp.Header.Get("Mcp-Session-Id"); sid != "" {
		t.mu.Lock()
		t.sessionID = sid
		t.mu.Unlock()
	}

	return resp.Body, nil
}

func (t *httpTransport) readSSEResponse(r io.Reader, req json.RawMessage) (json.RawMessage, error) {
	// Determine expected response id from request.
	var want struct {
		ID *int64 `json:"id"`
	}
	_ = json.Unmarshal(req, &want)

	dec := sse.NewDecoder(r)
	for dec.Next() {
		data := dec.Data()
		if len(data) == 0 {
			continue
		}
		// data payload is a JSON-RPC message.
		var msg struct {
			ID *int64 `json:"id,omitempty"`
		}
		if err := json.Unmarshal(data, &msg); err != nil {
			continue
		}
		if want.ID != nil && msg.ID != nil && *msg.ID == *want.ID {
			return append(json.RawMessage(nil), data...), nil
		}
		// Ignore other messages (requests/notifications) for now.
	}
	if err := dec.Err(); err != nil {
		return nil, err
	}
	return nil, fmt.Errorf("connectors: sse stream ended without response")
}
