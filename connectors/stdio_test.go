package connectors

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// pipeStdioTransport wires a stdioTransport to in-memory pipes so framing can
// be tested without spawning a subprocess. The returned reader/writer are the
// server's side of the streams.
func pipeStdioTransport(t *testing.T) (*stdioTransport, *bufio.Reader, io.WriteCloser) {
	t.Helper()
	clientIn, serverOut := io.Pipe()
	serverIn, clientOut := io.Pipe()

	tr := &stdioTransport{
		stdin:   clientOut,
		stdout:  clientIn,
		br:      bufio.NewReader(clientIn),
		bw:      bufio.NewWriter(clientOut),
		pending: map[int64]chan rpcResponse{},
		closed:  make(chan struct{}),
	}
	go tr.readLoop()
	t.Cleanup(func() {
		_ = serverOut.Close()
		_ = clientOut.Close()
	})
	return tr, bufio.NewReader(serverIn), serverOut
}

func TestStdioTransportCallRoundTrip(t *testing.T) {
	tr, serverReader, serverWriter := pipeStdioTransport(t)

	go func() {
		line, err := serverReader.ReadBytes('\n')
		if err != nil {
			return
		}
		var req rpcRequest
		if json.Unmarshal(line, &req) != nil || req.ID == nil {
			return
		}
		// Noise the client must skip: a log line and a notification.
		_, _ = serverWriter.Write([]byte("starting server\n"))
		_, _ = serverWriter.Write([]byte("{\"jsonrpc\":\"2.0\",\"method\":\"notifications/progress\"}\n"))
		resp := mustJSON(rpcResponse{JSONRPC: "2.0", ID: *req.ID, Result: mustJSON(map[string]any{"pong": true})})
		_, _ = serverWriter.Write(append(resp, '\n'))
	}()

	id := int64(3)
	raw, err := tr.Call(context.Background(), mustJSON(rpcRequest{JSONRPC: "2.0", ID: &id, Method: "ping"}))
	require.NoError(t, err)

	var resp rpcResponse
	require.NoError(t, json.Unmarshal(raw, &resp))
	assert.Equal(t, id, resp.ID)
	assert.JSONEq(t, `{"pong":true}`, string(resp.Result))
}

func TestStdioTransportRequiresRequestID(t *testing.T) {
	tr, _, _ := pipeStdioTransport(t)

	_, err := tr.Call(context.Background(), mustJSON(rpcRequest{JSONRPC: "2.0", Method: "ping"}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "requires an id")
}

func TestStdioTransportNotifyWritesLine(t *testing.T) {
	tr, serverReader, _ := pipeStdioTransport(t)

	lines := make(chan []byte, 1)
	go func() {
		line, err := serverReader.ReadBytes('\n')
		if err == nil {
			lines <- line
		}
	}()

	require.NoError(t, tr.Notify(context.Background(),
		mustJSON(rpcRequest{JSONRPC: "2.0", Method: "notifications/initialized"})))

	var line []byte
	select {
	case line = <-lines:
	case <-time.After(time.Second):
		t.Fatal("notification was not written")
	}
	var msg rpcRequest
	require.NoError(t, json.Unmarshal(line, &msg))
	assert.Equal(t, "notifications/initialized", msg.Method)
	assert.Nil(t, msg.ID)
}

func TestStdioTransportServerExitFailsPending(t *testing.T) {
	tr, serverReader, serverWriter := pipeStdioTransport(t)

	go func() {
		_, _ = serverReader.ReadBytes('\n')
		_ = serverWriter.Close()
	}()

	id := int64(1)
	raw, err := tr.Call(context.Background(), mustJSON(rpcRequest{JSONRPC: "2.0", ID: &id, Method: "ping"}))
	if err == nil {
		var resp rpcResponse
		require.NoError(t, json.Unmarshal(raw, &resp))
		require.NotNil(t, resp.Error)
	}

	require.Eventually(t, func() bool { return !tr.Alive() },
		time.Second, 10*time.Millisecond)
}

func TestStdioTransportContextCancel(t *testing.T) {
	tr, serverReader, _ := pipeStdioTransport(t)

	// Server reads the request but never answers.
	go func() { _, _ = serverReader.ReadBytes('\n') }()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	id := int64(9)
	_, err := tr.Call(ctx, mustJSON(rpcRequest{JSONRPC: "2.0", ID: &id, Method: "ping"}))
	assert.ErrorIs(t, err, context.Canceled)
}
