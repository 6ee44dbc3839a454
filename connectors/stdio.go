package connectors

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"
)

// StdioConnector runs a local MCP server as a subprocess and talks to it
// over stdin/stdout. Messages are framed as single-line JSON (one JSON-RPC
// message per line).
type StdioConnector struct {
	*base
	command string
	args    []string
}

// NewStdio creates a connector that launches command with args and speaks
// MCP over the subprocess's standard streams.
func NewStdio(command string, args []string, opts ...Option) *StdioConnector {
	cfg := newConfig(opts)
	c := &StdioConnector{command: command, args: args}
	identifier := command
	if len(args) > 0 {
		identifier = command + " " + strings.Join(args, " ")
	}
	c.base = newBase(identifier, func(ctx context.Context) (Transport, error) {
		return startStdioTransport(ctx, command, args, cfg.env)
	}, cfg)
	return c
}

type stdioTransport struct {
	mu     sync.Mutex
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stdout io.ReadCloser

	br *bufio.Reader
	bw *bufio.Writer

	pending map[int64]chan rpcResponse

	closed chan struct{}
	once   sync.Once
}

func startStdioTransport(ctx context.Context, command string, args []string, env map[string]string) (*stdioTransport, error) {
	if command == "" {
		return nil, fmt.Errorf("connectors: stdio command is required")
	}
	cmd := exec.Command(command, args...)
	if len(env) > 0 {
		cmd.Env = os.Environ()
		for k, v := range env {
			cmd.Env = append(cmd.Env, k+"="+v)
		}
	}

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, err
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		_ = stdin.Close()
		return nil, err
	}
	// Server may write logs to stderr; inherit by default.

	if err := cmd.Start(); err != nil {
		_ = stdin.Close()
		_ = stdout.Close()
		return nil, err
	}

	t := &stdioTransport{
		cmd:     cmd,
		stdin:   stdin,
		stdout:  stdout,
		br:      bufio.NewReader(stdout),
		bw:      bufio.NewWriter(stdin),
		pending: map[int64]chan rpcResponse{},
		closed:  make(chan struct{}),
	}
	go t.readLoop()
	return t, nil
}

func (t *stdioTransport) readLoop() {
	for {
		line, err := t.br.ReadBytes('\n')
		if err != nil {
			t.failAll(err)
			return
		}
		// Trim trailing newline(s)
		for len(line) > 0 && (line[len(line)-1] == '\n' || line[len(line)-1] == '\r') {
			line = line[:len(line)-1]
		}
		if len(line) == 0 {
			continue
		}

		var resp rpcResponse
		if err := json.Unmarshal(line, &resp); err != nil {
			// Server may emit notifications or other messages; skip anything
			// that is not a parseable response.
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

func (t *stdioTransport) failAll(err error) {
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

func (t *stdioTransport) Alive() bool {
	select {
	case <-t.closed:
		return false
	default:
		return true
	}
}

func (t *stdioTransport) Call(ctx context.Context, req json.RawMessage) (json.RawMessage, error) {
	var parsed rpcRequest
	if err := json.Unmarshal(req, &parsed); err != nil {
		return nil, err
	}
	if parsed.ID == nil {
		return nil, fmt.Errorf("connectors: stdio request requires an id")
	}

	ch := make(chan rpcResponse, 1)
	t.mu.Lock()
	t.pending[*parsed.ID] = ch
	if err := t.writeLocked(req); err != nil {
		delete(t.pending, *parsed.ID)
		t.mu.Unlock()
		return nil, err
	}
	t.mu.Unlock()

	select {
	case <-ctx.Done():
		t.mu.Lock()
		delete(t.pending, *parsed.ID)
		t.mu.Unlock()
		return nil, ctx.Err()
	case <-t.closed:
		return nil, fmt.Errorf("connectors: stdio transport closed")
	case resp := <-ch:
		b, _ := json.Marshal(resp)
		return b, nil
	}
}

func (t *stdioTransport) Notify(ctx context.Context, msg json.RawMessage) error {
	_ = ctx
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.writeLocked(msg)
}

func (t *stdioTransport) writeLocked(msg json.RawMessage) error {
	if _, err := t.bw.Write(msg); err != nil {
		return err
	}
	if err := t.bw.WriteByte('\n'); err != nil {
		return err
	}
	return t.bw.Flush()
}

func (t *stdioTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.cmd == nil {
		return nil
	}
	_ = t.stdin.Close()
	_ = t.stdout.Close()
	_ = t.cmd.Process.Kill()
	_, _ = t.cmd.Process.Wait()
	t.cmd = nil
	t.once.Do(func() {
		close(t.closed)
	})
	return nil
}
