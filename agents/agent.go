package agents

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/google/uuid"

	mcpuse "github.com/mcp-use/mcp-use-go"
	"github.com/mcp-use/mcp-use-go/adapters"
	"github.com/mcp-use/mcp-use-go/connectors"
)

// ErrMaxStepsReached is returned by Run when the model did not produce a
// final answer within the step budget.
var ErrMaxStepsReached = errors.New("agents: maximum number of steps reached")

const defaultMaxSteps = 5

// Agent runs a tool-calling loop against an LLM, using tools discovered
// from MCP servers.
//
// An Agent is not safe for concurrent use; run one query at a time.
type Agent struct {
	llm        LLM
	client     *mcpuse.Client
	connectors []connectors.Connector
	adapter    *adapters.Adapter
	logger     *slog.Logger

	maxSteps               int
	systemPrompt           string
	additionalInstructions string
	disallowedTools        []string
	useServerManager       bool
	memoryEnabled          bool

	initialized   bool
	tools         []Tool
	system        string
	history       []Message
	serverManager *ServerManager
}

// AgentOption configures an Agent.
type AgentOption func(*Agent)

// WithClient attaches an MCP client; the agent creates sessions for its
// configured servers on Initialize.
func WithClient(c *mcpuse.Client) AgentOption {
	return func(a *Agent) { a.client = c }
}

// WithConnectors attaches explicit connectors instead of a client.
func WithConnectors(conns ...connectors.Connector) AgentOption {
	return func(a *Agent) { a.connectors = append(a.connectors, conns...) }
}

// WithMaxSteps sets the default step budget per Run. Default 5.
func WithMaxSteps(n int) AgentOption {
	return func(a *Agent) {
		if n > 0 {
			a.maxSteps = n
		}
	}
}

// WithSystemPrompt replaces the generated system prompt entirely.
func WithSystemPrompt(prompt string) AgentOption {
	return func(a *Agent) { a.systemPrompt = prompt }
}

// WithAdditionalInstructions appends instructions to the generated system
// prompt.
func WithAdditionalInstructions(instructions string) AgentOption {
	return func(a *Agent) { a.additionalInstructions = instructions }
}

// WithDisallowedTools hides the named MCP tools from the model.
func WithDisallowedTools(names ...string) AgentOption {
	return func(a *Agent) { a.disallowedTools = append(a.disallowedTools, names...) }
}

// WithServerManager enables server-manager mode: instead of exposing every
// server's tools up front, the model gets management tools to discover and
// activate servers on demand.
func WithServerManager() AgentOption {
	return func(a *Agent) { a.useServerManager = true }
}

// WithMemory controls whether conversation history is kept across Run
// calls. Enabled by default.
func WithMemory(v bool) AgentOption {
	return func(a *Agent) { a.memoryEnabled = v }
}

// WithAgentLogger sets the agent's logger.
func WithAgentLogger(l *slog.Logger) AgentOption {
	return func(a *Agent) {
		if l != nil {
			a.logger = l
		}
	}
}

// New creates an Agent. An LLM and either a client or connectors are
// required.
func New(llm LLM, opts ...AgentOption) (*Agent, error) {
	if llm == nil {
		return nil, errors.New("agents: llm is required")
	}
	a := &Agent{
		llm:           llm,
		maxSteps:      defaultMaxSteps,
		memoryEnabled: true,
		logger:        slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, o := range opts {
		o(a)
	}
	if a.client == nil && len(a.connectors) == 0 {
		return nil, errors.New("agents: a client or at least one connector is required")
	}
	if a.useServerManager && a.client == nil {
		return nil, errors.New("agents: server manager mode requires a client")
	}
	a.adapter = adapters.New(
		adapters.WithDisallowedTools(a.disallowedTools...),
		adapters.WithLogger(a.logger),
	)
	return a, nil
}

// Initialize creates sessions, discovers tools and assembles the system
// prompt. Run calls it implicitly on first use.
func (a *Agent) Initialize(ctx context.Context) error {
	if a.initialized {
		return nil
	}

	var tools []Tool
	switch {
	case a.useServerManager:
		a.serverManager = newServerManager(a.client, a.adapter, a.logger)
		tools = a.serverManager.Tools()
	case a.client != nil:
		created, err := a.adapter.CreateTools(ctx, a.client)
		if err != nil {
			return err
		}
		tools = created
	default:
		for _, conn := range a.connectors {
			if !conn.IsConnected() {
				if err := conn.Connect(ctx); err != nil {
					return err
				}
				if _, err := conn.Initialize(ctx); err != nil {
					return err
				}
			}
			created, err := a.adapter.CreateToolsFromConnector(ctx, conn)
			if err != nil {
				return err
			}
			tools = append(tools, created...)
		}
	}

	a.tools = tools
	a.system = buildSystemPrompt(tools, a.systemPrompt, a.additionalInstructions, a.useServerManager)
	a.initialized = true
	a.logger.Debug("agent initialized", "tools", len(tools), "server_manager", a.useServerManager)
	return nil
}

// RunOption adjusts a single Run call.
type RunOption func(*runOptions)

type runOptions struct {
	maxSteps int
}

// WithRunMaxSteps overrides the agent's step budget for this run.
func WithRunMaxSteps(n int) RunOption {
	return func(o *runOptions) {
		if n > 0 {
			o.maxSteps = n
		}
	}
}

// Run executes the tool-calling loop for query and returns the model's
// final answer. It returns ErrMaxStepsReached when the step budget is
// exhausted before the model finishes.
func (a *Agent) Run(ctx context.Context, query string, opts ...RunOption) (string, error) {
	if err := a.Initialize(ctx); err != nil {
		return "", err
	}

	ro := runOptions{maxSteps: a.maxSteps}
	for _, o := range opts {
		o(&ro)
	}

	runID := uuid.NewString()
	logger := a.logger.With("run_id", runID)
	logger.Info("starting agent run", "query", query, "max_steps", ro.maxSteps)

	messages := []Message{SystemMessage(a.system)}
	if a.memoryEnabled {
		messages = append(messages, a.history...)
	}
	messages = append(messages, UserMessage(query))
	a.remember(UserMessage(query))

	for step := 0; step < ro.maxSteps; step++ {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		default:
		}

		// Server-manager mode splices in the active server's tools as they
		// change between steps.
		if a.serverManager != nil {
			a.tools = a.serverManager.Tools()
		}

		logger.Debug("executing step", "step", step+1)
		response, err := a.llm.Chat(ctx, messages, a.tools)
		if err != nil {
			return "", fmt.Errorf("agents: step %d: %w", step+1, err)
		}
		messages = append(messages, *response)
		a.remember(*response)

		if len(response.ToolCalls) == 0 {
			logger.Info("agent finished", "steps", step+1)
			return response.Content, nil
		}

		for _, tc := range response.ToolCalls {
			result := a.executeTool(ctx, logger, tc)
			msg := ToolMessage(tc.ID, result)
			messages = append(messages, msg)
			a.remember(msg)
		}
	}

	logger.Info("agent stopped", "reason", "max steps reached")
	return "", ErrMaxStepsReached
}

func (a *Agent) executeTool(ctx context.Context, logger *slog.Logger, tc ToolCall) string {
	var tool *Tool
	for i := range a.tools {
		if a.tools[i].Name == tc.Name {
			tool = &a.tools[i]
			break
		}
	}
	if tool == nil {
		logger.Warn("model requested unknown tool", "tool", tc.Name)
		return fmt.Sprintf("Error: tool %q not found", tc.Name)
	}

	logger.Debug("executing tool", "tool", tc.Name)
	output, err := tool.Handler(ctx, json.RawMessage(tc.Arguments))
	if err != nil {
		logger.Warn("tool execution failed", "tool", tc.Name, "err", err)
		return fmt.Sprintf("Error executing tool %q: %v", tc.Name, err)
	}
	return output
}

func (a *Agent) remember(msg Message) {
	if a.memoryEnabled {
		a.history = append(a.history, msg)
	}
}

// ConversationHistory returns a copy of the remembered conversation.
func (a *Agent) ConversationHistory() []Message {
	return append([]Message(nil), a.history...)
}

// ClearConversationHistory drops the remembered conversation.
func (a *Agent) ClearConversationHistory() {
	a.history = nil
}

// Close disconnects the agent's sessions: all client sessions when a
// client is attached, otherwise the explicit connectors.
func (a *Agent) Close(ctx context.Context) error {
	a.initialized = false
	a.tools = nil
	if a.client != nil {
		return a.client.CloseAllSessions(ctx)
	}
	var errs []error
	for _, conn := range a.connectors {
		if err := conn.Disconnect(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
