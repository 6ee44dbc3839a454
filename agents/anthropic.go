package agents

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/liushuangls/go-anthropic/v2"
)

// Anthropic is an LLM backed by the Anthropic messages API.
type Anthropic struct {
	client    *anthropic.Client
	model     string
	maxTokens int
}

// AnthropicOption configures the Anthropic backend.
type AnthropicOption func(*anthropicConfig)

type anthropicConfig struct {
	baseURL   string
	maxTokens int
}

// WithAnthropicBaseURL overrides the API endpoint.
func WithAnthropicBaseURL(url string) AnthropicOption {
	return func(c *anthropicConfig) { c.baseURL = url }
}

// WithAnthropicMaxTokens sets the per-response token cap. Default 4096.
func WithAnthropicMaxTokens(n int) AnthropicOption {
	return func(c *anthropicConfig) { c.maxTokens = n }
}

// NewAnthropic creates an Anthropic chat backend.
func NewAnthropic(apiKey, model string, opts ...AnthropicOption) *Anthropic {
	cfg := anthropicConfig{maxTokens: 4096}
	for _, o := range opts {
		o(&cfg)
	}
	var clientOpts []anthropic.ClientOption
	if cfg.baseURL != "" {
		clientOpts = append(clientOpts, anthropic.WithBaseURL(cfg.baseURL))
	}
	return &Anthropic{
		client:    anthropic.NewClient(apiKey, clientOpts...),
		model:     model,
		maxTokens: cfg.maxTokens,
	}
}

// Chat sends the conversation and tools to the model and returns its reply.
func (p *Anthropic) Chat(ctx context.Context, messages []Message, tools []Tool) (*Message, error) {
	system, anthMessages := toAnthropicMessages(messages)
	req := anthropic.MessagesRequest{
		Model:     anthropic.Model(p.model),
		MaxTokens: p.maxTokens,
		System:    system,
		Messages:  anthMessages,
	}
	for _, tool := range tools {
		schema := tool.InputSchema
		if len(schema) == 0 {
			schema = json.RawMessage(`{"type":"object","properties":{}}`)
		}
		req.Tools = append(req.Tools, anthropic.ToolDefinition{
			Name:        tool.Name,
			Description: tool.Description,
			InputSchema: schema,
		})
	}

	resp, err := p.client.CreateMessages(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("agents: anthropic chat: %w", err)
	}
	if len(resp.Content) == 0 {
		return nil, fmt.Errorf("agents: anthropic chat: empty response")
	}

	out := &Message{Role: RoleAssistant}
	for _, block := range resp.Content {
		switch block.Type {
		case anthropic.MessagesContentTypeText:
			if block.Text != nil {
				if out.Content != "" {
					out.Content += "\n"
				}
				out.Content += *block.Text
			}
		case anthropic.MessagesContentTypeToolUse:
			if block.MessageContentToolUse == nil {
				continue
			}
			out.ToolCalls = append(out.ToolCalls, ToolCall{
				ID:        block.MessageContentToolUse.ID,
				Name:      block.MessageContentToolUse.Name,
				Arguments: string(block.MessageContentToolUse.Input),
			})
		}
	}
	return out, nil
}

// toAnthropicMessages splits out the system prompt (Anthropic carries it on
// the request, not in the message list) and converts the rest.
func toAnthropicMessages(messages []Message) (string, []anthropic.Message) {
	var system string
	out := make([]anthropic.Message, 0, len(messages))
	for _, msg := range messages {
		switch msg.Role {
		case RoleSystem:
			if system != "" {
				system += "\n"
			}
			system += msg.Content
		case RoleUser:
			out = append(out, anthropic.NewUserTextMessage(msg.Content))
		case RoleAssistant:
			if len(msg.ToolCalls) == 0 {
				out = append(out, anthropic.NewAssistantTextMessage(msg.Content))
				continue
			}
			content := make([]anthropic.MessageContent, 0, len(msg.ToolCalls)+1)
			if msg.Content != "" {
				content = append(content, anthropic.NewTextMessageContent(msg.Content))
			}
			for _, tc := range msg.ToolCalls {
				content = append(content, anthropic.MessageContent{
					Type: anthropic.MessagesContentTypeToolUse,
					MessageContentToolUse: &anthropic.MessageContentToolUse{
						ID:    tc.ID,
						Name:  tc.Name,
						Input: json.RawMessage(tc.Arguments),
					},
				})
			}
			out = append(out, anthropic.Message{Role: anthropic.RoleAssistant, Content: content})
		case RoleTool:
			out = append(out, anthropic.NewToolResultsMessage(msg.ToolCallID, msg.Content, false))
		}
	}
	return system, out
}
