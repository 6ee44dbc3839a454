package agents

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net"
	"time"

	"github.com/sashabaranov/go-openai"
)

// OpenAI is an LLM backed by the OpenAI chat completions API (or any
// compatible endpoint via WithOpenAIBaseURL).
type OpenAI struct {
	client     *openai.Client
	model      string
	maxRetries int
}

// OpenAIOption configures the OpenAI backend.
type OpenAIOption func(*openaiConfig)

type openaiConfig struct {
	baseURL    string
	maxRetries int
}

// WithOpenAIBaseURL points the client at an OpenAI-compatible endpoint
// (e.g. a local Ollama or vLLM server).
func WithOpenAIBaseURL(url string) OpenAIOption {
	return func(c *openaiConfig) { c.baseURL = url }
}

// WithOpenAIMaxRetries sets how many times retryable request failures are
// retried. Default 3.
func WithOpenAIMaxRetries(n int) OpenAIOption {
	return func(c *openaiConfig) { c.maxRetries = n }
}

// NewOpenAI creates an OpenAI chat backend.
func NewOpenAI(apiKey, model string, opts ...OpenAIOption) *OpenAI {
	cfg := openaiConfig{maxRetries: 3}
	for _, o := range opts {
		o(&cfg)
	}
	clientConfig := openai.DefaultConfig(apiKey)
	if cfg.baseURL != "" {
		clientConfig.BaseURL = cfg.baseURL
	}
	return &OpenAI{
		client:     openai.NewClientWithConfig(clientConfig),
		model:      model,
		maxRetries: cfg.maxRetries,
	}
}

// Chat sends the conversation and tools to the model and returns its reply.
func (p *OpenAI) Chat(ctx context.Context, messages []Message, tools []Tool) (*Message, error) {
	req := openai.ChatCompletionRequest{
		Model:    p.model,
		Messages: toOpenAIMessages(messages),
	}
	if len(tools) > 0 {
		oaTools, err := toOpenAITools(tools)
		if err != nil {
			return nil, err
		}
		req.Tools = oaTools
	}

	// Exponential backoff on retryable failures (network errors, 429, 5xx).
	var resp openai.ChatCompletionResponse
	var err error
	baseDelay := time.Second
	for attempt := 0; attempt < p.maxRetries; attempt++ {
		resp, err = p.client.CreateChatCompletion(ctx, req)
		if err == nil {
			break
		}
		if attempt == p.maxRetries-1 || !isRetryableOpenAIError(err) {
			break
		}
		delay := time.Duration(math.Min(float64(baseDelay.Milliseconds()*int64(math.Pow(2, float64(attempt)))), 10000)) * time.Millisecond
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, fmt.Errorf("agents: openai chat: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("agents: openai chat: empty response")
	}

	choice := resp.Choices[0].Message
	out := &Message{Role: RoleAssistant, Content: choice.Content}
	for _, tc := range choice.ToolCalls {
		out.ToolCalls = append(out.ToolCalls, ToolCall{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: tc.Function.Arguments,
		})
	}
	return out, nil
}

func toOpenAIMessages(messages []Message) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, 0, len(messages))
	for _, msg := range messages {
		m := openai.ChatCompletionMessage{Content: msg.Content}
		switch msg.Role {
		case RoleSystem:
			m.Role = openai.ChatMessageRoleSystem
		case RoleUser:
			m.Role = openai.ChatMessageRoleUser
		case RoleAssistant:
			m.Role = openai.ChatMessageRoleAssistant
			for _, tc := range msg.ToolCalls {
				m.ToolCalls = append(m.ToolCalls, openai.ToolCall{
					ID:   tc.ID,
					Type: openai.ToolTypeFunction,
					Function: openai.FunctionCall{
						Name:      tc.Name,
						Arguments: tc.Arguments,
					},
				})
			}
		case RoleTool:
			m.Role = openai.ChatMessageRoleTool
			m.ToolCallID = msg.ToolCallID
		}
		out = append(out, m)
	}
	return out
}

func toOpenAITools(tools []Tool) ([]openai.Tool, error) {
	out := make([]openai.Tool, 0, len(tools))
	for _, tool := range tools {
		params := tool.InputSchema
		if len(params) == 0 {
			params = json.RawMessage(`{"type":"object","properties":{}}`)
		}
		out = append(out, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        tool.Name,
				Description: tool.Description,
				Parameters:  params,
			},
		})
	}
	return out, nil
}

func isRetryableOpenAIError(err error) bool {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode == 429 || apiErr.HTTPStatusCode >= 500
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}
