package agents

import (
	"encoding/json"
	"errors"
	"net"
	"testing"

	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToOpenAIMessages(t *testing.T) {
	messages := []Message{
		SystemMessage("be helpful"),
		UserMessage("read /tmp/x"),
		{Role: RoleAssistant, ToolCalls: []ToolCall{{
			ID:        "call-1",
			Name:      "read_file",
			Arguments: `{"path":"/tmp/x"}`,
		}}},
		ToolMessage("call-1", "file contents"),
		AssistantMessage("here you go"),
	}

	out := toOpenAIMessages(messages)
	require.Len(t, out, 5)

	assert.Equal(t, openai.ChatMessageRoleSystem, out[0].Role)
	assert.Equal(t, "be helpful", out[0].Content)
	assert.Equal(t, openai.ChatMessageRoleUser, out[1].Role)

	assert.Equal(t, openai.ChatMessageRoleAssistant, out[2].Role)
	require.Len(t, out[2].ToolCalls, 1)
	assert.Equal(t, "call-1", out[2].ToolCalls[0].ID)
	assert.Equal(t, openai.ToolTypeFunction, out[2].ToolCalls[0].Type)
	assert.Equal(t, "read_file", out[2].ToolCalls[0].Function.Name)
	assert.Equal(t, `{"path":"/tmp/x"}`, out[2].ToolCalls[0].Function.Arguments)

	assert.Equal(t, openai.ChatMessageRoleTool, out[3].Role)
	assert.Equal(t, "call-1", out[3].ToolCallID)
	assert.Equal(t, "file contents", out[3].Content)

	assert.Equal(t, openai.ChatMessageRoleAssistant, out[4].Role)
	assert.Empty(t, out[4].ToolCalls)
}

func TestToOpenAITools(t *testing.T) {
	tools := []Tool{
		{Name: "echo", Description: "Echo input", InputSchema: rawJSON(map[string]any{
			"type":       "object",
			"properties": map[string]any{"text": map[string]any{"type": "string"}},
		})},
		{Name: "noop"},
	}

	out, err := toOpenAITools(tools)
	require.NoError(t, err)
	require.Len(t, out, 2)

	assert.Equal(t, openai.ToolTypeFunction, out[0].Type)
	assert.Equal(t, "echo", out[0].Function.Name)
	assert.Equal(t, "Echo input", out[0].Function.Description)

	// A tool without a schema gets an empty object schema.
	params, ok := out[1].Function.Parameters.(json.RawMessage)
	require.True(t, ok)
	assert.JSONEq(t, `{"type":"object","properties":{}}`, string(params))
}

func TestIsRetryableOpenAIError(t *testing.T) {
	assert.True(t, isRetryableOpenAIError(&openai.APIError{HTTPStatusCode: 429}))
	assert.True(t, isRetryableOpenAIError(&openai.APIError{HTTPStatusCode: 503}))
	assert.False(t, isRetryableOpenAIError(&openai.APIError{HTTPStatusCode: 400}))
	assert.True(t, isRetryableOpenAIError(&net.DNSError{IsTimeout: true}))
	assert.False(t, isRetryableOpenAIError(errors.New("plain failure")))
}
