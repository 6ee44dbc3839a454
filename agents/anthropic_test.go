package agents

import (
	"testing"

	"github.com/liushuangls/go-anthropic/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToAnthropicMessages(t *testing.T) {
	messages := []Message{
		SystemMessage("be helpful"),
		UserMessage("read /tmp/x"),
		{Role: RoleAssistant, Content: "let me check", ToolCalls: []ToolCall{{
			ID:        "toolu-1",
			Name:      "read_file",
			Arguments: `{"path":"/tmp/x"}`,
		}}},
		ToolMessage("toolu-1", "file contents"),
		AssistantMessage("here you go"),
	}

	system, out := toAnthropicMessages(messages)
	assert.Equal(t, "be helpful", system)
	require.Len(t, out, 4)

	assert.Equal(t, anthropic.RoleUser, out[0].Role)

	// Assistant turn with a tool call carries text plus a tool_use block.
	assert.Equal(t, anthropic.RoleAssistant, out[1].Role)
	require.Len(t, out[1].Content, 2)
	assert.Equal(t, anthropic.MessagesContentTypeToolUse, out[1].Content[1].Type)
	require.NotNil(t, out[1].Content[1].MessageContentToolUse)
	assert.Equal(t, "toolu-1", out[1].Content[1].MessageContentToolUse.ID)
	assert.Equal(t, "read_file", out[1].Content[1].MessageContentToolUse.Name)
	assert.JSONEq(t, `{"path":"/tmp/x"}`, string(out[1].Content[1].MessageContentToolUse.Input))

	// Tool results travel as a user message with a tool_result block.
	assert.Equal(t, anthropic.RoleUser, out[2].Role)
	require.Len(t, out[2].Content, 1)
	assert.Equal(t, anthropic.MessagesContentTypeToolResult, out[2].Content[0].Type)

	assert.Equal(t, anthropic.RoleAssistant, out[3].Role)
}

func TestToAnthropicMessagesJoinsSystemPrompts(t *testing.T) {
	system, out := toAnthropicMessages([]Message{
		SystemMessage("first"),
		SystemMessage("second"),
		UserMessage("hi"),
	})
	assert.Equal(t, "first\nsecond", system)
	assert.Len(t, out, 1)
}
