package agents

import (
	"context"

	mcpuse "github.com/mcp-use/mcp-use-go"
)

// Role identifies the author of a conversation message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// Message is one entry of the conversation history.
type Message struct {
	Role       Role
	Content    string
	ToolCalls  []ToolCall
	ToolCallID string
}

// ToolCall is a request from the model to execute a tool.
type ToolCall struct {
	ID        string
	Name      string
	Arguments string // raw JSON
}

// SystemMessage returns a system message.
func SystemMessage(content string) Message {
	return Message{Role: RoleSystem, Content: content}
}

// UserMessage returns a user message.
func UserMessage(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

// AssistantMessage returns a plain assistant message.
func AssistantMessage(content string) Message {
	return Message{Role: RoleAssistant, Content: content}
}

// ToolMessage returns a tool result message for the given tool call.
func ToolMessage(toolCallID, content string) Message {
	return Message{Role: RoleTool, ToolCallID: toolCallID, Content: content}
}

// Tool aliases the root tool type for convenience.
type Tool = mcpuse.Tool

// LLM is a chat model capable of tool calling.
type LLM interface {
	Chat(ctx context.Context, messages []Message, tools []Tool) (*Message, error)
}
