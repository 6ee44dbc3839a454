package agents

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// defaultSystemPromptTemplate is used when all server tools are exposed to
// the model directly. %s is the rendered tool list.
const defaultSystemPromptTemplate = `You are a helpful assistant with access to tools provided by MCP (Model Context Protocol) servers.

You can use the following tools:
%s

Use these tools when they are relevant to the user's request. Think about which tool fits the task, call it with well-formed arguments, and incorporate its result into your answer. If no tool is relevant, answer directly.`

// serverManagerSystemPromptTemplate is used in server-manager mode, where
// the model discovers and activates servers on demand. %s is the rendered
// management tool list.
const serverManagerSystemPromptTemplate = `You are a helpful assistant that can use tools provided by MCP (Model Context Protocol) servers.

Tools are grouped by server and you must connect to a server before its tools become available. Use the management tools to work with servers:
%s

Typical flow: list the available servers, connect to the one that looks relevant, then use the tools it provides. Connect to a different server when the current one does not have what you need.`

// buildSystemPrompt renders the system prompt for the given tool set, with
// optional override and additional instructions (both verbatim).
func buildSystemPrompt(tools []Tool, override, additional string, serverManager bool) string {
	var prompt string
	if override != "" {
		prompt = override
	} else {
		tmpl := defaultSystemPromptTemplate
		if serverManager {
			tmpl = serverManagerSystemPromptTemplate
		}
		prompt = fmt.Sprintf(tmpl, renderToolList(tools))
	}
	if additional != "" {
		prompt += "\n\n" + additional
	}
	return prompt
}

func renderToolList(tools []Tool) string {
	if len(tools) == 0 {
		return "(no tools available)"
	}
	var b strings.Builder
	for _, t := range tools {
		desc := strings.TrimSpace(t.Description)
		if desc == "" {
			desc = "(no description)"
		}
		fmt.Fprintf(&b, "- %s: %s\n", t.Name, desc)
		if args := renderSchemaArgs(t.InputSchema); args != "" {
			fmt.Fprintf(&b, "  arguments: %s\n", args)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

// renderSchemaArgs lists top-level schema properties as "name (type)".
func renderSchemaArgs(schema json.RawMessage) string {
	if len(schema) == 0 {
		return ""
	}
	var parsed struct {
		Properties map[string]struct {
			Type string `json:"type"`
		} `json:"properties"`
		Required []string `json:"required"`
	}
	if err := json.Unmarshal(schema, &parsed); err != nil || len(parsed.Properties) == 0 {
		return ""
	}
	required := make(map[string]bool, len(parsed.Required))
	for _, r := range parsed.Required {
		required[r] = true
	}
	parts := make([]string, 0, len(parsed.Properties))
	for name, p := range parsed.Properties {
		part := name
		if p.Type != "" {
			part += " (" + p.Type + ")"
		}
		if required[name] {
			part += " [required]"
		}
		parts = append(parts, part)
	}
	sort.Strings(parts)
	return strings.Join(parts, ", ")
}
