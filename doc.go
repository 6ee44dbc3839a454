// Package mcpuse connects tool-calling LLM agents to Model Context Protocol
// (MCP) servers.
//
// The Client reads an "mcpServers" configuration (the same JSON shape used
// by Claude Desktop and friends), opens sessions to the configured servers
// over stdio, streamable HTTP or websockets, and exposes each server's
// tools, resources and prompts. The adapters package converts those MCP
// tools into executable tool values, and the agents package runs a
// tool-calling loop against an LLM with them:
//
//	client, err := mcpuse.FromConfigFile("mcp.json")
//	if err != nil { ... }
//	defer client.CloseAllSessions(ctx)
//
//	llm := agents.NewOpenAI(os.Getenv("OPENAI_API_KEY"), "gpt-4o")
//	agent, err := agents.New(llm, agents.WithClient(client), agents.WithMaxSteps(30))
//	if err != nil { ... }
//	result, err := agent.Run(ctx, "what tools do you have?")
package mcpuse
