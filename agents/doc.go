// Package agents runs tool-calling loops against chat models using tools
// discovered from MCP servers.
//
// The Agent drives the loop: it asks the LLM for the next step, executes
// any tool calls it returns against the connected servers, feeds the
// results back, and repeats until the model answers or the step budget is
// exhausted. OpenAI- and Anthropic-backed LLM implementations are
// provided; any model can be plugged in through the LLM interface.
package agents
