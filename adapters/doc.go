// Package adapters bridges MCP tools to the agents package: it wraps the
// tools an MCP connector exposes as executable mcpuse.Tool values whose
// handlers call back into the server, flattening results into text the
// model can consume.
package adapters
