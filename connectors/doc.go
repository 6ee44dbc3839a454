// Package connectors implements MCP protocol clients for the transports an
// MCP server can be reached over: a local subprocess speaking line-framed
// JSON-RPC on stdio, streamable HTTP, and websockets.
//
// A Connector owns one server connection. It performs the initialize
// handshake, caches the server's declared tools, resources and prompts, and
// re-establishes lost connections transparently on the next operation. Most
// callers do not construct connectors directly; the mcpuse.Client builds
// them from its server configuration.
package connectors
