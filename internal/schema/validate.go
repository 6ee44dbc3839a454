// Package schema validates MCP tool arguments against the JSON schema the
// server declared for the tool.
package schema

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Validate checks args against inputSchema. A missing schema accepts
// anything; missing args are validated as an empty object, which is how MCP
// servers interpret a tools/call without arguments.
func Validate(inputSchema, args json.RawMessage) error {
	if len(inputSchema) == 0 {
		return nil
	}
	if len(args) == 0 {
		args = json.RawMessage(`{}`)
	}

	c := jsonschema.NewCompiler()
	if err := c.AddResource("tool.json", bytes.NewReader(inputSchema)); err != nil {
		return fmt.Errorf("schema resource: %w", err)
	}
	s, err := c.Compile("tool.json")
	if err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}

	var doc any
	if err := json.Unmarshal(args, &doc); err != nil {
		return fmt.Errorf("parse arguments: %w", err)
	}
	return s.Validate(doc)
}
