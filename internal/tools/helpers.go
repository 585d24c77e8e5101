// Package tools implements the MCP tool handlers through which a host
// agent runtime drives the hook engine.
//
// Each tool is a struct receiving its dependencies via constructor (DIP)
// and exposing a Definition/Handle pair compatible with mcp-go.
//
// Design principles:
// - SRP: each file = one tool
// - DIP: tools depend on the engine and store abstractions, not on wiring
// - OCP: new tools are added without modifying existing ones
package tools

import (
	"encoding/json"
	"fmt"
)

// decodeParams parses the params_json argument the host forwards from
// its own tool call. An empty string is an empty parameter map.
func decodeParams(raw string) (map[string]any, error) {
	if raw == "" {
		return map[string]any{}, nil
	}
	var params map[string]any
	if err := json.Unmarshal([]byte(raw), &params); err != nil {
		return nil, fmt.Errorf("params_json is not a JSON object: %w", err)
	}
	if params == nil {
		params = map[string]any{}
	}
	return params, nil
}
