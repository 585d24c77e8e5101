package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/warden-mcp/warden/internal/engine"
)

// PreHookTool handles the pre_tool_hook MCP tool. The host calls it
// immediately before executing one of its own tools; the returned
// decision JSON says whether the tool may run and, on a block, why.
type PreHookTool struct {
	engine *engine.Engine
}

// NewPreHookTool creates a PreHookTool for the session engine.
func NewPreHookTool(e *engine.Engine) *PreHookTool {
	return &PreHookTool{engine: e}
}

// Definition returns the MCP tool definition for registration.
func (t *PreHookTool) Definition() mcp.Tool {
	return mcp.NewTool("pre_tool_hook",
		mcp.WithDescription(
			"Gate a tool call before execution. Returns "+
				`{"allowed": bool, "reason": string} — when allowed is false `+
				"the tool must not run and the reason explains the block "+
				"(INTENT_REQUIRED, SCOPE_VIOLATION, STALE_FILE, ...). "+
				"Safe read-only tools always pass; mutating tools require a "+
				"bound intent and an in-scope, fresh target path.",
		),
		mcp.WithString("tool",
			mcp.Required(),
			mcp.Description("Name of the tool about to run, e.g. write_to_file"),
		),
		mcp.WithString("params_json",
			mcp.Description("The tool's parameters as a JSON object. "+
				"Path-bearing tools carry the target in the 'path' key."),
		),
	)
}

// Handle gates the call. Malformed input blocks — the gate never allows
// on error.
func (t *PreHookTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	tool := req.GetString("tool", "")
	if tool == "" {
		return decisionResult(engine.Decision{Allowed: false, Reason: "'tool' is required"})
	}

	params, err := decodeParams(req.GetString("params_json", ""))
	if err != nil {
		return decisionResult(engine.Decision{Allowed: false, Reason: err.Error()})
	}

	return decisionResult(t.engine.PreHook(tool, params))
}

// decisionResult serializes a decision as the tool's text payload.
func decisionResult(d engine.Decision) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(d)
	if err != nil {
		return nil, fmt.Errorf("marshal decision: %w", err)
	}
	return mcp.NewToolResultText(string(data)), nil
}

// PostHookTool handles the post_tool_hook MCP tool. The host calls it
// after an allowed tool ran without a fatal error; the completed
// mutation is hashed, classified, and appended to the trace ledger.
type PostHookTool struct {
	engine *engine.Engine
}

// NewPostHookTool creates a PostHookTool for the session engine.
func NewPostHookTool(e *engine.Engine) *PostHookTool {
	return &PostHookTool{engine: e}
}

// Definition returns the MCP tool definition for registration.
func (t *PostHookTool) Definition() mcp.Tool {
	return mcp.NewTool("post_tool_hook",
		mcp.WithDescription(
			"Record a completed mutation in the trace ledger. Call only "+
				"after pre_tool_hook allowed the tool and the tool finished. "+
				"An error here means the mutation happened but was NOT "+
				"recorded — the host must surface the audit gap.",
		),
		mcp.WithString("tool",
			mcp.Required(),
			mcp.Description("Name of the tool that ran"),
		),
		mcp.WithString("params_json",
			mcp.Description("The tool's parameters as a JSON object"),
		),
		mcp.WithNumber("elapsed_ms",
			mcp.Description("Wall-clock duration of the tool's execution; omit when unknown"),
		),
	)
}

// Handle records the mutation.
func (t *PostHookTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	tool := req.GetString("tool", "")
	if tool == "" {
		return mcp.NewToolResultError("'tool' is required"), nil
	}

	params, err := decodeParams(req.GetString("params_json", ""))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	elapsed := int64(req.GetFloat("elapsed_ms", -1))

	if err := t.engine.PostHook(tool, params, elapsed); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("mutation completed but was not recorded: %v", err)), nil
	}
	return mcp.NewToolResultText("recorded"), nil
}
