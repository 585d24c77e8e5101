package tools

import (
	"context"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/warden-mcp/warden/internal/engine"
)

// SelectIntentTool handles the select_active_intent MCP tool — the
// mandatory handshake binding the agent's turn to a declared intent.
type SelectIntentTool struct {
	engine *engine.Engine
}

// NewSelectIntentTool creates a SelectIntentTool for the session engine.
func NewSelectIntentTool(e *engine.Engine) *SelectIntentTool {
	return &SelectIntentTool{engine: e}
}

// Definition returns the MCP tool definition for registration.
func (t *SelectIntentTool) Definition() mcp.Tool {
	return mcp.NewTool("select_active_intent",
		mcp.WithDescription(
			"Bind the current turn to a declared intent. "+
				"Must be called before any file-mutating tool.",
		),
		mcp.WithString("intent_id",
			mcp.Required(),
			mcp.Description("Id of the intent to bind, e.g. INT-001. "+
				"Available ids are listed in the workspace governance prompt "+
				"and in the warden://registry resource."),
		),
	)
}

// Handle processes the handshake. A successful bind returns the
// intent_context XML block the agent works under; a failed bind returns
// the engine's ERROR string as a tool error so the LLM can self-correct.
func (t *SelectIntentTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := strings.TrimSpace(req.GetString("intent_id", ""))
	if id == "" {
		return mcp.NewToolResultError("'intent_id' is required — pass the id of the intent to bind"), nil
	}

	out := t.engine.SelectIntent(id)
	if strings.HasPrefix(out, "ERROR") {
		return mcp.NewToolResultError(out), nil
	}
	return mcp.NewToolResultText(out), nil
}
