package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/warden-mcp/warden/internal/intent"
)

// ListIntentsTool handles the list_intents MCP tool — the discovery
// surface for the handshake. Read-only; never gated.
type ListIntentsTool struct {
	store intent.Store
}

// NewListIntentsTool creates a ListIntentsTool with its registry store.
func NewListIntentsTool(store intent.Store) *ListIntentsTool {
	return &ListIntentsTool{store: store}
}

// Definition returns the MCP tool definition for registration.
func (t *ListIntentsTool) Definition() mcp.Tool {
	return mcp.NewTool("list_intents",
		mcp.WithDescription(
			"List the declared intents in this workspace: id, status, name, "+
				"and owned scope. Use this to pick the id for select_active_intent.",
		),
	)
}

// Handle renders the registry as a compact listing.
func (t *ListIntentsTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	intents, err := t.store.List()
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("registry unavailable: %v", err)), nil
	}
	if len(intents) == 0 {
		return mcp.NewToolResultText("No intents declared. Add one to .orchestration/active_intents.yaml."), nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "# Declared intents (%d)\n\n", len(intents))
	for _, in := range intents {
		status := in.Status
		if status == "" {
			status = intent.StatusPending
		}
		fmt.Fprintf(&sb, "- **%s** [%s] %s\n", in.ID, status, in.Name)
		if len(in.OwnedScope) > 0 {
			fmt.Fprintf(&sb, "  scope: %s\n", strings.Join(in.OwnedScope, ", "))
		}
	}
	return mcp.NewToolResultText(sb.String()), nil
}
