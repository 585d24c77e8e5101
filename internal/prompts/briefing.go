// Package prompts implements MCP prompt handlers for the governance
// surface.
//
// MCP prompts are user-triggered workflows (like slash commands).
// The briefing prompt seeds a turn with the canned governance fragment:
// the available intents and the handshake rule.
package prompts

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/warden-mcp/warden/internal/engine"
	"github.com/warden-mcp/warden/internal/intent"
)

// BriefingPrompt handles the intent-briefing MCP prompt.
type BriefingPrompt struct {
	store intent.Store
}

// NewBriefingPrompt creates a BriefingPrompt with its registry store.
func NewBriefingPrompt(store intent.Store) *BriefingPrompt {
	return &BriefingPrompt{store: store}
}

// Definition returns the MCP prompt definition for registration.
func (p *BriefingPrompt) Definition() mcp.Prompt {
	return mcp.NewPrompt("intent-briefing",
		mcp.WithPromptDescription(
			"Brief the agent on workspace governance: the declared intents "+
				"it can bind to and the rule that select_active_intent must "+
				"precede any file-mutating tool.",
		),
	)
}

// Handle renders the governance fragment as the prompt message.
func (p *BriefingPrompt) Handle(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	return &mcp.GetPromptResult{
		Description: "Workspace governance briefing",
		Messages: []mcp.PromptMessage{
			{
				Role:    mcp.RoleUser,
				Content: mcp.NewTextContent(engine.PromptFragment(p.store)),
			},
		},
	}, nil
}
