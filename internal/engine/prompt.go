package engine

import (
	"fmt"
	"strings"

	"github.com/warden-mcp/warden/internal/intent"
)

// PromptFragment returns the canned system-prompt fragment the host
// prepends to its own prompt: the currently available intents and the
// handshake rule. Registry failures surface in the fragment itself so
// the agent knows mutations are blocked.
func PromptFragment(store intent.Store) string {
	var sb strings.Builder
	sb.WriteString("## Workspace governance\n\n")
	sb.WriteString("Every file mutation in this workspace is gated on a declared intent.\n")
	sb.WriteString("Your first tool call must be `select_active_intent` with one of the\n")
	sb.WriteString("intent ids below. Mutations outside the selected intent's owned scope\n")
	sb.WriteString("are blocked, as are overwrites of files changed by another agent since\n")
	sb.WriteString("you last read them.\n\n")

	intents, err := store.List()
	if err != nil {
		fmt.Fprintf(&sb, "Intent registry is unreadable (%v) — all mutating tools are blocked\nuntil it is fixed.\n", err)
		return sb.String()
	}
	if len(intents) == 0 {
		sb.WriteString("No intents are declared yet. Ask the user to add one to\n.orchestration/active_intents.yaml before attempting any mutation.\n")
		return sb.String()
	}

	sb.WriteString("Available intents:\n")
	for _, in := range intents {
		status := in.Status
		if status == "" {
			status = intent.StatusPending
		}
		fmt.Fprintf(&sb, "- %s (%s): %s\n", in.ID, status, in.Name)
	}
	return sb.String()
}
