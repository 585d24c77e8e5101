// Package server wires all MCP components and creates the server instance.
//
// This is the composition root (DIP): it creates concrete implementations
// and injects them into the tools/prompts/resources that depend on
// abstractions. No business logic lives here — only wiring.
package server

import (
	"fmt"
	"log"

	"github.com/mark3labs/mcp-go/server"

	"github.com/warden-mcp/warden/internal/engine"
	"github.com/warden-mcp/warden/internal/index"
	"github.com/warden-mcp/warden/internal/intent"
	"github.com/warden-mcp/warden/internal/prompts"
	"github.com/warden-mcp/warden/internal/resources"
	"github.com/warden-mcp/warden/internal/tools"
	"github.com/warden-mcp/warden/internal/trace"
)

// Version is set at build time via ldflags.
var Version = "dev"

// New creates and configures the MCP server for one agent session in
// the given workspace. All dependencies are resolved here: the engine
// is the session's owned governance state, the stores are its view of
// the shared workspace files.
//
// model identifies the contributing agent in trace records; empty means
// "unknown".
//
// The returned cleanup function closes the query index's database
// connection and must be called on shutdown (typically via defer).
// It is always non-nil and safe to call even if index init failed.
func New(root, model string) (*server.MCPServer, func(), error) {
	// --- Create shared dependencies ---

	intentStore := intent.NewFileStore(root)
	if err := intentStore.Ensure(); err != nil {
		return nil, noop, fmt.Errorf("ensuring intent registry: %w", err)
	}
	ledger := trace.NewLedger(root)

	eng := engine.New(root, intentStore, ledger, model)

	// --- Create the MCP server ---

	s := server.NewMCPServer(
		"warden",
		Version,
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithPromptCapabilities(true),
		server.WithRecovery(),
		server.WithInstructions(serverInstructions(intentStore)),
	)

	// --- Register governance tools ---

	selectTool := tools.NewSelectIntentTool(eng)
	s.AddTool(selectTool.Definition(), selectTool.Handle)

	preHookTool := tools.NewPreHookTool(eng)
	s.AddTool(preHookTool.Definition(), preHookTool.Handle)

	postHookTool := tools.NewPostHookTool(eng)
	s.AddTool(postHookTool.Definition(), postHookTool.Handle)

	listTool := tools.NewListIntentsTool(intentStore)
	s.AddTool(listTool.Definition(), listTool.Handle)

	// --- Register the trace query tool ---
	//
	// The query index is an independent subsystem: if it fails to
	// initialize, the gate keeps working. We log a warning and skip
	// query_trace registration — governance is still fully functional.

	cleanup := noop
	idx, idxErr := index.Open(root)
	if idxErr != nil {
		log.Printf("WARNING: trace query index disabled: %v", idxErr)
	} else {
		cleanup = func() {
			if err := idx.Close(); err != nil {
				log.Printf("WARNING: index close: %v", err)
			}
		}
		queryTool := tools.NewQueryTraceTool(ledger, idx)
		s.AddTool(queryTool.Definition(), queryTool.Handle)
	}

	// --- Register prompts ---

	briefing := prompts.NewBriefingPrompt(intentStore)
	s.AddPrompt(briefing.Definition(), briefing.Handle)

	// --- Register resources ---

	resourceHandler := resources.NewHandler(intentStore, ledger)
	s.AddResource(resourceHandler.RegistryResource(), resourceHandler.HandleRegistry)
	s.AddResource(resourceHandler.TraceResource(), resourceHandler.HandleTrace)

	return s, cleanup, nil
}

// noop is a no-op cleanup function used as the default when the index
// is disabled or hasn't been initialized.
func noop() {}

// serverInstructions returns the system instructions that tell the AI
// how the governance handshake works. The live intent listing is
// appended so a fresh session sees what it can bind to.
func serverInstructions(store intent.Store) string {
	return `You are working in a governed workspace. Warden gates every
file-mutating tool behind a two-stage handshake:

## The rule

1. Your FIRST tool call in a turn that will mutate files must be
   select_active_intent with the id of a declared intent.
2. Before running any mutating tool (write_to_file, apply_diff,
   insert_content, search_and_replace, execute_command), call
   pre_tool_hook with the tool name and its parameters. Only proceed
   when the decision says allowed.
3. After the tool completes, call post_tool_hook with the same
   arguments so the mutation is recorded in the audit ledger.

Read-only tools (read_file, list_files, search_files, ...) are never
gated — explore freely.

## What blocks mean

- INTENT_REQUIRED: you skipped the handshake. Call select_active_intent.
- INTENT_NOT_FOUND: the id you offered is not in the registry. Use
  list_intents and pick a declared id.
- SCOPE_VIOLATION: the target path is outside your intent's owned
  scope. Do not work around the scope — tell the user instead.
- STALE_FILE: another agent changed the file since you last observed
  it. Re-read the file, reconcile, then retry.
- PATH_INVALID: the path must be workspace-relative with forward
  slashes, no ".." and no leading "/".
- REGISTRY_UNREADABLE: the registry YAML is broken; all mutations are
  blocked until a human fixes it.

## Discovering work

- list_intents shows the declared intents and their scopes.
- The intent-briefing prompt renders the same listing for your system
  prompt.
- query_trace answers what was already changed, by which intent.

Never attempt to mutate files without an allowed pre_tool_hook
decision. The ledger is append-only and audited — unrecorded mutations
are treated as incidents.

` + engine.PromptFragment(store)
}
