// Package engine implements the hook engine: the deterministic gate
// between an agent and its file-mutating tools.
//
// One Engine exists per agent session. It orchestrates the handshake
// that binds the session to a declared intent, gates every mutating
// tool call on scope membership and freshness, and records every
// completed mutation in the append-only trace ledger.
//
// Failure semantics are fail-closed throughout: any internal error or
// panic during the pre-hook produces a blocking decision, never an
// allowance and never a propagated panic into the host's tool path.
package engine

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/warden-mcp/warden/internal/freshness"
	"github.com/warden-mcp/warden/internal/intent"
	"github.com/warden-mcp/warden/internal/scope"
	"github.com/warden-mcp/warden/internal/trace"
	"github.com/warden-mcp/warden/internal/workspace"
)

// Decision is the pre-hook verdict handed back to the host. On a block,
// Reason carries one of the stable tokens plus enough context for the
// LLM to self-correct.
type Decision struct {
	Allowed bool   `json:"allowed"`
	Reason  string `json:"reason,omitempty"`
}

// allow is the zero-reason positive decision.
var allow = Decision{Allowed: true}

// block builds a negative decision.
func block(format string, args ...any) Decision {
	return Decision{Allowed: false, Reason: fmt.Sprintf(format, args...)}
}

// Engine holds one agent session's governance state: the bound intent
// id and the freshness cache. It is an owned value of the session —
// never shared between sessions, never persisted.
type Engine struct {
	root    string
	intents intent.Store
	ledger  *trace.Ledger
	cache   *freshness.Cache
	model   string

	activeIntentID string
}

// New creates an engine for one agent session rooted at the given
// workspace. model identifies the contributor recorded in trace entries;
// empty means "unknown".
func New(root string, intents intent.Store, ledger *trace.Ledger, model string) *Engine {
	if model == "" {
		model = "unknown"
	}
	return &Engine{
		root:    root,
		intents: intents,
		ledger:  ledger,
		cache:   freshness.NewCache(root),
		model:   model,
	}
}

// ActiveIntentID returns the currently bound intent id, or "" when the
// session has not completed a handshake.
func (e *Engine) ActiveIntentID() string {
	return e.activeIntentID
}

// --- Handshake ---

// SelectIntent binds the session to a declared intent. On success it
// returns the intent_context XML block; on failure it returns an ERROR
// string and leaves the binding unchanged. A later successful call
// replaces the bound intent.
func (e *Engine) SelectIntent(id string) (out string) {
	defer func() {
		if r := recover(); r != nil {
			out = fmt.Sprintf("ERROR %s: intent selection panicked: %v", TokenInternalError, r)
		}
	}()

	in, err := e.intents.GetIntent(id)
	if err != nil {
		if errors.Is(err, intent.ErrRegistryUnreadable) {
			return fmt.Sprintf("ERROR %s: %v", TokenRegistryUnreadable, err)
		}
		return fmt.Sprintf("ERROR %s: resolving intent %q: %v", TokenInternalError, id, err)
	}
	if in == nil {
		ids, listErr := e.intents.ListIntentIDs()
		if listErr != nil {
			return fmt.Sprintf("ERROR %s: intent %q not found and registry listing failed: %v", TokenIntentNotFound, id, listErr)
		}
		available := "none"
		if len(ids) > 0 {
			available = strings.Join(ids, ", ")
		}
		return fmt.Sprintf("ERROR %s: no intent with id %q. Available intent ids: %s", TokenIntentNotFound, id, available)
	}

	ctx, err := renderIntentContext(in)
	if err != nil {
		return fmt.Sprintf("ERROR %s: %v", TokenInternalError, err)
	}

	e.activeIntentID = in.ID
	return ctx
}

// --- Pre-hook ---

// PreHook gates a tool call before the host executes it. The decision
// order is fixed; the first failing check wins and the rest are skipped:
//
//  1. safe tool            → allowed
//  2. no bound intent      → INTENT_REQUIRED
//  3. intent unresolvable  → INTENT_NOT_FOUND (or REGISTRY_UNREADABLE)
//  4. bad target path      → PATH_INVALID
//  5. path outside scope   → SCOPE_VIOLATION
//  6. stale on-disk bytes  → STALE_FILE
//  7. otherwise            → allowed; the pre-write fingerprint is observed
func (e *Engine) PreHook(tool string, params map[string]any) (d Decision) {
	defer func() {
		if r := recover(); r != nil {
			d = block("%s: pre-hook panicked while gating %s: %v", TokenInternalError, tool, r)
		}
	}()

	if IsSafe(tool) {
		return allow
	}

	if e.activeIntentID == "" {
		return block("%s: %s is a mutating tool and no intent is bound. Call select_active_intent first.", TokenIntentRequired, tool)
	}

	in, err := e.intents.GetIntent(e.activeIntentID)
	if err != nil {
		if errors.Is(err, intent.ErrRegistryUnreadable) {
			return block("%s: %v", TokenRegistryUnreadable, err)
		}
		return block("%s: resolving intent %q: %v", TokenInternalError, e.activeIntentID, err)
	}
	if in == nil {
		return block("%s: bound intent %q is no longer in the registry", TokenIntentNotFound, e.activeIntentID)
	}

	if !pathBearing(tool, params) {
		// Commands touch arbitrary paths; an intent is required but no
		// single path can be checked. The post-hook records them as
		// unattributed mutations.
		return allow
	}

	raw, ok := rawPath(params)
	if !ok {
		return block("%s: %s requires a 'path' parameter", TokenPathInvalid, tool)
	}
	rel, err := workspace.CleanRelPath(raw)
	if err != nil {
		return block("%s: %v", TokenPathInvalid, err)
	}

	if !scope.InScope(rel, in.OwnedScope) {
		return block("%s: intent %s does not own %s. Owned scope: %s",
			TokenScopeViolation, in.ID, rel, strings.Join(in.OwnedScope, ", "))
	}

	status, err := e.cache.Check(rel)
	if err != nil {
		return block("%s: freshness check for %s: %v", TokenInternalError, rel, err)
	}
	if status == freshness.StatusStale {
		return block("%s: %s changed on disk since this session last observed it. Re-read the file before retrying.",
			TokenStaleFile, rel)
	}

	// Baseline the pre-write state so an out-of-band write between now
	// and the next attempt is detected.
	if err := e.cache.Observe(rel); err != nil {
		return block("%s: observing %s: %v", TokenInternalError, rel, err)
	}

	return allow
}

// --- Post-hook ---

// PostHook records a completed mutation. Only called when the pre-hook
// allowed the tool and the tool did not error fatally. The ledger
// append is durable before PostHook returns nil; an append failure is
// returned so the host can record the audit gap — the mutation itself
// cannot be rolled back.
func (e *Engine) PostHook(tool string, params map[string]any, elapsedMs int64) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%s: post-hook panicked while recording %s: %v", TokenInternalError, tool, r)
		}
	}()

	if IsSafe(tool) {
		return nil
	}
	if e.activeIntentID == "" {
		return fmt.Errorf("%s: post-hook reached with no bound intent for %s", TokenInternalError, tool)
	}

	rec := &trace.Record{
		ID:            uuid.NewString(),
		Timestamp:     timeNow().UTC().Format(time.RFC3339),
		IntentID:      e.activeIntentID,
		Tool:          tool,
		MutationClass: trace.ClassASTRefactor,
		Files:         []trace.FileEntry{},
	}
	if elapsedMs >= 0 {
		rec.ElapsedMs = &elapsedMs
	}

	if pathBearing(tool, params) {
		raw, ok := rawPath(params)
		if !ok {
			return fmt.Errorf("%s: post-hook for %s has no 'path' parameter", TokenInternalError, tool)
		}
		rel, cleanErr := workspace.CleanRelPath(raw)
		if cleanErr != nil {
			return fmt.Errorf("%s: %w", TokenInternalError, cleanErr)
		}

		content, hash, readErr := e.readWritten(rel)
		if readErr != nil {
			return fmt.Errorf("hashing post-write content of %s: %w", rel, readErr)
		}

		rec.MutationClass = Classify(content)
		rec.Files = []trace.FileEntry{{
			RelativePath: rel,
			ContentHash:  hash,
			Contributor: trace.Contributor{
				EntityType:      "AI",
				ModelIdentifier: e.model,
			},
		}}

		if err := e.ledger.Append(rec); err != nil {
			return fmt.Errorf("appending trace record: %w", err)
		}
		// Cache update after the durable append. If the append had
		// failed, the stale pre-write baseline makes the next pre-hook
		// block with STALE_FILE — fail-safe.
		e.cache.Update(rel, hash)
		return nil
	}

	if err := e.ledger.Append(rec); err != nil {
		return fmt.Errorf("appending trace record: %w", err)
	}
	return nil
}

// readWritten loads the post-write bytes of a path for hashing and
// classification. A vanished file hashes as ABSENT and classifies as a
// refactor — deletion introduces no new surface.
func (e *Engine) readWritten(rel string) (content, hash string, err error) {
	data, err := os.ReadFile(filepath.Join(e.root, filepath.FromSlash(rel)))
	if err != nil {
		if os.IsNotExist(err) {
			return "", freshness.Absent, nil
		}
		return "", "", err
	}
	return string(data), freshness.FingerprintBytes(data), nil
}
