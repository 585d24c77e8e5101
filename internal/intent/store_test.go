package intent

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/warden-mcp/warden/internal/workspace"
)

// --- Helpers ---

// writeRegistry writes raw YAML to the registry path under root.
func writeRegistry(t *testing.T, root, content string) {
	t.Helper()
	p := workspace.RegistryPath(root)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		t.Fatalf("setup: mkdir: %v", err)
	}
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatalf("setup: write registry: %v", err)
	}
}

const sampleRegistry = `active_intents:
  - id: INT-001
    name: Weather endpoint
    status: IN_PROGRESS
    owned_scope:
      - "src/api/**"
      - "tests/api/**"
    constraints:
      - "No new dependencies"
    acceptance_criteria:
      - "GET /weather returns 200"
  - id: INT-002
    name: Auth refactor
    status: PENDING
    owned_scope:
      - "src/auth/*.ts"
`

// --- Ensure ---

func TestEnsure_CreatesEmptyRegistry(t *testing.T) {
	root := t.TempDir()
	store := NewFileStore(root)

	if err := store.Ensure(); err != nil {
		t.Fatalf("Ensure failed: %v", err)
	}

	data, err := os.ReadFile(workspace.RegistryPath(root))
	if err != nil {
		t.Fatalf("registry should exist: %v", err)
	}
	if string(data) != "active_intents: []\n" {
		t.Errorf("unexpected empty registry content: %q", string(data))
	}
}

func TestEnsure_Idempotent(t *testing.T) {
	root := t.TempDir()
	writeRegistry(t, root, sampleRegistry)
	store := NewFileStore(root)

	if err := store.Ensure(); err != nil {
		t.Fatalf("Ensure failed: %v", err)
	}

	// The existing registry must not be overwritten.
	ids, err := store.ListIntentIDs()
	if err != nil {
		t.Fatalf("ListIntentIDs failed: %v", err)
	}
	if len(ids) != 2 {
		t.Errorf("registry was clobbered: got %d intents, want 2", len(ids))
	}
}

// --- GetIntent ---

func TestGetIntent_Hit(t *testing.T) {
	root := t.TempDir()
	writeRegistry(t, root, sampleRegistry)
	store := NewFileStore(root)

	in, err := store.GetIntent("INT-001")
	if err != nil {
		t.Fatalf("GetIntent failed: %v", err)
	}
	if in == nil {
		t.Fatal("GetIntent returned nil for a registered id")
	}
	if in.Name != "Weather endpoint" {
		t.Errorf("Name = %q, want %q", in.Name, "Weather endpoint")
	}
	if in.Status != StatusInProgress {
		t.Errorf("Status = %q, want IN_PROGRESS", in.Status)
	}
	if len(in.OwnedScope) != 2 || in.OwnedScope[0] != "src/api/**" {
		t.Errorf("OwnedScope = %v", in.OwnedScope)
	}
	if len(in.Constraints) != 1 || len(in.AcceptanceCriteria) != 1 {
		t.Errorf("Constraints/AcceptanceCriteria not parsed: %v / %v", in.Constraints, in.AcceptanceCriteria)
	}
}

func TestGetIntent_Miss(t *testing.T) {
	root := t.TempDir()
	writeRegistry(t, root, sampleRegistry)
	store := NewFileStore(root)

	in, err := store.GetIntent("INT-999")
	if err != nil {
		t.Fatalf("GetIntent failed: %v", err)
	}
	if in != nil {
		t.Errorf("GetIntent should return nil on miss, got %+v", in)
	}
}

func TestGetIntent_MissingOwnedScopeIsEmpty(t *testing.T) {
	root := t.TempDir()
	writeRegistry(t, root, "active_intents:\n  - id: INT-010\n    name: Scopeless\n")
	store := NewFileStore(root)

	in, err := store.GetIntent("INT-010")
	if err != nil {
		t.Fatalf("GetIntent failed: %v", err)
	}
	if in == nil {
		t.Fatal("intent should resolve")
	}
	if len(in.OwnedScope) != 0 {
		t.Errorf("missing owned_scope should parse as empty, got %v", in.OwnedScope)
	}
}

func TestGetIntent_UnknownKeysIgnored(t *testing.T) {
	root := t.TempDir()
	writeRegistry(t, root, `schema_version: 3
notes: free-form
active_intents:
  - id: INT-020
    name: Tolerant
    priority: high
    owner: alice
`)
	store := NewFileStore(root)

	in, err := store.GetIntent("INT-020")
	if err != nil {
		t.Fatalf("unknown keys must be tolerated: %v", err)
	}
	if in == nil || in.Name != "Tolerant" {
		t.Errorf("intent not parsed through unknown keys: %+v", in)
	}
}

// --- ListIntentIDs ---

func TestListIntentIDs_RegistryOrder(t *testing.T) {
	root := t.TempDir()
	writeRegistry(t, root, sampleRegistry)
	store := NewFileStore(root)

	ids, err := store.ListIntentIDs()
	if err != nil {
		t.Fatalf("ListIntentIDs failed: %v", err)
	}
	if len(ids) != 2 || ids[0] != "INT-001" || ids[1] != "INT-002" {
		t.Errorf("ids = %v, want [INT-001 INT-002]", ids)
	}
}

func TestListIntentIDs_EmptyRegistry(t *testing.T) {
	root := t.TempDir()
	store := NewFileStore(root)

	ids, err := store.ListIntentIDs()
	if err != nil {
		t.Fatalf("ListIntentIDs failed: %v", err)
	}
	if len(ids) != 0 {
		t.Errorf("fresh registry should have no ids, got %v", ids)
	}
}

// --- Fail-closed parsing ---

func TestLoad_MalformedYAML(t *testing.T) {
	root := t.TempDir()
	writeRegistry(t, root, "active_intents: [\n  broken")
	store := NewFileStore(root)

	_, err := store.ListIntentIDs()
	if !errors.Is(err, ErrRegistryUnreadable) {
		t.Errorf("malformed YAML should yield ErrRegistryUnreadable, got %v", err)
	}
}

func TestLoad_ScalarOwnedScope(t *testing.T) {
	root := t.TempDir()
	writeRegistry(t, root, "active_intents:\n  - id: INT-001\n    owned_scope: src/api\n")
	store := NewFileStore(root)

	_, err := store.GetIntent("INT-001")
	if !errors.Is(err, ErrRegistryUnreadable) {
		t.Errorf("scalar owned_scope should yield ErrRegistryUnreadable, got %v", err)
	}
}

func TestLoad_DuplicateIDs(t *testing.T) {
	root := t.TempDir()
	writeRegistry(t, root, "active_intents:\n  - id: INT-001\n  - id: INT-001\n")
	store := NewFileStore(root)

	_, err := store.ListIntentIDs()
	if !errors.Is(err, ErrRegistryUnreadable) {
		t.Errorf("duplicate ids should yield ErrRegistryUnreadable, got %v", err)
	}
}

func TestLoad_MissingID(t *testing.T) {
	root := t.TempDir()
	writeRegistry(t, root, "active_intents:\n  - name: anonymous\n")
	store := NewFileStore(root)

	_, err := store.ListIntentIDs()
	if !errors.Is(err, ErrRegistryUnreadable) {
		t.Errorf("missing id should yield ErrRegistryUnreadable, got %v", err)
	}
}

func TestLoad_InvalidStatus(t *testing.T) {
	root := t.TempDir()
	writeRegistry(t, root, "active_intents:\n  - id: INT-001\n    status: WIP\n")
	store := NewFileStore(root)

	_, err := store.ListIntentIDs()
	if !errors.Is(err, ErrRegistryUnreadable) {
		t.Errorf("invalid status should yield ErrRegistryUnreadable, got %v", err)
	}
}

// --- Cache behavior ---

func TestLoad_ReparsesAfterEdit(t *testing.T) {
	root := t.TempDir()
	writeRegistry(t, root, sampleRegistry)
	store := NewFileStore(root)

	if _, err := store.ListIntentIDs(); err != nil {
		t.Fatalf("first load failed: %v", err)
	}

	// Human edits the registry between calls.
	writeRegistry(t, root, "active_intents:\n  - id: INT-003\n    name: New work\n")

	ids, err := store.ListIntentIDs()
	if err != nil {
		t.Fatalf("reload failed: %v", err)
	}
	if len(ids) != 1 || ids[0] != "INT-003" {
		t.Errorf("edit not observed: ids = %v", ids)
	}
}
