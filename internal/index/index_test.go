package index

import (
	"testing"

	"github.com/warden-mcp/warden/internal/trace"
)

// testRecords builds a small ledger fixture.
func testRecords() []trace.Record {
	mk := func(id, intentID, tool, class, path string) trace.Record {
		return trace.Record{
			ID:            id,
			Timestamp:     "2026-02-23T12:00:00Z",
			IntentID:      intentID,
			Tool:          tool,
			MutationClass: trace.MutationClass(class),
			Files: []trace.FileEntry{
				{RelativePath: path, ContentHash: "sha256:ab", Contributor: trace.Contributor{EntityType: "AI", ModelIdentifier: "m"}},
			},
		}
	}
	return []trace.Record{
		mk("rec-1", "INT-001", "write_to_file", "AST_REFACTOR", "src/api/a.ts"),
		mk("rec-2", "INT-001", "apply_diff", "INTENT_EVOLUTION", "src/api/b.ts"),
		mk("rec-3", "INT-002", "write_to_file", "AST_REFACTOR", "src/db/c.sql"),
	}
}

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	if err := s.Rebuild(testRecords()); err != nil {
		t.Fatalf("Rebuild failed: %v", err)
	}
	return s
}

func TestQuery_All(t *testing.T) {
	s := openTestStore(t)

	entries, err := s.Query(QueryOptions{})
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}
	// Append order preserved.
	if entries[0].ID != "rec-1" || entries[2].ID != "rec-3" {
		t.Errorf("entries out of order: %v", entries)
	}
	if len(entries[0].Paths) != 1 || entries[0].Paths[0] != "src/api/a.ts" {
		t.Errorf("paths not attached: %v", entries[0].Paths)
	}
}

func TestQuery_ByIntent(t *testing.T) {
	s := openTestStore(t)

	entries, err := s.Query(QueryOptions{IntentID: "INT-001"})
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(entries) != 2 {
		t.Errorf("expected 2 entries for INT-001, got %d", len(entries))
	}
}

func TestQuery_ByPath(t *testing.T) {
	s := openTestStore(t)

	entries, err := s.Query(QueryOptions{Path: "src/db/c.sql"})
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(entries) != 1 || entries[0].ID != "rec-3" {
		t.Errorf("path filter wrong: %v", entries)
	}
}

func TestQuery_Limit(t *testing.T) {
	s := openTestStore(t)

	entries, err := s.Query(QueryOptions{Limit: 1})
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(entries) != 1 || entries[0].ID != "rec-1" {
		t.Errorf("limit should keep the oldest record first: %v", entries)
	}
}

func TestRebuild_Replaces(t *testing.T) {
	s := openTestStore(t)

	// Rebuild with a shorter ledger — stale rows must vanish.
	if err := s.Rebuild(testRecords()[:1]); err != nil {
		t.Fatalf("Rebuild failed: %v", err)
	}
	entries, err := s.Query(QueryOptions{})
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("rebuild should replace contents, got %d entries", len(entries))
	}
}

func TestGetStats(t *testing.T) {
	s := openTestStore(t)

	stats, err := s.GetStats()
	if err != nil {
		t.Fatalf("GetStats failed: %v", err)
	}
	if stats.TotalRecords != 3 {
		t.Errorf("TotalRecords = %d, want 3", stats.TotalRecords)
	}
	if stats.RecordsByClass["AST_REFACTOR"] != 2 || stats.RecordsByClass["INTENT_EVOLUTION"] != 1 {
		t.Errorf("RecordsByClass = %v", stats.RecordsByClass)
	}
	if stats.RecordsByIntent["INT-001"] != 2 || stats.RecordsByIntent["INT-002"] != 1 {
		t.Errorf("RecordsByIntent = %v", stats.RecordsByIntent)
	}
}
