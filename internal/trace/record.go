// Package trace implements the append-only audit ledger of authorized
// mutations: one canonical-JSON record per line in
// <workspace>/.orchestration/agent_trace.jsonl.
//
// Records are never rewritten or removed. Multiple engine processes may
// append concurrently; appends are whole-line atomic under an advisory
// lock, so a consumer can tail new records by polling file length.
package trace

import "fmt"

// MutationClass is the coarse label assigned to a mutation for later
// analysis.
type MutationClass string

const (
	// ClassASTRefactor marks a mutation that reshapes existing code
	// without introducing new public surface.
	ClassASTRefactor MutationClass = "AST_REFACTOR"
	// ClassIntentEvolution marks a mutation that introduces new public
	// surface: an exported symbol, a type declaration, a route, a
	// migration.
	ClassIntentEvolution MutationClass = "INTENT_EVOLUTION"
)

// validClasses is the set of allowed mutation classes.
var validClasses = map[MutationClass]bool{
	ClassASTRefactor:     true,
	ClassIntentEvolution: true,
}

// ValidateClass returns an error if the class is not recognized.
func ValidateClass(c MutationClass) error {
	if !validClasses[c] {
		return fmt.Errorf("invalid mutation class %q: must be AST_REFACTOR or INTENT_EVOLUTION", c)
	}
	return nil
}

// Contributor identifies who produced a file's content.
type Contributor struct {
	EntityType      string `json:"entity_type"`
	ModelIdentifier string `json:"model_identifier"`
}

// FileEntry records one file touched by a mutation.
type FileEntry struct {
	RelativePath string      `json:"relative_path"`
	ContentHash  string      `json:"content_hash"`
	Contributor  Contributor `json:"contributor"`
}

// Record is a single audit entry — one authorized, completed mutation.
type Record struct {
	ID            string        `json:"id"`
	Timestamp     string        `json:"timestamp"` // RFC 3339 UTC
	IntentID      string        `json:"intent_id"`
	Tool          string        `json:"tool"`
	MutationClass MutationClass `json:"mutation_class"`
	Files         []FileEntry   `json:"files"`
	ElapsedMs     *int64        `json:"elapsed_ms,omitempty"`
}

// Validate checks the structural requirements every ledger record must
// satisfy before it is written. The pre-hook guarantees a bound intent,
// so an empty intent_id here is a caller bug, not an input condition.
func (r *Record) Validate() error {
	if r.ID == "" {
		return fmt.Errorf("record is missing an id")
	}
	if r.Timestamp == "" {
		return fmt.Errorf("record %s is missing a timestamp", r.ID)
	}
	if r.IntentID == "" {
		return fmt.Errorf("record %s has an empty intent_id", r.ID)
	}
	if r.Tool == "" {
		return fmt.Errorf("record %s is missing a tool name", r.ID)
	}
	if err := ValidateClass(r.MutationClass); err != nil {
		return fmt.Errorf("record %s: %w", r.ID, err)
	}
	return nil
}
