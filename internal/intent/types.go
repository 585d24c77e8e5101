// Package intent manages the workspace intent registry — the human-edited
// YAML document declaring the scoped units of work an agent may bind to.
//
// Design principles follow the rest of the codebase:
// - SRP: types in types.go; the store and its parsing in store.go
// - DIP: Store is an interface; the engine and tools depend on the abstraction
// - The registry is owned by the workspace; the store never rewrites it
//   beyond creating an empty document on first use.
package intent

import "fmt"

// --- Intent status enum ---

// Status tracks an intent's lifecycle in the registry.
type Status string

const (
	StatusPending    Status = "PENDING"
	StatusInProgress Status = "IN_PROGRESS"
	StatusBlocked    Status = "BLOCKED"
	StatusDone       Status = "DONE"
)

// validStatuses is the set of allowed intent statuses.
var validStatuses = map[Status]bool{
	StatusPending:    true,
	StatusInProgress: true,
	StatusBlocked:    true,
	StatusDone:       true,
}

// ValidateStatus returns an error if the status is not recognized.
func ValidateStatus(s Status) error {
	if !validStatuses[s] {
		return fmt.Errorf("invalid intent status %q: must be one of: PENDING, IN_PROGRESS, BLOCKED, DONE", s)
	}
	return nil
}

// --- Core data structure ---

// Intent is a declared, scoped unit of work. The agent binds to one via
// the handshake before any mutating tool may run; OwnedScope is the glob
// set its mutations must stay inside.
type Intent struct {
	ID                 string   `yaml:"id" json:"id"`
	Name               string   `yaml:"name" json:"name"`
	Status             Status   `yaml:"status" json:"status"`
	OwnedScope         []string `yaml:"owned_scope" json:"owned_scope"`
	Constraints        []string `yaml:"constraints" json:"constraints"`
	AcceptanceCriteria []string `yaml:"acceptance_criteria" json:"acceptance_criteria"`
}

// Validate checks the structural requirements the registry guarantees.
// A missing owned_scope is legal (no file is in scope); a missing id is not.
func (in *Intent) Validate() error {
	if in.ID == "" {
		return fmt.Errorf("intent is missing an id")
	}
	if in.Status != "" {
		if err := ValidateStatus(in.Status); err != nil {
			return fmt.Errorf("intent %q: %w", in.ID, err)
		}
	}
	return nil
}
