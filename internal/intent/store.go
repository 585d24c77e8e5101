package intent

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/warden-mcp/warden/internal/workspace"
)

// ErrRegistryUnreadable marks a registry that exists but cannot be parsed
// as a well-formed intent document. The engine fails closed on this error:
// no mutating tool is allowed while the registry is unreadable.
var ErrRegistryUnreadable = errors.New("REGISTRY_UNREADABLE")

// emptyRegistry is the document written on first use.
const emptyRegistry = "active_intents: []\n"

// Store defines read access to the intent registry.
// Abstracted for testability (DIP).
type Store interface {
	// Ensure creates the registry with an empty document if absent. Idempotent.
	Ensure() error
	// GetIntent returns the intent whose id matches exactly, or nil on miss.
	GetIntent(id string) (*Intent, error)
	// ListIntentIDs returns all ids in registry order.
	ListIntentIDs() ([]string, error)
	// List returns all intents in registry order.
	List() ([]Intent, error)
}

// registryDoc is the top-level YAML document shape. Unknown top-level
// keys are ignored by construction — only active_intents is mapped.
type registryDoc struct {
	ActiveIntents []Intent `yaml:"active_intents"`
}

// FileStore implements Store against <workspace>/.orchestration/active_intents.yaml.
//
// The registry is re-parsed only when the file's mtime or size changes;
// humans edit it between engine calls, not during them, so the cache is
// a pure read amplifier. Parse failures are never cached — every call
// observes them (fail closed).
type FileStore struct {
	root string

	mu         sync.Mutex
	cached     *registryDoc
	cachedTime int64 // mtime in nanoseconds
	cachedSize int64
}

// NewFileStore creates a registry store rooted at the given workspace.
func NewFileStore(root string) *FileStore {
	return &FileStore{root: root}
}

// path returns the absolute registry path.
func (s *FileStore) path() string {
	return workspace.RegistryPath(s.root)
}

// Ensure creates .orchestration/active_intents.yaml with an empty
// document if it does not exist yet.
func (s *FileStore) Ensure() error {
	p := s.path()
	if _, err := os.Stat(p); err == nil {
		return nil
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("checking registry: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return fmt.Errorf("creating sidecar directory: %w", err)
	}
	if err := os.WriteFile(p, []byte(emptyRegistry), 0o644); err != nil {
		return fmt.Errorf("creating registry: %w", err)
	}
	return nil
}

// GetIntent parses the registry and returns the intent with a matching id,
// or nil if no intent matches.
func (s *FileStore) GetIntent(id string) (*Intent, error) {
	doc, err := s.load()
	if err != nil {
		return nil, err
	}
	for i := range doc.ActiveIntents {
		if doc.ActiveIntents[i].ID == id {
			in := doc.ActiveIntents[i]
			return &in, nil
		}
	}
	return nil, nil
}

// ListIntentIDs returns all intent ids in registry order.
func (s *FileStore) ListIntentIDs() ([]string, error) {
	doc, err := s.load()
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(doc.ActiveIntents))
	for i := range doc.ActiveIntents {
		ids = append(ids, doc.ActiveIntents[i].ID)
	}
	return ids, nil
}

// List returns all intents in registry order.
func (s *FileStore) List() ([]Intent, error) {
	doc, err := s.load()
	if err != nil {
		return nil, err
	}
	out := make([]Intent, len(doc.ActiveIntents))
	copy(out, doc.ActiveIntents)
	return out, nil
}

// load reads and parses the registry, creating it first if absent.
// The parsed document is cached against (mtime, size).
func (s *FileStore) load() (*registryDoc, error) {
	if err := s.Ensure(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRegistryUnreadable, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	info, err := os.Stat(s.path())
	if err != nil {
		return nil, fmt.Errorf("%w: stat registry: %v", ErrRegistryUnreadable, err)
	}
	if s.cached != nil && info.ModTime().UnixNano() == s.cachedTime && info.Size() == s.cachedSize {
		return s.cached, nil
	}

	data, err := os.ReadFile(s.path())
	if err != nil {
		return nil, fmt.Errorf("%w: reading registry: %v", ErrRegistryUnreadable, err)
	}

	doc, err := parseRegistry(data)
	if err != nil {
		return nil, err
	}

	s.cached = doc
	s.cachedTime = info.ModTime().UnixNano()
	s.cachedSize = info.Size()
	return doc, nil
}

// parseRegistry unmarshals and validates a registry document.
// Structural violations (owned_scope as a scalar, a list item that is not
// a mapping, duplicate or missing ids) make the whole registry unreadable —
// a half-trusted registry cannot gate mutations safely.
func parseRegistry(data []byte) (*registryDoc, error) {
	var doc registryDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: parsing registry YAML: %v", ErrRegistryUnreadable, err)
	}

	seen := make(map[string]bool, len(doc.ActiveIntents))
	for i := range doc.ActiveIntents {
		in := &doc.ActiveIntents[i]
		if err := in.Validate(); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrRegistryUnreadable, err)
		}
		if seen[in.ID] {
			return nil, fmt.Errorf("%w: duplicate intent id %q", ErrRegistryUnreadable, in.ID)
		}
		seen[in.ID] = true
	}
	return &doc, nil
}
