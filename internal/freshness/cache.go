// Package freshness detects interleaved out-of-band writes to workspace
// files. It remembers, per agent session, the content fingerprint each
// path had when the engine last authorized an operation on it, and
// compares that against the bytes on disk at the next attempt.
//
// The cache does not prevent concurrent writes — it only refuses to
// overwrite work this session never observed.
package freshness

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
)

// Absent is the fingerprint sentinel for a path that does not exist.
const Absent = "ABSENT"

// Status is the result of a freshness check.
type Status string

const (
	// StatusUnknown means the path has never been observed this session.
	StatusUnknown Status = "UNKNOWN"
	// StatusFresh means the on-disk fingerprint equals the stored one.
	StatusFresh Status = "FRESH"
	// StatusStale means the file changed since the engine last observed it.
	StatusStale Status = "STALE"
)

// FingerprintBytes returns "sha256:" + lowercase hex of SHA-256 over the
// given bytes. Deterministic across runs and platforms.
func FingerprintBytes(data []byte) string {
	sum := sha256.Sum256(data)
	return "sha256:" + hex.EncodeToString(sum[:])
}

// Cache holds the per-session path → fingerprint map. It belongs to a
// single engine instance; it is never persisted or shared between
// processes, and the sequential agent loop means it needs no locking.
type Cache struct {
	root    string
	entries map[string]string
}

// NewCache creates an empty cache rooted at the given workspace.
func NewCache(root string) *Cache {
	return &Cache{
		root:    root,
		entries: make(map[string]string),
	}
}

// Fingerprint computes the current on-disk fingerprint for a
// workspace-relative path, or Absent if the path does not exist.
func (c *Cache) Fingerprint(rel string) (string, error) {
	data, err := os.ReadFile(filepath.Join(c.root, filepath.FromSlash(rel)))
	if err != nil {
		if os.IsNotExist(err) {
			return Absent, nil
		}
		return "", fmt.Errorf("fingerprinting %s: %w", rel, err)
	}
	return FingerprintBytes(data), nil
}

// Observe computes and stores the current fingerprint for a path.
func (c *Cache) Observe(rel string) error {
	fp, err := c.Fingerprint(rel)
	if err != nil {
		return err
	}
	c.entries[rel] = fp
	return nil
}

// Update stores an already-computed fingerprint for a path. Used by the
// post-hook, which has just hashed the written bytes.
func (c *Cache) Update(rel, fingerprint string) {
	c.entries[rel] = fingerprint
}

// Check compares the current on-disk fingerprint against the stored one.
// A path with no entry is UNKNOWN — first touch this session.
func (c *Cache) Check(rel string) (Status, error) {
	stored, ok := c.entries[rel]
	if !ok {
		return StatusUnknown, nil
	}
	current, err := c.Fingerprint(rel)
	if err != nil {
		return "", err
	}
	if current == stored {
		return StatusFresh, nil
	}
	return StatusStale, nil
}
