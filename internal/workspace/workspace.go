// Package workspace locates the governed workspace and its sidecar
// directory, and validates the workspace-relative paths that cross the
// engine API.
//
// All coordination between agent processes sharing a workspace happens
// through files under <workspace>/.orchestration/ — this package owns
// the layout so no other package hardcodes a path.
package workspace

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
)

const (
	// SidecarDir is the workspace-relative coordination directory.
	SidecarDir = ".orchestration"
	// RegistryFile is the human-edited intent registry filename.
	RegistryFile = "active_intents.yaml"
	// LedgerFile is the append-only trace ledger filename.
	LedgerFile = "agent_trace.jsonl"
	// IndexFile is the derived sqlite query index filename.
	IndexFile = "trace_index.db"
)

// SidecarPath returns the absolute path to the .orchestration/ directory.
func SidecarPath(root string) string {
	return filepath.Join(root, SidecarDir)
}

// RegistryPath returns the absolute path to the intent registry.
func RegistryPath(root string) string {
	return filepath.Join(root, SidecarDir, RegistryFile)
}

// LedgerPath returns the absolute path to the trace ledger.
func LedgerPath(root string) string {
	return filepath.Join(root, SidecarDir, LedgerFile)
}

// IndexPath returns the absolute path to the derived query index.
func IndexPath(root string) string {
	return filepath.Join(root, SidecarDir, IndexFile)
}

// FindRoot walks up from the current working directory looking for an
// existing .orchestration/ directory. If none is found, returns cwd —
// the sidecar is created there on first use.
func FindRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("getting working directory: %w", err)
	}

	current := dir
	for {
		candidate := filepath.Join(current, SidecarDir)
		if info, err := os.Stat(candidate); err == nil && info.IsDir() {
			return current, nil
		}

		parent := filepath.Dir(current)
		if parent == current {
			// Reached filesystem root with no sidecar found.
			// Return original cwd — first use creates it there.
			return dir, nil
		}
		current = parent
	}
}

// CleanRelPath validates and normalizes a workspace-relative path per the
// API convention: forward slashes, no leading "./", no ".." segments, not
// absolute. Returns the normalized path or an error describing the
// violation (surfaced by the pre-hook as PATH_INVALID).
func CleanRelPath(p string) (string, error) {
	if strings.TrimSpace(p) == "" {
		return "", fmt.Errorf("path is empty")
	}
	if strings.Contains(p, "\\") {
		return "", fmt.Errorf("path %q must use forward slashes", p)
	}
	if path.IsAbs(p) || filepath.IsAbs(p) {
		return "", fmt.Errorf("path %q is absolute; workspace-relative required", p)
	}

	cleaned := path.Clean(strings.TrimPrefix(p, "./"))
	if cleaned == "." {
		return "", fmt.Errorf("path %q does not name a file", p)
	}
	if cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", fmt.Errorf("path %q escapes the workspace", p)
	}
	// path.Clean collapses interior "x/../y", but a raw ".." segment in the
	// input is rejected outright — callers must not rely on normalization
	// to neutralize parent references.
	for _, seg := range strings.Split(p, "/") {
		if seg == ".." {
			return "", fmt.Errorf("path %q contains a parent reference", p)
		}
	}

	return cleaned, nil
}
