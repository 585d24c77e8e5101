package trace

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"syscall"

	"github.com/gowebpki/jcs"

	"github.com/warden-mcp/warden/internal/workspace"
)

// ErrLedgerCorrupt marks a ledger line that cannot be parsed back as a
// record. Surfaced to the caller only — the LLM never sees it.
var ErrLedgerCorrupt = errors.New("LEDGER_CORRUPT")

// maxLineSize bounds a single ledger line during scanning. Records are
// ~1 KiB in practice; 4 MiB leaves room for pathological file lists.
const maxLineSize = 4 * 1024 * 1024

// Ledger is the append-only JSONL audit log for one workspace.
type Ledger struct {
	path string
}

// NewLedger creates a ledger handle rooted at the given workspace.
// The file itself is created on first append.
func NewLedger(root string) *Ledger {
	return &Ledger{path: workspace.LedgerPath(root)}
}

// Path returns the absolute ledger file path.
func (l *Ledger) Path() string {
	return l.path
}

// Append serializes the record to one canonical JSON line and appends it
// with whole-line atomicity: the line is built in memory first, an
// advisory lock is held for the single append-mode write, and the file
// is fsynced before returning. A partially written line can never be
// observed by a concurrent reader.
func (l *Ledger) Append(rec *Record) error {
	if err := rec.Validate(); err != nil {
		return fmt.Errorf("refusing to append: %w", err)
	}

	raw, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal trace record: %w", err)
	}
	line, err := jcs.Transform(raw)
	if err != nil {
		return fmt.Errorf("canonicalize trace record: %w", err)
	}
	if bytes.ContainsRune(line, '\n') {
		return fmt.Errorf("trace record %s serialized with embedded newline", rec.ID)
	}

	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return fmt.Errorf("create ledger dir: %w", err)
	}

	// Advisory lock: O_APPEND alone guarantees whole-write atomicity on
	// local filesystems, but not on every mount the workspace may live on.
	lockFile, err := os.OpenFile(l.path+".lock", os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return fmt.Errorf("open ledger lock: %w", err)
	}
	defer lockFile.Close()

	if err := syscall.Flock(int(lockFile.Fd()), syscall.LOCK_EX); err != nil {
		return fmt.Errorf("lock ledger: %w", err)
	}
	defer func() {
		_ = syscall.Flock(int(lockFile.Fd()), syscall.LOCK_UN)
	}()

	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open ledger: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("append trace record: %w", err)
	}
	if err := f.Sync(); err != nil {
		return fmt.Errorf("fsync ledger: %w", err)
	}
	return nil
}

// ReadAll parses every non-empty ledger line in append order. Blank
// lines are skipped; a line that fails to parse yields ErrLedgerCorrupt
// with the line number.
func (l *Ledger) ReadAll() ([]Record, error) {
	f, err := os.Open(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("open ledger: %w", err)
	}
	defer f.Close()

	var records []Record
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var rec Record
		if err := json.Unmarshal(line, &rec); err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", ErrLedgerCorrupt, lineNum, err)
		}
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan ledger: %w", err)
	}
	return records, nil
}

// EntriesForIntent returns all records bound to the given intent, in
// append order.
func (l *Ledger) EntriesForIntent(intentID string) ([]Record, error) {
	all, err := l.ReadAll()
	if err != nil {
		return nil, err
	}
	var out []Record
	for _, rec := range all {
		if rec.IntentID == intentID {
			out = append(out, rec)
		}
	}
	return out, nil
}

// Tail returns up to n raw ledger lines from the end of the file, for
// cheap consumers that want recent records without a full parse.
func (l *Ledger) Tail(n int) ([]string, error) {
	f, err := os.Open(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("open ledger: %w", err)
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		lines = append(lines, line)
		if len(lines) > n {
			lines = lines[1:]
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan ledger: %w", err)
	}
	return lines, nil
}
