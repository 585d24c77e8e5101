// Package index maintains a derived sqlite view of the trace ledger for
// cheap querying by intent and path, plus per-class and per-intent
// record counts.
//
// The JSONL ledger stays the single source of truth: the index is
// rebuilt from it on demand and can be deleted at any time without data
// loss. It exists so consumers can ask "what did INT-001 touch?" without
// re-parsing the whole ledger.
package index

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"github.com/warden-mcp/warden/internal/trace"
	"github.com/warden-mcp/warden/internal/workspace"
)

// openDB is a package-level var to allow test injection.
var openDB = sql.Open

// schema creates the two derived tables. No indices beyond the primary
// keys — ledgers are small enough that table scans are fine.
const schema = `
CREATE TABLE IF NOT EXISTS records (
	id             TEXT PRIMARY KEY,
	seq            INTEGER NOT NULL,
	timestamp      TEXT NOT NULL,
	intent_id      TEXT NOT NULL,
	tool           TEXT NOT NULL,
	mutation_class TEXT NOT NULL,
	elapsed_ms     INTEGER
);
CREATE TABLE IF NOT EXISTS record_files (
	record_id    TEXT NOT NULL REFERENCES records(id),
	relative_path TEXT NOT NULL,
	content_hash  TEXT NOT NULL
);
`

// Entry is one query result row — a record with its file paths.
type Entry struct {
	ID            string   `json:"id"`
	Timestamp     string   `json:"timestamp"`
	IntentID      string   `json:"intent_id"`
	Tool          string   `json:"tool"`
	MutationClass string   `json:"mutation_class"`
	Paths         []string `json:"paths"`
}

// QueryOptions filters index queries. Zero values mean "no filter".
type QueryOptions struct {
	IntentID string
	Path     string
	Limit    int
}

// Stats holds aggregate ledger statistics.
type Stats struct {
	TotalRecords    int            `json:"total_records"`
	RecordsByClass  map[string]int `json:"records_by_class"`
	RecordsByIntent map[string]int `json:"records_by_intent"`
}

// Store is the sqlite-backed index for one workspace.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the index database under the
// workspace sidecar directory.
func Open(root string) (*Store, error) {
	path := workspace.IndexPath(root)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create sidecar dir: %w", err)
	}

	db, err := openDB("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open index db: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create index schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Rebuild replaces the index contents with the given ledger records.
// Runs in one transaction so readers never see a half-built index.
func (s *Store) Rebuild(records []trace.Record) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin rebuild: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`DELETE FROM record_files`); err != nil {
		return fmt.Errorf("clear record_files: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM records`); err != nil {
		return fmt.Errorf("clear records: %w", err)
	}

	insRec, err := tx.Prepare(`INSERT INTO records (id, seq, timestamp, intent_id, tool, mutation_class, elapsed_ms) VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare record insert: %w", err)
	}
	defer insRec.Close()

	insFile, err := tx.Prepare(`INSERT INTO record_files (record_id, relative_path, content_hash) VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare file insert: %w", err)
	}
	defer insFile.Close()

	for seq, rec := range records {
		var elapsed any
		if rec.ElapsedMs != nil {
			elapsed = *rec.ElapsedMs
		}
		if _, err := insRec.Exec(rec.ID, seq, rec.Timestamp, rec.IntentID, rec.Tool, string(rec.MutationClass), elapsed); err != nil {
			return fmt.Errorf("insert record %s: %w", rec.ID, err)
		}
		for _, fe := range rec.Files {
			if _, err := insFile.Exec(rec.ID, fe.RelativePath, fe.ContentHash); err != nil {
				return fmt.Errorf("insert file for %s: %w", rec.ID, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit rebuild: %w", err)
	}
	return nil
}

// Query returns records matching the options, in ledger append order.
func (s *Store) Query(opts QueryOptions) ([]Entry, error) {
	q := `SELECT DISTINCT r.id, r.seq, r.timestamp, r.intent_id, r.tool, r.mutation_class
	      FROM records r`
	var args []any
	var where []string

	if opts.Path != "" {
		q += ` JOIN record_files f ON f.record_id = r.id`
		where = append(where, `f.relative_path = ?`)
		args = append(args, opts.Path)
	}
	if opts.IntentID != "" {
		where = append(where, `r.intent_id = ?`)
		args = append(args, opts.IntentID)
	}
	for i, w := range where {
		if i == 0 {
			q += ` WHERE ` + w
		} else {
			q += ` AND ` + w
		}
	}
	q += ` ORDER BY r.seq`
	if opts.Limit > 0 {
		q += ` LIMIT ?`
		args = append(args, opts.Limit)
	}

	rows, err := s.db.Query(q, args...)
	if err != nil {
		return nil, fmt.Errorf("query index: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var seq int
		if err := rows.Scan(&e.ID, &seq, &e.Timestamp, &e.IntentID, &e.Tool, &e.MutationClass); err != nil {
			return nil, fmt.Errorf("scan index row: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate index rows: %w", err)
	}

	// Attach file paths per record.
	for i := range entries {
		paths, err := s.filePaths(entries[i].ID)
		if err != nil {
			return nil, err
		}
		entries[i].Paths = paths
	}
	return entries, nil
}

// filePaths returns the paths recorded for one record.
func (s *Store) filePaths(recordID string) ([]string, error) {
	rows, err := s.db.Query(`SELECT relative_path FROM record_files WHERE record_id = ?`, recordID)
	if err != nil {
		return nil, fmt.Errorf("query record files: %w", err)
	}
	defer rows.Close()

	var paths []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, fmt.Errorf("scan file path: %w", err)
		}
		paths = append(paths, p)
	}
	return paths, rows.Err()
}

// GetStats returns aggregate counts over the indexed ledger.
func (s *Store) GetStats() (Stats, error) {
	stats := Stats{
		RecordsByClass:  make(map[string]int),
		RecordsByIntent: make(map[string]int),
	}

	if err := s.db.QueryRow(`SELECT COUNT(*) FROM records`).Scan(&stats.TotalRecords); err != nil {
		return Stats{}, fmt.Errorf("count records: %w", err)
	}

	rows, err := s.db.Query(`SELECT mutation_class, COUNT(*) FROM records GROUP BY mutation_class`)
	if err != nil {
		return Stats{}, fmt.Errorf("count by class: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var class string
		var n int
		if err := rows.Scan(&class, &n); err != nil {
			return Stats{}, fmt.Errorf("scan class count: %w", err)
		}
		stats.RecordsByClass[class] = n
	}
	if err := rows.Err(); err != nil {
		return Stats{}, err
	}

	byIntent, err := s.db.Query(`SELECT intent_id, COUNT(*) FROM records GROUP BY intent_id`)
	if err != nil {
		return Stats{}, fmt.Errorf("count by intent: %w", err)
	}
	defer byIntent.Close()
	for byIntent.Next() {
		var id string
		var n int
		if err := byIntent.Scan(&id, &n); err != nil {
			return Stats{}, fmt.Errorf("scan intent count: %w", err)
		}
		stats.RecordsByIntent[id] = n
	}
	return stats, byIntent.Err()
}
