// Package index maintains the SQLite auxiliary query index.
//
// The index mirrors the filterable fields of every session record so
// searches can narrow to candidate keys without loading every record
// file. It is strictly an accelerator: the record files remain the source
// of truth, every hit is re-verified against the loaded record, and the
// whole index can be rebuilt from the store at any time.
package index

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/outpost-cli/outpost/internal/query"
	"github.com/outpost-cli/outpost/internal/session"
)

// DirName is the index directory under the store root.
const DirName = ".index"

// openDB is a package-level var to allow test injection.
var openDB = sql.Open

// Index is the SQLite-backed candidate lookup. It implements both
// session.Indexer (write side) and query.KeyLookup (read side).
type Index struct {
	db *sql.DB
}

// Open creates or opens the index database under the store root.
func Open(root string) (*Index, error) {
	dir := filepath.Join(root, DirName)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("index: create index dir: %w", err)
	}

	db, err := openDB("sqlite", filepath.Join(dir, "outpost.db"))
	if err != nil {
		return nil, fmt.Errorf("index: open database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("index: pragma %q: %w", p, err)
		}
	}

	ix := &Index{db: db}
	if err := ix.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("index: migration: %w", err)
	}
	return ix, nil
}

// Close closes the underlying database connection.
func (ix *Index) Close() error {
	return ix.db.Close()
}

func (ix *Index) migrate() error {
	schema := `
		CREATE TABLE IF NOT EXISTS sessions (
			key        TEXT PRIMARY KEY,
			actor      TEXT NOT NULL,
			ticket     TEXT NOT NULL,
			project    TEXT NOT NULL,
			status     TEXT NOT NULL,
			expires_at TEXT NOT NULL
		);

		CREATE TABLE IF NOT EXISTS session_tags (
			key TEXT NOT NULL,
			tag TEXT NOT NULL,
			PRIMARY KEY (key, tag)
		);

		CREATE TABLE IF NOT EXISTS session_agents (
			key   TEXT NOT NULL,
			agent TEXT NOT NULL,
			PRIMARY KEY (key, agent)
		);

		CREATE INDEX IF NOT EXISTS idx_sessions_actor  ON sessions(actor);
		CREATE INDEX IF NOT EXISTS idx_sessions_ticket ON sessions(ticket);
		CREATE INDEX IF NOT EXISTS idx_sessions_status ON sessions(status);
	`
	_, err := ix.db.Exec(schema)
	return err
}

// Sync upserts one session record into the index. Tags and agents are
// replaced wholesale; the record is small and this keeps deletions simple.
func (ix *Index) Sync(s *session.Session) error {
	tx, err := ix.db.Begin()
	if err != nil {
		return fmt.Errorf("index: begin sync: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
		INSERT INTO sessions (key, actor, ticket, project, status, expires_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			actor = excluded.actor,
			ticket = excluded.ticket,
			project = excluded.project,
			status = excluded.status,
			expires_at = excluded.expires_at`,
		s.Key, s.Actor.Name, s.Context.Ticket, s.Context.Project, string(s.Status), s.Retention.ExpiresAt)
	if err != nil {
		return fmt.Errorf("index: upsert session %q: %w", s.Key, err)
	}

	if _, err := tx.Exec(`DELETE FROM session_tags WHERE key = ?`, s.Key); err != nil {
		return fmt.Errorf("index: clear tags for %q: %w", s.Key, err)
	}
	for _, tag := range s.Tags {
		if _, err := tx.Exec(`INSERT INTO session_tags (key, tag) VALUES (?, ?)`, s.Key, tag); err != nil {
			return fmt.Errorf("index: insert tag for %q: %w", s.Key, err)
		}
	}

	if _, err := tx.Exec(`DELETE FROM session_agents WHERE key = ?`, s.Key); err != nil {
		return fmt.Errorf("index: clear agents for %q: %w", s.Key, err)
	}
	seen := make(map[string]bool)
	for _, out := range s.Outputs {
		if seen[out.Agent] {
			continue
		}
		seen[out.Agent] = true
		if _, err := tx.Exec(`INSERT INTO session_agents (key, agent) VALUES (?, ?)`, s.Key, out.Agent); err != nil {
			return fmt.Errorf("index: insert agent for %q: %w", s.Key, err)
		}
	}

	return tx.Commit()
}

// Rebuild drops all index rows and re-syncs every record in the store.
func (ix *Index) Rebuild(store session.Store) (int, error) {
	all, err := store.ListAll()
	if err != nil {
		return 0, err
	}

	for _, table := range []string{"sessions", "session_tags", "session_agents"} {
		if _, err := ix.db.Exec("DELETE FROM " + table); err != nil {
			return 0, fmt.Errorf("index: truncate %s: %w", table, err)
		}
	}

	for _, s := range all {
		if err := ix.Sync(s); err != nil {
			return 0, err
		}
	}
	return len(all), nil
}

// Candidates returns the keys of sessions that may satisfy the filter.
// Glob predicates are not pushed down into SQL; those fields are left to
// the engine's in-memory re-check, so the candidate set is a superset of
// the true result.
func (ix *Index) Candidates(f query.Filter) ([]string, error) {
	q := strings.Builder{}
	q.WriteString("SELECT DISTINCT s.key FROM sessions s")

	var conds []string
	var args []any

	if f.Tag != "" && !hasGlobMeta(f.Tag) {
		q.WriteString(" JOIN session_tags t ON t.key = s.key")
		conds = append(conds, "t.tag = ?")
		args = append(args, f.Tag)
	}
	if f.Agent != "" && !hasGlobMeta(f.Agent) {
		q.WriteString(" JOIN session_agents a ON a.key = s.key")
		conds = append(conds, "a.agent = ?")
		args = append(args, f.Agent)
	}
	if f.Actor != "" {
		conds = append(conds, "s.actor = ?")
		args = append(args, f.Actor)
	}
	if f.Ticket != "" && !hasGlobMeta(f.Ticket) {
		conds = append(conds, "s.ticket = ?")
		args = append(args, f.Ticket)
	}
	if f.Project != "" {
		conds = append(conds, "s.project = ?")
		args = append(args, f.Project)
	}
	if f.Status != "" {
		conds = append(conds, "s.status = ?")
		args = append(args, string(f.Status))
	}

	if len(conds) > 0 {
		q.WriteString(" WHERE " + strings.Join(conds, " AND "))
	}
	q.WriteString(" ORDER BY s.key DESC")

	rows, err := ix.db.Query(q.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("index: candidate query: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("index: scanning candidate: %w", err)
		}
		keys = append(keys, key)
	}
	return keys, rows.Err()
}

func hasGlobMeta(s string) bool {
	return strings.ContainsAny(s, "*?[{")
}
