package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/outpost-cli/outpost/internal/errdefs"
)

const (
	// RecordFile is the per-session metadata filename.
	RecordFile = "session.json"
	// PointerFile is the current-session pointer record at the store root.
	PointerFile = ".current"
)

// Pointer is the small current-session record at the store root. It names
// a session; it never duplicates the session record itself.
type Pointer struct {
	SessionKey string `json:"session_key"`
	Actor      string `json:"actor"`
	SetAt      string `json:"set_at"` // RFC3339
}

// Store defines the persistence contract for session records.
// Abstracted for testability.
type Store interface {
	// Create persists a brand-new session exclusively: it fails if the
	// session directory already exists (this makes the key-collision
	// retry loop correct).
	Create(s *Session) error
	// Read loads a session record by key.
	Read(key string) (*Session, error)
	// Write re-persists an existing session record all-or-nothing.
	Write(s *Session) error
	// ListAll loads every session record in the store.
	ListAll() ([]*Session, error)
	// Exists reports whether a session directory for key exists.
	Exists(key string) (bool, error)
	// ReadPointer loads the current-session pointer, nil if unset.
	ReadPointer() (*Pointer, error)
	// WritePointer persists the current-session pointer.
	WritePointer(p *Pointer) error
}

// FileStore implements Store on the local filesystem, one directory per
// session under the owning actor:
//
//	{root}/{actor}/{key}/session.json
//
// Two processes updating the same session race last-write-wins; the
// temp-then-rename write keeps either outcome a complete record. This is
// accepted under the single-writer-per-session assumption.
type FileStore struct {
	root string
}

// NewFileStore creates a filesystem-backed session store rooted at root.
func NewFileStore(root string) *FileStore {
	return &FileStore{root: root}
}

// Root returns the store root directory.
func (fs *FileStore) Root() string { return fs.root }

// Dir returns the absolute path of a session's directory.
func (fs *FileStore) Dir(actorName, key string) string {
	return filepath.Join(fs.root, actorName, key)
}

// RecordPath returns the absolute path of a session's record file.
func (fs *FileStore) RecordPath(actorName, key string) string {
	return filepath.Join(fs.Dir(actorName, key), RecordFile)
}

// Create persists a new session record, creating the session directory
// exclusively and one subdirectory per output category.
func (fs *FileStore) Create(s *Session) error {
	if err := s.Validate(); err != nil {
		return err
	}

	actorDir := filepath.Join(fs.root, s.Actor.Name)
	if err := os.MkdirAll(actorDir, 0o755); err != nil {
		return fmt.Errorf("creating actor directory: %w", err)
	}

	dir := fs.Dir(s.Actor.Name, s.Key)
	if err := os.Mkdir(dir, 0o755); err != nil {
		if os.IsExist(err) {
			return fmt.Errorf("session %q already exists: %w", s.Key, os.ErrExist)
		}
		return fmt.Errorf("creating session directory: %w", err)
	}

	for _, cat := range Categories {
		if err := os.Mkdir(filepath.Join(dir, string(cat)), 0o755); err != nil {
			return fmt.Errorf("creating %s subdirectory: %w", cat, err)
		}
	}

	return fs.writeRecord(s)
}

// Read loads a session by key, scanning actor directories. Session keys
// are globally unique, so the first hit wins.
func (fs *FileStore) Read(key string) (*Session, error) {
	dir, err := fs.findDir(key)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(filepath.Join(dir, RecordFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errdefs.NotFound("session", key)
		}
		return nil, fmt.Errorf("reading session record: %w", err)
	}

	var s Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parsing %s for %q: %w", RecordFile, key, err)
	}
	return &s, nil
}

// Write validates and re-persists an existing session record.
func (fs *FileStore) Write(s *Session) error {
	if err := s.Validate(); err != nil {
		return err
	}
	s.UpdatedAt = timeNow().UTC().Format(time.RFC3339)
	return fs.writeRecord(s)
}

// Exists reports whether a session directory for key exists anywhere in
// the store.
func (fs *FileStore) Exists(key string) (bool, error) {
	_, err := fs.findDir(key)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, errdefs.ErrNotFound) {
		return false, nil
	}
	return false, err
}

// ListAll loads every session record. Unreadable records are skipped, not
// fatal — a single corrupt record must not take down listing.
func (fs *FileStore) ListAll() ([]*Session, error) {
	actors, err := os.ReadDir(fs.root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading store root: %w", err)
	}

	var result []*Session
	for _, actor := range actors {
		if !actor.IsDir() || strings.HasPrefix(actor.Name(), ".") {
			continue
		}
		actorDir := filepath.Join(fs.root, actor.Name())
		entries, err := os.ReadDir(actorDir)
		if err != nil {
			continue
		}
		for _, entry := range entries {
			if !entry.IsDir() {
				continue
			}
			data, err := os.ReadFile(filepath.Join(actorDir, entry.Name(), RecordFile))
			if err != nil {
				continue
			}
			var s Session
			if err := json.Unmarshal(data, &s); err != nil {
				continue
			}
			result = append(result, &s)
		}
	}

	// Most recent first; keys are date-prefixed.
	sort.Slice(result, func(i, j int) bool {
		return result[i].Key > result[j].Key
	})

	return result, nil
}

// ReadPointer loads the current-session pointer. Returns nil (not an
// error) when no pointer is set.
func (fs *FileStore) ReadPointer() (*Pointer, error) {
	data, err := os.ReadFile(filepath.Join(fs.root, PointerFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading session pointer: %w", err)
	}
	var p Pointer
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parsing session pointer: %w", err)
	}
	return &p, nil
}

// WritePointer persists the current-session pointer with the same
// temp-then-rename discipline as records.
func (fs *FileStore) WritePointer(p *Pointer) error {
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling session pointer: %w", err)
	}
	return atomicWrite(filepath.Join(fs.root, PointerFile), data)
}

// findDir locates the session directory for key across actor directories.
func (fs *FileStore) findDir(key string) (string, error) {
	actors, err := os.ReadDir(fs.root)
	if err != nil {
		if os.IsNotExist(err) {
			return "", errdefs.NotFound("session", key)
		}
		return "", fmt.Errorf("reading store root: %w", err)
	}

	for _, actor := range actors {
		if !actor.IsDir() || strings.HasPrefix(actor.Name(), ".") {
			continue
		}
		dir := filepath.Join(fs.root, actor.Name(), key)
		if info, err := os.Stat(dir); err == nil && info.IsDir() {
			return dir, nil
		}
	}
	return "", errdefs.NotFound("session", key)
}

// writeRecord marshals and writes a session record to its session.json.
func (fs *FileStore) writeRecord(s *Session) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling session record: %w", err)
	}
	return atomicWrite(fs.RecordPath(s.Actor.Name, s.Key), data)
}

// atomicWrite writes data to path via a temp file in the same directory
// followed by a rename, so an interrupted write never leaves a partial
// record behind.
func atomicWrite(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp record file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("writing temp record file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing temp record file: %w", err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("renaming record into place: %w", err)
	}
	return nil
}
