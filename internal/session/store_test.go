package session

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/outpost-cli/outpost/internal/errdefs"
	"github.com/outpost-cli/outpost/internal/identity"
)

// --- Helper: build a minimal valid session for testing ---

func testSession(key, actorName string) *Session {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	return &Session{
		SchemaVersion: SchemaVersion,
		Key:           key,
		Actor:         identity.Actor{Name: actorName},
		Context:       WorkContext{Ticket: "PROJ-1", Project: "platform"},
		Status:        StatusActive,
		Retention: RetentionInfo{
			Policy:    PolicyProject,
			ExpiresAt: now.Add(4380 * time.Hour).Format(time.RFC3339),
		},
		Outputs:   []OutputRecord{},
		CreatedAt: now.Format(time.RFC3339),
		UpdatedAt: now.Format(time.RFC3339),
	}
}

func TestCreateAndReadBack(t *testing.T) {
	fs := NewFileStore(t.TempDir())
	s := testSession("2026-03-10_proj-1_ab12cd", "jane-doe")

	if err := fs.Create(s); err != nil {
		t.Fatalf("Create: %v", err)
	}

	got, err := fs.Read(s.Key)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if got.Status != StatusActive {
		t.Errorf("Status = %q, want active", got.Status)
	}
	if len(got.Outputs) != 0 {
		t.Errorf("Outputs = %d records, want empty", len(got.Outputs))
	}
	if got.Actor.Name != "jane-doe" {
		t.Errorf("Actor.Name = %q", got.Actor.Name)
	}
}

func TestCreateEstablishesCategorySubdirs(t *testing.T) {
	root := t.TempDir()
	fs := NewFileStore(root)
	s := testSession("2026-03-10_proj-1_ab12cd", "jane-doe")

	if err := fs.Create(s); err != nil {
		t.Fatalf("Create: %v", err)
	}

	for _, cat := range Categories {
		dir := filepath.Join(root, "jane-doe", s.Key, string(cat))
		info, err := os.Stat(dir)
		if err != nil || !info.IsDir() {
			t.Errorf("category subdirectory %q missing", cat)
		}
	}
}

func TestCreateIsExclusive(t *testing.T) {
	fs := NewFileStore(t.TempDir())
	s := testSession("2026-03-10_proj-1_ab12cd", "jane-doe")

	if err := fs.Create(s); err != nil {
		t.Fatalf("first Create: %v", err)
	}
	err := fs.Create(s)
	if err == nil {
		t.Fatal("second Create should fail, not overwrite")
	}
	if !errors.Is(err, os.ErrExist) {
		t.Errorf("second Create error = %v, want os.ErrExist", err)
	}
}

func TestWriteRejectsSchemaViolations(t *testing.T) {
	fs := NewFileStore(t.TempDir())

	tests := []struct {
		name   string
		mutate func(*Session)
	}{
		{"missing key", func(s *Session) { s.Key = "" }},
		{"missing actor", func(s *Session) { s.Actor.Name = "" }},
		{"missing ticket", func(s *Session) { s.Context.Ticket = "" }},
		{"missing project", func(s *Session) { s.Context.Project = "" }},
		{"bad status", func(s *Session) { s.Status = "paused" }},
		{"bad policy", func(s *Session) { s.Retention.Policy = "forever" }},
		{"missing expiry", func(s *Session) { s.Retention.ExpiresAt = "" }},
		{"bad output category", func(s *Session) {
			s.Outputs = []OutputRecord{{Path: "a.md", Agent: "x", Category: "misc", CreatedAt: s.CreatedAt}}
		}},
		{"duplicate output path", func(s *Session) {
			s.Outputs = []OutputRecord{
				{Path: "a.md", Agent: "x", Category: CategoryReport, CreatedAt: s.CreatedAt},
				{Path: "a.md", Agent: "y", Category: CategoryReview, CreatedAt: s.CreatedAt},
			}
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := testSession("2026-03-10_proj-1_ff00ff", "jane-doe")
			tt.mutate(s)
			err := fs.Write(s)
			if !errors.Is(err, errdefs.ErrSchemaViolation) {
				t.Errorf("Write error = %v, want ErrSchemaViolation", err)
			}
		})
	}
}

func TestSchemaViolationNeverPersisted(t *testing.T) {
	root := t.TempDir()
	fs := NewFileStore(root)

	s := testSession("2026-03-10_proj-1_ab12cd", "jane-doe")
	if err := fs.Create(s); err != nil {
		t.Fatalf("Create: %v", err)
	}

	s.Context.Ticket = ""
	if err := fs.Write(s); err == nil {
		t.Fatal("Write should have failed")
	}

	// The on-disk record must be untouched.
	got, err := fs.Read(s.Key)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if got.Context.Ticket != "PROJ-1" {
		t.Errorf("record was partially persisted: ticket = %q", got.Context.Ticket)
	}
}

func TestReadUnknownSession(t *testing.T) {
	fs := NewFileStore(t.TempDir())
	_, err := fs.Read("2026-01-01_nope_000000")
	if !errors.Is(err, errdefs.ErrNotFound) {
		t.Errorf("Read error = %v, want ErrNotFound", err)
	}
}

func TestListAllAcrossActors(t *testing.T) {
	fs := NewFileStore(t.TempDir())

	keys := []struct{ key, actor string }{
		{"2026-03-10_proj-1_aaaaaa", "jane-doe"},
		{"2026-03-11_proj-2_bbbbbb", "jane-doe"},
		{"2026-03-09_proj-3_cccccc", "ci-bot"},
	}
	for _, k := range keys {
		if err := fs.Create(testSession(k.key, k.actor)); err != nil {
			t.Fatalf("Create %s: %v", k.key, err)
		}
	}

	all, err := fs.ListAll()
	if err != nil {
		t.Fatalf("ListAll: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("ListAll returned %d sessions, want 3", len(all))
	}
	// Most recent key first.
	if all[0].Key != "2026-03-11_proj-2_bbbbbb" {
		t.Errorf("first session = %q, want most recent", all[0].Key)
	}
}

func TestListAllSkipsDotDirsAndJunk(t *testing.T) {
	root := t.TempDir()
	fs := NewFileStore(root)

	if err := fs.Create(testSession("2026-03-10_proj-1_aaaaaa", "jane-doe")); err != nil {
		t.Fatal(err)
	}
	// Promotion namespace and pointer must not be mistaken for actors.
	if err := os.MkdirAll(filepath.Join(root, ".promoted", "eng", "page"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := fs.WritePointer(&Pointer{SessionKey: "2026-03-10_proj-1_aaaaaa", Actor: "jane-doe", SetAt: "2026-03-10T12:00:00Z"}); err != nil {
		t.Fatal(err)
	}

	all, err := fs.ListAll()
	if err != nil {
		t.Fatalf("ListAll: %v", err)
	}
	if len(all) != 1 {
		t.Errorf("ListAll returned %d sessions, want 1", len(all))
	}
}

func TestPointerRoundtrip(t *testing.T) {
	fs := NewFileStore(t.TempDir())

	p, err := fs.ReadPointer()
	if err != nil {
		t.Fatalf("ReadPointer: %v", err)
	}
	if p != nil {
		t.Fatalf("unset pointer should read as nil, got %+v", p)
	}

	want := &Pointer{SessionKey: "2026-03-10_proj-1_aaaaaa", Actor: "jane-doe", SetAt: "2026-03-10T12:00:00Z"}
	if err := fs.WritePointer(want); err != nil {
		t.Fatalf("WritePointer: %v", err)
	}

	got, err := fs.ReadPointer()
	if err != nil {
		t.Fatalf("ReadPointer: %v", err)
	}
	if got == nil || got.SessionKey != want.SessionKey {
		t.Errorf("pointer roundtrip = %+v, want %+v", got, want)
	}
}

func TestAtomicWriteLeavesNoTempFiles(t *testing.T) {
	root := t.TempDir()
	fs := NewFileStore(root)
	s := testSession("2026-03-10_proj-1_ab12cd", "jane-doe")

	if err := fs.Create(s); err != nil {
		t.Fatal(err)
	}
	s.Tags = []string{"security"}
	if err := fs.Write(s); err != nil {
		t.Fatal(err)
	}

	entries, err := os.ReadDir(filepath.Join(root, "jane-doe", s.Key))
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		if e.Name() != RecordFile && !e.IsDir() {
			t.Errorf("unexpected leftover file %q", e.Name())
		}
	}
}
