package migrate

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/outpost-cli/outpost/internal/config"
	"github.com/outpost-cli/outpost/internal/errdefs"
	"github.com/outpost-cli/outpost/internal/identity"
	"github.com/outpost-cli/outpost/internal/session"
)

// legacyFixture is 13 artifacts spanning 3 inferable categories plus
// unparseable stragglers.
var legacyFixture = []string{
	"2026-01-05_auth-architecture_claude.md",
	"2026-01-06_db-design_claude.md",
	"2026-01-07_cache-architecture_gpt.md",
	"2026-01-10_payment-analysis_claude.md",
	"2026-01-11_latency-analysis_gpt.md",
	"2026-01-12_quota-analysis_claude.md",
	"2026-01-15_api-review_claude.md",
	"2026-01-16_schema-review_gpt.md",
	"2026-01-17_infra-review_claude.md",
	"2026-01-18_release-review_gpt.md",
	"notes.md",
	"scratchpad_claude.txt",
	"2026-02-01_leftovers.md",
}

func setupMigration(t *testing.T) (*Engine, *session.Registry, string) {
	t.Helper()
	storeRoot := t.TempDir()
	legacyRoot := filepath.Join(t.TempDir(), "legacy")
	if err := os.MkdirAll(legacyRoot, 0o755); err != nil {
		t.Fatal(err)
	}
	for _, name := range legacyFixture {
		if err := os.WriteFile(filepath.Join(legacyRoot, name), []byte("legacy content of "+name), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	fs := session.NewFileStore(storeRoot)
	reg := session.NewRegistry(fs, config.Default(), zerolog.Nop())
	return NewEngine(fs, reg, config.Default(), zerolog.Nop()), reg, legacyRoot
}

func testActor() identity.Actor {
	return identity.Actor{Name: "jane-doe"}
}

func countFiles(t *testing.T, root string) int {
	t.Helper()
	n := 0
	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			n++
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	return n
}

func TestPlanIsReadOnly(t *testing.T) {
	eng, _, legacyRoot := setupMigration(t)

	before := countFiles(t, legacyRoot)
	plan, err := eng.BuildPlan(legacyRoot, testActor())
	if err != nil {
		t.Fatalf("BuildPlan: %v", err)
	}

	if len(plan.Items) != 13 {
		t.Errorf("plan has %d items, want 13", len(plan.Items))
	}
	if after := countFiles(t, legacyRoot); after != before {
		t.Errorf("plan touched the legacy root: %d -> %d files", before, after)
	}

	// Session key is deterministic from actor + migration tag.
	plan2, err := eng.BuildPlan(legacyRoot, testActor())
	if err != nil {
		t.Fatal(err)
	}
	if plan.SessionKey != plan2.SessionKey {
		t.Errorf("session key not deterministic: %q vs %q", plan.SessionKey, plan2.SessionKey)
	}
	if !strings.Contains(plan.SessionKey, "_"+MigrationTag+"_") {
		t.Errorf("session key %q missing migration slug", plan.SessionKey)
	}
}

func TestPlanUnknownRoot(t *testing.T) {
	eng, _, _ := setupMigration(t)
	_, err := eng.BuildPlan("/does/not/exist", testActor())
	if !errors.Is(err, errdefs.ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}

func TestExecuteMigratesAll(t *testing.T) {
	eng, reg, legacyRoot := setupMigration(t)

	plan, err := eng.BuildPlan(legacyRoot, testActor())
	if err != nil {
		t.Fatal(err)
	}

	result, err := eng.Execute(plan)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if result.Migrated != 13 || result.Skipped != 0 {
		t.Errorf("Migrated/Skipped = %d/%d, want 13/0", result.Migrated, result.Skipped)
	}
	if result.Unparsed != 3 {
		t.Errorf("Unparsed = %d, want 3", result.Unparsed)
	}

	s, err := reg.Get(plan.SessionKey)
	if err != nil {
		t.Fatalf("migration session: %v", err)
	}
	if len(s.Outputs) != 13 {
		t.Errorf("session has %d outputs, want 13", len(s.Outputs))
	}
	if s.Context.Ticket != "LEGACY-IMPORT" {
		t.Errorf("placeholder ticket = %q", s.Context.Ticket)
	}
	if s.Retention.Policy != session.PolicyTemporary {
		t.Errorf("retention = %q, want temporary", s.Retention.Policy)
	}

	// Original timestamps are preserved for parseable names.
	out := s.Output("architecture/2026-01-05_auth-architecture_claude.md")
	if out == nil {
		t.Fatal("architecture output missing")
	}
	if out.CreatedAt != "2026-01-05T00:00:00Z" {
		t.Errorf("CreatedAt = %q, want original timestamp", out.CreatedAt)
	}
	if out.Agent != "claude" {
		t.Errorf("Agent = %q", out.Agent)
	}

	// Unparseable names are still migrated, flagged.
	unparsed := s.Output("artifact/notes.md")
	if unparsed == nil || !unparsed.UnparsedContext {
		t.Errorf("unparsed artifact not flagged: %+v", unparsed)
	}

	// Sources were copied, not moved.
	if n := countFiles(t, legacyRoot); n != 13 {
		t.Errorf("legacy root has %d files after execute, want 13", n)
	}

	// Backup exists with full contents.
	if result.BackupPath == "" {
		t.Fatal("no backup path in result")
	}
	if n := countFiles(t, result.BackupPath); n != 13 {
		t.Errorf("backup has %d files, want 13", n)
	}

	// Human-readable report lands in the report category.
	if !strings.HasSuffix(result.ReportPath, filepath.FromSlash(ReportFile)) {
		t.Errorf("ReportPath = %q, want it under report/", result.ReportPath)
	}
	data, err := os.ReadFile(result.ReportPath)
	if err != nil {
		t.Fatalf("reading report: %v", err)
	}
	if !strings.Contains(string(data), "notes.md") {
		t.Error("report does not list unparsed items")
	}
}

func TestMigrationSessionUsesConfiguredRetention(t *testing.T) {
	orig := timeNow
	defer func() { timeNow = orig }()
	now := time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)
	timeNow = func() time.Time { return now }

	eng, reg, legacyRoot := setupMigration(t)
	eng.cfg.Retention.Temporary = 100 * time.Hour

	plan, err := eng.BuildPlan(legacyRoot, testActor())
	if err != nil {
		t.Fatal(err)
	}
	if _, err := eng.Execute(plan); err != nil {
		t.Fatal(err)
	}

	s, err := reg.Get(plan.SessionKey)
	if err != nil {
		t.Fatal(err)
	}
	want := now.Add(100 * time.Hour).Format(time.RFC3339)
	if s.Retention.ExpiresAt != want {
		t.Errorf("ExpiresAt = %q, want %q (configured temporary window)", s.Retention.ExpiresAt, want)
	}
}

func TestExecuteIsIdempotent(t *testing.T) {
	eng, reg, legacyRoot := setupMigration(t)

	plan, err := eng.BuildPlan(legacyRoot, testActor())
	if err != nil {
		t.Fatal(err)
	}
	if _, err := eng.Execute(plan); err != nil {
		t.Fatal(err)
	}

	second, err := eng.Execute(plan)
	if err != nil {
		t.Fatalf("second Execute: %v", err)
	}
	if second.Migrated != 0 || second.Skipped != 13 {
		t.Errorf("second run Migrated/Skipped = %d/%d, want 0/13", second.Migrated, second.Skipped)
	}

	s, err := reg.Get(plan.SessionKey)
	if err != nil {
		t.Fatal(err)
	}
	if len(s.Outputs) != 13 {
		t.Errorf("outputs after rerun = %d, want 13 (no duplicates)", len(s.Outputs))
	}
}

func TestRemoveLegacyAfterExecute(t *testing.T) {
	eng, _, legacyRoot := setupMigration(t)

	plan, err := eng.BuildPlan(legacyRoot, testActor())
	if err != nil {
		t.Fatal(err)
	}

	// Cleanup before execute removes nothing: no outputs registered yet.
	if _, err := eng.RemoveLegacy(plan); !errors.Is(err, errdefs.ErrNotFound) {
		t.Errorf("RemoveLegacy before execute = %v, want ErrNotFound", err)
	}

	if _, err := eng.Execute(plan); err != nil {
		t.Fatal(err)
	}

	removed, err := eng.RemoveLegacy(plan)
	if err != nil {
		t.Fatalf("RemoveLegacy: %v", err)
	}
	if removed != 13 {
		t.Errorf("removed %d files, want 13", removed)
	}
	if n := countFiles(t, legacyRoot); n != 0 {
		t.Errorf("legacy root still has %d files", n)
	}
}
