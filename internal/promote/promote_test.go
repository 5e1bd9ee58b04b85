package promote

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"

	"github.com/outpost-cli/outpost/internal/config"
	"github.com/outpost-cli/outpost/internal/errdefs"
	"github.com/outpost-cli/outpost/internal/identity"
	"github.com/outpost-cli/outpost/internal/session"
)

func setup(t *testing.T) (*Tracker, *session.Registry, *session.FileStore, *session.Session) {
	t.Helper()
	root := t.TempDir()
	fs := session.NewFileStore(root)
	reg := session.NewRegistry(fs, config.Default(), zerolog.Nop())
	tracker := NewTracker(fs, reg, zerolog.Nop())

	s, err := reg.Create(session.CreateParams{
		Actor:   identity.Actor{Name: "jane-doe"},
		Context: session.WorkContext{Ticket: "PROJ-123", Project: "platform"},
		Policy:  session.PolicyProject,
	})
	if err != nil {
		t.Fatal(err)
	}

	// Write and register a real artifact inside the session.
	artifact := filepath.Join(fs.Dir("jane-doe", s.Key), "report", "q1.md")
	if err := os.WriteFile(artifact, []byte("# Q1 report\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := reg.Register(s.Key, session.RegisterParams{
		Path: "report/q1.md", Agent: "analyst", Category: session.CategoryReport,
	}); err != nil {
		t.Fatal(err)
	}

	return tracker, reg, fs, s
}

func TestPromoteFirstRevision(t *testing.T) {
	tracker, reg, fs, s := setup(t)

	rec, err := tracker.Promote(Params{
		SessionKey: s.Key,
		OutputPath: "report/q1.md",
		Sink:       "eng/q1-report",
		Notify:     []string{"lead@example.com"},
	})
	if err != nil {
		t.Fatalf("Promote: %v", err)
	}
	if rec.Revision != 1 {
		t.Errorf("Revision = %d, want 1", rec.Revision)
	}

	// Artifact copy lands in the shared namespace.
	copied := filepath.Join(fs.Root(), DirName, "eng", "q1-report", s.Key+"__report__q1.md")
	if _, err := os.Stat(copied); err != nil {
		t.Errorf("promoted artifact copy missing: %v", err)
	}

	// Owning session's output record is updated.
	got, err := reg.Get(s.Key)
	if err != nil {
		t.Fatal(err)
	}
	out := got.Output("report/q1.md")
	if !out.Promoted || out.PromotionTarget != "eng/q1-report" {
		t.Errorf("output record not updated: %+v", out)
	}
}

func TestPromoteTwiceRequiresForce(t *testing.T) {
	tracker, _, _, s := setup(t)

	p := Params{SessionKey: s.Key, OutputPath: "report/q1.md", Sink: "eng/q1-report"}
	if _, err := tracker.Promote(p); err != nil {
		t.Fatal(err)
	}

	_, err := tracker.Promote(p)
	if !errors.Is(err, errdefs.ErrPromotionExists) {
		t.Fatalf("second Promote error = %v, want ErrPromotionExists", err)
	}

	p.Force = true
	rec, err := tracker.Promote(p)
	if err != nil {
		t.Fatalf("forced Promote: %v", err)
	}
	if rec.Revision != 2 {
		t.Errorf("Revision = %d, want 2 (increment, not duplicate)", rec.Revision)
	}

	// Exactly one record exists for the tuple.
	got, err := tracker.Get(s.Key, "report/q1.md", "eng/q1-report")
	if err != nil {
		t.Fatal(err)
	}
	if got.Revision != 2 {
		t.Errorf("stored Revision = %d, want 2", got.Revision)
	}
}

func TestPromoteLifecycleGate(t *testing.T) {
	tracker, reg, _, s := setup(t)

	// Closing bars new outputs but not promotion of the existing ones.
	if _, err := reg.Close(s.Key); err != nil {
		t.Fatal(err)
	}
	rec, err := tracker.Promote(Params{SessionKey: s.Key, OutputPath: "report/q1.md", Sink: "eng/q1-report"})
	if err != nil {
		t.Fatalf("promoting from a closed session: %v", err)
	}
	if rec.Revision != 1 {
		t.Errorf("Revision = %d, want 1", rec.Revision)
	}

	// An archived session is immutable; promotion must not touch it.
	if _, err := reg.Archive(s.Key); err != nil {
		t.Fatal(err)
	}
	_, err = tracker.Promote(Params{SessionKey: s.Key, OutputPath: "report/q1.md", Sink: "exec/q1", Force: true})
	if !errors.Is(err, errdefs.ErrInvalidTransition) {
		t.Fatalf("archived Promote error = %v, want ErrInvalidTransition", err)
	}

	got, err := reg.Get(s.Key)
	if err != nil {
		t.Fatal(err)
	}
	out := got.Output("report/q1.md")
	if out.PromotionTarget == "exec/q1" {
		t.Error("archived session record was rewritten by a rejected promotion")
	}
}

func TestPromoteDifferentSinksAreIndependent(t *testing.T) {
	tracker, _, _, s := setup(t)

	if _, err := tracker.Promote(Params{SessionKey: s.Key, OutputPath: "report/q1.md", Sink: "eng/q1"}); err != nil {
		t.Fatal(err)
	}
	rec, err := tracker.Promote(Params{SessionKey: s.Key, OutputPath: "report/q1.md", Sink: "exec/q1"})
	if err != nil {
		t.Fatalf("promotion to a second sink should not need force: %v", err)
	}
	if rec.Revision != 1 {
		t.Errorf("Revision = %d, want 1 for a fresh sink", rec.Revision)
	}
}

func TestPromoteUnknownTargets(t *testing.T) {
	tracker, _, _, s := setup(t)

	_, err := tracker.Promote(Params{SessionKey: "2026-01-01_ghost_000000", OutputPath: "report/q1.md", Sink: "eng/x"})
	if !errors.Is(err, errdefs.ErrNotFound) {
		t.Errorf("unknown session error = %v, want ErrNotFound", err)
	}

	_, err = tracker.Promote(Params{SessionKey: s.Key, OutputPath: "report/missing.md", Sink: "eng/x"})
	if !errors.Is(err, errdefs.ErrNotFound) {
		t.Errorf("unknown output error = %v, want ErrNotFound", err)
	}
}

func TestPromoteSinkValidation(t *testing.T) {
	tracker, _, _, s := setup(t)

	for _, sink := range []string{"", "../outside", ".."} {
		_, err := tracker.Promote(Params{SessionKey: s.Key, OutputPath: "report/q1.md", Sink: sink})
		if !errors.Is(err, errdefs.ErrSchemaViolation) {
			t.Errorf("sink %q error = %v, want ErrSchemaViolation", sink, err)
		}
	}
}

func TestGetMissingPromotion(t *testing.T) {
	tracker, _, _, s := setup(t)
	_, err := tracker.Get(s.Key, "report/q1.md", "eng/never")
	if !errors.Is(err, errdefs.ErrNotFound) {
		t.Errorf("Get error = %v, want ErrNotFound", err)
	}
}
