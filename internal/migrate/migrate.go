// Package migrate converts a legacy flat artifact layout into the session
// hierarchy.
//
// The conversion is two-phase: Plan scans the legacy root read-only and
// describes what would happen; Execute performs it, file by file, after
// taking a full recursive backup of the legacy root. Execute is
// idempotent for a given plan — already-registered outputs are skipped,
// never duplicated — and each artifact is its own atomic unit, so an
// interrupted run can simply be re-run. Sources are copied, never moved;
// removal of the legacy files is a separate, explicit cleanup step.
package migrate

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/outpost-cli/outpost/internal/config"
	"github.com/outpost-cli/outpost/internal/errdefs"
	"github.com/outpost-cli/outpost/internal/identity"
	"github.com/outpost-cli/outpost/internal/session"
)

const (
	// MigrationTag marks the synthetic session hosting migrated
	// artifacts and keys its deterministic name.
	MigrationTag = "legacy-import"
	// placeholderTicket is the low-signal context of a migration unit.
	placeholderTicket = "LEGACY-IMPORT"
	// ReportFile is the human-readable report written into the
	// synthetic session's report category after an execute.
	ReportFile = "report/migration-report.md"
)

// timeNow is a package-level variable for testability.
var timeNow = time.Now

// Item is one planned artifact migration.
type Item struct {
	SourcePath string           `json:"source_path" yaml:"source_path"` // relative to the legacy root
	DestPath   string           `json:"dest_path" yaml:"dest_path"`     // relative to the session directory
	Category   session.Category `json:"category" yaml:"category"`
	Timestamp  string           `json:"timestamp,omitempty" yaml:"timestamp,omitempty"` // RFC3339, original creation time
	Topic      string           `json:"topic,omitempty" yaml:"topic,omitempty"`
	Agent      string           `json:"agent,omitempty" yaml:"agent,omitempty"`
	Unparsed   bool             `json:"unparsed" yaml:"unparsed"`
}

// Plan describes a migration without performing it.
type Plan struct {
	ID         string         `json:"id" yaml:"id"`
	LegacyRoot string         `json:"legacy_root" yaml:"legacy_root"`
	Actor      identity.Actor `json:"actor" yaml:"actor"`
	SessionKey string         `json:"session_key" yaml:"session_key"`
	Items      []Item         `json:"items" yaml:"items"`
}

// Result summarizes an executed migration.
type Result struct {
	PlanID     string
	SessionKey string
	Migrated   int
	Skipped    int
	Unparsed   int
	BackupPath string
	ReportPath string
}

// Engine performs legacy migrations through the session registry and
// output tracker.
type Engine struct {
	store    *session.FileStore
	registry *session.Registry
	cfg      config.Config
	log      zerolog.Logger
}

// NewEngine creates a migration engine.
func NewEngine(store *session.FileStore, registry *session.Registry, cfg config.Config, log zerolog.Logger) *Engine {
	return &Engine{store: store, registry: registry, cfg: cfg, log: log}
}

// SessionKeyFor returns the deterministic key of the synthetic session
// for an actor: today's date, the fixed migration slug, and a
// disambiguator derived from the actor name and migration tag so dry-run,
// execute and re-runs all name the same session.
func SessionKeyFor(actor identity.Actor) string {
	sum := sha256.Sum256([]byte(actor.Name + ":" + MigrationTag))
	date := timeNow().UTC().Format("2006-01-02")
	return fmt.Sprintf("%s_%s_%s", date, MigrationTag, hex.EncodeToString(sum[:3]))
}

// BuildPlan scans the legacy root and produces a read-only migration
// plan. It never mutates anything. The actor defaults to the ambient
// identity when zero.
func (e *Engine) BuildPlan(legacyRoot string, actor identity.Actor) (*Plan, error) {
	if actor.Name == "" {
		actor = identity.Resolve()
	}

	info, err := os.Stat(legacyRoot)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errdefs.NotFound("legacy root", legacyRoot)
		}
		return nil, fmt.Errorf("reading legacy root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("legacy root %q is not a directory", legacyRoot)
	}

	plan := &Plan{
		ID:         uuid.NewString(),
		LegacyRoot: legacyRoot,
		Actor:      actor,
		SessionKey: SessionKeyFor(actor),
	}

	err = filepath.WalkDir(legacyRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if strings.HasPrefix(d.Name(), ".") && path != legacyRoot {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasPrefix(d.Name(), ".") {
			return nil
		}

		rel, err := filepath.Rel(legacyRoot, path)
		if err != nil {
			return err
		}

		parsed := ParseName(d.Name())
		item := Item{
			SourcePath: filepath.ToSlash(rel),
			Category:   InferCategory(parsed),
			Topic:      parsed.Topic,
			Agent:      parsed.Agent,
			Unparsed:   parsed.Unparsed,
		}
		if parsed.HasTime {
			item.Timestamp = parsed.Timestamp.Format(time.RFC3339)
		}
		item.DestPath = string(item.Category) + "/" + d.Name()
		plan.Items = append(plan.Items, item)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scanning legacy root: %w", err)
	}

	sort.Slice(plan.Items, func(i, j int) bool {
		return plan.Items[i].SourcePath < plan.Items[j].SourcePath
	})
	return plan, nil
}

// Backup copies the legacy root recursively next to itself, stamped with
// the current time, and returns the backup path.
func (e *Engine) Backup(legacyRoot string) (string, error) {
	stamp := timeNow().UTC().Format("20060102-150405")
	dst := strings.TrimRight(legacyRoot, string(filepath.Separator)) + ".backup-" + stamp

	err := filepath.WalkDir(legacyRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(legacyRoot, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)
		if d.IsDir() {
			return os.MkdirAll(target, 0o755)
		}
		return copyFile(path, target)
	})
	if err != nil {
		return "", fmt.Errorf("backing up legacy root: %w", err)
	}

	e.log.Info().Str("backup", dst).Msg("legacy root backed up")
	return dst, nil
}

// Execute performs the plan: backup, synthesize (or reuse) the migration
// session, then copy and register each artifact. Re-running a plan after
// a successful execute is a no-op for every already-registered output.
func (e *Engine) Execute(plan *Plan) (*Result, error) {
	backup, err := e.Backup(plan.LegacyRoot)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errdefs.ErrBackupRequired, err)
	}

	s, err := e.ensureSession(plan)
	if err != nil {
		return nil, err
	}

	result := &Result{
		PlanID:     plan.ID,
		SessionKey: s.Key,
		BackupPath: backup,
	}

	sessionDir := e.store.Dir(s.Actor.Name, s.Key)
	for _, item := range plan.Items {
		// Idempotence gate: an output registered under this path was
		// already migrated, possibly by an interrupted earlier run.
		current, err := e.registry.Get(s.Key)
		if err != nil {
			return result, err
		}
		if current.Output(item.DestPath) != nil {
			result.Skipped++
			e.log.Debug().Str("source", item.SourcePath).Msg("already migrated, skipping")
			continue
		}

		src := filepath.Join(plan.LegacyRoot, filepath.FromSlash(item.SourcePath))
		dst := filepath.Join(sessionDir, filepath.FromSlash(item.DestPath))
		if err := copyFile(src, dst); err != nil {
			return result, fmt.Errorf("copying %s: %w", item.SourcePath, err)
		}

		createdAt := item.Timestamp
		if createdAt == "" {
			if info, err := os.Stat(src); err == nil {
				createdAt = info.ModTime().UTC().Format(time.RFC3339)
			}
		}

		if _, err := e.registry.Register(s.Key, session.RegisterParams{
			Path:            item.DestPath,
			Agent:           agentOr(item.Agent),
			Category:        item.Category,
			CreatedAt:       createdAt,
			UnparsedContext: item.Unparsed,
		}); err != nil {
			return result, fmt.Errorf("registering %s: %w", item.DestPath, err)
		}

		result.Migrated++
		if item.Unparsed {
			result.Unparsed++
		}
		e.log.Info().Str("source", item.SourcePath).Str("dest", item.DestPath).Msg("artifact migrated")
	}

	reportPath, err := e.writeReport(sessionDir, plan, result)
	if err != nil {
		return result, err
	}
	result.ReportPath = reportPath
	return result, nil
}

// RemoveLegacy deletes the migrated source files from the legacy root.
// This is the explicit cleanup step; it refuses to touch files whose
// migrated output is not registered in the session.
func (e *Engine) RemoveLegacy(plan *Plan) (int, error) {
	s, err := e.registry.Get(plan.SessionKey)
	if err != nil {
		return 0, err
	}

	removed := 0
	for _, item := range plan.Items {
		if s.Output(item.DestPath) == nil {
			continue
		}
		src := filepath.Join(plan.LegacyRoot, filepath.FromSlash(item.SourcePath))
		if err := os.Remove(src); err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return removed, fmt.Errorf("removing %s: %w", item.SourcePath, err)
		}
		removed++
	}
	return removed, nil
}

// ensureSession reuses the synthetic migration session if it exists,
// otherwise creates it with the deterministic key and the configured
// temporary retention.
func (e *Engine) ensureSession(plan *Plan) (*session.Session, error) {
	exists, err := e.store.Exists(plan.SessionKey)
	if err != nil {
		return nil, err
	}
	if exists {
		return e.registry.Get(plan.SessionKey)
	}

	now := timeNow().UTC()
	s := &session.Session{
		SchemaVersion: session.SchemaVersion,
		Key:           plan.SessionKey,
		Actor:         plan.Actor,
		Context: session.WorkContext{
			Ticket:  placeholderTicket,
			Project: MigrationTag,
		},
		Status: session.StatusActive,
		Retention: session.RetentionInfo{
			Policy:    session.PolicyTemporary,
			ExpiresAt: now.Add(e.cfg.Retention.Temporary).Format(time.RFC3339),
		},
		Tags:      []string{MigrationTag},
		Outputs:   []session.OutputRecord{},
		CreatedAt: now.Format(time.RFC3339),
		UpdatedAt: now.Format(time.RFC3339),
		Extra:     map[string]any{"migration_plan": plan.ID},
	}
	if err := e.store.Create(s); err != nil {
		return nil, fmt.Errorf("creating migration session: %w", err)
	}
	return s, nil
}

// reportHeader is the YAML frontmatter of the migration report.
type reportHeader struct {
	PlanID     string `yaml:"plan_id"`
	SessionKey string `yaml:"session_key"`
	ExecutedAt string `yaml:"executed_at"`
	Migrated   int    `yaml:"migrated"`
	Skipped    int    `yaml:"skipped"`
	Unparsed   int    `yaml:"unparsed"`
}

// writeReport renders the human-readable migration report into the
// synthetic session directory.
func (e *Engine) writeReport(sessionDir string, plan *Plan, result *Result) (string, error) {
	header, err := yaml.Marshal(reportHeader{
		PlanID:     plan.ID,
		SessionKey: result.SessionKey,
		ExecutedAt: timeNow().UTC().Format(time.RFC3339),
		Migrated:   result.Migrated,
		Skipped:    result.Skipped,
		Unparsed:   result.Unparsed,
	})
	if err != nil {
		return "", fmt.Errorf("marshaling report header: %w", err)
	}

	var b strings.Builder
	b.WriteString("---\n")
	b.Write(header)
	b.WriteString("---\n\n")
	b.WriteString("# Legacy migration report\n\n")
	fmt.Fprintf(&b, "Migrated %d artifact(s) from %s, skipped %d already-migrated.\n",
		result.Migrated, plan.LegacyRoot, result.Skipped)

	var unparsed []Item
	for _, item := range plan.Items {
		if item.Unparsed {
			unparsed = append(unparsed, item)
		}
	}
	if len(unparsed) > 0 {
		b.WriteString("\n## Items with unparsed filename context\n\n")
		b.WriteString("These were migrated anyway and flagged `unparsed_context` in their records.\n\n")
		for _, item := range unparsed {
			fmt.Fprintf(&b, "- %s\n", item.SourcePath)
		}
	}

	path := filepath.Join(sessionDir, filepath.FromSlash(ReportFile))
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return "", fmt.Errorf("writing migration report: %w", err)
	}
	return path, nil
}

func agentOr(agent string) string {
	if agent == "" {
		return "unknown-agent"
	}
	return agent
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
