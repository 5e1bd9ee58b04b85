// Package promote records the publication of session outputs to an
// external sink.
//
// A promotion copies the artifact into a shared, actor-independent
// namespace under the store root, keyed by the opaque sink identifier
// (e.g. "{space}/{page}"), and writes a promotion record next to it. For
// a given (session, output, sink) tuple the revision counter only goes
// up: promoting again increments the revision instead of creating a
// second record, and requires an explicit force flag so nothing is
// silently overwritten. The system never talks to the sink itself;
// publication there is external.
package promote

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/outpost-cli/outpost/internal/errdefs"
	"github.com/outpost-cli/outpost/internal/session"
)

// DirName is the shared promotion namespace under the store root.
const DirName = ".promoted"

// timeNow is a package-level variable for testability.
var timeNow = time.Now

// Record is the durable promotion record stored alongside the promoted
// artifact copy.
type Record struct {
	SessionKey string   `json:"session_key"`
	OutputPath string   `json:"output_path"`
	Sink       string   `json:"sink"`
	Revision   int      `json:"revision"`
	PromotedAt string   `json:"promoted_at"` // RFC3339
	Notify     []string `json:"notify,omitempty"`
}

// Tracker performs promotions against a file store and keeps the owning
// session's output registry in step.
type Tracker struct {
	store    *session.FileStore
	registry *session.Registry
	log      zerolog.Logger
}

// NewTracker creates a promotion tracker.
func NewTracker(store *session.FileStore, registry *session.Registry, log zerolog.Logger) *Tracker {
	return &Tracker{store: store, registry: registry, log: log}
}

// Params holds input for a promotion.
type Params struct {
	SessionKey string
	OutputPath string
	Sink       string
	Notify     []string

	// Force acknowledges an existing promotion for the same tuple and
	// bumps its revision. Without it, re-promoting fails so the caller
	// is warned before updating a published artifact.
	Force bool
}

// Promote publishes one session output into the shared namespace.
func (t *Tracker) Promote(p Params) (*Record, error) {
	sink, err := cleanSink(p.Sink)
	if err != nil {
		return nil, err
	}

	s, err := t.registry.Get(p.SessionKey)
	if err != nil {
		return nil, err
	}
	if err := session.CanPromote(s); err != nil {
		return nil, err
	}
	out := s.Output(p.OutputPath)
	if out == nil {
		return nil, errdefs.NotFound("output", p.SessionKey+"/"+p.OutputPath)
	}

	recPath := t.recordPath(sink, s.Key, out.Path)
	prior, err := readRecord(recPath)
	if err != nil {
		return nil, err
	}
	if prior != nil && !p.Force {
		return nil, fmt.Errorf("%w: %s/%s already promoted to %q at revision %d (pass force to update)",
			errdefs.ErrPromotionExists, s.Key, out.Path, sink, prior.Revision)
	}

	rec := &Record{
		SessionKey: s.Key,
		OutputPath: out.Path,
		Sink:       sink,
		Revision:   1,
		PromotedAt: timeNow().UTC().Format(time.RFC3339),
		Notify:     p.Notify,
	}
	if prior != nil {
		rec.Revision = prior.Revision + 1
	}

	src := filepath.Join(t.store.Dir(s.Actor.Name, s.Key), filepath.FromSlash(out.Path))
	dst := t.artifactPath(sink, s.Key, out.Path)
	if err := copyFile(src, dst); err != nil {
		return nil, fmt.Errorf("copying artifact to shared namespace: %w", err)
	}

	if err := writeRecord(recPath, rec); err != nil {
		return nil, err
	}

	if err := t.registry.MarkPromoted(s.Key, out.Path, sink); err != nil {
		return nil, err
	}

	t.log.Info().Str("key", s.Key).Str("output", out.Path).Str("sink", sink).
		Int("revision", rec.Revision).Msg("output promoted")
	return rec, nil
}

// Get loads the promotion record for a tuple, or NotFound.
func (t *Tracker) Get(sessionKey, outputPath, sink string) (*Record, error) {
	cleaned, err := cleanSink(sink)
	if err != nil {
		return nil, err
	}
	rec, err := readRecord(t.recordPath(cleaned, sessionKey, outputPath))
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, errdefs.NotFound("promotion", sessionKey+"/"+outputPath+" -> "+cleaned)
	}
	return rec, nil
}

// sinkDir returns the shared directory for one sink identifier.
func (t *Tracker) sinkDir(sink string) string {
	return filepath.Join(t.store.Root(), DirName, filepath.FromSlash(sink))
}

func (t *Tracker) artifactPath(sink, key, outputPath string) string {
	return filepath.Join(t.sinkDir(sink), key+"__"+flatten(outputPath))
}

func (t *Tracker) recordPath(sink, key, outputPath string) string {
	return t.artifactPath(sink, key, outputPath) + ".promotion.json"
}

// flatten turns a session-relative output path into a single filename.
func flatten(path string) string {
	return strings.ReplaceAll(path, "/", "__")
}

// cleanSink validates the opaque sink identifier. Sinks map to
// directories, so they must stay inside the promotion namespace.
func cleanSink(sink string) (string, error) {
	if sink == "" {
		return "", fmt.Errorf("%w: missing field \"sink\"", errdefs.ErrSchemaViolation)
	}
	cleaned := strings.Trim(filepath.ToSlash(filepath.Clean(sink)), "/")
	if cleaned == "." || cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", fmt.Errorf("%w: sink %q escapes the promotion namespace", errdefs.ErrSchemaViolation, sink)
	}
	return cleaned, nil
}

func readRecord(path string) (*Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading promotion record: %w", err)
	}
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("parsing promotion record %s: %w", path, err)
	}
	return &rec, nil
}

func writeRecord(path string, rec *Record) error {
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling promotion record: %w", err)
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".promotion.tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp promotion record: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("writing temp promotion record: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing temp promotion record: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("renaming promotion record into place: %w", err)
	}
	return nil
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
