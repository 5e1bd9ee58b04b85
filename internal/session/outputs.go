package session

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/outpost-cli/outpost/internal/errdefs"
)

// RegisterParams holds input for registering an output inside a session.
type RegisterParams struct {
	Path     string
	Agent    string
	Category Category

	// CreatedAt overrides the registration timestamp (RFC3339). The
	// migration engine uses this to preserve original creation times.
	CreatedAt string
	// UnparsedContext marks outputs whose legacy filename metadata could
	// not be fully parsed.
	UnparsedContext bool
}

// Register appends an output record to a session's registry. The session
// must be active. Registering an identical (path, agent, category) twice
// is an idempotent no-op; the same path with differing agent or category
// is a conflict.
func (r *Registry) Register(key string, p RegisterParams) (*OutputRecord, error) {
	if err := ValidateCategory(p.Category); err != nil {
		return nil, err
	}
	path, err := cleanOutputPath(p.Path)
	if err != nil {
		return nil, err
	}
	if p.Agent == "" {
		return nil, fmt.Errorf("%w: missing field \"agent\"", errdefs.ErrSchemaViolation)
	}

	s, err := r.store.Read(key)
	if err != nil {
		return nil, err
	}
	if err := CanAccept(s); err != nil {
		return nil, err
	}

	if existing := s.Output(path); existing != nil {
		if existing.Agent == p.Agent && existing.Category == p.Category {
			return existing, nil
		}
		return nil, fmt.Errorf("%w: output %q already registered in session %q as %s/%s",
			errdefs.ErrConflictingRegistration, path, key, existing.Agent, existing.Category)
	}

	createdAt := p.CreatedAt
	if createdAt == "" {
		createdAt = timeNow().UTC().Format(time.RFC3339)
	}

	s.Outputs = append(s.Outputs, OutputRecord{
		Path:            path,
		Agent:           p.Agent,
		Category:        p.Category,
		CreatedAt:       createdAt,
		UnparsedContext: p.UnparsedContext,
	})

	if err := r.store.Write(s); err != nil {
		return nil, err
	}
	r.sync(s)
	return s.Output(path), nil
}

// MarkPromoted records on the owning session that an output has been
// published to the given sink. Archived sessions are immutable, so their
// outputs cannot be promoted.
func (r *Registry) MarkPromoted(key, path, sink string) error {
	s, err := r.store.Read(key)
	if err != nil {
		return err
	}
	if err := CanPromote(s); err != nil {
		return err
	}
	out := s.Output(path)
	if out == nil {
		return errdefs.NotFound("output", key+"/"+path)
	}
	out.Promoted = true
	out.PromotionTarget = sink
	if err := r.store.Write(s); err != nil {
		return err
	}
	r.sync(s)
	return nil
}

// cleanOutputPath normalizes a session-relative output path and rejects
// paths that escape the session directory.
func cleanOutputPath(path string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("%w: missing field \"path\"", errdefs.ErrSchemaViolation)
	}
	cleaned := filepath.ToSlash(filepath.Clean(path))
	if filepath.IsAbs(cleaned) || strings.HasPrefix(cleaned, "../") || cleaned == ".." || cleaned == "." {
		return "", fmt.Errorf("%w: output path %q must be relative to the session directory",
			errdefs.ErrSchemaViolation, path)
	}
	return cleaned, nil
}
