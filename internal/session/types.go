// Package session implements the session data model, key generation,
// lifecycle state machine, metadata store, registry and output tracker.
//
// A session is the unit of work isolation: one directory per session under
// the owning actor, holding a session.json record (single source of truth)
// and one subdirectory per output category. Records are never destroyed,
// only archived.
//
// The package is split by concern: types, keys, state machine, store,
// registry, output tracking.
package session

import (
	"fmt"
	"time"

	"github.com/outpost-cli/outpost/internal/errdefs"
	"github.com/outpost-cli/outpost/internal/identity"
)

// SchemaVersion is the current record schema. Older records with a fixed
// required-field core remain readable; unknown future attributes ride in
// the Extra map.
const SchemaVersion = 1

// --- Lifecycle status enum ---

// Status tracks the lifecycle of a session.
type Status string

const (
	StatusActive   Status = "active"
	StatusClosed   Status = "closed"
	StatusArchived Status = "archived"
)

// validStatuses is the set of allowed lifecycle states.
var validStatuses = map[Status]bool{
	StatusActive:   true,
	StatusClosed:   true,
	StatusArchived: true,
}

// --- Retention policy enum ---

// Policy names a retention rule that computes a session's expiry date.
type Policy string

const (
	PolicyProject   Policy = "project"
	PolicySprint    Policy = "sprint"
	PolicyTemporary Policy = "temporary"
)

// validPolicies is the set of allowed retention policies.
var validPolicies = map[Policy]bool{
	PolicyProject:   true,
	PolicySprint:    true,
	PolicyTemporary: true,
}

// ValidatePolicy returns an error if the policy is not recognized.
func ValidatePolicy(p Policy) error {
	if !validPolicies[p] {
		return fmt.Errorf("invalid retention policy %q: must be one of: project, sprint, temporary", p)
	}
	return nil
}

// --- Output category enum ---

// Category classifies an output artifact. The set is closed; each category
// maps to a subdirectory inside the session.
type Category string

const (
	CategoryArchitecture Category = "architecture"
	CategoryAnalysis     Category = "analysis"
	CategoryReview       Category = "review"
	CategoryReport       Category = "report"
	CategoryArtifact     Category = "artifact"
)

// Categories lists all output categories in subdirectory-creation order.
var Categories = []Category{
	CategoryArchitecture,
	CategoryAnalysis,
	CategoryReview,
	CategoryReport,
	CategoryArtifact,
}

var validCategories = map[Category]bool{
	CategoryArchitecture: true,
	CategoryAnalysis:     true,
	CategoryReview:       true,
	CategoryReport:       true,
	CategoryArtifact:     true,
}

// ValidateCategory returns an error if the category is not recognized.
func ValidateCategory(c Category) error {
	if !validCategories[c] {
		return fmt.Errorf("invalid output category %q: must be one of: architecture, analysis, review, report, artifact", c)
	}
	return nil
}

// --- Core data structures ---

// WorkContext identifies what a session is for: the source-control ref,
// ticket and project, plus optional planning coordinates.
type WorkContext struct {
	Branch  string `json:"branch,omitempty"`
	Ticket  string `json:"ticket"`
	Project string `json:"project"`
	Sprint  string `json:"sprint,omitempty"`
	Epic    string `json:"epic,omitempty"`
	Release string `json:"release,omitempty"`
}

// RetentionInfo pairs the named policy with its computed expiry date.
type RetentionInfo struct {
	Policy    Policy `json:"policy"`
	ExpiresAt string `json:"expires_at"` // RFC3339
}

// OutputRecord is one entry in a session's output registry. The path is
// unique within the session and relative to the session directory.
type OutputRecord struct {
	Path            string   `json:"path"`
	Agent           string   `json:"agent"`
	Category        Category `json:"category"`
	CreatedAt       string   `json:"created_at"` // RFC3339
	Promoted        bool     `json:"promoted"`
	PromotionTarget string   `json:"promotion_target,omitempty"`
	UnparsedContext bool     `json:"unparsed_context,omitempty"`
}

// Session is the root record, persisted as session.json. One file per
// session; the record is the single source of truth for the session's
// state, context and output registry.
type Session struct {
	SchemaVersion int            `json:"schema_version"`
	Key           string         `json:"key"`
	Actor         identity.Actor `json:"actor"`
	Context       WorkContext    `json:"context"`
	Status        Status         `json:"status"`
	Retention     RetentionInfo  `json:"retention"`
	Tags          []string       `json:"tags,omitempty"`
	Stakeholders  []string       `json:"stakeholders,omitempty"`
	Links         []string       `json:"links,omitempty"`
	Outputs       []OutputRecord `json:"outputs"`
	CreatedAt     string         `json:"created_at"` // RFC3339
	UpdatedAt     string         `json:"updated_at"` // RFC3339
	ClosedAt      string         `json:"closed_at,omitempty"`
	ArchivedAt    string         `json:"archived_at,omitempty"`

	// Extra carries attributes added after this schema version was
	// frozen, so older records stay valid without migration.
	Extra map[string]any `json:"extra,omitempty"`
}

// Validate checks the fixed required-field core of the schema. A record
// failing validation must never be persisted.
func (s *Session) Validate() error {
	switch {
	case s.Key == "":
		return errdefs.SchemaViolation("key")
	case s.Actor.Name == "":
		return errdefs.SchemaViolation("actor.name")
	case s.Context.Ticket == "":
		return errdefs.SchemaViolation("context.ticket")
	case s.Context.Project == "":
		return errdefs.SchemaViolation("context.project")
	case s.CreatedAt == "":
		return errdefs.SchemaViolation("created_at")
	case s.Retention.ExpiresAt == "":
		return errdefs.SchemaViolation("retention.expires_at")
	}
	if !validStatuses[s.Status] {
		return errdefs.SchemaViolation("status")
	}
	if !validPolicies[s.Retention.Policy] {
		return errdefs.SchemaViolation("retention.policy")
	}

	seen := make(map[string]bool, len(s.Outputs))
	for _, out := range s.Outputs {
		if out.Path == "" {
			return errdefs.SchemaViolation("outputs.path")
		}
		if seen[out.Path] {
			return fmt.Errorf("%w: duplicate output path %q", errdefs.ErrSchemaViolation, out.Path)
		}
		seen[out.Path] = true
		if !validCategories[out.Category] {
			return errdefs.SchemaViolation("outputs.category")
		}
	}
	return nil
}

// Output returns the output record for the given relative path, or nil.
func (s *Session) Output(path string) *OutputRecord {
	for i := range s.Outputs {
		if s.Outputs[i].Path == path {
			return &s.Outputs[i]
		}
	}
	return nil
}

// ExpiresWithin reports whether the session's retention expiry falls
// inside the next d. Unparseable expiry dates report false.
func (s *Session) ExpiresWithin(d time.Duration) bool {
	exp, err := time.Parse(time.RFC3339, s.Retention.ExpiresAt)
	if err != nil {
		return false
	}
	return exp.Before(timeNow().UTC().Add(d))
}
