// Package query answers predicate-based searches across all session
// records.
//
// The engine's contract is a full scan of the metadata store with
// in-memory filtering; that is fine at the scale of hundreds to low
// thousands of sessions. When an auxiliary key lookup (the SQLite index)
// is attached it is used to narrow which records get loaded, but every
// predicate is still re-checked against the loaded record — the record
// files are the source of truth, the index is only an accelerator.
package query

import (
	"sort"
	"strings"
	"time"

	"github.com/gobwas/glob"
	"github.com/rs/zerolog"

	"github.com/outpost-cli/outpost/internal/session"
)

// Filter is a conjunction of search predicates. Zero-valued fields are
// inactive. Ticket, Tag and Agent accept glob patterns ("AUTH-*").
type Filter struct {
	Actor   string
	Ticket  string
	Project string
	Tag     string
	Agent   string
	Status  session.Status

	// ExpiringWithin, when positive, matches sessions whose retention
	// expiry falls inside the window from now.
	ExpiringWithin time.Duration
}

// IsZero reports whether no predicate is active.
func (f Filter) IsZero() bool {
	return f == Filter{}
}

// Match reports whether a session satisfies every active predicate.
func (f Filter) Match(s *session.Session) bool {
	if f.Actor != "" && s.Actor.Name != f.Actor {
		return false
	}
	if f.Ticket != "" && !matchPattern(f.Ticket, s.Context.Ticket) {
		return false
	}
	if f.Project != "" && s.Context.Project != f.Project {
		return false
	}
	if f.Status != "" && s.Status != f.Status {
		return false
	}
	if f.Tag != "" && !matchAny(f.Tag, s.Tags) {
		return false
	}
	if f.Agent != "" {
		found := false
		for _, out := range s.Outputs {
			if matchPattern(f.Agent, out.Agent) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if f.ExpiringWithin > 0 && !s.ExpiresWithin(f.ExpiringWithin) {
		return false
	}
	return true
}

// KeyLookup narrows a search to candidate session keys. A lookup error is
// not fatal; the engine falls back to the full scan.
type KeyLookup interface {
	Candidates(f Filter) ([]string, error)
}

// Engine runs searches against a session store.
type Engine struct {
	store  session.Store
	lookup KeyLookup
	log    zerolog.Logger
}

// NewEngine creates a query engine over the given store.
func NewEngine(store session.Store, log zerolog.Logger) *Engine {
	return &Engine{store: store, log: log}
}

// SetLookup attaches an auxiliary key lookup used as a fast path.
func (e *Engine) SetLookup(l KeyLookup) { e.lookup = l }

// Search returns the sessions matching every predicate in f, most recent
// first.
func (e *Engine) Search(f Filter) ([]*session.Session, error) {
	if e.lookup != nil && !f.IsZero() {
		keys, err := e.lookup.Candidates(f)
		if err == nil {
			return e.loadAndFilter(keys, f)
		}
		e.log.Debug().Err(err).Msg("index lookup failed, falling back to full scan")
	}

	all, err := e.store.ListAll()
	if err != nil {
		return nil, err
	}
	var result []*session.Session
	for _, s := range all {
		if f.Match(s) {
			result = append(result, s)
		}
	}
	return result, nil
}

func (e *Engine) loadAndFilter(keys []string, f Filter) ([]*session.Session, error) {
	var result []*session.Session
	for _, key := range keys {
		s, err := e.store.Read(key)
		if err != nil {
			// Stale index entry; the record is gone or unreadable.
			e.log.Debug().Err(err).Str("key", key).Msg("skipping stale index candidate")
			continue
		}
		if f.Match(s) {
			result = append(result, s)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Key > result[j].Key
	})
	return result, nil
}

// matchPattern matches value against pattern, treating pattern as a glob
// when it carries glob metacharacters and as an exact string otherwise.
func matchPattern(pattern, value string) bool {
	if !strings.ContainsAny(pattern, "*?[{") {
		return pattern == value
	}
	g, err := glob.Compile(pattern)
	if err != nil {
		return pattern == value
	}
	return g.Match(value)
}

func matchAny(pattern string, values []string) bool {
	for _, v := range values {
		if matchPattern(pattern, v) {
			return true
		}
	}
	return false
}
