package session

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/outpost-cli/outpost/internal/config"
	"github.com/outpost-cli/outpost/internal/errdefs"
	"github.com/outpost-cli/outpost/internal/identity"
)

// Indexer receives every record the registry persists so an auxiliary
// query index can stay current. Index maintenance is best-effort: a sync
// failure is logged, never surfaced, because the record files remain the
// source of truth and the index can be rebuilt from them.
type Indexer interface {
	Sync(s *Session) error
}

// Registry creates, looks up, updates, closes and archives sessions.
type Registry struct {
	store   Store
	cfg     config.Config
	indexer Indexer
	log     zerolog.Logger
}

// NewRegistry creates a session registry over the given store.
func NewRegistry(store Store, cfg config.Config, log zerolog.Logger) *Registry {
	return &Registry{store: store, cfg: cfg, log: log}
}

// SetIndexer attaches an auxiliary index kept in sync on every write.
func (r *Registry) SetIndexer(ix Indexer) { r.indexer = ix }

// CreateParams holds input for creating a new session.
type CreateParams struct {
	// Actor owning the session. Zero value resolves the ambient identity.
	Actor        identity.Actor
	Context      WorkContext
	Policy       Policy
	Tags         []string
	Stakeholders []string
	Links        []string
}

// Create generates a unique key, writes the initial active record and
// establishes the session's category subdirectories. On key collision it
// regenerates with a fresh disambiguator, up to the configured retry
// limit.
func (r *Registry) Create(p CreateParams) (*Session, error) {
	if p.Actor.Name == "" {
		p.Actor = identity.Resolve()
	}
	if p.Context.Ticket == "" {
		return nil, fmt.Errorf("%w: missing field \"ticket\"", errdefs.ErrSchemaViolation)
	}
	if p.Context.Project == "" {
		return nil, fmt.Errorf("%w: missing field \"project\"", errdefs.ErrSchemaViolation)
	}
	if p.Policy == "" {
		p.Policy = PolicyProject
	}
	if err := ValidatePolicy(p.Policy); err != nil {
		return nil, err
	}

	window, err := r.cfg.Retention.Window(string(p.Policy))
	if err != nil {
		return nil, err
	}

	now := timeNow().UTC()
	s := &Session{
		SchemaVersion: SchemaVersion,
		Actor:         p.Actor,
		Context:       p.Context,
		Status:        StatusActive,
		Retention: RetentionInfo{
			Policy:    p.Policy,
			ExpiresAt: now.Add(window).Format(time.RFC3339),
		},
		Tags:         p.Tags,
		Stakeholders: p.Stakeholders,
		Links:        p.Links,
		Outputs:      []OutputRecord{},
		CreatedAt:    now.Format(time.RFC3339),
		UpdatedAt:    now.Format(time.RFC3339),
	}

	retries := r.cfg.KeyRetryLimit
	if retries <= 0 {
		retries = 5
	}

	slug := p.Context.Ticket
	for attempt := 0; attempt < retries; attempt++ {
		key, err := GenerateKey(slug)
		if err != nil {
			return nil, err
		}
		s.Key = key

		err = r.store.Create(s)
		if err == nil {
			r.sync(s)
			return s, nil
		}
		if errors.Is(err, os.ErrExist) {
			r.log.Debug().Str("key", key).Int("attempt", attempt+1).
				Msg("session key collision, regenerating")
			continue
		}
		return nil, err
	}

	return nil, fmt.Errorf("%w: %d attempts for slug %q", errdefs.ErrKeyGenerationExhausted, retries, Slug(slug))
}

// Get loads a session by key.
func (r *Registry) Get(key string) (*Session, error) {
	return r.store.Read(key)
}

// Use sets the current-session pointer after validating that the session
// exists and is active.
func (r *Registry) Use(key string) error {
	s, err := r.store.Read(key)
	if err != nil {
		return err
	}
	if s.Status != StatusActive {
		return errdefs.InvalidTransition(key, string(s.Status), "use")
	}
	return r.store.WritePointer(&Pointer{
		SessionKey: s.Key,
		Actor:      s.Actor.Name,
		SetAt:      timeNow().UTC().Format(time.RFC3339),
	})
}

// Current resolves the current-session pointer. Returns (nil, nil) when no
// pointer is set.
func (r *Registry) Current() (*Session, error) {
	p, err := r.store.ReadPointer()
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, nil
	}
	return r.store.Read(p.SessionKey)
}

// Close transitions a session active -> closed.
func (r *Registry) Close(key string) (*Session, error) {
	return r.transition(key, Close)
}

// Archive transitions a session closed -> archived.
func (r *Registry) Archive(key string) (*Session, error) {
	return r.transition(key, Archive)
}

func (r *Registry) transition(key string, move func(*Session) error) (*Session, error) {
	s, err := r.store.Read(key)
	if err != nil {
		return nil, err
	}
	if err := move(s); err != nil {
		return nil, err
	}
	if err := r.store.Write(s); err != nil {
		return nil, err
	}
	r.sync(s)
	return s, nil
}

func (r *Registry) sync(s *Session) {
	if r.indexer == nil {
		return
	}
	if err := r.indexer.Sync(s); err != nil {
		r.log.Warn().Err(err).Str("key", s.Key).Msg("index sync failed; rebuild with 'outpost index --rebuild'")
	}
}
