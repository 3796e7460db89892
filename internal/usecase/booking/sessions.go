package booking

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	domain "github.com/Ekka-Barber/Bookings-sub000/internal/domain/booking"
	"github.com/Ekka-Barber/Bookings-sub000/internal/httperr"
)

// Session is one customer's wizard together with its notification feed.
type Session struct {
	ID     string
	Wizard *Wizard
	Events *Broadcaster

	lastSeen time.Time
}

// DraftStorageFactory returns the storage a session keeps its draft in.
type DraftStorageFactory func(sessionID string) domain.DraftStorage

// Registry owns the live sessions of the process.
type Registry struct {
	cfg     Config
	deps    Deps
	drafts  DraftStorageFactory
	idleTTL time.Duration

	mu       sync.Mutex
	sessions map[string]*Session
}

func NewRegistry(cfg Config, deps Deps, drafts DraftStorageFactory, idleTTL time.Duration) *Registry {
	return &Registry{
		cfg:      cfg,
		deps:     deps,
		drafts:   drafts,
		idleTTL:  idleTTL,
		sessions: map[string]*Session{},
	}
}

// Create starts a session with a fresh id.
func (r *Registry) Create(ctx context.Context) (*Session, error) {
	return r.open(ctx, uuid.NewString())
}

// Get returns the live session for id. A session unknown to this process
// (after a restart or eviction) is rebuilt from its stored draft.
func (r *Registry) Get(ctx context.Context, id string) (*Session, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, httperr.NotFound("session_not_found", "Booking session not found.")
	}

	r.mu.Lock()
	if s, ok := r.sessions[id]; ok {
		s.lastSeen = r.deps.Clock.Now()
		r.mu.Unlock()
		return s, nil
	}
	r.mu.Unlock()

	return r.open(ctx, id)
}

func (r *Registry) open(ctx context.Context, id string) (*Session, error) {
	events := NewBroadcaster()
	s := &Session{
		ID:       id,
		Wizard:   NewWizard(id, r.cfg, r.deps, r.drafts(id), events),
		Events:   events,
		lastSeen: r.deps.Clock.Now(),
	}

	if err := s.Wizard.Restore(ctx); err != nil {
		// the draft is kept with its error set; the customer can retry
		r.deps.Log.Warn("session restored with error", zap.String("session_id", id), zap.Error(err))
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.sessions[id]; ok {
		// lost a race with a concurrent open of the same id
		s.close()
		existing.lastSeen = r.deps.Clock.Now()
		return existing, nil
	}
	r.sessions[id] = s
	r.deps.Log.Info("session opened", zap.String("session_id", id))
	return s, nil
}

// Touch marks a live session as active. It reports false when the session
// is no longer held by the registry.
func (r *Registry) Touch(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[id]
	if ok {
		s.lastSeen = r.deps.Clock.Now()
	}
	return ok
}

// Remove closes the session immediately.
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	s, ok := r.sessions[id]
	delete(r.sessions, id)
	r.mu.Unlock()

	if ok {
		s.close()
	}
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Sweep evicts sessions idle for longer than the idle TTL. Their drafts
// stay in storage.
func (r *Registry) Sweep() int {
	cutoff := r.deps.Clock.Now().Add(-r.idleTTL)

	r.mu.Lock()
	var idle []*Session
	for id, s := range r.sessions {
		if s.lastSeen.Before(cutoff) {
			idle = append(idle, s)
			delete(r.sessions, id)
		}
	}
	r.mu.Unlock()

	for _, s := range idle {
		s.close()
	}
	if len(idle) > 0 {
		r.deps.Log.Info("idle sessions evicted", zap.Int("count", len(idle)))
	}
	return len(idle)
}

// Run sweeps on every tick until ctx is done, then closes every session.
func (r *Registry) Run(ctx context.Context, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.closeAll()
			return
		case <-ticker.C:
			r.Sweep()
		}
	}
}

func (r *Registry) closeAll() {
	r.mu.Lock()
	all := r.sessions
	r.sessions = map[string]*Session{}
	r.mu.Unlock()

	for _, s := range all {
		s.close()
	}
}

func (s *Session) close() {
	s.Wizard.Close()
	s.Events.Close()
}
