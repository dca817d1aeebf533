package importer

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pcrowther/gridfill/internal/schema"
)

// SessionTTL is how long an idle session survives before the sweeper
// closes it.
var SessionTTL = 30 * time.Minute

// sweepInterval is how often the registry checks for expired sessions.
var sweepInterval = 5 * time.Minute

// Registry tracks live import sessions by ID. The ID doubles as the
// "still current session" token: once a session is closed and removed,
// requests carrying its ID are rejected instead of touching a buffer that
// no longer corresponds to them.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	ttl      time.Duration
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		sessions: make(map[string]*Session),
		ttl:      SessionTTL,
	}
}

// Open creates a session for the given table and registers it.
func (r *Registry) Open(t schema.Table) *Session {
	s := NewSession(uuid.NewString(), t)
	r.mu.Lock()
	r.sessions[s.ID] = s
	r.mu.Unlock()
	return s
}

// Get returns the session with the given ID, or a session error when it is
// unknown or already closed.
func (r *Registry) Get(id string) (*Session, error) {
	r.mu.RLock()
	s, ok := r.sessions[id]
	r.mu.RUnlock()
	if !ok || s.isClosed() {
		return nil, newError(KindSession, "session %s not found or expired", id)
	}
	return s, nil
}

// Close closes the session and removes it from the registry.
func (r *Registry) Close(id string) error {
	r.mu.Lock()
	s, ok := r.sessions[id]
	if ok {
		delete(r.sessions, id)
	}
	r.mu.Unlock()
	if !ok {
		return newError(KindSession, "session %s not found or expired", id)
	}
	s.Close()
	return nil
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// StartSweeper closes idle sessions in the background until ctx is done.
func (r *Registry) StartSweeper(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(sweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				r.sweep(time.Now())
			}
		}
	}()
}

// sweep closes every session idle longer than the TTL.
func (r *Registry) sweep(now time.Time) {
	r.mu.Lock()
	var expired []*Session
	for id, s := range r.sessions {
		if now.Sub(s.IdleSince()) > r.ttl {
			expired = append(expired, s)
			delete(r.sessions, id)
		}
	}
	r.mu.Unlock()

	for _, s := range expired {
		s.Close()
	}
}
