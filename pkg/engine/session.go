package engine

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/seclens/alertgraph/pkg/store"
)

// Session wraps a shared entity store for interactive expand-node flows.
// The store's own mutex gives single-writer-at-a-time discipline; the
// session only adds identity and idle expiry.
type Session struct {
	ID       string
	Store    *store.EntityStore
	lastUsed time.Time
}

// SessionRegistry tracks shared sessions by id and expires idle ones.
type SessionRegistry struct {
	mu       sync.Mutex
	sessions map[string]*Session
	ttl      time.Duration
	now      func() time.Time
}

// DefaultSessionTTL is how long an idle session survives.
const DefaultSessionTTL = 30 * time.Minute

// NewSessionRegistry creates a registry with the given idle TTL.
func NewSessionRegistry(ttl time.Duration) *SessionRegistry {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &SessionRegistry{
		sessions: make(map[string]*Session),
		ttl:      ttl,
		now:      time.Now,
	}
}

// Create starts a new session with an empty store.
func (r *SessionRegistry) Create() *Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.sweepLocked()
	session := &Session{
		ID:       uuid.NewString(),
		Store:    store.NewEntityStore(),
		lastUsed: r.now(),
	}
	r.sessions[session.ID] = session
	return session
}

// Get returns the session with the given id, refreshing its idle timer, or
// nil if the session does not exist or has expired.
func (r *SessionRegistry) Get(id string) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.sweepLocked()
	session, ok := r.sessions[id]
	if !ok {
		return nil
	}
	session.lastUsed = r.now()
	return session
}

// Len returns the number of live sessions.
func (r *SessionRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sweepLocked()
	return len(r.sessions)
}

func (r *SessionRegistry) sweepLocked() {
	cutoff := r.now().Add(-r.ttl)
	for id, session := range r.sessions {
		if session.lastUsed.Before(cutoff) {
			delete(r.sessions, id)
		}
	}
}
