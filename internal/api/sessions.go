package api

import (
	"time"

	"github.com/maypok86/otter/v2"

	"example.com/reconcile/internal/resolve"
)

// SessionStore keeps pending import sessions in memory with a TTL.
// A session that is never applied ages out instead of leaking; an
// applied session is invalidated eagerly.
type SessionStore struct {
	cache *otter.Cache[string, *resolve.Session]
}

// NewSessionStore builds a bounded TTL store.
func NewSessionStore(maxSessions int, ttl time.Duration) *SessionStore {
	cache := otter.Must(&otter.Options[string, *resolve.Session]{
		MaximumSize:      maxSessions,
		ExpiryCalculator: otter.ExpiryWriting[string, *resolve.Session](ttl),
	})
	return &SessionStore{cache: cache}
}

// Put stores a session under its ID.
func (s *SessionStore) Put(session *resolve.Session) {
	s.cache.Set(session.ID, session)
}

// Get returns the session if it has not expired.
func (s *SessionStore) Get(id string) (*resolve.Session, bool) {
	return s.cache.GetIfPresent(id)
}

// Delete drops a session, typically right after apply.
func (s *SessionStore) Delete(id string) {
	s.cache.Invalidate(id)
}
