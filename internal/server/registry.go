// Package server holds the in-memory session registry that binds live
// connection ids to resolved user identities.
package server

import (
	"sync"
	"sync/atomic"
)

// Session binds a live transport connection to a durable user identity. A
// session exists only between a successful registration and the connection's
// disconnect.
type Session struct {
	ConnID   string
	UserID   int64
	Username string

	disconnecting atomic.Bool
}

// beginDisconnect claims disconnect processing for this session. It returns
// true exactly once; the transport can redeliver disconnects and only the
// first claimant proceeds.
func (s *Session) beginDisconnect() bool {
	return s.disconnecting.CompareAndSwap(false, true)
}

// SessionRegistry is a concurrency-safe map from connection id to Session.
// It is process-local; every connection handler mutates it concurrently.
type SessionRegistry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewSessionRegistry creates an empty registry.
func NewSessionRegistry() *SessionRegistry {
	return &SessionRegistry{sessions: make(map[string]*Session)}
}

// Put inserts or overwrites the session for its connection id.
func (r *SessionRegistry) Put(s *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[s.ConnID] = s
}

// Get looks up the session for a connection id. A missing session is an
// expected outcome, not an error; it marks the connection as unregistered.
func (r *SessionRegistry) Get(connID string) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[connID]
	return s, ok
}

// Remove deletes the session for a connection id if present.
func (r *SessionRegistry) Remove(connID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, connID)
}

// AllExcept returns a snapshot of every session other than the given
// connection id, in arbitrary order.
func (r *SessionRegistry) AllExcept(connID string) []*Session {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Session, 0, len(r.sessions))
	for id, s := range r.sessions {
		if id == connID {
			continue
		}
		out = append(out, s)
	}
	return out
}

// Len returns the number of registered sessions.
func (r *SessionRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
