package auth

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Session is a server-side portal session.
type Session struct {
	ID              string
	MemberID        string
	AuthenticatedAt time.Time
	// RestoredAt is set when the session was rebuilt from the mr_auth cookie.
	RestoredAt time.Time
	ExpiresAt  time.Time
}

// Restored reports whether the session came from the restore cookie.
func (s *Session) Restored() bool { return !s.RestoredAt.IsZero() }

// SessionStore holds sessions keyed by the id in the mr_sid cookie.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	ttl      time.Duration
	now      func() time.Time
}

// NewSessionStore creates an empty store whose sessions live for ttl.
func NewSessionStore(ttl time.Duration) *SessionStore {
	if ttl <= 0 {
		ttl = DefaultCookieTTL
	}
	return &SessionStore{sessions: make(map[string]*Session), ttl: ttl, now: time.Now}
}

// Create starts a session for memberID. restored marks a cookie restore.
func (s *SessionStore) Create(memberID string, restored bool) *Session {
	now := s.now()
	sess := &Session{
		ID:              uuid.NewString(),
		MemberID:        memberID,
		AuthenticatedAt: now,
		ExpiresAt:       now.Add(s.ttl),
	}
	if restored {
		sess.RestoredAt = now
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sess.ID] = sess
	return sess
}

// Get retrieves a session by ID. Returns false if not found or expired.
func (s *SessionStore) Get(id string) (*Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, false
	}
	if s.now().After(sess.ExpiresAt) {
		return nil, false
	}
	return sess, true
}

// Delete removes a session by ID.
func (s *SessionStore) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
}

// Len returns the number of live and expired sessions held.
func (s *SessionStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Cleanup removes expired sessions.
func (s *SessionStore) Cleanup() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	n := 0
	for k, sess := range s.sessions {
		if now.After(sess.ExpiresAt) {
			delete(s.sessions, k)
			n++
		}
	}
	return n
}
