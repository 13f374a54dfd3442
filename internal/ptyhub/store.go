package ptyhub

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// Store is the concurrent session-id → session map plus admission control
// and process-wide metrics.
type Store struct {
	mu       sync.RWMutex
	sessions map[uuid.UUID]*Session

	Metrics Metrics
}

// NewStore returns an empty session store.
func NewStore() *Store {
	return &Store{sessions: make(map[uuid.UUID]*Session)}
}

// Len returns the number of live sessions, used for admission control.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// CheckAdmission returns an error if creating one more session would exceed
// MaxConcurrentSessions.
func (s *Store) CheckAdmission() error {
	if s.Len() >= MaxConcurrentSessions {
		return fmt.Errorf("too many sessions: limit of %d reached", MaxConcurrentSessions)
	}
	return nil
}

// insert adds sess to the store and bumps metrics. Called only by the
// orchestrator once a spawn has fully succeeded.
func (s *Store) insert(sess *Session) {
	s.mu.Lock()
	s.sessions[sess.ID] = sess
	s.mu.Unlock()
	s.Metrics.TotalSpawned.Add(1)
	s.Metrics.ActiveSessions.Add(1)
}

// remove deletes id from the store, closing every WS subscriber channel
// still hanging off the session. Safe to call more than once; only the
// first call decrements ActiveSessions.
func (s *Store) remove(id uuid.UUID) {
	s.mu.Lock()
	sess, ok := s.sessions[id]
	if ok {
		delete(s.sessions, id)
	}
	s.mu.Unlock()
	if !ok {
		return
	}

	sess.mu.Lock()
	for _, ch := range sess.wsClients {
		close(ch)
	}
	sess.wsClients = nil
	sess.mu.Unlock()

	s.Metrics.ActiveSessions.Add(-1)
}

// Get returns the session for id, if live.
func (s *Store) Get(id uuid.UUID) (*Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[id]
	return sess, ok
}

// List returns a snapshot of all live session ids.
func (s *Store) List() []uuid.UUID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]uuid.UUID, 0, len(s.sessions))
	for id := range s.sessions {
		out = append(out, id)
	}
	return out
}
