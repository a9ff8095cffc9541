// Package session tracks who is signed in for the current request.
package session

import (
	"sync"

	"cardami/internal/models"
)

// State is the identity as last reported by the identity provider.
// Resolved stays false until the provider's first notification.
type State struct {
	Identity *models.Identity `json:"identity"`
	Resolved bool             `json:"authResolved"`
}

// Authenticated reports a resolved, signed-in state.
func (s State) Authenticated() bool {
	return s.Resolved && s.Identity != nil
}

// UserID returns the signed-in user's id or "".
func (s State) UserID() string {
	if s.Identity == nil {
		return ""
	}
	return s.Identity.UID
}

// Source delivers identity change notifications. The returned func cancels
// the subscription.
type Source interface {
	Subscribe(onChange func(*models.Identity)) (unsubscribe func())
}

// Store holds State and is the only writer of it.
type Store struct {
	mu     sync.RWMutex
	state  State
	cancel func()
	bound  bool
	closed bool
}

// NewStore returns an unresolved store.
func NewStore() *Store {
	return &Store{}
}

// Bind subscribes to src. Only the first call subscribes; later calls are
// ignored so one store never listens to two providers.
func (s *Store) Bind(src Source) {
	s.mu.Lock()
	if s.bound {
		s.mu.Unlock()
		return
	}
	s.bound = true
	s.mu.Unlock()

	cancel := src.Subscribe(s.set)

	s.mu.Lock()
	s.cancel = cancel
	s.mu.Unlock()
}

func (s *Store) set(id *models.Identity) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	if id != nil {
		cp := *id
		id = &cp
	}
	s.state = State{Identity: id, Resolved: true}
}

// State returns a snapshot.
func (s *Store) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Close drops the subscription. Notifications after Close are ignored.
func (s *Store) Close() {
	s.mu.Lock()
	cancel := s.cancel
	s.cancel = nil
	s.closed = true
	s.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}
