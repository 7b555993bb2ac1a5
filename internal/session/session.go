// Package session holds the identity the client is logged in as.
package session

import (
	"errors"
	"sync"
)

// ErrAlreadySet is returned when an identity is already established.
var ErrAlreadySet = errors.New("session identity already set")

// State is empty at startup and set once, on a successful login reply.
type State struct {
	mu   sync.RWMutex
	user string
}

func New() *State {
	return &State{}
}

// CurrentUser returns the logged-in identity and whether one is set.
func (s *State) CurrentUser() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user, s.user != ""
}

// SetCurrentUser records the identity. Setting the same name again is a
// no-op; a different name fails with ErrAlreadySet.
func (s *State) SetCurrentUser(name string) error {
	if name == "" {
		return errors.New("empty session identity")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.user != "" && s.user != name {
		return ErrAlreadySet
	}
	s.user = name
	return nil
}
