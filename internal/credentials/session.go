package credentials

import (
	"context"
	"sync"
)

// Session holds the credential view owned by the running host process.
// It is authoritative for the current session but may go stale when
// another tool refreshes the file.
type Session struct {
	mu   sync.RWMutex
	cred *Credential
}

// NewSession returns a Session seeded with cred, which may be nil.
func NewSession(cred *Credential) *Session {
	return &Session{cred: cred.Clone()}
}

// CurrentCredential returns a copy of the session credential, or nil.
func (s *Session) CurrentCredential(_ context.Context) (*Credential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cred.Clone(), nil
}

// Set replaces the session credential.
func (s *Session) Set(cred *Credential) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cred = cred.Clone()
}

// Clear drops the session credential.
func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cred = nil
}
