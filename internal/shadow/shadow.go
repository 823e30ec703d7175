package shadow

import (
	"sync"

	"github.com/hipstersmoothie/social-app/internal/chat"
)

// Patch is a locally pending profile edit the server has not confirmed yet.
// Nil fields leave the server value alone.
type Patch struct {
	Blocking *bool
	Muted    *bool
}

func (p Patch) apply(base chat.Profile) chat.Profile {
	if p.Blocking != nil {
		base.Viewer.Blocking = *p.Blocking
	}
	if p.Muted != nil {
		base.Viewer.Muted = *p.Muted
	}

	return base
}

// Store keeps pending profile edits keyed by DID, so views can show a block
// or mute as applied before the server round-trip finishes.
type Store struct {
	mu      sync.RWMutex
	patches map[string]Patch
}

func NewStore() *Store {
	return &Store{patches: make(map[string]Patch)}
}

func (s *Store) SetBlocking(did string, blocking bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.patches[did]
	p.Blocking = &blocking
	s.patches[did] = p
}

func (s *Store) SetMuted(did string, muted bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.patches[did]
	p.Muted = &muted
	s.patches[did] = p
}

// Clear drops the pending patch for did, typically once the server confirmed
// the edit and fresh profile data replaced it.
func (s *Store) Clear(did string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.patches, did)
}

// Overlay primes a lookup with the given profiles and returns a getter that
// resolves each primed DID to its patched profile. The getter reads a private
// snapshot, so later Set calls do not leak into an aggregation in progress.
// DIDs outside the primed set resolve to a zero profile.
func (s *Store) Overlay(base []chat.Profile) func(did string) chat.Profile {
	s.mu.RLock()
	primed := make(map[string]chat.Profile, len(base))
	for _, p := range base {
		if patch, ok := s.patches[p.DID]; ok {
			p = patch.apply(p)
		}
		primed[p.DID] = p
	}
	s.mu.RUnlock()

	return func(did string) chat.Profile {
		return primed[did]
	}
}
