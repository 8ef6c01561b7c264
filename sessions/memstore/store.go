package memstore

import (
	"sync"

	ierrors "github.com/jrsteele09/go-site-auth/internal/errors"
	"github.com/jrsteele09/go-site-auth/sessions"
)

// Store is an in-memory implementation of sessions.Store. Both tiers live in
// process memory, so "durable" here only outlives ClearSessionTier, not the
// process. Intended for tests and local development.
type Store struct {
	mu    sync.RWMutex
	tiers map[sessions.Tier]map[string][]byte
}

var _ sessions.Store = (*Store)(nil)

// New creates a new in-memory tiered store.
func New() *Store {
	return &Store{
		tiers: map[sessions.Tier]map[string][]byte{
			sessions.TierSession: {},
			sessions.TierDurable: {},
		},
	}
}

// Get retrieves a value, returning ierrors.ErrNotFound when absent.
func (s *Store) Get(tier sessions.Tier, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	values, ok := s.tiers[tier]
	if !ok {
		return nil, ierrors.ErrNotFound
	}
	value, ok := values[key]
	if !ok {
		return nil, ierrors.ErrNotFound
	}
	// Copy so callers cannot mutate stored state
	out := make([]byte, len(value))
	copy(out, value)
	return out, nil
}

// Set stores a value in the given tier, creating the tier map if needed.
func (s *Store) Set(tier sessions.Tier, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tiers[tier]; !ok {
		s.tiers[tier] = map[string][]byte{}
	}
	stored := make([]byte, len(value))
	copy(stored, value)
	s.tiers[tier][key] = stored
	return nil
}

// Remove deletes a value. Removing an absent key is not an error.
func (s *Store) Remove(tier sessions.Tier, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if values, ok := s.tiers[tier]; ok {
		delete(values, key)
	}
	return nil
}

// ClearSessionTier drops everything in the session tier, mimicking a client
// going away.
func (s *Store) ClearSessionTier() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tiers[sessions.TierSession] = map[string][]byte{}
}
