// Package oauthstate binds OAuth authorization round-trips to the seller that started them.
package oauthstate

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultTTL is how long a consent round-trip may take.
const DefaultTTL = 10 * time.Minute

// Store holds single-use state tokens.
type Store interface {
	// Put binds state to sellerID until ttl elapses.
	Put(ctx context.Context, state string, sellerID uuid.UUID, ttl time.Duration) error
	// TakeOnce removes state and returns its seller if it was present and unexpired.
	TakeOnce(ctx context.Context, state string) (uuid.UUID, bool, error)
	// Purge drops expired entries and returns how many were removed.
	Purge(ctx context.Context) (int, error)
}

type entry struct {
	sellerID  uuid.UUID
	expiresAt time.Time
}

// MemoryStore is a process-local Store. Only valid for single-instance deployments.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]entry
	now     func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]entry), now: time.Now}
}

func (s *MemoryStore) Put(_ context.Context, state string, sellerID uuid.UUID, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[state] = entry{sellerID: sellerID, expiresAt: s.now().Add(ttl)}
	return nil
}

func (s *MemoryStore) TakeOnce(_ context.Context, state string) (uuid.UUID, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[state]
	if !ok {
		return uuid.Nil, false, nil
	}
	delete(s.entries, state)

	if !s.now().Before(e.expiresAt) {
		return uuid.Nil, false, nil
	}
	return e.sellerID, true, nil
}

func (s *MemoryStore) Purge(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	n := 0
	for k, e := range s.entries {
		if !now.Before(e.expiresAt) {
			delete(s.entries, k)
			n++
		}
	}
	return n, nil
}

func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}
