// Package idempotency remembers which deliveries have already been counted
// so a retried success report cannot consume quota twice.
package idempotency

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultTTL is how long a claim is remembered.
const DefaultTTL = 24 * time.Hour

// Store records delivery IDs.
type Store interface {
	// Claim records id and reports whether this call was the first to do so.
	Claim(ctx context.Context, id uuid.UUID) (bool, error)

	// Release forgets id so a later Claim can succeed again. Used when the
	// work guarded by a claim did not commit.
	Release(ctx context.Context, id uuid.UUID) error
}

// MemoryStore is an in-process Store for the CLI and tests.
type MemoryStore struct {
	mu     sync.Mutex
	ttl    time.Duration
	claims map[uuid.UUID]time.Time
	now    func() time.Time
}

// NewMemoryStore returns a MemoryStore whose claims expire after ttl.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &MemoryStore{
		ttl:    ttl,
		claims: make(map[uuid.UUID]time.Time),
		now:    time.Now,
	}
}

func (s *MemoryStore) Claim(ctx context.Context, id uuid.UUID) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.evict(now)

	if _, ok := s.claims[id]; ok {
		return false, nil
	}
	s.claims[id] = now.Add(s.ttl)
	return true, nil
}

func (s *MemoryStore) Release(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.claims, id)
	return nil
}

// evict drops expired claims. Callers hold s.mu.
func (s *MemoryStore) evict(now time.Time) {
	for id, exp := range s.claims {
		if !now.Before(exp) {
			delete(s.claims, id)
		}
	}
}
