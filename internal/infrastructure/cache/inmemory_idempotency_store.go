package cache

import (
	"context"
	"sync"
	"time"

	"github.com/pharmabill/backend/internal/domain/shared"
)

const defaultSweepInterval = 5 * time.Minute

// InMemoryIdempotencyStore keeps idempotency keys in process memory.
// Keys are not shared between server instances.
type InMemoryIdempotencyStore struct {
	mu        sync.Mutex
	expiries  map[string]time.Time
	now       func() time.Time
	stop      chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewInMemoryIdempotencyStore creates a store that sweeps expired keys every interval.
// A non-positive interval uses five minutes.
func NewInMemoryIdempotencyStore(interval time.Duration) *InMemoryIdempotencyStore {
	if interval <= 0 {
		interval = defaultSweepInterval
	}
	s := &InMemoryIdempotencyStore{
		expiries: make(map[string]time.Time),
		now:      time.Now,
		stop:     make(chan struct{}),
	}
	s.wg.Add(1)
	go s.sweepLoop(interval)
	return s
}

// MarkProcessed claims key for ttl. It returns false while an unexpired claim exists.
func (s *InMemoryIdempotencyStore) MarkProcessed(_ context.Context, key string, ttl time.Duration) (bool, error) {
	if ttl <= 0 {
		ttl = shared.DefaultIdempotencyTTL
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if exp, ok := s.expiries[key]; ok && now.Before(exp) {
		return false, nil
	}
	s.expiries[key] = now.Add(ttl)
	return true, nil
}

func (s *InMemoryIdempotencyStore) IsProcessed(_ context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	exp, ok := s.expiries[key]
	return ok && s.now().Before(exp), nil
}

// Release drops the claim on key
func (s *InMemoryIdempotencyStore) Release(_ context.Context, key string) error {
	s.mu.Lock()
	delete(s.expiries, key)
	s.mu.Unlock()
	return nil
}

// Close stops the sweeper. Safe to call more than once.
func (s *InMemoryIdempotencyStore) Close() error {
	s.closeOnce.Do(func() {
		close(s.stop)
		s.wg.Wait()
	})
	return nil
}

func (s *InMemoryIdempotencyStore) sweepLoop(interval time.Duration) {
	defer s.wg.Done()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			s.sweep()
		}
	}
}

func (s *InMemoryIdempotencyStore) sweep() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	for key, exp := range s.expiries {
		if !now.Before(exp) {
			delete(s.expiries, key)
		}
	}
}

// Len returns the number of keys held, expired or not
func (s *InMemoryIdempotencyStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.expiries)
}

var _ shared.IdempotencyStore = (*InMemoryIdempotencyStore)(nil)
