package guard

import (
	"context"
	"sync"
	"time"

	"portfolio-server/internal/interfaces"
)

var _ interfaces.GuardStore = (*MemoryStore)(nil)

type counter struct {
	n         int64
	expiresAt time.Time
}

// MemoryStore is a process-local GuardStore for tests and single-instance
// development setups. Expired entries are dropped lazily.
type MemoryStore struct {
	mu       sync.Mutex
	now      func() time.Time
	failures map[string]counter
	bans     map[string]time.Time
}

// NewMemoryStore returns an empty store. A nil clock means time.Now.
func NewMemoryStore(now func() time.Time) *MemoryStore {
	if now == nil {
		now = time.Now
	}
	return &MemoryStore{
		now:      now,
		failures: make(map[string]counter),
		bans:     make(map[string]time.Time),
	}
}

func (s *MemoryStore) IncrementFailures(_ context.Context, clientKey string, window time.Duration) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	c, ok := s.failures[clientKey]
	if !ok || !now.Before(c.expiresAt) {
		c = counter{expiresAt: now.Add(window)}
	}
	c.n++
	s.failures[clientKey] = c
	return c.n, nil
}

func (s *MemoryStore) SetBan(_ context.Context, clientKey string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bans[clientKey] = s.now().Add(ttl)
	return nil
}

func (s *MemoryStore) IsBanned(_ context.Context, clientKey string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	until, ok := s.bans[clientKey]
	if !ok {
		return false, nil
	}
	if !s.now().Before(until) {
		delete(s.bans, clientKey)
		return false, nil
	}
	return true, nil
}

func (s *MemoryStore) ResetFailures(_ context.Context, clientKey string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.failures, clientKey)
	return nil
}

// Failures returns the live failure count for clientKey.
func (s *MemoryStore) Failures(clientKey string) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.failures[clientKey]
	if !ok || !s.now().Before(c.expiresAt) {
		return 0
	}
	return c.n
}
