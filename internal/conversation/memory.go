package conversation

import (
	"context"
	"sync"
	"time"
)

type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]Context
	ttl     time.Duration
	now     func() time.Time
}

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &MemoryStore{entries: make(map[string]Context), ttl: ttl, now: time.Now}
}

// WithClock replaces the time source; used by tests.
func (s *MemoryStore) WithClock(now func() time.Time) *MemoryStore {
	s.now = now
	return s
}

func (s *MemoryStore) Load(_ context.Context, userID string) (Context, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(userID), nil
}

func (s *MemoryStore) load(userID string) Context {
	c, ok := s.entries[userID]
	if !ok || c.Expired(s.now()) {
		delete(s.entries, userID)
		return Context{UserID: userID}
	}
	return c
}

func (s *MemoryStore) Update(_ context.Context, userID string, p Patch) (Context, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.load(userID).Apply(p, s.now(), s.ttl)
	s.entries[userID] = c
	return c, nil
}

func (s *MemoryStore) Clear(_ context.Context, userID string) error {
	s.mu.Lock()
	delete(s.entries, userID)
	s.mu.Unlock()
	return nil
}

// Sweep drops expired entries and returns how many were removed.
func (s *MemoryStore) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	now, n := s.now(), 0
	for id, c := range s.entries {
		if c.Expired(now) {
			delete(s.entries, id)
			n++
		}
	}
	return n
}

var _ Store = (*MemoryStore)(nil)
