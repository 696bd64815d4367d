// Package dedup drops redelivered inbound messages and replays the reply
// produced the first time.
package dedup

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ariefcatur/go-chat-orders/internal/redisx"
)

// Guard remembers message ids. Claim returns true only for the first delivery.
type Guard interface {
	Claim(ctx context.Context, messageID string) (bool, error)
	// Release forgets a claim whose message was not processed, so a
	// redelivery is routed again.
	Release(ctx context.Context, messageID string) error
	SaveReply(ctx context.Context, messageID string, body []byte) error
	// Reply returns the stored reply, if any, for a claimed message.
	Reply(ctx context.Context, messageID string) ([]byte, bool, error)
}

type entry struct {
	reply     []byte
	expiresAt time.Time
}

// Memory is a single-process Guard for development and tests.
type Memory struct {
	mu       sync.Mutex
	seen     map[string]*entry
	ttl      time.Duration
	replyTTL time.Duration
	now      func() time.Time
}

func NewMemory() *Memory {
	return &Memory{
		seen:     make(map[string]*entry),
		ttl:      redisx.TTLDedup,
		replyTTL: redisx.TTLReply,
		now:      time.Now,
	}
}

func (m *Memory) WithClock(now func() time.Time) *Memory {
	m.now = now
	return m
}

func (m *Memory) Claim(_ context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	if e, ok := m.seen[id]; ok && now.Before(e.expiresAt) {
		return false, nil
	}
	m.seen[id] = &entry{expiresAt: now.Add(m.ttl)}
	return true, nil
}

func (m *Memory) Release(_ context.Context, id string) error {
	m.mu.Lock()
	delete(m.seen, id)
	m.mu.Unlock()
	return nil
}

func (m *Memory) SaveReply(_ context.Context, id string, body []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.seen[id]
	if !ok {
		return nil
	}
	e.reply = append([]byte(nil), body...)
	return nil
}

func (m *Memory) Reply(_ context.Context, id string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.seen[id]
	if !ok || e.reply == nil || m.now().After(e.expiresAt) {
		return nil, false, nil
	}
	return append([]byte(nil), e.reply...), true, nil
}

// Sweep drops expired ids.
func (m *Memory) Sweep() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	n := 0
	for id, e := range m.seen {
		if !now.Before(e.expiresAt) {
			delete(m.seen, id)
			n++
		}
	}
	return n
}

// Redis shares the seen set between API replicas and workers.
type Redis struct {
	RDB *redis.Client
}

func (r *Redis) Claim(ctx context.Context, id string) (bool, error) {
	ok, err := redisx.Claim(ctx, r.RDB, id)
	if err != nil {
		return false, fmt.Errorf("claim message %s: %w", id, err)
	}
	return ok, nil
}

func (r *Redis) Release(ctx context.Context, id string) error {
	return r.RDB.Del(ctx, fmt.Sprintf(redisx.KeyMessageDedup, id), fmt.Sprintf(redisx.KeyReply, id)).Err()
}

func (r *Redis) SaveReply(ctx context.Context, id string, body []byte) error {
	return r.RDB.Set(ctx, fmt.Sprintf(redisx.KeyReply, id), body, redisx.TTLReply).Err()
}

func (r *Redis) Reply(ctx context.Context, id string) ([]byte, bool, error) {
	b, err := r.RDB.Get(ctx, fmt.Sprintf(redisx.KeyReply, id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return b, true, nil
}

var (
	_ Guard = (*Memory)(nil)
	_ Guard = (*Redis)(nil)
)
