package orders

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
)

var ErrAlreadyExists = errors.New("order already exists")

// Repository stores orders. Update succeeds only when o.Version matches the
// stored version; the stored version is then incremented.
type Repository interface {
	Insert(ctx context.Context, o Order) error
	Get(ctx context.Context, id string) (Order, error)
	Update(ctx context.Context, o Order) (Order, error)
	LatestForUser(ctx context.Context, userID string) (Order, error)
	// ListForUser returns up to limit orders, newest first.
	ListForUser(ctx context.Context, userID string, limit int) ([]Order, error)
}

type MemoryRepository struct {
	mu     sync.RWMutex
	byID   map[string]Order
	byUser map[string][]string
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{byID: map[string]Order{}, byUser: map[string][]string{}}
}

func (r *MemoryRepository) Insert(_ context.Context, o Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[o.ID]; ok {
		return fmt.Errorf("%w: %s", ErrAlreadyExists, o.ID)
	}
	o.Version = 1
	r.byID[o.ID] = o.clone()
	r.byUser[o.UserID] = append(r.byUser[o.UserID], o.ID)
	return nil
}

func (r *MemoryRepository) Get(_ context.Context, id string) (Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	o, ok := r.byID[id]
	if !ok {
		return Order{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return o.clone(), nil
}

func (r *MemoryRepository) Update(_ context.Context, o Order) (Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.byID[o.ID]
	if !ok {
		return Order{}, fmt.Errorf("%w: %s", ErrNotFound, o.ID)
	}
	if cur.Version != o.Version {
		return Order{}, fmt.Errorf("%w: %s at version %d, have %d", ErrConflict, o.ID, cur.Version, o.Version)
	}
	o.Version++
	r.byID[o.ID] = o.clone()
	return o, nil
}

func (r *MemoryRepository) LatestForUser(_ context.Context, userID string) (Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := r.byUser[userID]
	if len(ids) == 0 {
		return Order{}, fmt.Errorf("%w: no orders for %s", ErrNotFound, userID)
	}
	var latest Order
	for _, id := range ids {
		if o := r.byID[id]; latest.ID == "" || !o.CreatedAt.Before(latest.CreatedAt) {
			latest = o
		}
	}
	return latest.clone(), nil
}

func (r *MemoryRepository) ListForUser(_ context.Context, userID string, limit int) ([]Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := r.byUser[userID]
	out := make([]Order, 0, len(ids))
	for _, id := range ids {
		out = append(out, r.byID[id].clone())
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

var _ Repository = (*MemoryRepository)(nil)
