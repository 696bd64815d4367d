package catalog

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

type entry struct {
	mu sync.RWMutex
	p  Product
}

// MemoryStore keeps products in process. Each product has its own lock; the map
// lock only guards membership. Multi-product operations lock entries in id order.
type MemoryStore struct {
	mu    sync.RWMutex
	items map[string]*entry
	now   func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{items: make(map[string]*entry), now: time.Now}
}

func (s *MemoryStore) lookup(id string) (*entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.items[id]
	return e, ok
}

// snapshot returns all entries ordered by id.
func (s *MemoryStore) snapshot() []*entry {
	s.mu.RLock()
	ids := make([]string, 0, len(s.items))
	for id := range s.items {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	out := make([]*entry, 0, len(ids))
	for _, id := range ids {
		out = append(out, s.items[id])
	}
	s.mu.RUnlock()
	return out
}

func (s *MemoryStore) Get(ctx context.Context, id string) (Product, error) {
	e, ok := s.lookup(id)
	if !ok {
		return Product{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.p.clone(), nil
}

// Query holds read locks on every product while matching, so the result is a
// consistent cut with respect to Apply.
func (s *MemoryStore) Query(ctx context.Context, f Filter) ([]Product, error) {
	return s.collect(func(p Product) bool { return f.Matches(p) }), nil
}

func (s *MemoryStore) LowStock(ctx context.Context, threshold int) ([]Product, error) {
	return s.collect(func(p Product) bool { return p.Stock > 0 && p.Stock <= threshold }), nil
}

func (s *MemoryStore) collect(keep func(Product) bool) []Product {
	entries := s.snapshot()
	for _, e := range entries {
		e.mu.RLock()
	}
	var out []Product
	for _, e := range entries {
		if keep(e.p) {
			out = append(out, e.p.clone())
		}
	}
	for _, e := range entries {
		e.mu.RUnlock()
	}
	sortProducts(out)
	return out
}

func (s *MemoryStore) AdjustStock(ctx context.Context, productID string, delta int) (int, error) {
	levels, err := s.Apply(ctx, []Adjustment{{ProductID: productID, Delta: delta}})
	if err != nil {
		return 0, err
	}
	if q, ok := levels[productID]; ok {
		return q, nil
	}
	p, err := s.Get(ctx, productID)
	return p.Stock, err
}

// Apply validates every adjustment under the product locks and only then writes,
// so a failure leaves all stock untouched.
func (s *MemoryStore) Apply(ctx context.Context, adjs []Adjustment) (map[string]int, error) {
	adjs = normalize(adjs)
	entries := make([]*entry, len(adjs))
	for i, a := range adjs {
		e, ok := s.lookup(a.ProductID)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, a.ProductID)
		}
		entries[i] = e
	}

	for _, e := range entries {
		e.mu.Lock()
	}
	defer func() {
		for _, e := range entries {
			e.mu.Unlock()
		}
	}()

	for i, a := range adjs {
		if cur := entries[i].p.Stock; cur+a.Delta < 0 {
			return nil, &InsufficientStockError{ProductID: a.ProductID, Requested: -a.Delta, Available: cur}
		}
	}
	now := s.now()
	levels := make(map[string]int, len(adjs))
	for i, a := range adjs {
		entries[i].p.Stock += a.Delta
		entries[i].p.UpdatedAt = now
		levels[a.ProductID] = entries[i].p.Stock
	}
	return levels, nil
}

func (s *MemoryStore) Upsert(ctx context.Context, p Product) error {
	if err := prepare(&p); err != nil {
		return err
	}
	now := s.now()

	s.mu.Lock()
	e, ok := s.items[p.ID]
	if !ok {
		p.CreatedAt, p.UpdatedAt = now, now
		s.items[p.ID] = &entry{p: p}
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()

	e.mu.Lock()
	defer e.mu.Unlock()
	p.CreatedAt, p.UpdatedAt = e.p.CreatedAt, now
	e.p = p
	return nil
}

var _ Store = (*MemoryStore)(nil)
