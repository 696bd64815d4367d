package catalog

import (
	"context"
	"sort"
)

// Store is the product registry. Stock mutations are atomic per product;
// Apply commits a multi-product set as one step or not at all.
type Store interface {
	Get(ctx context.Context, id string) (Product, error)
	Query(ctx context.Context, f Filter) ([]Product, error)
	AdjustStock(ctx context.Context, productID string, delta int) (int, error)
	Apply(ctx context.Context, adjs []Adjustment) (map[string]int, error)
	Upsert(ctx context.Context, p Product) error
	LowStock(ctx context.Context, threshold int) ([]Product, error)
}

// normalize merges duplicate product ids, drops zero deltas and orders by id
// so callers always lock in the same sequence.
func normalize(adjs []Adjustment) []Adjustment {
	sum := map[string]int{}
	for _, a := range adjs {
		sum[a.ProductID] += a.Delta
	}
	out := make([]Adjustment, 0, len(sum))
	for id, d := range sum {
		if d != 0 {
			out = append(out, Adjustment{ProductID: id, Delta: d})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ProductID < out[j].ProductID })
	return out
}

// sortProducts orders by stock descending, then id.
func sortProducts(ps []Product) {
	sort.Slice(ps, func(i, j int) bool {
		if ps[i].Stock != ps[j].Stock {
			return ps[i].Stock > ps[j].Stock
		}
		return ps[i].ID < ps[j].ID
	})
}
