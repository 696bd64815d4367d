package catalog

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/ariefcatur/go-chat-orders/internal/pricing"
)

var testTiers = pricing.Tiers{{MinQty: 50, PriceCents: 800_00}, {MinQty: 100, PriceCents: 650_00}, {MinQty: 200, PriceCents: 500_00}}

func newTestStore(t *testing.T, ps ...Product) *MemoryStore {
	t.Helper()
	s := NewMemoryStore()
	for _, p := range ps {
		if p.Tiers == nil {
			p.Tiers = testTiers
		}
		if err := s.Upsert(context.Background(), p); err != nil {
			t.Fatalf("upsert %s: %v", p.ID, err)
		}
	}
	return s
}

func TestQuery_PluralAndAccentFormsMatchSameSet(t *testing.T) {
	s := newTestStore(t,
		Product{ID: "p1", Type: "pantalón", Color: "azul", Size: "M", Stock: 10},
		Product{ID: "p2", Type: "pantalón", Color: "negro", Size: "L", Stock: 30},
		Product{ID: "c1", Type: "camiseta", Color: "azul", Size: "M", Stock: 20},
	)
	ctx := context.Background()
	var sets [][]Product
	for _, q := range []string{"pantalón", "pantalones", "Pantalon"} {
		got, err := s.Query(ctx, Filter{Type: q})
		if err != nil {
			t.Fatalf("query %q: %v", q, err)
		}
		sets = append(sets, got)
	}
	for i, set := range sets {
		if len(set) != 2 || set[0].ID != "p2" || set[1].ID != "p1" {
			t.Fatalf("set %d = %+v, want [p2 p1] by stock desc", i, set)
		}
	}

	got, _ := s.Query(ctx, Filter{Color: "azules", Size: "m"})
	if len(got) != 2 {
		t.Fatalf("blue M = %d products, want 2", len(got))
	}
}

func TestApply_RollsBackOnShortfall(t *testing.T) {
	s := newTestStore(t,
		Product{ID: "a", Type: "camiseta", Stock: 100},
		Product{ID: "b", Type: "camiseta", Stock: 5},
	)
	ctx := context.Background()
	_, err := s.Apply(ctx, []Adjustment{{ProductID: "a", Delta: -60}, {ProductID: "b", Delta: -10}})
	var ise *InsufficientStockError
	if !errors.As(err, &ise) || ise.ProductID != "b" || ise.Available != 5 || ise.Requested != 10 {
		t.Fatalf("err = %v, want shortfall on b", err)
	}
	if !errors.Is(err, ErrInsufficientStock) {
		t.Fatalf("err should match ErrInsufficientStock")
	}
	if p, _ := s.Get(ctx, "a"); p.Stock != 100 {
		t.Fatalf("a stock = %d, want untouched 100", p.Stock)
	}
}

func TestApply_MergesDuplicatesAndUnknownProduct(t *testing.T) {
	s := newTestStore(t, Product{ID: "a", Type: "camiseta", Stock: 10})
	ctx := context.Background()
	levels, err := s.Apply(ctx, []Adjustment{{ProductID: "a", Delta: -4}, {ProductID: "a", Delta: -4}})
	if err != nil || levels["a"] != 2 {
		t.Fatalf("levels = %v err = %v", levels, err)
	}
	if _, err := s.Apply(ctx, []Adjustment{{ProductID: "zzz", Delta: 1}}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestAdjustStock_ConcurrentNeverOversells(t *testing.T) {
	s := newTestStore(t, Product{ID: "a", Type: "camiseta", Stock: 100})
	ctx := context.Background()

	var ok atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.AdjustStock(ctx, "a", -3); err == nil {
				ok.Add(1)
			} else if !errors.Is(err, ErrInsufficientStock) {
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	p, _ := s.Get(ctx, "a")
	if ok.Load() != 33 || p.Stock != 1 {
		t.Fatalf("succeeded = %d stock = %d, want 33 and 1", ok.Load(), p.Stock)
	}
}

func TestQuery_ConsistentDuringTransfers(t *testing.T) {
	s := newTestStore(t,
		Product{ID: "a", Type: "camiseta", Stock: 500},
		Product{ID: "b", Type: "camiseta", Stock: 500},
	)
	ctx := context.Background()
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 200; i++ {
			_, _ = s.Apply(ctx, []Adjustment{{ProductID: "a", Delta: -1}, {ProductID: "b", Delta: 1}})
		}
	}()
	for i := 0; i < 200; i++ {
		ps, _ := s.Query(ctx, Filter{Type: "camiseta"})
		total := 0
		for _, p := range ps {
			total += p.Stock
		}
		if total != 1000 {
			t.Fatalf("observed total %d mid-transfer", total)
		}
	}
	<-done
}

func TestUpsert_ValidatesAndDefaults(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	if err := s.Upsert(ctx, Product{ID: "x", Type: "falda", Stock: -1, Tiers: testTiers}); !errors.Is(err, ErrInvalidProduct) {
		t.Fatalf("negative stock err = %v", err)
	}
	bad := pricing.Tiers{{MinQty: 50, PriceCents: 100}, {MinQty: 100, PriceCents: 200}}
	if err := s.Upsert(ctx, Product{ID: "x", Type: "falda", Tiers: bad}); !errors.Is(err, ErrInvalidProduct) {
		t.Fatalf("rising tiers err = %v", err)
	}
	if err := s.Upsert(ctx, Product{ID: "x", Type: "falda", Tiers: testTiers}); err != nil {
		t.Fatal(err)
	}
	p, _ := s.Get(ctx, "x")
	if p.Category != DefaultCategory || p.Name != "falda" {
		t.Fatalf("defaults not applied: %+v", p)
	}
}

func TestLowStock(t *testing.T) {
	s := newTestStore(t,
		Product{ID: "a", Type: "camiseta", Stock: 0},
		Product{ID: "b", Type: "camiseta", Stock: 3},
		Product{ID: "c", Type: "camiseta", Stock: 11},
	)
	got, _ := s.LowStock(context.Background(), 10)
	if len(got) != 1 || got[0].ID != "b" {
		t.Fatalf("low stock = %+v", got)
	}
}

func TestParseSeed(t *testing.T) {
	ps, err := ParseSeed([]byte(`
products:
  - id: tee-red-m
    name: Camiseta Dry-Fit
    type: camiseta
    color: rojo
    size: M
    stock: 120
    price_tiers:
      - {min_qty: 50, price_cents: 80000}
      - {min_qty: 100, price_cents: 65000}
`))
	if err != nil {
		t.Fatal(err)
	}
	if len(ps) != 1 || ps[0].Stock != 120 || len(ps[0].Tiers) != 2 || ps[0].Tiers[1].PriceCents != 65000 {
		t.Fatalf("seed = %+v", ps)
	}
	s := NewMemoryStore()
	if err := Seed(context.Background(), s, ps); err != nil {
		t.Fatal(err)
	}
}
