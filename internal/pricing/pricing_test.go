package pricing

import (
	"errors"
	"testing"
)

var sample = Tiers{
	{MinQty: 50, PriceCents: 80000},
	{MinQty: 100, PriceCents: 65000},
	{MinQty: 200, PriceCents: 50000},
}

func TestPriceFor_Breakpoints(t *testing.T) {
	cases := []struct {
		qty  int
		want int64
	}{
		{1, 80000},
		{49, 80000},
		{50, 80000},
		{99, 80000},
		{100, 65000},
		{199, 65000},
		{200, 50000},
		{10000, 50000},
	}
	for _, c := range cases {
		if got := PriceFor(sample, c.qty); got != c.want {
			t.Fatalf("PriceFor(%d) = %d, want %d", c.qty, got, c.want)
		}
	}
}

func TestPriceFor_NonIncreasing(t *testing.T) {
	prev := PriceFor(sample, 0)
	for q := 1; q <= 400; q++ {
		p := PriceFor(sample, q)
		if p > prev {
			t.Fatalf("price rose at qty %d: %d > %d", q, p, prev)
		}
		prev = p
	}
}

func TestPriceFor_Empty(t *testing.T) {
	if got := PriceFor(nil, 10); got != 0 {
		t.Fatalf("expected 0 for empty tiers, got %d", got)
	}
}

func TestValidate(t *testing.T) {
	if err := sample.Validate(); err != nil {
		t.Fatalf("sample should validate: %v", err)
	}
	bad := []Tiers{
		nil,
		{{MinQty: 10, PriceCents: 100}, {MinQty: 10, PriceCents: 90}},
		{{MinQty: 10, PriceCents: 100}, {MinQty: 20, PriceCents: 110}},
		{{MinQty: -1, PriceCents: 100}},
	}
	for i, ts := range bad {
		if err := ts.Validate(); !errors.Is(err, ErrInvalidTiers) {
			t.Fatalf("case %d: expected ErrInvalidTiers, got %v", i, err)
		}
	}
}

func TestSortedAndSavings(t *testing.T) {
	shuffled := Tiers{sample[2], sample[0], sample[1]}
	got := shuffled.Sorted()
	for i := range sample {
		if got[i] != sample[i] {
			t.Fatalf("sorted mismatch at %d: %+v", i, got[i])
		}
	}
	if shuffled[0] != sample[2] {
		t.Fatalf("Sorted must not reorder the receiver")
	}
	if pct := SavingsPercent(sample); pct != 37 {
		t.Fatalf("savings = %d, want 37", pct)
	}
	if LineTotal(sample, 100) != 6500000 {
		t.Fatalf("line total mismatch")
	}
}
