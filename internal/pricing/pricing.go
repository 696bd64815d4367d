package pricing

import (
	"errors"
	"fmt"
	"sort"
)

// Tier is a volume breakpoint: MinQty units or more are sold at PriceCents each.
type Tier struct {
	MinQty     int   `json:"min_qty" yaml:"min_qty"`
	PriceCents int64 `json:"price_cents" yaml:"price_cents"`
}

// Tiers is ordered by MinQty ascending.
type Tiers []Tier

var ErrInvalidTiers = errors.New("invalid price tiers")

// Validate checks that breakpoints strictly increase and prices never increase.
func (ts Tiers) Validate() error {
	if len(ts) == 0 {
		return fmt.Errorf("%w: empty", ErrInvalidTiers)
	}
	for i, t := range ts {
		if t.MinQty < 0 || t.PriceCents < 0 {
			return fmt.Errorf("%w: negative value at %d", ErrInvalidTiers, i)
		}
		if i == 0 {
			continue
		}
		prev := ts[i-1]
		if t.MinQty <= prev.MinQty {
			return fmt.Errorf("%w: min_qty %d not above %d", ErrInvalidTiers, t.MinQty, prev.MinQty)
		}
		if t.PriceCents > prev.PriceCents {
			return fmt.Errorf("%w: price rises at min_qty %d", ErrInvalidTiers, t.MinQty)
		}
	}
	return nil
}

// Sorted returns a copy ordered by MinQty.
func (ts Tiers) Sorted() Tiers {
	out := make(Tiers, len(ts))
	copy(out, ts)
	sort.Slice(out, func(i, j int) bool { return out[i].MinQty < out[j].MinQty })
	return out
}

// Base is the lowest breakpoint.
func (ts Tiers) Base() Tier {
	if len(ts) == 0 {
		return Tier{}
	}
	return ts[0]
}

// Best is the highest breakpoint (lowest price).
func (ts Tiers) Best() Tier {
	if len(ts) == 0 {
		return Tier{}
	}
	return ts[len(ts)-1]
}

// PriceFor returns the unit price for qty: the tier with the largest MinQty <= qty,
// or the base tier when qty is under every breakpoint. ts must be sorted.
func PriceFor(ts Tiers, qty int) int64 {
	if len(ts) == 0 {
		return 0
	}
	price := ts[0].PriceCents
	for _, t := range ts {
		if t.MinQty > qty {
			break
		}
		price = t.PriceCents
	}
	return price
}

// LineTotal is qty * PriceFor(ts, qty).
func LineTotal(ts Tiers, qty int) int64 {
	return int64(qty) * PriceFor(ts, qty)
}

// SavingsPercent is the discount of the best tier against the base tier, rounded down.
func SavingsPercent(ts Tiers) int {
	base := ts.Base().PriceCents
	if base <= 0 {
		return 0
	}
	return int((base - ts.Best().PriceCents) * 100 / base)
}
