package handler

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ariefcatur/go-chat-orders/internal/catalog"
	"github.com/ariefcatur/go-chat-orders/internal/lexicon"
	"github.com/ariefcatur/go-chat-orders/internal/orders"
	"github.com/ariefcatur/go-chat-orders/internal/pricing"
)

// money renders cents as "$65.000" or "$12,50".
func money(cents int64) string {
	neg := cents < 0
	if neg {
		cents = -cents
	}
	units := strconv.FormatInt(cents/100, 10)
	var b strings.Builder
	for i, r := range units {
		if i > 0 && (len(units)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(r)
	}
	s := "$" + b.String()
	if c := cents % 100; c != 0 {
		s += fmt.Sprintf(",%02d", c)
	}
	if neg {
		s = "-" + s
	}
	return s
}

func tierLine(t pricing.Tier) string {
	return fmt.Sprintf("%d+ u: %s c/u", t.MinQty, money(t.PriceCents))
}

func productLine(p catalog.Product) string {
	s := fmt.Sprintf("%s: %d u", p.Label(), p.Stock)
	if len(p.Tiers) > 0 {
		s += " desde " + money(p.Tiers.Best().PriceCents) + " c/u"
	}
	return s
}

func describeFilter(f catalog.Filter) string {
	parts := []string{lexicon.Plural(f.Type)}
	if f.Color != "" {
		parts = append(parts, f.Color)
	}
	if f.Size != "" {
		parts = append(parts, "talle "+f.Size)
	}
	return strings.Join(parts, " ")
}

func orderLines(o orders.Order, names map[string]string) []string {
	out := make([]string, 0, len(o.Lines)+1)
	for _, l := range o.Lines {
		name := names[l.ProductID]
		if name == "" {
			name = l.ProductID
		}
		out = append(out, fmt.Sprintf("%s x %d u a %s = %s", name, l.Qty, money(l.UnitPriceCents), money(l.TotalCents())))
	}
	out = append(out, "Total: "+money(o.TotalCents()))
	return out
}

func minutes(d time.Duration) string {
	m := int(d.Round(time.Minute) / time.Minute)
	if m == 1 {
		return "1 minuto"
	}
	return fmt.Sprintf("%d minutos", m)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
