package handler

import (
	"context"
	"fmt"
	"sort"

	"github.com/ariefcatur/go-chat-orders/internal/catalog"
	"github.com/ariefcatur/go-chat-orders/internal/conversation"
	"github.com/ariefcatur/go-chat-orders/internal/pricing"
)

// Stock answers availability questions.
type Stock struct {
	Catalog catalog.Store
	// MaxItems caps how many products are listed per reply.
	MaxItems int
}

// effectiveFilter fills the remembered filter under the message's own
// attributes when the message names no product.
func effectiveFilter(req Request) catalog.Filter {
	if req.Message.HasProductNoun {
		f := req.Message.Filter
		if f.Type == req.Context.LastFilter.Type {
			return req.Context.LastFilter.Merge(f)
		}
		return f
	}
	return req.Context.LastFilter.Merge(req.Message.Filter)
}

func (h Stock) Handle(ctx context.Context, req Request) (Reply, conversation.Patch, error) {
	f := effectiveFilter(req)
	if f.IsEmpty() {
		return h.overview(ctx)
	}

	ps, err := h.Catalog.Query(ctx, f)
	if err != nil {
		return Reply{}, conversation.Patch{}, err
	}
	patch := conversation.WithFilter(f)
	if len(ps) == 0 {
		r, err := h.suggest(ctx, f)
		return r, patch, err
	}

	r := Reply{Title: fmt.Sprintf("Esto tenemos en %s:", describeFilter(f))}
	h.addGrouped(&r, ps)
	if best := bestSavings(ps); best != "" {
		r.Add("", best)
	}
	return r, patch, nil
}

func (h Stock) limit() int {
	if h.MaxItems <= 0 {
		return 20
	}
	return h.MaxItems
}

// addGrouped lists products under their category, categories in name order.
func (h Stock) addGrouped(r *Reply, ps []catalog.Product) {
	byCat := map[string][]catalog.Product{}
	var cats []string
	for _, p := range ps {
		if _, ok := byCat[p.Category]; !ok {
			cats = append(cats, p.Category)
		}
		byCat[p.Category] = append(byCat[p.Category], p)
	}
	sort.Strings(cats)
	left := h.limit()
	for _, c := range cats {
		var lines []string
		for _, p := range byCat[c] {
			if left == 0 {
				break
			}
			lines = append(lines, productLine(p))
			left--
		}
		if len(lines) > 0 {
			r.Add(c+":", lines...)
		}
	}
	if len(ps) > h.limit() {
		r.Add("", fmt.Sprintf("Y %d productos más. Contame color o talle para filtrar.", len(ps)-h.limit()))
	}
}

// suggest relaxes color and size, then type, to offer the nearest category.
func (h Stock) suggest(ctx context.Context, f catalog.Filter) (Reply, error) {
	r := Reply{Title: fmt.Sprintf("No tenemos %s en este momento.", describeFilter(f))}
	for _, relaxed := range []catalog.Filter{{Type: f.Type}, {Color: f.Color, Size: f.Size}} {
		if relaxed.IsEmpty() || relaxed == f {
			continue
		}
		ps, err := h.Catalog.Query(ctx, relaxed)
		if err != nil {
			return Reply{}, err
		}
		if len(ps) > 0 {
			r.Add("Pero tenemos:")
			h.addGrouped(&r, ps)
			return r, nil
		}
	}
	r.Add("", "Preguntame por camisetas, pantalones, sudaderas, camisas, chaquetas o faldas.")
	return r, nil
}

// overview summarises stock per garment type.
func (h Stock) overview(ctx context.Context) (Reply, conversation.Patch, error) {
	ps, err := h.Catalog.Query(ctx, catalog.Filter{})
	if err != nil {
		return Reply{}, conversation.Patch{}, err
	}
	total := map[string]int{}
	var types []string
	for _, p := range ps {
		if _, ok := total[p.Type]; !ok {
			types = append(types, p.Type)
		}
		total[p.Type] += p.Stock
	}
	sort.Strings(types)
	r := Reply{Title: "Este es nuestro stock disponible:"}
	lines := make([]string, 0, len(types))
	for _, t := range types {
		lines = append(lines, fmt.Sprintf("%s: %d u", t, total[t]))
	}
	r.Add("", lines...)
	r.Add("", "¿Qué prenda, color o talle buscás?")
	return r, conversation.Patch{}, nil
}

func bestSavings(ps []catalog.Product) string {
	for _, p := range ps {
		if pct := pricing.SavingsPercent(p.Tiers); pct > 0 {
			return fmt.Sprintf("Comprando %d o más unidades ahorrás hasta %d%%.", p.Tiers.Best().MinQty, pct)
		}
	}
	return ""
}
