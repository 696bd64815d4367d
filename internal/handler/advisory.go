package handler

import (
	"context"
	"fmt"

	"github.com/ariefcatur/go-chat-orders/internal/catalog"
	"github.com/ariefcatur/go-chat-orders/internal/conversation"
	"github.com/ariefcatur/go-chat-orders/internal/pricing"
)

// Advisory recommends products and explains volume pricing. It keeps no state.
type Advisory struct {
	Catalog           catalog.Store
	LowStockThreshold int
}

func (h Advisory) Handle(ctx context.Context, req Request) (Reply, conversation.Patch, error) {
	f := req.Message.Filter
	ps, err := h.Catalog.Query(ctx, f)
	if err != nil {
		return Reply{}, conversation.Patch{}, err
	}
	if len(ps) == 0 && !f.IsEmpty() {
		if ps, err = h.Catalog.Query(ctx, catalog.Filter{Type: f.Type}); err != nil {
			return Reply{}, conversation.Patch{}, err
		}
	}
	if len(ps) == 0 {
		return Reply{Title: "Por ahora no tengo productos para recomendarte."}, conversation.Patch{}, nil
	}

	r := Reply{Title: "Te recomiendo:"}
	top := ps
	if len(top) > 3 {
		top = top[:3]
	}
	lines := make([]string, len(top))
	for i, p := range top {
		lines[i] = productLine(p)
	}
	r.Add("", lines...)

	if tiers := top[0].Tiers; len(tiers) > 1 {
		tl := make([]string, len(tiers))
		for i, t := range tiers {
			tl[i] = tierLine(t)
		}
		r.Add(fmt.Sprintf("Precios por volumen de %s:", top[0].Label()), tl...)
		if pct := pricing.SavingsPercent(tiers); pct > 0 {
			r.Add("", fmt.Sprintf("Pasando de %d a %d unidades ahorrás %d%% por unidad.", tiers.Base().MinQty, tiers.Best().MinQty, pct))
		}
	}

	if h.LowStockThreshold > 0 {
		low, err := h.Catalog.LowStock(ctx, h.LowStockThreshold)
		if err != nil {
			return Reply{}, conversation.Patch{}, err
		}
		var warn []string
		for _, p := range low {
			if f.IsEmpty() || f.Matches(p) {
				warn = append(warn, fmt.Sprintf("%s: quedan %d u", p.Label(), p.Stock))
			}
		}
		if len(warn) > 0 {
			r.Add("Últimas unidades:", warn...)
		}
	}
	return r, conversation.Patch{}, nil
}
