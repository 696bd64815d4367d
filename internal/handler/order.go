package handler

import (
	"context"
	"errors"
	"fmt"

	"github.com/ariefcatur/go-chat-orders/internal/catalog"
	"github.com/ariefcatur/go-chat-orders/internal/conversation"
	"github.com/ariefcatur/go-chat-orders/internal/orders"
	"github.com/ariefcatur/go-chat-orders/internal/parse"
)

const DefaultMinOrderQty = 50

// Order turns a purchase request into ledger lines.
type Order struct {
	Catalog catalog.Store
	Ledger  *orders.Ledger
	MinQty  int
}

func (h Order) minQty() int {
	if h.MinQty <= 0 {
		return DefaultMinOrderQty
	}
	return h.MinQty
}

// requestedLines pairs each quantity with a filter, completing it from the
// remembered filter when the customer left attributes out.
func requestedLines(req Request) []parse.Line {
	m := req.Message
	lines := m.Lines
	if len(lines) == 0 && m.Quantity > 0 {
		lines = []parse.Line{{Filter: m.Filter, Qty: m.Quantity}}
	}
	out := make([]parse.Line, len(lines))
	last := req.Context.LastFilter
	for i, l := range lines {
		if l.Filter.Type == "" || l.Filter.Type == last.Type {
			l.Filter = last.Merge(l.Filter)
		}
		out[i] = l
	}
	return out
}

func (h Order) Handle(ctx context.Context, req Request) (Reply, conversation.Patch, error) {
	lines := requestedLines(req)
	if len(lines) == 0 {
		f := effectiveFilter(req)
		r := Reply{Title: "¿Cuántas unidades necesitás?"}
		if !f.IsEmpty() {
			r.Title = fmt.Sprintf("¿Cuántas unidades de %s necesitás?", describeFilter(f))
		}
		r.Add("", fmt.Sprintf("El pedido mínimo es de %d unidades. A mayor cantidad, mejor precio por unidad.", h.minQty()))
		return r, patchFilter(f), nil
	}

	total := 0
	for _, l := range lines {
		if l.Filter.Type == "" {
			r := Reply{Title: fmt.Sprintf("¿Qué prenda querés para las %d unidades?", l.Qty)}
			r.Add("", "Por ejemplo: camisetas, pantalones, sudaderas.")
			return r, conversation.Patch{}, nil
		}
		if l.Qty > orders.MaxLineQty {
			return tooMany(), conversation.Patch{}, nil
		}
		total += l.Qty
	}
	if total < h.minQty() {
		r := Reply{Title: fmt.Sprintf("El pedido mínimo es de %d unidades y pediste %d.", h.minQty(), total)}
		r.Add("", fmt.Sprintf("¿Lo ajustamos a %d? A mayor cantidad, mejor precio por unidad.", h.minQty()))
		return r, conversation.WithFilter(lines[0].Filter), nil
	}

	reqs := make([]orders.LineRequest, 0, len(lines))
	names := map[string]string{}
	for _, l := range lines {
		p, ok, err := pick(ctx, h.Catalog, l.Filter, l.Qty)
		if err != nil {
			return Reply{}, conversation.Patch{}, err
		}
		if !ok {
			r, err := Stock{Catalog: h.Catalog, MaxItems: 5}.suggest(ctx, l.Filter)
			return r, conversation.WithFilter(l.Filter), err
		}
		names[p.ID] = p.Label()
		reqs = append(reqs, orders.LineRequest{ProductID: p.ID, Qty: l.Qty})
	}

	o, err := h.Ledger.Create(ctx, req.UserID, reqs)
	if err != nil {
		r, ok := explainLedgerError(err, names)
		if !ok {
			return Reply{}, conversation.Patch{}, err
		}
		return r, conversation.WithFilter(lines[0].Filter), nil
	}

	r := Reply{Title: fmt.Sprintf("¡Pedido #%s registrado!", shortID(o.ID))}
	r.Add("Detalle:", orderLines(o, names)...)
	r.Add("", fmt.Sprintf("Podés modificarlo o cancelarlo durante los próximos %s.", minutes(h.Ledger.EditWindow())))
	return r, conversation.WithFilter(lines[0].Filter).Merge(conversation.WithOrder(o.ID)), nil
}

func tooMany() Reply {
	r := Reply{Title: fmt.Sprintf("No podemos tomar más de %d unidades por prenda en un pedido.", orders.MaxLineQty)}
	r.Add("", "¿Me decís de nuevo cuántas unidades necesitás?")
	return r
}

// pick chooses the product for a line: the best-stocked match that covers qty,
// or the best-stocked match at all so the ledger reports the shortfall.
func pick(ctx context.Context, store catalog.Store, f catalog.Filter, qty int) (catalog.Product, bool, error) {
	ps, err := store.Query(ctx, f)
	if err != nil || len(ps) == 0 {
		return catalog.Product{}, false, err
	}
	for _, p := range ps {
		if p.Stock >= qty {
			return p, true, nil
		}
	}
	return ps[0], true, nil
}

func patchFilter(f catalog.Filter) conversation.Patch {
	if f.IsEmpty() {
		return conversation.Patch{}
	}
	return conversation.WithFilter(f)
}

// explainLedgerError turns expected ledger failures into customer replies.
func explainLedgerError(err error, names map[string]string) (Reply, bool) {
	var (
		ise *catalog.InsufficientStockError
		we  *orders.EditWindowError
	)
	switch {
	case errors.As(err, &ise):
		name := names[ise.ProductID]
		if name == "" {
			name = ise.ProductID
		}
		r := Reply{Title: fmt.Sprintf("No hay stock suficiente de %s.", name)}
		r.Add("", fmt.Sprintf("Pediste %d unidades y hay %d disponibles.", ise.Requested, ise.Available),
			"No se reservó nada. ¿Querés ajustar la cantidad?")
		return r, true
	case errors.As(err, &we):
		r := Reply{Title: fmt.Sprintf("El pedido #%s ya no se puede modificar.", shortID(we.OrderID))}
		r.Add("", fmt.Sprintf("Fue creado hace %s y solo se puede modificar durante los primeros %s.", minutes(we.Elapsed), minutes(we.Window)),
			"Si necesitás más unidades, hacé un pedido nuevo.")
		return r, true
	case errors.Is(err, orders.ErrNotEditable):
		return Reply{Title: "Ese pedido ya fue confirmado o cancelado, no se puede modificar."}, true
	case errors.Is(err, orders.ErrInvalidRequest):
		return Reply{Title: "No entendí las cantidades del pedido. ¿Me las repetís?"}, true
	case errors.Is(err, catalog.ErrNotFound), errors.Is(err, orders.ErrNotFound):
		return Reply{Title: "No encontré ese producto o pedido."}, true
	}
	return Reply{}, false
}
