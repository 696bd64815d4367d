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

// Modify edits, cancels or confirms the customer's current order.
type Modify struct {
	Catalog catalog.Store
	Ledger  *orders.Ledger
	MinQty  int
}

func (h Modify) target(ctx context.Context, req Request) (orders.Order, error) {
	if id := req.Context.LastOrderID; id != "" {
		o, err := h.Ledger.Get(ctx, id)
		if !errors.Is(err, orders.ErrNotFound) {
			return o, err
		}
	}
	return h.Ledger.LatestForUser(ctx, req.UserID)
}

func (h Modify) Handle(ctx context.Context, req Request) (Reply, conversation.Patch, error) {
	o, err := h.target(ctx, req)
	if errors.Is(err, orders.ErrNotFound) {
		r := Reply{Title: "No encontré un pedido tuyo para modificar."}
		r.Add("", "Podés hacer uno nuevo, por ejemplo: \"quiero 100 camisetas rojas talle M\".")
		return r, conversation.Patch{}, nil
	}
	if err != nil {
		return Reply{}, conversation.Patch{}, err
	}
	patch := conversation.WithOrder(o.ID)
	names := h.names(ctx, o)
	m := req.Message

	switch m.Op {
	case parse.OpCancel:
		c, err := h.Ledger.Cancel(ctx, o.ID)
		if err != nil {
			return h.failed(err, names, patch)
		}
		r := Reply{Title: fmt.Sprintf("Pedido #%s cancelado.", shortID(c.ID))}
		r.Add("", "Liberamos el stock reservado.")
		return r, patch, nil
	case parse.OpConfirm:
		c, err := h.Ledger.Confirm(ctx, o.ID)
		if err != nil {
			return h.failed(err, names, patch)
		}
		r := Reply{Title: fmt.Sprintf("Pedido #%s confirmado.", shortID(c.ID))}
		r.Add("Detalle:", orderLines(c, names)...)
		return r, patch, nil
	}

	if m.Quantity <= 0 {
		return h.status(o, names), patch, nil
	}
	if m.Quantity > orders.MaxLineQty {
		return tooMany(), patch, nil
	}

	reqs, found, err := h.edit(ctx, o, m)
	if err != nil {
		return Reply{}, conversation.Patch{}, err
	}
	if !found {
		r := Reply{Title: fmt.Sprintf("No encontré %s en tu pedido #%s.", describeFilter(m.Filter), shortID(o.ID))}
		r.Add("Tu pedido tiene:", orderLines(o, names)...)
		return r, patch, nil
	}
	if len(reqs) == 0 {
		r := Reply{Title: "Con ese cambio el pedido queda vacío."}
		r.Add("", "Si querés cancelarlo decime \"cancelar pedido\".")
		return r, patch, nil
	}
	qty := 0
	for _, rq := range reqs {
		qty += rq.Qty
	}
	if floor := h.minQty(); qty < floor {
		r := Reply{Title: fmt.Sprintf("El pedido mínimo es de %d unidades; con ese cambio quedarían %d.", floor, qty)}
		r.Add("", fmt.Sprintf("¿Querés ajustarlo a %d o cancelar el pedido?", floor))
		return r, patch, nil
	}

	before := o.TotalCents()
	updated, err := h.Ledger.Modify(ctx, o.ID, reqs)
	if err != nil {
		return h.failed(err, names, patch)
	}
	r := Reply{Title: fmt.Sprintf("Pedido #%s actualizado.", shortID(updated.ID))}
	r.Add("Detalle:", orderLines(updated, names)...)
	r.Add("", fmt.Sprintf("Antes: %s. Ahora: %s.", money(before), money(updated.TotalCents())))
	return r, patch, nil
}

func (h Modify) minQty() int {
	if h.MinQty <= 0 {
		return DefaultMinOrderQty
	}
	return h.MinQty
}

// edit computes the new line set. Add and reduce are relative to the targeted
// line; set replaces its quantity. found is false when the message names a
// product the order does not contain.
func (h Modify) edit(ctx context.Context, o orders.Order, m parse.Message) (_ []orders.LineRequest, found bool, err error) {
	idx, err := h.targetLine(ctx, o, m.Filter)
	if err != nil || idx < 0 {
		return nil, false, err
	}
	out := make([]orders.LineRequest, 0, len(o.Lines))
	for i, l := range o.Lines {
		q := l.Qty
		if i == idx {
			switch m.Op {
			case parse.OpAdd:
				q += m.Quantity
			case parse.OpReduce:
				q -= m.Quantity
			default:
				q = m.Quantity
			}
		}
		if q > 0 {
			out = append(out, orders.LineRequest{ProductID: l.ProductID, Qty: q})
		}
	}
	return out, true, nil
}

// targetLine picks the line whose product matches f. Without a filter it is
// the first line; with one that matches nothing it is -1.
func (h Modify) targetLine(ctx context.Context, o orders.Order, f catalog.Filter) (int, error) {
	if f.IsEmpty() {
		return 0, nil
	}
	for i, l := range o.Lines {
		p, err := h.Catalog.Get(ctx, l.ProductID)
		if errors.Is(err, catalog.ErrNotFound) {
			continue
		}
		if err != nil {
			return 0, err
		}
		if f.Matches(p) {
			return i, nil
		}
	}
	return -1, nil
}

func (h Modify) status(o orders.Order, names map[string]string) Reply {
	now := h.Ledger.Now()
	r := Reply{Title: fmt.Sprintf("Tu pedido #%s:", shortID(o.ID))}
	r.Add("", orderLines(o, names)...)
	switch o.StatusAt(now, h.Ledger.EditWindow()) {
	case orders.StatusOpen:
		r.Add("", fmt.Sprintf("Podés modificarlo durante %s más.", minutes(o.Remaining(now, h.Ledger.EditWindow()))))
		r.Menu = []string{"\"agregar 20 más\"", "\"reducir 10\"", "\"cambiar a 150\"", "\"cancelar pedido\"", "\"confirmar pedido\""}
	case orders.StatusExpiredForEdit:
		r.Add("", fmt.Sprintf("Ya pasaron los %s para modificarlo.", minutes(h.Ledger.EditWindow())))
	case orders.StatusConfirmed:
		r.Add("", "Está confirmado.")
	case orders.StatusCancelled:
		r.Add("", "Está cancelado.")
	}
	return r
}

func (h Modify) failed(err error, names map[string]string, patch conversation.Patch) (Reply, conversation.Patch, error) {
	if r, ok := explainLedgerError(err, names); ok {
		return r, patch, nil
	}
	return Reply{}, conversation.Patch{}, err
}

func (h Modify) names(ctx context.Context, o orders.Order) map[string]string {
	out := make(map[string]string, len(o.Lines))
	for _, l := range o.Lines {
		if p, err := h.Catalog.Get(ctx, l.ProductID); err == nil {
			out[l.ProductID] = p.Label()
		}
	}
	return out
}
