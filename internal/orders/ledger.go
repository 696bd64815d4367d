package orders

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ariefcatur/go-chat-orders/internal/catalog"
	"github.com/ariefcatur/go-chat-orders/internal/pricing"
)

// Ledger owns the order lifecycle. Every stock movement it makes goes through
// catalog.Store.Apply so multi-product changes are all-or-nothing.
type Ledger struct {
	catalog  catalog.Store
	repo     Repository
	pub      Publisher
	log      *zap.Logger
	window   time.Duration
	now      func() time.Time
	producer string
}

func NewLedger(store catalog.Store, repo Repository, pub Publisher, log *zap.Logger, window time.Duration) *Ledger {
	if pub == nil {
		pub = NopPublisher{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	if window <= 0 {
		window = DefaultEditWindow
	}
	return &Ledger{catalog: store, repo: repo, pub: pub, log: log, window: window, now: time.Now, producer: "order-desk"}
}

// WithClock replaces the time source; used by tests.
func (l *Ledger) WithClock(now func() time.Time) *Ledger {
	l.now = now
	return l
}

func (l *Ledger) EditWindow() time.Duration { return l.window }
func (l *Ledger) Now() time.Time            { return l.now() }

// mergeRequests validates reqs and folds repeated products into the first
// occurrence, keeping request order.
func mergeRequests(reqs []LineRequest) ([]LineRequest, error) {
	if len(reqs) == 0 {
		return nil, fmt.Errorf("%w: no lines", ErrInvalidRequest)
	}
	idx := map[string]int{}
	var out []LineRequest
	for _, r := range reqs {
		if r.ProductID == "" {
			return nil, fmt.Errorf("%w: missing product id", ErrInvalidRequest)
		}
		if r.Qty <= 0 || r.Qty > MaxLineQty {
			return nil, fmt.Errorf("%w: quantity %d for %s", ErrInvalidRequest, r.Qty, r.ProductID)
		}
		if i, ok := idx[r.ProductID]; ok {
			if out[i].Qty > MaxLineQty-r.Qty {
				return nil, fmt.Errorf("%w: quantity for %s exceeds %d", ErrInvalidRequest, r.ProductID, MaxLineQty)
			}
			out[i].Qty += r.Qty
			continue
		}
		idx[r.ProductID] = len(out)
		out = append(out, r)
	}
	return out, nil
}

// price resolves and prices every request. Prices come from the catalog, never
// from the caller.
func (l *Ledger) price(ctx context.Context, reqs []LineRequest) ([]Line, string, error) {
	lines := make([]Line, len(reqs))
	for i, r := range reqs {
		p, err := l.catalog.Get(ctx, r.ProductID)
		if err != nil {
			return nil, r.ProductID, err
		}
		lines[i] = Line{ProductID: r.ProductID, Qty: r.Qty, UnitPriceCents: pricing.PriceFor(p.Tiers, r.Qty)}
	}
	return lines, "", nil
}

func productOf(err error) string {
	var ise *catalog.InsufficientStockError
	if errors.As(err, &ise) {
		return ise.ProductID
	}
	return ""
}

// Create prices the lines, takes all stock in one step and stores an Open order.
// On any failure no stock has moved.
func (l *Ledger) Create(ctx context.Context, userID string, reqs []LineRequest) (Order, error) {
	if userID == "" {
		return Order{}, fmt.Errorf("%w: missing user id", ErrInvalidRequest)
	}
	reqs, err := mergeRequests(reqs)
	if err != nil {
		return Order{}, err
	}
	lines, pid, err := l.price(ctx, reqs)
	if err != nil {
		return Order{}, &CreationError{ProductID: pid, Err: err}
	}

	adjs := make([]catalog.Adjustment, len(lines))
	for i, ln := range lines {
		adjs[i] = catalog.Adjustment{ProductID: ln.ProductID, Delta: -ln.Qty}
	}
	if _, err := l.catalog.Apply(ctx, adjs); err != nil {
		l.rejected(ctx, userID, err)
		return Order{}, &CreationError{ProductID: productOf(err), Err: err}
	}

	now := l.now()
	o := Order{
		ID:        uuid.NewString(),
		UserID:    userID,
		Status:    StatusOpen,
		Lines:     lines,
		CreatedAt: now,
		UpdatedAt: now,
		Version:   1,
	}
	if err := l.repo.Insert(ctx, o); err != nil {
		l.compensate(ctx, o.ID, invert(adjs))
		return Order{}, fmt.Errorf("store order: %w", err)
	}

	l.emit(ctx, EventOrderCreated, o.ID, OrderCreatedPayload{
		OrderID: o.ID, UserID: userID, Items: itemPrices(o.Lines), TotalCents: o.TotalCents(),
	})
	l.log.Info("order created", zap.String("order_id", o.ID), zap.String("user_id", userID),
		zap.Int("lines", len(o.Lines)), zap.Int64("total_cents", o.TotalCents()))
	return o, nil
}

func (l *Ledger) Get(ctx context.Context, orderID string) (Order, error) {
	return l.repo.Get(ctx, orderID)
}

func (l *Ledger) LatestForUser(ctx context.Context, userID string) (Order, error) {
	return l.repo.LatestForUser(ctx, userID)
}

func (l *Ledger) ListForUser(ctx context.Context, userID string, limit int) ([]Order, error) {
	return l.repo.ListForUser(ctx, userID, limit)
}

// editable loads the order and checks it can still change at now.
func (l *Ledger) editable(ctx context.Context, orderID string, now time.Time) (Order, error) {
	o, err := l.repo.Get(ctx, orderID)
	if err != nil {
		return Order{}, err
	}
	if o.Status != StatusOpen {
		return o, fmt.Errorf("%w: %s is %s", ErrNotEditable, o.ID, o.Status)
	}
	if !o.WithinWindow(now, l.window) {
		return o, &EditWindowError{OrderID: o.ID, Elapsed: now.Sub(o.CreatedAt), Window: l.window}
	}
	return o, nil
}

// Modify replaces the order's lines. Stock moves by the per-product difference
// in one step; every unit price is recomputed for the new quantities.
func (l *Ledger) Modify(ctx context.Context, orderID string, reqs []LineRequest) (Order, error) {
	now := l.now()
	o, err := l.editable(ctx, orderID, now)
	if err != nil {
		return Order{}, err
	}
	reqs, err = mergeRequests(reqs)
	if err != nil {
		return Order{}, err
	}
	lines, _, err := l.price(ctx, reqs)
	if err != nil {
		return Order{}, err
	}

	next := o.clone()
	next.Lines = lines
	change := diff(o, next, now)
	adjs := make([]catalog.Adjustment, 0, len(change.Items))
	for _, c := range change.Items {
		adjs = append(adjs, catalog.Adjustment{ProductID: c.ProductID, Delta: c.OldQty - c.NewQty})
	}
	if _, err := l.catalog.Apply(ctx, adjs); err != nil {
		return Order{}, err
	}

	next.Changes = append(next.Changes, change)
	next.UpdatedAt = now
	saved, err := l.repo.Update(ctx, next)
	if err != nil {
		l.compensate(ctx, o.ID, invert(adjs))
		return Order{}, err
	}

	l.emit(ctx, EventOrderModified, o.ID, OrderModifiedPayload{
		OrderID: o.ID, Items: itemPrices(saved.Lines), Changes: change.Items, TotalCents: saved.TotalCents(),
	})
	l.log.Info("order modified", zap.String("order_id", o.ID),
		zap.Int64("old_total_cents", o.TotalCents()), zap.Int64("new_total_cents", saved.TotalCents()))
	return saved, nil
}

// Cancel returns all stock and closes the order. Only allowed inside the window.
func (l *Ledger) Cancel(ctx context.Context, orderID string) (Order, error) {
	now := l.now()
	o, err := l.editable(ctx, orderID, now)
	if err != nil {
		return Order{}, err
	}
	adjs := make([]catalog.Adjustment, len(o.Lines))
	for i, ln := range o.Lines {
		adjs[i] = catalog.Adjustment{ProductID: ln.ProductID, Delta: ln.Qty}
	}
	if _, err := l.catalog.Apply(ctx, adjs); err != nil {
		return Order{}, fmt.Errorf("release stock: %w", err)
	}

	next := o.clone()
	next.Status = StatusCancelled
	next.UpdatedAt = now
	saved, err := l.repo.Update(ctx, next)
	if err != nil {
		l.compensate(ctx, o.ID, invert(adjs))
		return Order{}, err
	}
	l.emit(ctx, EventOrderCancelled, o.ID, OrderStatusPayload{OrderID: o.ID, Status: saved.Status})
	l.log.Info("order cancelled", zap.String("order_id", o.ID))
	return saved, nil
}

// Confirm locks an Open order against further edits. It does not depend on
// the window: an expired order can still be confirmed.
func (l *Ledger) Confirm(ctx context.Context, orderID string) (Order, error) {
	o, err := l.repo.Get(ctx, orderID)
	if err != nil {
		return Order{}, err
	}
	if !CanTransition(o.Status, StatusConfirmed) {
		return Order{}, fmt.Errorf("%w: %s is %s", ErrNotEditable, o.ID, o.Status)
	}
	next := o.clone()
	next.Status = StatusConfirmed
	next.UpdatedAt = l.now()
	saved, err := l.repo.Update(ctx, next)
	if err != nil {
		return Order{}, err
	}
	l.emit(ctx, EventOrderConfirmed, o.ID, OrderStatusPayload{OrderID: o.ID, Status: saved.Status})
	return saved, nil
}

// diff builds the change record between two versions of an order, in the
// order products appear (old lines first, then new products).
func diff(old, next Order, at time.Time) Change {
	oldBy := map[string]Line{}
	for _, ln := range old.Lines {
		oldBy[ln.ProductID] = ln
	}
	newBy := map[string]Line{}
	for _, ln := range next.Lines {
		newBy[ln.ProductID] = ln
	}
	c := Change{At: at}
	seen := map[string]bool{}
	for _, ls := range [][]Line{old.Lines, next.Lines} {
		for _, ln := range ls {
			if seen[ln.ProductID] {
				continue
			}
			seen[ln.ProductID] = true
			o, n := oldBy[ln.ProductID], newBy[ln.ProductID]
			c.Items = append(c.Items, ChangeItem{
				ProductID:     ln.ProductID,
				OldQty:        o.Qty,
				NewQty:        n.Qty,
				OldPriceCents: o.UnitPriceCents,
				NewPriceCents: n.UnitPriceCents,
			})
		}
	}
	return c
}

func invert(adjs []catalog.Adjustment) []catalog.Adjustment {
	out := make([]catalog.Adjustment, len(adjs))
	for i, a := range adjs {
		out[i] = catalog.Adjustment{ProductID: a.ProductID, Delta: -a.Delta}
	}
	return out
}

// compensate undoes a stock movement whose order write failed.
func (l *Ledger) compensate(ctx context.Context, orderID string, adjs []catalog.Adjustment) {
	if _, err := l.catalog.Apply(context.WithoutCancel(ctx), adjs); err != nil {
		l.log.Error("stock compensation failed", zap.String("order_id", orderID), zap.Error(err))
	}
}

func (l *Ledger) rejected(ctx context.Context, userID string, err error) {
	var ise *catalog.InsufficientStockError
	if !errors.As(err, &ise) {
		return
	}
	l.emit(ctx, EventStockRejected, userID, StockRejectedPayload{
		UserID: userID, ProductID: ise.ProductID, Required: ise.Requested, Available: ise.Available,
	})
}

func (l *Ledger) emit(ctx context.Context, eventType, correlationID string, payload any) {
	b, err := json.Marshal(payload)
	if err != nil {
		l.log.Error("marshal event", zap.String("event_type", eventType), zap.Error(err))
		return
	}
	env := Envelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		EventVersion:  1,
		OccurredAt:    l.now().UTC(),
		Producer:      l.producer,
		CorrelationID: correlationID,
		Payload:       b,
	}
	if err := l.pub.Publish(ctx, env); err != nil {
		l.log.Warn("publish event", zap.String("event_type", eventType), zap.String("correlation_id", correlationID), zap.Error(err))
	}
}
