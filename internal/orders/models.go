package orders

import "time"

const DefaultEditWindow = 5 * time.Minute

// MaxLineQty bounds one product's quantity in an order, after merging.
const MaxLineQty = 1_000_000

// LineRequest asks for Qty units of a product; the ledger prices it.
type LineRequest struct {
	ProductID string `json:"product_id"`
	Qty       int    `json:"qty"`
}

type Line struct {
	ProductID      string `json:"product_id"`
	Qty            int    `json:"qty"`
	UnitPriceCents int64  `json:"unit_price_cents"`
}

func (l Line) TotalCents() int64 { return int64(l.Qty) * l.UnitPriceCents }

// ChangeItem records one product's quantity and price before and after an edit.
// A zero quantity means the product was absent on that side.
type ChangeItem struct {
	ProductID     string `json:"product_id"`
	OldQty        int    `json:"old_qty"`
	NewQty        int    `json:"new_qty"`
	OldPriceCents int64  `json:"old_price_cents"`
	NewPriceCents int64  `json:"new_price_cents"`
}

type Change struct {
	At    time.Time    `json:"at"`
	Items []ChangeItem `json:"items"`
}

type Order struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Status    Status    `json:"status"`
	Lines     []Line    `json:"lines"`
	Changes   []Change  `json:"changes,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Version   int       `json:"version"`
}

func (o Order) TotalCents() int64 {
	var t int64
	for _, l := range o.Lines {
		t += l.TotalCents()
	}
	return t
}

func (o Order) TotalQty() int {
	n := 0
	for _, l := range o.Lines {
		n += l.Qty
	}
	return n
}

// WithinWindow reports now - CreatedAt <= window. The boundary is inclusive.
func (o Order) WithinWindow(now time.Time, window time.Duration) bool {
	return now.Sub(o.CreatedAt) <= window
}

// StatusAt is the status as seen at now, deriving Expired-for-edit.
func (o Order) StatusAt(now time.Time, window time.Duration) Status {
	if o.Status == StatusOpen && !o.WithinWindow(now, window) {
		return StatusExpiredForEdit
	}
	return o.Status
}

// Remaining is the edit time left, never negative.
func (o Order) Remaining(now time.Time, window time.Duration) time.Duration {
	if d := window - now.Sub(o.CreatedAt); d > 0 {
		return d
	}
	return 0
}

func (o Order) clone() Order {
	o.Lines = append([]Line(nil), o.Lines...)
	cs := make([]Change, len(o.Changes))
	for i, c := range o.Changes {
		c.Items = append([]ChangeItem(nil), c.Items...)
		cs[i] = c
	}
	o.Changes = cs
	return o
}
