package orders

import (
	"encoding/json"
	"time"
)

const (
	EventOrderCreated   = "OrderCreated"
	EventOrderModified  = "OrderModified"
	EventOrderCancelled = "OrderCancelled"
	EventOrderConfirmed = "OrderConfirmed"
	EventStockRejected  = "StockRejected"
)

type Envelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	EventVersion  int             `json:"event_version"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Producer      string          `json:"producer"`
	TraceID       string          `json:"trace_id,omitempty"`
	CorrelationID string          `json:"correlation_id,omitempty"` // order id, or user id for rejections
	Payload       json.RawMessage `json:"payload"`
}

type ItemPrice struct {
	ProductID  string `json:"product_id"`
	Qty        int    `json:"qty"`
	PriceCents int64  `json:"price_cents"`
}

type OrderCreatedPayload struct {
	OrderID    string      `json:"order_id"`
	UserID     string      `json:"user_id"`
	Items      []ItemPrice `json:"items"`
	TotalCents int64       `json:"total_cents"`
}

type OrderModifiedPayload struct {
	OrderID    string       `json:"order_id"`
	Items      []ItemPrice  `json:"items"`
	Changes    []ChangeItem `json:"changes"`
	TotalCents int64        `json:"total_cents"`
}

type OrderStatusPayload struct {
	OrderID string `json:"order_id"`
	Status  Status `json:"status"`
}

type StockRejectedPayload struct {
	UserID    string `json:"user_id"`
	ProductID string `json:"product_id"`
	Required  int    `json:"required"`
	Available int    `json:"available"`
}

func itemPrices(ls []Line) []ItemPrice {
	out := make([]ItemPrice, len(ls))
	for i, l := range ls {
		out[i] = ItemPrice{ProductID: l.ProductID, Qty: l.Qty, PriceCents: l.UnitPriceCents}
	}
	return out
}
