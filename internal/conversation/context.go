// Package conversation keeps short-lived per-user memory between messages.
package conversation

import (
	"context"
	"time"

	"github.com/ariefcatur/go-chat-orders/internal/catalog"
)

const DefaultTTL = 10 * time.Minute

type Context struct {
	UserID      string         `json:"user_id"`
	LastFilter  catalog.Filter `json:"last_filter"`
	LastOrderID string         `json:"last_order_id,omitempty"`
	LastIntent  string         `json:"last_intent,omitempty"`
	UpdatedAt   time.Time      `json:"updated_at"`
	ExpiresAt   time.Time      `json:"expires_at"`
}

func (c Context) Expired(now time.Time) bool {
	return !c.ExpiresAt.IsZero() && now.After(c.ExpiresAt)
}

// Patch is a partial update. Nil fields are left alone.
type Patch struct {
	Filter  *catalog.Filter
	OrderID *string
	Intent  *string
}

func (p Patch) IsEmpty() bool { return p.Filter == nil && p.OrderID == nil && p.Intent == nil }

// Merge returns p overlaid with later, field by field; later wins.
func (p Patch) Merge(later Patch) Patch {
	if later.Filter != nil {
		p.Filter = later.Filter
	}
	if later.OrderID != nil {
		p.OrderID = later.OrderID
	}
	if later.Intent != nil {
		p.Intent = later.Intent
	}
	return p
}

func WithFilter(f catalog.Filter) Patch { return Patch{Filter: &f} }
func WithOrder(id string) Patch         { return Patch{OrderID: &id} }
func WithIntent(label string) Patch     { return Patch{Intent: &label} }

// Apply writes p onto c and renews the expiry.
func (c Context) Apply(p Patch, now time.Time, ttl time.Duration) Context {
	if p.Filter != nil {
		c.LastFilter = *p.Filter
	}
	if p.OrderID != nil {
		c.LastOrderID = *p.OrderID
	}
	if p.Intent != nil {
		c.LastIntent = *p.Intent
	}
	c.UpdatedAt = now
	c.ExpiresAt = now.Add(ttl)
	return c
}

// Store is keyed by user id. A missing or expired entry loads as an empty
// Context for that user.
type Store interface {
	Load(ctx context.Context, userID string) (Context, error)
	Update(ctx context.Context, userID string, p Patch) (Context, error)
	Clear(ctx context.Context, userID string) error
}
