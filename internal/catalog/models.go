package catalog

import (
	"strings"
	"time"

	"github.com/ariefcatur/go-chat-orders/internal/lexicon"
	"github.com/ariefcatur/go-chat-orders/internal/pricing"
)

const DefaultCategory = "General"

type Product struct {
	ID          string        `json:"id" yaml:"id"`
	Name        string        `json:"name" yaml:"name"`
	Type        string        `json:"type" yaml:"type"`
	Color       string        `json:"color" yaml:"color"`
	Size        string        `json:"size" yaml:"size"`
	Category    string        `json:"category" yaml:"category"`
	Description string        `json:"description,omitempty" yaml:"description"`
	Tiers       pricing.Tiers `json:"price_tiers" yaml:"price_tiers"`
	Stock       int           `json:"stock" yaml:"stock"`
	CreatedAt   time.Time     `json:"created_at" yaml:"-"`
	UpdatedAt   time.Time     `json:"updated_at" yaml:"-"`
}

func (p Product) clone() Product {
	p.Tiers = append(pricing.Tiers(nil), p.Tiers...)
	return p
}

// Label is a short human description, e.g. "Camiseta Dry-Fit (rojo, M)".
func (p Product) Label() string {
	name := p.Name
	if name == "" {
		name = p.Type
	}
	attrs := ""
	for _, a := range []string{p.Color, p.Size} {
		if a == "" {
			continue
		}
		if attrs != "" {
			attrs += ", "
		}
		attrs += a
	}
	if attrs == "" {
		return name
	}
	return name + " (" + attrs + ")"
}

// Filter is a partial product description. Empty fields match anything.
type Filter struct {
	Type  string `json:"type,omitempty"`
	Color string `json:"color,omitempty"`
	Size  string `json:"size,omitempty"`
}

func (f Filter) IsEmpty() bool { return f.Type == "" && f.Color == "" && f.Size == "" }

// Merge overlays the non-empty fields of o onto f.
func (f Filter) Merge(o Filter) Filter {
	if o.Type != "" {
		f.Type = o.Type
	}
	if o.Color != "" {
		f.Color = o.Color
	}
	if o.Size != "" {
		f.Size = o.Size
	}
	return f
}

// Matches reports whether p satisfies every non-empty field of f.
// Types compare by lexicon key so singular/plural/accent variants match.
func (f Filter) Matches(p Product) bool {
	if f.Type != "" && !containsWords(lexicon.TypeKey(p.Type), lexicon.TypeKey(f.Type)) {
		return false
	}
	if f.Color != "" && lexicon.ColorKey(p.Color) != lexicon.ColorKey(f.Color) {
		return false
	}
	if f.Size != "" && lexicon.SizeKey(p.Size) != lexicon.SizeKey(f.Size) {
		return false
	}
	return true
}

// containsWords reports whether needle appears in hay on word boundaries.
func containsWords(hay, needle string) bool {
	if needle == "" {
		return true
	}
	return strings.Contains(" "+hay+" ", " "+needle+" ")
}

// Adjustment changes one product's on-hand quantity by Delta.
type Adjustment struct {
	ProductID string
	Delta     int
}
