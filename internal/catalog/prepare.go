package catalog

import (
	"errors"
	"fmt"
)

var ErrInvalidProduct = errors.New("invalid product")

// prepare validates p and fills defaults before it is stored.
func prepare(p *Product) error {
	if p.ID == "" {
		return fmt.Errorf("%w: missing id", ErrInvalidProduct)
	}
	if p.Type == "" {
		return fmt.Errorf("%w: %s has no type", ErrInvalidProduct, p.ID)
	}
	if p.Stock < 0 {
		return fmt.Errorf("%w: %s has negative stock", ErrInvalidProduct, p.ID)
	}
	p.Tiers = p.Tiers.Sorted()
	if err := p.Tiers.Validate(); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalidProduct, p.ID, err)
	}
	if p.Category == "" {
		p.Category = DefaultCategory
	}
	if p.Name == "" {
		p.Name = p.Type
	}
	return nil
}
