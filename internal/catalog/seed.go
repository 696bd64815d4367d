package catalog

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type seedFile struct {
	Products []Product `yaml:"products"`
}

// LoadSeed reads a YAML product list.
func LoadSeed(path string) ([]Product, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseSeed(b)
}

func ParseSeed(b []byte) ([]Product, error) {
	var f seedFile
	if err := yaml.Unmarshal(b, &f); err != nil {
		return nil, fmt.Errorf("parse catalog seed: %w", err)
	}
	return f.Products, nil
}

// Seed upserts every product into s.
func Seed(ctx context.Context, s Store, products []Product) error {
	for _, p := range products {
		if err := s.Upsert(ctx, p); err != nil {
			return fmt.Errorf("seed %s: %w", p.ID, err)
		}
	}
	return nil
}
