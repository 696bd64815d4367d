package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/ariefcatur/go-chat-orders/internal/config"
	"github.com/ariefcatur/go-chat-orders/internal/intent"
)

const seed = `
products:
  - id: tee-red-m
    name: Camiseta Dry-Fit
    type: camiseta
    color: rojo
    size: M
    stock: 300
    price_tiers:
      - {min_qty: 1, price_cents: 80000}
      - {min_qty: 100, price_cents: 65000}
      - {min_qty: 150, price_cents: 50000}
`

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	seedPath := filepath.Join(dir, "catalog.yaml")
	if err := os.WriteFile(seedPath, []byte(seed), 0o600); err != nil {
		t.Fatal(err)
	}
	return &config.Config{
		Routing:    config.RoutingConfig{Threshold: 0.5, ClassifierTimeout: time.Second, ContextTTL: 10 * time.Minute},
		Orders:     config.OrdersConfig{EditWindow: 5 * time.Minute, MinQty: 50, LowStockThreshold: 10},
		Storage:    config.StorageConfig{Driver: "memory"},
		Transcript: config.TranscriptConfig{Driver: "sqlite", DSN: filepath.Join(dir, "transcript.db")},
		Catalog:    config.CatalogConfig{SeedPath: seedPath},
	}
}

func TestBuild_ConversationEndToEnd(t *testing.T) {
	ctx := context.Background()
	a, err := Build(ctx, testConfig(t), zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	defer a.Close()

	steps := []struct {
		text  string
		label intent.Label
	}{
		{"hola", intent.Unrecognized},
		{"tenés camisetas rojas?", intent.CheckStock},
		{"quiero 100 camisetas rojas", intent.CreateOrder},
		{"agregá 50 más", intent.ModifyOrder},
	}
	var orderID string
	for _, s := range steps {
		res, err := a.Dispatcher.Dispatch(ctx, "u1", s.text)
		if err != nil {
			t.Fatalf("%q: %v", s.text, err)
		}
		if res.Label != s.label {
			t.Fatalf("%q routed to %s, want %s (reply %q)", s.text, res.Label, s.label, res.Reply.Text())
		}
		orderID = res.Context.LastOrderID
	}
	if orderID == "" {
		t.Fatalf("order id not remembered")
	}

	o, err := a.Ledger.Get(ctx, orderID)
	if err != nil {
		t.Fatal(err)
	}
	if o.TotalQty() != 150 || o.TotalCents() != 150*500_00 {
		t.Fatalf("order = %d units, %d cents", o.TotalQty(), o.TotalCents())
	}
	p, _ := a.Catalog.Get(ctx, "tee-red-m")
	if p.Stock != 150 {
		t.Fatalf("stock = %d, want 150", p.Stock)
	}

	entries, err := a.Transcript.Recent(ctx, "u1", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != len(steps) || entries[3].Intent != string(intent.ModifyOrder) {
		t.Fatalf("transcript = %+v", entries)
	}
}

func TestBuild_BadSeedFails(t *testing.T) {
	cfg := testConfig(t)
	cfg.Catalog.SeedPath = filepath.Join(t.TempDir(), "missing.yaml")
	if _, err := Build(context.Background(), cfg, zap.NewNop()); err == nil {
		t.Fatalf("expected error for missing seed")
	}
}
