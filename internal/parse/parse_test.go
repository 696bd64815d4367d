package parse

import (
	"math"
	"testing"

	"github.com/ariefcatur/go-chat-orders/internal/catalog"
)

func TestParse_SingleLine(t *testing.T) {
	m := Parse("Quiero 120 camisetas rojas talle M")
	want := catalog.Filter{Type: "camiseta", Color: "rojo", Size: "M"}
	if m.Filter != want {
		t.Fatalf("filter = %+v, want %+v", m.Filter, want)
	}
	if m.Quantity != 120 || len(m.Lines) != 1 || m.Lines[0].Qty != 120 {
		t.Fatalf("qty = %d lines = %+v", m.Quantity, m.Lines)
	}
	if !m.HasProductNoun || m.AttributeOnly() {
		t.Fatalf("noun detection wrong: %+v", m)
	}
}

func TestParse_MultiLineInheritsType(t *testing.T) {
	m := Parse("50 pantalones negros, 60 azules y 100 buzos grises XL")
	if len(m.Lines) != 3 {
		t.Fatalf("lines = %+v", m.Lines)
	}
	cases := []Line{
		{Filter: catalog.Filter{Type: "pantalón", Color: "negro"}, Qty: 50},
		{Filter: catalog.Filter{Type: "pantalón", Color: "azul"}, Qty: 60},
		{Filter: catalog.Filter{Type: "sudadera", Color: "gris", Size: "XL"}, Qty: 100},
	}
	for i, want := range cases {
		if m.Lines[i] != want {
			t.Fatalf("line %d = %+v, want %+v", i, m.Lines[i], want)
		}
	}
}

func TestParse_AttributeOnly(t *testing.T) {
	for _, text := range []string{"y en azul?", "talle L", "las tenés en XL"} {
		m := Parse(text)
		if !m.AttributeOnly() {
			t.Fatalf("%q should be attribute-only: %+v", text, m)
		}
	}
	if Parse("hola").HasAttributes() {
		t.Fatalf("greeting has no attributes")
	}
}

func TestParse_Ops(t *testing.T) {
	cases := map[string]Op{
		"agregá 20 más":         OpAdd,
		"sumale 30":             OpAdd,
		"reducí 10":             OpReduce,
		"quitá 5 unidades":      OpReduce,
		"cancelá el pedido":     OpCancel,
		"anulalo":               OpCancel,
		"confirmo el pedido":    OpConfirm,
		"cambiar a 150":         OpSet,
		"cuántas camisetas hay": OpNone,
	}
	for text, want := range cases {
		if got := Parse(text).Op; got != want {
			t.Fatalf("Parse(%q).Op = %v, want %v", text, got, want)
		}
	}
}

func TestParse_NumberWords(t *testing.T) {
	if q := Parse("necesito cien remeras").Quantity; q != 100 {
		t.Fatalf("quantity = %d, want 100", q)
	}
}

func TestHas(t *testing.T) {
	m := Parse("¿Qué hay de stock?")
	if !m.Has("que hay") || !m.Has("stock") || m.Has("hay de stock ya") {
		t.Fatalf("phrase matching wrong for %v", m.Words)
	}
}

func TestParse_HugeQuantitySaturates(t *testing.T) {
	m := Parse("quiero 99999999999999999999999 camisetas rojas")
	if m.Quantity != math.MaxInt || len(m.Lines) != 1 || m.Lines[0].Qty != math.MaxInt {
		t.Fatalf("qty = %d lines = %+v", m.Quantity, m.Lines)
	}
}
