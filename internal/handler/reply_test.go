package handler

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestReplyText(t *testing.T) {
	r := Reply{Title: "Hola", Menu: []string{"a", "b"}}
	r.Add("Stock:", "uno", "dos")
	want := "Hola\n\nStock:\nuno\ndos\n\n• a\n• b"
	if got := r.Text(); got != want {
		t.Fatalf("Text() = %q, want %q", got, want)
	}
}

func TestReplyTruncate_DropsWholeLines(t *testing.T) {
	r := Reply{Title: "Título"}
	var lines []string
	for i := 0; i < 500; i++ {
		lines = append(lines, "línea con acentos ñ número "+strings.Repeat("x", i%7))
	}
	r.Add("Lista:", lines...)

	out := r.Truncate(MaxReplyChars)
	if n := utf8.RuneCountInString(out); n > MaxReplyChars {
		t.Fatalf("length %d over limit", n)
	}
	full := r.Text()
	if !strings.HasPrefix(full, out) {
		t.Fatalf("truncated text is not a prefix of the full text")
	}
	if next := full[len(out):]; !strings.HasPrefix(next, "\n") {
		t.Fatalf("cut inside a line: %q", next[:20])
	}
}

func TestReplyTruncate_ShortAndOversizedFirstLine(t *testing.T) {
	r := Reply{Title: "corto"}
	if got := r.Truncate(100); got != "corto" {
		t.Fatalf("got %q", got)
	}
	long := Reply{Title: strings.Repeat("á", 50)}
	if got := long.Truncate(10); utf8.RuneCountInString(got) != 10 {
		t.Fatalf("got %q", got)
	}
}

func TestMoney(t *testing.T) {
	cases := map[int64]string{0: "$0", 65_000_00: "$65.000", 1250: "$12,50", 7_500_000_00: "$7.500.000"}
	for cents, want := range cases {
		if got := money(cents); got != want {
			t.Fatalf("money(%d) = %q, want %q", cents, got, want)
		}
	}
}
