package catalog

import "testing"

func TestContainsPattern_EscapesWildcards(t *testing.T) {
	cases := map[string]string{
		"camiseta": `%camiseta%`,
		"50%":      `%50\%%`,
		"polo_x":   `%polo\_x%`,
		`a\b`:      `%a\\b%`,
		"":         `%%`,
	}
	for in, want := range cases {
		if got := containsPattern(in); got != want {
			t.Fatalf("containsPattern(%q) = %q, want %q", in, got, want)
		}
	}
}
