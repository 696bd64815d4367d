// Package lexicon normalizes the garment vocabulary used by customers:
// accents, case, plural and gendered forms, and common synonyms.
package lexicon

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// canonical type -> accepted folded surface forms (singular; plurals are derived)
var typeForms = map[string][]string{
	"pantalón": {"pantalon", "jean"},
	"camiseta": {"camiseta", "remera", "playera"},
	"camisa":   {"camisa"},
	"sudadera": {"sudadera", "buzo", "hoodie"},
	"chaqueta": {"chaqueta", "campera", "chamarra"},
	"falda":    {"falda", "pollera"},
}

// TypeOrder is the display order of canonical garment types.
var TypeOrder = []string{"camiseta", "pantalón", "sudadera", "camisa", "chaqueta", "falda"}

var colorForms = map[string][]string{
	"blanco":   {"blanco", "blanca"},
	"negro":    {"negro", "negra"},
	"azul":     {"azul"},
	"verde":    {"verde"},
	"gris":     {"gris"},
	"rojo":     {"rojo", "roja"},
	"amarillo": {"amarillo", "amarilla"},
}

var sizes = map[string]string{"s": "S", "m": "M", "l": "L", "xl": "XL", "xxl": "XXL"}

var (
	typeIndex  = map[string]string{}
	colorIndex = map[string]string{}
)

func init() {
	for canon, forms := range typeForms {
		for _, f := range forms {
			typeIndex[f] = canon
		}
	}
	for canon, forms := range colorForms {
		for _, f := range forms {
			colorIndex[f] = canon
		}
	}
}

// Fold lowercases s and strips diacritics.
func Fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	return strings.ToLower(strings.TrimSpace(out))
}

// Tokens splits folded s into letter/digit words.
func Tokens(s string) []string {
	return strings.FieldsFunc(Fold(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// Singular strips a Spanish plural suffix from a folded word.
func Singular(w string) string {
	n := len(w)
	switch {
	case n > 4 && strings.HasSuffix(w, "es") && !isVowel(w[n-3]):
		return w[:n-2]
	case n > 3 && strings.HasSuffix(w, "s") && !strings.HasSuffix(w, "ss"):
		return w[:n-1]
	}
	return w
}

func isVowel(b byte) bool { return strings.IndexByte("aeiou", b) >= 0 }

// candidates lists w and its possible singular forms.
func candidates(w string) []string {
	out := []string{w}
	if strings.HasSuffix(w, "s") {
		out = append(out, w[:len(w)-1])
	}
	if strings.HasSuffix(w, "es") {
		out = append(out, w[:len(w)-2])
	}
	return out
}

func lookup(index map[string]string, word string) (string, bool) {
	for _, c := range candidates(Fold(word)) {
		if canon, ok := index[c]; ok {
			return canon, true
		}
	}
	return "", false
}

// LookupType maps a single word to its canonical garment type.
func LookupType(word string) (string, bool) { return lookup(typeIndex, word) }

// LookupColor maps a single word to its canonical color.
func LookupColor(word string) (string, bool) { return lookup(colorIndex, word) }

// LookupSize maps a token to a size label.
func LookupSize(word string) (string, bool) {
	s, ok := sizes[Fold(word)]
	return s, ok
}

// TypeKey is the comparison key for a product type: folded, singular per word,
// synonyms resolved. "Pantalones" and "pantalón" share a key.
func TypeKey(s string) string {
	words := Tokens(s)
	for i, w := range words {
		if c, ok := LookupType(w); ok {
			words[i] = Fold(c)
			continue
		}
		words[i] = Singular(w)
	}
	return strings.Join(words, " ")
}

// ColorKey is the comparison key for a color.
func ColorKey(s string) string {
	words := Tokens(s)
	for i, w := range words {
		if c, ok := LookupColor(w); ok {
			words[i] = c
			continue
		}
		words[i] = Singular(w)
	}
	return strings.Join(words, " ")
}

// SizeKey is the comparison key for a size.
func SizeKey(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// Plural renders a display plural for a canonical type.
func Plural(t string) string {
	if t == "" {
		return "productos"
	}
	f := Fold(t)
	if f == "" {
		return t
	}
	if isVowel(f[len(f)-1]) {
		return t + "s"
	}
	if t == "pantalón" {
		return "pantalones"
	}
	return t + "es"
}
