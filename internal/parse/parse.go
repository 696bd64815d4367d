// Package parse extracts product attributes, quantities and edit verbs from a
// free-text customer message.
package parse

import (
	"errors"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/ariefcatur/go-chat-orders/internal/catalog"
	"github.com/ariefcatur/go-chat-orders/internal/lexicon"
)

// Op is the edit verb found in a message.
type Op int

const (
	OpNone Op = iota
	OpSet
	OpAdd
	OpReduce
	OpCancel
	OpConfirm
)

func (o Op) String() string {
	switch o {
	case OpSet:
		return "set"
	case OpAdd:
		return "add"
	case OpReduce:
		return "reduce"
	case OpCancel:
		return "cancel"
	case OpConfirm:
		return "confirm"
	}
	return "none"
}

// Line is one "quantity + product" request inside a message.
type Line struct {
	Filter catalog.Filter
	Qty    int
}

type Message struct {
	Raw   string
	Words []string
	// Filter holds the first type, color and size mentioned anywhere.
	Filter         catalog.Filter
	Lines          []Line
	Quantity       int
	Op             Op
	HasProductNoun bool
}

// HasAttributes reports a color or size without regard to a product noun.
func (m Message) HasAttributes() bool { return m.Filter.Color != "" || m.Filter.Size != "" }

// AttributeOnly is a refinement like "y en azul?" or "talle L".
func (m Message) AttributeOnly() bool { return m.HasAttributes() && !m.HasProductNoun }

// Has reports whether any of the folded phrases occurs on word boundaries.
func (m Message) Has(phrases ...string) bool {
	text := " " + strings.Join(m.Words, " ") + " "
	for _, p := range phrases {
		if strings.Contains(text, " "+lexicon.Fold(p)+" ") {
			return true
		}
	}
	return false
}

// HasPrefix reports whether any word starts with one of the folded prefixes.
func (m Message) HasPrefix(prefixes ...string) bool {
	for _, w := range m.Words {
		for _, p := range prefixes {
			if strings.HasPrefix(w, p) {
				return true
			}
		}
	}
	return false
}

var separators = regexp.MustCompile(`[,;+\n]|\s(?:y|e|mas|tambien)\s`)

var numberWords = map[string]int{
	"diez": 10, "veinte": 20, "treinta": 30, "cuarenta": 40, "cincuenta": 50,
	"sesenta": 60, "setenta": 70, "ochenta": 80, "noventa": 90, "cien": 100,
	"ciento": 100, "doscientos": 200, "doscientas": 200, "trescientos": 300,
	"trescientas": 300, "quinientos": 500, "quinientas": 500, "mil": 1000,
}

// Parse reads text. It never fails; unknown words are ignored.
func Parse(text string) Message {
	m := Message{Raw: text, Words: lexicon.Tokens(text)}
	m.Op = detectOp(m)

	folded := " " + lexicon.Fold(text) + " "
	var prev catalog.Filter
	for _, seg := range separators.Split(folded, -1) {
		f, qty, noun := readSegment(lexicon.Tokens(seg))
		if noun {
			m.HasProductNoun = true
		}
		m.Filter = fillEmpty(m.Filter, f)
		if m.Quantity == 0 && qty > 0 {
			m.Quantity = qty
		}
		if qty <= 0 {
			continue
		}
		if f.Type == "" {
			f.Type = prev.Type
		}
		m.Lines = append(m.Lines, Line{Filter: f, Qty: qty})
		prev = f
	}
	return m
}

func fillEmpty(dst, src catalog.Filter) catalog.Filter {
	if dst.Type == "" {
		dst.Type = src.Type
	}
	if dst.Color == "" {
		dst.Color = src.Color
	}
	if dst.Size == "" {
		dst.Size = src.Size
	}
	return dst
}

func readSegment(words []string) (f catalog.Filter, qty int, noun bool) {
	for i, w := range words {
		if f.Type == "" {
			if t, ok := lexicon.LookupType(w); ok {
				f.Type, noun = t, true
				continue
			}
		}
		if f.Color == "" {
			if c, ok := lexicon.LookupColor(w); ok {
				f.Color = c
				continue
			}
		}
		if f.Size == "" {
			if s, ok := sizeAt(words, i); ok {
				f.Size = s
				continue
			}
		}
		if qty == 0 {
			qty = quantity(w)
		}
	}
	return f, qty, noun
}

// sizeAt accepts XL/XXL anywhere; single-letter sizes only after "talle"/"talla".
func sizeAt(words []string, i int) (string, bool) {
	s, ok := lexicon.LookupSize(words[i])
	if !ok {
		return "", false
	}
	if len(s) > 1 {
		return s, true
	}
	if i > 0 {
		switch words[i-1] {
		case "talle", "talla", "talles", "tallas", "size", "en":
			return s, true
		}
	}
	return "", false
}

// quantity saturates digit strings too long for int at math.MaxInt so callers
// can reject them instead of seeing no quantity at all.
func quantity(w string) int {
	n, err := strconv.Atoi(w)
	switch {
	case err == nil && n > 0:
		return n
	case errors.Is(err, strconv.ErrRange) && w[0] != '-':
		return math.MaxInt
	}
	return numberWords[w]
}

func detectOp(m Message) Op {
	switch {
	case m.HasPrefix("cancel", "anul"):
		return OpCancel
	case m.HasPrefix("confirm"):
		return OpConfirm
	case m.Has("menos") || m.HasPrefix("reduc", "quit", "sac", "rest"):
		return OpReduce
	case m.Has("mas") || m.HasPrefix("agreg", "sum", "anad"):
		return OpAdd
	case m.HasPrefix("cambi", "modific", "edit", "pone", "deja"):
		return OpSet
	}
	return OpNone
}
