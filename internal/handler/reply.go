package handler

import (
	"strings"
	"unicode/utf8"
)

// MaxReplyChars is the delivery channel's message limit.
const MaxReplyChars = 4096

type Section struct {
	Heading string   `json:"heading,omitempty"`
	Lines   []string `json:"lines"`
}

// Reply is channel-neutral. Text renders it as plain lines.
type Reply struct {
	Title    string    `json:"title"`
	Sections []Section `json:"sections,omitempty"`
	Menu     []string  `json:"menu,omitempty"`
}

func (r *Reply) Add(heading string, lines ...string) {
	r.Sections = append(r.Sections, Section{Heading: heading, Lines: lines})
}

func (r Reply) lines() []string {
	var out []string
	if r.Title != "" {
		out = append(out, r.Title)
	}
	for _, s := range r.Sections {
		if len(out) > 0 {
			out = append(out, "")
		}
		if s.Heading != "" {
			out = append(out, s.Heading)
		}
		out = append(out, s.Lines...)
	}
	if len(r.Menu) > 0 {
		if len(out) > 0 {
			out = append(out, "")
		}
		for _, m := range r.Menu {
			out = append(out, "• "+m)
		}
	}
	return out
}

func (r Reply) Text() string { return strings.Join(r.lines(), "\n") }

// Truncate renders the reply within max characters, dropping whole trailing
// lines. A first line longer than max is cut at a rune boundary.
func (r Reply) Truncate(max int) string {
	if max <= 0 {
		return ""
	}
	lines := r.lines()
	var b strings.Builder
	n := 0
	for i, ln := range lines {
		add := utf8.RuneCountInString(ln)
		if i > 0 {
			add++
		}
		if n+add > max {
			if i == 0 {
				return string([]rune(ln)[:max])
			}
			break
		}
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(ln)
		n += add
	}
	return strings.TrimRight(b.String(), "\n")
}
