package compose

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

var excessNewlines = regexp.MustCompile(`\n{3,}`)

// Tags Telegram accepts in HTML parse mode, after renaming.
var allowedTags = map[atom.Atom]string{
	atom.B:      "b",
	atom.Strong: "b",
	atom.I:      "i",
	atom.Em:     "i",
	atom.U:      "u",
	atom.S:      "s",
	atom.Strike: "strike",
	atom.Code:   "code",
	atom.Pre:    "pre",
	atom.A:      "a",
}

// SanitizeDescription reduces event HTML to the subset Telegram renders.
// Line breaks and paragraphs become newlines, unsupported tags are dropped
// with their text kept, and visible text is capped at limit runes. Tags left
// open by the input or by truncation are closed.
func SanitizeDescription(raw string, limit int) string {
	if strings.TrimSpace(raw) == "" {
		return ""
	}

	s := &sanitizer{remaining: limit}
	z := html.NewTokenizer(strings.NewReader(raw))

loop:
	for !s.full() {
		switch z.Next() {
		case html.ErrorToken:
			// io.EOF or malformed input; keep what was collected.
			break loop
		case html.TextToken:
			s.text(string(z.Text()))
		case html.StartTagToken, html.SelfClosingTagToken:
			s.open(z.Token())
		case html.EndTagToken:
			s.close(z.Token())
		}
	}

	s.closeAll()

	out := excessNewlines.ReplaceAllString(s.b.String(), "\n\n")
	return strings.TrimSpace(out)
}

type sanitizer struct {
	b         strings.Builder
	stack     []string
	remaining int
}

func (s *sanitizer) full() bool {
	return s.remaining <= 0
}

func (s *sanitizer) text(t string) {
	if n := utf8.RuneCountInString(t); n > s.remaining {
		t = string([]rune(t)[:s.remaining])
	}
	s.remaining -= utf8.RuneCountInString(t)
	s.b.WriteString(escapeText(t))
}

func (s *sanitizer) open(tok html.Token) {
	switch tok.DataAtom {
	case atom.Br:
		s.b.WriteString("\n")
		return
	case atom.P, atom.Div:
		return
	case atom.Li:
		s.b.WriteString("\n• ")
		return
	}

	name, ok := allowedTags[tok.DataAtom]
	if !ok || tok.Type == html.SelfClosingTagToken {
		return
	}

	if name == "a" {
		href := attr(tok, "href")
		if href == "" {
			return
		}
		s.b.WriteString(`<a href="` + escapeAttr(href) + `">`)
	} else {
		s.b.WriteString("<" + name + ">")
	}
	s.stack = append(s.stack, name)
}

func (s *sanitizer) close(tok html.Token) {
	switch tok.DataAtom {
	case atom.P, atom.Div:
		s.b.WriteString("\n\n")
		return
	}

	name, ok := allowedTags[tok.DataAtom]
	if !ok {
		return
	}

	idx := -1
	for i := len(s.stack) - 1; i >= 0; i-- {
		if s.stack[i] == name {
			idx = i
			break
		}
	}
	if idx < 0 {
		return
	}

	for i := len(s.stack) - 1; i >= idx; i-- {
		s.b.WriteString("</" + s.stack[i] + ">")
	}
	s.stack = s.stack[:idx]
}

func (s *sanitizer) closeAll() {
	for i := len(s.stack) - 1; i >= 0; i-- {
		s.b.WriteString("</" + s.stack[i] + ">")
	}
	s.stack = nil
}

func attr(tok html.Token, key string) string {
	for _, a := range tok.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

var textEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")

func escapeText(s string) string {
	return textEscaper.Replace(s)
}

func escapeAttr(s string) string {
	return strings.ReplaceAll(escapeText(s), `"`, "&quot;")
}
