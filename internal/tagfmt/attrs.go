package tagfmt

import (
	"slices"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// wrapAttributes rewrites a complete opening tag so that every attribute
// sits on its own line one level deeper than the tag, and the closing
// bracket sits on its own line at the tag's depth. A nil order keeps the
// source order.
func wrapAttributes(tag string, depth int, unit string, order func(a, b string) int) string {
	body := strings.TrimSuffix(tag, ">")
	closer := ">"
	if trimmed, ok := strings.CutSuffix(body, "/"); ok {
		body = trimmed
		closer = "/>"
	}

	name, rest, _ := strings.Cut(body, " ")
	attrs := splitAttributes(rest)
	if len(attrs) == 0 {
		return name + closer
	}
	if order != nil {
		slices.SortStableFunc(attrs, func(a, b string) int {
			return order(strings.TrimSpace(a), strings.TrimSpace(b))
		})
	}

	if depth < 0 {
		depth = 0
	}
	inner := indent(unit, depth+1)

	var b strings.Builder
	b.WriteString(name)
	for _, attr := range attrs {
		b.WriteByte('\n')
		b.WriteString(inner)
		b.WriteString(attr)
	}
	b.WriteByte('\n')
	b.WriteString(indent(unit, depth))
	b.WriteString(closer)
	return b.String()
}

// splitAttributes tokenizes the attribute section of a tag. Attributes are
// separated by whitespace; quoted values may contain whitespace and a
// backslash-escaped quote does not end a value. Whitespace around '=' is
// folded into the attribute it belongs to.
func splitAttributes(s string) []string {
	var (
		tokens []string
		cur    strings.Builder
		quote  byte
	)
	emit := func() {
		if cur.Len() > 0 {
			tokens = append(tokens, cur.String())
			cur.Reset()
		}
	}

	for i := 0; i < len(s); i++ {
		ch := s[i]
		switch {
		case quote != 0:
			cur.WriteByte(ch)
			if ch == '\\' && i+1 < len(s) {
				i++
				cur.WriteByte(s[i])
				continue
			}
			if ch == quote {
				quote = 0
			}
		case ch == '"' || ch == '\'':
			quote = ch
			cur.WriteByte(ch)
		case ch == ' ' || ch == '\t' || ch == '\n':
			emit()
		default:
			cur.WriteByte(ch)
		}
	}
	emit()

	// Rejoin `name = "value"` written with spaces around '='.
	var attrs []string
	for _, tok := range tokens {
		if n := len(attrs); n > 0 && (strings.HasPrefix(tok, "=") || strings.HasSuffix(attrs[n-1], "=")) {
			attrs[n-1] += tok
			continue
		}
		attrs = append(attrs, tok)
	}
	return attrs
}

// attributeOrder returns the comparison used to sort attributes. An empty or
// unparsable locale gives byte order.
func attributeOrder(locale string) func(a, b string) int {
	if locale == "" {
		return strings.Compare
	}
	tag, err := language.Parse(locale)
	if err != nil {
		return strings.Compare
	}
	c := collate.New(tag)
	return c.CompareString
}
