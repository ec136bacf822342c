// Package tagfmt re-indents tag-based markup in a single pass without
// building a document tree.
package tagfmt

import (
	"strings"
	"unicode/utf8"

	"github.com/rivo/uniseg"
)

// mode is the region the scanner is currently in.
type mode int

const (
	modeText mode = iota
	modeTag
	modeComment
	modeRawText
)

// rawTextElements are the elements whose bodies are copied verbatim.
var rawTextElements = []string{"script", "style"}

// scanner holds the state of one Format call.
type scanner struct {
	cfg   Config
	in    string
	pos   int // byte offset of the current step
	order func(a, b string) int

	out     strings.Builder
	line    strings.Builder
	lineLen int // grapheme clusters in line

	depth    int // not clamped; clamped when rendered
	mode     mode
	rawName  string
	rawOpen  bool // raw-text opening tag has not reached its '>' yet
	newlines int
	prev     string
}

// Format re-indents markup according to cfg and returns the result with
// leading and trailing whitespace removed. It accepts any input, including
// malformed markup, and never fails.
func Format(input string, cfg Config) string {
	s := &scanner{cfg: cfg, in: input}
	if cfg.SortAttributes {
		s.order = attributeOrder(cfg.SortLocale)
	}
	s.run()
	return strings.TrimSpace(s.out.String())
}

// FormatResult is the outcome of formatting a whole file.
type FormatResult struct {
	Content string // Formatted content, newline-terminated unless empty
	Changed bool   // Content differs from the source
}

// FormatFile formats file contents. Unlike Format, the returned content ends
// with a single newline so it can be written back to disk as-is.
func FormatFile(src []byte, cfg Config) FormatResult {
	out := Format(string(src), cfg)
	if out != "" {
		out += "\n"
	}
	return FormatResult{
		Content: out,
		Changed: out != string(src),
	}
}

// run drives the scanner. Text is stepped one grapheme cluster at a time so
// that line length counts what a reader sees. Tags, comments and raw text
// are stepped one rune at a time, so a combining mark after '<' or '>'
// never hides the delimiter.
func (s *scanner) run() {
	state := -1
	for s.pos < len(s.in) {
		rest := s.in[s.pos:]
		var c string
		if s.mode == modeText {
			c, _, _, state = uniseg.FirstGraphemeClusterInString(rest, state)
			if c[0] == '<' && len(c) > 1 {
				c = "<"
				state = -1
			}
		} else {
			_, size := utf8.DecodeRuneInString(rest)
			c = rest[:size]
			state = -1
		}

		n := s.step(c)
		if n != len(c) || s.mode != modeText {
			// A marker was consumed or a region began; segmentation restarts.
			state = -1
		}
		s.pos += n
	}
	s.flush()
}

// step handles one grapheme cluster or rune and returns the number of input
// bytes consumed, which is larger than len(c) when a marker was matched.
func (s *scanner) step(c string) int {
	size := len(c)
	if strings.Contains(c, "\r") {
		c = strings.ReplaceAll(c, "\r", "")
		if c == "" {
			return size
		}
	}

	switch s.mode {
	case modeComment:
		closes := c == ">" && strings.HasSuffix(s.line.String(), "--")
		s.append(c)
		if closes {
			s.mode = modeText
			s.flush()
		}
		s.prev = c
		return size

	case modeRawText:
		closes := c == ">" && s.rawTextEnds()
		s.append(c)
		if closes {
			s.mode = modeText
			s.rawName = ""
			s.depth--
			s.flush()
		}
		s.prev = c
		return size

	case modeText:
		if c == "<" {
			if n := s.enterRegion(); n > 0 {
				return n
			}
		}
	}

	switch {
	case c == "<" && s.mode == modeText:
		s.flush()
		if s.peek(1) == '/' {
			s.depth--
		}
		s.mode = modeTag
		s.append(c)

	case c == ">" && s.mode == modeTag:
		s.append(c)
		s.mode = modeText
		s.endTag()

	case c == "\n" || (c == "\t" && s.mode == modeTag):
		if s.mode == modeTag {
			s.appendSpace()
			break
		}
		s.newline()

	default:
		s.append(c)
		s.breakLongLine()
	}

	s.prev = c
	return size
}

// enterRegion checks for a comment or raw-text opener at the current
// position. It returns the number of bytes consumed, or 0 if none matched.
func (s *scanner) enterRegion() int {
	if s.hasPrefixFold("<!--") {
		s.flush()
		s.mode = modeComment
		s.appendMarker(s.in[s.pos : s.pos+4])
		return 4
	}
	for _, name := range rawTextElements {
		if !s.hasPrefixFold("<" + name) {
			continue
		}
		n := 1 + len(name)
		s.flush()
		s.depth++
		s.mode = modeRawText
		s.rawName = name
		s.rawOpen = true
		s.appendMarker(s.in[s.pos : s.pos+n])
		return n
	}
	return 0
}

// rawTextEnds reports whether a '>' at the current position ends the
// raw-text region. It runs before the '>' is appended.
func (s *scanner) rawTextEnds() bool {
	if s.cfg.RawTextExit == RawTextSlashGT {
		return s.prev == "/"
	}
	if s.rawOpen {
		s.rawOpen = false
		return s.prev == "/"
	}
	return endsWithClosingTag(s.line.String(), s.rawName)
}

// endTag finishes a tag whose '>' has just been appended. Every opening tag
// whose name is not a void element nests, unless LeafTags exempts
// declarations and self-closed tags.
func (s *scanner) endTag() {
	tag := s.line.String()
	if strings.HasPrefix(tag, "</") || (s.cfg.LeafTags && isDeclaration(tag)) {
		s.flush()
		return
	}

	name := tagName(tag)
	if s.cfg.WrapMode != WrapNone && strings.Contains(tag, " ") {
		s.setLine(wrapAttributes(tag, s.depth, s.cfg.IndentUnit, s.order))
	}
	s.flush()

	if isVoidElement(name) || (s.cfg.LeafTags && strings.HasSuffix(tag, "/>")) {
		return
	}
	s.depth++
}

// newline handles a line feed in a text region.
func (s *scanner) newline() {
	s.newlines++
	if s.cfg.PreserveNewlines && s.newlines <= s.cfg.MaxConsecutiveNewlines {
		s.flush()
		return
	}
	s.appendSpace()
	s.breakLongLine()
}

// breakLongLine flushes a text line that has reached MaxLineLength.
func (s *scanner) breakLongLine() {
	if s.mode == modeText && s.cfg.MaxLineLength > 0 && s.lineLen >= s.cfg.MaxLineLength {
		s.flush()
	}
}

// flush writes the current line at the current depth and starts a new one.
// Lines that are empty after trimming are dropped.
func (s *scanner) flush() {
	text := strings.TrimSpace(s.line.String())
	s.line.Reset()
	s.lineLen = 0
	s.newlines = 0
	if text == "" {
		return
	}
	s.out.WriteString(indent(s.cfg.IndentUnit, s.depth))
	s.out.WriteString(text)
	s.out.WriteByte('\n')
}

func (s *scanner) append(c string) {
	s.line.WriteString(c)
	s.lineLen++
}

func (s *scanner) appendMarker(m string) {
	s.line.WriteString(m)
	s.lineLen += len(m)
	s.prev = m[len(m)-1:]
}

// appendSpace adds a single separating space unless the line is empty or
// already ends in whitespace.
func (s *scanner) appendSpace() {
	line := s.line.String()
	if line == "" || strings.HasSuffix(line, " ") || strings.HasSuffix(line, "\t") {
		return
	}
	s.append(" ")
}

func (s *scanner) setLine(text string) {
	s.line.Reset()
	s.line.WriteString(text)
	s.lineLen = uniseg.GraphemeClusterCount(text)
}

// peek returns the byte at offset n from the current position, or 0.
func (s *scanner) peek(n int) byte {
	if s.pos+n >= len(s.in) {
		return 0
	}
	return s.in[s.pos+n]
}

func (s *scanner) hasPrefixFold(prefix string) bool {
	rest := s.in[s.pos:]
	return len(rest) >= len(prefix) && strings.EqualFold(rest[:len(prefix)], prefix)
}

// indent renders depth levels of unit. Negative depths render as nothing.
func indent(unit string, depth int) string {
	if depth <= 0 || unit == "" {
		return ""
	}
	return strings.Repeat(unit, depth)
}

// endsWithClosingTag reports whether text, which stops just short of a '>',
// ends with </name, allowing whitespace before the '>'.
func endsWithClosingTag(text, name string) bool {
	text = strings.TrimRight(text, " \t\n")
	suffix := "</" + name
	return len(text) >= len(suffix) && strings.EqualFold(text[len(text)-len(suffix):], suffix)
}

// isDeclaration reports whether tag is a markup declaration such as a
// doctype, or a processing instruction.
func isDeclaration(tag string) bool {
	return strings.HasPrefix(tag, "<!") || strings.HasPrefix(tag, "<?")
}

// tagName returns the lower-cased element name of an opening tag.
func tagName(tag string) string {
	name := strings.TrimPrefix(tag, "<")
	if i := strings.IndexAny(name, " \t\n/>"); i >= 0 {
		name = name[:i]
	}
	return strings.ToLower(name)
}

// isVoidElement checks if a tag is a void element (no closing tag in HTML5).
// Void elements never increase the indent depth.
func isVoidElement(name string) bool {
	switch name {
	case "area", "base", "br", "col", "embed", "hr", "img", "input",
		"link", "meta", "param", "source", "track", "wbr":
		return true
	}
	return false
}
