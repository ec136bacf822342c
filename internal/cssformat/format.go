// Package cssformat re-indents CSS one character at a time, placing every
// declaration on its own line.
package cssformat

import (
	"strings"
)

// Options controls CSS formatting.
type Options struct {
	Indent string // Text emitted per nesting level
}

// DefaultOptions returns 2-space indentation.
func DefaultOptions() Options {
	return Options{Indent: "  "}
}

// formatter holds the state of one Format call.
type formatter struct {
	indent string
	depth  int
	result strings.Builder
	line   strings.Builder // Current selector or declaration
}

// Format formats CSS with one declaration per line and a blank line between
// top-level rules. Comments and quoted strings are copied verbatim. Malformed
// input (unbalanced braces) is formatted best-effort and never fails.
func Format(input string, opts Options) string {
	if strings.TrimSpace(input) == "" {
		return ""
	}

	f := &formatter{indent: opts.Indent}
	for i := 0; i < len(input); i++ {
		ch := input[i]

		switch ch {
		case '/':
			if i+1 < len(input) && input[i+1] == '*' {
				i = f.comment(input, i)
				continue
			}
			f.line.WriteByte(ch)

		case '"', '\'':
			i = f.quoted(input, i)

		case '{':
			// Opening brace - start of declaration block
			selector := strings.TrimSpace(f.line.String())
			f.line.Reset()
			f.writeIndent()
			if selector != "" {
				f.result.WriteString(selector)
				f.result.WriteByte(' ')
			}
			f.result.WriteString("{\n")
			f.depth++

		case '}':
			// Closing brace - end of declaration block
			f.flushLine()
			f.depth--
			if f.depth < 0 {
				f.depth = 0 // Prevent negative depth from malformed CSS
			}
			f.writeIndent()
			f.result.WriteString("}\n")
			if f.depth == 0 {
				f.result.WriteByte('\n') // Blank line between top-level rules
			}

		case ';':
			f.line.WriteByte(ch)
			f.flushLine()

		case '\n', '\r', '\t', ' ':
			f.space()

		default:
			f.line.WriteByte(ch)
		}
	}

	f.flushLine()
	return strings.TrimSpace(f.result.String()) + "\n"
}

// comment copies a /* ... */ comment starting at i and returns the index of
// its last byte. A comment inside a selector or declaration stays inline;
// otherwise it gets its own line.
func (f *formatter) comment(input string, i int) int {
	end := strings.Index(input[i+2:], "*/")
	last := len(input) - 1
	if end >= 0 {
		last = i + 2 + end + 1
	}
	text := input[i : last+1]

	if strings.TrimSpace(f.line.String()) != "" {
		f.line.WriteString(text)
		return last
	}
	f.line.Reset()
	f.writeIndent()
	f.result.WriteString(text)
	f.result.WriteByte('\n')
	return last
}

// quoted copies a quoted string starting at i and returns the index of its
// closing quote. Backslash escapes are honoured.
func (f *formatter) quoted(input string, i int) int {
	quote := input[i]
	f.line.WriteByte(quote)
	for j := i + 1; j < len(input); j++ {
		f.line.WriteByte(input[j])
		switch input[j] {
		case '\\':
			if j+1 < len(input) {
				j++
				f.line.WriteByte(input[j])
			}
		case quote:
			return j
		}
	}
	return len(input) - 1
}

// space appends a single space, collapsing runs of whitespace.
func (f *formatter) space() {
	line := f.line.String()
	if line == "" || strings.HasSuffix(line, " ") {
		return
	}
	f.line.WriteByte(' ')
}

// flushLine writes the pending line, if any, at the current depth.
func (f *formatter) flushLine() {
	trimmed := strings.TrimSpace(f.line.String())
	f.line.Reset()
	if trimmed == "" || trimmed == ";" {
		return
	}
	f.writeIndent()
	f.result.WriteString(trimmed)
	f.result.WriteByte('\n')
}

func (f *formatter) writeIndent() {
	f.result.WriteString(strings.Repeat(f.indent, f.depth))
}
