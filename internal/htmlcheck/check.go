// Package htmlcheck validates tag nesting before formatting. The formatter
// accepts anything; this package is what callers use when they want
// malformed markup reported instead of silently re-indented.
package htmlcheck

import (
	"fmt"
	"sort"
	"strings"

	"golang.org/x/net/html"
)

// Severity of an issue.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Issue is a single nesting problem.
type Issue struct {
	Line     int      `json:"line"`
	Column   int      `json:"column"`
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`
}

// String formats the issue as "line:col: severity: message".
func (i Issue) String() string {
	return fmt.Sprintf("%d:%d: %s: %s", i.Line, i.Column, i.Severity, i.Message)
}

// Result holds every issue found in a document, ordered by position.
type Result struct {
	Issues []Issue `json:"issues"`
}

// HasErrors reports whether any issue has error severity.
func (r Result) HasErrors() bool {
	for _, issue := range r.Issues {
		if issue.Severity == SeverityError {
			return true
		}
	}
	return false
}

// openElement is an element on the nesting stack.
type openElement struct {
	name      string
	line, col int
}

// Check tokenizes input and reports closing tags without a matching opening
// tag, mismatched closing tags, and elements left open at the end.
func Check(input string) Result {
	tokenizer := html.NewTokenizer(strings.NewReader(input))
	pos := newPositionTracker()

	var (
		stack  []openElement
		issues []Issue
	)
	add := func(line, col int, sev Severity, format string, args ...any) {
		issues = append(issues, Issue{Line: line, Column: col, Severity: sev, Message: fmt.Sprintf(format, args...)})
	}

	for {
		tokenType := tokenizer.Next()
		if tokenType == html.ErrorToken {
			break
		}

		line, col := pos.current()
		pos.advance(tokenizer.Raw())

		switch tokenType {
		case html.StartTagToken:
			name := tagName(tokenizer)
			if isVoidElement(name) {
				continue
			}
			stack = append(stack, openElement{name: name, line: line, col: col})

		case html.EndTagToken:
			name := tagName(tokenizer)
			if isVoidElement(name) {
				add(line, col, SeverityWarning, "closing tag </%s> for void element", name)
				continue
			}

			idx := lastIndex(stack, name)
			if idx < 0 {
				add(line, col, SeverityError, "unexpected closing tag </%s>", name)
				continue
			}

			// Elements opened after the match are implicitly closed here.
			for _, el := range stack[idx+1:] {
				if optionalClose(el.name) {
					continue
				}
				add(line, col, SeverityError, "closing tag </%s> does not match open <%s> from line %d", name, el.name, el.line)
			}
			stack = stack[:idx]
		}
	}

	for _, el := range stack {
		sev := SeverityError
		if optionalClose(el.name) {
			sev = SeverityWarning
		}
		add(el.line, el.col, sev, "element <%s> is never closed", el.name)
	}

	sort.SliceStable(issues, func(i, j int) bool {
		if issues[i].Line != issues[j].Line {
			return issues[i].Line < issues[j].Line
		}
		return issues[i].Column < issues[j].Column
	})
	return Result{Issues: issues}
}

// tagName extracts the lower-cased tag name from the tokenizer.
func tagName(tokenizer *html.Tokenizer) string {
	name, _ := tokenizer.TagName()
	return string(name)
}

func lastIndex(stack []openElement, name string) int {
	for i := len(stack) - 1; i >= 0; i-- {
		if stack[i].name == name {
			return i
		}
	}
	return -1
}

// isVoidElement checks if a tag is a void element (no closing tag in HTML5).
func isVoidElement(tagName string) bool {
	switch tagName {
	case "area", "base", "br", "col", "embed", "hr", "img", "input",
		"link", "meta", "param", "source", "track", "wbr":
		return true
	}
	return false
}

// optionalClose checks if an element's closing tag may be omitted in HTML5.
func optionalClose(tagName string) bool {
	switch tagName {
	case "li", "p", "td", "th", "tr", "option", "dt", "dd",
		"thead", "tbody", "tfoot", "colgroup":
		return true
	}
	return false
}

// positionTracker converts consumed raw bytes into 1-based line and column.
type positionTracker struct {
	line, col int
}

func newPositionTracker() *positionTracker {
	return &positionTracker{line: 1, col: 1}
}

func (p *positionTracker) current() (int, int) {
	return p.line, p.col
}

func (p *positionTracker) advance(raw []byte) {
	for _, b := range raw {
		if b == '\n' {
			p.line++
			p.col = 1
			continue
		}
		// Count UTF-8 lead bytes only, so columns are in characters.
		if b&0xC0 != 0x80 {
			p.col++
		}
	}
}
