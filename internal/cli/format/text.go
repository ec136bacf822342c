package format

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"golang.org/x/term"

	"github.com/grantcarthew/tagfmt/internal/api"
	"github.com/grantcarthew/tagfmt/internal/htmlcheck"
)

// Color helper functions that respect color.NoColor flag
func colorize(c color.Attribute, s string) string {
	return color.New(c).Sprint(s)
}

func colorFprint(w io.Writer, c color.Attribute, s string) {
	color.New(c).Fprint(w, s)
}

// OutputOptions controls text formatting behavior.
type OutputOptions struct {
	UseColor bool // Enable ANSI color codes
}

// NewOutputOptions returns output options based on flags and environment.
// Priority: jsonOutput > noColorFlag > NO_COLOR env > TTY detection.
func NewOutputOptions(jsonOutput bool, noColorFlag bool) OutputOptions {
	// JSON output never has colors
	if jsonOutput {
		return OutputOptions{UseColor: false}
	}

	// --no-color flag disables colors
	if noColorFlag {
		return OutputOptions{UseColor: false}
	}

	// NO_COLOR environment variable disables colors
	if os.Getenv("NO_COLOR") != "" {
		return OutputOptions{UseColor: false}
	}

	// Enable colors if stdout is a TTY
	return OutputOptions{
		UseColor: term.IsTerminal(int(os.Stdout.Fd())),
	}
}

// ActionSuccess outputs "OK" for successful action commands.
func ActionSuccess(w io.Writer) error {
	_, err := fmt.Fprintln(w, "OK")
	return err
}

// ActionError outputs "Error: <message>" for failed action commands.
func ActionError(w io.Writer, msg string, opts OutputOptions) error {
	if opts.UseColor {
		colorFprint(w, color.FgRed, "Error:")
		_, err := fmt.Fprintf(w, " %s\n", msg)
		return err
	}
	_, err := fmt.Fprintf(w, "Error: %s\n", msg)
	return err
}

// FilePath outputs a file path, one per line (for --check listings).
func FilePath(w io.Writer, path string) error {
	_, err := fmt.Fprintln(w, path)
	return err
}

// Formatted reports a file that was rewritten in place.
func Formatted(w io.Writer, path string, opts OutputOptions) error {
	label := "formatted"
	if opts.UseColor {
		label = colorize(color.FgGreen, label)
	}
	_, err := fmt.Fprintf(w, "%s %s\n", label, path)
	return err
}

// Issues outputs nesting issues as "path:line:col: severity: message".
// An empty path omits the prefix.
func Issues(w io.Writer, path string, issues []htmlcheck.Issue, opts OutputOptions) error {
	prefix := ""
	if path != "" {
		prefix = path + ":"
	}
	for _, issue := range issues {
		sev := string(issue.Severity)
		if opts.UseColor {
			c := color.FgYellow
			if issue.Severity == htmlcheck.SeverityError {
				c = color.FgRed
			}
			sev = colorize(c, sev)
		}
		if _, err := fmt.Fprintf(w, "%s%d:%d: %s: %s\n", prefix, issue.Line, issue.Column, sev, issue.Message); err != nil {
			return err
		}
	}
	return nil
}

// Diff outputs a unified diff, coloring added and removed lines.
func Diff(w io.Writer, diff string, opts OutputOptions) error {
	if !opts.UseColor {
		_, err := io.WriteString(w, diff)
		return err
	}

	for _, line := range strings.SplitAfter(diff, "\n") {
		if line == "" {
			continue
		}
		switch {
		case strings.HasPrefix(line, "+++"), strings.HasPrefix(line, "---"):
			color.New(color.Bold).Fprint(w, line)
		case strings.HasPrefix(line, "@@"):
			colorFprint(w, color.FgCyan, line)
		case strings.HasPrefix(line, "+"):
			colorFprint(w, color.FgGreen, line)
		case strings.HasPrefix(line, "-"):
			colorFprint(w, color.FgRed, line)
		default:
			fmt.Fprint(w, line)
		}
	}
	return nil
}

// Config outputs an effective configuration as "key: value" lines.
func Config(w io.Writer, data api.ConfigData) error {
	locale := data.SortLocale
	if locale == "" {
		locale = "(byte order)"
	}
	rows := [][2]string{
		{"indent", data.Indent},
		{"max_line_length", fmt.Sprint(data.MaxLineLength)},
		{"wrap_attributes", data.WrapAttributes},
		{"sort_attributes", fmt.Sprint(data.SortAttributes)},
		{"sort_locale", locale},
		{"preserve_newlines", fmt.Sprint(data.PreserveNewlines)},
		{"max_newlines", fmt.Sprint(data.MaxNewlines)},
		{"raw_text_exit", data.RawTextExit},
		{"leaf_tags", fmt.Sprint(data.LeafTags)},
	}
	for _, row := range rows {
		if _, err := fmt.Fprintf(w, "%s: %s\n", row[0], row[1]); err != nil {
			return err
		}
	}
	return nil
}
