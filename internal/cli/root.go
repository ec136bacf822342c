package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// Version is set at build time.
var Version = "dev"

// Debug enables verbose debug output.
var Debug bool

// JSONOutput enables JSON output format (default is text).
var JSONOutput bool

// NoColor disables color output.
var NoColor bool

// ConfigPath overrides config file discovery.
var ConfigPath string

// Output streams. Tests replace these.
var (
	stdout io.Writer = os.Stdout
	stderr io.Writer = os.Stderr
)

var rootCmd = &cobra.Command{
	Use:   "tagfmt",
	Short: "Streaming formatter for HTML, XML and SVG",
	Long: `tagfmt re-indents tag-based markup in a single pass without building a
document tree. Malformed input is formatted best-effort; use 'tagfmt check'
to report nesting problems.

Settings come from the defaults, then the nearest .tagfmt.yaml (or --config),
then command-line flags.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&Debug, "debug", false, "Enable verbose debug output")
	rootCmd.PersistentFlags().BoolVar(&JSONOutput, "json", false, "Output in JSON format (default is text)")
	rootCmd.PersistentFlags().BoolVar(&NoColor, "no-color", false, "Disable color output")
	rootCmd.PersistentFlags().StringVar(&ConfigPath, "config", "", "Config file (default: nearest .tagfmt.yaml)")
	rootCmd.SetVersionTemplate(`tagfmt version {{.Version}}
Repository: https://github.com/grantcarthew/tagfmt
Report issues: https://github.com/grantcarthew/tagfmt/issues/new
`)
}

// debugf logs a debug message if debug mode is enabled.
func debugf(format string, args ...any) {
	if Debug {
		fmt.Fprintf(stderr, "[DEBUG] "+format+"\n", args...)
	}
}

// Execute runs the root command.
// Supports command abbreviation via unique prefix matching.
func Execute() error {
	args := os.Args[1:]
	if len(args) > 0 {
		if expanded := tryExpandCommand(args[0]); expanded != "" {
			args[0] = expanded
			rootCmd.SetArgs(args)
		}
	}
	return rootCmd.Execute()
}

// tryExpandCommand attempts to expand a command abbreviation.
// Returns the expanded command if exactly one match is found, empty string otherwise.
func tryExpandCommand(prefix string) string {
	var matches []string
	for _, cmd := range rootCmd.Commands() {
		name := cmd.Name()
		if name == prefix {
			// Exact match, no expansion needed
			return ""
		}
		if len(prefix) < len(name) && name[:len(prefix)] == prefix {
			matches = append(matches, name)
		}
	}

	if len(matches) == 1 {
		return matches[0]
	}
	return ""
}

// printedError is an error whose message has already been shown.
type printedError struct {
	msg string
}

func (e *printedError) Error() string { return e.msg }

// IsPrintedError reports whether err was already written to stderr by a
// command, so main should not print it again.
func IsPrintedError(err error) bool {
	var p *printedError
	return errors.As(err, &p)
}

// isStdoutTTY returns true if stdout is a terminal.
func isStdoutTTY() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

// outputJSON writes a JSON response to the given writer.
// Pretty prints if stdout is a TTY, compact otherwise.
func outputJSON(w io.Writer, data any) error {
	enc := json.NewEncoder(w)
	if isStdoutTTY() {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(data)
}

// outputSuccess writes a successful response to stdout.
// Uses text format by default, JSON if --json flag is set.
// For action commands (no data), outputs "OK" in text mode.
func outputSuccess(data any) error {
	if JSONOutput {
		resp := map[string]any{
			"ok": true,
		}
		if data != nil {
			resp["data"] = data
		}
		return outputJSON(stdout, resp)
	}

	if data == nil {
		if shouldUseColor() {
			color.New(color.FgGreen).Fprintln(stdout, "OK")
		} else {
			fmt.Fprintln(stdout, "OK")
		}
		return nil
	}

	_, err := fmt.Fprintf(stdout, "%v\n", data)
	return err
}

// outputError writes an error response to stderr and returns an error.
// Uses text format by default, JSON if --json flag is set.
func outputError(msg string) error {
	if JSONOutput {
		resp := map[string]any{
			"ok":    false,
			"error": msg,
		}
		outputJSON(stderr, resp)
	} else {
		if shouldUseColor() {
			color.New(color.FgRed).Fprint(stderr, "Error:")
			fmt.Fprintf(stderr, " %s\n", msg)
		} else {
			fmt.Fprintf(stderr, "Error: %s\n", msg)
		}
	}
	return &printedError{msg: msg}
}

// outputNotice writes a notice message to stderr without "Error:" prefix.
// Used for informational messages that still result in non-zero exit code.
func outputNotice(msg string) error {
	if JSONOutput {
		resp := map[string]any{
			"ok":      false,
			"message": msg,
		}
		outputJSON(stderr, resp)
	} else {
		fmt.Fprintln(stderr, msg)
	}
	return &printedError{msg: msg}
}

// shouldUseColor determines if color output should be used based on flags and environment.
func shouldUseColor() bool {
	if JSONOutput {
		return false
	}
	if NoColor {
		return false
	}
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	return term.IsTerminal(int(os.Stderr.Fd()))
}
