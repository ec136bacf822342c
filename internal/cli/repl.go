package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/peterh/liner"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/grantcarthew/tagfmt/internal/api"
	"github.com/grantcarthew/tagfmt/internal/cli/format"
	"github.com/grantcarthew/tagfmt/internal/config"
	"github.com/grantcarthew/tagfmt/internal/tagfmt"
)

var replCmd = &cobra.Command{
	Use:   "repl",
	Short: "Format markup interactively",
	Long: `Start an interactive prompt. Paste or type markup, then enter a line
containing only '.' to format it.

Commands (unique prefixes accepted):
  :set key value   Change a setting, using .tagfmt.yaml keys (:set indent 4)
  :show            Show the current settings
  :reset           Restore the settings the session started with
  :help            Show this help
  :quit, :exit     Leave (Ctrl+D also works)`,
	Args: cobra.NoArgs,
}

var replFlags formatterFlags

func init() {
	// Assigned here to break the replCmd -> runREPL -> replCmd.Long init cycle.
	replCmd.RunE = runREPL
	replFlags.register(replCmd.Flags())

	rootCmd.AddCommand(replCmd)
}

// replCommands lists REPL commands for abbreviation matching.
var replCommands = []string{"set", "show", "reset", "help", "quit", "exit"}

// repl holds the state of an interactive session.
type repl struct {
	defaults tagfmt.Config
	cfg      tagfmt.Config
	out      io.Writer
	opts     format.OutputOptions
	pending  []string
}

func newREPL(defaults tagfmt.Config, out io.Writer, opts format.OutputOptions) *repl {
	return &repl{defaults: defaults, cfg: defaults, out: out, opts: opts}
}

func runREPL(cmd *cobra.Command, args []string) error {
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return outputError("repl requires an interactive terminal; use 'tagfmt format' for piped input")
	}

	s, err := resolveSettings(cmd.Flags(), &replFlags)
	if err != nil {
		return outputError(err.Error())
	}

	r := newREPL(s.Formatter, stdout, format.NewOutputOptions(false, NoColor))

	line := liner.NewLiner()
	defer line.Close()
	line.SetCtrlCAborts(true)

	fmt.Fprintln(stdout, "Enter markup, then a line with only '.' to format it. :help for commands.")
	for {
		text, err := line.Prompt(r.prompt())
		switch {
		case errors.Is(err, liner.ErrPromptAborted):
			// Ctrl+C discards pending input; on an empty prompt it exits.
			if len(r.pending) == 0 {
				return nil
			}
			r.pending = nil
			continue
		case errors.Is(err, io.EOF):
			if len(r.pending) > 0 {
				r.flush()
			}
			return nil
		case err != nil:
			return outputError(err.Error())
		}

		if len(r.pending) == 0 && strings.HasPrefix(strings.TrimSpace(text), ":") {
			line.AppendHistory(text)
		}
		if !r.handleLine(text) {
			return nil
		}
	}
}

func (r *repl) prompt() string {
	if len(r.pending) > 0 {
		return "...> "
	}
	return "tagfmt> "
}

// handleLine processes one line of input. It returns false when the session
// should end.
func (r *repl) handleLine(line string) bool {
	trimmed := strings.TrimSpace(line)
	if len(r.pending) == 0 {
		if trimmed == "" {
			return true
		}
		if strings.HasPrefix(trimmed, ":") {
			return r.command(trimmed)
		}
	}
	if trimmed == "." {
		r.flush()
		return true
	}
	r.pending = append(r.pending, line)
	return true
}

// flush formats and prints the pending input.
func (r *repl) flush() {
	input := strings.Join(r.pending, "\n")
	r.pending = nil
	if out := tagfmt.Format(input, r.cfg); out != "" {
		fmt.Fprintln(r.out, out)
	}
}

// command runs a ':' command. It returns false for :quit.
func (r *repl) command(line string) bool {
	fields := strings.Fields(strings.TrimPrefix(line, ":"))
	if len(fields) == 0 {
		return true
	}
	name := strings.ToLower(fields[0])
	if expanded, ok := expandAbbreviation(name, replCommands); ok {
		name = expanded
	}

	switch name {
	case "quit", "exit":
		return false

	case "help":
		fmt.Fprintln(r.out, replCmd.Long)

	case "show":
		format.Config(r.out, api.NewConfigData(r.cfg))

	case "reset":
		r.cfg = r.defaults
		format.ActionSuccess(r.out)

	case "set":
		if len(fields) < 3 {
			format.ActionError(r.out, "usage: :set key value", r.opts)
			break
		}
		if err := r.set(fields[1], strings.Join(fields[2:], " ")); err != nil {
			format.ActionError(r.out, err.Error(), r.opts)
			break
		}
		format.ActionSuccess(r.out)

	default:
		format.ActionError(r.out, fmt.Sprintf("unknown command: :%s (try :help)", name), r.opts)
	}
	return true
}

// set changes one setting. The key and value are read as a line of
// .tagfmt.yaml, so the same names, types and validation apply.
func (r *repl) set(key, value string) error {
	f, err := config.Parse([]byte(key + ": " + value))
	if err != nil {
		return err
	}
	if f.Include != nil || f.Exclude != nil {
		return fmt.Errorf("%s cannot be set in the repl", key)
	}
	cfg, err := f.Apply(r.cfg)
	if err != nil {
		return err
	}
	r.cfg = cfg
	return nil
}

// expandAbbreviation expands a command prefix to a full command name.
// Returns the expanded command and true if exactly one match found.
// Returns empty string and false if no matches or ambiguous.
func expandAbbreviation(prefix string, commands []string) (string, bool) {
	prefix = strings.ToLower(prefix)
	var matches []string
	for _, cmd := range commands {
		if strings.HasPrefix(cmd, prefix) {
			matches = append(matches, cmd)
		}
	}
	if len(matches) == 1 {
		return matches[0], true
	}
	return "", false
}
