package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"runtime"

	"github.com/pmezard/go-difflib/difflib"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/grantcarthew/tagfmt/internal/api"
	"github.com/grantcarthew/tagfmt/internal/cli/format"
	"github.com/grantcarthew/tagfmt/internal/config"
	"github.com/grantcarthew/tagfmt/internal/files"
	"github.com/grantcarthew/tagfmt/internal/htmlcheck"
	"github.com/grantcarthew/tagfmt/internal/ipc"
	"github.com/grantcarthew/tagfmt/internal/tagfmt"
)

const stdinName = "<stdin>"

var formatCmd = &cobra.Command{
	Use:   "format [paths...]",
	Short: "Format markup files or stdin",
	Long: `Format markup read from stdin, or from the given files, directories and
globs. Directories are searched for html, htm, xml, svg and vue files unless
the config file sets 'include'.

Without --write, --check or --diff the formatted text is printed to stdout.

Examples:
  tagfmt format < page.html            # Format stdin to stdout
  tagfmt format -w site/               # Rewrite every markup file in site/
  tagfmt format --check 'src/**/*.svg' # List files that need formatting
  tagfmt format --diff --tabs index.html
  tagfmt format --strict -w page.html  # Refuse files with nesting errors
  tagfmt format --socket /run/user/1000/tagfmt/tagfmt.sock < page.html`,
	RunE: runFormat,
}

var (
	formatWrite  bool
	formatCheck  bool
	formatDiff   bool
	formatStrict bool
	formatSocket string
	formatFlags  formatterFlags
)

func init() {
	formatCmd.Flags().BoolVarP(&formatWrite, "write", "w", false, "Rewrite files in place")
	formatCmd.Flags().BoolVar(&formatCheck, "check", false, "List unformatted files and exit 1 if any")
	formatCmd.Flags().BoolVar(&formatDiff, "diff", false, "Print a unified diff instead of the formatted text")
	formatCmd.Flags().BoolVar(&formatStrict, "strict", false, "Refuse input with nesting errors")
	formatCmd.Flags().StringVar(&formatSocket, "socket", "", "Format stdin on a running 'tagfmt serve --socket' server")
	formatFlags.register(formatCmd.Flags())
	formatCmd.MarkFlagsMutuallyExclusive("write", "check")

	rootCmd.AddCommand(formatCmd)
}

// formatJob describes what to do with each file.
type formatJob struct {
	cfg    tagfmt.Config
	write  bool
	check  bool
	diff   bool
	strict bool

	// remote formats through a socket server when set. Only changed flags
	// are sent; the server's own defaults fill in the rest.
	remote    string
	overrides config.Overrides
}

// fileResult is the outcome for one file.
type fileResult struct {
	Path    string            `json:"path"`
	Changed bool              `json:"changed"`
	Written bool              `json:"written,omitempty"`
	Issues  []htmlcheck.Issue `json:"issues,omitempty"`
	Error   string            `json:"error,omitempty"`

	content string
	diff    string
}

// formatReport is the --json output for file arguments.
type formatReport struct {
	Files   []fileResult `json:"files"`
	Changed int          `json:"changed"`
}

func runFormat(cmd *cobra.Command, args []string) error {
	s, err := resolveSettings(cmd.Flags(), &formatFlags)
	if err != nil {
		return outputError(err.Error())
	}

	job := formatJob{
		cfg:    s.Formatter,
		write:  formatWrite,
		check:  formatCheck,
		diff:   formatDiff,
		strict: formatStrict,
	}
	if formatSocket != "" {
		if len(args) > 0 {
			return outputError("--socket only applies to stdin")
		}
		job.remote = formatSocket
		job.overrides = formatFlags.overrides(cmd.Flags())
	}
	opts := format.NewOutputOptions(JSONOutput, NoColor)

	if len(args) == 0 {
		if job.write {
			return outputError("--write requires file arguments")
		}
		return formatStdin(cmd.InOrStdin(), job, opts)
	}

	paths, err := files.Collect(args, files.Options{Include: s.Include, Exclude: s.Exclude})
	if err != nil {
		return outputError(err.Error())
	}
	debugf("formatting %d file(s)", len(paths))

	return reportFormat(formatFiles(paths, job), job, opts)
}

func formatStdin(in io.Reader, job formatJob, opts format.OutputOptions) error {
	src, err := io.ReadAll(in)
	if err != nil {
		return outputError(fmt.Sprintf("failed to read stdin: %v", err))
	}

	if job.strict {
		if res := htmlcheck.Check(string(src)); res.HasErrors() {
			if !JSONOutput {
				format.Issues(stderr, stdinName, res.Issues, opts)
			}
			return outputError("input has nesting errors")
		}
	}

	out, err := job.format(src)
	if err != nil {
		return outputError(err.Error())
	}

	switch {
	case job.check:
		if JSONOutput {
			outputSuccess(api.FormatData{Changed: out.Changed})
		}
		if out.Changed {
			return outputNotice(stdinName + " is not formatted")
		}
		return nil

	case job.diff:
		if JSONOutput {
			return outputSuccess(map[string]string{"diff": unifiedDiff(stdinName, string(src), out.Content)})
		}
		return format.Diff(stdout, unifiedDiff(stdinName, string(src), out.Content), opts)
	}

	if JSONOutput {
		return outputSuccess(api.FormatData{Output: out.Content, Changed: out.Changed})
	}
	_, err = io.WriteString(stdout, out.Content)
	return err
}

// format formats src locally, or on the socket server when job.remote is
// set.
func (j formatJob) format(src []byte) (tagfmt.FormatResult, error) {
	if j.remote == "" {
		return tagfmt.FormatFile(src, j.cfg), nil
	}

	client, err := ipc.DialPath(j.remote)
	if err != nil {
		return tagfmt.FormatResult{}, err
	}
	defer client.Close()
	debugf("formatting on %s", j.remote)

	resp, err := client.Send(ipc.Request{Cmd: ipc.CmdFormat, Input: string(src), Config: &j.overrides})
	if err != nil {
		return tagfmt.FormatResult{}, err
	}
	if !resp.OK {
		return tagfmt.FormatResult{}, errors.New(resp.Error)
	}
	var data api.FormatData
	if err := json.Unmarshal(resp.Data, &data); err != nil {
		return tagfmt.FormatResult{}, fmt.Errorf("failed to parse response: %w", err)
	}

	content := data.Output
	if content != "" {
		content += "\n"
	}
	return tagfmt.FormatResult{Content: content, Changed: content != string(src)}, nil
}

// formatFiles runs job over paths in parallel. Results keep the order of
// paths.
func formatFiles(paths []string, job formatJob) []fileResult {
	results := make([]fileResult, len(paths))

	var g errgroup.Group
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, path := range paths {
		g.Go(func() error {
			results[i] = job.run(path)
			return nil
		})
	}
	g.Wait()

	return results
}

func (j formatJob) run(path string) fileResult {
	r := fileResult{Path: path}

	info, err := os.Stat(path)
	if err != nil {
		r.Error = err.Error()
		return r
	}
	src, err := os.ReadFile(path)
	if err != nil {
		r.Error = err.Error()
		return r
	}

	if j.strict {
		if res := htmlcheck.Check(string(src)); res.HasErrors() {
			r.Issues = res.Issues
			r.Error = "nesting errors, not formatted"
			return r
		}
	}

	out := tagfmt.FormatFile(src, j.cfg)
	r.Changed = out.Changed
	r.content = out.Content

	if j.diff && out.Changed {
		r.diff = unifiedDiff(path, string(src), out.Content)
	}
	if j.write && out.Changed {
		if err := os.WriteFile(path, []byte(out.Content), info.Mode().Perm()); err != nil {
			r.Error = fmt.Sprintf("failed to write: %v", err)
			return r
		}
		r.Written = true
	}
	return r
}

func reportFormat(results []fileResult, job formatJob, opts format.OutputOptions) error {
	var changed, failed int
	for _, r := range results {
		if r.Error != "" {
			failed++
			if !JSONOutput {
				format.Issues(stderr, r.Path, r.Issues, opts)
				format.ActionError(stderr, r.Path+": "+r.Error, format.OutputOptions{UseColor: shouldUseColor()})
			}
			continue
		}
		if r.Changed {
			changed++
		}
		if JSONOutput {
			continue
		}

		if r.diff != "" {
			format.Diff(stdout, r.diff, opts)
		}
		if job.check && r.Changed {
			format.FilePath(stdout, r.Path)
		}
		if r.Written {
			format.Formatted(stdout, r.Path, opts)
		}
		if !job.write && !job.check && !job.diff {
			io.WriteString(stdout, r.content)
		}
	}
	debugf("%d of %d file(s) changed, %d failed", changed, len(results), failed)

	if JSONOutput {
		outputSuccess(formatReport{Files: results, Changed: changed})
	}
	if failed > 0 {
		return outputError(fmt.Sprintf("%d file(s) had errors", failed))
	}
	if job.check && changed > 0 {
		return outputNotice(fmt.Sprintf("%d file(s) not formatted", changed))
	}
	return nil
}

// unifiedDiff returns a unified diff from before to after, or "" if equal.
func unifiedDiff(name, before, after string) string {
	if before == after {
		return ""
	}
	diff, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(before),
		B:        difflib.SplitLines(after),
		FromFile: "a/" + name,
		ToFile:   "b/" + name,
		Context:  3,
	})
	if err != nil {
		return fmt.Sprintf("diff failed: %v\n", err)
	}
	return diff
}
