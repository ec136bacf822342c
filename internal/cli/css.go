package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/grantcarthew/tagfmt/internal/cli/format"
	"github.com/grantcarthew/tagfmt/internal/cssformat"
	"github.com/grantcarthew/tagfmt/internal/files"
)

var cssCmd = &cobra.Command{
	Use:   "css [paths...]",
	Short: "Re-indent CSS",
	Long: `Re-indent CSS from stdin or files, one declaration per line. Directories
are searched for .css files.

Examples:
  tagfmt css < style.css
  tagfmt css -w --indent 4 styles/`,
	RunE: runCSS,
}

var (
	cssIndent int
	cssTabs   bool
	cssWrite  bool
)

func init() {
	cssCmd.Flags().IntVar(&cssIndent, "indent", 2, "Spaces per indentation level")
	cssCmd.Flags().BoolVar(&cssTabs, "tabs", false, "Indent with tabs")
	cssCmd.Flags().BoolVarP(&cssWrite, "write", "w", false, "Rewrite files in place")

	rootCmd.AddCommand(cssCmd)
}

func runCSS(cmd *cobra.Command, args []string) error {
	if cssIndent < 0 || cssIndent > 16 {
		return outputError(fmt.Sprintf("--indent must be between 0 and 16, got %d", cssIndent))
	}
	opts := cssformat.Options{Indent: strings.Repeat(" ", cssIndent)}
	if cssTabs {
		opts.Indent = "\t"
	}
	outOpts := format.NewOutputOptions(JSONOutput, NoColor)

	if len(args) == 0 {
		if cssWrite {
			return outputError("--write requires file arguments")
		}
		src, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return outputError(fmt.Sprintf("failed to read stdin: %v", err))
		}
		out := cssformat.Format(string(src), opts)
		if JSONOutput {
			return outputSuccess(map[string]any{"output": out, "changed": out != string(src)})
		}
		_, err = io.WriteString(stdout, out)
		return err
	}

	paths, err := files.Collect(args, files.Options{Include: []string{"**/*.css"}})
	if err != nil {
		return outputError(err.Error())
	}

	var results []fileResult
	for _, path := range paths {
		r := fileResult{Path: path}
		info, err := os.Stat(path)
		if err != nil {
			return outputError(err.Error())
		}
		src, err := os.ReadFile(path)
		if err != nil {
			return outputError(err.Error())
		}
		out := cssformat.Format(string(src), opts)
		r.Changed = out != string(src)
		if cssWrite && r.Changed {
			if err := os.WriteFile(path, []byte(out), info.Mode().Perm()); err != nil {
				return outputError(fmt.Sprintf("failed to write %s: %v", path, err))
			}
			r.Written = true
		}
		results = append(results, r)

		if JSONOutput {
			continue
		}
		switch {
		case r.Written:
			format.Formatted(stdout, path, outOpts)
		case !cssWrite:
			io.WriteString(stdout, out)
		}
	}

	if JSONOutput {
		return outputSuccess(results)
	}
	return nil
}
