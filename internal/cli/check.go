package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/grantcarthew/tagfmt/internal/cli/format"
	"github.com/grantcarthew/tagfmt/internal/files"
	"github.com/grantcarthew/tagfmt/internal/htmlcheck"
)

var checkCmd = &cobra.Command{
	Use:   "check [paths...]",
	Short: "Report tag nesting problems",
	Long: `Check that tags in the input nest correctly: closing tags match their
opening tags and every non-void element is closed. Elements whose closing tag
HTML allows to be omitted (li, p, td and friends) produce warnings only.

Exits 1 if any error is found. Nothing is rewritten.

Examples:
  tagfmt check < page.html
  tagfmt check site/`,
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)
}

// checkReport is the result for one input.
type checkReport struct {
	Path   string            `json:"path"`
	Issues []htmlcheck.Issue `json:"issues"`
	Errors bool              `json:"errors"`
}

func runCheck(cmd *cobra.Command, args []string) error {
	opts := format.NewOutputOptions(JSONOutput, NoColor)

	var reports []checkReport
	if len(args) == 0 {
		src, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return outputError(fmt.Sprintf("failed to read stdin: %v", err))
		}
		reports = append(reports, newCheckReport(stdinName, string(src)))
	} else {
		s, err := resolveSettings(cmd.Flags(), nil)
		if err != nil {
			return outputError(err.Error())
		}
		paths, err := files.Collect(args, files.Options{Include: s.Include, Exclude: s.Exclude})
		if err != nil {
			return outputError(err.Error())
		}
		for _, path := range paths {
			src, err := os.ReadFile(path)
			if err != nil {
				return outputError(err.Error())
			}
			reports = append(reports, newCheckReport(path, string(src)))
		}
	}

	var errorCount int
	for _, r := range reports {
		if r.Errors {
			errorCount++
		}
		if !JSONOutput {
			format.Issues(stdout, r.Path, r.Issues, opts)
		}
	}
	if JSONOutput {
		outputSuccess(reports)
	}

	if errorCount > 0 {
		return outputNotice(fmt.Sprintf("%d file(s) with nesting errors", errorCount))
	}
	return nil
}

func newCheckReport(path, src string) checkReport {
	res := htmlcheck.Check(src)
	issues := res.Issues
	if issues == nil {
		issues = []htmlcheck.Issue{}
	}
	return checkReport{Path: path, Issues: issues, Errors: res.HasErrors()}
}
