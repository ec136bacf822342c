package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/grantcarthew/tagfmt/internal/cli/format"
	"github.com/grantcarthew/tagfmt/internal/watch"
)

var watchCmd = &cobra.Command{
	Use:   "watch [paths...]",
	Short: "Re-format files as they change",
	Long: `Watch files and directories (default: the current directory) and rewrite
markup files in place whenever they are saved. Each file is formatted once
after its writes have been quiet for --delay.

Hidden directories, node_modules and vendor are not watched. The config
file's include and exclude globs select files inside directories.

Examples:
  tagfmt watch
  tagfmt watch site/ templates/ --delay 500ms

Press Ctrl+C to stop.`,
	RunE: runWatch,
}

var (
	watchDelay time.Duration
	watchFlags formatterFlags
)

func init() {
	watchCmd.Flags().DurationVar(&watchDelay, "delay", watch.DefaultDelay, "Quiet period before a changed file is formatted")
	watchFlags.register(watchCmd.Flags())

	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	s, err := resolveSettings(cmd.Flags(), &watchFlags)
	if err != nil {
		return outputError(err.Error())
	}
	if len(args) == 0 {
		args = []string{"."}
	}
	opts := format.NewOutputOptions(JSONOutput, NoColor)
	wd, _ := os.Getwd()

	job := formatJob{cfg: s.Formatter, write: true}
	w, err := watch.New(watch.Config{
		Paths:   args,
		Include: s.Include,
		Exclude: s.Exclude,
		Delay:   watchDelay,
		Debug:   Debug,
		OnChange: func(path string) {
			r := job.run(path)
			display := path
			if rel, err := filepath.Rel(wd, path); err == nil {
				display = rel
			}
			switch {
			case r.Error != "":
				format.ActionError(stderr, display+": "+r.Error, opts)
			case r.Written:
				if JSONOutput {
					r.Path = display
					outputJSON(stdout, r)
				} else {
					format.Formatted(stdout, display, opts)
				}
			default:
				debugf("unchanged: %s", display)
			}
		},
	})
	if err != nil {
		return outputError(err.Error())
	}

	ctx, stop := signalContext(cmd)
	defer stop()

	if err := w.Start(); err != nil {
		return outputError(err.Error())
	}
	if !JSONOutput {
		fmt.Fprintf(stdout, "Watching %v (Ctrl+C to stop)\n", args)
	}

	<-ctx.Done()
	if err := w.Stop(); err != nil {
		return outputError(err.Error())
	}
	return nil
}
