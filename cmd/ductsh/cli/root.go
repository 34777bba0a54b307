package cli

import (
	stdcontext "context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/procduct/duct"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "ductsh",
		Short: "Build and run duct pipelines from the command line",
	}
	root.SilenceUsage = true
	root.SilenceErrors = true

	root.AddCommand(newRunCmd())
	root.AddCommand(newScriptCmd())
	root.AddCommand(newWatchCmd())

	return root
}

// Execute runs the ductsh CLI and returns the process exit code: a
// pipeline's own exit code when it fails with a non-zero status, 1 for
// any other error, 0 on success.
func Execute() int {
	ctx, stop := signal.NotifyContext(stdcontext.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := newRootCmd()
	root.SetContext(ctx)

	if err := root.ExecuteContext(ctx); err != nil {
		var nonZero *duct.NonZeroExit
		if errors.As(err, &nonZero) {
			return nonZero.Status.Code
		}
		fmt.Fprintln(os.Stderr, "ductsh:", err)
		return 1
	}
	return 0
}

// splitStages splits a flat argument list on literal "--" separators
// into one []string per pipeline stage, e.g.
// ["echo", "hi", "--", "sed", "s/i/o/"] becomes
// [["echo", "hi"], ["sed", "s/i/o/"]].
func splitStages(args []string) [][]string {
	var stages [][]string
	var current []string
	for _, a := range args {
		if a == "--" {
			stages = append(stages, current)
			current = nil
			continue
		}
		current = append(current, a)
	}
	stages = append(stages, current)
	return stages
}

func buildPipeline(stages [][]string) (duct.Expression, error) {
	if len(stages) == 0 {
		return duct.Expression{}, fmt.Errorf("no pipeline given")
	}
	var pipeline duct.Expression
	for i, stage := range stages {
		if len(stage) == 0 {
			return duct.Expression{}, fmt.Errorf("stage %d: no program given", i)
		}
		e := duct.Cmd(stage[0], stage[1:]...)
		if i == 0 {
			pipeline = e
			continue
		}
		pipeline = pipeline.Pipe(e)
	}
	return pipeline, nil
}
