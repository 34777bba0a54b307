package cli

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/procduct/duct"
	"github.com/procduct/duct/ductfile"
)

func newRunCmd() *cobra.Command {
	var ductfilePath string

	cmd := &cobra.Command{
		Use:   "run [-- prog args... [-- prog2 args2...]]",
		Short: "Build a pipeline from flags or a ductfile and run it",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			expr, err := buildRunPipeline(ductfilePath, args)
			if err != nil {
				return err
			}
			_, err = expr.Run(cmd.Context())
			printRunSummary(cmd.ErrOrStderr(), expr, err)
			return err
		},
	}

	cmd.Flags().StringVarP(&ductfilePath, "file", "f", "", "load the pipeline from a ductfile instead of the trailing args")
	return cmd
}

func printRunSummary(w io.Writer, expr duct.Expression, err error) {
	st := defaultStyles()
	var nonZero *duct.NonZeroExit
	switch {
	case err == nil:
		fmt.Fprintln(w, st.ok.Render("ok"), expr)
	case errors.As(err, &nonZero):
		fmt.Fprintln(w, st.fail.Render(fmt.Sprintf("exit %d", nonZero.Status.Code)), expr)
	default:
		fmt.Fprintln(w, st.fail.Render("error"), err)
	}
}

func buildRunPipeline(ductfilePath string, args []string) (expr duct.Expression, err error) {
	if ductfilePath != "" {
		f, openErr := os.Open(ductfilePath)
		if openErr != nil {
			return duct.Expression{}, fmt.Errorf("open ductfile: %w", openErr)
		}
		defer f.Close()
		return ductfile.Load(f)
	}
	return buildPipeline(splitStages(args))
}
