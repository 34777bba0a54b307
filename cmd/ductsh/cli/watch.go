package cli

import (
	"time"

	"github.com/spf13/cobra"
)

func newWatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch -- prog args...",
		Short: "Run a pipeline and show a live dashboard of its process tree",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			expr, err := buildPipeline(splitStages(args))
			if err != nil {
				return err
			}
			h, err := expr.Start(cmd.Context())
			if err != nil {
				return err
			}
			ui := newWatchUI(expr.String())
			_, err = ui.Run(cmd.Context(), h, 500*time.Millisecond)
			return err
		},
	}
}
