package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/procduct/duct/ductscript"
)

func newScriptCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "script <file.star>",
		Short: "Run a ductscript file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			src, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("read script: %w", err)
			}
			expr, err := ductscript.Run(src, path)
			if err != nil {
				return err
			}
			_, err = expr.Run(cmd.Context())
			return err
		},
	}
}
