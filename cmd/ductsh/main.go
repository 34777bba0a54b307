// Command ductsh is a small CLI front end for the duct library: run an
// ad hoc pipeline from flags, run a ductfile or ductscript, or watch a
// running pipeline's live process tree.
package main

import (
	"os"

	"github.com/procduct/duct/cmd/ductsh/cli"
)

func main() {
	os.Exit(cli.Execute())
}
