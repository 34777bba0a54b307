package duct

import (
	"fmt"

	"github.com/procduct/duct/internal/platform"
	"github.com/procduct/duct/interp"
	"github.com/procduct/duct/interp/child"
)

// SpawnError reports that the OS refused to start a leaf: the program
// wasn't found, wasn't executable, or resources were exhausted. It's
// returned eagerly from Run/Read/Start — by the time it surfaces, every
// leaf spawned earlier in the same tree has already been killed and
// reaped.
type SpawnError = child.SpawnError

// PlatformError reports a syscall failure while resolving a program
// path, opening a redirection target, or creating a pipe.
type PlatformError = platform.PlatformError

// IoError reports that a background IO Pump thread failed while copying
// bytes, for a reason other than the stdin broken-pipe case (which is
// never an error). It's deferred to Wait and only surfaces when the
// leaf it came from exited zero; a non-zero exit status always wins.
type IoError = interp.IoError

// NonZeroExit reports that an Expression's reduced status was checked
// and non-zero. It is never returned from Start or Handle.Wait, only
// from Run and Read.
type NonZeroExit struct {
	Status Status
	Expr   Expression
}

func (e *NonZeroExit) Error() string {
	return fmt.Sprintf("duct: %s: exit status %d", e.Expr, e.Status.Code)
}
